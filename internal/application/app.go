// Package application wires configuration, storage, rules and the engine
// together for the binaries.
package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dbadmin/internal/config"
	"github.com/JonMunkholm/dbadmin/internal/core"
	_ "github.com/JonMunkholm/dbadmin/internal/core/tables" // Register rule presets
	"github.com/JonMunkholm/dbadmin/internal/logging"
	"github.com/JonMunkholm/dbadmin/internal/store"
)

// BuildRules returns the configured preset with the rule file merged over it.
func BuildRules(cfg config.EngineConfig) (*core.Registry, error) {
	reg, err := core.Preset(strings.ToLower(cfg.Preset))
	if err != nil {
		return nil, err
	}

	if cfg.RulesFile != "" {
		rf, err := config.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		if err := reg.Merge(rf); err != nil {
			return nil, fmt.Errorf("rules file %s: %w", cfg.RulesFile, err)
		}
	}
	return reg, nil
}

// Open connects to the configured store and returns a ready Service.
// The caller owns the Service and must Close it.
func Open(ctx context.Context, cfg *config.Config) (*core.Service, error) {
	log := logging.FromContext(ctx)

	rules, err := BuildRules(cfg.Engine)
	if err != nil {
		return nil, err
	}

	gw, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Info("connected to database",
		"driver", cfg.Database.Driver,
		"name", gw.Name(),
	)

	svc := core.NewService(gw, rules, core.Options{
		AddressBy:     core.AddressMode(strings.ToLower(cfg.Engine.AddressBy)),
		SampleLimit:   cfg.Engine.SampleLimit,
		AuditCapacity: cfg.Engine.AuditCapacity,
	})

	// Rules naming missing tables or columns are reported but not fatal:
	// the same preset may serve several schema revisions.
	if err := svc.VerifyRules(ctx); err != nil {
		log.Warn("rules do not match schema", "error", err)
	}
	log.Info("rules loaded",
		"preset", cfg.Engine.Preset,
		"rules_file", cfg.Engine.RulesFile,
		"rules", rules.Len(),
		"bindings", len(rules.Bindings()),
	)

	return svc, nil
}
