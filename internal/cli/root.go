// Package cli provides the dbadmin command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/dbadmin/internal/application"
	"github.com/JonMunkholm/dbadmin/internal/config"
	"github.com/JonMunkholm/dbadmin/internal/core"
	"github.com/JonMunkholm/dbadmin/internal/logging"
)

// Version information (set at build time).
var Version = "dev"

// flagEnv maps persistent flags to the environment variables they override.
var flagEnv = map[string]string{
	"driver":     "DB_DRIVER",
	"database":   "DATABASE_URL",
	"preset":     "ENGINE_PRESET",
	"rules":      "ENGINE_RULES_FILE",
	"address-by": "ENGINE_ADDRESS_BY",
	"log-level":  "LOG_LEVEL",
	"log-format": "LOG_FORMAT",
}

// cliDefaults apply when neither a flag nor the environment sets a value.
var cliDefaults = map[string]string{
	"LOG_LEVEL": "warn",
}

// app is the per-invocation state shared by commands.
type app struct {
	cfg      *config.Config
	service  *core.Service
	cleanup  func()
	nullText string
	output   string
}

type appKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dbadmin",
		Short: "dbadmin - schema-driven database administration",
		Long: `dbadmin lists, adds, edits and deletes rows of any table in a SQLite or
PostgreSQL database, validating values with per-column rules, and writes
database reports.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			if err := a.open(cmd); err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("driver", "", "store driver: sqlite or postgres (env DB_DRIVER)")
	pf.String("database", "", "sqlite path or postgres URL (env DATABASE_URL)")
	pf.String("preset", "", "built-in rule preset: shop, draft or none (env ENGINE_PRESET)")
	pf.String("rules", "", "YAML rule file merged over the preset (env ENGINE_RULES_FILE)")
	pf.String("address-by", "", "row addressing for edit and delete: key or row (env ENGINE_ADDRESS_BY)")
	pf.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	pf.String("log-format", "", "log format: text or json (env LOG_FORMAT)")
	pf.StringVar(&a.nullText, "null", "NULL", "argument text that stands for a NULL value")
	pf.StringVarP(&a.output, "output", "o", "table", "row output format: table or json")

	_ = rootCmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return append([]string{"none"}, core.Presets()...), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newTablesCommand(),
		newColumnsCommand(),
		newListCommand(),
		newFormCommand(),
		newAddCommand(),
		newEditCommand(),
		newDeleteCommand(),
		newReportCommand(),
		newRulesCommand(),
	)
	return rootCmd
}

// Execute runs the root command. The engine is closed even when the
// command fails.
func Execute() error {
	a := &app{}
	defer a.close()

	rootCmd := newRootCmd(a)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", userError(err))
		return err
	}
	return nil
}

// open loads configuration with flags layered over the environment and
// starts the engine.
func (a *app) open(cmd *cobra.Command) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadWith(flagLookup(cmd.Root().PersistentFlags(), os.Getenv))
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.cleanup = logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		SeqURL: cfg.Logging.SeqURL,
		Output: cmd.ErrOrStderr(),
	})

	svc, err := application.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.service = svc
	return nil
}

func (a *app) close() error {
	var err error
	if a.service != nil {
		err = a.service.Close()
		a.service = nil
	}
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	return err
}

// flagLookup returns an env lookup where changed flags win over env values.
func flagLookup(flags *pflag.FlagSet, env func(string) string) func(string) string {
	overrides := make(map[string]string)
	for name, key := range flagEnv {
		if f := flags.Lookup(name); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}

	return func(key string) string {
		if v, ok := overrides[key]; ok {
			return v
		}
		if v := env(key); v != "" {
			return v
		}
		return cliDefaults[key]
	}
}

func fromContext(ctx context.Context) *app {
	if a, ok := ctx.Value(appKey{}).(*app); ok {
		return a
	}
	return &app{}
}

// userError renders err with its user-facing message and code.
func userError(err error) string {
	msg := core.MapError(err)
	if msg.Code == "ERR000" {
		return err.Error()
	}
	return fmt.Sprintf("%s (Code: %s)", msg.Message, msg.Code)
}
