// Package tables registers the built-in rule presets with the core registry.
// Import this package for its side effects; each preset file registers itself
// from init().
package tables
