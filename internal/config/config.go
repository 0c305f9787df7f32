// Package config loads process-wide configuration for the wispc CLI: the
// recursion-guard depth and debug toggle are overridable through
// environment variables (github.com/caarlos0/env/v6), layered on top of the
// mainer-driven flag struct rather than inventing a second bespoke
// flag-parsing pass.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"golang.org/x/exp/slices"
)

// Config holds the environment-variable-overridable knobs the compiler CLI
// exposes beyond its mainer.Cmd flags.
type Config struct {
	// RecursionGuard bounds compileValue nesting depth; 0 falls back to the
	// compiler package's own default.
	RecursionGuard int `env:"WISPC_RECURSION_GUARD" envDefault:"0"`
	// Debug enables verbose diagnostics on the CLI's Stderr.
	Debug bool `env:"WISPC_DEBUG" envDefault:"false"`
}

// recognizedKeys lists every environment variable this package consults.
// ValidateKeys uses it to flag typos in a deployment's environment (e.g. a
// misspelled WISPC_RECURSSION_GUARD) before they silently fall back to
// defaults.
var recognizedKeys = []string{"WISPC_RECURSION_GUARD", "WISPC_DEBUG"}

// Load reads Config from the process environment, applying defaults for any
// unset variable.
func Load() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// ValidateKeys reports the subset of keys not recognized by this package,
// using golang.org/x/exp/slices the same way lang/compiler/specialforms.go
// validates the `&` vararg marker's position against a parameter list.
func ValidateKeys(keys []string) []string {
	var unknown []string
	for _, k := range keys {
		if !slices.Contains(recognizedKeys, k) {
			unknown = append(unknown, k)
		}
	}
	return unknown
}
