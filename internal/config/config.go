// Package config provides Viper-based configuration loading for the dice engine.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

// EngineConfig holds dice engine construction settings.
type EngineConfig struct {
	// HistoryCapacity is the number of roll results retained in memory.
	HistoryCapacity int `mapstructure:"history_capacity"`
	// RerollMax is the default number of redraws per die for "r".
	RerollMax int `mapstructure:"reroll_max"`
	// ExplodeMax is the default number of extra dice per term for "!".
	ExplodeMax int `mapstructure:"explode_max"`
	// MaxDice is the largest dice count accepted for a single term.
	MaxDice int `mapstructure:"max_dice"`
	// Source selects the random source: "crypto" or "pseudorandom".
	Source string `mapstructure:"source"`
	// Seed seeds the pseudorandom source. Ignored for "crypto".
	Seed uint64 `mapstructure:"seed"`
}

// Options translates the engine settings into dice engine options.
//
// Precondition: e must have passed Validate.
// Postcondition: The returned options include logger when it is non-nil.
func (e EngineConfig) Options(logger *zap.Logger) []dice.Option {
	opts := []dice.Option{
		dice.WithHistoryCapacity(e.HistoryCapacity),
		dice.WithRerollMax(e.RerollMax),
		dice.WithExplodeMax(e.ExplodeMax),
		dice.WithMaxDice(e.MaxDice),
	}
	if e.Source == "pseudorandom" {
		opts = append(opts, dice.WithRandomSource(dice.NewFallbackSource(e.Seed)))
	}
	if logger != nil {
		opts = append(opts, dice.WithLogger(logger))
	}
	return opts
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ScriptingConfig holds Lua roll-table settings.
type ScriptingConfig struct {
	// InstructionLimit caps Lua opcodes per call; 0 selects the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.HistoryCapacity < 1 {
		errs = append(errs, fmt.Sprintf("engine.history_capacity must be >= 1, got %d", e.HistoryCapacity))
	}
	if e.RerollMax < 0 {
		errs = append(errs, fmt.Sprintf("engine.reroll_max must be >= 0, got %d", e.RerollMax))
	}
	if e.ExplodeMax < 0 {
		errs = append(errs, fmt.Sprintf("engine.explode_max must be >= 0, got %d", e.ExplodeMax))
	}
	if e.MaxDice < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_dice must be >= 1, got %d", e.MaxDice))
	}
	validSources := map[string]bool{"crypto": true, "pseudorandom": true}
	if !validSources[e.Source] {
		errs = append(errs, fmt.Sprintf("engine.source must be one of [crypto, pseudorandom], got %q", e.Source))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment overrides.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// Default returns the default configuration with environment overrides applied.
//
// Postcondition: Returns a valid Config or a non-nil error from a bad override.
func Default() (Config, error) {
	return Load("")
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with DICE_ prefix
	v.SetEnvPrefix("DICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.history_capacity", 1000)
	v.SetDefault("engine.reroll_max", 2)
	v.SetDefault("engine.explode_max", 100)
	v.SetDefault("engine.max_dice", 1000)
	v.SetDefault("engine.source", "crypto")
	v.SetDefault("engine.seed", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("scripting.instruction_limit", 0)
}
