// Package config loads symlie settings from defaults, a YAML file, SYMLIE_* environment
// variables and command-line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/njchilds90/symlie"
	"github.com/njchilds90/symlie/jacobian"
	"github.com/njchilds90/symlie/verify"
)

// Defaults.
const (
	DefaultEpsilon   = 1e-9
	DefaultStrategy  = string(jacobian.FirstOrder)
	DefaultWorkers   = 1
	DefaultOutput    = "table"
	DefaultLogLevel  = "warn"
	DefaultAddr      = ":8080"
	DefaultFDFormula = "central"
	DefaultTolerance = 1e-6
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SYMLIE_"

// Config holds the resolved settings.
type Config struct {
	Epsilon   float64 `koanf:"epsilon"`
	Strategy  string  `koanf:"strategy"`
	Workers   int     `koanf:"workers"`
	Output    string  `koanf:"output"`
	LogLevel  string  `koanf:"log_level"`
	Addr      string  `koanf:"addr"`
	FDFormula string  `koanf:"fd_formula"`
	Tolerance float64 `koanf:"tolerance"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Epsilon:   DefaultEpsilon,
		Strategy:  DefaultStrategy,
		Workers:   DefaultWorkers,
		Output:    DefaultOutput,
		LogLevel:  DefaultLogLevel,
		Addr:      DefaultAddr,
		FDFormula: DefaultFDFormula,
		Tolerance: DefaultTolerance,
	}
}

// findConfigFile returns the explicit path, or symlie.yaml / symlie.yml in the working
// directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"symlie.yaml", "symlie.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load resolves the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	d := Default()

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"epsilon":    d.Epsilon,
		"strategy":   d.Strategy,
		"workers":    d.Workers,
		"output":     d.Output,
		"log_level":  d.LogLevel,
		"addr":       d.Addr,
		"fd_formula": d.FDFormula,
		"tolerance":  d.Tolerance,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: SYMLIE_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Epsilon < 0 {
		errs = append(errs, fmt.Errorf("epsilon must be >= 0, got %g", c.Epsilon))
	}
	if _, err := jacobian.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	switch c.Output {
	case "table", "json", "latex":
	default:
		errs = append(errs, fmt.Errorf("unknown output %q (want table, json or latex)", c.Output))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.FDFormula {
	case "central", "forward", "backward":
	default:
		errs = append(errs, fmt.Errorf("unknown fd_formula %q (want central, forward or backward)", c.FDFormula))
	}
	if !(c.Tolerance > 0) {
		errs = append(errs, fmt.Errorf("tolerance must be > 0, got %g", c.Tolerance))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// EpsilonExpr is Epsilon as a kernel number.
func (c *Config) EpsilonExpr() symlie.Expr { return symlie.NFloat(c.Epsilon) }

// EngineOptions returns the jacobian engine settings.
func (c *Config) EngineOptions(logger *slog.Logger) jacobian.Options {
	strategy, _ := jacobian.ParseStrategy(c.Strategy)
	return jacobian.Options{
		Strategy: strategy,
		Epsilon:  c.EpsilonExpr(),
		Workers:  c.Workers,
		Logger:   logger,
	}
}

// VerifyOptions returns the finite-difference settings.
func (c *Config) VerifyOptions() verify.Options {
	return verify.Options{
		Epsilon:    c.EpsilonExpr(),
		Formula:    c.FDFormula,
		Concurrent: c.Workers > 1,
	}
}

type (
	configKey struct{}
	loggerKey struct{}
)

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by WithConfig, or the defaults.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return Default()
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from ctx.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
