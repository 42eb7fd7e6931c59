// Package config holds the solver, pricing and runtime settings shared by
// the calibrators, the sensitivity calculator and the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/meenmo/isdacds/calibrate"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/rootfind"
	"github.com/meenmo/isdacds/sensitivity"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

var validate = validator.New()

// Solver controls the one-dimensional root finders.
type Solver struct {
	// XTolerance stops the iteration once the step is narrower than this.
	XTolerance float64 `yaml:"x_tolerance" default:"1e-15" validate:"gt=0"`
	// FTolerance stops the iteration once |f| is below it.
	FTolerance      float64 `yaml:"f_tolerance" validate:"gte=0"`
	MaxIterations   int     `yaml:"max_iterations" default:"100" validate:"gte=1"`
	MaxExpansions   int     `yaml:"max_expansions" default:"50" validate:"gte=1"`
	ExpansionFactor float64 `yaml:"expansion_factor" default:"1.6" validate:"gt=1"`
}

// Pricing selects the accrual-on-default formula and the arbitrage policy
// applied while calibrating.
type Pricing struct {
	Formula   string `yaml:"formula" default:"MarkitFix" validate:"required"`
	Arbitrage string `yaml:"arbitrage" default:"Fail" validate:"required"`
}

// Sensitivity sets the finite-difference bump and scheme.
type Sensitivity struct {
	Bump         float64 `yaml:"bump" default:"1e-4" validate:"gt=0,lt=1"`
	Differencing string  `yaml:"differencing" default:"Central" validate:"required"`
}

// Portfolio bounds concurrent trade pricing.
type Portfolio struct {
	Workers int `yaml:"workers" default:"4" validate:"gte=1,lte=256"`
}

// Logging configures the zerolog output.
type Logging struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stderr" validate:"required"`
}

// Config is the full configuration.
type Config struct {
	Solver      Solver      `yaml:"solver"`
	Pricing     Pricing     `yaml:"pricing"`
	Sensitivity Sensitivity `yaml:"sensitivity"`
	Portfolio   Portfolio   `yaml:"portfolio"`
	Logging     Logging     `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config: bad default tags: %v", err))
	}
	return &c
}

// Load reads a YAML file. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides the log level and worker count from ISDACDS_LOG_LEVEL
// and ISDACDS_WORKERS, then revalidates.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("ISDACDS_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ISDACDS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: ISDACDS_WORKERS=%q", ErrInvalidConfig, v)
		}
		c.Portfolio.Workers = n
	}
	return c.Validate()
}

// Validate checks field bounds and that every named policy parses.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Formula(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := calibrate.ParseArbitrageHandling(c.Pricing.Arbitrage); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := sensitivity.ParseDifferencing(c.Sensitivity.Differencing); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SolverOptions converts the solver section.
func (c *Config) SolverOptions() rootfind.Options {
	return rootfind.Options{
		XTolerance:      c.Solver.XTolerance,
		FTolerance:      c.Solver.FTolerance,
		MaxIterations:   c.Solver.MaxIterations,
		MaxExpansions:   c.Solver.MaxExpansions,
		ExpansionFactor: c.Solver.ExpansionFactor,
	}
}

// Formula resolves the configured accrual-on-default formula.
func (c *Config) Formula() (pricer.AccrualOnDefaultFormula, error) {
	return pricer.FormulaByName(c.Pricing.Formula)
}

// CalibrateOptions builds calibrator options logging to log.
func (c *Config) CalibrateOptions(log zerolog.Logger) (calibrate.Options, error) {
	policy, err := calibrate.ParseArbitrageHandling(c.Pricing.Arbitrage)
	if err != nil {
		return calibrate.Options{}, err
	}
	return calibrate.Options{Arbitrage: policy, Solver: c.SolverOptions(), Logger: log}, nil
}

// FastBuilder returns the calibrator the configuration describes.
func (c *Config) FastBuilder(log zerolog.Logger) (*calibrate.FastBuilder, error) {
	formula, err := c.Formula()
	if err != nil {
		return nil, err
	}
	opts, err := c.CalibrateOptions(log)
	if err != nil {
		return nil, err
	}
	return calibrate.NewFastBuilder(formula, opts), nil
}

// Calculator returns the sensitivity calculator the configuration describes.
func (c *Config) Calculator(log zerolog.Logger) (*sensitivity.Calculator, error) {
	b, err := c.FastBuilder(log)
	if err != nil {
		return nil, err
	}
	diff, err := sensitivity.ParseDifferencing(c.Sensitivity.Differencing)
	if err != nil {
		return nil, err
	}
	return sensitivity.NewCalculator(b, c.Sensitivity.Bump, diff)
}
