package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/meenmo/isdacds/calibrate"
	"github.com/meenmo/isdacds/pricer"
	"github.com/meenmo/isdacds/rootfind"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := c.SolverOptions(); got != rootfind.DefaultOptions {
		t.Fatalf("solver options %+v, want %+v", got, rootfind.DefaultOptions)
	}
	f, err := c.Formula()
	if err != nil || f != pricer.MarkitFix {
		t.Fatalf("formula %v, %v", f, err)
	}
	opts, err := c.CalibrateOptions(zerolog.Nop())
	if err != nil || opts.Arbitrage != calibrate.Fail {
		t.Fatalf("calibrate options %+v, %v", opts, err)
	}
	if c.Portfolio.Workers != 4 || c.Sensitivity.Bump != 1e-4 || c.Logging.Output != "stderr" {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	t.Parallel()

	c, err := Parse([]byte(`
pricing:
  formula: original_isda
  arbitrage: ZeroHazardRate
portfolio:
  workers: 16
logging:
  level: debug
  format: console
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f, _ := c.Formula(); f != pricer.OriginalISDA {
		t.Fatalf("formula %v", f)
	}
	if c.Portfolio.Workers != 16 || c.Logging.Level != "debug" {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.Solver.MaxIterations != 100 || c.Sensitivity.Differencing != "Central" {
		t.Fatalf("defaults lost: %+v", c)
	}
	if _, err := c.FastBuilder(zerolog.Nop()); err != nil {
		t.Fatalf("FastBuilder: %v", err)
	}
	if _, err := c.Calculator(zerolog.Nop()); err != nil {
		t.Fatalf("Calculator: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"unknown formula", "pricing:\n  formula: simpson\n"},
		{"unknown policy", "pricing:\n  arbitrage: retry\n"},
		{"unknown differencing", "sensitivity:\n  differencing: sideways\n"},
		{"zero workers", "portfolio:\n  workers: -1\n"},
		{"negative bump", "sensitivity:\n  bump: -0.001\n"},
		{"expansion factor", "solver:\n  expansion_factor: 0.5\n"},
		{"log level", "logging:\n  level: loud\n"},
		{"log format", "logging:\n  format: xml\n"},
	}
	for _, tc := range tests {
		if _, err := Parse([]byte(tc.yaml)); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
	if _, err := Parse([]byte("solver: [1, 2")); err == nil || errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected a YAML error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cds.yaml")
	if err := os.WriteFile(path, []byte("sensitivity:\n  bump: 0.00001\n  differencing: forward\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Sensitivity.Bump != 1e-5 || c.Sensitivity.Differencing != "forward" {
		t.Fatalf("sensitivity section %+v", c.Sensitivity)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ISDACDS_LOG_LEVEL", "WARN")
	t.Setenv("ISDACDS_WORKERS", "8")

	c := Default()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.Logging.Level != "warn" || c.Portfolio.Workers != 8 {
		t.Fatalf("env not applied: %+v", c)
	}

	t.Setenv("ISDACDS_WORKERS", "many")
	if err := Default().ApplyEnv(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
