// Package common holds the flag handling, configuration, logging, metrics
// and JSON plumbing shared by the cds subcommands.
package common

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/meenmo/isdacds/config"
	"github.com/meenmo/isdacds/logger"
	"github.com/meenmo/isdacds/metrics"
)

var validate = validator.New()

// Flags are the options every subcommand accepts.
type Flags struct {
	fs          *flag.FlagSet
	inputPath   *string
	configPath  *string
	metricsPath *string
	help        *bool
}

// NewFlags registers -input, -config, -metrics and -h on a fresh flag set.
func NewFlags(name string, stderr io.Writer) *Flags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &Flags{
		fs:          fs,
		inputPath:   fs.String("input", "", "JSON input path (optional; if set, ignores stdin)"),
		configPath:  fs.String("config", "", "YAML configuration path (optional)"),
		metricsPath: fs.String("metrics", "", "Prometheus textfile output path (optional)"),
		help:        fs.Bool("h", false, "Show help"),
	}
	fs.BoolVar(f.help, "help", false, "Show help")
	return f
}

// Parse parses args. It reports whether the command should stop, with the
// exit code to use.
func (f *Flags) Parse(args []string, stdin io.Reader, usage func(io.Writer), stderr io.Writer) (bool, int) {
	if err := f.fs.Parse(args); err != nil {
		return true, 2
	}
	if *f.help {
		usage(stderr)
		return true, 0
	}
	if strings.TrimSpace(*f.inputPath) == "" {
		if file, ok := stdin.(*os.File); ok {
			if stat, err := file.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
				usage(stderr)
				return true, 2
			}
		}
	}
	return false, 0
}

// Env is the runtime a subcommand works in.
type Env struct {
	Config      *config.Config
	Log         *logger.Logger
	Metrics     *metrics.Recorder
	metricsPath string
}

// Open loads the configuration and builds the logger and recorder. Logs
// go to stderr unless the configuration names a file.
func (f *Flags) Open(stderr io.Writer) (*Env, error) {
	cfg := config.Default()
	if p := strings.TrimSpace(*f.configPath); p != "" {
		var err error
		if cfg, err = config.Load(p); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	lc := &logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}
	if cfg.Logging.Output == "stderr" {
		lc.Writer = stderr
	}
	log, err := logger.New(lc)
	if err != nil {
		return nil, err
	}
	return &Env{Config: cfg, Log: log, Metrics: metrics.New(), metricsPath: strings.TrimSpace(*f.metricsPath)}, nil
}

// ReadInput reads the -input file or stdin.
func (f *Flags) ReadInput(stdin io.Reader) ([]byte, error) {
	if p := strings.TrimSpace(*f.inputPath); p != "" {
		return os.ReadFile(p)
	}
	return io.ReadAll(stdin)
}

// Close writes the metrics textfile, if asked for, and closes the log.
func (e *Env) Close() error {
	defer e.Log.Close()
	if e.metricsPath == "" {
		return nil
	}
	return e.Metrics.WriteTextfile(e.metricsPath)
}

// Decode unmarshals JSON into v, fills `default` tags and validates it.
func Decode(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to parse JSON input: %w", err)
	}
	if err := defaults.Set(v); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid input: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// WriteJSON prints v as one JSON line.
func WriteJSON(w io.Writer, v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return WriteError(w, fmt.Sprintf("failed to encode output: %v", err))
	}
	fmt.Fprintln(w, string(b))
	return 0
}

// WriteError prints {"error": msg} and returns exit code 1.
func WriteError(w io.Writer, msg string) int {
	b, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{msg})
	fmt.Fprintln(w, string(b))
	return 1
}
