package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/procguard/internal/detector"
	"github.com/loykin/procguard/internal/env"
	"github.com/loykin/procguard/internal/logger"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// DefaultPath is where the supervisor looks for its configuration,
// relative to its working directory.
const DefaultPath = "config.json"

// Defaults applied when a key is absent.
const (
	DefaultScanInterval = time.Second
	DefaultStartupDelay = 5 * time.Second
)

// Config is the validated configuration document.
type Config struct {
	ScanInterval time.Duration
	StartupDelay time.Duration
	Scanner      string
	Log          logger.Config
	Metrics      MetricsConfig
	// Env holds KEY=VALUE overrides applied to the environment of every
	// launched daemon.
	Env       []string
	Processes []Entry
	// Warnings lists values that were coerced while loading. They are
	// meant to be logged once a logger exists.
	Warnings []string
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Entry is one guarded process as configured.
type Entry struct {
	Name    string
	Cwd     string
	Cmdline string
	Autorun bool
}

// entryConfig mirrors one element of "processes". Pointers distinguish a
// missing key from a zero value; every key is required.
type entryConfig struct {
	Name    *string `mapstructure:"name" validate:"required,min=1"`
	Cwd     *string `mapstructure:"cwd" validate:"required"`
	Cmdline *string `mapstructure:"cmdline" validate:"required"`
	Autorun *bool   `mapstructure:"autorun" validate:"required"`
}

// Error is returned for any configuration that cannot be opened, parsed
// or validated.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("config %s: %v", e.Path, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	return v
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	// Mitigate G304: sanitize user-provided path by cleaning it before use.
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

// Parse decodes a configuration document. A document whose root is an
// array is read as the processes list of an otherwise empty document.
func Parse(raw []byte) (*Config, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		wrapped := make([]byte, 0, len(raw)+16)
		wrapped = append(wrapped, `{"processes":`...)
		wrapped = append(wrapped, raw...)
		raw = append(wrapped, '}')
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("scanner", detector.KindAuto)
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if !v.IsSet("processes") {
		return nil, errors.New(`missing "processes" list`)
	}

	cfg := &Config{Scanner: v.GetString("scanner")}
	cfg.ScanInterval = cfg.seconds(v, "scan_interval", DefaultScanInterval, time.Second)
	cfg.StartupDelay = cfg.seconds(v, "startup_delay", DefaultStartupDelay, 0)

	switch cfg.Scanner {
	case detector.KindAuto, detector.KindPidof, detector.KindProcTable:
	default:
		return nil, fmt.Errorf("scanner: unknown value %q", cfg.Scanner)
	}
	if err := v.UnmarshalKey("log", &cfg.Log); err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	cfg.Log.Level = orDefault(cfg.Log.Level, "info")
	cfg.Log.Format = orDefault(cfg.Log.Format, logger.FormatText)
	cfg.Log.Color = orDefault(cfg.Log.Color, logger.ColorAuto)
	if err := cfg.Log.Validate(); err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	if err := v.UnmarshalKey("metrics", &cfg.Metrics); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	cfg.Env = v.GetStringSlice("env")
	for _, kv := range cfg.Env {
		if _, _, err := env.Split(kv); err != nil {
			return nil, fmt.Errorf("env: %w", err)
		}
	}

	var entries []entryConfig
	if err := v.UnmarshalKey("processes", &entries, strictTypes); err != nil {
		return nil, fmt.Errorf("processes: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("processes[%d]: %w", i, describe(err))
		}
		if seen[*e.Name] {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("processes[%d]: duplicate name %q", i, *e.Name))
		}
		seen[*e.Name] = true
		cfg.Processes = append(cfg.Processes, Entry{
			Name:    *e.Name,
			Cwd:     *e.Cwd,
			Cmdline: *e.Cmdline,
			Autorun: *e.Autorun,
		})
	}
	return cfg, nil
}

// seconds reads key as whole seconds. Absent keys yield def; values that do
// not parse yield def and values below floor yield floor, both with a warning.
func (c *Config) seconds(v *viper.Viper, key string, def, floor time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("failed to parse %s: %v, using default %d", key, err, int(def/time.Second)))
		return def
	}
	d := time.Duration(n) * time.Second
	if d < floor {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s %d, using %d", key, n, int(floor/time.Second)))
		return floor
	}
	return d
}

// strictTypes rejects entry values of the wrong JSON type instead of
// converting them.
func strictTypes(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = false }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "min":
			msgs = append(msgs, fe.Field()+" must not be empty")
		default:
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
		}
	}
	return errors.New(strings.Join(msgs, ", "))
}
