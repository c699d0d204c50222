// Package procguard is a minimal process supervisor. It keeps a configured
// list of named processes running by polling for them and relaunching
// absent ones as detached daemons.
package procguard

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/loykin/procguard/internal/config"
	"github.com/loykin/procguard/internal/detector"
	"github.com/loykin/procguard/internal/env"
	"github.com/loykin/procguard/internal/guard"
	"github.com/loykin/procguard/internal/launcher"
	"github.com/loykin/procguard/internal/metrics"
	"github.com/loykin/procguard/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.

type Config = config.Config

type Entry = config.Entry

type ConfigError = config.Error

type Supervisor = supervisor.Loop

// LoadConfig reads the configuration document at path.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// Options overrides the OS facing collaborators of every guarded entry.
// Nil fields get the platform defaults.
type Options struct {
	Scanner  guard.Scanner
	Prober   guard.Prober
	Launcher guard.Launcher
	Logger   *slog.Logger
}

// NewSupervisor builds one guard per configured entry, in configured order,
// and the loop that sweeps them.
func NewSupervisor(cfg *Config, opts Options) (*Supervisor, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Scanner == nil {
		s, err := detector.NewScanner(cfg.Scanner, log)
		if err != nil {
			return nil, err
		}
		log.Debug("selected scanner", slog.String("scanner", s.Describe()))
		opts.Scanner = s
	}
	if opts.Prober == nil {
		opts.Prober = detector.Probe{}
	}
	if opts.Launcher == nil {
		l, err := launcher.New(log)
		if err != nil {
			return nil, fmt.Errorf("launcher: %w", err)
		}
		if len(cfg.Env) > 0 {
			if l.Env, err = env.Merge(os.Environ(), cfg.Env); err != nil {
				return nil, err
			}
		}
		opts.Launcher = l
	}

	entries := make([]supervisor.Entry, 0, len(cfg.Processes))
	for _, e := range cfg.Processes {
		spec := guard.Spec{Name: e.Name, WorkDir: e.Cwd, CommandLine: e.Cmdline, Autorun: e.Autorun}
		entries = append(entries, guard.New(spec, opts.Scanner, opts.Prober, opts.Launcher, log))
	}
	return supervisor.New(cfg.ScanInterval, entries,
		supervisor.WithStartupDelay(cfg.StartupDelay),
		supervisor.WithLogger(log),
	), nil
}

// MaybeRunIntermediate turns the process into the intermediate of a
// detached launch when it was started as one, and exits. Programs that embed
// a Supervisor with the default launcher must call it first thing in main.
func MaybeRunIntermediate() {
	if len(os.Args) == 4 && os.Args[1] == launcher.HelperCommand {
		os.Exit(launcher.RunIntermediate(os.Args[2], os.Args[3]))
	}
}

// RegisterMetrics registers the supervision collectors with r.
func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

// ServeMetrics serves /metrics from the default registry on addr. It blocks
// until the listener fails.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
