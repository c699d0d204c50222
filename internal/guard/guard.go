// Package guard keeps one named process alive: it tracks the PIDs believed
// to be running under the name and relaunches the configured command when
// none are left.
package guard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/loykin/procguard/internal/launcher"
	"github.com/loykin/procguard/internal/logger"
	"github.com/loykin/procguard/internal/metrics"
)

// Scanner finds the PIDs running under a process name. It reports an
// unusable lookup facility as an empty result.
type Scanner interface {
	Lookup(name string) []int
}

// Prober is the zero side-effect liveness check.
type Prober interface {
	Alive(pid int) bool
}

// Launcher starts a command line as a detached daemon.
type Launcher interface {
	LaunchDetached(commandLine, workDir string) error
}

// Spec is the configured part of a guarded entry.
type Spec struct {
	Name        string
	WorkDir     string // empty inherits the supervisor's directory
	CommandLine string // run through the shell
	Autorun     bool
}

// Process is one guarded entry. It is not safe for concurrent use; only its
// own Check mutates it.
type Process struct {
	spec     Spec
	guarding bool
	pids     []int

	scanner  Scanner
	prober   Prober
	launcher Launcher
	log      *slog.Logger
}

// New returns an entry in its initial state: nothing tracked, guarding as
// configured by Autorun.
func New(spec Spec, scanner Scanner, prober Prober, l Launcher, log *slog.Logger) *Process {
	if log == nil {
		log = slog.Default()
	}
	p := &Process{
		spec:     spec,
		guarding: spec.Autorun,
		scanner:  scanner,
		prober:   prober,
		launcher: l,
		log:      log.With(slog.String("name", spec.Name)),
	}
	p.log.Debug("created guard", slog.Bool("autorun", spec.Autorun))
	metrics.SetGuarding(spec.Name, p.guarding)
	metrics.SetTrackedPIDs(spec.Name, 0)
	return p
}

// Name is the configured process name.
func (p *Process) Name() string { return p.spec.Name }

// Spec returns the entry's configuration.
func (p *Process) Spec() Spec { return p.spec }

// Guarding reports whether the entry is relaunched when found dead.
func (p *Process) Guarding() bool { return p.guarding }

// TrackedPIDs returns a copy of the PIDs that passed the last probe.
func (p *Process) TrackedPIDs() []int {
	out := make([]int, len(p.pids))
	copy(out, p.pids)
	return out
}

// Check runs one supervision step: prune dead PIDs, rediscover by name when
// nothing is left, and launch when rediscovery fails while guarding.
func (p *Process) Check() {
	defer p.publish()
	died := p.prune()
	if len(p.pids) > 0 {
		if died > 0 {
			p.log.Debug("instances remaining", slog.Int("count", len(p.pids)))
		}
		return
	}

	if found := validPIDs(p.scanner.Lookup(p.spec.Name)); len(found) > 0 {
		p.pids = found
		metrics.IncDiscovery(p.spec.Name)
		p.log.Debug("found instances", slog.Int("count", len(found)), slog.Any("pids", found))
		if !p.guarding {
			// Observing the process running enrolls it, even with autorun off.
			p.guarding = true
			p.log.Info("started guarding process")
		}
		return
	}

	if !p.guarding {
		p.log.Log(context.Background(), logger.LevelTrace, "not running and not guarded")
		return
	}
	p.log.Info("process not found, restarting")
	p.launch()
}

// prune drops every tracked PID that fails the liveness probe and returns
// how many were dropped.
func (p *Process) prune() int {
	if len(p.pids) == 0 {
		return 0
	}
	alive := p.pids[:0]
	died := 0
	for _, pid := range p.pids {
		if p.prober.Alive(pid) {
			alive = append(alive, pid)
			continue
		}
		died++
		p.log.Info("process terminated", slog.Int("pid", pid))
	}
	clear(p.pids[len(alive):])
	p.pids = alive
	if died > 0 {
		metrics.AddExits(p.spec.Name, died)
	}
	return died
}

// publish exports the entry's gauges. It runs after every check so the
// series exist no matter when the collectors were registered.
func (p *Process) publish() {
	metrics.SetGuarding(p.spec.Name, p.guarding)
	metrics.SetTrackedPIDs(p.spec.Name, len(p.pids))
}

func (p *Process) launch() {
	err := p.launcher.LaunchDetached(p.spec.CommandLine, p.spec.WorkDir)
	switch {
	case err == nil:
		metrics.IncLaunch(p.spec.Name, metrics.LaunchOK)
		p.log.Info("started detached process")
	case errors.Is(err, launcher.ErrCreate):
		metrics.IncLaunch(p.spec.Name, metrics.LaunchCreateError)
		p.log.Error("failed to create detached process", slog.Any("error", err))
	default:
		metrics.IncLaunch(p.spec.Name, metrics.LaunchIntermediateError)
		p.log.Warn("failed to start detached process", slog.Any("error", err))
	}
}

// validPIDs drops identifiers that cannot name a process. Duplicates stay;
// pruning tolerates them.
func validPIDs(pids []int) []int {
	var out []int
	for _, pid := range pids {
		if pid > 0 {
			out = append(out, pid)
		}
	}
	return out
}
