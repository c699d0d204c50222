// Package supervisor runs the sweep loop that checks every guarded entry in
// configured order, forever.
package supervisor

import (
	"context"
	"log/slog"
	"time"
)

const (
	// EntryDelay separates consecutive checks inside a sweep so a large
	// configuration does not burst OS calls.
	EntryDelay = 5 * time.Millisecond
	// MinInterval is the shortest pause between sweeps.
	MinInterval = time.Second
)

// Entry is one supervised item. Check is only ever called from the loop's
// goroutine.
type Entry interface {
	Name() string
	Check()
}

// Loop sweeps its entries in configured order, forever.
type Loop struct {
	entries      []Entry
	interval     time.Duration
	startupDelay time.Duration
	entryDelay   time.Duration
	log          *slog.Logger
}

// Option customizes a Loop.
type Option func(*Loop)

// WithStartupDelay waits d before the first sweep.
func WithStartupDelay(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.startupDelay = d
		}
	}
}

// WithEntryDelay overrides EntryDelay.
func WithEntryDelay(d time.Duration) Option {
	return func(l *Loop) {
		if d >= 0 {
			l.entryDelay = d
		}
	}
}

// WithLogger sets the loop's logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// New returns a loop over entries. An interval below MinInterval is raised
// to MinInterval.
func New(interval time.Duration, entries []Entry, opts ...Option) *Loop {
	l := &Loop{
		entries:    entries,
		interval:   ClampInterval(interval),
		entryDelay: EntryDelay,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// ClampInterval raises d to MinInterval.
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}

// Interval is the pause between sweeps after clamping.
func (l *Loop) Interval() time.Duration { return l.interval }

// Entries returns the entries in sweep order.
func (l *Loop) Entries() []Entry { return l.entries }

// Run waits for the startup delay, then sweeps until ctx is done. It only
// returns ctx's error; with a context that is never cancelled it never
// returns.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("initialized process guards",
		slog.Int("count", len(l.entries)),
		slog.Duration("scan_interval", l.interval))
	if !sleep(ctx, l.startupDelay) {
		return ctx.Err()
	}
	l.log.Info("starting guard loop")
	for {
		if !l.Sweep(ctx) {
			return ctx.Err()
		}
		if !sleep(ctx, l.interval) {
			return ctx.Err()
		}
	}
}

// Sweep checks every entry once, in order. It reports false when ctx ended
// mid-sweep.
func (l *Loop) Sweep(ctx context.Context) bool {
	for _, e := range l.entries {
		if ctx.Err() != nil {
			return false
		}
		e.Check()
		if !sleep(ctx, l.entryDelay) {
			return false
		}
	}
	return true
}

// sleep pauses for d and reports whether ctx is still live afterwards.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
