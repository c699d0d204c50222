package detector

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

const (
	pidofBinary  = "pidof"
	pidofTimeout = 5 * time.Second
)

// PidofScanner asks the pidof(8) tool for the PIDs of a process name.
type PidofScanner struct {
	// Binary overrides the pidof executable. Empty means "pidof" from PATH.
	Binary string
	// Timeout bounds one lookup. Zero means 5s.
	Timeout time.Duration
	Log     *slog.Logger
}

func (s *PidofScanner) Lookup(name string) []int {
	bin := s.Binary
	if bin == "" {
		bin = pidofBinary
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = pidofTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// name is a single argv entry; it never passes through a shell.
	// #nosec G204
	out, err := exec.CommandContext(ctx, bin, name).Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && ctx.Err() == nil {
			// pidof exits 1 when nothing matches.
			return ParsePIDs(string(out))
		}
		s.logger().Error("failed to execute pidof",
			slog.String("name", name),
			slog.String("binary", bin),
			slog.Any("error", err))
		return nil
	}
	return ParsePIDs(string(out))
}

func (s *PidofScanner) Describe() string { return "pidof" }

func (s *PidofScanner) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
