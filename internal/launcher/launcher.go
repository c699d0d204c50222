// Package launcher starts shell commands as daemons that are fully detached
// from the supervisor: they live in another session, are reparented to init
// and never become zombies of the supervisor.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// HelperCommand is the argument under which the supervisor binary runs as
// the intermediate process: <binary> __launch <workDir> <commandLine>.
const HelperCommand = "__launch"

var (
	// ErrCreate means the intermediate process could not be created.
	ErrCreate = errors.New("create intermediate process")
	// ErrIntermediate means the intermediate exited unsuccessfully, so no
	// daemon was started.
	ErrIntermediate = errors.New("intermediate process failed")
)

// Launcher starts detached daemons. The zero value is not usable; use New or
// fill Path and Args.
type Launcher struct {
	// Path is the executable run as the intermediate process.
	Path string
	// Args precede <workDir> <commandLine> on the intermediate's command line.
	Args []string
	// Env of the intermediate. Nil inherits the supervisor's environment.
	Env []string
	Log *slog.Logger
}

// New returns a Launcher that re-executes the running binary as the
// intermediate process.
func New(log *slog.Logger) (*Launcher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &Launcher{Path: exe, Args: []string{HelperCommand}, Log: log}, nil
}

func (l *Launcher) logger() *slog.Logger {
	if l.Log == nil {
		return slog.Default()
	}
	return l.Log
}

// relay forwards what the intermediate wrote to its stderr into the
// supervisor log, one record per line.
func (l *Launcher) relay(commandLine, diag string) {
	for _, line := range strings.Split(diag, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.logger().Warn("intermediate process reported",
			slog.String("cmdline", commandLine),
			slog.String("detail", line))
	}
}
