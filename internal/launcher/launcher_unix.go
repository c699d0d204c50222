//go:build !windows

package launcher

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"syscall"

	"golang.org/x/sys/unix"
)

// LaunchDetached runs commandLine through the shell as a daemon, in workDir
// when it is non-empty. It blocks only until the intermediate process has
// exited and been reaped; the daemon's own fate is never observed.
func (l *Launcher) LaunchDetached(commandLine, workDir string) error {
	args := append(slices.Clone(l.Args), workDir, commandLine)
	// #nosec G204
	cmd := exec.Command(l.Path, args...)
	cmd.Env = l.Env
	// The intermediate founds a new session, leaving the supervisor's
	// process group and controlling terminal behind.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	var diag bytes.Buffer
	cmd.Stderr = &diag

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}
	err := cmd.Wait()
	l.relay(commandLine, diag.String())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIntermediate, err)
	}
	return nil
}

// RunIntermediate is the body of the intermediate process. It starts the
// daemon and returns the exit code the intermediate must exit with.
func RunIntermediate(workDir, commandLine string) int {
	return runIntermediate(shellPath(), workDir, commandLine, os.Stderr)
}

func runIntermediate(shell, workDir, commandLine string, stderr io.Writer) int {
	log := slog.New(slog.NewTextHandler(stderr, nil))

	if err := closeInheritedFDs(); err != nil {
		log.Warn("failed to close inherited descriptors", slog.Any("error", err))
	}
	unix.Umask(0)
	if workDir != "" {
		if err := os.Chdir(workDir); err != nil {
			log.Error("failed to change directory",
				slog.String("cwd", workDir),
				slog.Any("error", err))
		}
	}

	// No Setsid here: the daemon joins the intermediate's session without
	// leading it, so it can never acquire a controlling terminal.
	// Nil stdio is bound to the null device by os/exec.
	// #nosec G204
	cmd := exec.Command(shell, "-c", commandLine)
	cmd.Args[0] = "sh"
	if err := cmd.Start(); err != nil {
		log.Error("failed to execute shell command",
			slog.String("cmdline", commandLine),
			slog.Any("error", err))
		return 1
	}
	// Exiting now orphans the daemon; init adopts and reaps it.
	_ = cmd.Process.Release()
	return 0
}
