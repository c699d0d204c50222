//go:build windows

package launcher

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// LaunchDetached starts commandLine through cmd.exe with no console and in
// its own process group. Windows has no fork, so no intermediate is used.
func (l *Launcher) LaunchDetached(commandLine, workDir string) error {
	// #nosec G204
	cmd := exec.Command("cmd")
	if workDir != "" {
		if fi, err := os.Stat(workDir); err == nil && fi.IsDir() {
			cmd.Dir = workDir
		} else {
			l.logger().Error("failed to change directory",
				slog.String("cwd", workDir),
				slog.String("cmdline", commandLine))
		}
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine:       "cmd /C " + commandLine,
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
		HideWindow:    true,
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}
	_ = cmd.Process.Release()
	return nil
}

// RunIntermediate is never reached on Windows.
func RunIntermediate(workDir, commandLine string) int {
	_, _ = fmt.Fprintln(os.Stderr, "intermediate launch is not supported on windows")
	return 1
}
