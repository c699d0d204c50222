//go:build !windows

package launcher

import (
	"os"
	"strconv"

	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"
)

// closeOnExecFromDir marks every descriptor above stderr listed in dir
// (/proc/self/fd, /dev/fd) close-on-exec.
func closeOnExecFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return closeOnExecUpToLimit()
	}
	for _, e := range entries {
		fd, err := strconv.Atoi(e.Name())
		if err != nil || fd <= 2 {
			continue
		}
		unix.CloseOnExec(fd)
	}
	return nil
}

// closeOnExecUpToLimit sweeps every possible descriptor number.
func closeOnExecUpToLimit() error {
	limit, err := sysconf.Sysconf(sysconf.SC_OPEN_MAX)
	if err != nil || limit <= 0 {
		limit = 1024
	}
	for fd := 3; fd < int(limit); fd++ {
		unix.CloseOnExec(fd)
	}
	return nil
}
