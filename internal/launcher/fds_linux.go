//go:build linux

package launcher

import (
	"math"

	"golang.org/x/sys/unix"
)

// closeInheritedFDs makes sure no descriptor above stderr survives into the
// daemon's exec.
func closeInheritedFDs() error {
	if err := unix.CloseRange(3, math.MaxUint32, unix.CLOSE_RANGE_CLOEXEC); err == nil {
		return nil
	}
	// Kernels before 5.11 lack CLOSE_RANGE_CLOEXEC.
	return closeOnExecFromDir("/proc/self/fd")
}
