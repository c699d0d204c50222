//go:build !windows && !linux

package launcher

// closeInheritedFDs makes sure no descriptor above stderr survives into the
// daemon's exec.
func closeInheritedFDs() error {
	return closeOnExecFromDir("/dev/fd")
}
