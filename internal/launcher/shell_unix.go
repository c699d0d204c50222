//go:build !windows

package launcher

import "runtime"

func shellPath() string {
	if runtime.GOOS == "android" {
		return "/system/bin/sh"
	}
	return "/bin/sh"
}
