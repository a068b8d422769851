//go:build linux

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

func adviseWillNeed(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_WILLNEED)
}
