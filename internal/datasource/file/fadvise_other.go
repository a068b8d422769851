//go:build !linux

package file

import "os"

func adviseWillNeed(*os.File) {}
