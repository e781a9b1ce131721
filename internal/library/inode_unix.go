//go:build linux || darwin

package library

import (
	"os"
	"runtime"
	"syscall"
)

func inodeOf(fi os.FileInfo) uint64 {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Ino)
	}
	return 0
}

func numCPUWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
