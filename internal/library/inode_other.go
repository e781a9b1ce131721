//go:build !linux && !darwin

package library

import (
	"os"
	"runtime"
)

func inodeOf(fi os.FileInfo) uint64 {
	return 0
}

func numCPUWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
