//go:build !windows

package procutil

import (
	"os"
	"syscall"
)

// processExists checks if a process with the given PID exists and is alive
// by sending it signal 0, which the kernel validates without delivering
// anything to the process.
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
