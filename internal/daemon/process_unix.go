//go:build !windows

package daemon

import (
	"os"
	"syscall"
	"time"
)

// IsProcessRunning checks if a process with the given PID is running.
// On Unix, this uses signal 0 to check if the process exists.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// TerminateProcess asks the process to shut down with SIGTERM and kills
// it if it is still running after grace.
func TerminateProcess(pid int, grace time.Duration) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return process.Kill()
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !IsProcessRunning(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !IsProcessRunning(pid) {
		return nil
	}
	return process.Kill()
}

// ShutdownSignals lists the signals Run treats as a stop request.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
}
