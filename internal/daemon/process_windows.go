//go:build windows

package daemon

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// IsProcessRunning checks if a process with the given PID is running.
// On Windows, os.FindProcess always succeeds, so we use tasklist to check.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	cmd := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH", "/FO", "CSV")
	output, err := cmd.Output()
	if err != nil {
		return false
	}

	out := string(output)
	if strings.Contains(out, "INFO:") || strings.Contains(out, "No tasks") {
		return false
	}
	return strings.Contains(out, strconv.Itoa(pid))
}

// TerminateProcess kills the process. Windows has no SIGTERM equivalent,
// so grace is ignored.
func TerminateProcess(pid int, grace time.Duration) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}

// ShutdownSignals lists the signals Run treats as a stop request. Only
// Ctrl+C is delivered on Windows.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
