package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrAlreadyRunning is returned when a PID file names a live process.
var ErrAlreadyRunning = errors.New("embedd is already running")

// ReadPIDFile reads a process ID from a file.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID format: %w", err)
	}
	return pid, nil
}

// AcquirePIDFile writes pid to path. A file left behind by a process that
// is no longer running is replaced; one naming a live process is an error.
func AcquirePIDFile(path string, pid int) error {
	if existing, err := ReadPIDFile(path); err == nil && existing != pid && IsProcessRunning(existing) {
		return fmt.Errorf("%w with PID %d (%s)", ErrAlreadyRunning, existing, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// ReleasePIDFile removes path if it still names pid.
// Returns nil if the file doesn't exist.
func ReleasePIDFile(path string, pid int) error {
	existing, err := ReadPIDFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
	} else if existing != pid {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}
