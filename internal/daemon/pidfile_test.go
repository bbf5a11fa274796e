package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// finishedPID returns the PID of a process that has already exited.
func finishedPID(t *testing.T) int {
	t.Helper()
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", "echo hello")
	} else {
		cmd = exec.Command("true")
	}
	require.NoError(t, cmd.Run())
	return cmd.Process.Pid
}

func TestReadPIDFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ok.pid")
	require.NoError(t, os.WriteFile(path, []byte(" 1234\n"), 0644))
	pid, err := ReadPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, pid)

	bad := filepath.Join(dir, "bad.pid")
	require.NoError(t, os.WriteFile(bad, []byte("abc"), 0644))
	_, err = ReadPIDFile(bad)
	assert.ErrorContains(t, err, "invalid PID format")

	_, err = ReadPIDFile(filepath.Join(dir, "missing.pid"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAcquirePIDFile_RefusesLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedd.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644))

	err := AcquirePIDFile(path, os.Getpid()+1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquirePIDFile_ReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedd.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(finishedPID(t))), 0644))

	require.NoError(t, AcquirePIDFile(path, os.Getpid()))
	pid, err := ReadPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestReleasePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedd.pid")
	require.NoError(t, ReleasePIDFile(path, 1), "missing file is fine")

	require.NoError(t, AcquirePIDFile(path, os.Getpid()))
	require.NoError(t, ReleasePIDFile(path, os.Getpid()+1))
	assert.FileExists(t, path, "file owned by another PID is left alone")

	require.NoError(t, ReleasePIDFile(path, os.Getpid()))
	assert.NoFileExists(t, path)
}

func TestIsProcessRunning(t *testing.T) {
	assert.True(t, IsProcessRunning(os.Getpid()))
	assert.False(t, IsProcessRunning(0))
	assert.False(t, IsProcessRunning(finishedPID(t)))
}

func TestTerminateProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	require.NoError(t, TerminateProcess(cmd.Process.Pid, 2*time.Second))
	assert.Error(t, <-waitErr, "sleep exits with a signal status")
}

func TestShutdownSignals(t *testing.T) {
	assert.NotEmpty(t, ShutdownSignals())
}
