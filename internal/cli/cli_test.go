package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedd-dev/embedd/internal/api"
	"github.com/embedd-dev/embedd/internal/embedder"
	"github.com/embedd-dev/embedd/internal/engine"
	"github.com/embedd-dev/embedd/internal/service"
)

// =============================================================================
// Test helpers
// =============================================================================

// executeCommand runs embedctl with args and returns stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// newServer serves the API over a hash engine, loaded when loaded is true.
func newServer(t *testing.T, loaded bool, cfg engine.Config) string {
	t.Helper()
	eng := engine.New(embedder.NewHashBackend("cli-test", 8), cfg, nil, nil)
	if loaded {
		_ = eng.Load(context.Background())
	}
	srv := httptest.NewServer(api.NewRouter(service.New(eng, service.Options{}), api.RouterOptions{}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// =============================================================================
// health
// =============================================================================

func TestHealthCmd_Table(t *testing.T) {
	url := newServer(t, true, engine.Config{})

	out, _, err := executeCommand(t, "", "health", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "dimensions")
}

func TestHealthCmd_JSON(t *testing.T) {
	url := newServer(t, false, engine.Config{})

	out, _, err := executeCommand(t, "", "health", "--url", url, "--json")
	require.NoError(t, err)

	var health service.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &health))
	assert.Equal(t, "loading_model", health.Status)
}

func TestHealthCmd_Unreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	_, _, err := executeCommand(t, "", "health", "--url", url)
	require.Error(t, err)

	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Contains(t, cliErr.Message, "Cannot reach embedd")
}

func TestURLFromEnv(t *testing.T) {
	url := newServer(t, true, engine.Config{})
	t.Setenv(URLEnv, url)

	_, _, err := executeCommand(t, "", "health")
	assert.NoError(t, err)
}

// =============================================================================
// embed
// =============================================================================

func TestEmbedCmd_JSON(t *testing.T) {
	url := newServer(t, true, engine.Config{})

	out, _, err := executeCommand(t, "", "embed", "--url", url, "--json", "first", "second")
	require.NoError(t, err)

	var resp service.EmbedResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Embeddings, 2)
	assert.Len(t, resp.Embeddings[0], 8)
}

func TestEmbedCmd_Table(t *testing.T) {
	url := newServer(t, true, engine.Config{})

	out, _, err := executeCommand(t, "", "embed", "--url", url, "A man is eating a piece of bread")
	require.NoError(t, err)
	assert.Contains(t, out, "DIMS")
	assert.Contains(t, out, "A man is eating a piece of bread")
	assert.Contains(t, out, "1 embedding(s)")
}

func TestEmbedCmd_Stdin(t *testing.T) {
	url := newServer(t, true, engine.Config{})

	out, _, err := executeCommand(t, "one\n\ntwo\r\nthree\n", "embed", "--url", url, "--stdin", "--json")
	require.NoError(t, err)

	var resp service.EmbedResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Embeddings, 3)
}

func TestEmbedCmd_QueryDiffersFromDocument(t *testing.T) {
	url := newServer(t, true, engine.Config{})

	docOut, _, err := executeCommand(t, "", "embed", "--url", url, "--json", "foo")
	require.NoError(t, err)
	queryOut, _, err := executeCommand(t, "", "embed", "--url", url, "--json", "--query", "foo")
	require.NoError(t, err)

	assert.NotEqual(t, docOut, queryOut)
}

func TestEmbedCmd_NoTexts(t *testing.T) {
	_, _, err := executeCommand(t, "", "embed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No texts to embed")
}

func TestEmbedCmd_ModelLoading(t *testing.T) {
	url := newServer(t, false, engine.Config{})

	_, _, err := executeCommand(t, "", "embed", "--url", url, "foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still loading")
}

func TestEmbedCmd_LoadFailed(t *testing.T) {
	url := newServer(t, true, engine.Config{Device: "cuda"})

	_, _, err := executeCommand(t, "", "embed", "--url", url, "foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
	assert.Contains(t, err.Error(), "cuda")
}

// =============================================================================
// wait
// =============================================================================

func TestWaitCmd_Ready(t *testing.T) {
	url := newServer(t, true, engine.Config{})

	out, _, err := executeCommand(t, "", "wait", "--url", url, "--interval", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "[OK]")
}

func TestWaitCmd_GivesUp(t *testing.T) {
	url := newServer(t, false, engine.Config{})

	_, _, err := executeCommand(t, "", "wait", "--url", url, "--interval", "10ms", "--max-wait", "50ms")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// =============================================================================
// config
// =============================================================================

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedd.yaml")

	out, _, err := executeCommand(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, _, err = executeCommand(t, "", "config", "init", path)
	assert.Error(t, err, "init refuses to overwrite")

	out, _, err = executeCommand(t, "", "config", "show", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "mixedbread-ai/mxbai-embed-large-v1")
	assert.Contains(t, out, "query_prompt")
}

func TestConfigShow_JSONWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedd.yaml")
	_, _, err := executeCommand(t, "", "config", "init", path)
	require.NoError(t, err)
	t.Setenv("MODEL_PATH", "BAAI/bge-large-en-v1.5")

	out, _, err := executeCommand(t, "", "config", "show", "--file", path, "--json")
	require.NoError(t, err)

	var cfg map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "BAAI/bge-large-en-v1.5", cfg["model"]["path"])
}

func TestConfigShow_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embedd.yaml")
	_, _, err := executeCommand(t, "", "config", "init", path)
	require.NoError(t, err)

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("EMBEDD_SERVER_PORT=9100\n"), 0644))
	// Restored after the test; godotenv only sets variables that are unset.
	t.Setenv("EMBEDD_SERVER_PORT", "")
	require.NoError(t, os.Unsetenv("EMBEDD_SERVER_PORT"))

	out, _, err := executeCommand(t, "", "config", "show", "--file", path, "--env-file", envFile, "--json")
	require.NoError(t, err)

	var cfg map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, float64(9100), cfg["server"]["port"])
}

func TestConfigShow_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  log_format: xml\n"), 0644))

	_, _, err := executeCommand(t, "", "config", "show", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.log_format")
}

// =============================================================================
// stop / version
// =============================================================================

func TestStopCmd_NotRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedd.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(1<<30)), 0644))

	_, errOut, err := executeCommand(t, "", "stop", "--pid-file", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "not running")
}

func TestStopCmd_MissingPIDFile(t *testing.T) {
	_, _, err := executeCommand(t, "", "stop", "--pid-file", filepath.Join(t.TempDir(), "nope.pid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot determine the server process")
}

func TestVersionCmd(t *testing.T) {
	out, _, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "embedd "+Version)

	out, _, err = executeCommand(t, "", "version", "--json")
	require.NoError(t, err)
	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
}

// =============================================================================
// Errors and formatting
// =============================================================================

func TestCLIError_Error(t *testing.T) {
	err := WrapError(assert.AnError, "Something failed", "Try again")
	assert.Equal(t, "Something failed: "+assert.AnError.Error()+"\n\nSuggestion: Try again", err.Error())
	assert.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, "Plain", NewCLIError("Plain", "").Error())
}

func TestPreviewAndTruncate(t *testing.T) {
	assert.Equal(t, "[0.5000, -1.0000]", preview([]float32{0.5, -1}))
	assert.Equal(t, "[1.0000, 2.0000, 3.0000, 4.0000, ...]", preview([]float32{1, 2, 3, 4, 5}))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
