package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, Validate(cfg))
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tool:
  timeout: 90s
  source_extensions: [rs, toml]
verify:
  report: redacted
  report_dir: /tmp/reports
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Tool.Timeout)
	assert.Equal(t, []string{"rs", "toml"}, cfg.Tool.SourceExtensions)
	assert.Equal(t, "cargo", cfg.Tool.Binary)
	assert.Equal(t, ReportRedacted, cfg.Verify.Report)
	assert.Equal(t, "/tmp/reports", cfg.Verify.ReportDir)
	assert.True(t, cfg.Verify.Enabled)
	assert.Equal(t, TransportHTTP, cfg.MCP.Transport)
}

func TestLoad_EnvLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tool: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Tool.Timeout = 2 * time.Minute
	cfg.MCP.Transport = TransportStdio

	require.NoError(t, Write(path, cfg))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Tool.Binary = ""
	cfg.Tool.SourceExtensions = []string{"."}
	cfg.Tool.Timeout = -time.Second
	cfg.Verify.Report = "partial"
	cfg.MCP.Transport = "grpc"
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	problems := Validate(cfg)
	assert.Contains(t, problems, "tool.binary is empty")
	assert.Contains(t, problems, "tool.source_extensions[0] is empty")
	assert.Contains(t, problems, "tool.timeout must be >= 0")
	assert.Len(t, problems, 7)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/explicit.yaml", ResolvePath("/explicit.yaml"))

	t.Setenv(EnvConfigPath, "/from/env.yaml")
	assert.Equal(t, "/from/env.yaml", ResolvePath(""))

	t.Setenv(EnvConfigPath, "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	local := filepath.Join(wd, dirName, fileName)
	if !pathExists(local) {
		assert.Equal(t, filepath.Join(home, dirName, fileName), ResolvePath(""))
	}
}
