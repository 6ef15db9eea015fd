package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo-proxy/internal/config"
)

func TestCheckTool(t *testing.T) {
	fake := writeFakeCargo(t)

	status := checkTool(context.Background(), fake)
	assert.Empty(t, status.Error)
	assert.Equal(t, fake, status.Path)
	assert.Equal(t, "cargo 1.80.0 (376290515 2024-07-16)", status.Version)

	status = checkTool(context.Background(), filepath.Join(t.TempDir(), "missing-cargo"))
	assert.Equal(t, "not found on PATH", status.Error)

	status = checkTool(context.Background(), "")
	assert.Equal(t, "not configured", status.Error)
}

func TestRunDoctorChecks(t *testing.T) {
	cfg := config.Default()
	cfg.Tool.Binary = writeFakeCargo(t)

	report := runDoctorChecks(context.Background(), cfg, "/etc/cargo-proxy.yaml", nil)
	assert.True(t, report.OK)
	assert.Empty(t, report.Problems)

	cfg.Verify.Report = "partial"
	report = runDoctorChecks(context.Background(), cfg, "/etc/cargo-proxy.yaml", nil)
	assert.False(t, report.OK)
	assert.Len(t, report.Problems, 1)
}

func TestRunDoctorChecks_LoadErrorIsReported(t *testing.T) {
	cfg := config.Default()
	cfg.Tool.Binary = writeFakeCargo(t)

	report := runDoctorChecks(context.Background(), cfg, "/etc/cargo-proxy.yaml", errors.New("parsing /etc/cargo-proxy.yaml: bad indent"))
	assert.False(t, report.OK)
	assert.Equal(t, []string{"parsing /etc/cargo-proxy.yaml: bad indent"}, report.Problems)
}

func TestDoctorCommand_MalformedConfig(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tool:\n  binary: [unterminated\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgPath, "doctor", "--json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		doctorJSON, configFlag, configErr = false, "", nil
	})

	err := rootCmd.Execute()
	var exit exitCodeError
	require.True(t, errors.As(err, &exit), "got %v", err)
	assert.Equal(t, 1, exit.code)

	var report doctorReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.OK)
	assert.Equal(t, cfgPath, report.ConfigPath)
	require.NotEmpty(t, report.Problems)
	assert.Contains(t, report.Problems[0], "parsing "+cfgPath)
	assert.Equal(t, config.Default().MCP.Transport, report.Transport)
}

func TestCheckCommand_MalformedConfigFails(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tool: [\n"), 0o644))

	rootCmd.SetArgs([]string{"--config", cfgPath, "check"})
	t.Cleanup(func() { configFlag = "" })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing "+cfgPath)
}

func TestDoctorOutputs(t *testing.T) {
	report := doctorReport{
		ConfigPath: "/home/u/.cargo-proxy/config.yaml",
		Problems:   []string{"tool.binary is empty"},
		Tool:       toolStatus{Binary: "", Error: "not configured"},
		Transport:  "http",
		Report:     "full",
	}

	var buf bytes.Buffer
	require.NoError(t, writeDoctorPlain(&buf, report))
	assert.Contains(t, buf.String(), "Error: tool.binary is empty\n")
	assert.Contains(t, buf.String(), "MCP transport: http\n")

	buf.Reset()
	require.NoError(t, writeDoctorJSON(&buf, report))
	var decoded doctorReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report, decoded)

	buf.Reset()
	require.NoError(t, writeDoctorPretty(&buf, report))
	assert.Contains(t, buf.String(), "tool.binary is empty")
	assert.Contains(t, buf.String(), "Some issues need attention")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "cargo 1.80.0", firstLine("cargo 1.80.0\nrelease: 1.80.0\n"))
	assert.Equal(t, "x", firstLine("  x  "))
}
