package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cargo-proxy/internal/config"
	"cargo-proxy/internal/render"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate the config and check that cargo is installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := runDoctorChecks(cmd.Context(), cfg, configPath, configErr)

		var err error
		switch {
		case doctorJSON:
			err = writeDoctorJSON(cmd.OutOrStdout(), report)
		case isTerminal(os.Stdout):
			err = writeDoctorPretty(cmd.OutOrStdout(), report)
		default:
			err = writeDoctorPlain(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return err
		}
		if !report.OK {
			return exitCodeError{code: 1}
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output JSON")
}

type doctorReport struct {
	ConfigPath string     `json:"config_path"`
	Problems   []string   `json:"problems"`
	Tool       toolStatus `json:"tool"`
	Transport  string     `json:"mcp_transport"`
	Report     string     `json:"report_mode"`
	OK         bool       `json:"ok"`
}

type toolStatus struct {
	Binary  string `json:"binary"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// runDoctorChecks inspects cfg. A non-nil loadErr means cfg holds defaults
// because the file at path could not be read; it is reported first.
func runDoctorChecks(ctx context.Context, cfg config.Config, path string, loadErr error) doctorReport {
	problems := config.Validate(cfg)
	if loadErr != nil {
		problems = append([]string{loadErr.Error()}, problems...)
	}
	report := doctorReport{
		ConfigPath: path,
		Problems:   problems,
		Tool:       checkTool(ctx, cfg.Tool.Binary),
		Transport:  cfg.MCP.Transport,
		Report:     cfg.Verify.Report,
	}
	report.OK = len(report.Problems) == 0 && report.Tool.Error == ""
	return report
}

func checkTool(ctx context.Context, binary string) toolStatus {
	status := toolStatus{Binary: binary}
	if binary == "" {
		status.Error = "not configured"
		return status
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		status.Error = "not found on PATH"
		return status
	}
	status.Path = path

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	cmd.Stdin = strings.NewReader("")
	out, err := cmd.Output()
	if err != nil {
		status.Error = "version check failed: " + err.Error()
		return status
	}
	status.Version = firstLine(string(out))
	return status
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func writeDoctorJSON(w io.Writer, report doctorReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeDoctorPlain(w io.Writer, report doctorReport) error {
	var sb strings.Builder
	if len(report.Problems) > 0 {
		for _, msg := range report.Problems {
			sb.WriteString("Error: " + msg + "\n")
		}
	} else {
		sb.WriteString("Config: OK\n")
	}
	if report.Tool.Error != "" {
		fmt.Fprintf(&sb, "Tool %s: %s\n", report.Tool.Binary, report.Tool.Error)
	} else {
		fmt.Fprintf(&sb, "Tool %s: %s (ok)\n", report.Tool.Binary, report.Tool.Version)
	}
	fmt.Fprintf(&sb, "MCP transport: %s\n", report.Transport)
	fmt.Fprintf(&sb, "Report mode: %s\n", report.Report)
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeDoctorPretty(w io.Writer, report doctorReport) error {
	var sb strings.Builder

	sb.WriteString(render.Header("cargo-proxy doctor") + "\n\n")
	sb.WriteString(render.Label("Config: ") + render.Path(report.ConfigPath) + "\n")
	sb.WriteString(render.Divider(50) + "\n\n")

	if len(report.Problems) > 0 {
		sb.WriteString(render.Section("Configuration Errors") + "\n")
		for _, msg := range report.Problems {
			sb.WriteString("  " + render.StatusIcon(render.StatusError) + " " + msg + "\n")
		}
	} else {
		sb.WriteString(render.StatusIcon(render.StatusOK) + " Config validated\n")
	}

	sb.WriteString(render.Section("Build Tool") + "\n")
	if report.Tool.Error != "" {
		status := render.StatusError
		if report.Tool.Path == "" {
			status = render.StatusMissing
		}
		sb.WriteString("  " + render.StatusIcon(status) + " " + render.Label("binary: ") +
			render.Value(report.Tool.Binary) + " (" + report.Tool.Error + ")\n")
	} else {
		sb.WriteString("  " + render.StatusIcon(render.StatusOK) + " " + render.Label("binary: ") +
			render.Path(report.Tool.Path) + "\n")
		sb.WriteString("    " + render.Label("version: ") + render.Value(report.Tool.Version) + "\n")
	}

	sb.WriteString(render.Section("Settings") + "\n")
	sb.WriteString("  " + render.Label("mcp transport: ") + render.Value(report.Transport) + "\n")
	sb.WriteString("  " + render.Label("report mode: ") + render.Value(report.Report) + "\n\n")

	if report.OK {
		sb.WriteString(render.StatusIcon(render.StatusOK) + " All checks passed\n")
	} else {
		sb.WriteString(render.StatusIcon(render.StatusWarn) + " Some issues need attention\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
