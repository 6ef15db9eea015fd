// Package config loads and validates the cargo-proxy configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by the loader.
const (
	EnvConfigPath = "CARGO_PROXY_CONFIG"
	EnvLogLevel   = "CARGO_PROXY_LOG"
)

const (
	dirName  = ".cargo-proxy"
	fileName = "config.yaml"
)

// Report modes for failed checks.
const (
	ReportFull     = "full"
	ReportRedacted = "redacted"
)

// MCP transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
	TransportNone  = "none"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Config struct {
	Tool   ToolConfig   `yaml:"tool" json:"tool"`
	Verify VerifyConfig `yaml:"verify" json:"verify"`
	MCP    MCPConfig    `yaml:"mcp" json:"mcp"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

type ToolConfig struct {
	Binary           string        `yaml:"binary" json:"binary"`
	CheckSubcommand  string        `yaml:"check_subcommand" json:"check_subcommand"`
	SourceExtensions []string      `yaml:"source_extensions" json:"source_extensions"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
}

type VerifyConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	Report       string `yaml:"report" json:"report"`
	ReportDir    string `yaml:"report_dir" json:"report_dir"`
	NotifyClient bool   `yaml:"notify_client" json:"notify_client"`
}

type MCPConfig struct {
	Name      string `yaml:"name" json:"name"`
	Transport string `yaml:"transport" json:"transport"`
	Listen    string `yaml:"listen" json:"listen"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Tool: ToolConfig{
			Binary:           "cargo",
			CheckSubcommand:  "check",
			SourceExtensions: []string{"rs"},
		},
		Verify: VerifyConfig{
			Enabled:      true,
			Report:       ReportFull,
			NotifyClient: true,
		},
		MCP: MCPConfig{
			Name:      "cargo-mcp",
			Transport: TransportHTTP,
			Listen:    "127.0.0.1:0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatJSON,
		},
	}
}

// Load reads path over Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if lvl := strings.TrimSpace(os.Getenv(EnvLogLevel)); lvl != "" {
		cfg.Log.Level = lvl
	}
}

// Write stores cfg at path, creating parent directories.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// ResolvePath picks the config file: explicit, then $CARGO_PROXY_CONFIG, then
// ./.cargo-proxy/config.yaml if it exists, then the home directory.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, dirName, fileName)
		if pathExists(local) {
			return local
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, dirName, fileName)
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Validate returns one message per problem; an empty list means cfg is usable.
func Validate(cfg Config) []string {
	problems := []string{}
	if strings.TrimSpace(cfg.Tool.Binary) == "" {
		problems = append(problems, "tool.binary is empty")
	}
	if strings.TrimSpace(cfg.Tool.CheckSubcommand) == "" {
		problems = append(problems, "tool.check_subcommand is empty")
	}
	if len(cfg.Tool.SourceExtensions) == 0 {
		problems = append(problems, "tool.source_extensions is empty")
	}
	for i, ext := range cfg.Tool.SourceExtensions {
		if strings.TrimLeft(strings.TrimSpace(ext), ".") == "" {
			problems = append(problems, fmt.Sprintf("tool.source_extensions[%d] is empty", i))
		}
	}
	if cfg.Tool.Timeout < 0 {
		problems = append(problems, "tool.timeout must be >= 0")
	}
	switch cfg.Verify.Report {
	case ReportFull, ReportRedacted:
	default:
		problems = append(problems, fmt.Sprintf("verify.report must be %q or %q, got %q", ReportFull, ReportRedacted, cfg.Verify.Report))
	}
	switch cfg.MCP.Transport {
	case TransportHTTP, TransportStdio, TransportNone:
	default:
		problems = append(problems, fmt.Sprintf("mcp.transport must be one of http, stdio, none, got %q", cfg.MCP.Transport))
	}
	if cfg.MCP.Transport != TransportNone && strings.TrimSpace(cfg.MCP.Name) == "" {
		problems = append(problems, "mcp.name is empty")
	}
	if cfg.MCP.Transport == TransportHTTP && strings.TrimSpace(cfg.MCP.Listen) == "" {
		problems = append(problems, "mcp.listen is empty")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case FormatJSON, FormatConsole:
	default:
		problems = append(problems, fmt.Sprintf("log.format must be json or console, got %q", cfg.Log.Format))
	}
	return problems
}
