package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cargo-proxy/internal/config"
	"cargo-proxy/internal/logging"
)

var (
	version = "dev"

	configFlag string
	configPath string
	configErr  error
	cfg        config.Config
	logger     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "cargo-proxy",
	Short: "Agent protocol proxy that keeps Rust code compiling",
	Long: `cargo-proxy sits between a coding agent and its client. It relays the
agent protocol unchanged, runs cargo check when a turn ends after Rust files
were edited, and hands failures back to the agent as a new prompt.

It also serves the cargo commands as MCP tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath = config.ResolvePath(configFlag)
		loaded, err := config.Load(configPath)
		configErr = nil
		if err != nil {
			if cmd.Name() != "doctor" {
				return err
			}
			// doctor reports the load failure against the defaults.
			configErr = err
			loaded = config.Default()
		}
		cfg = loaded
		if cmd.Name() == "doctor" || cmd.Name() == "settings" {
			// These report or repair config problems themselves.
			return nil
		}
		if problems := config.Validate(cfg); len(problems) > 0 {
			return fmt.Errorf("invalid config %s: %s", configPath, strings.Join(problems, "; "))
		}
		l, err := logging.New(cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default: $"+config.EnvConfigPath+", ./.cargo-proxy/config.yaml, ~/.cargo-proxy/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitCodeError ends the process with a status other than 1 and no message.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	rootCmd.SetArgs(resolveArgs(filepath.Base(os.Args[0]), os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		var exit exitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// resolveArgs lets the binary be installed under the name of one of its
// subcommands, for MCP clients that take a bare command.
func resolveArgs(exe string, args []string) []string {
	exe = strings.TrimSuffix(exe, ".exe")
	alias := map[string]string{
		"cargo-mcp":         "mcp",
		"cargo-proxy-mcp":   "mcp",
		"cargo-proxy-check": "check",
	}
	if sub, ok := alias[exe]; ok {
		return append([]string{sub}, args...)
	}
	return args
}
