package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cargo-proxy/internal/cargo"
	"cargo-proxy/internal/render"
)

var (
	checkCwd  string
	checkJSON bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run cargo check once and print the diagnostics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg, checkCwd, logger)
		res, err := a.runner.Run(cmd.Context(), cargo.Invocation{
			Subcommand: cfg.Tool.CheckSubcommand,
			Dir:        a.registry.Resolve(""),
			Structured: true,
		})
		if err != nil {
			return err
		}

		format := formatPlain
		switch {
		case checkJSON:
			format = formatJSON
		case isTerminal(os.Stdout):
			format = formatPretty
		}
		if err := writeResult(cmd.OutOrStdout(), res, format); err != nil {
			return err
		}
		if !res.Success {
			return exitCodeError{code: 1}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkCwd, "cwd", "", "crate directory (default: current directory)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
}

type outputFormat int

const (
	formatPlain outputFormat = iota
	formatPretty
	formatJSON
)

func writeResult(w io.Writer, res *cargo.Result, format outputFormat) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatPretty:
		_, err := fmt.Fprint(w, render.Pretty(res))
		return err
	default:
		_, err := fmt.Fprint(w, render.Plain(res))
		return err
	}
}
