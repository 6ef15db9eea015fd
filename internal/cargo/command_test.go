package cargo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess isn't a real test. It stands in for the cargo binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if path := os.Getenv("MOCK_ARGS_FILE"); path != "" {
		wd, _ := os.Getwd()
		_ = os.WriteFile(path, []byte(wd+"\n"+strings.Join(args, " ")), 0o644)
	}
	if d := os.Getenv("MOCK_SLEEP"); d != "" {
		dur, _ := time.ParseDuration(d)
		time.Sleep(dur)
	}
	fmt.Fprint(os.Stdout, os.Getenv("MOCK_STDOUT"))
	fmt.Fprint(os.Stderr, os.Getenv("MOCK_STDERR"))
	code, _ := strconv.Atoi(os.Getenv("MOCK_EXIT"))
	os.Exit(code)
}

func helperRunner(t *testing.T, env ...string) *Runner {
	t.Helper()
	return &Runner{
		Binary:     os.Args[0],
		PrefixArgs: []string{"-test.run=TestHelperProcess", "--"},
		Env:        append(append(os.Environ(), "GO_WANT_HELPER_PROCESS=1"), env...),
	}
}

func TestInvocationCommand(t *testing.T) {
	tests := []struct {
		inv  Invocation
		want string
	}{
		{Invocation{Subcommand: "check", Structured: true}, "cargo check --message-format json"},
		{Invocation{Subcommand: "help", Args: []string{"build"}}, "cargo help build"},
		{Invocation{Subcommand: "add", Args: []string{"serde", "--features", "derive"}}, "cargo add serde --features derive"},
		{Invocation{Subcommand: "test", Args: []string{"parse_"}, Structured: true}, "cargo test parse_ --message-format json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.inv.Command())
	}
}

func TestInvocationCommandFor(t *testing.T) {
	inv := Invocation{Subcommand: "check", Structured: true}
	assert.Equal(t, "cross check --message-format json", inv.CommandFor("cross"))
	assert.Equal(t, "cargo check --message-format json", inv.CommandFor("/opt/rust/bin/cargo"))
	assert.Equal(t, inv.Command(), inv.CommandFor(DefaultBinary))
}

func TestRunner_Run_FailedBuild(t *testing.T) {
	stdout := strings.Join([]string{
		`{"reason":"compiler-artifact","package_id":"dep 1.0.0"}`,
		`{"reason":"compiler-message","package_id":"demo 0.1.0","message":{"rendered":"error[E0425]: cannot find value ` + "`error`" + ` in this scope\n"}}`,
		`{"reason":"build-finished","success":false}`,
	}, "\n")
	r := helperRunner(t,
		"MOCK_STDOUT="+stdout,
		"MOCK_STDERR=Blocking waiting for file lock on package cache\n    Checking demo v0.1.0\nerror: could not compile `demo`",
		"MOCK_EXIT=101",
	)

	res, err := r.Run(context.Background(), Invocation{Subcommand: "check", Structured: true})
	require.NoError(t, err)

	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 101, *res.ExitCode)
	assert.False(t, res.Success)
	assert.False(t, res.Passed())
	assert.Equal(t, filepath.Base(os.Args[0])+" check --message-format json", res.Command)
	assert.Equal(t, "    Checking demo v0.1.0\nerror: could not compile `demo`", res.Stderr)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "demo 0.1.0", res.Messages[0].PackageID)
	assert.Equal(t, 1, res.ErrorCount())
}

func TestRunner_Run_SuccessPassesArgsAndDir(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(t.TempDir(), "args")
	r := helperRunner(t,
		"MOCK_ARGS_FILE="+argsFile,
		`MOCK_STDOUT={"reason":"build-finished","success":true}`,
		"MOCK_EXIT=0",
	)

	res, err := r.Run(context.Background(), Invocation{
		Subcommand: "test",
		Args:       []string{"parse_"},
		Dir:        dir,
		Structured: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Passed())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.SplitN(string(data), "\n", 2)
	require.Len(t, lines, 2)
	wantDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotDir, err := filepath.EvalSymlinks(lines[0])
	require.NoError(t, err)
	assert.Equal(t, wantDir, gotDir)
	assert.Equal(t, "test parse_ --message-format json", lines[1])
}

func TestRunner_Run_PlainOutputNonZeroIsNotAnError(t *testing.T) {
	r := helperRunner(t, "MOCK_STDOUT=not json", "MOCK_EXIT=1")

	res, err := r.Run(context.Background(), Invocation{Subcommand: "remove", Args: []string{"serde"}})
	require.NoError(t, err)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 1, *res.ExitCode)
	assert.False(t, res.Success)
	assert.Empty(t, res.Messages)
	assert.NotNil(t, res.Messages)
}

func TestRunner_Run_LaunchError(t *testing.T) {
	r := &Runner{Binary: filepath.Join(t.TempDir(), "no-such-cargo")}

	res, err := r.Run(context.Background(), Invocation{Subcommand: "check", Structured: true})
	require.Error(t, err)
	assert.Nil(t, res)

	var launchErr *LaunchError
	require.True(t, errors.As(err, &launchErr))
	assert.Equal(t, "no-such-cargo check --message-format json", launchErr.Command)
}

func TestRunner_Run_MissingFromPath(t *testing.T) {
	r := &Runner{Binary: "cargo-proxy-definitely-not-installed"}

	_, err := r.Run(context.Background(), Invocation{Subcommand: "check"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestRunner_Run_TimeoutLeavesExitCodeEmpty(t *testing.T) {
	r := helperRunner(t, "MOCK_SLEEP=10s")
	r.Timeout = 200 * time.Millisecond

	res, err := r.Run(context.Background(), Invocation{Subcommand: "check", Structured: true})
	require.NoError(t, err)
	assert.Nil(t, res.ExitCode)
	assert.False(t, res.Success)
	assert.False(t, res.Passed())
}
