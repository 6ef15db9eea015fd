package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cargo-proxy/internal/acp"
	"cargo-proxy/internal/cargo"
	"cargo-proxy/internal/dirty"
	"cargo-proxy/internal/render"
	"cargo-proxy/internal/workdir"
)

// Report modes.
const (
	ReportFull     = "full"
	ReportRedacted = "redacted"
)

const followUpBuffer = 16

// Checker runs one cargo invocation. *cargo.Runner implements it.
type Checker interface {
	Run(ctx context.Context, inv cargo.Invocation) (*cargo.Result, error)
}

// FollowUp is a failed check ready to be sent to the agent.
type FollowUp struct {
	ID        string
	SessionID string
	// Prompt is the text of the injected prompt turn.
	Prompt string
	// Notice, when set, is shown to the user as an agent message.
	Notice string
	Result *cargo.Result
}

// Options configures a Trigger.
type Options struct {
	// Subcommand defaults to cargo.CheckSubcommand.
	Subcommand   string
	Report       string
	ReportDir    string
	NotifyClient bool
}

// Trigger runs a check when a turn ends after a relevant edit.
type Trigger struct {
	checker  Checker
	tracker  *dirty.Tracker
	registry *workdir.Registry
	opts     Options
	log      *zap.Logger

	out chan FollowUp
	wg  sync.WaitGroup
}

// NewTrigger wires a Trigger. A nil log discards output.
func NewTrigger(checker Checker, tracker *dirty.Tracker, registry *workdir.Registry, opts Options, log *zap.Logger) *Trigger {
	if opts.Subcommand == "" {
		opts.Subcommand = cargo.CheckSubcommand
	}
	if opts.Report == "" {
		opts.Report = ReportFull
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Trigger{
		checker:  checker,
		tracker:  tracker,
		registry: registry,
		opts:     opts,
		log:      log,
		out:      make(chan FollowUp, followUpBuffer),
	}
}

// FollowUps delivers failed checks. The channel is never closed.
func (t *Trigger) FollowUps() <-chan FollowUp {
	return t.out
}

// TurnEnded is called after a prompt response has been delivered. Only an
// end_turn stop consults the dirty flag; the check itself runs on its own
// goroutine and is not cancelled with ctx. ctx bounds only the hand-off of
// the follow-up.
func (t *Trigger) TurnEnded(ctx context.Context, sessionID string, stop acp.StopReason) {
	if stop != acp.StopEndTurn {
		return
	}
	if !t.tracker.TakeAndClear() {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fu, err := t.Check(context.WithoutCancel(ctx), sessionID)
		if err != nil {
			t.log.Error("check could not run", zap.String("session", sessionID), zap.Error(err))
			return
		}
		if fu == nil {
			return
		}
		select {
		case t.out <- *fu:
		case <-ctx.Done():
			t.log.Warn("dropping follow-up on shutdown", zap.String("id", fu.ID))
		}
	}()
}

// Wait blocks until every check started by TurnEnded has finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}

// Check runs the check in the registry directory and returns a FollowUp when
// it did not exit 0. A nil FollowUp and nil error means the build is healthy.
func (t *Trigger) Check(ctx context.Context, sessionID string) (*FollowUp, error) {
	inv := cargo.Invocation{
		Subcommand: t.opts.Subcommand,
		Dir:        t.registry.Resolve(""),
		Structured: true,
	}
	start := time.Now()
	res, err := t.checker.Run(ctx, inv)
	if err != nil {
		return nil, err
	}
	t.log.Info("check finished",
		zap.String("session", sessionID),
		zap.String("command", res.Command),
		zap.String("dir", inv.Dir),
		zap.String("exit_code", render.ExitCode(res.ExitCode)),
		zap.Duration("elapsed", time.Since(start)))
	if res.Passed() {
		return nil, nil
	}

	fu := &FollowUp{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Result:    res,
	}
	switch t.opts.Report {
	case ReportRedacted:
		fu.Prompt = redactedPrompt(res)
		if t.opts.NotifyClient {
			fu.Notice = render.Plain(res)
		}
		if t.opts.ReportDir != "" {
			if err := writeReport(t.opts.ReportDir, fu.ID, res); err != nil {
				t.log.Warn("writing check report", zap.String("id", fu.ID), zap.Error(err))
			}
		}
	default:
		prompt, err := fullPrompt(res)
		if err != nil {
			return nil, err
		}
		fu.Prompt = prompt
		if t.opts.NotifyClient {
			fu.Notice = "cargo-proxy: " + render.Summary(res) + "\n"
		}
	}
	return fu, nil
}

func fullPrompt(res *cargo.Result) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return fmt.Sprintf("`%s` failed after your last changes. Fix the problems reported below.\n\n```json\n%s\n```\n",
		res.Command, data), nil
}

func redactedPrompt(res *cargo.Result) string {
	return fmt.Sprintf("`%s` failed after your last changes (exit code %s, %d errors). Call the cargo_check tool to see the diagnostics, then fix them.\n",
		res.Command, render.ExitCode(res.ExitCode), res.ErrorCount())
}

func writeReport(dir, id string, res *cargo.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644)
}
