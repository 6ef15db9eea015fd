// Package proxy relays the agent protocol between a client and an agent
// process, feeding tool-call updates and turn completions to the verifier
// and injecting its follow-up prompts.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cargo-proxy/internal/acp"
	"cargo-proxy/internal/verify"
)

// IDPrefix marks request ids the proxy originates.
const IDPrefix = "cargo-proxy/"

var errAgentExited = errors.New("agent stream closed")

// Stream is one side of the proxy. Readers and writers that also implement
// io.Closer are closed on shutdown.
type Stream struct {
	Reader io.Reader
	Writer io.Writer
}

// Observer receives tool-call updates flowing from the agent.
type Observer interface {
	Observe(acp.ToolCallUpdate) bool
}

// Trigger receives turn completions and produces follow-ups.
type Trigger interface {
	TurnEnded(ctx context.Context, sessionID string, stop acp.StopReason)
	FollowUps() <-chan verify.FollowUp
	Wait()
}

// Options configures a Proxy.
type Options struct {
	// MCPServer is appended to the mcpServers of every session/new request.
	// Nil disables injection.
	MCPServer any
}

// Proxy is a bidirectional relay. Create one per agent connection.
type Proxy struct {
	observer Observer
	trigger  Trigger
	opts     Options
	log      *zap.Logger

	mu       sync.Mutex
	pending  map[string]string // client prompt id -> session
	injected map[string]string // proxy prompt id -> session

	// agentClosed is set once the agent's input has been closed after client
	// EOF. Follow-ups produced after that point have nowhere to go.
	agentClosed atomic.Bool
}

// New returns a Proxy. observer and trigger may be nil, which turns the
// proxy into a plain relay.
func New(observer Observer, trigger Trigger, opts Options, log *zap.Logger) *Proxy {
	if log == nil {
		log = zap.NewNop()
	}
	return &Proxy{
		observer: observer,
		trigger:  trigger,
		opts:     opts,
		log:      log,
		pending:  make(map[string]string),
		injected: make(map[string]string),
	}
}

// Run relays until the agent closes its output or a write fails. When the
// client closes its side, the agent's input is closed and Run keeps relaying
// until the agent finishes. Checks still in flight are waited for.
func (p *Proxy) Run(ctx context.Context, client, agent Stream) error {
	g, ctx := errgroup.WithContext(ctx)
	toClient := acp.NewWriter(client.Writer)
	toAgent := acp.NewWriter(agent.Writer)

	g.Go(func() error {
		<-ctx.Done()
		closeIfCloser(client.Reader)
		closeIfCloser(agent.Reader)
		return nil
	})
	g.Go(func() error {
		err := p.pumpClient(ctx, acp.NewReader(client.Reader), toAgent)
		p.agentClosed.Store(true)
		closeIfCloser(agent.Writer)
		return err
	})
	g.Go(func() error {
		return p.pumpAgent(ctx, acp.NewReader(agent.Reader), toClient)
	})
	g.Go(func() error {
		return p.writeFollowUps(ctx, toAgent, toClient)
	})

	err := g.Wait()
	if p.trigger != nil {
		p.trigger.Wait()
	}
	if errors.Is(err, errAgentExited) {
		return nil
	}
	return err
}

func (p *Proxy) pumpClient(ctx context.Context, r *acp.Reader, toAgent *acp.Writer) error {
	for {
		f, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				p.log.Debug("client stream closed")
				return nil
			}
			return fmt.Errorf("reading client: %w", err)
		}
		if err := p.fromClient(f, toAgent); err != nil {
			return fmt.Errorf("writing to agent: %w", err)
		}
	}
}

func (p *Proxy) fromClient(f acp.Frame, toAgent *acp.Writer) error {
	msg := f.Msg
	if msg == nil {
		p.log.Debug("relaying undecodable client frame", zap.Int("bytes", len(f.Raw)))
		return toAgent.WriteRaw(f.Raw)
	}
	if !msg.IsRequest() {
		return toAgent.WriteRaw(f.Raw)
	}
	switch msg.Method {
	case acp.MethodSessionPrompt:
		p.mu.Lock()
		p.pending[acp.IDKey(msg.ID)] = acp.SessionIDOf(msg.Params)
		p.mu.Unlock()
	case acp.MethodSessionNew:
		if p.opts.MCPServer == nil {
			break
		}
		params, err := acp.AddMCPServer(msg.Params, p.opts.MCPServer)
		if err != nil {
			p.log.Warn("session/new left unchanged", zap.Error(err))
			break
		}
		rewritten := *msg
		rewritten.Params = params
		return toAgent.WriteMessage(&rewritten)
	}
	return toAgent.WriteRaw(f.Raw)
}

func (p *Proxy) pumpAgent(ctx context.Context, r *acp.Reader, toClient *acp.Writer) error {
	for {
		f, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return errAgentExited
			}
			return fmt.Errorf("reading agent: %w", err)
		}
		if err := p.fromAgent(ctx, f, toClient); err != nil {
			return fmt.Errorf("writing to client: %w", err)
		}
	}
}

func (p *Proxy) fromAgent(ctx context.Context, f acp.Frame, toClient *acp.Writer) error {
	msg := f.Msg
	switch {
	case msg == nil:
		p.log.Debug("relaying undecodable agent frame", zap.Int("bytes", len(f.Raw)))
	case msg.IsNotification() && msg.Method == acp.MethodSessionUpdate:
		if u, ok := acp.ParseToolCallUpdate(msg.Params); ok && p.observer != nil {
			p.observer.Observe(u)
		}
	case msg.IsResponse():
		key := acp.IDKey(msg.ID)
		p.mu.Lock()
		session, ours := p.injected[key]
		if ours {
			delete(p.injected, key)
		}
		p.mu.Unlock()
		if ours {
			p.turnEnded(ctx, session, msg)
			return nil
		}

		if err := toClient.WriteRaw(f.Raw); err != nil {
			return err
		}
		p.mu.Lock()
		session, tracked := p.pending[key]
		delete(p.pending, key)
		p.mu.Unlock()
		if tracked {
			p.turnEnded(ctx, session, msg)
		}
		return nil
	}
	return toClient.WriteRaw(f.Raw)
}

func (p *Proxy) turnEnded(ctx context.Context, session string, msg *acp.Message) {
	if msg.Error != nil {
		p.log.Debug("prompt failed", zap.String("session", session), zap.Error(msg.Error))
		return
	}
	stop, err := acp.ParseStopReason(msg.Result)
	if err != nil {
		p.log.Debug("prompt response without stop reason", zap.String("session", session), zap.Error(err))
		return
	}
	if p.trigger != nil {
		p.trigger.TurnEnded(ctx, session, stop)
	}
}

func (p *Proxy) writeFollowUps(ctx context.Context, toAgent, toClient *acp.Writer) error {
	if p.trigger == nil {
		<-ctx.Done()
		return nil
	}
	followUps := p.trigger.FollowUps()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fu := <-followUps:
			if err := p.inject(fu, toAgent, toClient); err != nil {
				return err
			}
		}
	}
}

func (p *Proxy) inject(fu verify.FollowUp, toAgent, toClient *acp.Writer) error {
	if p.agentClosed.Load() {
		p.log.Warn("agent input closed, dropping follow-up",
			zap.String("id", fu.ID), zap.String("session", fu.SessionID))
		return nil
	}
	if fu.Notice != "" {
		notice, err := acp.NewAgentMessageChunk(fu.SessionID, fu.Notice)
		if err != nil {
			return err
		}
		if err := toClient.WriteMessage(notice); err != nil {
			return fmt.Errorf("writing notice to client: %w", err)
		}
	}

	id := IDPrefix + fu.ID
	prompt, err := acp.NewPrompt(id, fu.SessionID, fu.Prompt)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.injected[acp.IDKey(prompt.ID)] = fu.SessionID
	p.mu.Unlock()

	p.log.Info("injecting follow-up prompt", zap.String("id", id), zap.String("session", fu.SessionID))
	if err := toAgent.WriteMessage(prompt); err != nil {
		if p.agentClosed.Load() {
			p.log.Warn("agent input closed, dropping follow-up", zap.String("id", id), zap.Error(err))
			return nil
		}
		return fmt.Errorf("writing follow-up to agent: %w", err)
	}
	return nil
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}
