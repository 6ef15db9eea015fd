package acp

import (
	"encoding/json"
	"fmt"
)

// Method names the proxy inspects or originates.
const (
	MethodSessionNew    = "session/new"
	MethodSessionPrompt = "session/prompt"
	MethodSessionUpdate = "session/update"
)

// StopReason says why an agent ended a prompt turn.
type StopReason string

const (
	StopEndTurn         StopReason = "end_turn"
	StopMaxTokens       StopReason = "max_tokens"
	StopMaxTurnRequests StopReason = "max_turn_requests"
	StopRefusal         StopReason = "refusal"
	StopCancelled       StopReason = "cancelled"
)

// Session update kinds.
const (
	UpdateToolCall          = "tool_call"
	UpdateToolCallUpdate    = "tool_call_update"
	UpdateAgentMessageChunk = "agent_message_chunk"
)

// ToolCallStatus is the lifecycle state of a tool call.
type ToolCallStatus string

const (
	ToolCallPending    ToolCallStatus = "pending"
	ToolCallInProgress ToolCallStatus = "in_progress"
	ToolCallCompleted  ToolCallStatus = "completed"
	ToolCallFailed     ToolCallStatus = "failed"
)

// ContentBlock is a text content block. Other block types pass through the
// proxy without being decoded.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ToolCallLocation is a file touched by a tool call.
type ToolCallLocation struct {
	Path string `json:"path"`
	Line *int   `json:"line,omitempty"`
}

// SessionUpdate is the body of a session/update notification.
type SessionUpdate struct {
	SessionUpdate string             `json:"sessionUpdate"`
	ToolCallID    string             `json:"toolCallId,omitempty"`
	Status        ToolCallStatus     `json:"status,omitempty"`
	Locations     []ToolCallLocation `json:"locations,omitempty"`
	Content       *ContentBlock      `json:"content,omitempty"`
}

// SessionUpdateParams are the params of a session/update notification.
type SessionUpdateParams struct {
	SessionID string        `json:"sessionId"`
	Update    SessionUpdate `json:"update"`
}

// ToolCallUpdate is a status change for one tool call, as seen by the
// turn observer.
type ToolCallUpdate struct {
	SessionID  string
	ToolCallID string
	Status     ToolCallStatus
	Locations  []ToolCallLocation
}

// ParseToolCallUpdate decodes session/update params and reports whether they
// describe a tool call. A tool call may be announced already completed, so
// both tool_call and tool_call_update qualify.
func ParseToolCallUpdate(params json.RawMessage) (ToolCallUpdate, bool) {
	var p SessionUpdateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return ToolCallUpdate{}, false
	}
	switch p.Update.SessionUpdate {
	case UpdateToolCall, UpdateToolCallUpdate:
	default:
		return ToolCallUpdate{}, false
	}
	return ToolCallUpdate{
		SessionID:  p.SessionID,
		ToolCallID: p.Update.ToolCallID,
		Status:     p.Update.Status,
		Locations:  p.Update.Locations,
	}, true
}

// PromptParams are the params of a session/prompt request.
type PromptParams struct {
	SessionID string         `json:"sessionId"`
	Prompt    []ContentBlock `json:"prompt"`
}

// PromptResponse is the result of a session/prompt request.
type PromptResponse struct {
	StopReason StopReason `json:"stopReason"`
}

// ParseStopReason extracts the stop reason from a session/prompt result.
func ParseStopReason(result json.RawMessage) (StopReason, error) {
	var resp PromptResponse
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("decoding prompt response: %w", err)
	}
	return resp.StopReason, nil
}

// SessionIDOf extracts sessionId from any session-scoped params.
func SessionIDOf(params json.RawMessage) string {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	_ = json.Unmarshal(params, &p)
	return p.SessionID
}

// MCPServerHTTP is an HTTP MCP server entry for session/new.
type MCPServerHTTP struct {
	Type    string       `json:"type"`
	Name    string       `json:"name"`
	URL     string       `json:"url"`
	Headers []HTTPHeader `json:"headers"`
}

// HTTPHeader is a header sent to an HTTP MCP server.
type HTTPHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MCPServerStdio is a stdio MCP server entry for session/new.
type MCPServerStdio struct {
	Name    string        `json:"name"`
	Command string        `json:"command"`
	Args    []string      `json:"args"`
	Env     []EnvVariable `json:"env"`
}

// EnvVariable is one environment entry for a stdio MCP server.
type EnvVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AddMCPServer appends server to the mcpServers list of session/new params
// and returns the rewritten params. Unknown fields are kept.
func AddMCPServer(params json.RawMessage, server any) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &fields); err != nil {
			return nil, fmt.Errorf("decoding session/new params: %w", err)
		}
	}
	var servers []json.RawMessage
	if raw, ok := fields["mcpServers"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("decoding mcpServers: %w", err)
		}
	}
	entry, err := json.Marshal(server)
	if err != nil {
		return nil, fmt.Errorf("encoding mcp server entry: %w", err)
	}
	servers = append(servers, entry)
	if fields["mcpServers"], err = json.Marshal(servers); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// NewPrompt builds a session/prompt request carrying a single text block.
func NewPrompt(id, sessionID, text string) (*Message, error) {
	params, err := json.Marshal(PromptParams{
		SessionID: sessionID,
		Prompt:    []ContentBlock{TextBlock(text)},
	})
	if err != nil {
		return nil, err
	}
	return &Message{
		JSONRPC: Version,
		ID:      StringID(id),
		Method:  MethodSessionPrompt,
		Params:  params,
	}, nil
}

// NewAgentMessageChunk builds a session/update notification showing text to
// the user as if the agent had written it.
func NewAgentMessageChunk(sessionID, text string) (*Message, error) {
	block := TextBlock(text)
	params, err := json.Marshal(SessionUpdateParams{
		SessionID: sessionID,
		Update: SessionUpdate{
			SessionUpdate: UpdateAgentMessageChunk,
			Content:       &block,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Message{
		JSONRPC: Version,
		Method:  MethodSessionUpdate,
		Params:  params,
	}, nil
}
