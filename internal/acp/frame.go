// Package acp reads and writes the newline-delimited JSON-RPC 2.0 stream
// spoken between an agent and its client, and decodes the few messages the
// proxy has to look inside.
package acp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Version is the JSON-RPC protocol version stamped on frames we originate.
const Version = "2.0"

// maxLine bounds a single frame; prompts with embedded resources can be large.
const maxLine = 64 << 20

// ErrLineTooLong is returned when a frame exceeds the reader's limit.
var ErrLineTooLong = errors.New("acp: frame exceeds maximum line length")

// Message is the JSON-RPC envelope. Payloads stay raw until a caller asks for
// a typed view.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (m *Message) hasID() bool {
	return len(m.ID) > 0 && !bytes.Equal(m.ID, []byte("null"))
}

// IsRequest reports whether m is a call expecting a response.
func (m *Message) IsRequest() bool { return m.Method != "" && m.hasID() }

// IsNotification reports whether m is a call without an id.
func (m *Message) IsNotification() bool { return m.Method != "" && !m.hasID() }

// IsResponse reports whether m answers an earlier request.
func (m *Message) IsResponse() bool { return m.Method == "" && m.hasID() }

// IDKey returns a comparable form of a request id. The number 1 and the
// string "1" map to different keys.
func IDKey(id json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, id); err != nil {
		return string(bytes.TrimSpace(id))
	}
	return buf.String()
}

// StringID encodes s as a JSON string id.
func StringID(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// Frame is one line of the stream. Raw is relayed verbatim; Msg is nil when
// the line is not a JSON-RPC object.
type Frame struct {
	Raw []byte
	Msg *Message
}

// Parse decodes a line into a Frame. It never fails; undecodable lines yield
// a Frame with a nil Msg.
func Parse(line []byte) Frame {
	f := Frame{Raw: line}
	var msg Message
	if err := json.Unmarshal(line, &msg); err == nil {
		f.Msg = &msg
	}
	return f
}

// Reader splits a stream into frames.
type Reader struct {
	br *bufio.Reader
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64<<10)}
}

// Next returns the next non-blank frame. A final line without a trailing
// newline is still returned; io.EOF follows it.
func (r *Reader) Next() (Frame, error) {
	for {
		line, err := r.readLine()
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			return Parse(trimmed), nil
		}
		if err != nil {
			return Frame{}, err
		}
	}
}

func (r *Reader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.br.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxLine {
			return nil, ErrLineTooLong
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, err
	}
}

// Writer writes whole frames. It is safe for concurrent use; frames from
// different goroutines never interleave.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRaw writes line followed by a newline.
func (w *Writer) WriteRaw(line []byte) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, bytes.TrimRight(line, "\r\n")...)
	buf = append(buf, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.w.Write(buf)
	return err
}

// WriteMessage encodes msg as one frame, filling in the protocol version.
func (w *Writer) WriteMessage(msg *Message) error {
	if msg.JSONRPC == "" {
		msg.JSONRPC = Version
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return w.WriteRaw(b)
}
