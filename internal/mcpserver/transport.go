package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Path is where the HTTP transport mounts the MCP endpoint.
const Path = "/mcp"

// ServeStdio serves server on the process's stdin and stdout until the client
// disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	session, err := server.Connect(ctx, mcp.NewStdioTransport(), nil)
	if err != nil {
		return fmt.Errorf("connecting stdio transport: %w", err)
	}
	return session.Wait()
}

// HTTPServer serves one MCP server over streamable HTTP on a local listener.
type HTTPServer struct {
	ln  net.Listener
	srv *http.Server
}

// ListenHTTP binds addr. Port 0 picks a free port; URL reports the result.
func ListenHTTP(addr string, server *mcp.Server) (*HTTPServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	mux := http.NewServeMux()
	mux.Handle(Path, handler)
	return &HTTPServer{
		ln: ln,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// URL is the endpoint clients connect to.
func (h *HTTPServer) URL() string {
	return "http://" + h.ln.Addr().String() + Path
}

// Serve blocks until Shutdown is called.
func (h *HTTPServer) Serve() error {
	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
