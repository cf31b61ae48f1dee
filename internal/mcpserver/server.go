// Package mcpserver exposes adreel's generation steps as MCP tools, over stdio
// or streamable HTTP.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/workflow"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server serves the adreel tools. Generation calls are stateless: each tool
// call carries its own images and script.
type Server struct {
	gen       genclient.Generator
	enc       workflow.Encoder
	exportDir string
	now       func() time.Time

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	stdServer  *http.Server
	addr       string
	mu         sync.Mutex
}

// New creates a server. exportDir receives concepts saved by the save-concept tool.
func New(gen genclient.Generator, enc workflow.Encoder, exportDir string) *Server {
	s := &Server{
		gen:       gen,
		enc:       enc,
		exportDir: exportDir,
		now:       time.Now,
	}
	s.mcpServer = server.NewMCPServer(
		"adreel",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

// ServeStdio serves MCP over in and out until ctx is cancelled or in closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	logger.Debug("Serving MCP over stdio")
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

// Start serves MCP over streamable HTTP at addr ("127.0.0.1:0" picks a free port).
// It returns the bound port once the listener is open.
func (s *Server) Start(ctx context.Context, addr string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return 0, fmt.Errorf("server already started")
	}
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	tcpAddr := listener.Addr().(*net.TCPAddr)
	s.addr = net.JoinHostPort("localhost", fmt.Sprint(tcpAddr.Port))

	// Pass the listener directly to avoid a TOCTOU race on the port.
	mux := http.NewServeMux()
	mcpHandler := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	)
	mux.Handle("/mcp", mcpHandler)

	s.stdServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = mcpHandler

	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP server error: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s", listener.Addr())
	return tcpAddr.Port, nil
}

// Stop shuts the HTTP server down. It is a no-op when not started.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil
	}

	logger.Debug("Stopping MCP server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.stdServer.Shutdown(ctx); err != nil {
		logger.Warn("Error stopping MCP server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.httpServer = nil
	s.stdServer = nil
	logger.Debug("MCP server stopped")
	return nil
}

// URL returns the HTTP URL of the MCP endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "http://" + s.addr + "/mcp"
}
