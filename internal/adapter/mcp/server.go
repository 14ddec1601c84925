// Package mcp exposes the council over the Model Context Protocol so AI
// agents can consult it as a tool. The server speaks SSE over HTTP and
// registers deliberation tools plus skill:// resources.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/skill"
	"github.com/lana-info/llm-council/internal/domain/verdict"
	"github.com/lana-info/llm-council/internal/service"
)

// Deliberator runs a full council deliberation.
type Deliberator interface {
	Deliberate(ctx context.Context, query, tierName string) (*council.Result, error)
}

// Verifier runs a verification deliberation and extracts a verdict.
type Verifier interface {
	Verify(ctx context.Context, query, tierName string, threshold float64) (*verdict.Result, *council.Result, error)
}

// HealthChecker reports router readiness and breaker state.
type HealthChecker interface {
	HealthCheck(ctx context.Context) service.Health
}

// SkillReader provides progressive access to the skill library.
type SkillReader interface {
	List() ([]string, error)
	LoadMetadata(name string) (skill.Metadata, error)
	LoadFull(name string) (skill.Skill, error)
	ListResources(name string) ([]string, error)
	LoadResource(name, resource string) (string, error)
}

// ServerConfig holds the MCP server settings. KeyHashes carries the same
// bcrypt API key hashes the REST API accepts; empty disables auth.
type ServerConfig struct {
	Addr        string
	Name        string
	Version     string
	KeyHashes   []string
	DefaultTier string
}

// ServerDeps holds the dependencies the tools call into. Nil fields are
// tolerated; the corresponding tools report an error result instead.
type ServerDeps struct {
	Deliberator   Deliberator
	Verifier      Verifier
	HealthChecker HealthChecker
	Skills        SkillReader
}

// Server is the MCP server exposing council tools and skill resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
	listener  net.Listener
}

// NewServer creates an MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = "balanced"
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(
			cfg.Name,
			cfg.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, true),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Start begins serving MCP over SSE on the configured address. The
// listener is bound synchronously so bind errors surface here; serving
// happens in a background goroutine until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln

	sse := mcpserver.NewSSEServer(s.mcpServer)
	s.httpSrv = &http.Server{
		Handler:           AuthMiddleware(s.cfg.KeyHashes, sse),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("mcp server error", "error", err)
		}
	}()

	slog.Info("mcp server listening", "addr", ln.Addr().String())
	return nil
}

// Stop gracefully shuts the server down. Calling Stop on a server that
// was never started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
