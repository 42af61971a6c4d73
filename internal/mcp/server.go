package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/vachat/internal/assistant"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes VA benefits search and
// question answering.
type Server struct {
	service *assistant.Service
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server backed by svc. svc.Search serves
// search_benefits; svc.Engine serves ask_benefits.
func NewServer(svc *assistant.Service) *Server {
	s := &Server{service: svc}

	s.mcp = server.NewMCPServer(
		"vachat",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchBenefitsTool, s.handleSearchBenefits)
	s.mcp.AddTool(askBenefitsTool, s.handleAskBenefits)
	s.mcp.AddTool(checkPolicyTool, s.handleCheckPolicy)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
