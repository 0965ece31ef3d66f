// Package mcp exposes the gated operations and the plugin tool catalog
// over the Model Context Protocol on stdio, so external agents reach the
// same sandbox the chat surface uses.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/opsward/opsward/internal/cmdgate"
	"github.com/opsward/opsward/internal/pathgate"
	"github.com/opsward/opsward/internal/tools"
)

// Config carries the already-assembled sandbox pieces.
type Config struct {
	Commands *cmdgate.Gate
	Paths    *pathgate.Gate
	Catalog  *tools.Catalog
	Version  string
}

// Server wraps the MCP SDK server around the sandbox.
type Server struct {
	mcpServer *mcpsdk.Server
	commands  *cmdgate.Gate
	paths     *pathgate.Gate
	catalog   *tools.Catalog
	log       *zap.Logger
}

// New creates the server and registers its tools.
func New(cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		commands: cfg.Commands,
		paths:    cfg.Paths,
		catalog:  cfg.Catalog,
		log:      log.Named("mcp"),
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: "opsward", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves on stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "opsward_exec",
		Description: "Execute an allowlisted host inspection command. Blocked invocations return the policy reason.",
	}, s.handleExec)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "opsward_read",
		Description: "Read a text file from an allowed directory. Output is capped and secret-shaped content is redacted.",
	}, s.handleRead)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "opsward_check_path",
		Description: "Check whether a path would be readable without opening it (dry run).",
	}, s.handleCheckPath)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "opsward_tools",
		Description: "List the assistant's tool catalog, including plugin-contributed tools.",
	}, s.handleTools)
}
