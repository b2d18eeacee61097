// Package mcp provides the termserv MCP server, registering the
// terminal tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termserv/termserv"
	"github.com/termserv/termserv/internal/config"
	"github.com/termserv/termserv/internal/dispatch"
	"github.com/termserv/termserv/internal/history"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	disp  *dispatch.Dispatcher
	store history.Store
	log   *slog.Logger
}

// NewServer creates an MCP server with the terminal tools registered
// and the configured file resources published. workspace is where
// commands run and relative resource paths resolve; a client that
// advertises roots moves it during initialization.
func NewServer(cfg *config.Config, disp *dispatch.Dispatcher, store history.Store, workspace string, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	logger := so.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if so.validate != nil {
		disp.Runner.Validate = so.validate
	}

	h := &handler{
		disp:  disp,
		store: store,
		log:   logger.With("component", "mcp"),
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools:     &mcp.ToolCapabilities{ListChanged: false},
			Resources: &mcp.ResourceCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "termserv", Version: termserv.Version}, mcpOpts)

	registerDispatchTools(s, h)
	registerHistoryTools(s, h)
	registerResources(s, h, cfg, workspace)

	return s
}

// ServerOption configures the termserv MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger   *slog.Logger
	validate func(command string) error
}

// WithLogger attaches a structured logger to the server's handlers.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// WithCommandValidator installs a hook consulted before every command
// spawn. A non-nil error refuses the command without side effects.
func WithCommandValidator(v func(command string) error) ServerOption {
	return func(o *serverOptions) {
		o.validate = v
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and moves
// the runner's working directory to the first file root, picking up
// that directory's .termserv on the way. This is called during session
// initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	cfg, err := config.Load(workspace)
	if err != nil {
		return
	}

	r := h.disp.Runner
	r.Dir = workspace
	r.Shell = cfg.Shell()
	r.Timeout = cfg.Timeout()
	r.KillDelay = cfg.KillDelay()
	r.MaxOutput = cfg.MaxOutputBytes()

	h.log.Debug("workspace pinned from client roots", "dir", workspace)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
