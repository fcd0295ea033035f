// Package mcpbridge exposes daemon skills as MCP tools so agents can drive
// the runner over stdio.
package mcpbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lydakis/dojutsu/internal/ipc"
	"github.com/lydakis/dojutsu/internal/logging"
	"github.com/lydakis/dojutsu/internal/render"
	"github.com/lydakis/dojutsu/internal/skills"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps a skills.Service as an MCP server.
type Server struct {
	svc       *skills.Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates the bridge and registers its tools.
func NewServer(svc *skills.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		svc:       svc,
		logger:    logger,
		mcpServer: server.NewMCPServer("dojutsu", version),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP on stdin/stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	pipelineParams := []mcp.ToolOption{
		mcp.WithString("task", mcp.Required(), mcp.Description("What to build")),
		mcp.WithString("provider", mcp.Description("LLM provider: "+strings.Join(skills.Providers(), ", "))),
		mcp.WithString("model", mcp.Description("Provider model; the daemon picks a default when empty")),
	}

	s.mcpServer.AddTool(mcp.NewTool("dojutsu_run", append([]mcp.ToolOption{
		mcp.WithDescription("Run the full code-generation pipeline and return every stage plus the generated code."),
	}, pipelineParams...)...), s.handleRun)

	s.mcpServer.AddTool(mcp.NewTool("dojutsu_byakugan", append([]mcp.ToolOption{
		mcp.WithDescription("Run only the structural analysis stage for a task."),
	}, pipelineParams...)...), s.handleByakugan)

	s.mcpServer.AddTool(mcp.NewTool("dojutsu_call",
		mcp.WithDescription("Invoke any daemon function with positional string arguments and return the raw JSON response."),
		mcp.WithString("function", mcp.Required(), mcp.Description("Daemon function name")),
		mcp.WithArray("args", mcp.Description("Positional arguments"), mcp.WithStringItems()),
	), s.handleCall)
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := request.RequireString("task")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Run(ctx, task, optionsFrom(request))
	if err != nil {
		return s.toolError("run", err), nil
	}

	var out strings.Builder
	if err := render.Text(&out, res, render.Options{}); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out.String()), nil
}

func (s *Server) handleByakugan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := request.RequireString("task")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	analysis, err := s.svc.Byakugan(ctx, task, optionsFrom(request))
	if err != nil {
		return s.toolError("byakugan", err), nil
	}
	return mcp.NewToolResultText(analysis.Text), nil
}

func (s *Server) handleCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	function, err := request.RequireString("function")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetStringSlice("args", nil)

	res, err := s.svc.Call(ctx, function, args)
	if err != nil {
		return s.toolError(function, err), nil
	}
	return mcp.NewToolResultText(string(res.Raw())), nil
}

func optionsFrom(request mcp.CallToolRequest) skills.Options {
	return skills.Options{
		Provider: request.GetString("provider", ""),
		Model:    request.GetString("model", ""),
	}
}

// toolError turns a call failure into an MCP error result that names the
// failed step, so agents can tell an unreachable daemon from a failed skill.
func (s *Server) toolError(function string, err error) *mcp.CallToolResult {
	s.logger.Warn("daemon call failed", "function", function, "error", err)

	var appErr *ipc.ApplicationError
	switch {
	case errors.As(err, &appErr):
		return mcp.NewToolResultError(fmt.Sprintf("daemon error: %s", appErr.Message))
	case errors.Is(err, skills.ErrUsage):
		return mcp.NewToolResultError(err.Error())
	case ipc.KindOf(err) != 0:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", ipc.KindOf(err), err))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
