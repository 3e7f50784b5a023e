// Package downstream exposes the two downstream MCP tools, `search` and
// `execute`, wiring transpile -> sandbox -> truncate behind a per-request
// hot-reload check (spec.md §4.5).
//
// Grounded on theRebelliousNerd-browserNerd's internal/mcp/server.go — the
// teacher never runs mcp-go in server mode, so browserNerd supplies the
// NewMCPServer/NewStdioServer/AddTool/ToolHandlerFunc idiom this package
// follows.
package downstream

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mcp-funnel/mcp-funnel/internal/clientpool"
	"github.com/mcp-funnel/mcp-funnel/internal/runtime"
	"github.com/mcp-funnel/mcp-funnel/internal/sandbox"
	"github.com/mcp-funnel/mcp-funnel/internal/transpile"
)

const inputSchema = `{
  "type": "object",
  "properties": {
    "code": {"type": "string"},
    "max_length": {"type": "integer"}
  },
  "required": ["code"]
}`

// Server is the downstream MCP endpoint: exactly two tools, `search` and
// `execute`.
type Server struct {
	rt  *runtime.Manager
	log *clientpool.Logger

	mcpServer *mcpserver.MCPServer
}

// New builds a Server bound to rt. Call Serve to run it over stdio.
func New(rt *runtime.Manager, log *clientpool.Logger, name, version string) *Server {
	s := &Server{
		rt:  rt,
		log: log,
		mcpServer: mcpserver.NewMCPServer(
			name, version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// Serve speaks MCP over stdin/stdout until ctx is canceled or the host
// closes its input stream (spec.md §6).
func (s *Server) Serve(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() {
	schema := []byte(inputSchema)
	s.mcpServer.AddTool(
		mcp.NewToolWithRawSchema("search", "Search the aggregated tool catalog with a script fragment.", schema),
		s.handler(false),
	)
	s.mcpServer.AddTool(
		mcp.NewToolWithRawSchema("execute", "Execute a script fragment with access to every upstream server.", schema),
		s.handler(true),
	)
}

// handler builds the ToolHandlerFunc shared by search and execute; withTools
// selects whether the sandbox binds per-server globals (spec.md §4.4, §9).
func (s *Server) handler(withTools bool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.rt.MaybeReload(ctx)

		handle := s.rt.Acquire()
		defer handle.Release()
		gen := handle.Generation()

		args := req.GetArguments()
		code, _ := args["code"].(string)
		maxLength := maxLengthFrom(args)

		plain, err := transpile.Transpile(code)
		if err != nil {
			return errorResult(err), nil
		}

		sb := sandbox.New(gen.Catalog, gen.Pool)
		result, err := sb.Run(ctx, plain, withTools)
		if err != nil {
			return errorResult(err), nil
		}

		text := Truncate(string(result), maxLength)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(text)},
			IsError: false,
		}, nil
	}
}

func maxLengthFrom(args map[string]any) int {
	v, ok := args["max_length"]
	if !ok {
		return DefaultMaxLength
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return DefaultMaxLength
	}
}
