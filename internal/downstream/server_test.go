package downstream

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/mcp-funnel/mcp-funnel/internal/clientpool"
	"github.com/mcp-funnel/mcp-funnel/internal/runtime"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	log := clientpool.NewLogger(clientpool.LevelError)
	rt, err := runtime.NewManager(context.Background(),
		filepath.Join(dir, "user.toml"), filepath.Join(dir, "project.toml"), log)
	require.NoError(t, err)
	return New(rt, log, "mcp-funnel-test", "0.0.0-test")
}

func callTool(t *testing.T, s *Server, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	var res *mcp.CallToolResult
	var err error
	switch tool {
	case "search":
		res, err = s.handler(false)(context.Background(), req)
	case "execute":
		res, err = s.handler(true)(context.Background(), req)
	}
	require.NoError(t, err)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestSearchOverEmptyCatalog(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "search", map[string]any{
		"code": "return tools.filter(t => t.name.includes(\"nothing\"));",
	})
	require.False(t, res.IsError)
	require.JSONEq(t, "[]", textOf(t, res))
}

func TestSearchRejectsUnknownServerGlobalReference(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "search", map[string]any{
		"code": "return demo.take_screenshot({});",
	})
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "kind=SandboxError.Runtime")
}

func TestExecuteSyntaxErrorIsTaggedAsSyntaxKind(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "execute", map[string]any{
		"code": "const x: string = ;",
	})
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "kind=SandboxError.Syntax")
}

func TestExecuteRespectsMaxLength(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "execute", map[string]any{
		"code":       "return \"x\".repeat(200000);",
		"max_length": float64(1000),
	})
	require.False(t, res.IsError)
	require.LessOrEqual(t, len(textOf(t, res)), 1000+len(elisionMarker))
}

func TestHandlerCallsMaybeReloadWithoutError(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user.toml")
	projectPath := filepath.Join(dir, "project.toml")
	log := clientpool.NewLogger(clientpool.LevelError)

	rt, err := runtime.NewManager(context.Background(), userPath, projectPath, log)
	require.NoError(t, err)
	s := New(rt, log, "mcp-funnel-test", "0.0.0-test")

	res := callTool(t, s, "search", map[string]any{"code": "return tools.length;"})
	require.JSONEq(t, "0", textOf(t, res))
	// full hot-reload-observed-by-next-request timing is covered by
	// internal/runtime's tests, which control mtimes directly.
}
