package clientpool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/mcp-funnel/mcp-funnel/internal/config"
)

// fakeUpstream builds an in-process MCP server exposing one "echo" tool,
// wired the way browserNerd's Server.registerTool does: a schema, a
// handler, AddTool.
func fakeUpstream(t *testing.T) *mcpserver.MCPServer {
	t.Helper()
	srv := mcpserver.NewMCPServer("fake-upstream", "1.0.0", mcpserver.WithToolCapabilities(true))

	echoTool := mcp.NewToolWithRawSchema("echo", "echoes its input",
		json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`))
	srv.AddTool(echoTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		text, _ := args["text"].(string)
		return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}, nil
	})
	return srv
}

func connectInProcess(t *testing.T, name string, srv *mcpserver.MCPServer) *connection {
	t.Helper()
	c, err := client.NewInProcessClient(srv)
	require.NoError(t, err)
	require.NoError(t, initialize(context.Background(), c))

	entries, err := listTools(context.Background(), name, c)
	require.NoError(t, err)

	return &connection{
		spec:  config.ServerSpec{Name: name, Sanitized: name},
		state: StateConnected,
		client: c,
		tools: entries,
	}
}

func TestPoolCallDispatchesToNamedServer(t *testing.T) {
	pool := &Pool{log: NewLogger(LevelError), connections: map[string]*connection{
		"echo-server": connectInProcess(t, "echo-server", fakeUpstream(t)),
	}}

	result, err := pool.Call(context.Background(), "echo-server", "echo", json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	require.JSONEq(t, `"hi"`, string(result))
}

func TestPoolCallUnknownServer(t *testing.T) {
	pool := &Pool{log: NewLogger(LevelError), connections: map[string]*connection{}}
	_, err := pool.Call(context.Background(), "nope", "echo", nil)
	require.Error(t, err)
	var target *ErrUnknownServer
	require.ErrorAs(t, err, &target)
}

func TestPoolCallUnknownTool(t *testing.T) {
	pool := &Pool{log: NewLogger(LevelError), connections: map[string]*connection{
		"echo-server": connectInProcess(t, "echo-server", fakeUpstream(t)),
	}}

	_, err := pool.Call(context.Background(), "echo-server", "does-not-exist", nil)
	require.Error(t, err)
	var target *ErrUnknownTool
	require.ErrorAs(t, err, &target)
}

func TestPoolCallFailedServerShortCircuits(t *testing.T) {
	conn := connectInProcess(t, "echo-server", fakeUpstream(t))
	conn.state = StateFailed
	conn.lastError = &ErrConnect{Server: "echo-server", Err: context.DeadlineExceeded}
	pool := &Pool{log: NewLogger(LevelError), connections: map[string]*connection{"echo-server": conn}}

	_, err := pool.Call(context.Background(), "echo-server", "echo", nil)
	require.Error(t, err)
	var target *ErrServerFailed
	require.ErrorAs(t, err, &target)
}

func TestBuildNonFatalOnBadStdioServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := &config.Config{Servers: map[string]config.ServerSpec{
		"bad": {Name: "bad", Transport: config.TransportStdio, Command: "this-binary-does-not-exist-xyz"},
	}}

	pool := Build(ctx, cfg, NewLogger(LevelError))
	defer pool.Shutdown()

	state, err := pool.State("bad")
	require.NoError(t, err)
	require.Equal(t, StateFailed, state)
}

func TestBuildEmptyConfigIsLegal(t *testing.T) {
	pool := Build(context.Background(), &config.Config{Servers: map[string]config.ServerSpec{}}, NewLogger(LevelError))
	require.Empty(t, pool.Servers())
}

func TestResolveEnvFailsClearlyOnMissingVar(t *testing.T) {
	spec := config.ServerSpec{
		Name:      "needs-token",
		Transport: config.TransportHTTP,
		URL:       "https://example.invalid",
		Auth:      "env:DEFINITELY_NOT_SET_MCP_FUNNEL_VAR",
	}
	_, err := resolveEnv(spec)
	require.Error(t, err)
	var target *ErrMissingEnv
	require.ErrorAs(t, err, &target)
}
