// Package clientpool owns every live connection to an upstream MCP server
// for one catalog generation (spec.md §4.2). It is adapted from the
// teacher's internal/tools.MCPConnectionPool: the three-transport dispatch
// and the Disconnected/Connected/Failed bookkeeping survive, trimmed to the
// exactly-once-per-call retry policy spec.md actually specifies (the
// teacher's background health-check loop and idle-connection eviction are
// cut — see DESIGN.md).
package clientpool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-funnel/mcp-funnel/internal/config"
)

// ToolEntry is {server, name, description, input_schema} from spec.md §3,
// unique by (Server, Name) for the lifetime of one pool generation.
type ToolEntry struct {
	Server      string
	Name        string
	Description string
	InputSchema mcp.ToolInputSchema
}

// connection is a live handle to one upstream server. It is never shared
// outside the Pool that owns it.
type connection struct {
	mu        sync.Mutex
	spec      config.ServerSpec
	state     State
	client    client.MCPClient
	tools     []ToolEntry
	lastError error
}

// Pool is one ClientPool generation: every upstream connection built from a
// single Config snapshot.
type Pool struct {
	log         *Logger
	connections map[string]*connection
}

// Build attempts to connect to every server in cfg concurrently. Spec.md
// §4.2: "A per-server connection failure is non-fatal ... the pool still
// returns successfully as long as at least zero servers can be tried (empty
// pools are legal)."
func Build(ctx context.Context, cfg *config.Config, log *Logger) *Pool {
	p := &Pool{log: log, connections: make(map[string]*connection, len(cfg.Servers))}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, spec := range cfg.Servers {
		wg.Add(1)
		go func(name string, spec config.ServerSpec) {
			defer wg.Done()
			conn := p.connect(ctx, spec)
			mu.Lock()
			p.connections[name] = conn
			mu.Unlock()
		}(name, spec)
	}
	wg.Wait()

	return p
}

// connect dials one upstream server. A failure here never aborts Build; it
// produces a connection left in the Failed state, per the state machine in
// spec.md §4.2.
func (p *Pool) connect(ctx context.Context, spec config.ServerSpec) *connection {
	conn := &connection{spec: spec, state: StateDisconnected}

	resolved, err := resolveEnv(spec)
	if err != nil {
		conn.state = StateFailed
		conn.lastError = err
		p.log.Warnf("POOL", "server %s: %v", spec.Name, err)
		return conn
	}
	conn.spec = resolved

	c, err := dial(ctx, resolved)
	if err != nil {
		conn.state = StateFailed
		conn.lastError = &ErrConnect{Server: spec.Name, Err: err}
		p.log.Warnf("POOL", "server %s failed to connect: %v", spec.Name, err)
		return conn
	}

	tools, err := listTools(ctx, spec.Name, c)
	if err != nil {
		c.Close()
		conn.state = StateFailed
		conn.lastError = &ErrConnect{Server: spec.Name, Err: err}
		p.log.Warnf("POOL", "server %s failed tools/list: %v", spec.Name, err)
		return conn
	}

	conn.client = c
	conn.tools = tools
	conn.state = StateConnected
	p.log.Infof("POOL", "server %s connected with %d tools", spec.Name, len(tools))
	return conn
}

// dial opens and initializes a client.MCPClient for one of the three
// transports spec.md §4.2 names, mirroring the teacher's
// createStdioClient/createSSEClient/createStreamableClient trio.
func dial(ctx context.Context, spec config.ServerSpec) (client.MCPClient, error) {
	var c client.MCPClient
	var err error

	switch spec.Transport {
	case config.TransportStdio:
		c, err = dialStdio(ctx, spec)
	case config.TransportSSE:
		c, err = dialSSE(ctx, spec)
	case config.TransportHTTP:
		c, err = dialStreamable(ctx, spec)
	default:
		return nil, fmt.Errorf("unsupported transport %q", spec.Transport)
	}
	if err != nil {
		return nil, err
	}

	if err := initialize(ctx, c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func dialStdio(ctx context.Context, spec config.ServerSpec) (client.MCPClient, error) {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	stdioTransport := transport.NewStdio(spec.Command, env, spec.Args...)
	c := client.NewClient(stdioTransport)
	if err := stdioTransport.Start(ctx); err != nil {
		return nil, fmt.Errorf("start stdio transport: %w", err)
	}
	// The subprocess needs a moment to bind its stdio pipes before the
	// initialize handshake, same grace period the teacher waits out.
	time.Sleep(100 * time.Millisecond)
	return c, nil
}

func dialSSE(ctx context.Context, spec config.ServerSpec) (client.MCPClient, error) {
	var options []transport.ClientOption
	if headers := authHeaders(spec); len(headers) > 0 {
		options = append(options, transport.WithHeaders(headers))
	}

	c, err := client.NewSSEMCPClient(spec.URL, options...)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start SSE client: %w", err)
	}
	return c, nil
}

func dialStreamable(ctx context.Context, spec config.ServerSpec) (client.MCPClient, error) {
	var options []transport.StreamableHTTPCOption
	if headers := authHeaders(spec); len(headers) > 0 {
		options = append(options, transport.WithHTTPHeaders(headers))
	}

	c, err := client.NewStreamableHttpClient(spec.URL, options...)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start streamable HTTP client: %w", err)
	}
	return c, nil
}

// authHeaders merges the bearer token (if any) with user-supplied headers.
// Custom headers "MAY override them except Authorization" (spec.md §6);
// when a bearer token is set, Authorization is therefore applied last and
// replaces any custom Authorization header.
func authHeaders(spec config.ServerSpec) map[string]string {
	headers := make(map[string]string, len(spec.Headers)+1)
	for k, v := range spec.Headers {
		headers[k] = v
	}
	if spec.Auth != "" {
		headers["Authorization"] = "Bearer " + spec.Auth
	}
	return headers
}

func initialize(ctx context.Context, c client.MCPClient) error {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "mcp-funnel", Version: "1.0.0"}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := c.Initialize(initCtx, req); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

func listTools(ctx context.Context, server string, c client.MCPClient) ([]ToolEntry, error) {
	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}

	entries := make([]ToolEntry, 0, len(res.Tools))
	for _, t := range res.Tools {
		entries = append(entries, ToolEntry{
			Server:      server,
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return entries, nil
}

// ListTools returns the cached tool list captured at connect time for the
// named server.
func (p *Pool) ListTools(server string) ([]ToolEntry, error) {
	conn, ok := p.connections[server]
	if !ok {
		return nil, &ErrUnknownServer{Server: server}
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.tools, nil
}

// Servers returns every configured server name, regardless of connection
// state, so Failed servers are included.
func (p *Pool) Servers() []string {
	names := make([]string, 0, len(p.connections))
	for name := range p.connections {
		names = append(names, name)
	}
	return names
}

// State reports a server's current position in the transport state machine.
func (p *Pool) State(server string) (State, error) {
	conn, ok := p.connections[server]
	if !ok {
		return StateDisconnected, &ErrUnknownServer{Server: server}
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.state, nil
}

// Shutdown releases every socket and terminates every stdio subprocess,
// joining background transport goroutines.
func (p *Pool) Shutdown() {
	for name, conn := range p.connections {
		conn.mu.Lock()
		if conn.client != nil {
			if err := conn.client.Close(); err != nil {
				p.log.Warnf("POOL", "closing %s: %v", name, err)
			}
		}
		conn.mu.Unlock()
	}
}

// isTransportError mirrors the teacher's isConnectionError: a heuristic over
// the upstream error text distinguishing a transport-level failure (worth
// retrying once, per spec.md §4.2) from an application-level tool error
// (not worth retrying).
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, needle := range []string{
		"transport error",
		"connection refused",
		"no such host",
		"EOF",
		"broken pipe",
		"Client.Timeout exceeded",
		"context deadline exceeded",
	} {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
