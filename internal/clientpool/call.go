package clientpool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Call dispatches (server, tool, argsJSON) to the named connection. On a
// transport error it attempts exactly one reconnect-and-retry; if that also
// fails, it returns *ErrUpstreamCall (spec.md §4.2). A connection already in
// the Failed state returns *ErrServerFailed without attempting to
// reconnect — "On Failed, call returns an error without further reconnect
// attempts this generation."
func (p *Pool) Call(ctx context.Context, server, tool string, argsJSON json.RawMessage) (json.RawMessage, error) {
	conn, ok := p.connections[server]
	if !ok {
		return nil, &ErrUnknownServer{Server: server}
	}

	conn.mu.Lock()
	state := conn.state
	lastErr := conn.lastError
	conn.mu.Unlock()

	if state == StateFailed {
		return nil, &ErrServerFailed{Server: server, Cause: lastErr}
	}

	result, err := p.invoke(ctx, conn, tool, argsJSON)
	if err == nil {
		return result, nil
	}
	if !isTransportError(err) {
		return nil, &ErrUpstreamCall{Server: server, Tool: tool, Err: err}
	}

	p.log.Warnf("POOL", "transport error calling %s.%s, retrying once: %v", server, tool, err)
	if rerr := p.reconnect(ctx, conn); rerr != nil {
		conn.mu.Lock()
		conn.state = StateFailed
		conn.lastError = rerr
		conn.mu.Unlock()
		return nil, &ErrUpstreamCall{Server: server, Tool: tool, Err: rerr}
	}

	result, err = p.invoke(ctx, conn, tool, argsJSON)
	if err != nil {
		return nil, &ErrUpstreamCall{Server: server, Tool: tool, Err: err}
	}
	return result, nil
}

func (p *Pool) invoke(ctx context.Context, conn *connection, tool string, argsJSON json.RawMessage) (json.RawMessage, error) {
	conn.mu.Lock()
	c := conn.client
	found := false
	for _, t := range conn.tools {
		if t.Name == tool {
			found = true
			break
		}
	}
	conn.mu.Unlock()

	if !found {
		return nil, &ErrUnknownTool{Server: conn.spec.Name, Tool: tool}
	}

	var args any
	if len(argsJSON) > 0 {
		if err := json.Unmarshal(argsJSON, &args); err != nil {
			return nil, err
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, err
	}

	return unwrapResult(res)
}

// unwrapResult extracts the tool's own JSON value out of an
// mcp.CallToolResult envelope. Scripts awaiting an upstream call see the
// tool's payload directly (spec.md §8 scenarios 2/3: `d.id`, `i.number`),
// not the `{content, isError}` wrapper mcp-go returns.
func unwrapResult(res *mcp.CallToolResult) (json.RawMessage, error) {
	var text strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}

	if res.IsError {
		msg := text.String()
		if msg == "" {
			msg = "tool call returned an error result"
		}
		return nil, errors.New(msg)
	}

	payload := text.String()
	if payload == "" {
		return json.Marshal(nil)
	}
	if json.Valid([]byte(payload)) {
		return json.RawMessage(payload), nil
	}
	return json.Marshal(payload)
}

// reconnect tears down the existing client (if any) and dials a fresh one,
// refreshing the cached tool list — spec.md's "exactly one reconnect-and-
// retry" per call.
func (p *Pool) reconnect(ctx context.Context, conn *connection) error {
	conn.mu.Lock()
	old := conn.client
	spec := conn.spec
	conn.mu.Unlock()

	if old != nil {
		old.Close()
	}

	c, err := dial(ctx, spec)
	if err != nil {
		return err
	}
	tools, err := listTools(ctx, spec.Name, c)
	if err != nil {
		c.Close()
		return err
	}

	conn.mu.Lock()
	conn.client = c
	conn.tools = tools
	conn.state = StateConnected
	conn.lastError = nil
	conn.mu.Unlock()
	return nil
}
