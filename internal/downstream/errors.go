package downstream

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-funnel/mcp-funnel/internal/sandbox"
	"github.com/mcp-funnel/mcp-funnel/internal/transpile"
)

// kindFor tags an error with the conceptual kind spec.md §7 enumerates, the
// only machine-readable classification mcp-go's CallToolResult affords
// (spec.md §8: "embeds the error kind as a parenthetical tag").
func kindFor(err error) string {
	switch err.(type) {
	case *transpile.SyntaxError:
		return "SandboxError.Syntax"
	case *sandbox.RuntimeError:
		return "SandboxError.Runtime"
	}
	if err == sandbox.ErrOutOfMemory {
		return "SandboxError.OutOfMemory"
	}
	return "SandboxError.Runtime"
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("%v (kind=%s)", err, kindFor(err)))},
		IsError: true,
	}
}
