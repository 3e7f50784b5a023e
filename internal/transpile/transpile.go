// Package transpile strips type annotations from a script fragment,
// leaving plain ECMAScript for internal/sandbox to run (spec.md §4.1).
//
// No teacher analogue exists in osi4iot-mcphost; the dependency is
// grounded on github.com/evanw/esbuild, named as a direct dependency by
// three other repos in this pack (rannow-mcpproxy-go, vrischmann-sketch,
// wcollins-gridctl) for exactly this TypeScript-to-JavaScript erasure job.
package transpile

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// SyntaxError is SandboxError::Syntax from spec.md §7: a malformed script,
// reported with line/column per spec.md §4.1.
type SyntaxError struct {
	Line, Column int
	Text         string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Text)
}

// Transpile strips TypeScript-only syntax from src, returning equivalent
// plain ECMAScript. It performs no module resolution, no optimization, and
// adds no runtime shims — esbuild's "transform" API (as opposed to "build")
// does exactly this and nothing more.
func Transpile(src string) (string, error) {
	result := api.Transform(src, api.TransformOptions{
		Loader:    api.LoaderTS,
		Target:    api.ESNext,
		Sourcemap: api.SourceMapNone,
		LogLevel:  api.LogLevelSilent,
		Charset:   api.CharsetUTF8,
	})

	if len(result.Errors) > 0 {
		first := result.Errors[0]
		line, col := 0, 0
		if first.Location != nil {
			line, col = first.Location.Line, first.Location.Column
		}
		return "", &SyntaxError{Line: line, Column: col, Text: first.Text}
	}

	return string(result.Code), nil
}
