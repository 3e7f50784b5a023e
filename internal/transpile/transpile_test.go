package transpile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranspileStripsTypeAnnotations(t *testing.T) {
	src := `
function greet(name: string): string {
  return "hello " + name;
}
const n: number = 3;
return greet("world");
`
	out, err := Transpile(src)
	require.NoError(t, err)
	require.NotContains(t, out, ": string")
	require.NotContains(t, out, ": number")
	require.Contains(t, out, "hello ")
}

func TestTranspilePreservesValueSemantics(t *testing.T) {
	src := `const xs: number[] = [1,2,3]; return xs.filter((x: number) => x > 1);`
	out, err := Transpile(src)
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "filter"))
}

func TestTranspileReportsSyntaxError(t *testing.T) {
	_, err := Transpile(`const x: string = ;`)
	require.Error(t, err)
	var target *SyntaxError
	require.ErrorAs(t, err, &target)
}
