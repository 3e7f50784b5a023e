package downstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateLeavesShortStringsAlone(t *testing.T) {
	require.Equal(t, "hello", Truncate("hello", 40000))
}

func TestTruncateRespectsLengthBound(t *testing.T) {
	s := strings.Repeat("x", 200000)
	out := Truncate(s, 40000)
	require.LessOrEqual(t, len(out), 40000+len(elisionMarker))
	require.True(t, strings.HasSuffix(out, elisionMarker))
}

func TestTruncateCutsAtRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 100) // 2 bytes each
	// body limit 25-14 = 11 falls in the middle of a 2-byte rune
	out := Truncate(s, 25)
	require.True(t, strings.HasSuffix(out, elisionMarker))
	body := strings.TrimSuffix(out, elisionMarker)
	require.True(t, len(body) == 0 || len([]rune(body)) == len(body)/2)
}

func TestTruncateDefaultsWhenMaxLengthOmitted(t *testing.T) {
	s := strings.Repeat("x", 50000)
	out := Truncate(s, 0)
	require.LessOrEqual(t, len(out), DefaultMaxLength+len(elisionMarker))
}
