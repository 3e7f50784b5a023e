package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileStdio(t *testing.T) {
	dir := t.TempDir()
	path := writeTOML(t, dir, "cfg.toml", `
[servers.github]
transport = "stdio"
command = "github-mcp-server"
args = ["stdio"]
[servers.github.env]
GITHUB_TOKEN = "env:GITHUB_TOKEN"
`)

	cfg, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)

	spec := cfg.Servers["github"]
	require.Equal(t, TransportStdio, spec.Transport)
	require.Equal(t, "github-mcp-server", spec.Command)
	require.Equal(t, []string{"stdio"}, spec.Args)
	require.Equal(t, "env:GITHUB_TOKEN", spec.Env["GITHUB_TOKEN"])
}

func TestParseFileHTTP(t *testing.T) {
	dir := t.TempDir()
	path := writeTOML(t, dir, "cfg.toml", `
[servers.canva]
transport = "http"
url = "https://mcp.canva.com"
auth = "env:CANVA_TOKEN"
[servers.canva.headers]
X-Trace = "on"
`)

	cfg, err := ParseFile(path)
	require.NoError(t, err)

	spec := cfg.Servers["canva"]
	require.Equal(t, TransportHTTP, spec.Transport)
	require.Equal(t, "https://mcp.canva.com", spec.URL)
	require.Equal(t, "env:CANVA_TOKEN", spec.Auth)
	require.Equal(t, "on", spec.Headers["X-Trace"])
}

func TestParseFileMissingIsEmptyScope(t *testing.T) {
	cfg, err := ParseFile(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	require.Empty(t, cfg.Servers)
}

func TestParseFileRejectsUnknownTransport(t *testing.T) {
	dir := t.TempDir()
	path := writeTOML(t, dir, "cfg.toml", `
[servers.bad]
transport = "carrier-pigeon"
`)
	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestMergeScopesProjectWins(t *testing.T) {
	user := &Config{Servers: map[string]ServerSpec{
		"chrome-devtools": {Name: "chrome-devtools", Transport: TransportStdio, Command: "old"},
		"only-user":       {Name: "only-user", Transport: TransportStdio, Command: "u"},
	}}
	project := &Config{Servers: map[string]ServerSpec{
		"chrome-devtools": {Name: "chrome-devtools", Transport: TransportStdio, Command: "new"},
	}}

	merged := MergeScopes(user, project)
	require.Len(t, merged.Servers, 2)
	require.Equal(t, "new", merged.Servers["chrome-devtools"].Command)
	require.Equal(t, "u", merged.Servers["only-user"].Command)
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "chrome_devtools", Sanitize("chrome-devtools"))
	require.Equal(t, "canva", Sanitize("canva"))
}
