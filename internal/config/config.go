// Package config parses the TOML configuration that describes upstream MCP
// servers and merges the user-scope and project-scope files into one Config.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Transport discriminates the three upstream wire protocols spoken by
// ClientPool (internal/clientpool).
type Transport string

const (
	TransportHTTP  Transport = "http"
	TransportSSE   Transport = "sse"
	TransportStdio Transport = "stdio"
)

// ServerSpec is one upstream definition. The canonical Name is the config
// key; Sanitized is the identifier-safe form used as a script-visible global
// (hyphens replaced with underscores — see Sanitize).
type ServerSpec struct {
	Name      string
	Sanitized string
	Transport Transport

	// HTTP / SSE
	URL     string
	Auth    string
	Headers map[string]string

	// Stdio
	Command string
	Args    []string
	Env     map[string]string
}

// rawServer mirrors the TOML shape in spec.md §6.
type rawServer struct {
	Transport string            `toml:"transport"`
	URL       string            `toml:"url"`
	Auth      string            `toml:"auth"`
	Headers   map[string]string `toml:"headers"`
	Command   string            `toml:"command"`
	Args      []string          `toml:"args"`
	Env       map[string]string `toml:"env"`
}

type rawFile struct {
	Servers map[string]rawServer `toml:"servers"`
}

// Config is the merged, already-validated set of upstream server specs the
// core consumes. Server names are unique by construction (MergeScopes
// resolves collisions by letting the project scope win).
type Config struct {
	Servers map[string]ServerSpec
}

// ParseFile reads and parses a single TOML config file. A missing file is
// not an error; it is treated as an empty scope so that either of the two
// scopes in spec.md §6 may be absent.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Servers: map[string]ServerSpec{}}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw rawFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := &Config{Servers: make(map[string]ServerSpec, len(raw.Servers))}
	for name, rs := range raw.Servers {
		spec, err := specFromRaw(name, rs)
		if err != nil {
			return nil, fmt.Errorf("config: server %q in %s: %w", name, path, err)
		}
		cfg.Servers[name] = spec
	}
	return cfg, nil
}

func specFromRaw(name string, rs rawServer) (ServerSpec, error) {
	spec := ServerSpec{
		Name:      name,
		Sanitized: Sanitize(name),
		Transport: Transport(rs.Transport),
		URL:       rs.URL,
		Auth:      rs.Auth,
		Headers:   rs.Headers,
		Command:   rs.Command,
		Args:      rs.Args,
		Env:       rs.Env,
	}

	switch spec.Transport {
	case TransportHTTP, TransportSSE:
		if spec.URL == "" {
			return spec, fmt.Errorf("transport %q requires url", spec.Transport)
		}
	case TransportStdio:
		if spec.Command == "" {
			return spec, fmt.Errorf("transport %q requires command", spec.Transport)
		}
	default:
		return spec, fmt.Errorf("unknown transport %q (want http, sse, or stdio)", rs.Transport)
	}

	return spec, nil
}

// Sanitize replaces hyphens in a server name with underscores, per spec.md
// §4.3. Other characters are left as they are, so the result is not always in
// the identifier set [A-Za-z_][A-Za-z0-9_]*; catalog.FromPool rejects names
// whose sanitized form is not.
func Sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '-' {
			out = append(out, '_')
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}
