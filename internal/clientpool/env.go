package clientpool

import (
	"fmt"
	"os"
	"strings"

	"github.com/mcp-funnel/mcp-funnel/internal/config"
)

// ErrMissingEnv is ConfigError::MissingEnv from spec.md §7: a server whose
// spec references an unresolved "env:NAME" value. The connection for that
// server fails to connect; other servers are unaffected (spec.md §4.2).
type ErrMissingEnv struct {
	Server string
	Name   string
}

func (e *ErrMissingEnv) Error() string {
	return fmt.Sprintf("server %q: environment variable %q is not set", e.Server, e.Name)
}

// resolveEnv performs the "env:NAME" resolution spec.md §4.2 requires
// "exactly once at connect time", against Auth, Headers values, and the
// stdio Env map. Per spec.md §3, unresolved references fail the connection
// with a clear message — the "fail clearly" policy REQUIRED for auth and
// stdio-env fields, applied uniformly to every env:-prefixed field here.
func resolveEnv(spec config.ServerSpec) (config.ServerSpec, error) {
	var err error

	if spec.Auth, err = resolveValue(spec.Name, spec.Auth); err != nil {
		return spec, err
	}

	if len(spec.Headers) > 0 {
		headers := make(map[string]string, len(spec.Headers))
		for k, v := range spec.Headers {
			rv, err := resolveValue(spec.Name, v)
			if err != nil {
				return spec, err
			}
			headers[k] = rv
		}
		spec.Headers = headers
	}

	if len(spec.Env) > 0 {
		env := make(map[string]string, len(spec.Env))
		for k, v := range spec.Env {
			rv, err := resolveValue(spec.Name, v)
			if err != nil {
				return spec, err
			}
			env[k] = rv
		}
		spec.Env = env
	}

	return spec, nil
}

func resolveValue(server, value string) (string, error) {
	const prefix = "env:"
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	name := strings.TrimPrefix(value, prefix)
	resolved, ok := os.LookupEnv(name)
	if !ok {
		return "", &ErrMissingEnv{Server: server, Name: name}
	}
	return resolved, nil
}
