// Package catalog aggregates the tool metadata of one clientpool.Pool
// generation into a uniform, script-consumable view: the concrete entry
// list bound to the sandbox's `tools` global, and a block of TypeScript
// declarations synthesized from each tool's JSON Schema (spec.md §4.3).
//
// Grounded on the teacher's internal/tools/mcp.go, which performs the same
// MCP-tool -> typed-shape conversion (there, into an eino schema.ToolInfo
// via openapi3.Schema) when it builds its LLM-facing tool list.
package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mcp-funnel/mcp-funnel/internal/clientpool"
	"github.com/mcp-funnel/mcp-funnel/internal/config"
)

// identifierPattern is the script-identifier grammar spec.md §4.3 requires
// a sanitized server name to satisfy; anything else is rejected at catalog
// build rather than emitted as an invalid `declare const` / global.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Entry is the JSON-serializable shape bound to the `tools` global and
// returned by EntriesForSearch.
type Entry struct {
	Server      string          `json:"server"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// Catalog is the mapping from server name to its tool vector, plus the
// derived declarations block, regenerated atomically whenever the pool is
// rebuilt (spec.md §3 invariants).
type Catalog struct {
	byServer     map[string][]Entry
	sanitized    map[string]string // server name -> sanitized identifier
	declarations string
}

// ErrSanitizedNameCollision is the ConfigError spec.md §4.3 and §9 require:
// two distinct configured servers whose names sanitize to the same
// identifier.
type ErrSanitizedNameCollision struct {
	Sanitized string
	Servers   []string
}

func (e *ErrSanitizedNameCollision) Error() string {
	return fmt.Sprintf("servers %v all sanitize to identifier %q", e.Servers, e.Sanitized)
}

// ErrInvalidIdentifier is the ConfigError spec.md §4.3 requires: a server
// name whose sanitized form is not a valid script identifier.
type ErrInvalidIdentifier struct {
	Server    string
	Sanitized string
}

func (e *ErrInvalidIdentifier) Error() string {
	return fmt.Sprintf("server %q sanitizes to %q, which is not a valid script identifier", e.Server, e.Sanitized)
}

// ToolLister is the slice of *clientpool.Pool's surface FromPool needs.
// Narrowing to an interface keeps catalog's tests independent of standing
// up a real upstream connection.
type ToolLister interface {
	ListTools(server string) ([]clientpool.ToolEntry, error)
}

// FromPool snapshots every (server, tool) tuple in pool into a Catalog.
// Server names are drawn from cfg (the generation's Config snapshot) so that
// servers which failed to connect (and so carry no cached tools) still
// appear as script-visible globals with an empty tool set, per spec.md's
// invariant that "every ToolEntry references an extant ServerConnection in
// the current generation" — a Failed connection is still extant, it is
// simply empty.
func FromPool(pool ToolLister, cfg *config.Config) (*Catalog, error) {
	sanitizedOwners := make(map[string][]string)
	for name, spec := range cfg.Servers {
		if !identifierPattern.MatchString(spec.Sanitized) {
			return nil, &ErrInvalidIdentifier{Server: name, Sanitized: spec.Sanitized}
		}
		sanitizedOwners[spec.Sanitized] = append(sanitizedOwners[spec.Sanitized], name)
	}
	for sanitized, owners := range sanitizedOwners {
		if len(owners) > 1 {
			sort.Strings(owners)
			return nil, &ErrSanitizedNameCollision{Sanitized: sanitized, Servers: owners}
		}
	}

	cat := &Catalog{
		byServer:  make(map[string][]Entry, len(cfg.Servers)),
		sanitized: make(map[string]string, len(cfg.Servers)),
	}

	for name, spec := range cfg.Servers {
		cat.sanitized[name] = spec.Sanitized

		tools, err := pool.ListTools(name)
		if err != nil {
			return nil, err
		}

		entries := make([]Entry, 0, len(tools))
		for _, t := range tools {
			schemaJSON, err := sonic.Marshal(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("catalog: marshal schema for %s.%s: %w", name, t.Name, err)
			}
			entries = append(entries, Entry{
				Server:      name,
				Name:        t.Name,
				Description: t.Description,
				Schema:      schemaJSON,
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		cat.byServer[name] = entries
	}

	cat.declarations = renderDeclarations(cfg, cat.byServer)
	return cat, nil
}

// EntriesForSearch is the concrete value bound to `tools` at runtime
// (spec.md §4.3 entries_for_search).
func (c *Catalog) EntriesForSearch() []Entry {
	names := make([]string, 0, len(c.byServer))
	for name := range c.byServer {
		names = append(names, name)
	}
	sort.Strings(names)

	var all []Entry
	for _, name := range names {
		all = append(all, c.byServer[name]...)
	}
	return all
}

// Declarations returns the block of typed declarations synthesized from
// every server's tool schemas (spec.md §4.3).
func (c *Catalog) Declarations() string { return c.declarations }

// EntriesForServer returns one server's tool vector in the sorted order
// established at catalog build time.
func (c *Catalog) EntriesForServer(server string) []Entry {
	return c.byServer[server]
}

// SanitizedName returns the identifier a server's name was sanitized to,
// the same identifier its `declare const` global is bound under.
func (c *Catalog) SanitizedName(server string) string {
	return c.sanitized[server]
}

// Servers lists every server name present in this generation.
func (c *Catalog) Servers() []string {
	names := make([]string, 0, len(c.byServer))
	for name := range c.byServer {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolSchema parses one entry's raw JSON Schema into an openapi3.Schema so
// the declaration renderer (declarations.go) and any runtime validation can walk a
// typed structure instead of map[string]any.
func (e Entry) ToolSchema() (*openapi3.Schema, error) {
	schema := &openapi3.Schema{}
	if len(e.Schema) == 0 {
		return schema, nil
	}
	if err := sonic.Unmarshal(e.Schema, schema); err != nil {
		return nil, err
	}
	if schema.Type == "object" && schema.Properties == nil {
		schema.Properties = make(openapi3.Schemas)
	}
	return schema, nil
}
