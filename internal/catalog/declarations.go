package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mcp-funnel/mcp-funnel/internal/config"
)

// renderDeclarations emits the block described in spec.md §4.3:
//
//	declare const <sanitized_server>: {
//	  /** <description> */
//	  <tool>(params: <shape-from-schema>): Promise<any>;
//	  …
//	};
//
// plus `declare const tools: Array<{server, name, description, schema}>;`.
func renderDeclarations(cfg *config.Config, byServer map[string][]Entry) string {
	names := make([]string, 0, len(cfg.Servers))
	for name := range cfg.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		spec := cfg.Servers[name]
		fmt.Fprintf(&b, "declare const %s: {\n", spec.Sanitized)
		for _, entry := range byServer[name] {
			shape, err := typeShape(entry)
			if err != nil {
				shape = "any"
			}
			if entry.Description != "" {
				fmt.Fprintf(&b, "  /** %s */\n", sanitizeComment(entry.Description))
			}
			fmt.Fprintf(&b, "  %s(params: %s): Promise<any>;\n", entry.Name, shape)
		}
		b.WriteString("};\n\n")
	}

	b.WriteString("declare const tools: Array<{server: string, name: string, description: string, schema: any}>;\n")
	return b.String()
}

func sanitizeComment(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "*/", "* /"), "\n", " ")
}

// typeShape implements the JSON-Schema -> type-shape mapping of spec.md
// §4.3, extended (as spec.md invites implementers to do) with oneOf/anyOf
// unions and additionalProperties:false object shapes without an index
// signature.
func typeShape(entry Entry) (string, error) {
	schema, err := entry.ToolSchema()
	if err != nil {
		return "", err
	}
	return renderSchema(schema), nil
}

func renderSchema(s *openapi3.Schema) string {
	if s == nil {
		return "any"
	}

	if len(s.Enum) > 0 && (s.Type == "string" || s.Type == "") {
		literals := make([]string, 0, len(s.Enum))
		for _, v := range s.Enum {
			if str, ok := v.(string); ok {
				literals = append(literals, strconv.Quote(str))
			}
		}
		if len(literals) > 0 {
			return strings.Join(literals, " | ")
		}
	}

	if len(s.OneOf) > 0 {
		return renderUnion(s.OneOf)
	}
	if len(s.AnyOf) > 0 {
		return renderUnion(s.AnyOf)
	}

	switch s.Type {
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "array":
		if s.Items != nil && s.Items.Value != nil {
			return "Array<" + renderSchema(s.Items.Value) + ">"
		}
		return "Array<any>"
	case "object":
		return renderObject(s)
	case "string":
		return "string"
	default:
		return "any"
	}
}

func renderUnion(refs openapi3.SchemaRefs) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == nil || ref.Value == nil {
			parts = append(parts, "any")
			continue
		}
		parts = append(parts, renderSchema(ref.Value))
	}
	return strings.Join(parts, " | ")
}

func renderObject(s *openapi3.Schema) string {
	if len(s.Properties) == 0 {
		if s.AdditionalProperties.Has != nil && !*s.AdditionalProperties.Has {
			return "{}"
		}
		return "{ [key: string]: any }"
	}

	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("{ ")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		ref := s.Properties[name]
		shape := "any"
		if ref != nil && ref.Value != nil {
			shape = renderSchema(ref.Value)
		}
		optional := ""
		if !required[name] {
			optional = "?"
		}
		fmt.Fprintf(&b, "%s%s: %s", name, optional, shape)
	}
	b.WriteString(" }")
	return b.String()
}
