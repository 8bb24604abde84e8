// Package toolschema builds the per-request Tool-Schema Index: for each
// declared tool, the set of property names and their declared JSON Schema
// types. The Tool Healer and History Healer consult it to repair model
// output against what the client actually declared.
package toolschema

import "encoding/json"

// Info is one tool's schema view: its property names and each property's
// declared type.
type Info struct {
	Names map[string]struct{}
	Types map[string]string
}

// Index maps tool name to its Info. A tool absent from Index is unknown to
// the healer, which must then leave its arguments untouched.
type Index map[string]Info

// jsonSchema is the minimal shape this gateway reads from input_schema:
// a properties map whose values carry a "type" string. Anything richer
// (oneOf, $ref, nested objects) is ignored — the healer only needs the
// top-level property/type pairs.
type jsonSchema struct {
	Properties map[string]struct {
		Type string `json:"type"`
	} `json:"properties"`
}

// Build constructs the Tool-Schema Index from the request's tool
// definitions. Definitions with malformed input_schema are included with
// an empty Info rather than failing the whole index — one bad schema
// should not block healing for every other tool.
func Build(names []string, schemas []json.RawMessage) Index {
	idx := make(Index, len(names))
	for i, name := range names {
		info := Info{Names: map[string]struct{}{}, Types: map[string]string{}}
		if i < len(schemas) && len(schemas[i]) > 0 {
			var s jsonSchema
			if err := json.Unmarshal(schemas[i], &s); err == nil {
				for prop, def := range s.Properties {
					info.Names[prop] = struct{}{}
					if def.Type != "" {
						info.Types[prop] = def.Type
					}
				}
			}
		}
		idx[name] = info
	}
	return idx
}

// Lookup returns the Info for a tool name and whether it is known.
func (idx Index) Lookup(name string) (Info, bool) {
	info, ok := idx[name]
	return info, ok
}
