// Package healer implements the three-phase tool-call repair pipeline:
// argument format recovery, parameter-name correction, and parameter-type
// coercion. Every phase is a pure function; none of them ever fail the
// request — an unrepairable value degrades to a {"raw": ...} wrapper rather
// than an error.
package healer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/digitallysavvy/ollama-gateway/internal/toolschema"
	"github.com/digitallysavvy/ollama-gateway/pkg/jsonparser"
)

// Action records one repair step taken, for logging.
type Action struct {
	Phase string
	Tool  string
	Detail map[string]interface{}
}

// Phase1 recovers a JSON object from a tool call's raw arguments, which
// Ollama may deliver as an object, or (with smaller local models) as a
// string needing one or two levels of unescaping.
func Phase1(tool string, raw json.RawMessage) (map[string]interface{}, []Action) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err == nil {
		if obj, ok := generic.(map[string]interface{}); ok {
			return obj, nil
		}
		if s, ok := generic.(string); ok {
			if obj, ok := tryParseObject(s); ok {
				return obj, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "direct"}}}
			}
			unescaped := strings.ReplaceAll(s, `\"`, `"`)
			if obj, ok := tryParseObject(unescaped); ok {
				return obj, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "unescape"}}}
			}
			if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
				var inner string
				if err := json.Unmarshal([]byte(s), &inner); err == nil {
					if obj, ok := tryParseObject(inner); ok {
						return obj, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "unwrap_quotes"}}}
					}
				}
			}
			if obj, ok := tryRepairObject(s); ok {
				return obj, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "repaired"}}}
			}
			return map[string]interface{}{"raw": s}, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "raw_fallback"}}}
		}
		// Array, number, bool, null.
		return map[string]interface{}{"raw": generic}, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "raw_fallback"}}}
	}
	// raw isn't even valid JSON at all; treat its literal text as the string case.
	s := string(raw)
	if obj, ok := tryParseObject(s); ok {
		return obj, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "direct"}}}
	}
	if obj, ok := tryRepairObject(s); ok {
		return obj, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "repaired"}}}
	}
	return map[string]interface{}{"raw": s}, []Action{{Phase: "format", Tool: tool, Detail: map[string]interface{}{"strategy": "raw_fallback"}}}
}

// tryRepairObject is the last resort before raw_fallback: it hands the text
// to the bracket-balancing JSON repairer, which recovers an object truncated
// mid-string or mid-structure (a max_tokens cutoff landing inside a tool
// call's arguments is the common case with small local models).
func tryRepairObject(s string) (map[string]interface{}, bool) {
	result := jsonparser.ParsePartialJSON(s)
	if result.State == jsonparser.ParseStateFailed || result.State == jsonparser.ParseStateUndefinedInput {
		return nil, false
	}
	obj, ok := result.Value.(map[string]interface{})
	return obj, ok
}

func tryParseObject(s string) (map[string]interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// Phase2 corrects parameter names against the tool's declared schema by
// substring-containment matching, renaming a key only when exactly one
// schema property is a plausible match. When no rename is needed it
// returns the same map reference (the happy path is zero-copy).
func Phase2(tool string, args map[string]interface{}, info toolschema.Info) (map[string]interface{}, []Action) {
	if len(info.Names) == 0 {
		return args, nil
	}

	renames := map[string]string{}
	for k := range args {
		if _, ok := info.Names[k]; ok {
			continue
		}
		var candidates []string
		for p := range info.Names {
			if strings.Contains(p, k) || strings.Contains(k, p) {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) == 1 {
			renames[k] = candidates[0]
		}
	}
	if len(renames) == 0 {
		return args, nil
	}

	out := make(map[string]interface{}, len(args))
	var actions []Action
	for k, v := range args {
		if newKey, ok := renames[k]; ok {
			out[newKey] = v
			actions = append(actions, Action{Phase: "param_name", Tool: tool, Detail: map[string]interface{}{"from": k, "to": newKey}})
			continue
		}
		out[k] = v
	}
	return out, actions
}

// Phase3 coerces parameter values to the schema's declared type when the
// observed type differs. Only the conversions spec.md names are attempted;
// anything else is left unchanged. Returns the same map reference when no
// coercion was needed.
func Phase3(tool string, args map[string]interface{}, info toolschema.Info) (map[string]interface{}, []Action) {
	var actions []Action
	var out map[string]interface{}

	for k, v := range args {
		if v == nil {
			continue
		}
		want, ok := info.Types[k]
		if !ok {
			continue
		}
		coerced, from, changed := coerce(v, want)
		if !changed {
			continue
		}
		if out == nil {
			out = make(map[string]interface{}, len(args))
			for kk, vv := range args {
				out[kk] = vv
			}
		}
		out[k] = coerced
		actions = append(actions, Action{Phase: "param_type", Tool: tool, Detail: map[string]interface{}{"param": k, "from_type": from, "to_type": want}})
	}

	if out == nil {
		return args, actions
	}
	return out, actions
}

func coerce(v interface{}, want string) (result interface{}, from string, changed bool) {
	switch val := v.(type) {
	case []interface{}:
		from = "array"
		if want != "string" {
			return v, from, false
		}
		parts := make([]string, len(val))
		for i, el := range val {
			parts[i] = fmt.Sprint(el)
		}
		return strings.Join(parts, ", "), from, true

	case float64:
		from = "number"
		if want != "string" {
			return v, from, false
		}
		return strconv.FormatFloat(val, 'f', -1, 64), from, true

	case string:
		from = "string"
		switch want {
		case "number", "integer":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return v, from, false
			}
			return f, from, true
		case "boolean":
			switch strings.ToLower(val) {
			case "true":
				return true, from, true
			case "false":
				return false, from, true
			default:
				return v, from, false
			}
		default:
			return v, from, false
		}

	default:
		return v, "", false
	}
}
