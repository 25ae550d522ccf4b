package openapi

import (
	"strings"
)

// TypeString derives the canonical comparison string for a schema node.
//
// Arrays render as array<item>, maps declared through an object with an
// additionalProperties schema as map<string, value>, enums without a type
// as enum, unresolved references as the trailing name segment of the ref.
// Type lists in the 3.1 nullable style drop their "null" entry; when more
// than one type survives they join with "|". Anything unrecognizable is
// "unknown", never an error.
func TypeString(node any) string {
	schema, ok := node.(map[string]any)
	if !ok {
		return "unknown"
	}

	declared := schema["type"]
	if list, ok := declared.([]any); ok {
		kept := make([]string, 0, len(list))
		for _, t := range list {
			if s, ok := t.(string); ok && s != "null" {
				kept = append(kept, s)
			}
		}
		if len(kept) == 1 {
			declared = kept[0]
		} else {
			declared = strings.Join(kept, "|")
		}
	}

	typ, _ := declared.(string)
	switch {
	case typ == "array":
		return "array<" + TypeString(schema["items"]) + ">"
	case typ == "object":
		if extra, ok := schema["additionalProperties"].(map[string]any); ok {
			return "map<string, " + TypeString(extra) + ">"
		}
		return "object"
	case typ != "":
		return typ
	}

	if _, ok := schema["enum"]; ok {
		return "enum"
	}
	if ref, ok := schema["$ref"].(string); ok {
		parts := strings.Split(ref, "/")
		return parts[len(parts)-1]
	}
	return "unknown"
}

// TypesCompatible reports whether two canonical type strings count as
// equivalent: exact match, the integer/number pair, or number against the
// wide-precision double alias. Everything else is an exact-string decision.
func TypesCompatible(a, b string) bool {
	if a == b {
		return true
	}
	if (a == "integer" || a == "number") && (b == "integer" || b == "number") {
		return true
	}
	if (a == "number" && b == "double") || (a == "double" && b == "number") {
		return true
	}
	return false
}
