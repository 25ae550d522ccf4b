package openapi

import (
	"strings"
)

// maxResolveDepth caps recursion through nested schemas and $ref chains.
// Hand-written documents can contain reference cycles; past this depth a
// node resolves to the TypeUnresolved placeholder instead of recursing.
const maxResolveDepth = 64

// TypeUnresolved is the placeholder type assigned to nodes whose resolution
// exceeded the depth cap.
const TypeUnresolved = "unresolved"

// nullableKey marks schemas whose nullability was derived from a stripped
// null branch of a oneOf/anyOf composition. The underscore keeps the key out
// of the OpenAPI keyword namespace.
const nullableKey = "_nullable"

// Resolver normalizes schema nodes of one document: $ref targets are
// inlined, allOf branches merged, oneOf/anyOf reduced to their first
// non-null option. Results are memoized per reference string.
//
// A Resolver must not be shared between documents. Each side of a
// comparison owns its own instance so cached targets never leak across.
type Resolver struct {
	doc   *Document
	cache map[string]map[string]any
}

// NewResolver creates a resolver over one document.
func NewResolver(doc *Document) *Resolver {
	if doc == nil {
		doc = NewDocument(nil)
	}
	return &Resolver{
		doc:   doc,
		cache: make(map[string]map[string]any),
	}
}

// Resolve returns an equivalent schema with no $ref, allOf, oneOf or anyOf
// markers remaining. Resolution is idempotent and never mutates its input.
// Malformed references degrade to an empty schema so one bad node cannot
// abort a whole run. Non-map nodes pass through unchanged.
func (r *Resolver) Resolve(node any) any {
	return r.resolve(node, 0)
}

func (r *Resolver) resolve(node any, depth int) any {
	schema, ok := node.(map[string]any)
	if !ok {
		return node
	}
	if depth > maxResolveDepth {
		return map[string]any{"type": TypeUnresolved}
	}

	if refVal, ok := schema["$ref"]; ok {
		// A non-string $ref degrades exactly like a dangling one.
		ref, _ := refVal.(string)
		resolved := r.resolveRef(ref, depth)
		result := make(map[string]any, len(resolved)+len(schema))
		for k, v := range resolved {
			result[k] = v
		}
		// Keys layered next to $ref win over the target's keys.
		for k, v := range schema {
			if k != "$ref" {
				result[k] = v
			}
		}
		return result
	}

	if _, ok := schema["allOf"]; ok {
		return r.mergeAllOf(schema, depth)
	}

	if branches, ok := compositionBranches(schema); ok {
		return r.pickBranch(branches, depth)
	}

	result := make(map[string]any, len(schema))
	for k, v := range schema {
		result[k] = v
	}
	if props, ok := result["properties"].(map[string]any); ok {
		resolvedProps := make(map[string]any, len(props))
		for name, prop := range props {
			resolvedProps[name] = r.resolve(prop, depth+1)
		}
		result["properties"] = resolvedProps
	}
	if items, ok := result["items"]; ok {
		result["items"] = r.resolve(items, depth+1)
	}
	if extra, ok := result["additionalProperties"].(map[string]any); ok {
		result["additionalProperties"] = r.resolve(extra, depth+1)
	}
	return result
}

// resolveRef walks the pointer segments after "#/" inside the owning
// document. Any missing segment degrades to an empty schema. The cache
// entry is written only after resolution completes, so cyclic chains run
// into the depth cap instead of a stale entry.
func (r *Resolver) resolveRef(ref string, depth int) map[string]any {
	if cached, ok := r.cache[ref]; ok {
		return cached
	}
	if !strings.HasPrefix(ref, "#/") {
		return map[string]any{}
	}

	var node any = r.doc.Root()
	for _, part := range strings.Split(ref[2:], "/") {
		m, ok := node.(map[string]any)
		if !ok {
			return map[string]any{}
		}
		node, ok = m[part]
		if !ok {
			return map[string]any{}
		}
	}

	resolved, ok := r.resolve(node, depth+1).(map[string]any)
	if !ok {
		resolved = map[string]any{}
	}
	r.cache[ref] = resolved
	return resolved
}

// mergeAllOf folds every allOf branch into one object schema: properties
// union with later branches overwriting earlier ones, required as a set
// union keeping first appearance order, type and description last writer
// wins. Keys on the allOf node itself overlay the merged result.
func (r *Resolver) mergeAllOf(schema map[string]any, depth int) map[string]any {
	merged := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}

	branches, _ := schema["allOf"].([]any)
	for _, branch := range branches {
		resolved, ok := r.resolve(branch, depth+1).(map[string]any)
		if !ok {
			continue
		}
		mergeSchema(merged, resolved)
	}

	for k, v := range schema {
		if k != "allOf" {
			merged[k] = v
		}
	}
	return merged
}

func mergeSchema(target, source map[string]any) {
	if props, ok := source["properties"].(map[string]any); ok {
		targetProps, _ := target["properties"].(map[string]any)
		if targetProps == nil {
			targetProps = map[string]any{}
			target["properties"] = targetProps
		}
		for name, prop := range props {
			targetProps[name] = prop
		}
	}
	if _, ok := source["required"]; ok {
		target["required"] = unionRequired(stringList(target["required"]), stringList(source["required"]))
	}
	for _, key := range []string{"type", "description"} {
		if v, ok := source[key]; ok {
			target[key] = v
		}
	}
}

func unionRequired(existing, add []string) []string {
	seen := make(map[string]bool, len(existing)+len(add))
	res := make([]string, 0, len(existing)+len(add))
	for _, lst := range [][]string{existing, add} {
		for _, name := range lst {
			if seen[name] {
				continue
			}
			seen[name] = true
			res = append(res, name)
		}
	}
	return res
}

// compositionBranches returns the oneOf or anyOf branch list. A present but
// empty or malformed key still counts as a composition, which then resolves
// to the null placeholder.
func compositionBranches(schema map[string]any) ([]any, bool) {
	oneOf, hasOneOf := schema["oneOf"]
	anyOf, hasAnyOf := schema["anyOf"]
	if !hasOneOf && !hasAnyOf {
		return nil, false
	}
	if branches, ok := oneOf.([]any); ok && len(branches) > 0 {
		return branches, true
	}
	branches, _ := anyOf.([]any)
	return branches, true
}

// pickBranch resolves branches in listed order and returns the first whose
// resolved type is not null, marked nullable. The null test runs on the
// resolved form so refs to null-type schemas are filtered too. Only one
// branch is modelled; the engine does not reconcile multiple non-null
// branches into a union.
func (r *Resolver) pickBranch(branches []any, depth int) map[string]any {
	for _, branch := range branches {
		resolved, ok := r.resolve(branch, depth+1).(map[string]any)
		if !ok {
			continue
		}
		if resolved["type"] == "null" {
			continue
		}
		result := make(map[string]any, len(resolved)+1)
		for k, v := range resolved {
			result[k] = v
		}
		result[nullableKey] = true
		return result
	}
	return map[string]any{"type": "null", nullableKey: true}
}

// stringList coerces a decoded required list into []string, accepting both
// the []any form produced by JSON/YAML decoding and the []string form
// produced by resolution.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		res := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				res = append(res, s)
			}
		}
		return res
	default:
		return nil
	}
}
