package conformance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specparity/specparity/pkg/openapi"
)

const mediaTypeJSON = "application/json"

// differ compares one operation pair field by field. It resolves schemas
// through the per-document resolvers and consults the policy for every diff
// it finds.
type differ struct {
	refRes  *openapi.Resolver
	implRes *openapi.Resolver
	policy  *Policy
}

// compareOperation compares request body, 200 response body and query
// parameters of one endpoint. Body comparison runs only when both sides
// declare an application/json schema.
func (d *differ) compareOperation(path, method string, refOp, implOp map[string]any) (EndpointDiff, []Violation) {
	upper := strings.ToUpper(method)
	diff := newEndpointDiff(path, upper)
	var violations []Violation

	refBody := bodySchema(refOp)
	implBody := bodySchema(implOp)
	if len(refBody) > 0 && len(implBody) > 0 {
		resolvedRef := asMap(d.refRes.Resolve(refBody))
		resolvedImpl := asMap(d.implRes.Resolve(implBody))
		var vs []Violation
		diff.RequestDiffs, vs = d.compareSchemas(resolvedRef, resolvedImpl, path+" request", path, upper, LocationRequest)
		violations = append(violations, vs...)
	}

	refResp := responseSchema(refOp)
	implResp := responseSchema(implOp)
	if len(refResp) > 0 && len(implResp) > 0 {
		resolvedRef := asMap(d.refRes.Resolve(refResp))
		resolvedImpl := asMap(d.implRes.Resolve(implResp))
		var vs []Violation
		diff.ResponseDiffs, vs = d.compareSchemas(resolvedRef, resolvedImpl, path+" response", path, upper, LocationResponse)
		violations = append(violations, vs...)
	}

	var vs []Violation
	diff.ParamDiffs, vs = d.compareParameters(path, upper, refOp, implOp)
	violations = append(violations, vs...)

	return diff, violations
}

// compareSchemas walks two resolved schemas. Nested objects recurse with the
// field name appended to the context; the exception key always carries the
// bare field name.
func (d *differ) compareSchemas(ref, impl map[string]any, context, path, method, location string) ([]SchemaDiff, []Violation) {
	diffs := []SchemaDiff{}
	var violations []Violation

	refProps := asMap(ref["properties"])
	implProps := asMap(impl["properties"])
	refRequired := asStringSet(ref["required"])
	implRequired := asStringSet(impl["required"])

	for _, name := range sortedKeys(refProps) {
		if _, ok := implProps[name]; ok {
			continue
		}
		fieldType := openapi.TypeString(refProps[name])
		description := fmt.Sprintf("Field '%s' (%s) missing in implementation", name, fieldType)
		if refRequired[name] {
			description += " [REQUIRED]"
		}
		diffs = append(diffs, SchemaDiff{
			Path:        context,
			Field:       name,
			Kind:        DiffMissing,
			RefValue:    fieldType,
			Description: description,
		})
		if !d.policy.Documented(ExceptionKey{Path: path, Method: method, Location: location, Field: name}) {
			violations = append(violations, Violation{
				Kind:     ViolationUndocumentedMissing,
				Path:     path,
				Method:   method,
				Field:    name,
				Location: location,
				Message:  fmt.Sprintf("Field '%s' is missing but not documented in the policy exceptions", name),
			})
		}
	}

	for _, name := range sortedKeys(implProps) {
		if _, ok := refProps[name]; ok {
			continue
		}
		fieldType := openapi.TypeString(implProps[name])
		diffs = append(diffs, SchemaDiff{
			Path:        context,
			Field:       name,
			Kind:        DiffExtension,
			ImplValue:   fieldType,
			Description: fmt.Sprintf("Field '%s' (%s) is an implementation extension", name, fieldType),
		})
		markerText, _ := asMap(implProps[name])["description"].(string)
		if !d.policy.Marked(markerText) {
			violations = append(violations, Violation{
				Kind:     ViolationUnmarkedExtension,
				Path:     path,
				Method:   method,
				Field:    name,
				Location: location,
				Message:  fmt.Sprintf("Field '%s' is an implementation extension but missing '%s' in description", name, d.policy.ExtensionMarker),
			})
		}
	}

	for _, name := range sortedKeys(refProps) {
		implField, ok := implProps[name]
		if !ok {
			continue
		}
		refField := refProps[name]

		refType := openapi.TypeString(refField)
		implType := openapi.TypeString(implField)
		if !openapi.TypesCompatible(refType, implType) {
			message := fmt.Sprintf("Type mismatch for '%s': reference=%s, implementation=%s", name, refType, implType)
			diffs = append(diffs, SchemaDiff{
				Path:        context,
				Field:       name,
				Kind:        DiffTypeMismatch,
				RefValue:    refType,
				ImplValue:   implType,
				Description: message,
			})
			if d.policy.StrictTypes {
				violations = append(violations, Violation{
					Kind:     ViolationTypeMismatch,
					Path:     path,
					Method:   method,
					Field:    name,
					Location: location,
					Message:  message,
				})
			}
		}

		if refRequired[name] && !implRequired[name] {
			message := fmt.Sprintf("Field '%s' is required in the reference but optional in the implementation", name)
			diffs = append(diffs, SchemaDiff{
				Path:        context,
				Field:       name,
				Kind:        DiffRequiredMismatch,
				RefValue:    "required",
				ImplValue:   "optional",
				Description: message,
			})
			if d.policy.StrictRequired {
				violations = append(violations, Violation{
					Kind:     ViolationRequiredMismatch,
					Path:     path,
					Method:   method,
					Field:    name,
					Location: location,
					Message:  message,
				})
			}
		}

		refFieldMap := asMap(refField)
		implFieldMap := asMap(implField)
		if refFieldMap["type"] == "object" && implFieldMap["type"] == "object" {
			nested, nestedViolations := d.compareSchemas(refFieldMap, implFieldMap, context+"."+name, path, method, location)
			diffs = append(diffs, nested...)
			violations = append(violations, nestedViolations...)
		}
	}

	return diffs, violations
}

// compareParameters is flat: query parameters only, keyed by name, no type
// comparison.
func (d *differ) compareParameters(path, method string, refOp, implOp map[string]any) ([]SchemaDiff, []Violation) {
	refParams := queryParameters(refOp)
	implParams := queryParameters(implOp)

	diffs := []SchemaDiff{}
	var violations []Violation
	context := path + " params"

	for _, name := range sortedKeys(refParams) {
		if _, ok := implParams[name]; ok {
			continue
		}
		diffs = append(diffs, SchemaDiff{
			Path:        context,
			Field:       name,
			Kind:        DiffMissing,
			RefValue:    paramType(refParams[name]),
			Description: fmt.Sprintf("Query parameter '%s' missing in implementation", name),
		})
		if !d.policy.Documented(ExceptionKey{Path: path, Method: method, Location: LocationParam, Field: name}) {
			violations = append(violations, Violation{
				Kind:     ViolationUndocumentedMissing,
				Path:     path,
				Method:   method,
				Field:    name,
				Location: LocationParam,
				Message:  fmt.Sprintf("Query parameter '%s' is missing but not documented in the policy exceptions", name),
			})
		}
	}

	for _, name := range sortedKeys(implParams) {
		if _, ok := refParams[name]; ok {
			continue
		}
		diffs = append(diffs, SchemaDiff{
			Path:        context,
			Field:       name,
			Kind:        DiffExtension,
			ImplValue:   paramType(implParams[name]),
			Description: fmt.Sprintf("Query parameter '%s' is an implementation extension", name),
		})
		markerText, _ := implParams[name]["description"].(string)
		if !d.policy.Marked(markerText) {
			violations = append(violations, Violation{
				Kind:     ViolationUnmarkedExtension,
				Path:     path,
				Method:   method,
				Field:    name,
				Location: LocationParam,
				Message:  fmt.Sprintf("Query parameter '%s' is an implementation extension but missing '%s' in description", name, d.policy.ExtensionMarker),
			})
		}
	}

	return diffs, violations
}

func bodySchema(op map[string]any) map[string]any {
	content := asMap(asMap(op["requestBody"])["content"])
	return asMap(asMap(content[mediaTypeJSON])["schema"])
}

func responseSchema(op map[string]any) map[string]any {
	resp := asMap(asMap(op["responses"])["200"])
	return asMap(asMap(asMap(resp["content"])[mediaTypeJSON])["schema"])
}

func queryParameters(op map[string]any) map[string]map[string]any {
	raw, _ := op["parameters"].([]any)
	out := map[string]map[string]any{}
	for _, item := range raw {
		param := asMap(item)
		if param["in"] != "query" {
			continue
		}
		name, _ := param["name"].(string)
		out[name] = param
	}
	return out
}

func paramType(param map[string]any) string {
	typ, _ := asMap(param["schema"])["type"].(string)
	return typ
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asStringSet(v any) map[string]bool {
	out := map[string]bool{}
	switch vals := v.(type) {
	case []any:
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out[s] = true
			}
		}
	case []string:
		for _, s := range vals {
			out[s] = true
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
