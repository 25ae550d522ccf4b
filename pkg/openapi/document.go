package openapi

import (
	"sort"
)

// MethodOrder is the fixed order in which operations of a path item are
// visited and reported.
var MethodOrder = []string{"get", "post", "put", "patch", "delete"}

// Document wraps one decoded OpenAPI document tree.
// The tree is treated as read-only: resolvers and comparers copy nodes
// before rewriting them, so one Document can back any number of runs.
type Document struct {
	root map[string]any
}

// NewDocument creates a Document from a decoded root object.
// A nil root yields an empty document rather than an error.
func NewDocument(root map[string]any) *Document {
	if root == nil {
		root = map[string]any{}
	}
	return &Document{root: root}
}

// Root returns the underlying tree.
func (d *Document) Root() map[string]any {
	return d.root
}

// Version returns info.version, or an empty string when absent.
func (d *Document) Version() string {
	info, _ := d.root["info"].(map[string]any)
	version, _ := info["version"].(string)
	return version
}

// Paths returns the paths object. A missing or malformed paths key yields
// an empty map so callers can iterate without nil checks.
func (d *Document) Paths() map[string]any {
	paths, _ := d.root["paths"].(map[string]any)
	if paths == nil {
		return map[string]any{}
	}
	return paths
}

// SortedPaths returns all path templates in lexical order.
func (d *Document) SortedPaths() []string {
	paths := d.Paths()
	res := make([]string, 0, len(paths))
	for path := range paths {
		res = append(res, path)
	}
	sort.Strings(res)
	return res
}

// Operations returns the method to operation mapping of a path item.
// Non-operation keys such as path-level parameters stay in the result;
// callers select methods explicitly.
func (d *Document) Operations(path string) map[string]any {
	item, _ := d.Paths()[path].(map[string]any)
	if item == nil {
		return map[string]any{}
	}
	return item
}

// Operation returns one operation node, or nil when the path or method is
// not defined.
func (d *Document) Operation(path, method string) map[string]any {
	op, _ := d.Operations(path)[method].(map[string]any)
	return op
}
