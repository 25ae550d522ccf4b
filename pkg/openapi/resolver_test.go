package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func widgetRoot() map[string]any {
	return map[string]any{
		"components": map[string]any{
			"schemas": map[string]any{
				"Widget": map[string]any{
					"type":        "object",
					"description": "A widget.",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
					"required": []any{"name"},
				},
			},
		},
	}
}

func TestResolverRefs(t *testing.T) {
	t.Run("resolves component references", func(t *testing.T) {
		r := NewResolver(NewDocument(widgetRoot()))

		resolved, ok := r.Resolve(map[string]any{"$ref": "#/components/schemas/Widget"}).(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, "object", resolved["type"])

		props, _ := resolved["properties"].(map[string]any)
		name, _ := props["name"].(map[string]any)
		assert.Equal(t, "string", name["type"])
	})

	t.Run("sibling keys override the target", func(t *testing.T) {
		r := NewResolver(NewDocument(widgetRoot()))

		resolved, _ := r.Resolve(map[string]any{
			"$ref":        "#/components/schemas/Widget",
			"description": "overridden locally",
		}).(map[string]any)
		assert.Equal(t, "overridden locally", resolved["description"])
		assert.Equal(t, "object", resolved["type"])
	})

	t.Run("dangling reference degrades to empty schema", func(t *testing.T) {
		r := NewResolver(NewDocument(widgetRoot()))

		resolved, ok := r.Resolve(map[string]any{"$ref": "#/components/schemas/Nope"}).(map[string]any)
		assert.True(t, ok)
		assert.Empty(t, resolved)
	})

	t.Run("external reference degrades to empty schema", func(t *testing.T) {
		r := NewResolver(NewDocument(widgetRoot()))

		resolved, ok := r.Resolve(map[string]any{"$ref": "https://example.com/schemas.json#/Widget"}).(map[string]any)
		assert.True(t, ok)
		assert.Empty(t, resolved)
	})

	t.Run("non-string reference degrades to empty schema", func(t *testing.T) {
		r := NewResolver(NewDocument(widgetRoot()))

		resolved, ok := r.Resolve(map[string]any{"$ref": 42}).(map[string]any)
		assert.True(t, ok)
		assert.Empty(t, resolved)
	})

	t.Run("resolved references are cached", func(t *testing.T) {
		root := widgetRoot()
		r := NewResolver(NewDocument(root))
		ref := map[string]any{"$ref": "#/components/schemas/Widget"}

		first := r.Resolve(ref)
		schemas := root["components"].(map[string]any)["schemas"].(map[string]any)
		delete(schemas, "Widget")
		second := r.Resolve(ref)
		assert.Equal(t, first, second)
	})

	t.Run("cyclic references stop at the depth cap", func(t *testing.T) {
		r := NewResolver(NewDocument(map[string]any{
			"components": map[string]any{
				"schemas": map[string]any{
					"Node": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"next": map[string]any{"$ref": "#/components/schemas/Node"},
						},
					},
				},
			},
		}))

		resolved, _ := r.Resolve(map[string]any{"$ref": "#/components/schemas/Node"}).(map[string]any)

		capped := false
		cur := resolved
		for i := 0; i < 100; i++ {
			if cur["type"] == TypeUnresolved {
				capped = true
				break
			}
			assert.Equal(t, "object", cur["type"])
			props, _ := cur["properties"].(map[string]any)
			next, ok := props["next"].(map[string]any)
			if !ok {
				break
			}
			cur = next
		}
		assert.True(t, capped)
	})
}

func TestResolverAllOf(t *testing.T) {
	t.Run("merges properties and required across branches", func(t *testing.T) {
		r := NewResolver(NewDocument(nil))

		resolved, _ := r.Resolve(map[string]any{
			"allOf": []any{
				map[string]any{
					"type":       "object",
					"properties": map[string]any{"id": map[string]any{"type": "string"}},
					"required":   []any{"id"},
				},
				map[string]any{
					"properties": map[string]any{
						"id":    map[string]any{"type": "integer"},
						"count": map[string]any{"type": "integer"},
					},
					"required": []any{"count", "id"},
				},
			},
		}).(map[string]any)

		assert.Equal(t, "object", resolved["type"])
		assert.Equal(t, []string{"id", "count"}, resolved["required"])

		props, _ := resolved["properties"].(map[string]any)
		id, _ := props["id"].(map[string]any)
		count, _ := props["count"].(map[string]any)
		assert.Equal(t, "integer", id["type"], "later branches win on collision")
		assert.Equal(t, "integer", count["type"])
	})

	t.Run("keys next to allOf overlay the merge", func(t *testing.T) {
		r := NewResolver(NewDocument(widgetRoot()))

		resolved, _ := r.Resolve(map[string]any{
			"allOf": []any{
				map[string]any{"$ref": "#/components/schemas/Widget"},
			},
			"description": "combined",
		}).(map[string]any)

		assert.Equal(t, "combined", resolved["description"])
		props, _ := resolved["properties"].(map[string]any)
		assert.Contains(t, props, "name")
		assert.Equal(t, []string{"name"}, resolved["required"])
	})

	t.Run("required union ignores nesting", func(t *testing.T) {
		branchA := map[string]any{"required": []any{"a", "b"}}
		branchB := map[string]any{"required": []any{"b", "c"}}
		branchC := map[string]any{"required": []any{"c", "d"}}

		left, _ := NewResolver(NewDocument(nil)).Resolve(map[string]any{
			"allOf": []any{
				map[string]any{"allOf": []any{branchA, branchB}},
				branchC,
			},
		}).(map[string]any)
		right, _ := NewResolver(NewDocument(nil)).Resolve(map[string]any{
			"allOf": []any{
				branchA,
				map[string]any{"allOf": []any{branchB, branchC}},
			},
		}).(map[string]any)

		assert.Equal(t, []string{"a", "b", "c", "d"}, left["required"])
		assert.Equal(t, []string{"a", "b", "c", "d"}, right["required"])
	})

	t.Run("malformed allOf still yields an object", func(t *testing.T) {
		r := NewResolver(NewDocument(nil))

		resolved, _ := r.Resolve(map[string]any{"allOf": "not a list"}).(map[string]any)
		assert.Equal(t, "object", resolved["type"])
		assert.Empty(t, resolved["properties"])
	})
}

func TestResolverComposition(t *testing.T) {
	t.Run("oneOf picks the first non-null branch and marks it nullable", func(t *testing.T) {
		r := NewResolver(NewDocument(nil))

		resolved, _ := r.Resolve(map[string]any{
			"oneOf": []any{
				map[string]any{"type": "null"},
				map[string]any{"type": "string", "description": "maybe"},
			},
		}).(map[string]any)

		assert.Equal(t, "string", resolved["type"])
		assert.Equal(t, "maybe", resolved["description"])
		assert.Equal(t, true, resolved[nullableKey])
	})

	t.Run("null plus branch equals the branch made nullable", func(t *testing.T) {
		direct, _ := NewResolver(NewDocument(widgetRoot())).Resolve(map[string]any{
			"$ref": "#/components/schemas/Widget",
		}).(map[string]any)
		expected := make(map[string]any, len(direct)+1)
		for k, v := range direct {
			expected[k] = v
		}
		expected[nullableKey] = true

		got := NewResolver(NewDocument(widgetRoot())).Resolve(map[string]any{
			"oneOf": []any{
				map[string]any{"type": "null"},
				map[string]any{"$ref": "#/components/schemas/Widget"},
			},
		})
		assert.Equal(t, expected, got)
	})

	t.Run("anyOf is used when oneOf is absent", func(t *testing.T) {
		r := NewResolver(NewDocument(nil))

		resolved, _ := r.Resolve(map[string]any{
			"anyOf": []any{map[string]any{"type": "integer"}},
		}).(map[string]any)
		assert.Equal(t, "integer", resolved["type"])
		assert.Equal(t, true, resolved[nullableKey])
	})

	t.Run("oneOf wins over anyOf when both are present", func(t *testing.T) {
		r := NewResolver(NewDocument(nil))

		resolved, _ := r.Resolve(map[string]any{
			"oneOf": []any{map[string]any{"type": "string"}},
			"anyOf": []any{map[string]any{"type": "integer"}},
		}).(map[string]any)
		assert.Equal(t, "string", resolved["type"])
	})

	t.Run("only null branches collapse to nullable null", func(t *testing.T) {
		r := NewResolver(NewDocument(nil))

		resolved := r.Resolve(map[string]any{
			"oneOf": []any{map[string]any{"type": "null"}},
		})
		assert.Equal(t, map[string]any{"type": "null", nullableKey: true}, resolved)
	})

	t.Run("references to null schemas are filtered like null literals", func(t *testing.T) {
		r := NewResolver(NewDocument(map[string]any{
			"components": map[string]any{
				"schemas": map[string]any{
					"Nothing": map[string]any{"type": "null"},
				},
			},
		}))

		resolved, _ := r.Resolve(map[string]any{
			"oneOf": []any{
				map[string]any{"$ref": "#/components/schemas/Nothing"},
				map[string]any{"type": "boolean"},
			},
		}).(map[string]any)
		assert.Equal(t, "boolean", resolved["type"])
		assert.Equal(t, true, resolved[nullableKey])
	})

	t.Run("empty oneOf collapses to nullable null", func(t *testing.T) {
		r := NewResolver(NewDocument(nil))

		resolved := r.Resolve(map[string]any{"oneOf": []any{}})
		assert.Equal(t, map[string]any{"type": "null", nullableKey: true}, resolved)
	})
}

func TestResolverLeaves(t *testing.T) {
	t.Run("non-map nodes pass through", func(t *testing.T) {
		r := NewResolver(NewDocument(nil))
		assert.Equal(t, "hello", r.Resolve("hello"))
		assert.Nil(t, r.Resolve(nil))
	})

	t.Run("nested containers are resolved in place", func(t *testing.T) {
		r := NewResolver(NewDocument(widgetRoot()))

		resolved, _ := r.Resolve(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"tags": map[string]any{
					"type":  "array",
					"items": map[string]any{"$ref": "#/components/schemas/Widget"},
				},
			},
			"additionalProperties": map[string]any{"$ref": "#/components/schemas/Widget"},
		}).(map[string]any)

		props, _ := resolved["properties"].(map[string]any)
		tags, _ := props["tags"].(map[string]any)
		items, _ := tags["items"].(map[string]any)
		assert.Equal(t, "object", items["type"])

		ap, _ := resolved["additionalProperties"].(map[string]any)
		assert.Equal(t, "object", ap["type"])
	})

	t.Run("resolution is idempotent", func(t *testing.T) {
		r := NewResolver(NewDocument(widgetRoot()))

		once := r.Resolve(map[string]any{
			"allOf": []any{
				map[string]any{"$ref": "#/components/schemas/Widget"},
				map[string]any{
					"properties": map[string]any{
						"state": map[string]any{
							"oneOf": []any{
								map[string]any{"type": "null"},
								map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		})
		twice := r.Resolve(once)
		assert.Equal(t, once, twice)
	})
}
