package sparql

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

// FieldTree is the set of fields a caller actually requested, nested for
// relationship fields. A nil tree means "everything": builders project all
// predicates and resolvers materialize all relationships.
type FieldTree struct {
	children map[string]*FieldTree
}

// NewFieldTree creates a tree containing the given top-level fields.
func NewFieldTree(names ...string) *FieldTree {
	t := &FieldTree{children: make(map[string]*FieldTree)}
	for _, name := range names {
		t.children[name] = nil
	}
	return t
}

// Add inserts a nested field path into the tree and returns the tree for
// chaining.
func (t *FieldTree) Add(path ...string) *FieldTree {
	node := t
	for _, name := range path {
		child := node.children[name]
		if child == nil {
			child = &FieldTree{children: make(map[string]*FieldTree)}
			node.children[name] = child
		}
		node = child
	}
	return t
}

// Has reports whether a top-level field was requested. A nil tree requests
// everything.
func (t *FieldTree) Has(name string) bool {
	if t == nil {
		return true
	}
	_, ok := t.children[name]
	return ok
}

// Child returns the nested tree for a relationship field. The result may
// be nil, which again means "everything below this point".
func (t *FieldTree) Child(name string) *FieldTree {
	if t == nil {
		return nil
	}
	return t.children[name]
}

// Fields returns the requested top-level field names in sorted order.
func (t *FieldTree) Fields() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.children))
	for name := range t.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether the tree explicitly requests no fields.
func (t *FieldTree) IsEmpty() bool {
	return t != nil && len(t.children) == 0
}

// FromSelectionSet builds a field tree from a GraphQL selection set, so
// resolvers hosted in a GraphQL layer can push their projection straight
// into query generation. Fragments are flattened; introspection fields
// are ignored.
func FromSelectionSet(set ast.SelectionSet) *FieldTree {
	if len(set) == 0 {
		return nil
	}
	t := NewFieldTree()
	collectSelections(t, set)
	return t
}

// collectSelections walks one selection set level into the tree.
func collectSelections(t *FieldTree, set ast.SelectionSet) {
	for _, sel := range set {
		switch field := sel.(type) {
		case *ast.Field:
			if len(field.Name) > 2 && field.Name[:2] == "__" {
				continue
			}
			if len(field.SelectionSet) == 0 {
				t.Add(field.Name)
				continue
			}
			child := &FieldTree{children: make(map[string]*FieldTree)}
			collectSelections(child, field.SelectionSet)
			t.children[field.Name] = child
		case *ast.FragmentSpread:
			if field.Definition != nil {
				collectSelections(t, field.Definition.SelectionSet)
			}
		case *ast.InlineFragment:
			collectSelections(t, field.SelectionSet)
		}
	}
}
