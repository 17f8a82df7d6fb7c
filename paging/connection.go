// Package paging implements the cursor-based pagination envelope and the
// filter-group protocol shared by every list resolver, independent of
// entity type.
package paging

import (
	"encoding/base64"
	"strings"
)

// OrderMode selects the direction of list ordering.
type OrderMode string

// Ordering directions.
const (
	OrderAsc  OrderMode = "asc"
	OrderDesc OrderMode = "desc"
)

// ListArgs is the shared contract every list resolver consumes.
type ListArgs struct {
	First     int
	Offset    int
	Filters   *FilterGroup
	OrderedBy string
	OrderMode OrderMode
}

// PageInfo describes the position of a page within the full result set.
type PageInfo struct {
	StartCursor     string `json:"startCursor"`
	EndCursor       string `json:"endCursor"`
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	// GlobalCount is the size of the total matching result set before the
	// current page's slicing, not the page size.
	GlobalCount int `json:"globalCount"`
}

// Edge pairs a node with its opaque cursor.
type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// Connection is the pagination envelope returned by list operations.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// EncodeCursor builds the opaque cursor for a node identifier.
func EncodeCursor(id string) string {
	return base64.StdEncoding.EncodeToString([]byte("cursor:" + id))
}

// DecodeCursor recovers the node identifier from a cursor. ok is false for
// cursors this engine did not mint.
func DecodeCursor(cursor string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return "", false
	}
	id, found := strings.CutPrefix(string(raw), "cursor:")
	if !found || id == "" {
		return "", false
	}
	return id, true
}

// Paginate slices the full, already filtered and ordered match set into a
// connection. nodes must be the complete match set so GlobalCount and the
// page flags are computed against the pre-slice total.
func Paginate[T any](nodes []T, offset, first int, idOf func(T) string) *Connection[T] {
	total := len(nodes)

	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	page := nodes[offset:]
	if first > 0 && len(page) > first {
		page = page[:first]
	}

	edges := make([]Edge[T], 0, len(page))
	for _, node := range page {
		edges = append(edges, Edge[T]{Cursor: EncodeCursor(idOf(node)), Node: node})
	}

	info := PageInfo{
		GlobalCount:     total,
		HasNextPage:     offset+len(edges) < total,
		HasPreviousPage: offset > 0 && len(edges) > 0,
	}
	if len(edges) > 0 {
		info.StartCursor = edges[0].Cursor
		info.EndCursor = edges[len(edges)-1].Cursor
	}

	return &Connection[T]{Edges: edges, PageInfo: info}
}

// EmptyConnection is the empty-result sentinel list operations return when
// nothing matches. An empty result is not an error.
func EmptyConnection[T any]() *Connection[T] {
	return &Connection[T]{Edges: []Edge[T]{}, PageInfo: PageInfo{}}
}
