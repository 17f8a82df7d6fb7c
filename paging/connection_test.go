package paging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	ID   string
	Name string
}

func testNodes(n int) []node {
	nodes := make([]node, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, node{ID: fmt.Sprintf("risk-response--%03d", i), Name: fmt.Sprintf("response %d", i)})
	}
	return nodes
}

func nodeID(n node) string { return n.ID }

func TestCursorRoundTrip(t *testing.T) {
	cursor := EncodeCursor("risk-response--001")
	id, ok := DecodeCursor(cursor)
	require.True(t, ok)
	assert.Equal(t, "risk-response--001", id)
}

func TestDecodeCursorRejectsForeign(t *testing.T) {
	tests := []string{"", "not base64 !!!", EncodeCursor(""), "Zm9v"}
	for _, cursor := range tests {
		_, ok := DecodeCursor(cursor)
		assert.False(t, ok, "cursor %q", cursor)
	}
}

func TestPaginateFirstPage(t *testing.T) {
	conn := Paginate(testNodes(10), 0, 3, nodeID)

	require.Len(t, conn.Edges, 3)
	assert.Equal(t, 10, conn.PageInfo.GlobalCount)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.False(t, conn.PageInfo.HasPreviousPage)
	assert.Equal(t, conn.Edges[0].Cursor, conn.PageInfo.StartCursor)
	assert.Equal(t, conn.Edges[2].Cursor, conn.PageInfo.EndCursor)
}

func TestPaginateMiddleAndLastPages(t *testing.T) {
	nodes := testNodes(10)

	middle := Paginate(nodes, 3, 3, nodeID)
	require.Len(t, middle.Edges, 3)
	assert.True(t, middle.PageInfo.HasNextPage)
	assert.True(t, middle.PageInfo.HasPreviousPage)
	assert.Equal(t, "risk-response--003", middle.Edges[0].Node.ID)

	last := Paginate(nodes, 9, 3, nodeID)
	require.Len(t, last.Edges, 1)
	assert.False(t, last.PageInfo.HasNextPage)
	assert.True(t, last.PageInfo.HasPreviousPage)
}

func TestPaginateOffsetBeyondEnd(t *testing.T) {
	conn := Paginate(testNodes(4), 10, 3, nodeID)

	assert.Empty(t, conn.Edges)
	assert.Equal(t, 4, conn.PageInfo.GlobalCount)
	assert.False(t, conn.PageInfo.HasNextPage)
	// No edges returned, so there is no previous page to walk back from.
	assert.False(t, conn.PageInfo.HasPreviousPage)
}

func TestPaginateInvariants(t *testing.T) {
	// edges.length <= first and globalCount >= edges.length for all
	// combinations.
	for _, total := range []int{0, 1, 5, 20} {
		for _, offset := range []int{0, 3, 25} {
			for _, first := range []int{1, 5, 50} {
				conn := Paginate(testNodes(total), offset, first, nodeID)
				assert.LessOrEqual(t, len(conn.Edges), first)
				assert.GreaterOrEqual(t, conn.PageInfo.GlobalCount, len(conn.Edges))
			}
		}
	}
}

func TestPaginateZeroFirstReturnsAll(t *testing.T) {
	conn := Paginate(testNodes(4), 0, 0, nodeID)
	assert.Len(t, conn.Edges, 4)
	assert.False(t, conn.PageInfo.HasNextPage)
}

func TestEmptyConnection(t *testing.T) {
	conn := EmptyConnection[node]()
	assert.NotNil(t, conn.Edges)
	assert.Empty(t, conn.Edges)
	assert.Equal(t, 0, conn.PageInfo.GlobalCount)
}
