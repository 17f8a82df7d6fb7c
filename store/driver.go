// Package store defines the driver boundary between the persistence
// engine and the triple store service. The engine hands a driver fully
// formed query text plus a stable query identifier and gets rows or a
// normalized error back; everything about how the store executes the
// query is the driver's business.
package store

import "context"

// Request is the unit of work handed to a driver. QueryID is a stable,
// human-readable identifier for the query shape ("select-by-id-origin",
// "insert-risk-response") used for store-side routing, logging and
// metrics. SPARQL is the complete query text.
type Request struct {
	QueryID string `json:"query_id"`
	SPARQL  string `json:"sparql"`
}

// Row is one solution row of a read query: variable name to bound value.
// Multi-valued predicates arrive as slices; single values arrive as
// scalars. Reducers own the normalization between the two.
type Row map[string]any

// Driver executes queries against a triple store.
//
// QueryByID returns nil with no error when nothing matches: absence is a
// result, not a failure. Mutations return only an error because the
// store's reply to a mutation carries no data the engine needs.
type Driver interface {
	// QueryByID executes a single-entity read and returns its row, or nil
	// when the entity does not exist.
	QueryByID(ctx context.Context, req Request) (Row, error)

	// QueryAll executes a list read and returns every matching row.
	QueryAll(ctx context.Context, req Request) ([]Row, error)

	// Create executes an insertion query.
	Create(ctx context.Context, req Request) error

	// Edit executes an update or attach/detach query.
	Edit(ctx context.Context, req Request) error

	// Delete executes a deletion query.
	Delete(ctx context.Context, req Request) error
}
