package store

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded driver invocation.
type Call struct {
	Method  string
	Request Request
}

// MemDriver is an in-process Driver for tests and local development. It
// serves stubbed rows keyed on query identifier plus an optional query
// text fragment, records every call in order and never talks to a real
// store.
type MemDriver struct {
	mu    sync.Mutex
	stubs []stub
	calls []Call
}

type stub struct {
	queryID  string
	contains string
	rows     []Row
	err      error
}

// NewMemDriver creates an empty driver. Reads answer no rows and
// mutations succeed until stubs say otherwise.
func NewMemDriver() *MemDriver {
	return &MemDriver{}
}

// Stub registers rows for requests whose QueryID matches and whose query
// text contains the given fragment. An empty fragment matches any query
// with that identifier. First matching stub wins.
func (d *MemDriver) Stub(queryID, contains string, rows ...Row) *MemDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stubs = append(d.stubs, stub{queryID: queryID, contains: contains, rows: rows})
	return d
}

// StubError registers a failure for matching requests.
func (d *MemDriver) StubError(queryID, contains string, err error) *MemDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stubs = append(d.stubs, stub{queryID: queryID, contains: contains, err: err})
	return d
}

// Calls returns a copy of every recorded invocation in execution order.
func (d *MemDriver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// QueryIDs returns the recorded query identifiers in execution order.
func (d *MemDriver) QueryIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		ids = append(ids, c.Request.QueryID)
	}
	return ids
}

// Reset clears the call log but keeps the stubs.
func (d *MemDriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

func (d *MemDriver) record(method string, req Request) ([]Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Method: method, Request: req})

	for _, s := range d.stubs {
		if s.queryID != req.QueryID {
			continue
		}
		if s.contains != "" && !strings.Contains(req.SPARQL, s.contains) {
			continue
		}
		return s.rows, s.err
	}
	return nil, nil
}

// QueryByID implements Driver.
func (d *MemDriver) QueryByID(_ context.Context, req Request) (Row, error) {
	rows, err := d.record("QueryByID", req)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// QueryAll implements Driver.
func (d *MemDriver) QueryAll(_ context.Context, req Request) ([]Row, error) {
	return d.record("QueryAll", req)
}

// Create implements Driver.
func (d *MemDriver) Create(_ context.Context, req Request) error {
	_, err := d.record("Create", req)
	return err
}

// Edit implements Driver.
func (d *MemDriver) Edit(_ context.Context, req Request) error {
	_, err := d.record("Edit", req)
	return err
}

// Delete implements Driver.
func (d *MemDriver) Delete(_ context.Context, req Request) error {
	_, err := d.record("Delete", req)
	return err
}
