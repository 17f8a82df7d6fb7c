package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/stixgraph/errors"
	"github.com/c360/stixgraph/metric"
	"github.com/c360/stixgraph/natsclient"
)

// NATSDriver executes queries by forwarding them to the triple store
// service over NATS request/reply. Subjects are derived from a
// configured prefix:
//
//	{prefix}.query.id       single-entity reads
//	{prefix}.query.all      list reads
//	{prefix}.mutate.create  insertions
//	{prefix}.mutate.edit    updates and edge changes
//	{prefix}.mutate.delete  deletions
type NATSDriver struct {
	client  *natsclient.Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	metrics *metric.Registry
}

// NATSOption configures the driver.
type NATSOption func(*NATSDriver)

// WithDriverLogger sets the logger for query round trips.
func WithDriverLogger(logger *slog.Logger) NATSOption {
	return func(d *NATSDriver) {
		d.logger = logger
	}
}

// WithDriverMetrics attaches a metric registry. Without one the driver
// records nothing.
func WithDriverMetrics(m *metric.Registry) NATSOption {
	return func(d *NATSDriver) {
		d.metrics = m
	}
}

// WithDriverTimeout bounds each round trip.
func WithDriverTimeout(timeout time.Duration) NATSOption {
	return func(d *NATSDriver) {
		d.timeout = timeout
	}
}

// NewNATSDriver creates a driver over an established NATS client.
func NewNATSDriver(client *natsclient.Client, subjectPrefix string, opts ...NATSOption) *NATSDriver {
	d := &NATSDriver{
		client:  client,
		prefix:  subjectPrefix,
		timeout: 10 * time.Second,
		logger:  slog.Default().With("component", "store"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// reply is the wire envelope the store service answers with. A reply
// either carries rows or a structured error body.
type reply struct {
	Rows  []Row      `json:"rows,omitempty"`
	Error *replyBody `json:"error,omitempty"`

	// Older store services answer failures flat instead of nested.
	Success    *bool  `json:"success,omitempty"`
	StatusText string `json:"statusText,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

type replyBody struct {
	StatusText string `json:"statusText"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// QueryByID implements Driver. A reply with no rows means the entity
// does not exist, which is not an error here.
func (d *NATSDriver) QueryByID(ctx context.Context, req Request) (Row, error) {
	rows, err := d.roundTrip(ctx, d.prefix+".query.id", req)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// QueryAll implements Driver.
func (d *NATSDriver) QueryAll(ctx context.Context, req Request) ([]Row, error) {
	return d.roundTrip(ctx, d.prefix+".query.all", req)
}

// Create implements Driver.
func (d *NATSDriver) Create(ctx context.Context, req Request) error {
	_, err := d.roundTrip(ctx, d.prefix+".mutate.create", req)
	return err
}

// Edit implements Driver.
func (d *NATSDriver) Edit(ctx context.Context, req Request) error {
	_, err := d.roundTrip(ctx, d.prefix+".mutate.edit", req)
	return err
}

// Delete implements Driver.
func (d *NATSDriver) Delete(ctx context.Context, req Request) error {
	_, err := d.roundTrip(ctx, d.prefix+".mutate.delete", req)
	return err
}

// roundTrip sends one request and normalizes every failure shape into a
// StoreError so callers see one error type regardless of where the
// failure happened.
func (d *NATSDriver) roundTrip(ctx context.Context, subject string, req Request) ([]Row, error) {
	start := time.Now()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.WrapStore(err, "store", req.QueryID, "encode request")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	data, err := d.client.Request(ctx, subject, payload)
	if err != nil {
		d.metrics.ObserveStoreError(req.QueryID)
		return nil, &errors.StoreError{
			StatusText: "transport failure",
			Message:    fmt.Sprintf("%s: %s", subject, err),
			Err:        err,
		}
	}

	rows, err := decodeReply(data)
	if err != nil {
		d.metrics.ObserveStoreError(req.QueryID)
		return nil, err
	}

	d.logger.Debug("store round trip",
		"subject", subject,
		"query_id", req.QueryID,
		"rows", len(rows),
		"duration", time.Since(start),
	)
	return rows, nil
}

// decodeReply parses a store reply, normalizing both failure shapes
// (nested error body, flat legacy body) into a StoreError.
func decodeReply(data []byte) ([]Row, error) {
	var rep reply
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, &errors.StoreError{
			StatusText: "malformed reply",
			Message:    err.Error(),
			Err:        err,
		}
	}

	if rep.Error != nil {
		return nil, &errors.StoreError{
			StatusText: rep.Error.StatusText,
			Code:       rep.Error.Code,
			Message:    rep.Error.Message,
		}
	}
	if rep.Success != nil && !*rep.Success {
		return nil, &errors.StoreError{
			StatusText: rep.StatusText,
			Code:       rep.Code,
			Message:    rep.Message,
		}
	}

	return rep.Rows, nil
}
