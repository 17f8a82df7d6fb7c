package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/stixgraph/config"
	"github.com/c360/stixgraph/natsclient"
)

// JournalEntry records one executed mutation. The engine never rolls
// back a partially completed multi-step write; the journal is what makes
// a partial write discoverable, so reconciliation tooling can replay or
// repair it.
type JournalEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Operation  string    `json:"operation"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	IRI        string    `json:"iri"`
	QueryID    string    `json:"query_id"`
}

// Journal appends mutation records to a JetStream stream.
type Journal struct {
	client  *natsclient.Client
	subject string
	logger  *slog.Logger
}

// NewJournal provisions the journal stream and returns a journal bound
// to it. A disabled configuration returns nil, and a nil journal is safe
// to record against.
func NewJournal(ctx context.Context, client *natsclient.Client, cfg config.JournalConfig, logger *slog.Logger) (*Journal, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	_, err := client.EnsureStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    cfg.MaxAge,
	})
	if err != nil {
		return nil, err
	}

	return &Journal{
		client:  client,
		subject: cfg.Subject,
		logger:  logger.With("component", "journal"),
	}, nil
}

// Record appends one entry. Journal failures are logged and swallowed: a
// mutation that already ran must not be reported as failed because its
// audit record could not be written.
func (j *Journal) Record(entry JournalEntry) {
	if j == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		j.logger.Warn("journal entry not encodable", "error", err, "query_id", entry.QueryID)
		return
	}
	if err := j.client.PublishAsync(j.subject, payload); err != nil {
		j.logger.Warn("journal append failed",
			"error", err,
			"operation", entry.Operation,
			"entity_id", entry.EntityID,
		)
	}
}
