// Package audit records every mutating registry action in an append-only log
// external to the registry file, so operator corrections stay explainable.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store persists audit entries. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}

// Publisher captures structured audit entries. It fills in the ID and
// timestamp and uses the store for persistence so tests can swap sinks.
type Publisher struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger, now: time.Now}
}

// Emit appends one entry. Audit failures are logged but never fail the
// operation that produced them.
func (p *Publisher) Emit(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = p.now()
	}
	if err := p.store.Append(ctx, entry); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", entry.Action,
			"group_id", entry.GroupID,
			"error", err,
		)
	}
}
