package in

import (
	"context"

	"github.com/berthd/berth/internal/domain"
)

// WebhookService defines the contract for registry notification ingestion.
type WebhookService interface {
	// Ingest applies a notification batch. Individual events are
	// processed in isolation: a skipped or failed event never aborts
	// its siblings. A *webhook.MissingFieldError is returned before
	// any mutation when a push/pull event lacks a required target
	// field.
	Ingest(ctx context.Context, batch domain.Notification) error
}
