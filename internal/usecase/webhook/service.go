// Package webhook implements ingestion of registry notification batches.
package webhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/zerowrap"

	"github.com/berthd/berth/internal/boundaries/out"
	"github.com/berthd/berth/internal/domain"
)

// MissingFieldError reports a push/pull event missing a required
// target field. It is raised before any event is applied, so a bad
// batch has no partial side effects.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

// Service implements the WebhookService interface.
type Service struct {
	repos out.RepositoryStore
	log   zerowrap.Logger
}

// NewService creates a new webhook ingestion service.
func NewService(repos out.RepositoryStore, log zerowrap.Logger) *Service {
	return &Service{
		repos: repos,
		log:   log,
	}
}

// Ingest applies a notification batch.
//
// The batch is validated first: a push/pull event missing a required
// target field fails the whole request with *MissingFieldError before
// anything is written. Processing then handles each event in
// isolation; duplicate, out-of-order or otherwise unusable events are
// skipped with a log line and never abort their siblings, so
// redelivering a whole batch stays safe.
func (s *Service) Ingest(ctx context.Context, batch domain.Notification) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Ingest",
		zerowrap.FieldCount:   len(batch.Events),
	})
	log := zerowrap.FromCtx(ctx)

	for _, event := range batch.Events {
		if !isMeaningfulAction(event.Action) {
			continue
		}
		if missing := event.MissingField(); missing != "" {
			log.Debug().
				Str(zerowrap.FieldAction, event.Action).
				Str("field", missing).
				Msg("rejecting batch with incomplete event")
			return &MissingFieldError{Field: missing}
		}
	}

	for _, event := range batch.Events {
		s.processEvent(ctx, event, log)
	}

	log.Debug().Msg("notification batch processed")
	return nil
}

// processEvent applies a single event. All failures are soft: they are
// logged and the batch continues.
func (s *Service) processEvent(ctx context.Context, event domain.Event, log zerowrap.Logger) {
	if !isMeaningfulAction(event.Action) {
		log.Debug().Str(zerowrap.FieldAction, event.Action).Msg("ignoring event action")
		return
	}

	fullName := *event.Target.Repository

	if event.Target.Tag == "" {
		log.Warn().Str("repository", fullName).Msg("skipping event without tag name")
		return
	}

	repo, err := s.resolveRepository(ctx, fullName)
	if err != nil {
		log.Error().Err(err).Str("repository", fullName).Msg("repository lookup failed, skipping event")
		return
	}
	if repo == nil {
		log.Warn().Str("repository", fullName).Msg("repository not found, skipping event")
		return
	}

	switch event.Action {
	case domain.EventActionPush:
		err := s.repos.UpsertTag(ctx, repo.ID, event.Target.Tag, *event.Target.Digest, *event.Target.Size)
		if err != nil {
			log.Error().Err(err).
				Str("repository", fullName).
				Str("tag", event.Target.Tag).
				Msg("failed to upsert tag, skipping event")
			return
		}
		log.Info().
			Str("repository", fullName).
			Str("tag", event.Target.Tag).
			Msg("tag recorded")

	case domain.EventActionPull:
		if err := s.repos.IncrementPullCount(ctx, repo.ID); err != nil {
			log.Error().Err(err).Str("repository", fullName).Msg("failed to increment pull count, skipping event")
			return
		}
		log.Debug().Str("repository", fullName).Msg("pull count incremented")
	}
}

// resolveRepository maps an event's repository name to a record, using
// the same two-segment/one-segment convention as token scopes.
func (s *Service) resolveRepository(ctx context.Context, fullName string) (*domain.Repository, error) {
	parts := strings.Split(fullName, "/")
	switch len(parts) {
	case 2:
		return s.repos.FindUserRepository(ctx, parts[0], parts[1])
	case 1:
		return s.repos.FindOfficialRepository(ctx, parts[0])
	default:
		return nil, nil
	}
}

func isMeaningfulAction(action string) bool {
	return action == domain.EventActionPush || action == domain.EventActionPull
}
