// Package out defines the outbound contracts consumed by the use cases.
package out

import (
	"context"

	"github.com/berthd/berth/internal/domain"
)

// RepositoryStore is the repository-data collaborator: lookups for the
// two naming conventions plus the two webhook mutations. Lookups return
// (nil, nil) when no matching repository exists; absence is a normal,
// common case (first push of a new image, external base images).
type RepositoryStore interface {
	// FindUserRepository looks up a non-official repository addressed
	// as owner/name.
	FindUserRepository(ctx context.Context, ownerUsername, name string) (*domain.Repository, error)

	// FindOfficialRepository looks up an official repository by its
	// bare name.
	FindOfficialRepository(ctx context.Context, name string) (*domain.Repository, error)

	// UpsertTag creates or overwrites the tag keyed by
	// (repositoryID, name), setting digest and size. Idempotent under
	// duplicate delivery.
	UpsertTag(ctx context.Context, repositoryID, name, digest string, size int64) error

	// IncrementPullCount atomically adds one to the repository's pull
	// counter. Must be race-free under concurrent deliveries.
	IncrementPullCount(ctx context.Context, repositoryID string) error
}

// Authenticator validates account credentials. It returns (nil, nil)
// when the credentials match no account; an error only signals a
// backend failure.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}
