// Package in defines the inbound service contracts.
package in

import (
	"context"

	"github.com/berthd/berth/internal/domain"
)

// TokenService defines the contract for the registry token endpoint.
type TokenService interface {
	// Authenticate validates Basic credentials. It returns
	// domain.ErrInvalidCredentials when they match no account.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)

	// Authorize resolves the raw scope parameters and computes the
	// grants for the caller. Malformed scopes are dropped; scopes that
	// end up with no granted actions are omitted. It returns
	// domain.ErrAuthRequired when a scope needs an authenticated
	// caller, which aborts the whole request.
	Authorize(ctx context.Context, identity *domain.User, scopes []string) ([]domain.AccessGrant, error)

	// IssueToken mints a signed bearer token carrying the grants.
	// An empty audience falls back to the configured service name.
	IssueToken(ctx context.Context, identity *domain.User, audience string, grants []domain.AccessGrant) (string, error)
}
