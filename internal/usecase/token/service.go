// Package token implements the registry token use case: scope
// resolution, the per-action access decision, and token signing.
package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/golang-jwt/jwt/v5"

	"github.com/berthd/berth/internal/boundaries/out"
	"github.com/berthd/berth/internal/domain"
)

// DefaultTokenLifetime is the fixed validity window for issued tokens.
// The registry daemon re-authenticates per session; there is no refresh.
const DefaultTokenLifetime = 5 * time.Minute

// AnonymousSubject is the subject claim for unauthenticated callers.
const AnonymousSubject = "anonymous"

// Config holds the token issuer configuration. The signing key and
// certificate are loaded once at startup; the service holds no other
// state between requests.
type Config struct {
	Issuer        string
	Service       string // default audience when the request names none
	TokenLifetime time.Duration
	SigningKey    *rsa.PrivateKey
	Certificate   string // PEM-encoded public certificate for the x5c header
}

// Service implements the TokenService interface.
type Service struct {
	config Config
	repos  out.RepositoryStore
	auth   out.Authenticator
	x5c    []string
	log    zerowrap.Logger
}

// NewService creates a new token service.
func NewService(config Config, repos out.RepositoryStore, auth out.Authenticator, log zerowrap.Logger) *Service {
	if config.TokenLifetime <= 0 {
		config.TokenLifetime = DefaultTokenLifetime
	}

	x5c := CertificateChain(config.Certificate)
	if len(x5c) == 0 {
		log.Warn().Msg("no public certificate configured, tokens will carry an empty x5c chain")
	}

	return &Service{
		config: config,
		repos:  repos,
		auth:   auth,
		x5c:    x5c,
		log:    log,
	}
}

// Authenticate validates Basic credentials against the account store.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Authenticate",
		"username":            username,
	})
	log := zerowrap.FromCtx(ctx)

	user, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, log.WrapErr(err, "failed to check credentials")
	}
	if user == nil {
		log.Debug().Msg("credential validation failed")
		return nil, domain.ErrInvalidCredentials
	}

	log.Debug().Msg("credential validation successful")
	return user, nil
}

// Authorize parses the raw scope parameters, resolves each to a
// repository record and computes the granted actions per scope.
//
// Malformed scopes are dropped. Scopes whose granted action set ends up
// empty are omitted entirely. domain.ErrAuthRequired aborts the whole
// request on the first scope that needs an authenticated caller.
func (s *Service) Authorize(ctx context.Context, identity *domain.User, scopes []string) ([]domain.AccessGrant, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Authorize",
	})
	log := zerowrap.FromCtx(ctx)

	var grants []domain.AccessGrant

	for _, raw := range scopes {
		if raw == "" {
			continue
		}

		scope, err := domain.ParseScope(raw)
		if err != nil {
			log.Debug().Err(err).Str("scope", raw).Msg("dropping malformed scope")
			continue
		}

		repo, err := s.resolveRepository(ctx, scope.Name)
		if err != nil {
			return nil, log.WrapErr(err, "failed to resolve repository")
		}

		granted, err := s.grantActions(identity, repo, scope)
		if err != nil {
			return nil, err
		}
		if len(granted) == 0 {
			continue
		}

		grants = append(grants, domain.AccessGrant{
			Type:    scope.Type,
			Name:    scope.Name,
			Actions: granted,
		})
	}

	return grants, nil
}

// resolveRepository maps a scope resource name to a repository record.
// Two segments address a user repository, one segment an official one.
// Any other shape, and a missing row, resolve to nil.
func (s *Service) resolveRepository(ctx context.Context, name string) (*domain.Repository, error) {
	parts := strings.Split(name, "/")
	switch len(parts) {
	case 2:
		return s.repos.FindUserRepository(ctx, parts[0], parts[1])
	case 1:
		return s.repos.FindOfficialRepository(ctx, parts[0])
	default:
		return nil, nil
	}
}

// grantActions applies the access decision table for one scope.
//
// The private-pull-by-non-owner and push-to-unknown-repository rows
// deliberately grant nothing without demanding authentication, while
// the anonymous rows against an existing repository hard-fail with
// ErrAuthRequired. The asymmetry avoids confirming the existence of
// private repositories to anonymous callers and is part of the
// protocol contract here.
func (s *Service) grantActions(identity *domain.User, repo *domain.Repository, scope *domain.Scope) ([]string, error) {
	var granted []string

	isPublic := repo != nil && repo.IsPublic()

	if scope.RequestsAction(domain.ScopeActionPull) {
		switch {
		case isPublic:
			granted = append(granted, domain.ScopeActionPull)
		case repo != nil && repo.OwnedBy(identity):
			granted = append(granted, domain.ScopeActionPull)
		case repo != nil && identity == nil:
			// Private repository, anonymous caller.
			return nil, domain.ErrAuthRequired
		case repo == nil && identity != nil:
			// Unknown repository but authenticated caller: permit the
			// pull so external base images keep working.
			granted = append(granted, domain.ScopeActionPull)
		}
	}

	if scope.RequestsAction(domain.ScopeActionPush) {
		switch {
		case identity != nil && repo != nil:
			if repo.OwnedBy(identity) {
				granted = append(granted, domain.ScopeActionPush)
			}
		case repo != nil && identity == nil:
			return nil, domain.ErrAuthRequired
		}
	}

	return granted, nil
}

// IssueToken mints a signed bearer token carrying the grants as the
// access claim. Two calls with the same inputs yield tokens that differ
// only in jti and timestamps.
func (s *Service) IssueToken(ctx context.Context, identity *domain.User, audience string, grants []domain.AccessGrant) (string, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "IssueToken",
	})
	log := zerowrap.FromCtx(ctx)

	subject := AnonymousSubject
	if identity != nil {
		subject = identity.Username
	}
	if audience == "" {
		audience = s.config.Service
	}

	if grants == nil {
		// The access claim is always a list, never null.
		grants = []domain.AccessGrant{}
	}

	tokenID, err := randomTokenID()
	if err != nil {
		return "", log.WrapErr(err, "failed to generate token id")
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss":    s.config.Issuer,
		"sub":    subject,
		"aud":    audience,
		"exp":    now.Add(s.config.TokenLifetime).Unix(),
		"nbf":    now.Unix(),
		"iat":    now.Unix(),
		"jti":    tokenID,
		"access": grants,
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	jwtToken.Header["x5c"] = s.x5c

	signed, err := jwtToken.SignedString(s.config.SigningKey)
	if err != nil {
		return "", log.WrapErr(err, "failed to sign token")
	}

	log.Debug().
		Str("subject", subject).
		Str("audience", audience).
		Int("grants", len(grants)).
		Msg("token issued")

	return signed, nil
}

// randomTokenID returns a unique 128-bit token id, base64url-encoded.
func randomTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
