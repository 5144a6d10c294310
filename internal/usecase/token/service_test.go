package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/berthd/berth/internal/boundaries/out/mocks"
	"github.com/berthd/berth/internal/domain"
)

var testKey = mustGenerateKey()

func mustGenerateKey() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}

func newTestService(repos *mocks.MockRepositoryStore, auth *mocks.MockAuthenticator) *Service {
	log := zerowrap.New(zerowrap.Config{Level: "fatal"})
	return NewService(Config{
		Issuer:     "berth-token-issuer",
		Service:    "registry.example.com",
		SigningKey: testKey,
	}, repos, auth, log)
}

func publicRepo(ownerID string) *domain.Repository {
	return &domain.Repository{
		ID:            "repo-1",
		OwnerID:       ownerID,
		OwnerUsername: "alice",
		Name:          "webapp",
		Visibility:    domain.VisibilityPublic,
	}
}

func privateRepo(ownerID string) *domain.Repository {
	r := publicRepo(ownerID)
	r.Visibility = domain.VisibilityPrivate
	return r
}

func TestAuthenticateSuccess(t *testing.T) {
	auth := new(mocks.MockAuthenticator)
	svc := newTestService(new(mocks.MockRepositoryStore), auth)

	want := &domain.User{ID: "u1", Username: "alice"}
	auth.On("Authenticate", mock.Anything, "alice", "pw").Return(want, nil)

	user, err := svc.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, want, user)
	auth.AssertExpectations(t)
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	auth := new(mocks.MockAuthenticator)
	svc := newTestService(new(mocks.MockRepositoryStore), auth)

	auth.On("Authenticate", mock.Anything, "alice", "bad").Return(nil, nil)

	_, err := svc.Authenticate(context.Background(), "alice", "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateStoreError(t *testing.T) {
	auth := new(mocks.MockAuthenticator)
	svc := newTestService(new(mocks.MockRepositoryStore), auth)

	auth.On("Authenticate", mock.Anything, "alice", "pw").Return(nil, errors.New("db down"))

	_, err := svc.Authenticate(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthorizePullPublicAnonymous(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(publicRepo("u1"), nil)

	grants, err := svc.Authorize(context.Background(), nil, []string{"repository:alice/webapp:pull"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, domain.AccessGrant{
		Type:    domain.ScopeTypeRepository,
		Name:    "alice/webapp",
		Actions: []string{domain.ScopeActionPull},
	}, grants[0])
}

func TestAuthorizePullPrivateOwner(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(privateRepo("u1"), nil)

	owner := &domain.User{ID: "u1", Username: "alice"}
	grants, err := svc.Authorize(context.Background(), owner, []string{"repository:alice/webapp:pull"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, []string{domain.ScopeActionPull}, grants[0].Actions)
}

func TestAuthorizePullPrivateAnonymousRequiresAuth(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(privateRepo("u1"), nil)

	_, err := svc.Authorize(context.Background(), nil, []string{"repository:alice/webapp:pull"})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestAuthorizePullPrivateNonOwnerGrantsNothing(t *testing.T) {
	// A different authenticated user gets an empty grant, not an auth
	// challenge, so the repository's existence is not confirmed.
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(privateRepo("u1"), nil)

	other := &domain.User{ID: "u2", Username: "bob"}
	grants, err := svc.Authorize(context.Background(), other, []string{"repository:alice/webapp:pull"})
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestAuthorizePullUnknownRepoAuthenticated(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "library", "external").Return(nil, nil)

	user := &domain.User{ID: "u1", Username: "alice"}
	grants, err := svc.Authorize(context.Background(), user, []string{"repository:library/external:pull"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, []string{domain.ScopeActionPull}, grants[0].Actions)
}

func TestAuthorizePullUnknownRepoAnonymousGrantsNothing(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "library", "external").Return(nil, nil)

	grants, err := svc.Authorize(context.Background(), nil, []string{"repository:library/external:pull"})
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestAuthorizePushOwner(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(privateRepo("u1"), nil)

	owner := &domain.User{ID: "u1", Username: "alice"}
	grants, err := svc.Authorize(context.Background(), owner, []string{"repository:alice/webapp:pull,push"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, []string{domain.ScopeActionPull, domain.ScopeActionPush}, grants[0].Actions)
}

func TestAuthorizePushNonOwnerGrantsNothing(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(publicRepo("u1"), nil)

	other := &domain.User{ID: "u2", Username: "bob"}
	grants, err := svc.Authorize(context.Background(), other, []string{"repository:alice/webapp:push"})
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestAuthorizePushAnonymousRequiresAuth(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(publicRepo("u1"), nil)

	_, err := svc.Authorize(context.Background(), nil, []string{"repository:alice/webapp:push"})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestAuthorizePushUnknownRepoGrantsNothing(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "newproject").Return(nil, nil)

	user := &domain.User{ID: "u1", Username: "alice"}
	grants, err := svc.Authorize(context.Background(), user, []string{"repository:alice/newproject:push"})
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestAuthorizeOfficialRepository(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	official := &domain.Repository{
		ID:         "repo-ubuntu",
		Name:       "ubuntu",
		Visibility: domain.VisibilityPublic,
		IsOfficial: true,
	}
	repos.On("FindOfficialRepository", mock.Anything, "ubuntu").Return(official, nil)

	grants, err := svc.Authorize(context.Background(), nil, []string{"repository:ubuntu:pull"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "ubuntu", grants[0].Name)
	repos.AssertNotCalled(t, "FindUserRepository", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthorizeDropsMalformedScopes(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(publicRepo("u1"), nil)

	grants, err := svc.Authorize(context.Background(), nil, []string{
		"",
		"repository:alice/webapp",
		"too:many:colons:here",
		"repository:alice/webapp:pull",
	})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "alice/webapp", grants[0].Name)
}

func TestAuthorizeMultipleScopes(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(publicRepo("u1"), nil)
	repos.On("FindUserRepository", mock.Anything, "alice", "api").Return(privateRepo("u1"), nil)

	other := &domain.User{ID: "u2", Username: "bob"}
	grants, err := svc.Authorize(context.Background(), other, []string{
		"repository:alice/webapp:pull",
		"repository:alice/api:pull",
	})
	require.NoError(t, err)
	// The private scope yields no actions and is dropped from the list.
	require.Len(t, grants, 1)
	assert.Equal(t, "alice/webapp", grants[0].Name)
}

func TestAuthorizeStoreError(t *testing.T) {
	repos := new(mocks.MockRepositoryStore)
	svc := newTestService(repos, new(mocks.MockAuthenticator))

	repos.On("FindUserRepository", mock.Anything, "alice", "webapp").Return(nil, errors.New("db down"))

	_, err := svc.Authorize(context.Background(), nil, []string{"repository:alice/webapp:pull"})
	assert.Error(t, err)
}

func TestIssueTokenClaims(t *testing.T) {
	svc := newTestService(new(mocks.MockRepositoryStore), new(mocks.MockAuthenticator))

	user := &domain.User{ID: "u1", Username: "alice"}
	grants := []domain.AccessGrant{{
		Type:    domain.ScopeTypeRepository,
		Name:    "alice/webapp",
		Actions: []string{domain.ScopeActionPull, domain.ScopeActionPush},
	}}

	signed, err := svc.IssueToken(context.Background(), user, "registry.example.com", grants)
	require.NoError(t, err)

	claims := parseToken(t, signed)
	assert.Equal(t, "berth-token-issuer", claims["iss"])
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "registry.example.com", claims["aud"])
	assert.NotEmpty(t, claims["jti"])

	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	nbf := int64(claims["nbf"].(float64))
	assert.Equal(t, iat, nbf)
	assert.Equal(t, int64(DefaultTokenLifetime/time.Second), exp-iat)
	assert.InDelta(t, time.Now().Unix(), iat, 5)

	access := claims["access"].([]any)
	require.Len(t, access, 1)
	grant := access[0].(map[string]any)
	assert.Equal(t, "repository", grant["type"])
	assert.Equal(t, "alice/webapp", grant["name"])
	assert.Equal(t, []any{"pull", "push"}, grant["actions"])
}

func TestIssueTokenAnonymousSubject(t *testing.T) {
	svc := newTestService(new(mocks.MockRepositoryStore), new(mocks.MockAuthenticator))

	signed, err := svc.IssueToken(context.Background(), nil, "", nil)
	require.NoError(t, err)

	claims := parseToken(t, signed)
	assert.Equal(t, AnonymousSubject, claims["sub"])
	// Empty audience falls back to the configured service name.
	assert.Equal(t, "registry.example.com", claims["aud"])
	// No grants still yields an empty list, not null.
	assert.Equal(t, []any{}, claims["access"])
}

func TestIssueTokenUniqueIDs(t *testing.T) {
	svc := newTestService(new(mocks.MockRepositoryStore), new(mocks.MockAuthenticator))

	first, err := svc.IssueToken(context.Background(), nil, "svc", nil)
	require.NoError(t, err)
	second, err := svc.IssueToken(context.Background(), nil, "svc", nil)
	require.NoError(t, err)

	assert.NotEqual(t, parseToken(t, first)["jti"], parseToken(t, second)["jti"])
}

func TestIssueTokenCarriesCertificateChain(t *testing.T) {
	log := zerowrap.New(zerowrap.Config{Level: "fatal"})
	svc := NewService(Config{
		Issuer:      "berth-token-issuer",
		Service:     "registry.example.com",
		SigningKey:  testKey,
		Certificate: "-----BEGIN CERTIFICATE-----\nMIIBfake\ncertbody\n-----END CERTIFICATE-----\n",
	}, new(mocks.MockRepositoryStore), new(mocks.MockAuthenticator), log)

	signed, err := svc.IssueToken(context.Background(), nil, "svc", nil)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(signed, jwt.MapClaims{})
	require.NoError(t, err)
	assert.Equal(t, "RS256", parsed.Header["alg"])
	assert.Equal(t, []any{"MIIBfakecertbody"}, parsed.Header["x5c"])
}

func parseToken(t *testing.T, signed string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return &testKey.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return parsed.Claims.(jwt.MapClaims)
}
