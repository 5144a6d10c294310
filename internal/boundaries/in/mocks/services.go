// Package mocks provides testify mocks for the inbound contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/berthd/berth/internal/domain"
)

// MockTokenService is a mock implementation of in.TokenService.
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockTokenService) Authorize(ctx context.Context, identity *domain.User, scopes []string) ([]domain.AccessGrant, error) {
	args := m.Called(ctx, identity, scopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccessGrant), args.Error(1)
}

func (m *MockTokenService) IssueToken(ctx context.Context, identity *domain.User, audience string, grants []domain.AccessGrant) (string, error) {
	args := m.Called(ctx, identity, audience, grants)
	return args.String(0), args.Error(1)
}

// MockWebhookService is a mock implementation of in.WebhookService.
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Ingest(ctx context.Context, batch domain.Notification) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}
