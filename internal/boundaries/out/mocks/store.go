// Package mocks provides testify mocks for the outbound contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/berthd/berth/internal/domain"
)

// MockRepositoryStore is a mock implementation of out.RepositoryStore.
type MockRepositoryStore struct {
	mock.Mock
}

func (m *MockRepositoryStore) FindUserRepository(ctx context.Context, ownerUsername, name string) (*domain.Repository, error) {
	args := m.Called(ctx, ownerUsername, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repository), args.Error(1)
}

func (m *MockRepositoryStore) FindOfficialRepository(ctx context.Context, name string) (*domain.Repository, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repository), args.Error(1)
}

func (m *MockRepositoryStore) UpsertTag(ctx context.Context, repositoryID, name, digest string, size int64) error {
	args := m.Called(ctx, repositoryID, name, digest, size)
	return args.Error(0)
}

func (m *MockRepositoryStore) IncrementPullCount(ctx context.Context, repositoryID string) error {
	args := m.Called(ctx, repositoryID)
	return args.Error(0)
}

// MockAuthenticator is a mock implementation of out.Authenticator.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
