package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	"github.com/echain-id/credential-registry/interfaces"
)

// MockRegistry mocks the interfaces.CredentialRegistry interface
type MockRegistry struct {
	mock.Mock
}

// EnsureDeployed mocks the EnsureDeployed method
func (m *MockRegistry) EnsureDeployed(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Issue mocks the Issue method
func (m *MockRegistry) Issue(ctx context.Context, digest interfaces.Digest, cid interfaces.ContentID, issuer interfaces.Address) (*types.Transaction, error) {
	args := m.Called(ctx, digest, cid, issuer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

// GetCredential mocks the GetCredential method
func (m *MockRegistry) GetCredential(ctx context.Context, digest interfaces.Digest) (interfaces.RegistryRecord, error) {
	args := m.Called(ctx, digest)
	return args.Get(0).(interfaces.RegistryRecord), args.Error(1)
}

// Revoke mocks the Revoke method
func (m *MockRegistry) Revoke(ctx context.Context, digest interfaces.Digest) (*types.Transaction, error) {
	args := m.Called(ctx, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}
