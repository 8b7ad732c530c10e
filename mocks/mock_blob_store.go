package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"payslipx/internal/port"
)

// MockBlobStore is a mock implementation of port.BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, obj port.BlobObject) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *MockBlobStore) Get(ctx context.Context, key string) (*port.BlobObject, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.BlobObject), args.Error(1)
}
