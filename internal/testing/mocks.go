package testing

import (
	"context"
	"io"

	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/mock"
)

// MockSubmitter is a testify mock of distribution.Submitter
type MockSubmitter struct {
	mock.Mock
}

// Distribute records the call and returns the configured receipt
func (m *MockSubmitter) Distribute(ctx context.Context, params distribution.DistributeParams) (*distribution.Receipt, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*distribution.Receipt), args.Error(1)
}

// Schedule records the call and returns the configured receipt
func (m *MockSubmitter) Schedule(ctx context.Context, params distribution.ScheduleParams) (*distribution.Receipt, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*distribution.Receipt), args.Error(1)
}

// MockObjectStore is a testify mock of the R2 object store
type MockObjectStore struct {
	mock.Mock
}

// Upload drains body so callers see a complete read, then returns the configured error
func (m *MockObjectStore) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	_, _ = io.Copy(io.Discard, body)
	args := m.Called(ctx, key, size)
	return args.Error(0)
}

// List returns the configured objects
func (m *MockObjectStore) List(ctx context.Context, prefix string) ([]types.Object, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Object), args.Error(1)
}

// Delete returns the configured error
func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
