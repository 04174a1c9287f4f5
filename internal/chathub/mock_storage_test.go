package chathub_test

import (
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/storage"
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) SaveSnapshot(ctx context.Context, label string, snap models.Snapshot) (string, error) {
	args := m.Called(ctx, label, snap)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) LoadSnapshot(ctx context.Context, id string) (models.Snapshot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Snapshot), args.Error(1)
}

func (m *MockStorage) LatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Snapshot), args.Error(1)
}

func (m *MockStorage) ListSnapshots(ctx context.Context, limit int) ([]storage.SnapshotInfo, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.SnapshotInfo), args.Error(1)
}

func (m *MockStorage) FindSnapshotsWithUser(ctx context.Context, phone string) ([]storage.SnapshotInfo, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.SnapshotInfo), args.Error(1)
}

func (m *MockStorage) DeleteSnapshot(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) PublishEvent(ctx context.Context, event storage.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
