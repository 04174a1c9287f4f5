package chathub_test

import (
	"chatgraph/backend/internal/chathub"
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/relation"
	"chatgraph/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, st *MockStorage, interval time.Duration) (*chathub.ManagerService, *models.Store) {
	t.Helper()
	store := models.NewStore()
	hub := chathub.NewManagerService(store, st, interval)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, store
}

func TestManager_SubmitPublishesEvent(t *testing.T) {
	// Arrange
	storageMock := new(MockStorage)
	storageMock.On("PublishEvent", mock.Anything, mock.MatchedBy(func(e storage.Event) bool {
		return e.Name == "create user"
	})).Return(nil)
	storageMock.On("SaveSnapshot", mock.Anything, "shutdown", mock.Anything).Return("snap-1", nil)
	hub, store := startHub(t, storageMock, 0)

	// Act
	err := hub.Submit(context.Background(), "create user", func(s *models.Store) error {
		_, err := s.NewUser(models.UserParams{Phone: "+111", Username: "Alice"})
		return err
	})

	// Assert
	require.NoError(t, err)
	storageMock.AssertNumberOfCalls(t, "PublishEvent", 1)
	require.NoError(t, hub.Query(context.Background(), func(s *models.Store) error {
		assert.Equal(t, 1, s.Users().Len())
		return nil
	}))
	assert.Same(t, store, hub.Store)
}

func TestManager_FailedCommandIsNotPublished(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("SaveSnapshot", mock.Anything, "shutdown", mock.Anything).Return("snap-1", nil)
	hub, _ := startHub(t, storageMock, 0)

	err := hub.Submit(context.Background(), "bad user", func(s *models.Store) error {
		_, err := s.NewUser(models.UserParams{Phone: "nope", Username: "Alice"})
		return err
	})

	assert.ErrorIs(t, err, relation.ErrValidation)
	storageMock.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
}

func TestManager_PanicBecomesError(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("SaveSnapshot", mock.Anything, "shutdown", mock.Anything).Return("snap-1", nil)
	hub, _ := startHub(t, storageMock, 0)

	err := hub.Submit(context.Background(), "boom", func(*models.Store) error { panic("boom") })
	assert.ErrorContains(t, err, "panicked")

	// The hub keeps serving.
	assert.NoError(t, hub.Query(context.Background(), func(*models.Store) error { return nil }))
}

// TestManager_CommandsAreSerialized submits from many goroutines at once.
func TestManager_CommandsAreSerialized(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("PublishEvent", mock.Anything, mock.Anything).Return(nil)
	storageMock.On("SaveSnapshot", mock.Anything, "shutdown", mock.Anything).Return("snap-1", nil)
	hub, store := startHub(t, storageMock, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := hub.Submit(context.Background(), "create user", func(s *models.Store) error {
				_, err := s.NewUser(models.UserParams{Phone: fmt.Sprintf("+%d", 1000+i), Username: "user"})
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var n int
	require.NoError(t, hub.Query(context.Background(), func(s *models.Store) error {
		n = s.Users().Len()
		return nil
	}))
	assert.Equal(t, 50, n)
	assert.Same(t, store, hub.Store)
}

func TestManager_ShutdownTakesSnapshot(t *testing.T) {
	// Arrange
	storageMock := new(MockStorage)
	storageMock.On("PublishEvent", mock.Anything, mock.Anything).Return(nil)
	storageMock.On("SaveSnapshot", mock.Anything, "shutdown", mock.MatchedBy(func(s models.Snapshot) bool {
		return len(s.Users) == 1
	})).Return("snap-1", nil)
	hub := chathub.NewManagerService(models.NewStore(), storageMock, 0)
	go hub.Run(context.Background())
	require.NoError(t, hub.Submit(context.Background(), "create user", func(s *models.Store) error {
		_, err := s.NewUser(models.UserParams{Phone: "+111", Username: "Alice"})
		return err
	}))

	// Act
	err := hub.Shutdown(context.Background())

	// Assert
	require.NoError(t, err)
	storageMock.AssertExpectations(t)
	err = hub.Submit(context.Background(), "late", func(*models.Store) error { return nil })
	assert.ErrorIs(t, err, chathub.ErrStopped)
}

func TestManager_PeriodicSnapshotOnlyWhenDirty(t *testing.T) {
	storageMock := new(MockStorage)
	periodic := make(chan struct{}, 1)
	storageMock.On("PublishEvent", mock.Anything, mock.Anything).Return(nil)
	storageMock.On("SaveSnapshot", mock.Anything, "periodic", mock.Anything).Return("snap", nil).Run(func(mock.Arguments) {
		select {
		case periodic <- struct{}{}:
		default:
		}
	})
	storageMock.On("SaveSnapshot", mock.Anything, "shutdown", mock.Anything).Return("snap", nil)
	hub, _ := startHub(t, storageMock, 10*time.Millisecond)

	select {
	case <-periodic:
		t.Fatal("snapshot taken without any change")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, hub.Submit(context.Background(), "create user", func(s *models.Store) error {
		_, err := s.NewUser(models.UserParams{Phone: "+111", Username: "Alice"})
		return err
	}))

	select {
	case <-periodic:
	case <-time.After(time.Second):
		t.Error("no periodic snapshot after a change")
	}
}

func TestManager_RestoreLatest(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  func(t *testing.T) models.Snapshot
		err       error
		wantUsers int
		wantErr   bool
	}{
		{
			name:     "no snapshot yet",
			snapshot: func(*testing.T) models.Snapshot { return models.Snapshot{} },
			err:      fmt.Errorf("latest snapshot: %w", relation.ErrNotFound),
		},
		{
			name: "restores users",
			snapshot: func(t *testing.T) models.Snapshot {
				s := models.NewStore()
				_, err := s.NewUser(models.UserParams{Phone: "+111", Username: "Alice"})
				require.NoError(t, err)
				return s.Snapshot()
			},
			wantUsers: 1,
		},
		{
			name:     "storage failure",
			snapshot: func(*testing.T) models.Snapshot { return models.Snapshot{} },
			err:      errors.New("connection refused"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storageMock := new(MockStorage)
			storageMock.On("LatestSnapshot", mock.Anything).Return(tt.snapshot(t), tt.err)
			store := models.NewStore()
			hub := chathub.NewManagerService(store, storageMock, 0)

			err := hub.RestoreLatest(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsers, store.Users().Len())
		})
	}
}
