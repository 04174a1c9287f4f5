package storage

import (
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/relation"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	snap *cachedSnapshot
}

func (c *memCache) Latest(context.Context) (cachedSnapshot, error) {
	if c.snap == nil {
		return cachedSnapshot{}, fmt.Errorf("cached snapshot: %w", relation.ErrNotFound)
	}
	return *c.snap, nil
}

func (c *memCache) Put(_ context.Context, snap cachedSnapshot) error {
	c.snap = &snap
	return nil
}

func (c *memCache) Drop(context.Context) error {
	c.snap = nil
	return nil
}

// MockCache is a testify mock of latestCache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Latest(ctx context.Context) (cachedSnapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(cachedSnapshot), args.Error(1)
}

func (m *MockCache) Put(ctx context.Context, snap cachedSnapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *MockCache) Drop(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func recordAt(t *testing.T, at time.Time) SnapshotRecord {
	t.Helper()
	store := models.NewStore(models.WithClock(func() time.Time { return at }))
	_, err := store.NewUser(models.UserParams{Phone: "+111", Username: "Alice"})
	require.NoError(t, err)
	record, err := newSnapshotRecord("test", store.Snapshot())
	require.NoError(t, err)
	return record
}

// TestOfferLatest_OlderSnapshotKeepsCache verifies that saving an older snapshot
// after a newer one leaves the newer one as latest.
func TestOfferLatest_OlderSnapshotKeepsCache(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := &memCache{}
	t2 := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	newer := recordAt(t, t2)
	older := recordAt(t, t2.Add(-24*time.Hour))
	require.NoError(t, offerLatest(ctx, cache, newer))

	// Act
	err := offerLatest(ctx, cache, older)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, newer.ID, cache.snap.ID)
	snap, ok := cachedLatest(ctx, cache)
	require.True(t, ok)
	assert.Equal(t, t2, snap.TakenAt)

	same := recordAt(t, t2)
	require.NoError(t, offerLatest(ctx, cache, same))
	assert.Equal(t, same.ID, cache.snap.ID, "equal time replaces the cache")
}

func TestCachedLatest_FallsBack(t *testing.T) {
	ctx := context.Background()
	cache := &memCache{}

	_, ok := cachedLatest(ctx, cache)
	assert.False(t, ok, "empty cache")

	cache.snap = &cachedSnapshot{ID: "broken", Payload: []byte("{")}
	_, ok = cachedLatest(ctx, cache)
	assert.False(t, ok, "corrupt payload")
}

func TestOfferLatest_UnreadableCacheIsDropped(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCache)
	cache.On("Latest", ctx).Return(cachedSnapshot{}, errors.New("connection refused"))
	cache.On("Drop", ctx).Return(nil)

	require.NoError(t, offerLatest(ctx, cache, recordAt(t, time.Now().UTC())))

	cache.AssertCalled(t, "Drop", ctx)
	cache.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestForgetCached(t *testing.T) {
	ctx := context.Background()
	record := recordAt(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	cache := &memCache{}
	require.NoError(t, offerLatest(ctx, cache, record))

	require.NoError(t, forgetCached(ctx, cache, "other"))
	assert.NotNil(t, cache.snap)

	require.NoError(t, forgetCached(ctx, cache, record.ID))
	assert.Nil(t, cache.snap)
	require.NoError(t, forgetCached(ctx, cache, record.ID), "empty cache")
}
