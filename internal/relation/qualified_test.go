package relation_test

import (
	"chatgraph/backend/internal/relation"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sticker struct{ code string }

func TestQualified_PutAndGet(t *testing.T) {
	q := relation.NewQualified[string, *sticker]("pack", 1, 3)
	smile := &sticker{code: "😀"}

	inserted, err := q.Put(smile.code, smile)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, ok := q.Get("😀")
	assert.True(t, ok)
	assert.Same(t, smile, got)

	_, ok = q.Get("🙃")
	assert.False(t, ok, "missing key is a plain miss, not an error")
}

// TestQualified_TakenKeyIsSilentNoop verifies that a second value for an occupied key is ignored.
func TestQualified_TakenKeyIsSilentNoop(t *testing.T) {
	// Arrange
	q := relation.NewQualified[string, *sticker]("pack", 1, 3)
	first := &sticker{code: "😀"}
	_, err := q.Put("😀", first)
	require.NoError(t, err)

	// Act
	inserted, err := q.Put("😀", &sticker{code: "😀"})

	// Assert
	assert.NoError(t, err)
	assert.False(t, inserted)
	got, _ := q.Get("😀")
	assert.Same(t, first, got)
	assert.Equal(t, 1, q.Len())
}

func TestQualified_Capacity(t *testing.T) {
	q := relation.NewQualified[string, *sticker]("pack", 1, 3)
	for i := 0; i < 3; i++ {
		_, err := q.Put(fmt.Sprint(i), &sticker{})
		require.NoError(t, err)
	}

	_, err := q.Put("overflow", &sticker{})

	assert.ErrorIs(t, err, relation.ErrCapacityExceeded)
	assert.Equal(t, 3, q.Len())
	assert.True(t, q.Full())
}

func TestQualified_RemoveBounds(t *testing.T) {
	q := relation.NewQualified[string, *sticker]("pack", 1, 3)
	_, err := q.Put("a", &sticker{})
	require.NoError(t, err)

	_, err = q.Remove("missing")
	assert.ErrorIs(t, err, relation.ErrNotFound)

	_, err = q.Remove("a")
	assert.ErrorIs(t, err, relation.ErrMinimumViolation)
	assert.Equal(t, 1, q.Len())

	// Detach bypasses the minimum.
	_, ok := q.Detach("a")
	assert.True(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQualified_SetMax(t *testing.T) {
	q := relation.NewQualified[string, int]("members", 0, 5)
	for i := 0; i < 3; i++ {
		_, err := q.Put(fmt.Sprint(i), i)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, q.SetMax(2), relation.ErrValidation)
	require.NoError(t, q.SetMax(3))
	assert.True(t, q.Full())

	require.NoError(t, q.SetMax(relation.Unbounded))
	assert.False(t, q.Full())
	assert.Equal(t, []string{"0", "1", "2"}, q.Keys())
	assert.Equal(t, []int{0, 1, 2}, q.Values())
}
