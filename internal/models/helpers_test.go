package models_test

import (
	"chatgraph/backend/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*models.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
	return models.NewStore(models.WithClock(clock.Now)), clock
}

func mustUser(t *testing.T, s *models.Store, phone, name string) *models.User {
	t.Helper()
	u, err := s.NewUser(models.UserParams{Phone: phone, Username: name})
	require.NoError(t, err)
	return u
}

func mustGroup(t *testing.T, s *models.Store, name string, admin *models.User, members ...*models.User) *models.Chat {
	t.Helper()
	c, err := s.NewGroupChat(models.ChatParams{Name: name}, admin)
	require.NoError(t, err)
	for _, m := range members {
		require.NoError(t, c.AddMember(m))
	}
	return c
}

func mustPack(t *testing.T, s *models.Store, name string, premium bool) *models.Stickerpack {
	t.Helper()
	p, err := s.NewStickerpack(models.PackParams{Name: name, Premium: premium})
	require.NoError(t, err)
	return p
}

func mustSticker(t *testing.T, s *models.Store, code string) *models.Sticker {
	t.Helper()
	st, err := s.NewSticker(models.StickerParams{Code: code, FileURL: "https://cdn.example.com/" + code + ".webp"})
	require.NoError(t, err)
	return st
}
