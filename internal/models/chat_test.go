package models_test

import (
	"chatgraph/backend/internal/models"
	"chatgraph/backend/internal/relation"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_MembershipIsMirrored(t *testing.T) {
	s, _ := newTestStore(t)
	admin := mustUser(t, s, "+100", "Admin")
	alice := mustUser(t, s, "+111", "Alice")
	group := mustGroup(t, s, "Book club", admin)

	require.NoError(t, group.AddMember(alice))
	require.NoError(t, group.AddMember(alice))

	assert.Equal(t, 2, group.MemberCount())
	got, ok := group.Member("+111")
	assert.True(t, ok)
	assert.Same(t, alice, got)
	assert.Equal(t, []*models.Chat{group}, alice.Chats())
	assert.Equal(t, []*models.Chat{group}, admin.AdminOf())

	require.NoError(t, group.Leave(alice))
	_, ok = group.Member("+111")
	assert.False(t, ok)
	assert.Empty(t, alice.Chats())
	assert.ErrorIs(t, group.Leave(alice), relation.ErrNotFound, "leaving is strict")
}

func TestChat_CreationValidation(t *testing.T) {
	s, clock := newTestStore(t)
	admin := mustUser(t, s, "+100", "Admin")

	tests := []struct {
		name    string
		params  models.ChatParams
		wantErr error
	}{
		{"empty name", models.ChatParams{}, relation.ErrValidation},
		{"future creation", models.ChatParams{Name: "later", CreatedAt: clock.Now().Add(time.Hour)}, relation.ErrValidation},
		{"cap below two", models.ChatParams{Name: "tiny", Cap: 1}, relation.ErrValidation},
		{"cap above max", models.ChatParams{Name: "huge", Cap: 300000}, relation.ErrValidation},
		{"past creation", models.ChatParams{Name: "old", CreatedAt: clock.Now().Add(-time.Hour)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.NewGroupChat(tt.params, admin)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 1, s.Chats().Len())
}

func TestChat_DuplicateID(t *testing.T) {
	s, _ := newTestStore(t)
	admin := mustUser(t, s, "+100", "Admin")
	_, err := s.NewGroupChat(models.ChatParams{ID: "general", Name: "General"}, admin)
	require.NoError(t, err)

	_, err = s.NewGroupChat(models.ChatParams{ID: "general", Name: "Another"}, admin)

	assert.ErrorIs(t, err, relation.ErrDuplicateKey)
	assert.Len(t, admin.Chats(), 1, "failed creation leaves no membership behind")
}

func TestChat_KickNeedsAdmin(t *testing.T) {
	// Arrange
	s, _ := newTestStore(t)
	admin := mustUser(t, s, "+100", "Admin")
	alice := mustUser(t, s, "+111", "Alice")
	bob := mustUser(t, s, "+222", "Bob")
	group := mustGroup(t, s, "Book club", admin, alice, bob)

	// Act & Assert
	assert.ErrorIs(t, group.RemoveMember(alice, bob), relation.ErrUnauthorized)
	assert.True(t, group.HasMember(bob))

	assert.ErrorIs(t, group.Leave(admin), relation.ErrInvalidState)
	assert.ErrorIs(t, group.RemoveMember(admin, admin), relation.ErrInvalidState)

	require.NoError(t, group.RemoveMember(admin, bob))
	assert.False(t, group.HasMember(bob))
	assert.Empty(t, bob.Chats())

	require.NoError(t, group.RemoveMember(alice, alice), "anyone may leave")
	assert.Equal(t, []*models.User{admin}, group.Members())
}

func TestChat_SetAdmin(t *testing.T) {
	s, _ := newTestStore(t)
	admin := mustUser(t, s, "+100", "Admin")
	alice := mustUser(t, s, "+111", "Alice")
	outsider := mustUser(t, s, "+999", "Outsider")
	group := mustGroup(t, s, "Book club", admin, alice)

	assert.ErrorIs(t, group.SetAdmin(alice, alice), relation.ErrUnauthorized)
	assert.ErrorIs(t, group.SetAdmin(admin, outsider), relation.ErrNotFound)

	require.NoError(t, group.SetAdmin(admin, alice))

	assert.Same(t, alice, group.Admin())
	assert.Empty(t, admin.AdminOf())
	assert.Equal(t, []*models.Chat{group}, alice.AdminOf())
	require.NoError(t, group.Leave(admin), "former admin may leave")
}

func TestChat_ParticipantCap(t *testing.T) {
	s, _ := newTestStore(t)
	admin := mustUser(t, s, "+100", "Admin")
	alice := mustUser(t, s, "+111", "Alice")
	bob := mustUser(t, s, "+222", "Bob")
	group, err := s.NewGroupChat(models.ChatParams{Name: "Pair", Cap: 2}, admin)
	require.NoError(t, err)
	require.NoError(t, group.AddMember(alice))

	assert.ErrorIs(t, group.AddMember(bob), relation.ErrCapacityExceeded)
	assert.Empty(t, bob.Chats())

	assert.ErrorIs(t, group.SetParticipantCap(alice, 3), relation.ErrUnauthorized)
	assert.ErrorIs(t, group.SetParticipantCap(admin, 1), relation.ErrValidation)
	require.NoError(t, group.SetParticipantCap(admin, 3))
	require.NoError(t, group.AddMember(bob))
	assert.Equal(t, 3, group.Cap())
}

func TestChat_Description(t *testing.T) {
	s, _ := newTestStore(t)
	admin := mustUser(t, s, "+100", "Admin")
	alice := mustUser(t, s, "+111", "Alice")
	group := mustGroup(t, s, "Book club", admin, alice)
	private, err := s.NewPrivateChat(models.ChatParams{Name: "dm"}, admin, alice)
	require.NoError(t, err)

	require.NoError(t, group.SetDescription(admin, "We read"))
	assert.Equal(t, "We read", group.Description())
	assert.ErrorIs(t, group.SetDescription(alice, "hijack"), relation.ErrUnauthorized)
	assert.ErrorIs(t, private.SetDescription(admin, "x"), relation.ErrInvalidState)
}

func TestPrivateChat(t *testing.T) {
	s, _ := newTestStore(t)
	alice := mustUser(t, s, "+111", "Alice")
	bob := mustUser(t, s, "+222", "Bob")
	carol := mustUser(t, s, "+333", "Carol")

	_, err := s.NewPrivateChat(models.ChatParams{Name: "self"}, alice, alice)
	assert.ErrorIs(t, err, relation.ErrValidation)
	_, err = s.NewPrivateChat(models.ChatParams{Name: "dm", Description: "nope"}, alice, bob)
	assert.ErrorIs(t, err, relation.ErrValidation)

	dm, err := s.NewPrivateChat(models.ChatParams{Name: "dm"}, alice, bob)
	require.NoError(t, err)
	assert.False(t, dm.IsGroup())
	assert.Nil(t, dm.Admin())
	assert.Equal(t, 2, dm.Cap())

	assert.ErrorIs(t, dm.AddMember(carol), relation.ErrCapacityExceeded)
	assert.ErrorIs(t, dm.RemoveMember(alice, bob), relation.ErrInvalidState)
	assert.ErrorIs(t, dm.SetParticipantCap(alice, 3), relation.ErrInvalidState)

	require.NoError(t, carol.Block(alice))
	_, err = s.NewPrivateChat(models.ChatParams{Name: "blocked"}, alice, carol)
	assert.ErrorIs(t, err, relation.ErrUnauthorized)
}

// TestChat_DeleteCascadesToHistory verifies that a chat takes its messages with it.
func TestChat_DeleteCascadesToHistory(t *testing.T) {
	// Arrange
	s, _ := newTestStore(t)
	admin := mustUser(t, s, "+100", "Admin")
	alice := mustUser(t, s, "+111", "Alice")
	group := mustGroup(t, s, "Book club", admin, alice)
	folder, err := s.NewFolder(alice, models.FolderParams{Name: "Fun"})
	require.NoError(t, err)
	require.NoError(t, folder.AddChat(group))
	draft, err := s.NewTextMessage(alice, group, "draft")
	require.NoError(t, err)
	sent, err := s.NewTextMessage(admin, group, "sent")
	require.NoError(t, err)
	require.NoError(t, mustDraft(t, sent).Send())

	// Act
	err = group.Delete()

	// Assert
	require.NoError(t, err)
	assert.False(t, s.Chats().Contains(group))
	assert.Equal(t, 0, s.MessageCount())
	assert.Equal(t, 0, s.Drafts().Len())
	assert.Equal(t, 0, s.Sents().Len())
	assert.Empty(t, alice.SentMessages())
	assert.Empty(t, admin.SentMessages())
	assert.Empty(t, alice.Chats())
	assert.Empty(t, admin.AdminOf())
	assert.Empty(t, folder.Chats())
	assert.True(t, s.Folders().Contains(folder))
	assert.ErrorIs(t, draft.Delete(), relation.ErrNotFound)
}
