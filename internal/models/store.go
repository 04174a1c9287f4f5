// Package models holds the chat domain model: users, chats, messages, folders
// and sticker packs, the associations between them and the Store that owns
// every live instance.
//
// The model is not safe for concurrent use. A Store is meant to be driven by a
// single goroutine; see chathub.ManagerService.
package models

import (
	"chatgraph/backend/internal/config"
	"chatgraph/backend/internal/relation"
	"fmt"
	"time"
)

// extents are the registries of one Store, swapped as a whole by Restore.
type extents struct {
	users    *relation.Registry[string, *User]
	chats    *relation.Registry[string, *Chat]
	folders  *relation.Registry[string, *Folder]
	packs    *relation.Registry[string, *Stickerpack]
	stickers *relation.Registry[string, *Sticker]
	drafts   *relation.Registry[string, *Draft]
	sents    *relation.Registry[string, *Sent]
	messages map[ContentKind]*relation.Registry[string, *Message]
}

func newExtents() *extents {
	ext := &extents{
		users:    relation.NewRegistry("user", (*User).Phone),
		chats:    relation.NewRegistry("chat", (*Chat).ID),
		folders:  relation.NewRegistry("folder", (*Folder).ID),
		packs:    relation.NewRegistry("stickerpack", (*Stickerpack).ID),
		stickers: relation.NewRegistry("sticker", (*Sticker).ID),
		drafts:   relation.NewRegistry("draft", func(d *Draft) string { return d.message.key() }),
		sents:    relation.NewRegistry("sent", func(s *Sent) string { return s.message.key() }),
		messages: make(map[ContentKind]*relation.Registry[string, *Message], len(ContentKinds)),
	}
	for _, kind := range ContentKinds {
		ext.messages[kind] = relation.NewRegistry(string(kind)+" message", (*Message).ID)
	}
	return ext
}

// Store is the bounded context every entity lives in. Entities are created
// through it and registered in its extents straight away.
type Store struct {
	limits config.Limits
	now    func() time.Time
	ext    *extents
	seq    uint64
}

type Option func(*Store)

// WithLimits replaces the default cardinality limits.
func WithLimits(l config.Limits) Option {
	return func(s *Store) { s.limits = l }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		limits: config.DefaultLimits(),
		now:    func() time.Time { return time.Now().UTC() },
		ext:    newExtents(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Limits() config.Limits { return s.limits }

// Now is the clock every timestamp in the model is taken from.
func (s *Store) Now() time.Time { return s.now() }

// Clear drops every entity. Entities obtained before the call are dead afterwards.
func (s *Store) Clear() {
	s.ext = newExtents()
	s.seq = 0
}

func (s *Store) Users() relation.View[string, *User] { return s.ext.users }
func (s *Store) Chats() relation.View[string, *Chat] { return s.ext.chats }
func (s *Store) Folders() relation.View[string, *Folder] { return s.ext.folders }
func (s *Store) Packs() relation.View[string, *Stickerpack] { return s.ext.packs }
func (s *Store) Stickers() relation.View[string, *Sticker] { return s.ext.stickers }
func (s *Store) Drafts() relation.View[string, *Draft] { return s.ext.drafts }
func (s *Store) Sents() relation.View[string, *Sent] { return s.ext.sents }

// Messages returns the extent of one content kind. Message ids are unique per kind.
func (s *Store) Messages(kind ContentKind) relation.View[string, *Message] {
	if reg, ok := s.ext.messages[kind]; ok {
		return reg
	}
	return relation.NewRegistry("unknown message", (*Message).ID)
}

// MessageCount is the number of live messages of every kind.
func (s *Store) MessageCount() int {
	n := 0
	for _, reg := range s.ext.messages {
		n += reg.Len()
	}
	return n
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// notFuture rejects timestamps after the store clock.
func (s *Store) notFuture(field string, t time.Time) error {
	if t.After(s.now()) {
		return fmt.Errorf("%s %s is in the future: %w", field, t.Format(time.RFC3339), relation.ErrValidation)
	}
	return nil
}

func (s *Store) userAlive(u *User) error {
	if u == nil || !s.ext.users.Contains(u) {
		return fmt.Errorf("user: %w", relation.ErrNotFound)
	}
	return nil
}

func (s *Store) chatAlive(c *Chat) error {
	if c == nil || !s.ext.chats.Contains(c) {
		return fmt.Errorf("chat: %w", relation.ErrNotFound)
	}
	return nil
}

func (s *Store) packAlive(p *Stickerpack) error {
	if p == nil || !s.ext.packs.Contains(p) {
		return fmt.Errorf("stickerpack: %w", relation.ErrNotFound)
	}
	return nil
}

func (s *Store) stickerAlive(st *Sticker) error {
	if st == nil || !s.ext.stickers.Contains(st) {
		return fmt.Errorf("sticker: %w", relation.ErrNotFound)
	}
	return nil
}

func (s *Store) folderAlive(f *Folder) error {
	if f == nil || !s.ext.folders.Contains(f) {
		return fmt.Errorf("folder: %w", relation.ErrNotFound)
	}
	return nil
}

func (s *Store) messageAlive(m *Message) error {
	if m == nil {
		return fmt.Errorf("message: %w", relation.ErrNotFound)
	}
	reg, ok := s.ext.messages[m.kind]
	if !ok || !reg.Contains(m) {
		return fmt.Errorf("%s message %s: %w", m.kind, m.id, relation.ErrNotFound)
	}
	return nil
}
