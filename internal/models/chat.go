package models

import (
	"chatgraph/backend/internal/config"
	"chatgraph/backend/internal/relation"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chat is a conversation. Members are qualified by phone number and the
// history keeps messages in creation order. A Chat is either a group (with
// exactly one admin) or a private chat between two users.
type Chat struct {
	store     *Store
	id        string
	name      string
	createdAt time.Time
	members   *relation.Qualified[string, *User]
	history   *relation.Set[*Message]
	folders   *relation.Set[*Folder]
	group     *groupInfo
}

type groupInfo struct {
	admin       *User
	description string
}

func (s *Store) newChat(id, name string, createdAt time.Time, capacity int, group *groupInfo) *Chat {
	return &Chat{
		store:     s,
		id:        id,
		name:      name,
		createdAt: createdAt,
		members:   relation.NewQualified[string, *User]("chat members", 0, capacity),
		history:   relation.NewSet[*Message](),
		folders:   relation.NewSet[*Folder](),
		group:     group,
	}
}

// chatParams fills the generated defaults and checks the attributes shared by both variants.
func (s *Store) chatParams(p ChatParams) (ChatParams, error) {
	if err := check(p); err != nil {
		return p, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if err := s.notFuture("chat creation time", p.CreatedAt); err != nil {
		return p, err
	}
	return p, nil
}

// NewGroupChat creates a group administered by admin, who becomes its first member.
func (s *Store) NewGroupChat(p ChatParams, admin *User) (*Chat, error) {
	p, err := s.chatParams(p)
	if err != nil {
		return nil, err
	}
	if err := s.userAlive(admin); err != nil {
		return nil, err
	}
	if p.Cap == 0 {
		p.Cap = s.limits.DefaultGroupCap
	}
	if p.Cap > s.limits.MaxGroupCap {
		return nil, fmt.Errorf("participant cap %d above %d: %w", p.Cap, s.limits.MaxGroupCap, relation.ErrValidation)
	}

	c := s.newChat(p.ID, p.Name, p.CreatedAt, p.Cap, &groupInfo{description: p.Description})
	if err := s.ext.chats.Register(c); err != nil {
		return nil, err
	}
	if err := c.attachMember(admin); err != nil {
		return nil, errors.Join(err, c.destroy())
	}
	groupAdmin.Set(c, admin)
	return c, nil
}

// NewPrivateChat creates a chat between a and b. Users who blocked one another cannot start one.
func (s *Store) NewPrivateChat(p ChatParams, a, b *User) (*Chat, error) {
	p, err := s.chatParams(p)
	if err != nil {
		return nil, err
	}
	if err := s.userAlive(a); err != nil {
		return nil, err
	}
	if err := s.userAlive(b); err != nil {
		return nil, err
	}
	switch {
	case a == b:
		return nil, fmt.Errorf("private chat needs two users: %w", relation.ErrValidation)
	case p.Description != "":
		return nil, fmt.Errorf("private chat has no description: %w", relation.ErrValidation)
	case p.Cap != 0 && p.Cap != config.PrivateChatCap:
		return nil, fmt.Errorf("private chat cap is fixed at %d: %w", config.PrivateChatCap, relation.ErrValidation)
	case a.blockedEitherWay(b):
		return nil, fmt.Errorf("private chat between %s and %s: %w", a.phone, b.phone, relation.ErrUnauthorized)
	}

	c := s.newChat(p.ID, p.Name, p.CreatedAt, config.PrivateChatCap, nil)
	if err := s.ext.chats.Register(c); err != nil {
		return nil, err
	}
	if err := errors.Join(c.attachMember(a), c.attachMember(b)); err != nil {
		return nil, errors.Join(err, c.destroy())
	}
	return c, nil
}

func (c *Chat) ID() string { return c.id }
func (c *Chat) Name() string { return c.name }
func (c *Chat) CreatedAt() time.Time { return c.createdAt }
func (c *Chat) IsGroup() bool { return c.group != nil }
func (c *Chat) Cap() int { return c.members.Max() }
func (c *Chat) Members() []*User { return c.members.Values() }
func (c *Chat) MemberCount() int { return c.members.Len() }
func (c *Chat) History() []*Message { return c.history.Items() }
func (c *Chat) Folders() []*Folder { return c.folders.Items() }
func (c *Chat) Member(phone string) (*User, bool) { return c.members.Get(phone) }

// Admin is nil for private chats.
func (c *Chat) Admin() *User {
	if c.group == nil {
		return nil
	}
	return c.group.admin
}

func (c *Chat) Description() string {
	if c.group == nil {
		return ""
	}
	return c.group.description
}

func (c *Chat) HasMember(u *User) bool {
	m, ok := c.members.Get(u.phone)
	return ok && m == u
}

// attachMember is the membership link: the chat side is qualified by phone,
// the user side is a plain set. A phone held by another user is a duplicate key.
func (c *Chat) attachMember(u *User) error {
	if existing, ok := c.members.Get(u.phone); ok {
		if existing == u {
			return nil
		}
		return fmt.Errorf("chat %s member %s: %w", c.id, u.phone, relation.ErrDuplicateKey)
	}
	if _, err := c.members.Put(u.phone, u); err != nil {
		return err
	}
	u.chats.Add(c)
	return nil
}

func (c *Chat) detachMember(u *User) {
	if m, ok := c.members.Get(u.phone); ok && m == u {
		c.members.Detach(u.phone)
	}
	u.chats.Remove(c)
}

// successor is the longest-standing member other than leaving, or nil.
func (c *Chat) successor(leaving *User) *User {
	for _, m := range c.members.Values() {
		if m != leaving {
			return m
		}
	}
	return nil
}

func (c *Chat) requireGroup() error {
	if c.group == nil {
		return fmt.Errorf("chat %s is private: %w", c.id, relation.ErrInvalidState)
	}
	return nil
}

func (c *Chat) requireAdmin(actor *User) error {
	if err := c.requireGroup(); err != nil {
		return err
	}
	if actor == nil || actor != c.group.admin {
		return fmt.Errorf("only the admin may change %s: %w", c.name, relation.ErrUnauthorized)
	}
	return nil
}

// AddMember joins u to the chat. Joining twice is a no-op.
func (c *Chat) AddMember(u *User) error {
	if err := c.store.chatAlive(c); err != nil {
		return err
	}
	if err := c.store.userAlive(u); err != nil {
		return err
	}
	return c.attachMember(u)
}

// RemoveMember kicks target out. Only the group admin may kick others; in a
// private chat a user can only leave.
func (c *Chat) RemoveMember(actor, target *User) error {
	if err := c.store.chatAlive(c); err != nil {
		return err
	}
	if err := c.store.userAlive(actor); err != nil {
		return err
	}
	if actor == target {
		return c.Leave(actor)
	}
	if err := c.requireAdmin(actor); err != nil {
		return err
	}
	return c.Leave(target)
}

// Leave removes u from the members. The admin must hand the group over first.
func (c *Chat) Leave(u *User) error {
	if err := c.store.chatAlive(c); err != nil {
		return err
	}
	if err := c.store.userAlive(u); err != nil {
		return err
	}
	if !c.HasMember(u) {
		return fmt.Errorf("%s in chat %s: %w", u.phone, c.id, relation.ErrNotFound)
	}
	if c.group != nil && c.group.admin == u {
		return fmt.Errorf("admin %s cannot leave %s: %w", u.phone, c.name, relation.ErrInvalidState)
	}
	c.detachMember(u)
	return nil
}

// SetAdmin hands the group over to another member.
func (c *Chat) SetAdmin(actor, next *User) error {
	if err := c.store.chatAlive(c); err != nil {
		return err
	}
	if err := c.store.userAlive(next); err != nil {
		return err
	}
	if err := c.requireAdmin(actor); err != nil {
		return err
	}
	if !c.HasMember(next) {
		return fmt.Errorf("new admin %s in chat %s: %w", next.phone, c.id, relation.ErrNotFound)
	}
	groupAdmin.Set(c, next)
	return nil
}

func (c *Chat) SetParticipantCap(actor *User, n int) error {
	if err := c.store.chatAlive(c); err != nil {
		return err
	}
	if err := c.requireAdmin(actor); err != nil {
		return err
	}
	if n < config.PrivateChatCap || n > c.store.limits.MaxGroupCap {
		return fmt.Errorf("participant cap %d outside [%d, %d]: %w", n, config.PrivateChatCap, c.store.limits.MaxGroupCap, relation.ErrValidation)
	}
	return c.members.SetMax(n)
}

func (c *Chat) SetDescription(actor *User, description string) error {
	if err := c.store.chatAlive(c); err != nil {
		return err
	}
	if err := c.requireAdmin(actor); err != nil {
		return err
	}
	if err := check(ChatParams{Name: c.name, Description: description}); err != nil {
		return err
	}
	c.group.description = description
	return nil
}

// Delete removes the chat with its whole history. Folders keep existing without it.
func (c *Chat) Delete() error {
	if err := c.store.chatAlive(c); err != nil {
		return err
	}
	return c.destroy()
}

func (c *Chat) destroy() error {
	var errs []error
	for _, m := range c.history.Items() {
		errs = append(errs, m.destroy())
	}
	folderChats.DetachReverse(c)
	for _, u := range c.members.Values() {
		c.detachMember(u)
	}
	if c.group != nil {
		groupAdmin.Clear(c)
	}
	errs = append(errs, c.store.ext.chats.Unregister(c))
	return errors.Join(errs...)
}
