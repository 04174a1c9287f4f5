package models

import (
	"chatgraph/backend/internal/relation"
	"fmt"

	"github.com/google/uuid"
)

// Folder groups chats for its owner. Chats are shared, not owned: a chat can
// sit in many folders and outlives them.
type Folder struct {
	store *Store
	id    string
	name  string
	owner *User
	chats *relation.Set[*Chat]
}

func (s *Store) newFolder(id, name string) *Folder {
	return &Folder{store: s, id: id, name: name, chats: relation.NewSet[*Chat]()}
}

func (s *Store) NewFolder(owner *User, p FolderParams) (*Folder, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	if err := s.userAlive(owner); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	f := s.newFolder(p.ID, p.Name)
	if err := s.ext.folders.Register(f); err != nil {
		return nil, err
	}
	folderOwner.Set(f, owner)
	return f, nil
}

func (f *Folder) ID() string { return f.id }
func (f *Folder) Name() string { return f.name }
func (f *Folder) Owner() *User { return f.owner }
func (f *Folder) Chats() []*Chat { return f.chats.Items() }
func (f *Folder) Contains(c *Chat) bool { return f.chats.Contains(c) }

func (f *Folder) Rename(name string) error {
	if err := f.store.folderAlive(f); err != nil {
		return err
	}
	if err := check(FolderParams{ID: f.id, Name: name}); err != nil {
		return err
	}
	f.name = name
	return nil
}

// AddChat puts c into the folder. Adding it twice is a no-op.
func (f *Folder) AddChat(c *Chat) error {
	if err := f.store.folderAlive(f); err != nil {
		return err
	}
	if err := f.store.chatAlive(c); err != nil {
		return err
	}
	if folderChats.Linked(f, c) {
		return nil
	}
	if limit := f.store.limits.MaxFolderChats; f.chats.Len() >= limit {
		return fmt.Errorf("folder %s holds %d chats: %w", f.name, limit, relation.ErrCapacityExceeded)
	}
	folderChats.Add(f, c)
	return nil
}

func (f *Folder) RemoveChat(c *Chat) error {
	if err := f.store.folderAlive(f); err != nil {
		return err
	}
	return folderChats.Remove(f, c)
}

// Delete removes the folder. Its chats stay alive.
func (f *Folder) Delete() error {
	if err := f.store.folderAlive(f); err != nil {
		return err
	}
	return f.destroy()
}

func (f *Folder) destroy() error {
	folderChats.Detach(f)
	folderOwner.Clear(f)
	return f.store.ext.folders.Unregister(f)
}
