package models

import (
	"chatgraph/backend/internal/relation"
	"fmt"

	"github.com/google/uuid"
)

// Stickerpack holds stickers keyed by their emoji code. Stickers are not
// owned: they can move to another pack and survive the pack being deleted.
type Stickerpack struct {
	store    *Store
	id       string
	name     string
	premium  bool
	stickers *relation.Qualified[string, *Sticker]
	savers   *relation.Set[*User]
	manager  *User
}

type Sticker struct {
	store   *Store
	id      string
	code    string
	fileURL string
	pack    *Stickerpack
	uses    *relation.Set[*Message]
}

func (s *Store) newPack(id, name string, premium bool) *Stickerpack {
	return &Stickerpack{
		store:    s,
		id:       id,
		name:     name,
		premium:  premium,
		stickers: relation.NewQualified[string, *Sticker]("stickerpack", s.limits.MinPackStickers, s.limits.MaxPackStickers),
		savers:   relation.NewSet[*User](),
	}
}

func (s *Store) newSticker(id, code, fileURL string) *Sticker {
	return &Sticker{store: s, id: id, code: code, fileURL: fileURL, uses: relation.NewSet[*Message]()}
}

// NewStickerpack creates an empty pack. It only gets its lower bound
// enforced once stickers are removed from it.
func (s *Store) NewStickerpack(p PackParams) (*Stickerpack, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	pack := s.newPack(p.ID, p.Name, p.Premium)
	if err := s.ext.packs.Register(pack); err != nil {
		return nil, err
	}
	return pack, nil
}

// NewSticker creates a sticker that belongs to no pack yet.
func (s *Store) NewSticker(p StickerParams) (*Sticker, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	st := s.newSticker(p.ID, p.Code, p.FileURL)
	if err := s.ext.stickers.Register(st); err != nil {
		return nil, err
	}
	return st, nil
}

func (p *Stickerpack) ID() string { return p.id }
func (p *Stickerpack) Name() string { return p.name }
func (p *Stickerpack) Premium() bool { return p.premium }
func (p *Stickerpack) Len() int { return p.stickers.Len() }
func (p *Stickerpack) Stickers() []*Sticker { return p.stickers.Values() }
func (p *Stickerpack) Savers() []*User { return p.savers.Items() }
func (p *Stickerpack) Manager() *User { return p.manager }

// Sticker looks a sticker up by emoji code.
func (p *Stickerpack) Sticker(code string) (*Sticker, bool) {
	return p.stickers.Get(code)
}

// AddSticker moves st into the pack, out of whatever pack held it before. A
// code already used by another sticker of this pack makes it a silent no-op.
// The old pack is left only once the new one has accepted the sticker, and
// may end up below its minimum.
func (p *Stickerpack) AddSticker(st *Sticker) error {
	if err := p.store.packAlive(p); err != nil {
		return err
	}
	if err := p.store.stickerAlive(st); err != nil {
		return err
	}
	if st.pack == p {
		return nil
	}
	if _, taken := p.stickers.Get(st.code); taken {
		return nil
	}
	if p.stickers.Full() {
		return fmt.Errorf("stickerpack %s holds %d stickers: %w", p.name, p.stickers.Max(), relation.ErrCapacityExceeded)
	}
	if old := st.pack; old != nil {
		old.stickers.Detach(st.code)
	}
	if _, err := p.stickers.Put(st.code, st); err != nil {
		return err
	}
	st.pack = p
	return nil
}

// RemoveSticker takes the sticker with the given code out of the pack. The
// sticker stays alive without a pack.
func (p *Stickerpack) RemoveSticker(code string) (*Sticker, error) {
	if err := p.store.packAlive(p); err != nil {
		return nil, err
	}
	st, err := p.stickers.Remove(code)
	if err != nil {
		return nil, fmt.Errorf("stickerpack %s code %s: %w", p.name, code, err)
	}
	st.pack = nil
	return st, nil
}

func (p *Stickerpack) SetManager(u *User) error {
	if err := p.store.packAlive(p); err != nil {
		return err
	}
	if err := p.store.userAlive(u); err != nil {
		return err
	}
	packManager.Set(p, u)
	return nil
}

// ClearManager is a no-op when the pack has no manager.
func (p *Stickerpack) ClearManager() error {
	if err := p.store.packAlive(p); err != nil {
		return err
	}
	packManager.Clear(p)
	return nil
}

// Delete removes the pack. Its stickers survive without a pack and users lose it from their saved packs.
func (p *Stickerpack) Delete() error {
	if err := p.store.packAlive(p); err != nil {
		return err
	}
	for _, code := range p.stickers.Keys() {
		if st, ok := p.stickers.Detach(code); ok {
			st.pack = nil
		}
	}
	savedPacks.DetachReverse(p)
	packManager.Clear(p)
	return p.store.ext.packs.Unregister(p)
}

func (st *Sticker) ID() string { return st.id }
func (st *Sticker) Code() string { return st.code }
func (st *Sticker) FileURL() string { return st.fileURL }
func (st *Sticker) Pack() *Stickerpack { return st.pack }
func (st *Sticker) UsedBy() []*Message { return st.uses.Items() }

// Delete removes the sticker from its pack, which must not drop below its
// minimum, and from the store. Stickers still used by messages cannot be deleted.
func (st *Sticker) Delete() error {
	if err := st.store.stickerAlive(st); err != nil {
		return err
	}
	if n := st.uses.Len(); n > 0 {
		return fmt.Errorf("sticker %s is used by %d messages: %w", st.code, n, relation.ErrInvalidState)
	}
	if st.pack != nil {
		if _, err := st.pack.RemoveSticker(st.code); err != nil {
			return err
		}
	}
	return st.store.ext.stickers.Unregister(st)
}
