package models

import (
	"chatgraph/backend/internal/relation"
	"errors"
	"fmt"
	"time"
)

// Plan is the subscription variant of a User: Regular or Premium.
type Plan interface {
	PlanName() string
	isPlan()
}

// Regular users see ads and have a bounded number of saved packs.
type Regular struct {
	AdFrequency    int
	SavedPackQuota int
}

// Premium users have no saved pack quota. A nil Until means the subscription does not expire.
type Premium struct {
	Since time.Time
	Until *time.Time
}

func (Regular) PlanName() string { return "regular" }
func (Premium) PlanName() string { return "premium" }
func (Regular) isPlan() {}
func (Premium) isPlan() {}

// Upgrade consumes the Regular plan and produces the Premium one that replaces it.
func (Regular) Upgrade(since time.Time, until *time.Time) Premium {
	return Premium{Since: since, Until: until}
}

// Active reports whether the subscription covers t.
func (p Premium) Active(t time.Time) bool {
	return !t.Before(p.Since) && (p.Until == nil || t.Before(*p.Until))
}

type User struct {
	store    *Store
	phone    string
	username string
	online   bool
	lastSeen *time.Time
	plan     Plan

	folders      *relation.Set[*Folder]
	savedPacks   *relation.Set[*Stickerpack]
	blocked      *relation.Set[*User]
	blockedBy    *relation.Set[*User]
	chats        *relation.Set[*Chat]
	sent         *relation.Set[*Message]
	mentionedIn  *relation.Set[*Message]
	read         *relation.Set[*Sent]
	adminOf      *relation.Set[*Chat]
	managedPacks *relation.Set[*Stickerpack]
}

func (s *Store) newUser(phone, username string, plan Plan) *User {
	return &User{
		store:        s,
		phone:        phone,
		username:     username,
		plan:         plan,
		folders:      relation.NewSet[*Folder](),
		savedPacks:   relation.NewSet[*Stickerpack](),
		blocked:      relation.NewSet[*User](),
		blockedBy:    relation.NewSet[*User](),
		chats:        relation.NewSet[*Chat](),
		sent:         relation.NewSet[*Message](),
		mentionedIn:  relation.NewSet[*Message](),
		read:         relation.NewSet[*Sent](),
		adminOf:      relation.NewSet[*Chat](),
		managedPacks: relation.NewSet[*Stickerpack](),
	}
}

// NewUser creates and registers a Regular user. The phone number is the user's identity.
func (s *Store) NewUser(p UserParams) (*User, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	u := s.newUser(p.Phone, p.Username, Regular{
		AdFrequency:    s.limits.DefaultAdFrequency,
		SavedPackQuota: s.limits.RegularSavedPackQuota,
	})
	if err := s.ext.users.Register(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) Phone() string { return u.phone }
func (u *User) Username() string { return u.username }
func (u *User) Online() bool { return u.online }
func (u *User) LastSeen() *time.Time { return u.lastSeen }
func (u *User) Plan() Plan { return u.plan }
func (u *User) Folders() []*Folder { return u.folders.Items() }
func (u *User) SavedPacks() []*Stickerpack { return u.savedPacks.Items() }
func (u *User) Blocked() []*User { return u.blocked.Items() }
func (u *User) BlockedBy() []*User { return u.blockedBy.Items() }
func (u *User) Chats() []*Chat { return u.chats.Items() }
func (u *User) SentMessages() []*Message { return u.sent.Items() }
func (u *User) MentionedIn() []*Message { return u.mentionedIn.Items() }
func (u *User) ReadMessages() []*Sent { return u.read.Items() }
func (u *User) AdminOf() []*Chat { return u.adminOf.Items() }
func (u *User) ManagedPacks() []*Stickerpack { return u.managedPacks.Items() }
func (u *User) HasBlocked(other *User) bool { return blocking.Linked(u, other) }
func (u *User) HasSaved(p *Stickerpack) bool { return savedPacks.Linked(u, p) }
func (u *User) IsMemberOf(c *Chat) bool { return u.chats.Contains(c) }
func (u *User) String() string { return fmt.Sprintf("%s (%s)", u.username, u.phone) }
func (u *User) blockedEitherWay(other *User) bool { return u.HasBlocked(other) || other.HasBlocked(u) }

// IsPremium reports whether the user has a Premium plan that is active now.
func (u *User) IsPremium() bool {
	p, ok := u.plan.(Premium)
	return ok && p.Active(u.store.now())
}

func (u *User) Rename(username string) error {
	if err := u.store.userAlive(u); err != nil {
		return err
	}
	if err := check(UserParams{Phone: u.phone, Username: username}); err != nil {
		return err
	}
	u.username = username
	return nil
}

// SetOnline flips the presence flag. Going offline records the last-seen time.
func (u *User) SetOnline(online bool) error {
	if err := u.store.userAlive(u); err != nil {
		return err
	}
	if u.online && !online {
		t := u.store.now()
		u.lastSeen = &t
	}
	u.online = online
	return nil
}

// UpgradeToPremium turns a Regular user into a Premium one. until may be nil
// for an open-ended subscription. There is no way back.
func (u *User) UpgradeToPremium(until *time.Time) error {
	if err := u.store.userAlive(u); err != nil {
		return err
	}
	regular, ok := u.plan.(Regular)
	if !ok {
		return fmt.Errorf("user %s is already premium: %w", u.phone, relation.ErrInvalidTransition)
	}
	now := u.store.now()
	if until != nil && !until.After(now) {
		return fmt.Errorf("premium end %s is not after now: %w", until.Format(time.RFC3339), relation.ErrValidation)
	}
	u.plan = regular.Upgrade(now, until)
	return nil
}

// SavePack adds p to the user's saved packs. Regular users are bounded by their
// quota, and premium packs need an active Premium plan.
func (u *User) SavePack(p *Stickerpack) error {
	if err := u.store.userAlive(u); err != nil {
		return err
	}
	if err := u.store.packAlive(p); err != nil {
		return err
	}
	if savedPacks.Linked(u, p) {
		return nil
	}
	if p.premium && !u.IsPremium() {
		return fmt.Errorf("stickerpack %s needs premium: %w", p.name, relation.ErrUnauthorized)
	}
	if regular, ok := u.plan.(Regular); ok && u.savedPacks.Len() >= regular.SavedPackQuota {
		return fmt.Errorf("user %s saved %d stickerpacks: %w", u.phone, u.savedPacks.Len(), relation.ErrCapacityExceeded)
	}
	savedPacks.Add(u, p)
	return nil
}

func (u *User) UnsavePack(p *Stickerpack) error {
	if err := u.store.userAlive(u); err != nil {
		return err
	}
	return savedPacks.Remove(u, p)
}

func (u *User) Block(other *User) error {
	if err := u.store.userAlive(u); err != nil {
		return err
	}
	if err := u.store.userAlive(other); err != nil {
		return err
	}
	if u == other {
		return fmt.Errorf("user %s cannot block itself: %w", u.phone, relation.ErrValidation)
	}
	blocking.Add(u, other)
	return nil
}

// Unblock is a no-op when other is not blocked.
func (u *User) Unblock(other *User) error {
	if err := u.store.userAlive(u); err != nil {
		return err
	}
	return blocking.Remove(u, other)
}

// Delete removes the user and everything only meaningful with it: folders,
// sent messages, memberships, and every link pointing at the user. A group the
// user administered passes to its longest-standing remaining member, or is
// deleted when nobody is left.
func (u *User) Delete() error {
	if err := u.store.userAlive(u); err != nil {
		return err
	}
	var errs []error
	for _, c := range u.chats.Items() {
		if c.group != nil && c.group.admin == u {
			if next := c.successor(u); next != nil {
				groupAdmin.Set(c, next)
			} else {
				errs = append(errs, c.destroy())
				continue
			}
		}
		c.detachMember(u)
	}
	for _, m := range u.sent.Items() {
		errs = append(errs, m.destroy())
	}
	for _, f := range u.folders.Items() {
		errs = append(errs, f.destroy())
	}
	blocking.Detach(u)
	blocking.DetachReverse(u)
	savedPacks.Detach(u)
	packManager.DetachReverse(u)
	readBy.DetachReverse(u)
	mentions.DetachReverse(u)
	errs = append(errs, u.store.ext.users.Unregister(u))
	return errors.Join(errs...)
}
