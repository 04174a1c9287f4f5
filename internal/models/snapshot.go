package models

import (
	"chatgraph/backend/internal/config"
	"chatgraph/backend/internal/relation"
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Snapshot is the whole content of a Store with every association expressed
// through entity keys, ready to be encoded as JSON.
type Snapshot struct {
	TakenAt  time.Time       `json:"taken_at"`
	Seq      uint64          `json:"seq"`
	Users    []UserRecord    `json:"users"`
	Packs    []PackRecord    `json:"packs"`
	Stickers []StickerRecord `json:"stickers"`
	Chats    []ChatRecord    `json:"chats"`
	Folders  []FolderRecord  `json:"folders"`
	Messages []MessageRecord `json:"messages"`
}

type PlanRecord struct {
	Name           string     `json:"name"`
	AdFrequency    int        `json:"ad_frequency,omitempty"`
	SavedPackQuota int        `json:"saved_pack_quota,omitempty"`
	Since          *time.Time `json:"since,omitempty"`
	Until          *time.Time `json:"until,omitempty"`
}

type UserRecord struct {
	Phone      string     `json:"phone"`
	Username   string     `json:"username"`
	Online     bool       `json:"online,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	Plan       PlanRecord `json:"plan"`
	Blocked    []string   `json:"blocked,omitempty"`
	SavedPacks []string   `json:"saved_packs,omitempty"`
}

type PackRecord struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Premium  bool     `json:"premium,omitempty"`
	Stickers []string `json:"stickers,omitempty"`
	Manager  string   `json:"manager,omitempty"`
}

type StickerRecord struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	FileURL string `json:"file_url,omitempty"`
}

type ChatRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	Group       bool      `json:"group"`
	Admin       string    `json:"admin,omitempty"`
	Description string    `json:"description,omitempty"`
	Cap         int       `json:"cap"`
	Members     []string  `json:"members"`
}

type FolderRecord struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Owner string   `json:"owner"`
	Chats []string `json:"chats,omitempty"`
}

type ContentRecord struct {
	Body     string        `json:"body,omitempty"`
	URL      string        `json:"url,omitempty"`
	Width    int           `json:"width,omitempty"`
	Height   int           `json:"height,omitempty"`
	Sticker  string        `json:"sticker,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Name     string        `json:"name,omitempty"`
	Size     int64         `json:"size,omitempty"`
}

type MessageRecord struct {
	ID          string        `json:"id"`
	Kind        ContentKind   `json:"kind"`
	Seq         uint64        `json:"seq"`
	Sender      string        `json:"sender"`
	Chat        string        `json:"chat"`
	Content     ContentRecord `json:"content"`
	Mentions    []string      `json:"mentions,omitempty"`
	State       string        `json:"state"`
	SavedAt     *time.Time    `json:"saved_at,omitempty"`
	SentAt      *time.Time    `json:"sent_at,omitempty"`
	DeliveredAt *time.Time    `json:"delivered_at,omitempty"`
	EditedAt    *time.Time    `json:"edited_at,omitempty"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
	ReadBy      []string      `json:"read_by,omitempty"`
}

const (
	stateDraft = "draft"
	stateSent  = "sent"
)

// Phones lists the user keys of the snapshot.
func (snap Snapshot) Phones() []string {
	out := make([]string, 0, len(snap.Users))
	for _, u := range snap.Users {
		out = append(out, u.Phone)
	}
	return out
}

func (snap Snapshot) Drafts() int {
	n := 0
	for _, m := range snap.Messages {
		if m.State == stateDraft {
			n++
		}
	}
	return n
}

// Snapshot captures the store. Messages come out in creation order.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		TakenAt:  s.now(),
		Seq:      s.seq,
		Users:    []UserRecord{},
		Packs:    []PackRecord{},
		Stickers: []StickerRecord{},
		Chats:    []ChatRecord{},
		Folders:  []FolderRecord{},
		Messages: []MessageRecord{},
	}
	for _, u := range s.ext.users.All() {
		snap.Users = append(snap.Users, UserRecord{
			Phone:      u.phone,
			Username:   u.username,
			Online:     u.online,
			LastSeen:   u.lastSeen,
			Plan:       planRecord(u.plan),
			Blocked:    keys(u.blocked.Items(), (*User).Phone),
			SavedPacks: keys(u.savedPacks.Items(), (*Stickerpack).ID),
		})
	}
	for _, p := range s.ext.packs.All() {
		r := PackRecord{ID: p.id, Name: p.name, Premium: p.premium, Stickers: keys(p.stickers.Values(), (*Sticker).ID)}
		if p.manager != nil {
			r.Manager = p.manager.phone
		}
		snap.Packs = append(snap.Packs, r)
	}
	for _, st := range s.ext.stickers.All() {
		snap.Stickers = append(snap.Stickers, StickerRecord{ID: st.id, Code: st.code, FileURL: st.fileURL})
	}
	for _, c := range s.ext.chats.All() {
		r := ChatRecord{
			ID:        c.id,
			Name:      c.name,
			CreatedAt: c.createdAt,
			Group:     c.group != nil,
			Cap:       c.members.Max(),
			Members:   c.members.Keys(),
		}
		if c.group != nil {
			r.Admin = c.group.admin.phone
			r.Description = c.group.description
		}
		snap.Chats = append(snap.Chats, r)
	}
	for _, f := range s.ext.folders.All() {
		snap.Folders = append(snap.Folders, FolderRecord{
			ID:    f.id,
			Name:  f.name,
			Owner: f.owner.phone,
			Chats: keys(f.chats.Items(), (*Chat).ID),
		})
	}
	for _, kind := range ContentKinds {
		for _, m := range s.ext.messages[kind].All() {
			snap.Messages = append(snap.Messages, messageRecord(m))
		}
	}
	slices.SortFunc(snap.Messages, func(a, b MessageRecord) int { return cmp.Compare(a.Seq, b.Seq) })
	return snap
}

func keys[V any](vs []V, key func(V) string) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = key(v)
	}
	return out
}

func planRecord(p Plan) PlanRecord {
	switch p := p.(type) {
	case Regular:
		return PlanRecord{Name: p.PlanName(), AdFrequency: p.AdFrequency, SavedPackQuota: p.SavedPackQuota}
	case Premium:
		since := p.Since
		return PlanRecord{Name: p.PlanName(), Since: &since, Until: p.Until}
	}
	return PlanRecord{}
}

func (r PlanRecord) plan() (Plan, error) {
	switch r.Name {
	case "regular":
		return Regular{AdFrequency: r.AdFrequency, SavedPackQuota: r.SavedPackQuota}, nil
	case "premium":
		if r.Since == nil {
			return nil, fmt.Errorf("premium plan without start: %w", relation.ErrValidation)
		}
		return Premium{Since: *r.Since, Until: r.Until}, nil
	}
	return nil, fmt.Errorf("unknown plan %q: %w", r.Name, relation.ErrValidation)
}

func messageRecord(m *Message) MessageRecord {
	r := MessageRecord{
		ID:       m.id,
		Kind:     m.kind,
		Seq:      m.seq,
		Sender:   m.sender.phone,
		Chat:     m.chat.id,
		Content:  contentRecord(m.content),
		Mentions: keys(m.mentions.Items(), (*User).Phone),
	}
	switch p := m.part.(type) {
	case *Draft:
		savedAt := p.savedAt
		r.State = stateDraft
		r.SavedAt = &savedAt
	case *Sent:
		sentAt, deliveredAt := p.sentAt, p.deliveredAt
		r.State = stateSent
		r.SentAt = &sentAt
		r.DeliveredAt = &deliveredAt
		r.EditedAt = p.editedAt
		r.DeletedAt = p.deletedAt
		r.ReadBy = keys(p.readBy.Items(), (*User).Phone)
	}
	return r
}

func contentRecord(c Content) ContentRecord {
	switch c := c.(type) {
	case TextContent:
		return ContentRecord{Body: c.Body}
	case ImageContent:
		return ContentRecord{URL: c.URL, Width: c.Width, Height: c.Height}
	case StickerContent:
		return ContentRecord{Sticker: c.Sticker.id}
	case VideoContent:
		return ContentRecord{URL: c.URL, Duration: c.Duration}
	case FileContent:
		return ContentRecord{Name: c.Name, Size: c.Size}
	}
	return ContentRecord{}
}

func (r ContentRecord) content(kind ContentKind, stickers *relation.Registry[string, *Sticker]) (Content, error) {
	switch kind {
	case KindText:
		return TextContent{Body: r.Body}, nil
	case KindImage:
		return ImageContent{URL: r.URL, Width: r.Width, Height: r.Height}, nil
	case KindSticker:
		st, err := lookup(stickers, "sticker", r.Sticker)
		if err != nil {
			return nil, err
		}
		return StickerContent{Sticker: st}, nil
	case KindVideo:
		return VideoContent{URL: r.URL, Duration: r.Duration}, nil
	case KindFile:
		return FileContent{Name: r.Name, Size: r.Size}, nil
	}
	return nil, fmt.Errorf("unknown content kind %q: %w", kind, relation.ErrValidation)
}

func lookup[V comparable](reg *relation.Registry[string, V], what, key string) (V, error) {
	v, ok := reg.Get(key)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%s %s: %w", what, key, relation.ErrNotFound)
	}
	return v, nil
}

// Restore replaces the content of the store with snap. Every registry is
// reloaded and every association rebuilt on fresh extents, so when anything
// in snap is inconsistent the store keeps its previous content and the error
// is returned. Entities obtained before a successful Restore are dead afterwards.
func (s *Store) Restore(snap Snapshot) error {
	ext, seq, err := s.rebuild(snap)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.ext = ext
	s.seq = seq
	return nil
}

func (s *Store) rebuild(snap Snapshot) (*extents, uint64, error) {
	ext := newExtents()

	users := make([]*User, 0, len(snap.Users))
	for _, r := range snap.Users {
		if err := check(UserParams{Phone: r.Phone, Username: r.Username}); err != nil {
			return nil, 0, err
		}
		plan, err := r.Plan.plan()
		if err != nil {
			return nil, 0, fmt.Errorf("user %s: %w", r.Phone, err)
		}
		u := s.newUser(r.Phone, r.Username, plan)
		u.online = r.Online
		u.lastSeen = r.LastSeen
		users = append(users, u)
	}
	if err := ext.users.Reload(users); err != nil {
		return nil, 0, err
	}

	packs := make([]*Stickerpack, 0, len(snap.Packs))
	for _, r := range snap.Packs {
		if err := check(PackParams{ID: r.ID, Name: r.Name, Premium: r.Premium}); err != nil {
			return nil, 0, err
		}
		packs = append(packs, s.newPack(r.ID, r.Name, r.Premium))
	}
	if err := ext.packs.Reload(packs); err != nil {
		return nil, 0, err
	}

	stickers := make([]*Sticker, 0, len(snap.Stickers))
	for _, r := range snap.Stickers {
		if err := check(StickerParams{ID: r.ID, Code: r.Code, FileURL: r.FileURL}); err != nil {
			return nil, 0, err
		}
		stickers = append(stickers, s.newSticker(r.ID, r.Code, r.FileURL))
	}
	if err := ext.stickers.Reload(stickers); err != nil {
		return nil, 0, err
	}

	chats := make([]*Chat, 0, len(snap.Chats))
	for _, r := range snap.Chats {
		if err := check(ChatParams{ID: r.ID, Name: r.Name, Description: r.Description}); err != nil {
			return nil, 0, err
		}
		if err := s.notFuture("chat creation time", r.CreatedAt); err != nil {
			return nil, 0, err
		}
		var group *groupInfo
		capacity := config.PrivateChatCap
		if r.Group {
			group = &groupInfo{description: r.Description}
			capacity = cmp.Or(r.Cap, s.limits.DefaultGroupCap)
		}
		chats = append(chats, s.newChat(r.ID, r.Name, r.CreatedAt, capacity, group))
	}
	if err := ext.chats.Reload(chats); err != nil {
		return nil, 0, err
	}

	folders := make([]*Folder, 0, len(snap.Folders))
	for _, r := range snap.Folders {
		if err := check(FolderParams{ID: r.ID, Name: r.Name}); err != nil {
			return nil, 0, err
		}
		folders = append(folders, s.newFolder(r.ID, r.Name))
	}
	if err := ext.folders.Reload(folders); err != nil {
		return nil, 0, err
	}

	if err := s.relink(ext, snap, users, packs, chats, folders); err != nil {
		return nil, 0, err
	}

	seq, err := s.restoreMessages(ext, snap.Messages)
	if err != nil {
		return nil, 0, err
	}
	return ext, max(seq, snap.Seq), nil
}

// relink rebuilds the associations between users, packs, chats and folders.
// The entity slices are in the same order as their records in snap.
func (s *Store) relink(ext *extents, snap Snapshot, users []*User, packs []*Stickerpack, chats []*Chat, folders []*Folder) error {
	for i, r := range snap.Users {
		u := users[i]
		for _, phone := range r.Blocked {
			other, err := lookup(ext.users, "blocked user", phone)
			if err != nil {
				return err
			}
			if other == u {
				return fmt.Errorf("user %s blocks itself: %w", u.phone, relation.ErrValidation)
			}
			blocking.Add(u, other)
		}
		for _, id := range r.SavedPacks {
			p, err := lookup(ext.packs, "saved stickerpack", id)
			if err != nil {
				return err
			}
			if _, regular := u.plan.(Regular); regular && p.premium {
				return fmt.Errorf("regular user %s saved premium stickerpack %s: %w", u.phone, p.id, relation.ErrUnauthorized)
			}
			savedPacks.Add(u, p)
		}
		if regular, ok := u.plan.(Regular); ok && u.savedPacks.Len() > regular.SavedPackQuota {
			return fmt.Errorf("user %s saved %d stickerpacks: %w", u.phone, u.savedPacks.Len(), relation.ErrCapacityExceeded)
		}
	}

	for i, r := range snap.Packs {
		p := packs[i]
		for _, id := range r.Stickers {
			st, err := lookup(ext.stickers, "sticker", id)
			if err != nil {
				return err
			}
			if st.pack != nil {
				return fmt.Errorf("sticker %s in stickerpacks %s and %s: %w", id, st.pack.id, p.id, relation.ErrDuplicateKey)
			}
			inserted, err := p.stickers.Put(st.code, st)
			if err != nil {
				return fmt.Errorf("stickerpack %s: %w", p.id, err)
			}
			if !inserted {
				return fmt.Errorf("stickerpack %s code %s: %w", p.id, st.code, relation.ErrDuplicateKey)
			}
			st.pack = p
		}
		if r.Manager != "" {
			u, err := lookup(ext.users, "stickerpack manager", r.Manager)
			if err != nil {
				return err
			}
			packManager.Set(p, u)
		}
	}

	for i, r := range snap.Chats {
		c := chats[i]
		for _, phone := range r.Members {
			u, err := lookup(ext.users, "chat member", phone)
			if err != nil {
				return err
			}
			if err := c.attachMember(u); err != nil {
				return err
			}
		}
		if c.group == nil {
			continue
		}
		admin, err := lookup(ext.users, "chat admin", r.Admin)
		if err != nil {
			return err
		}
		if !c.HasMember(admin) {
			return fmt.Errorf("admin %s is not a member of chat %s: %w", admin.phone, c.id, relation.ErrValidation)
		}
		groupAdmin.Set(c, admin)
	}

	for i, r := range snap.Folders {
		f := folders[i]
		owner, err := lookup(ext.users, "folder owner", r.Owner)
		if err != nil {
			return err
		}
		folderOwner.Set(f, owner)
		if len(r.Chats) > s.limits.MaxFolderChats {
			return fmt.Errorf("folder %s holds %d chats: %w", f.id, len(r.Chats), relation.ErrCapacityExceeded)
		}
		for _, id := range r.Chats {
			c, err := lookup(ext.chats, "folder chat", id)
			if err != nil {
				return err
			}
			folderChats.Add(f, c)
		}
	}
	return nil
}

// restoreMessages rebuilds messages and their parts in sequence order and
// returns the highest sequence number seen.
func (s *Store) restoreMessages(ext *extents, records []MessageRecord) (uint64, error) {
	records = slices.Clone(records)
	slices.SortStableFunc(records, func(a, b MessageRecord) int { return cmp.Compare(a.Seq, b.Seq) })

	byKind := make(map[ContentKind][]*Message, len(ContentKinds))
	var drafts []*Draft
	var sents []*Sent
	var last uint64
	for _, r := range records {
		content, err := r.Content.content(r.Kind, ext.stickers)
		if err != nil {
			return 0, fmt.Errorf("message %s: %w", r.ID, err)
		}
		if err := check(content); err != nil {
			return 0, fmt.Errorf("message %s: %w", r.ID, err)
		}
		m := s.newMessage(r.ID, content)
		m.seq = r.Seq
		last = max(last, r.Seq)

		switch r.State {
		case stateDraft:
			if r.SavedAt == nil {
				return 0, fmt.Errorf("draft message %s without save time: %w", r.ID, relation.ErrValidation)
			}
			d := &Draft{message: m, savedAt: *r.SavedAt}
			m.part = d
			drafts = append(drafts, d)
		case stateSent:
			sent, err := s.restoreSent(m, r)
			if err != nil {
				return 0, err
			}
			m.part = sent
			sents = append(sents, sent)
		default:
			return 0, fmt.Errorf("message %s has unknown state %q: %w", r.ID, r.State, relation.ErrValidation)
		}
		byKind[r.Kind] = append(byKind[r.Kind], m)
	}
	for kind, reg := range ext.messages {
		if err := reg.Reload(byKind[kind]); err != nil {
			return 0, err
		}
	}
	if err := ext.drafts.Reload(drafts); err != nil {
		return 0, err
	}
	if err := ext.sents.Reload(sents); err != nil {
		return 0, err
	}

	for _, r := range records {
		m, _ := ext.messages[r.Kind].Get(r.ID)
		sender, err := lookup(ext.users, "message sender", r.Sender)
		if err != nil {
			return 0, err
		}
		chat, err := lookup(ext.chats, "message chat", r.Chat)
		if err != nil {
			return 0, err
		}
		m.attach(sender, chat)
		for _, phone := range r.Mentions {
			u, err := lookup(ext.users, "mentioned user", phone)
			if err != nil {
				return 0, err
			}
			mentions.Add(m, u)
		}
		sent, ok := m.part.(*Sent)
		if !ok {
			continue
		}
		for _, phone := range r.ReadBy {
			u, err := lookup(ext.users, "reader", phone)
			if err != nil {
				return 0, err
			}
			readBy.Add(sent, u)
		}
	}
	return last, nil
}

func (s *Store) restoreSent(m *Message, r MessageRecord) (*Sent, error) {
	if r.SentAt == nil {
		return nil, fmt.Errorf("sent message %s without send time: %w", r.ID, relation.ErrValidation)
	}
	sent := &Sent{
		message:     m,
		sentAt:      *r.SentAt,
		deliveredAt: *r.SentAt,
		editedAt:    r.EditedAt,
		deletedAt:   r.DeletedAt,
		readBy:      relation.NewSet[*User](),
	}
	if r.DeliveredAt != nil {
		sent.deliveredAt = *r.DeliveredAt
	}
	checks := map[string]*time.Time{"delivery time": &sent.deliveredAt, "edit time": r.EditedAt, "delete time": r.DeletedAt}
	for field, t := range checks {
		if t == nil {
			continue
		}
		if t.Before(sent.sentAt) {
			return nil, fmt.Errorf("message %s %s before send time: %w", r.ID, field, relation.ErrValidation)
		}
		if err := s.notFuture(field, *t); err != nil {
			return nil, fmt.Errorf("message %s: %w", r.ID, err)
		}
	}
	return sent, nil
}
