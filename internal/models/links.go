package models

import "chatgraph/backend/internal/relation"

// Every association of the model, declared once. Entity methods go through
// these so that both ends are always updated together.
var (
	savedPacks = relation.Link[*User, *Stickerpack]{
		Name:    "saved stickerpack",
		Forward: func(u *User) *relation.Set[*Stickerpack] { return u.savedPacks },
		Reverse: func(p *Stickerpack) *relation.Set[*User] { return p.savers },
		Policy:  relation.Strict,
	}

	blocking = relation.Link[*User, *User]{
		Name:    "block",
		Forward: func(u *User) *relation.Set[*User] { return u.blocked },
		Reverse: func(u *User) *relation.Set[*User] { return u.blockedBy },
		Policy:  relation.Lenient,
	}

	mentions = relation.Link[*Message, *User]{
		Name:    "mention",
		Forward: func(m *Message) *relation.Set[*User] { return m.mentions },
		Reverse: func(u *User) *relation.Set[*Message] { return u.mentionedIn },
		Policy:  relation.Strict,
	}

	readBy = relation.Link[*Sent, *User]{
		Name:    "read by",
		Forward: func(s *Sent) *relation.Set[*User] { return s.readBy },
		Reverse: func(u *User) *relation.Set[*Sent] { return u.read },
		Policy:  relation.Strict,
	}

	folderChats = relation.Link[*Folder, *Chat]{
		Name:    "folder chat",
		Forward: func(f *Folder) *relation.Set[*Chat] { return f.chats },
		Reverse: func(c *Chat) *relation.Set[*Folder] { return c.folders },
		Policy:  relation.Strict,
	}

	messageSender = relation.Ref[*Message, *User]{
		Name:    "sender",
		Get:     func(m *Message) *User { return m.sender },
		Put:     func(m *Message, u *User) { m.sender = u },
		Reverse: func(u *User) *relation.Set[*Message] { return u.sent },
	}

	messageChat = relation.Ref[*Message, *Chat]{
		Name:    "chat",
		Get:     func(m *Message) *Chat { return m.chat },
		Put:     func(m *Message, c *Chat) { m.chat = c },
		Reverse: func(c *Chat) *relation.Set[*Message] { return c.history },
	}

	groupAdmin = relation.Ref[*Chat, *User]{
		Name:    "admin",
		Get:     func(c *Chat) *User { return c.group.admin },
		Put:     func(c *Chat, u *User) { c.group.admin = u },
		Reverse: func(u *User) *relation.Set[*Chat] { return u.adminOf },
	}

	packManager = relation.Ref[*Stickerpack, *User]{
		Name:    "manager",
		Get:     func(p *Stickerpack) *User { return p.manager },
		Put:     func(p *Stickerpack, u *User) { p.manager = u },
		Reverse: func(u *User) *relation.Set[*Stickerpack] { return u.managedPacks },
	}

	folderOwner = relation.Ref[*Folder, *User]{
		Name:    "owner",
		Get:     func(f *Folder) *User { return f.owner },
		Put:     func(f *Folder, u *User) { f.owner = u },
		Reverse: func(u *User) *relation.Set[*Folder] { return u.folders },
	}
)

var stickerUse = relation.Ref[*Message, *Sticker]{
	Name:    "sticker use",
	Get:     func(m *Message) *Sticker { return m.sticker },
	Put:     func(m *Message, st *Sticker) { m.sticker = st },
	Reverse: func(st *Sticker) *relation.Set[*Message] { return st.uses },
}
