package models

import (
	"chatgraph/backend/internal/relation"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContentKind names a message payload variant. Message ids are unique per kind.
type ContentKind string

const (
	KindText    ContentKind = "text"
	KindImage   ContentKind = "image"
	KindSticker ContentKind = "sticker"
	KindVideo   ContentKind = "video"
	KindFile    ContentKind = "file"
)

var ContentKinds = []ContentKind{KindText, KindImage, KindSticker, KindVideo, KindFile}

// Content is the payload of a Message.
type Content interface {
	Kind() ContentKind
}

type TextContent struct {
	Body string `validate:"required,max=4096"`
}

type ImageContent struct {
	URL    string `validate:"required,url"`
	Width  int    `validate:"gt=0"`
	Height int    `validate:"gt=0"`
}

type StickerContent struct {
	Sticker *Sticker `validate:"required"`
}

type VideoContent struct {
	URL      string        `validate:"required,url"`
	Duration time.Duration `validate:"gt=0"`
}

type FileContent struct {
	Name string `validate:"required,max=255"`
	Size int64  `validate:"gt=0"`
}

func (TextContent) Kind() ContentKind { return KindText }
func (ImageContent) Kind() ContentKind { return KindImage }
func (StickerContent) Kind() ContentKind { return KindSticker }
func (VideoContent) Kind() ContentKind { return KindVideo }
func (FileContent) Kind() ContentKind { return KindFile }

// Message is sent by a member into a chat and always owns exactly one Part:
// a Draft until it is sent, a Sent afterwards.
type Message struct {
	store    *Store
	id       string
	seq      uint64
	kind     ContentKind
	content  Content
	sticker  *Sticker
	sender   *User
	chat     *Chat
	mentions *relation.Set[*User]
	part     Part
}

func (m *Message) key() string { return string(m.kind) + ":" + m.id }

type messageOptions struct {
	id string
}

type MessageOption func(*messageOptions)

// WithMessageID sets the message id instead of generating one.
func WithMessageID(id string) MessageOption {
	return func(o *messageOptions) { o.id = id }
}

// NewMessage creates a Draft message from sender in chat. The sender must be a
// member; in a private chat a block in either direction forbids it, and a
// premium sticker needs an active Premium plan.
func (s *Store) NewMessage(sender *User, chat *Chat, content Content, opts ...MessageOption) (*Message, error) {
	if err := s.userAlive(sender); err != nil {
		return nil, err
	}
	if err := s.chatAlive(chat); err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("message content is required: %w", relation.ErrValidation)
	}
	if err := check(content); err != nil {
		return nil, err
	}
	reg, ok := s.ext.messages[content.Kind()]
	if !ok {
		return nil, fmt.Errorf("unknown content kind %q: %w", content.Kind(), relation.ErrValidation)
	}
	if !chat.HasMember(sender) {
		return nil, fmt.Errorf("%s is not a member of %s: %w", sender.phone, chat.name, relation.ErrUnauthorized)
	}
	if !chat.IsGroup() {
		for _, other := range chat.members.Values() {
			if other != sender && sender.blockedEitherWay(other) {
				return nil, fmt.Errorf("private chat %s is blocked: %w", chat.id, relation.ErrUnauthorized)
			}
		}
	}
	if sc, ok := content.(StickerContent); ok {
		if err := s.stickerAlive(sc.Sticker); err != nil {
			return nil, err
		}
		if p := sc.Sticker.pack; p != nil && p.premium && !sender.IsPremium() {
			return nil, fmt.Errorf("sticker %s is premium: %w", sc.Sticker.code, relation.ErrUnauthorized)
		}
	}

	o := messageOptions{id: uuid.NewString()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		return nil, fmt.Errorf("message id is required: %w", relation.ErrValidation)
	}

	m := s.newMessage(o.id, content)
	d := &Draft{message: m, savedAt: s.now()}
	m.part = d
	if err := reg.Register(m); err != nil {
		return nil, err
	}
	if err := s.ext.drafts.Register(d); err != nil {
		return nil, errors.Join(err, reg.Unregister(m))
	}
	m.seq = s.nextSeq()
	m.attach(sender, chat)
	return m, nil
}

// NewTextMessage is NewMessage for a text body, mentioning the given users.
func (s *Store) NewTextMessage(sender *User, chat *Chat, body string, mentioned ...*User) (*Message, error) {
	for _, u := range mentioned {
		if err := s.userAlive(u); err != nil {
			return nil, err
		}
	}
	m, err := s.NewMessage(sender, chat, TextContent{Body: body})
	if err != nil {
		return nil, err
	}
	for _, u := range mentioned {
		mentions.Add(m, u)
	}
	return m, nil
}

func (s *Store) newMessage(id string, content Content) *Message {
	return &Message{
		store:    s,
		id:       id,
		kind:     content.Kind(),
		content:  content,
		mentions: relation.NewSet[*User](),
	}
}

func (m *Message) attach(sender *User, chat *Chat) {
	messageSender.Set(m, sender)
	messageChat.Set(m, chat)
	if sc, ok := m.content.(StickerContent); ok {
		stickerUse.Set(m, sc.Sticker)
	}
}

func (m *Message) ID() string { return m.id }
func (m *Message) Kind() ContentKind { return m.kind }
func (m *Message) Content() Content { return m.content }
func (m *Message) Sender() *User { return m.sender }
func (m *Message) Chat() *Chat { return m.chat }
func (m *Message) Part() Part { return m.part }
func (m *Message) Mentions() []*User { return m.mentions.Items() }
func (m *Message) IsSent() bool {
	_, ok := m.part.(*Sent)
	return ok
}

func (m *Message) Draft() (*Draft, bool) {
	d, ok := m.part.(*Draft)
	return d, ok
}

func (m *Message) Sent() (*Sent, bool) {
	s, ok := m.part.(*Sent)
	return s, ok
}

// Mention links a user to a text message. Mentioning twice is a no-op.
func (m *Message) Mention(u *User) error {
	if err := m.store.messageAlive(m); err != nil {
		return err
	}
	if err := m.store.userAlive(u); err != nil {
		return err
	}
	if m.kind != KindText {
		return fmt.Errorf("only text messages carry mentions, got %s: %w", m.kind, relation.ErrInvalidState)
	}
	mentions.Add(m, u)
	return nil
}

func (m *Message) Unmention(u *User) error {
	if err := m.store.messageAlive(m); err != nil {
		return err
	}
	return mentions.Remove(m, u)
}

// Delete removes the message together with its part.
func (m *Message) Delete() error {
	if err := m.store.messageAlive(m); err != nil {
		return err
	}
	return m.destroy()
}

func (m *Message) destroy() error {
	var err error
	switch p := m.part.(type) {
	case *Draft:
		err = m.store.ext.drafts.Unregister(p)
	case *Sent:
		readBy.Detach(p)
		err = m.store.ext.sents.Unregister(p)
	}
	mentions.Detach(m)
	stickerUse.Clear(m)
	messageSender.Clear(m)
	messageChat.Clear(m)
	return errors.Join(err, m.store.ext.messages[m.kind].Unregister(m))
}
