package models

import (
	"chatgraph/backend/internal/relation"
	"fmt"
	"time"
)

// Part is the lifecycle state a Message owns: *Draft or *Sent.
type Part interface {
	Message() *Message
	isPart()
}

type Draft struct {
	message *Message
	savedAt time.Time
}

type Sent struct {
	message     *Message
	sentAt      time.Time
	deliveredAt time.Time
	editedAt    *time.Time
	deletedAt   *time.Time
	readBy      *relation.Set[*User]
}

func (*Draft) isPart() {}
func (*Sent) isPart() {}

func (d *Draft) Message() *Message { return d.message }
func (d *Draft) SavedAt() time.Time { return d.savedAt }
func (s *Sent) Message() *Message { return s.message }
func (s *Sent) SentAt() time.Time { return s.sentAt }
func (s *Sent) DeliveredAt() time.Time { return s.deliveredAt }
func (s *Sent) EditedAt() *time.Time { return s.editedAt }
func (s *Sent) DeletedAt() *time.Time { return s.deletedAt }
func (s *Sent) ReadBy() []*User { return s.readBy.Items() }
func (s *Sent) IsReadBy(u *User) bool { return s.readBy.Contains(u) }

// Send is shorthand for d.Message().Send(d).
func (d *Draft) Send() error {
	return d.message.Send(d)
}

// Send moves the message from Draft to Sent. d must be the message's current
// draft. The new part is stamped with now as both send and delivery time and
// the draft is unregistered.
func (m *Message) Send(d *Draft) error {
	if err := m.store.messageAlive(m); err != nil {
		return err
	}
	current, ok := m.part.(*Draft)
	if !ok {
		return fmt.Errorf("message %s is already sent: %w", m.id, relation.ErrInvalidTransition)
	}
	if d == nil || d != current {
		return fmt.Errorf("draft does not belong to message %s: %w", m.id, relation.ErrInvalidTransition)
	}

	now := m.store.now()
	sent := &Sent{message: m, sentAt: now, deliveredAt: now, readBy: relation.NewSet[*User]()}
	if err := m.store.ext.sents.Register(sent); err != nil {
		return err
	}
	m.part = sent
	return m.store.ext.drafts.Unregister(current)
}

// ReturnToDraft always fails: Sent is terminal.
func (m *Message) ReturnToDraft() error {
	if _, ok := m.part.(*Draft); ok {
		return fmt.Errorf("message %s is already a draft: %w", m.id, relation.ErrInvalidTransition)
	}
	return fmt.Errorf("message %s cannot go back to draft: %w", m.id, relation.ErrInvalidTransition)
}

func (m *Message) sentPart(op string) (*Sent, error) {
	if err := m.store.messageAlive(m); err != nil {
		return nil, err
	}
	s, ok := m.part.(*Sent)
	if !ok {
		return nil, fmt.Errorf("%s on draft message %s: %w", op, m.id, relation.ErrInvalidState)
	}
	return s, nil
}

// SaveDraft touches the draft timestamp.
func (m *Message) SaveDraft() error {
	if err := m.store.messageAlive(m); err != nil {
		return err
	}
	d, ok := m.part.(*Draft)
	if !ok {
		return fmt.Errorf("message %s is sent: %w", m.id, relation.ErrInvalidState)
	}
	d.savedAt = m.store.now()
	return nil
}

// MarkRead records that u read the message. u must be a member of the chat.
func (m *Message) MarkRead(u *User) error {
	s, err := m.sentPart("read")
	if err != nil {
		return err
	}
	if err := m.store.userAlive(u); err != nil {
		return err
	}
	if s.deletedAt != nil {
		return fmt.Errorf("message %s is deleted: %w", m.id, relation.ErrInvalidState)
	}
	if !m.chat.HasMember(u) {
		return fmt.Errorf("%s is not a member of %s: %w", u.phone, m.chat.name, relation.ErrUnauthorized)
	}
	readBy.Add(s, u)
	return nil
}

// MarkDelivered moves the delivery time to at, which must lie between the
// send time and now.
func (m *Message) MarkDelivered(at time.Time) error {
	s, err := m.sentPart("deliver")
	if err != nil {
		return err
	}
	if err := s.checkAfterSend("delivery time", at); err != nil {
		return err
	}
	s.deliveredAt = at
	return nil
}

func (m *Message) MarkEdited() error {
	s, err := m.sentPart("edit")
	if err != nil {
		return err
	}
	if s.deletedAt != nil {
		return fmt.Errorf("message %s is deleted: %w", m.id, relation.ErrInvalidState)
	}
	now := m.store.now()
	if err := s.checkAfterSend("edit time", now); err != nil {
		return err
	}
	s.editedAt = &now
	return nil
}

// MarkDeleted soft-deletes a sent message. The message stays in the history.
func (m *Message) MarkDeleted() error {
	s, err := m.sentPart("delete")
	if err != nil {
		return err
	}
	if s.deletedAt != nil {
		return fmt.Errorf("message %s is already deleted: %w", m.id, relation.ErrInvalidState)
	}
	now := m.store.now()
	if err := s.checkAfterSend("delete time", now); err != nil {
		return err
	}
	s.deletedAt = &now
	return nil
}

// EditText replaces the body of a text message. A draft is re-saved, a sent
// message is marked edited.
func (m *Message) EditText(body string) error {
	if err := m.store.messageAlive(m); err != nil {
		return err
	}
	if m.kind != KindText {
		return fmt.Errorf("message %s is %s, not text: %w", m.id, m.kind, relation.ErrInvalidState)
	}
	content := TextContent{Body: body}
	if err := check(content); err != nil {
		return err
	}
	switch p := m.part.(type) {
	case *Draft:
		p.savedAt = m.store.now()
	case *Sent:
		if err := m.MarkEdited(); err != nil {
			return err
		}
	}
	m.content = content
	return nil
}

func (s *Sent) checkAfterSend(field string, t time.Time) error {
	if t.Before(s.sentAt) {
		return fmt.Errorf("%s %s before send time: %w", field, t.Format(time.RFC3339), relation.ErrValidation)
	}
	return s.message.store.notFuture(field, t)
}
