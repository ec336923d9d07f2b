// Package chatclient is the consumer side of a chat room: it keeps the local
// message list of one user in one room, shows sends immediately as
// optimistic copies and reconciles them with the canonical messages the
// broker broadcasts.
package chatclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotStored is returned when deleting a message that has no durable id yet.
	ErrNotStored = errors.New("only stored messages can be deleted")
	// ErrNotAuthor is returned when deleting someone else's message.
	ErrNotAuthor = errors.New("only the author can delete a message")
)

// Emitter sends events to the broker.
type Emitter interface {
	Emit(ev models.Event) error
}

// HistoryLoader returns the stored messages of a room in timestamp order.
type HistoryLoader func(ctx context.Context, roomID string) ([]models.Message, error)

// Session is the local view of one user in one room. It is safe for
// concurrent use.
type Session struct {
	roomID   string
	userID   string
	userName string
	emitter  Emitter

	mu       sync.Mutex
	messages []models.Message
	lastErr  string
}

func NewSession(roomID, userID, userName string, emitter Emitter) *Session {
	return &Session{
		roomID:   roomID,
		userID:   userID,
		userName: userName,
		emitter:  emitter,
		messages: make([]models.Message, 0),
	}
}

// Open seeds the list with a history snapshot, announces the user as online
// and joins the room. Messages that arrived before Open are kept.
func (s *Session) Open(ctx context.Context, load HistoryLoader) error {
	if load != nil {
		history, err := load(ctx, s.roomID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		seeded := make([]models.Message, 0, len(history)+len(s.messages))
		seeded = append(seeded, history...)
		for _, m := range s.messages {
			if m.IsTemporary() || indexByID(seeded, m.ID) < 0 {
				seeded = append(seeded, m)
			}
		}
		s.messages = seeded
		s.mu.Unlock()
	}

	if err := s.emitter.Emit(models.Event{Type: models.EventUserOnline}); err != nil {
		return err
	}
	return s.emitter.Emit(models.Event{Type: models.EventJoinRoom, RoomID: s.roomID})
}

// Send shows body immediately as an optimistic message and asks the broker
// to persist it. If emitting fails the optimistic copy stays unconfirmed.
func (s *Session) Send(body string) (models.Message, error) {
	body, err := messages.Validate(body)
	if err != nil {
		return models.Message{}, err
	}

	token := uuid.NewString()
	optimistic := models.Message{
		ID:          models.TempIDPrefix + token,
		RoomID:      s.roomID,
		SenderID:    s.userID,
		SenderName:  s.userName,
		Body:        body,
		Timestamp:   time.Now().UTC(),
		ClientToken: token,
	}

	s.mu.Lock()
	s.messages = append(s.messages, optimistic)
	s.mu.Unlock()

	return optimistic, s.emitter.Emit(models.Event{
		Type:        models.EventSendMessage,
		RoomID:      s.roomID,
		Body:        body,
		ClientToken: token,
	})
}

// Delete asks the broker to delete a stored message of the user and drops it
// locally. Messages of other senders are refused without asking the broker.
func (s *Session) Delete(messageID string) error {
	if messageID == "" || strings.HasPrefix(messageID, models.TempIDPrefix) {
		return ErrNotStored
	}
	s.mu.Lock()
	i := indexByID(s.messages, messageID)
	if i >= 0 && s.messages[i].SenderID != s.userID {
		s.mu.Unlock()
		return ErrNotAuthor
	}
	s.mu.Unlock()
	s.remove(messageID)
	return s.emitter.Emit(models.Event{Type: models.EventDeleteMessage, RoomID: s.roomID, MessageID: messageID})
}

// Apply folds a broker event into the local view. Events of other rooms are
// ignored.
func (s *Session) Apply(ev models.Event) {
	switch ev.Type {
	case models.EventReceiveMessage:
		if ev.Message == nil || ev.Message.RoomID != s.roomID {
			return
		}
		s.receive(*ev.Message)
	case models.EventMessageDeleted:
		if ev.RoomID == s.roomID {
			s.remove(ev.MessageID)
		}
	case models.EventError:
		s.mu.Lock()
		s.lastErr = ev.Error
		s.mu.Unlock()
	}
}

// receive places a canonical message. The user's own message replaces its
// optimistic copy: the one with the same client token, or else the first
// unconfirmed copy with the same body whose token cannot tell otherwise.
func (s *Session) receive(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexByID(s.messages, msg.ID) >= 0 {
		return
	}

	if msg.SenderID == s.userID {
		idx := -1
		if msg.ClientToken != "" {
			idx = s.pendingIndex(func(m models.Message) bool { return m.ClientToken == msg.ClientToken })
		}
		if idx < 0 {
			idx = s.pendingIndex(func(m models.Message) bool {
				return m.Body == msg.Body && (m.ClientToken == "" || msg.ClientToken == "")
			})
		}
		if idx >= 0 {
			s.messages[idx] = msg
			return
		}
	}
	s.messages = append(s.messages, msg)
}

func (s *Session) pendingIndex(match func(models.Message) bool) int {
	for i, m := range s.messages {
		if m.IsTemporary() && m.SenderID == s.userID && match(m) {
			return i
		}
	}
	return -1
}

func (s *Session) remove(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexByID(s.messages, messageID); i >= 0 {
		s.messages = append(s.messages[:i], s.messages[i+1:]...)
	}
}

// Messages returns a snapshot of the local list in display order.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// Pending returns the optimistic messages not confirmed yet.
func (s *Session) Pending() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []models.Message
	for _, m := range s.messages {
		if m.IsTemporary() {
			pending = append(pending, m)
		}
	}
	return pending
}

// LastError returns the reason of the latest rejection reported by the broker.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Follow applies the events of conn until it closes or ctx is done.
func (s *Session) Follow(ctx context.Context, conn *Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-conn.Events():
			if !ok {
				return conn.Err()
			}
			s.Apply(ev)
		}
	}
}

func indexByID(list []models.Message, id string) int {
	if id == "" {
		return -1
	}
	for i, m := range list {
		if m.ID == id {
			return i
		}
	}
	return -1
}
