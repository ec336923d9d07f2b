// Package messages is the durable, ordered log of chat messages per room.
package messages

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/room"
)

// Repository is the part of the persistence collaborator the store needs.
type Repository interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
	FindMessage(ctx context.Context, id string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	LastMessage(ctx context.Context, roomID string) (*models.Message, error)
	DistinctRoomIDs(ctx context.Context, senderID string, likePatterns ...string) ([]string, error)
}

// Draft is a message as submitted, before the server assigns id and time.
type Draft struct {
	RoomID      string
	SenderID    string
	SenderName  string
	Body        string
	ClientToken string
}

type Store struct {
	repo Repository

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// Validate checks a body against the length bounds and returns it trimmed.
func Validate(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > config.MaxMessageChars || len(strings.Fields(body)) > config.MaxMessageWords {
		return "", ErrBodyTooLong
	}
	return body, nil
}

// Append validates and persists a message and returns the canonical record.
// Timestamps are strictly increasing across all rooms of this process.
func (s *Store) Append(ctx context.Context, d Draft) (*models.Message, error) {
	if _, _, err := room.Parse(d.RoomID); err != nil {
		return nil, ErrInvalidRoom
	}
	if d.SenderID == "" {
		return nil, ErrMissingSender
	}
	body, err := Validate(d.Body)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		RoomID:     d.RoomID,
		SenderID:   d.SenderID,
		SenderName: d.SenderName,
		Body:       body,
		Timestamp:  s.tick(),
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	msg.ClientToken = d.ClientToken
	return msg, nil
}

// tick returns the next server timestamp. Stored timestamps keep microsecond
// precision, so consecutive values differ by at least one microsecond.
func (s *Store) tick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// ListByRoom returns the history of a room in timestamp order.
func (s *Store) ListByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	return s.repo.ListMessages(ctx, roomID)
}

// Delete removes a message. It is idempotent.
func (s *Store) Delete(ctx context.Context, messageID string) error {
	return s.repo.DeleteMessage(ctx, messageID)
}

func (s *Store) Find(ctx context.Context, messageID string) (*models.Message, error) {
	return s.repo.FindMessage(ctx, messageID)
}

// Last returns the newest message of a room.
func (s *Store) Last(ctx context.Context, roomID string) (*models.Message, error) {
	return s.repo.LastMessage(ctx, roomID)
}

// DistinctRoomsForParticipant returns the rooms the caller wrote in or whose
// id matches one of the caller's halves. Matching is by pattern and may
// include rooms the caller does not belong to; filter with room.IsParticipant.
func (s *Store) DistinctRoomsForParticipant(ctx context.Context, callerID, ownedTutorProfileID string) ([]string, error) {
	patterns := []string{"%" + room.Separator + likeEscape(room.StudentSegment(callerID))}
	if ownedTutorProfileID != "" {
		patterns = append(patterns, likeEscape(room.TutorSegment(ownedTutorProfileID))+room.Separator+"%")
	}
	return s.repo.DistinctRoomIDs(ctx, callerID, patterns...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func likeEscape(s string) string {
	return likeEscaper.Replace(s)
}
