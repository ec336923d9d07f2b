// Package conversation builds a caller's conversation list.
package conversation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/room"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/sirupsen/logrus"
)

// MessageIndex is the part of the message store the list is built from.
type MessageIndex interface {
	DistinctRoomsForParticipant(ctx context.Context, callerID, ownedTutorProfileID string) ([]string, error)
	Last(ctx context.Context, roomID string) (*models.Message, error)
}

// Directory resolves the other party of a conversation.
type Directory interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
	TutorProfileByID(ctx context.Context, id string) (*models.TutorProfile, error)
}

// Summary is one entry of the conversation list.
type Summary struct {
	RoomID          string          `json:"room_id"`
	LastMessage     *models.Message `json:"last_message,omitempty"`
	OtherPartyID    string          `json:"other_party_id"`
	OtherPartyName  string          `json:"other_party_name"`
	OtherPartyPhoto string          `json:"other_party_photo,omitempty"`
	CallerIsTutor   bool            `json:"caller_is_tutor"`
}

type Service struct {
	index     MessageIndex
	directory Directory
}

func NewService(index MessageIndex, directory Directory) *Service {
	return &Service{index: index, directory: directory}
}

// For returns the conversations of the caller, most recent first. Rooms
// returned by the index that the caller does not take part in are dropped.
func (s *Service) For(ctx context.Context, caller models.Identity) ([]Summary, error) {
	roomIDs, err := s.index.DistinctRoomsForParticipant(ctx, caller.UserID, caller.TutorProfileID)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		other, callerIsTutor, ok := room.Counterpart(roomID, caller.UserID, caller.TutorProfileID)
		if !ok {
			continue
		}

		summary := Summary{RoomID: roomID, OtherPartyID: other, CallerIsTutor: callerIsTutor}
		last, err := s.index.Last(ctx, roomID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			summary.LastMessage = last
		}

		summary.OtherPartyName, summary.OtherPartyPhoto = s.otherParty(ctx, other, callerIsTutor)
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastAt(summaries[i]).After(lastAt(summaries[j]))
	})
	return summaries, nil
}

// otherParty looks up a display name and photo. A tutor sees the student's
// account, a student sees the tutor's public profile.
func (s *Service) otherParty(ctx context.Context, id string, callerIsTutor bool) (name, photo string) {
	if callerIsTutor {
		user, err := s.directory.UserByID(ctx, id)
		if err != nil {
			logrus.WithError(err).WithField("user_id", id).Debug("Conversation partner not found")
			return (*models.User)(nil).DisplayName(), ""
		}
		return user.DisplayName(), user.PhotoURL
	}

	profile, err := s.directory.TutorProfileByID(ctx, id)
	if err != nil || profile.FullName == "" {
		if err != nil {
			logrus.WithError(err).WithField("tutor_id", id).Debug("Conversation tutor profile not found")
		}
		return "Tutor", ""
	}
	return profile.FullName, profile.PhotoURL
}

func lastAt(s Summary) time.Time {
	if s.LastMessage == nil {
		return time.Time{}
	}
	return s.LastMessage.Timestamp
}
