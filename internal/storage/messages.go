package storage

import (
	"context"

	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/sirupsen/logrus"
)

// InsertMessage persists a message. The id is filled in by the model hook.
func (s *Service) InsertMessage(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		logrus.WithError(err).WithField("room_id", msg.RoomID).Error("Failed to save message")
		return translate(err)
	}
	return nil
}

// ListMessages returns the history of a room in timestamp order. Ties are
// broken by id so repeated reads return the same sequence.
func (s *Service) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	history := make([]models.Message, 0)
	if err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp asc").Order("id asc").
		Find(&history).Error; err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to get chat history")
		return nil, err
	}
	return history, nil
}

func (s *Service) FindMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

// DeleteMessage removes a message. Deleting a missing id is not an error.
func (s *Service) DeleteMessage(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Message{}).Error
}

// LastMessage returns the newest message of a room or ErrNotFound.
func (s *Service) LastMessage(ctx context.Context, roomID string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("timestamp desc").Order("id desc").
		First(&msg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

// DistinctRoomIDs returns every room the sender wrote in plus every room
// whose id matches one of the LIKE patterns. Patterns use '\' as the escape
// character. The result is a superset to be filtered by the caller.
func (s *Service) DistinctRoomIDs(ctx context.Context, senderID string, likePatterns ...string) ([]string, error) {
	query := s.DB.WithContext(ctx).Model(&models.Message{}).Where("sender_id = ?", senderID)
	for _, pattern := range likePatterns {
		query = query.Or(`room_id LIKE ? ESCAPE '\'`, pattern)
	}

	roomIDs := make([]string, 0)
	if err := query.Distinct().Pluck("room_id", &roomIDs).Error; err != nil {
		logrus.WithError(err).WithField("user_id", senderID).Error("Failed to list conversation rooms")
		return nil, err
	}
	return roomIDs, nil
}
