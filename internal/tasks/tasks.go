// Package tasks defines the background jobs of the chat service and the
// producers that enqueue them.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/room"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const (
	// TypeOfflineMessage notifies the recipient of a message who was not
	// connected when it was sent.
	TypeOfflineMessage = "notify:offline_message"
)

// OfflineMessagePayload identifies the recipient by the room segment: a user
// id for students, a tutor profile id when RecipientIsTutor is set.
type OfflineMessagePayload struct {
	MessageID        string `json:"message_id"`
	RoomID           string `json:"room_id"`
	RecipientID      string `json:"recipient_id"`
	RecipientIsTutor bool   `json:"recipient_is_tutor"`
	SenderName       string `json:"sender_name"`
	Preview          string `json:"preview"`
}

// NewOfflineMessageTask builds the task for payload.
func NewOfflineMessageTask(payload OfflineMessagePayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOfflineMessage, data, opts...), nil
}

// ParseOfflineMessage decodes the payload of a TypeOfflineMessage task.
func ParseOfflineMessage(t *asynq.Task) (OfflineMessagePayload, error) {
	var p OfflineMessagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	return p, nil
}

// Enqueuer is implemented by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier schedules an offline notification for the other participant of
// every stored message. Whether the recipient is still away is decided by
// the worker when the delay has passed.
type Notifier struct {
	client Enqueuer
	delay  time.Duration
}

func NewNotifier(client Enqueuer, delay time.Duration) *Notifier {
	return &Notifier{client: client, delay: delay}
}

// NotifyOffline enqueues the notification for msg. The task id is derived
// from the message id, so a message is never announced twice.
func (n *Notifier) NotifyOffline(ctx context.Context, msg *models.Message, sender models.Identity) error {
	other, senderIsTutor, ok := room.Counterpart(msg.RoomID, sender.UserID, sender.TutorProfileID)
	if !ok {
		return room.ErrInvalidRoom
	}

	task, err := NewOfflineMessageTask(OfflineMessagePayload{
		MessageID:        msg.ID,
		RoomID:           msg.RoomID,
		RecipientID:      other,
		RecipientIsTutor: !senderIsTutor,
		SenderName:       msg.SenderName,
		Preview:          Preview(msg.Body, config.NotifyPreviewRunes),
	})
	if err != nil {
		return err
	}

	info, err := n.client.EnqueueContext(ctx, task,
		asynq.TaskID(msg.ID),
		asynq.ProcessIn(n.delay),
		asynq.MaxRetry(config.NotifyMaxRetry),
		asynq.Timeout(config.NotifyTaskTimeout),
	)
	if err != nil {
		return fmt.Errorf("enqueue offline notification: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"component": "tasks",
		"task_id":   info.ID,
		"room_id":   msg.RoomID,
	}).Debug("Offline notification scheduled")
	return nil
}

// Preview shortens body to at most max runes, marking the cut with an ellipsis.
func Preview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max-1]) + "…"
}
