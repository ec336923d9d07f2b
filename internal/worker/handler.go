package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/Divine-P-77777/studylocal/internal/localization"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/Divine-P-77777/studylocal/internal/tasks"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Directory resolves notification recipients.
type Directory interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
	TutorProfileByID(ctx context.Context, id string) (*models.TutorProfile, error)
}

// OnlineChecker reports whether a user has a live connection on any instance.
type OnlineChecker interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// TextSender delivers a notification text to a Telegram chat.
type TextSender interface {
	SendText(chatID int64, text string) error
}

// OfflineMessageHandler tells a recipient who is still away about a message.
type OfflineMessageHandler struct {
	dir       Directory
	presence  OnlineChecker
	sender    TextSender
	localizer *localization.Localizer
}

// NewOfflineMessageHandler creates the handler. presence may be nil, in
// which case every recipient counts as offline.
func NewOfflineMessageHandler(dir Directory, presence OnlineChecker, sender TextSender, l *localization.Localizer) *OfflineMessageHandler {
	return &OfflineMessageHandler{dir: dir, presence: presence, sender: sender, localizer: l}
}

// ProcessTask implements asynq.Handler.
func (h *OfflineMessageHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	retry, _ := asynq.GetRetryCount(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     retry,
	})

	payload, err := tasks.ParseOfflineMessage(t)
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return err
	}
	logCtx = logCtx.WithField("room_id", payload.RoomID)

	user, err := h.recipient(ctx, payload)
	if errors.Is(err, storage.ErrNotFound) {
		logCtx.Info("Recipient unknown, skipping notification")
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if user.TelegramChatID == 0 {
		logCtx.WithField("user_id", user.ID).Debug("Recipient has no linked chat")
		return nil
	}

	if h.presence != nil {
		online, err := h.presence.IsOnline(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("check presence: %w", err)
		}
		if online {
			logCtx.WithField("user_id", user.ID).Debug("Recipient came back online")
			return nil
		}
	}

	text := h.localizer.Format(user.Language, "notify_new_message", payload.SenderName, payload.Preview) +
		"\n\n" + h.localizer.GetString(user.Language, "notify_open_chat")
	if err := h.sender.SendText(user.TelegramChatID, text); err != nil {
		logCtx.WithError(err).Warn("Failed to deliver notification")
		return err
	}

	logCtx.WithField("user_id", user.ID).Info("Offline notification delivered")
	return nil
}

func (h *OfflineMessageHandler) recipient(ctx context.Context, p tasks.OfflineMessagePayload) (*models.User, error) {
	userID := p.RecipientID
	if p.RecipientIsTutor {
		profile, err := h.dir.TutorProfileByID(ctx, p.RecipientID)
		if err != nil {
			return nil, err
		}
		userID = profile.UserID
	}
	return h.dir.UserByID(ctx, userID)
}
