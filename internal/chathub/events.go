package chathub

import (
	"context"
	"errors"

	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/room"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/sirupsen/logrus"
)

func (m *ManagerService) handleIncoming(in Inbound) {
	client, ev := in.Client, in.Event
	if !m.clients[client] {
		return
	}

	switch ev.Type {
	case models.EventJoinRoom:
		m.join(client, ev.RoomID)
	case models.EventLeaveRoom:
		m.leave(client, ev.RoomID)
	case models.EventUserOnline:
		m.markOnline(client)
	case models.EventSendMessage:
		if !m.clientRooms[client][ev.RoomID] {
			m.sendTo(client, errorEvent(ev, ErrNotJoined))
			return
		}
		go m.handleSend(client, ev)
	case models.EventDeleteMessage:
		if !m.clientRooms[client][ev.RoomID] {
			m.sendTo(client, errorEvent(ev, ErrNotJoined))
			return
		}
		go m.handleDelete(client, ev)
	default:
		m.sendTo(client, errorEvent(ev, ErrUnknownEvent))
	}
}

func (m *ManagerService) join(client Client, roomID string) {
	identity := client.GetIdentity()
	logCtx := logrus.WithFields(logrus.Fields{
		"component": "hub",
		"room_id":   roomID,
		"user_id":   identity.UserID,
	})

	if !room.IsParticipant(roomID, identity.UserID, identity.TutorProfileID) {
		logCtx.Warn("Rejected join from non-participant")
		m.sendTo(client, models.Event{Type: models.EventError, RoomID: roomID, Error: ErrNotAuthorized.Error()})
		return
	}

	if !m.clientRooms[client][roomID] {
		if len(m.rooms[roomID]) >= m.maxRoom {
			logCtx.Warn("Rejected join, room is full")
			m.sendTo(client, models.Event{Type: models.EventError, RoomID: roomID, Error: ErrRoomFull.Error()})
			return
		}
		m.mu.Lock()
		members, ok := m.rooms[roomID]
		if !ok {
			members = make(map[Client]bool)
			m.rooms[roomID] = members
		}
		members[client] = true
		m.clientRooms[client][roomID] = true
		m.mu.Unlock()
		logCtx.Info("Client joined room")
	}

	m.sendTo(client, models.Event{Type: models.EventJoined, RoomID: roomID})
}

func (m *ManagerService) leave(client Client, roomID string) {
	if !m.clientRooms[client][roomID] {
		return
	}
	m.mu.Lock()
	m.removeFromRoom(client, roomID)
	m.mu.Unlock()
}

// handleSend persists a socket message and broadcasts it. Rejections are
// reported to the sender only; persistence failures are logged and dropped.
func (m *ManagerService) handleSend(client Client, ev models.Event) {
	_, err := m.persist(m.ctx, client.GetIdentity(), client.GetDisplayName(), ev.RoomID, ev.Body, ev.ClientToken)
	if err != nil {
		if errors.Is(err, messages.ErrValidation) {
			m.reply(client, errorEvent(ev, err))
			return
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"component": "hub",
			"room_id":   ev.RoomID,
			"user_id":   client.GetUserID(),
		}).Error("Failed to persist message, dropping it")
	}
}

func (m *ManagerService) handleDelete(client Client, ev models.Event) {
	err := m.remove(m.ctx, client.GetIdentity(), ev.RoomID, ev.MessageID)
	if errors.Is(err, ErrNotAuthorized) {
		m.reply(client, errorEvent(ev, err))
		return
	}
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"component":  "hub",
			"room_id":    ev.RoomID,
			"message_id": ev.MessageID,
		}).Error("Failed to delete message")
	}
}

// Submit persists a message on behalf of an authenticated caller and
// broadcasts it to the room, the same way a socket send does.
func (m *ManagerService) Submit(ctx context.Context, sender models.Identity, senderName, roomID, body, clientToken string) (*models.Message, error) {
	if !room.IsParticipant(roomID, sender.UserID, sender.TutorProfileID) {
		return nil, ErrNotAuthorized
	}
	return m.persist(ctx, sender, senderName, roomID, body, clientToken)
}

// Remove deletes a message written by the caller and broadcasts the
// deletion. Removing an unknown id succeeds without a broadcast.
func (m *ManagerService) Remove(ctx context.Context, caller models.Identity, messageID string) error {
	msg, err := m.store.Find(ctx, messageID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.remove(ctx, caller, msg.RoomID, messageID)
}

// Purge deletes a message whoever wrote it and broadcasts the deletion to its
// room. Unknown ids succeed without a broadcast.
func (m *ManagerService) Purge(ctx context.Context, messageID string) error {
	msg, err := m.store.Find(ctx, messageID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, messageID); err != nil {
		return err
	}
	return m.backplane.Publish(ctx, models.Event{Type: models.EventMessageDeleted, RoomID: msg.RoomID, MessageID: messageID})
}

func (m *ManagerService) persist(ctx context.Context, sender models.Identity, senderName, roomID, body, clientToken string) (*models.Message, error) {
	msg, err := m.store.Append(ctx, messages.Draft{
		RoomID:      roomID,
		SenderID:    sender.UserID,
		SenderName:  senderName,
		Body:        body,
		ClientToken: clientToken,
	})
	if err != nil {
		return nil, err
	}

	if err := m.backplane.Publish(ctx, models.Event{Type: models.EventReceiveMessage, RoomID: roomID, Message: msg}); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to broadcast message")
	}
	if m.notifier != nil {
		if err := m.notifier.NotifyOffline(ctx, msg, sender); err != nil {
			logrus.WithError(err).WithField("message_id", msg.ID).Warn("Failed to schedule offline notification")
		}
	}
	return msg, nil
}

// remove deletes a message of roomID if the caller wrote it. The deletion is
// broadcast even when the message was already gone.
func (m *ManagerService) remove(ctx context.Context, caller models.Identity, roomID, messageID string) error {
	msg, err := m.store.Find(ctx, messageID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	case msg.SenderID != caller.UserID || msg.RoomID != roomID:
		return ErrNotAuthorized
	default:
		if err := m.store.Delete(ctx, messageID); err != nil {
			return err
		}
	}

	return m.backplane.Publish(ctx, models.Event{Type: models.EventMessageDeleted, RoomID: roomID, MessageID: messageID})
}

func errorEvent(ev models.Event, err error) models.Event {
	return models.Event{
		Type:        models.EventError,
		RoomID:      ev.RoomID,
		ClientToken: ev.ClientToken,
		MessageID:   ev.MessageID,
		Error:       err.Error(),
	}
}
