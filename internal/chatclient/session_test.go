package chatclient_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/chatclient"
	"github.com/Divine-P-77777/studylocal/internal/localization"
	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roomID = "tp1-s1"

type recordingEmitter struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (e *recordingEmitter) Emit(ev models.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return e.err
}

func (e *recordingEmitter) last() models.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[len(e.events)-1]
}

// canonical builds the broadcast a broker would send for an optimistic copy.
func canonical(id string, from models.Message) models.Event {
	msg := from
	msg.ID = id
	msg.Timestamp = time.Now().UTC()
	return models.Event{Type: models.EventReceiveMessage, RoomID: msg.RoomID, Message: &msg}
}

func TestOpen_SeedsHistoryAndJoins(t *testing.T) {
	emitter := &recordingEmitter{}
	s := chatclient.NewSession(roomID, "s1", "Sam", emitter)
	history := []models.Message{
		{ID: "m1", RoomID: roomID, SenderID: "u-t1", Body: "welcome"},
		{ID: "m2", RoomID: roomID, SenderID: "s1", Body: "thanks"},
	}

	err := s.Open(context.Background(), func(ctx context.Context, id string) ([]models.Message, error) {
		assert.Equal(t, roomID, id)
		return history, nil
	})
	require.NoError(t, err)

	assert.Equal(t, history, s.Messages())
	require.Len(t, emitter.events, 2)
	assert.Equal(t, models.EventUserOnline, emitter.events[0].Type)
	assert.Equal(t, models.Event{Type: models.EventJoinRoom, RoomID: roomID}, emitter.events[1])
}

func TestOpen_HistoryFailure(t *testing.T) {
	emitter := &recordingEmitter{}
	s := chatclient.NewSession(roomID, "s1", "Sam", emitter)

	err := s.Open(context.Background(), func(context.Context, string) ([]models.Message, error) {
		return nil, errors.New("offline")
	})

	assert.Error(t, err)
	assert.Empty(t, emitter.events)
}

func TestSend_OptimisticThenReconciledByToken(t *testing.T) {
	emitter := &recordingEmitter{}
	s := chatclient.NewSession(roomID, "s1", "Sam", emitter)

	optimistic, err := s.Send(" hello ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(optimistic.ID, models.TempIDPrefix))
	assert.Equal(t, "hello", optimistic.Body)
	assert.NotEmpty(t, optimistic.ClientToken)

	sent := emitter.last()
	assert.Equal(t, models.EventSendMessage, sent.Type)
	assert.Equal(t, optimistic.ClientToken, sent.ClientToken)
	assert.Len(t, s.Pending(), 1)

	s.Apply(canonical("m1", optimistic))

	list := s.Messages()
	require.Len(t, list, 1, "the optimistic copy is replaced, not duplicated")
	assert.Equal(t, "m1", list[0].ID)
	assert.Empty(t, s.Pending())
}

func TestSend_DuplicateBodiesReconcileByToken(t *testing.T) {
	s := chatclient.NewSession(roomID, "s1", "Sam", &recordingEmitter{})

	first, err := s.Send("ok")
	require.NoError(t, err)
	second, err := s.Send("ok")
	require.NoError(t, err)
	_, err = s.Send("after")
	require.NoError(t, err)

	// The second send is persisted first.
	s.Apply(canonical("m2", second))

	list := s.Messages()
	require.Len(t, list, 3)
	assert.Equal(t, first.ID, list[0].ID, "the first copy is still pending")
	assert.Equal(t, "m2", list[1].ID, "replaced in place")

	s.Apply(canonical("m1", first))
	list = s.Messages()
	assert.Equal(t, []string{"m1", "m2"}, []string{list[0].ID, list[1].ID})
	assert.Len(t, s.Pending(), 1)
}

func TestApply_FallsBackToBodyWithoutToken(t *testing.T) {
	s := chatclient.NewSession(roomID, "s1", "Sam", &recordingEmitter{})
	optimistic, err := s.Send("hi there")
	require.NoError(t, err)

	// A broker that does not echo tokens.
	withoutToken := optimistic
	withoutToken.ClientToken = ""
	s.Apply(canonical("m1", withoutToken))

	list := s.Messages()
	require.Len(t, list, 1)
	assert.Equal(t, "m1", list[0].ID)
}

func TestApply_ForeignTokenDoesNotStealOptimisticCopy(t *testing.T) {
	s := chatclient.NewSession(roomID, "s1", "Sam", &recordingEmitter{})
	_, err := s.Send("same text")
	require.NoError(t, err)

	// Sent by the same user from another device.
	other := models.Message{RoomID: roomID, SenderID: "s1", Body: "same text", ClientToken: "other-device"}
	s.Apply(canonical("m9", other))

	assert.Len(t, s.Messages(), 2)
	assert.Len(t, s.Pending(), 1)
}

func TestApply_OthersAppendAndDuplicatesIgnored(t *testing.T) {
	s := chatclient.NewSession(roomID, "s1", "Sam", &recordingEmitter{})
	incoming := models.Message{RoomID: roomID, SenderID: "u-t1", Body: "hello student"}

	ev := canonical("m1", incoming)
	s.Apply(ev)
	s.Apply(ev)
	s.Apply(canonical("x1", models.Message{RoomID: "tp2-s1", SenderID: "u-t2", Body: "wrong room"}))

	list := s.Messages()
	require.Len(t, list, 1)
	assert.Equal(t, "hello student", list[0].Body)
}

func TestDeleteAndDeletionNotice(t *testing.T) {
	emitter := &recordingEmitter{}
	s := chatclient.NewSession(roomID, "s1", "Sam", emitter)
	s.Apply(canonical("m1", models.Message{RoomID: roomID, SenderID: "s1", Body: "mine"}))
	s.Apply(canonical("m2", models.Message{RoomID: roomID, SenderID: "u-t1", Body: "theirs"}))

	require.NoError(t, s.Delete("m1"))
	assert.Equal(t, models.Event{Type: models.EventDeleteMessage, RoomID: roomID, MessageID: "m1"}, emitter.last())

	s.Apply(models.Event{Type: models.EventMessageDeleted, RoomID: roomID, MessageID: "m2"})
	s.Apply(models.Event{Type: models.EventMessageDeleted, RoomID: roomID, MessageID: "unknown"})
	assert.Empty(t, s.Messages())

	assert.ErrorIs(t, s.Delete(models.TempIDPrefix+"x"), chatclient.ErrNotStored)
}

func TestDelete_RefusesOthersMessages(t *testing.T) {
	emitter := &recordingEmitter{}
	s := chatclient.NewSession(roomID, "s1", "Sam", emitter)
	s.Apply(canonical("m2", models.Message{RoomID: roomID, SenderID: "u-t1", Body: "theirs"}))

	assert.ErrorIs(t, s.Delete("m2"), chatclient.ErrNotAuthor)

	assert.Empty(t, emitter.events, "nothing is sent to the broker")
	require.Len(t, s.Messages(), 1, "the message stays visible")
	assert.Equal(t, "m2", s.Messages()[0].ID)
}

func TestSend_RejectsInvalidBodiesLocally(t *testing.T) {
	emitter := &recordingEmitter{}
	s := chatclient.NewSession(roomID, "s1", "Sam", emitter)

	_, err := s.Send("   ")
	assert.ErrorIs(t, err, messages.ErrEmptyBody)
	_, err = s.Send(strings.Repeat("w ", 301))
	assert.ErrorIs(t, err, messages.ErrBodyTooLong)

	assert.Empty(t, emitter.events)
	assert.Empty(t, s.Messages())
}

func TestSend_EmitFailureLeavesCopyUnconfirmed(t *testing.T) {
	emitter := &recordingEmitter{err: errors.New("socket closed")}
	s := chatclient.NewSession(roomID, "s1", "Sam", emitter)

	_, err := s.Send("are you there?")

	assert.Error(t, err)
	assert.Len(t, s.Pending(), 1)
}

func TestApply_RecordsBrokerErrors(t *testing.T) {
	s := chatclient.NewSession(roomID, "s1", "Sam", &recordingEmitter{})
	s.Apply(models.Event{Type: models.EventError, Error: "not authorized"})
	assert.Equal(t, "not authorized", s.LastError())
}

func TestAffordance(t *testing.T) {
	pending := &models.Enrolment{Status: models.EnrolmentPending}
	confirmed := &models.Enrolment{Status: models.EnrolmentConfirmed}
	cancelled := &models.Enrolment{Status: models.EnrolmentCancelled}

	tests := []struct {
		name    string
		active  *models.Enrolment
		isTutor bool
		want    chatclient.DealAffordance
	}{
		{"tutor without deal", nil, true, chatclient.AffordanceStartDeal},
		{"student without deal", nil, false, chatclient.AffordanceTutorOnly},
		{"tutor after cancel", cancelled, true, chatclient.AffordanceStartDeal},
		{"tutor pending", pending, true, chatclient.AffordanceAwaitStudent},
		{"student pending", pending, false, chatclient.AffordanceConfirmOrDecline},
		{"tutor confirmed", confirmed, true, chatclient.AffordanceDealDone},
		{"student confirmed", confirmed, false, chatclient.AffordanceDealDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chatclient.Affordance(tt.active, tt.isTutor))
		})
	}
}

func TestAnnounce_SendsLocalizedLine(t *testing.T) {
	l, err := localization.Default()
	require.NoError(t, err)
	emitter := &recordingEmitter{}
	s := chatclient.NewSession(roomID, "u-t1", "Ada", emitter)

	msg, err := s.Announce(l, "en", chatclient.AnnounceDealInitiated)
	require.NoError(t, err)

	assert.Equal(t, "🤝 I've initiated a deal! Please confirm to finalize.", msg.Body)
	assert.Equal(t, msg.Body, emitter.last().Body)
}
