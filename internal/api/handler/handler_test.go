package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/api/handler"
	"github.com/Divine-P-77777/studylocal/internal/chathub"
	"github.com/Divine-P-77777/studylocal/internal/conversation"
	"github.com/Divine-P-77777/studylocal/internal/enrolment"
	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/Divine-P-77777/studylocal/internal/storage/storagetest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	roomID     = "tp1-s1"
)

type testEnv struct {
	engine *gin.Engine
	repo   *storage.Service
	hub    *chathub.ManagerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := storagetest.NewService(t)
	storagetest.SeedTutor(t, repo, "u-t1", "tp1", "Ada Tutor")
	storagetest.SeedStudent(t, repo, "s1", "Sam Student")
	storagetest.SeedStudent(t, repo, "s2", "Other Student")

	store := messages.NewStore(repo)
	hub := chathub.NewManagerService(store, chathub.NewLocalBackplane(), chathub.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	h := handler.NewHandler(hub, store, enrolment.NewService(repo), conversation.NewService(store, repo), repo, testSecret, "")
	r := gin.New()
	h.Routes(r)
	return &testEnv{engine: r, repo: repo, hub: hub}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := handler.IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, w, &body)
	return body["error"]
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := handler.IssueToken("other-secret", "s1", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/conversations?token="+forged, nil)
	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := handler.IssueToken(testSecret, "s1", -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/conversations?token="+expired, nil)
	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/conversations?token="+token(t, "s1"), nil)
	w = httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseToken(t *testing.T) {
	tok, err := handler.IssueToken(testSecret, "s1", time.Hour)
	require.NoError(t, err)

	sub, err := handler.ParseToken([]byte(testSecret), tok)
	require.NoError(t, err)
	assert.Equal(t, "s1", sub)

	_, err = handler.ParseToken([]byte("wrong"), tok)
	assert.Error(t, err)
}

func TestMessages_PostHistoryDelete(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/rooms/"+roomID+"/messages", "s1", map[string]string{"body": " hi tutor ", "client_token": "tok-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var posted models.Message
	decode(t, w, &posted)
	assert.NotEmpty(t, posted.ID)
	assert.Equal(t, "hi tutor", posted.Body)
	assert.Equal(t, "Sam Student", posted.SenderName)
	assert.Equal(t, "tok-1", posted.ClientToken)

	w = env.do(t, http.MethodPost, "/api/rooms/"+roomID+"/messages", "u-t1", map[string]string{"body": "hello Sam"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/rooms/"+roomID+"/messages", "u-t1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.Message
	decode(t, w, &history)
	require.Len(t, history, 2)
	assert.Equal(t, posted.ID, history[0].ID)
	assert.Equal(t, "hello Sam", history[1].Body)

	// The tutor cannot delete the student's message.
	w = env.do(t, http.MethodDelete, "/api/messages/"+posted.ID, "u-t1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not authorized", errorOf(t, w))

	w = env.do(t, http.MethodDelete, "/api/messages/"+posted.ID, "s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, "/api/messages/"+posted.ID, "s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code, "deleting twice is not an error")

	w = env.do(t, http.MethodGet, "/api/rooms/"+roomID+"/messages", "s1", nil)
	decode(t, w, &history)
	assert.Len(t, history, 1)
}

func TestMessages_NonParticipantsGetGenericForbidden(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/rooms/"+roomID+"/messages", "s1", map[string]string{"body": "secret"})
	require.Equal(t, http.StatusCreated, w.Code)

	for _, path := range []string{"/api/rooms/" + roomID + "/messages", "/api/rooms/tp1-nobody/messages"} {
		w = env.do(t, http.MethodGet, path, "s2", nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.Equal(t, "not authorized", errorOf(t, w))
	}

	w = env.do(t, http.MethodPost, "/api/rooms/"+roomID+"/messages", "s2", map[string]string{"body": "let me in"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessages_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/rooms/"+roomID+"/messages", "s1", map[string]string{"body": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/rooms/"+roomID+"/messages", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversations(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/rooms/"+roomID+"/messages", "s1", map[string]string{"body": "first"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/conversations", "u-t1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []conversation.Summary
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, roomID, list[0].RoomID)
	assert.Equal(t, "Sam Student", list[0].OtherPartyName)
	assert.True(t, list[0].CallerIsTutor)
}

func TestEnrolments_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/enrolments", "s1", map[string]string{"room_id": roomID})
	assert.Equal(t, http.StatusForbidden, w.Code, "students cannot initiate")

	w = env.do(t, http.MethodPost, "/api/enrolments", "u-t1", map[string]interface{}{"room_id": roomID, "agreed_fee": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/enrolments", "u-t1", map[string]interface{}{"room_id": roomID, "subject": "maths", "agreed_fee": 2500})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Enrolment
	decode(t, w, &created)
	assert.Equal(t, models.EnrolmentPending, created.Status)

	w = env.do(t, http.MethodPost, "/api/enrolments", "u-t1", map[string]string{"tutor_id": "tp1", "student_id": "s1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "an active enrolment already exists", errorOf(t, w))

	w = env.do(t, http.MethodGet, "/api/rooms/"+roomID+"/enrolment", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Enrolment  *models.Enrolment `json:"enrolment"`
		Affordance string            `json:"affordance"`
	}
	decode(t, w, &view)
	require.NotNil(t, view.Enrolment)
	assert.Equal(t, created.ID, view.Enrolment.ID)
	assert.Equal(t, "confirm-or-decline", view.Affordance)

	w = env.do(t, http.MethodPost, "/api/enrolments/"+created.ID+"/confirm", "u-t1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "only the student confirms")

	w = env.do(t, http.MethodPost, "/api/enrolments/"+created.ID+"/confirm", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var confirmed models.Enrolment
	decode(t, w, &confirmed)
	assert.Equal(t, models.EnrolmentConfirmed, confirmed.Status)

	w = env.do(t, http.MethodPost, "/api/enrolments/"+created.ID+"/confirm", "s1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/enrolments/"+created.ID+"/cancel", "u-t1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/rooms/"+roomID+"/enrolment", "u-t1", nil)
	decode(t, w, &view)
	assert.Nil(t, view.Enrolment)
	assert.Equal(t, "start-deal", view.Affordance)

	w = env.do(t, http.MethodGet, "/api/enrolments", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lists struct {
		AsStudent []models.Enrolment `json:"as_student"`
		AsTutor   []models.Enrolment `json:"as_tutor"`
	}
	decode(t, w, &lists)
	assert.Len(t, lists.AsStudent, 1)
	assert.Empty(t, lists.AsTutor)
}

func TestEnrolments_NotFoundAndForeignRoom(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/enrolments/missing/confirm", "s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/rooms/"+roomID+"/enrolment", "s2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
