// Package handler exposes the chat and enrolment services over HTTP and
// websockets.
package handler

import (
	"context"
	"net/http"

	"github.com/Divine-P-77777/studylocal/internal/chathub"
	"github.com/Divine-P-77777/studylocal/internal/conversation"
	"github.com/Divine-P-77777/studylocal/internal/enrolment"
	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Directory resolves callers to accounts and tutor profiles.
type Directory interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
	TutorProfileByUserID(ctx context.Context, userID string) (*models.TutorProfile, error)
}

// Handler holds the services behind the routes.
type Handler struct {
	Hub           *chathub.ManagerService
	Messages      *messages.Store
	Enrolments    *enrolment.Service
	Conversations *conversation.Service
	Directory     Directory

	secret   []byte
	upgrader websocket.Upgrader
}

// NewHandler wires the services. Websocket upgrades are accepted from
// allowedOrigin, or from any origin when it is empty.
func NewHandler(hub *chathub.ManagerService, store *messages.Store, enrolments *enrolment.Service,
	conversations *conversation.Service, dir Directory, jwtSecret, allowedOrigin string) *Handler {
	return &Handler{
		Hub:           hub,
		Messages:      store,
		Enrolments:    enrolments,
		Conversations: conversations,
		Directory:     dir,
		secret:        []byte(jwtSecret),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigin),
		},
	}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET("/ws", h.Auth(), h.ServeWebSocket)

	api := r.Group("/api", h.Auth())
	api.GET("/conversations", h.ListConversations)
	api.GET("/rooms/:roomId/messages", h.History)
	api.POST("/rooms/:roomId/messages", h.PostMessage)
	api.DELETE("/messages/:messageId", h.DeleteMessage)
	api.GET("/rooms/:roomId/enrolment", h.RoomEnrolment)
	api.GET("/enrolments", h.ListEnrolments)
	api.POST("/enrolments", h.CreateEnrolment)
	api.POST("/enrolments/:id/confirm", h.ConfirmEnrolment)
	api.POST("/enrolments/:id/cancel", h.CancelEnrolment)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": h.Hub.ClientCount()})
}

// displayName is the name stamped on messages the caller sends.
func (h *Handler) displayName(ctx context.Context, userID string) string {
	user, err := h.Directory.UserByID(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Debug("No account for caller, using anonymous name")
		return (*models.User)(nil).DisplayName()
	}
	return user.DisplayName()
}

func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowed == "" || allowed == "*" || origin == "" || origin == allowed
	}
}
