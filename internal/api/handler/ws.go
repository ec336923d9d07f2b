package handler

import (
	"github.com/Divine-P-77777/studylocal/internal/chathub"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ServeWebSocket upgrades an authenticated request and hands the connection
// to the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	identity := identityFrom(c)
	name := h.displayName(c.Request.Context(), identity.UserID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client.
		logrus.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, identity, name)
	if err := h.Hub.Register(client); err != nil {
		logrus.WithError(err).Warn("Hub rejected connection")
		_ = conn.Close()
		return
	}
	client.Run()
}
