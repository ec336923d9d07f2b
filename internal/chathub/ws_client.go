package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	Identity models.Identity
	Name     string
	Conn     *websocket.Conn
	Hub      *ManagerService
	Send     chan models.Event

	closeOnce sync.Once
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, identity models.Identity, name string) *WebSocketClient {
	return &WebSocketClient{
		Identity: identity,
		Name:     name,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.Event, config.SendBufferSize),
	}
}

func (c *WebSocketClient) GetUserID() string                   { return c.Identity.UserID }
func (c *WebSocketClient) GetIdentity() models.Identity        { return c.Identity }
func (c *WebSocketClient) GetDisplayName() string              { return c.Name }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the send channel, which makes writePump close the socket.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"component": "ws", "user_id": c.Identity.UserID})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxFrameSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().WithError(err).Warn("WebSocket read error (unexpected close)")
			}
			return
		}

		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger().WithError(err).Debug("Error decoding JSON from client")
			c.Hub.reply(c, models.Event{Type: models.EventError, Error: "malformed event"})
			continue
		}
		// Authorship comes from the connection, never from the payload.
		ev.Message = nil
		c.Hub.Dispatch(c, ev)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.logger().WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
