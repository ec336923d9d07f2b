package chatclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Conn is a client websocket connection to the broker. It implements
// Emitter and exposes the events the broker pushes.
type Conn struct {
	ws     *websocket.Conn
	events chan models.Event

	writeMu sync.Mutex

	errMu sync.Mutex
	err   error
}

// Dial connects to the websocket endpoint at url authenticating with a bearer
// token.
func Dial(ctx context.Context, url, token string) (*Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ws:     ws,
		events: make(chan models.Event, config.SendBufferSize),
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	defer close(c.events)
	for {
		var ev models.Event
		if err := c.ws.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).Debug("Chat connection closed")
				c.setErr(err)
			}
			return
		}
		c.events <- ev
	}
}

// Emit writes an event to the broker.
func (c *Conn) Emit(ev models.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(config.WriteWait))
	return c.ws.WriteJSON(ev)
}

// Events returns the events pushed by the broker. The channel is closed when
// the connection ends.
func (c *Conn) Events() <-chan models.Event {
	return c.events
}

// Err returns the error that ended the connection, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Conn) setErr(err error) {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(config.WriteWait))
	c.writeMu.Unlock()
	return c.ws.Close()
}
