package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client actions accepted on the socket.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// ClientMessage is a frame sent by the browser.
type ClientMessage struct {
	Action     string `json:"action"`
	ShowtimeID uint64 `json:"showtime_id"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin checks are left to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve upgrades the request and pumps hub events for sessionID to the
// socket until either side closes.  It blocks for the connection's
// lifetime.
func Serve(h *Hub, sessionID string, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sub := h.NewSubscriber(sessionID)
	c := &client{hub: h, conn: conn, sub: sub, replies: make(chan errorFrame, 4)}

	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()
	c.readPump()
	<-done
	return nil
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	sub     *Subscriber
	replies chan errorFrame
}

// readPump handles subscribe/unsubscribe frames.  When the peer goes away
// it removes the subscriber, which closes its channel and stops writePump.
func (c *client) readPump() {
	defer func() {
		c.hub.Remove(c.sub)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.ShowtimeID == 0 {
			c.reply("expected {\"action\":\"subscribe\"|\"unsubscribe\",\"showtime_id\":N}")
			continue
		}
		switch msg.Action {
		case ActionSubscribe:
			c.hub.Subscribe(c.sub, msg.ShowtimeID)
		case ActionUnsubscribe:
			c.hub.Unsubscribe(c.sub, msg.ShowtimeID)
		default:
			c.reply("unknown action " + msg.Action)
		}
	}
}

func (c *client) reply(message string) {
	select {
	case c.replies <- errorFrame{Type: "error", Message: message}:
	default:
	}
}

// writePump owns all writes to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.Events():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case frame := <-c.replies:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
