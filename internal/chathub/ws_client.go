package chathub

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quotedesk/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	sessionID string
	identity  string
	authed    atomic.Bool
	closed    atomic.Bool

	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.ServerEvent

	closeOnce sync.Once
	log       *zap.Logger
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, sessionID string) *WebSocketClient {
	return &WebSocketClient{
		sessionID: sessionID,
		Conn:      conn,
		Hub:       hub,
		Send:      make(chan models.ServerEvent, sendBuffer),
		log:       hub.log.With(zap.String("session_id", sessionID)),
	}
}

func (c *WebSocketClient) GetSessionID() string { return c.sessionID }
func (c *WebSocketClient) GetIdentity() string  { return c.identity }
func (c *WebSocketClient) Authenticated() bool  { return c.authed.Load() }

func (c *WebSocketClient) SetIdentity(identity string) {
	c.identity = identity
	c.authed.Store(true)
}

func (c *WebSocketClient) GetSendChannel() chan<- models.ServerEvent { return c.Send }

// Closed reports whether the session has been shut down. The hub checks it
// before every send, so a frame racing the shutdown can never hit the closed
// channel.
func (c *WebSocketClient) Closed() bool { return c.closed.Load() }

// Run starts the pumps. A connection admitted without a credential gets a
// grace window to authenticate; the timer force-closes the socket if it
// never does.
func (c *WebSocketClient) Run() {
	if !c.Authenticated() && c.Hub.authGrace > 0 {
		time.AfterFunc(c.Hub.authGrace, func() {
			if !c.authed.Load() {
				c.log.Info("closing unauthenticated connection after grace period")
				c.Conn.Close()
			}
		})
	}
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel, which stops the write pump. Idempotent.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.Send)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("read error", zap.Error(err))
			}
			break
		}
		c.Hub.InboundCh <- &ClientRequest{Client: c, Frame: frame}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				c.log.Warn("failed to encode outbound event", zap.Error(err))
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

			// Drain whatever queued up while writing.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next, ok := <-c.Send
				if !ok {
					c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				data, err := json.Marshal(next)
				if err != nil {
					continue
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
