package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"furnishop/entity"
	"furnishop/impl/core"
	"furnishop/internal/chat"
	"furnishop/internal/lib/sl"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a single websocket connection watching one chat session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    string
	sessionID string

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, userID, sessionID string) *Client {
	return &Client{
		hub:       hub,
		send:      make(chan []byte, sendBuffer),
		userID:    userID,
		sessionID: sessionID,
	}
}

var (
	errClientClosed = errors.New("client closed")
	errClientSlow   = errors.New("client send buffer full")
)

// push queues data without blocking.
func (c *Client) push(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errClientSlow
	}
}

func (c *Client) pushEvent(kind string, data interface{}) {
	payload, err := json.Marshal(&Event{Type: kind, Data: data})
	if err != nil {
		c.hub.log.With(sl.Err(err)).Error("marshal ws event")
		return
	}
	// a snapshot racing a disconnect lands on a closed client; nothing to report
	if err = c.push(payload); errors.Is(err, errClientSlow) {
		c.hub.log.With(
			slog.String("session_id", c.sessionID),
			slog.String("user_id", c.userID),
		).Warn("ws client too slow, event dropped")
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps messages from the websocket connection to the hub.
// It handles ping/pong keepalive and detects disconnects.
func (c *Client) readPump(stop chat.Unsubscribe) {
	defer func() {
		stop()
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.hub.HandleClientMessage(c, raw)
	}
}

// writePump pumps messages from the send queue to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// Authenticator resolves an API key to a principal.
type Authenticator interface {
	AuthenticateByToken(token string) (*entity.UserAuth, error)
}

// Watcher streams store snapshots of a session the principal may read.
type Watcher interface {
	WatchChat(ctx context.Context, principal *entity.UserAuth, sessionID string, onSession func(*entity.ChatSession), onMessages func([]entity.ChatMessage), onRevoked func()) (chat.Unsubscribe, error)
}

func watchErrorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound), errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ServeWs upgrades GET /ws?token=&session= and streams "session" and
// "messages" events for the requested chat.
func ServeWs(hub *Hub, watcher Watcher, auth Authenticator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("ws.serve"))

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		principal, err := auth.AuthenticateByToken(token)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "session is required", http.StatusBadRequest)
			return
		}
		logger = logger.With(
			slog.String("session_id", sessionID),
			slog.String("user", principal.Username),
		)

		client := newClient(hub, principal.UserID, sessionID)
		stop, err := watcher.WatchChat(r.Context(), principal, sessionID,
			func(session *entity.ChatSession) {
				client.pushEvent(EventSession, session)
			},
			func(messages []entity.ChatMessage) {
				if messages == nil {
					messages = []entity.ChatMessage{}
				}
				client.pushEvent(EventMessages, messages)
			},
			func() {
				logger.Info("read access revoked, closing websocket")
				client.close()
			},
		)
		if err != nil {
			status := watchErrorStatus(err)
			if status == http.StatusInternalServerError {
				logger.With(sl.Err(err)).Error("watch chat")
			} else {
				logger.With(sl.Err(err), slog.Int("status", status)).Warn("watch chat rejected")
			}
			http.Error(w, http.StatusText(status), status)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			stop()
			client.close()
			logger.With(sl.Err(err)).Error("websocket upgrade failed")
			return
		}
		client.conn = conn

		hub.register <- client
		logger.Debug("websocket client connected")

		go client.writePump()
		go client.readPump(stop)
	}
}
