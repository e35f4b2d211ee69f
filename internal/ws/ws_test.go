package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"furnishop/entity"
	"furnishop/impl/core"
	"furnishop/internal/chat"
	"furnishop/internal/lib/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	return Event{}
}

func TestHub_TypingStaysInRoom(t *testing.T) {
	hub := NewHub(logger.Discard())
	go hub.Run()

	alice := newClient(hub, "c1", "s1")
	bob := newClient(hub, "d1", "s1")
	other := newClient(hub, "d2", "s2")
	hub.register <- alice
	hub.register <- bob
	hub.register <- other

	assert.Eventually(t, func() bool { return hub.Online("s1") == 2 }, time.Second, 5*time.Millisecond)

	hub.HandleClientMessage(alice, []byte(`{"type":"typing"}`))

	ev := readEvent(t, bob)
	assert.Equal(t, EventTyping, ev.Type)
	data, ok := ev.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "c1", data["user_id"])
	assert.Equal(t, "s1", data["session_id"])

	assert.Empty(t, alice.send)
	assert.Empty(t, other.send)

	hub.unregister <- bob
	assert.Eventually(t, func() bool { return hub.Online("s1") == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, bob.push([]byte("late")), errClientClosed)
}

func TestHub_IgnoresGarbage(t *testing.T) {
	hub := NewHub(logger.Discard())
	c := newClient(hub, "c1", "s1")
	hub.HandleClientMessage(c, []byte("not json"))
	hub.HandleClientMessage(c, []byte(`{"type":"dance"}`))
	assert.Empty(t, hub.broadcast)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := newClient(NewHub(logger.Discard()), "c1", "s1")
	assert.NoError(t, c.push([]byte("x")))
	c.close()
	c.close()
	assert.ErrorIs(t, c.push([]byte("y")), errClientClosed)
}

type fakeAuth struct{}

func (fakeAuth) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &entity.UserAuth{Username: "c1", UserID: "c1", Role: entity.CustomerRole}, nil
}

type fakeWatcher struct {
	stopped chan struct{}
}

func (f *fakeWatcher) WatchChat(_ context.Context, _ *entity.UserAuth, sessionID string, onSession func(*entity.ChatSession), onMessages func([]entity.ChatMessage), _ func()) (chat.Unsubscribe, error) {
	switch sessionID {
	case "s1":
	case "s2":
		return nil, core.ErrForbidden
	case "missing":
		return nil, fmt.Errorf("%w: session missing", core.ErrNotFound)
	default:
		return nil, errors.New("mongodb connect error")
	}
	onSession(&entity.ChatSession{ID: sessionID, Status: entity.StatusWaiting})
	onMessages(nil)
	return func() { close(f.stopped) }, nil
}

func TestServeWs(t *testing.T) {
	hub := NewHub(logger.Discard())
	go hub.Run()
	watcher := &fakeWatcher{stopped: make(chan struct{})}
	srv := httptest.NewServer(ServeWs(hub, watcher, fakeAuth{}, logger.Discard()))
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base+"?token=bad&session=s1", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=good&session=s2", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=good&session=missing", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=good&session=broken", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=good", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?token=good&session=s1", nil)
	require.NoError(t, err)

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventSession, ev.Type)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventMessages, ev.Type)
	assert.Equal(t, []interface{}{}, ev.Data)

	require.NoError(t, conn.Close())
	select {
	case <-watcher.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not released after disconnect")
	}
}

func TestPushEvent_WarnsOnlyWhenSlow(t *testing.T) {
	var buf bytes.Buffer
	hub := NewHub(slog.New(slog.NewTextHandler(&buf, nil)))

	gone := newClient(hub, "c1", "s1")
	gone.close()
	gone.pushEvent(EventMessages, []entity.ChatMessage{})
	assert.NotContains(t, buf.String(), "too slow")

	slow := newClient(hub, "c2", "s1")
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, slow.push([]byte("x")))
	}
	slow.pushEvent(EventMessages, []entity.ChatMessage{})
	assert.Contains(t, buf.String(), "too slow")
}

type dealerAuth map[string]*entity.UserAuth

func (d dealerAuth) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if user, ok := d[token]; ok {
		return user, nil
	}
	return nil, errors.New("bad token")
}

func TestServeWs_ClosesWhenAnotherDealerPicksUp(t *testing.T) {
	log := logger.Discard()
	c := core.New(chat.NewStore(chat.NewMemoryBackend(), log), log)

	customer := &entity.UserAuth{Username: "c1", UserID: "c1", Role: entity.CustomerRole}
	owner := &entity.UserAuth{Username: "d1", UserID: "d1", Role: entity.DealerRole}
	other := &entity.UserAuth{Username: "d2", UserID: "d2", Role: entity.DealerRole}
	auth := dealerAuth{"t-c1": customer, "t-d1": owner, "t-d2": other}

	hub := NewHub(log)
	go hub.Run()
	srv := httptest.NewServer(ServeWs(hub, c, auth, log))
	defer srv.Close()

	ctx := context.Background()
	session, err := c.CreateInquiry(ctx, customer, "", "p2", "", "")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=t-d2&session=" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	require.NoError(t, conn.ReadJSON(&ev))

	require.NoError(t, c.AssignChatDealer(ctx, owner, session.ID, ""))
	_, err = c.SendChatMessage(ctx, customer, session.ID, "private to d1", nil)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatal("socket still open after the session moved to another dealer")
			}
			break
		}
		assert.NotContains(t, string(raw), "private to d1")
		assert.NotContains(t, string(raw), `"dealer_id":"d1"`)
	}
}
