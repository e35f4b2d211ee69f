package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"furnishop/entity"
	"furnishop/internal/chat"
	"furnishop/internal/lib/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_ReplaysForeignEvents(t *testing.T) {
	store := chat.NewStore(chat.NewMemoryBackend(), logger.Discard())
	relay := newRelay(nil, "test", store.Broker(), logger.Discard())

	id, err := store.CreateSession(context.Background(), "c1", "p1", "")
	require.NoError(t, err)

	updates := make(chan []entity.ChatMessage, 4)
	unsubscribe := store.SubscribeToMessages(id, func(msgs []entity.ChatMessage) {
		updates <- msgs
	})
	defer unsubscribe()
	<-updates

	own, _ := json.Marshal(ChangeEvent{Origin: relay.origin, Topic: chat.Topic{Kind: chat.TopicMessages, SessionID: id}})
	relay.dispatch(string(own))
	relay.dispatch("not json")

	select {
	case <-updates:
		t.Fatal("own or malformed event must not be replayed")
	case <-time.After(50 * time.Millisecond):
	}

	foreign, _ := json.Marshal(ChangeEvent{Origin: "other", Topic: chat.Topic{Kind: chat.TopicMessages, SessionID: id}})
	relay.dispatch(string(foreign))

	select {
	case msgs := <-updates:
		assert.Empty(t, msgs)
	case <-time.After(time.Second):
		t.Fatal("foreign event was not replayed")
	}
}
