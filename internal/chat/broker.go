package chat

import (
	"sync"
)

type TopicKind string

const (
	TopicSession  TopicKind = "session"
	TopicMessages TopicKind = "messages"
)

// Topic addresses one change stream of one session.
type Topic struct {
	Kind      TopicKind `json:"kind"`
	SessionID string    `json:"session_id"`
}

// Broker fans change signals out to subscribers in-process. A signal carries
// no payload: the subscriber re-reads the current state, so pending signals
// are coalesced and a slow subscriber never blocks a publisher.
type Broker struct {
	mu   sync.RWMutex
	subs map[Topic]map[*subscription]struct{}
}

type subscription struct {
	topic  Topic
	signal chan struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[Topic]map[*subscription]struct{}),
	}
}

// Publish wakes every subscriber of topic.
func (b *Broker) Publish(topic Topic) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[topic] {
		sub.notify()
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (b *Broker) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *Broker) subscribe(topic Topic) *subscription {
	sub := &subscription{
		topic:  topic,
		signal: make(chan struct{}, 1),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[topic]
	if !ok {
		set = make(map[*subscription]struct{})
		b.subs[topic] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (b *Broker) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[sub.topic]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.topic)
	}
}

func (s *subscription) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}
