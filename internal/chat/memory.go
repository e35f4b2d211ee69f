package chat

import (
	"context"
	"fmt"
	"furnishop/entity"
	"sort"
	"sync"
	"time"
)

// MemoryBackend keeps sessions and messages in process memory. It backs
// local runs without MongoDB and the tests.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]*entity.ChatSession
	messages map[string][]entity.ChatMessage
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		sessions: make(map[string]*entity.ChatSession),
		messages: make(map[string][]entity.ChatMessage),
	}
}

func (m *MemoryBackend) CreateSession(_ context.Context, session *entity.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; ok {
		return fmt.Errorf("duplicate session id %s", session.ID)
	}
	stored := session.Clone()
	stored.Messages = nil
	m.sessions[session.ID] = stored
	return nil
}

func (m *MemoryBackend) FindSession(_ context.Context, id string) (*entity.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return session.Clone(), nil
}

func (m *MemoryBackend) FindSessions(_ context.Context, filter SessionFilter) ([]entity.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]entity.ChatSession, 0)
	for _, session := range m.sessions {
		if filter.CustomerID != "" && session.CustomerID != filter.CustomerID {
			continue
		}
		if filter.DealerID != "" && session.DealerID != filter.DealerID {
			continue
		}
		if filter.ProductID != "" && session.ProductID != filter.ProductID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		result = append(result, *session.Clone())
	}

	sort.SliceStable(result, func(i, j int) bool {
		if filter.Ascending {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryBackend) UpdateSessionStatus(_ context.Context, id string, from entity.ChatStatus, upd StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Status != from {
		return ErrStatusConflict
	}
	session.Status = upd.Status
	if upd.DealerID != "" {
		session.DealerID = upd.DealerID
	}
	session.UpdatedAt = upd.UpdatedAt
	if upd.ClosedAt != nil {
		t := *upd.ClosedAt
		session.ClosedAt = &t
	}
	return nil
}

func (m *MemoryBackend) TouchSession(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.UpdatedAt = at
	return nil
}

func (m *MemoryBackend) InsertMessage(_ context.Context, msg *entity.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg.Clone())
	return nil
}

func (m *MemoryBackend) FindMessages(_ context.Context, sessionID string) ([]entity.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.messages[sessionID]
	msgs := make([]entity.ChatMessage, len(stored))
	for i, msg := range stored {
		msgs[i] = msg.Clone()
	}
	entity.SortMessages(msgs)
	return msgs, nil
}
