package chat

import (
	"context"
	"furnishop/entity"
	"time"
)

// SessionFilter selects sessions for the list operations. Empty fields are
// not filtered on. Sessions are sorted by created_at, newest first unless
// Ascending is set.
type SessionFilter struct {
	CustomerID string
	DealerID   string
	ProductID  string
	Status     entity.ChatStatus
	Ascending  bool
}

// StatusUpdate is applied by Backend.UpdateSessionStatus.
type StatusUpdate struct {
	Status    entity.ChatStatus
	DealerID  string // left unchanged when empty
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// Backend is the document store behind the chat Store.
//
// FindSession returns nil, nil when the session does not exist.
// UpdateSessionStatus applies upd only if the stored status still equals
// from, returning ErrStatusConflict otherwise and ErrSessionNotFound for an
// unknown id. FindMessages returns messages ascending by timestamp.
type Backend interface {
	CreateSession(ctx context.Context, session *entity.ChatSession) error
	FindSession(ctx context.Context, id string) (*entity.ChatSession, error)
	FindSessions(ctx context.Context, filter SessionFilter) ([]entity.ChatSession, error)
	UpdateSessionStatus(ctx context.Context, id string, from entity.ChatStatus, upd StatusUpdate) error
	TouchSession(ctx context.Context, id string, at time.Time) error
	InsertMessage(ctx context.Context, msg *entity.ChatMessage) error
	FindMessages(ctx context.Context, sessionID string) ([]entity.ChatMessage, error)
}
