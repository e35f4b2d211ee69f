package chat

import (
	"context"
	"errors"
	"fmt"
	"furnishop/entity"
	"furnishop/internal/lib/sl"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Relay forwards local change signals to other service instances.
type Relay interface {
	Publish(ctx context.Context, topic Topic) error
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// Store manages inquiry chat sessions and their messages on top of a Backend
// and notifies subscribers about every change it makes.
type Store struct {
	backend Backend
	broker  *Broker
	relay   Relay
	log     *slog.Logger

	clockMu sync.Mutex
	last    time.Time
	now     func() time.Time
}

func NewStore(backend Backend, log *slog.Logger) *Store {
	return &Store{
		backend: backend,
		broker:  NewBroker(),
		log:     log.With(sl.Module("chat.store")),
		now:     time.Now,
	}
}

func (s *Store) SetRelay(relay Relay) {
	s.relay = relay
}

// Broker exposes the local broker so a relay can inject remote changes.
func (s *Store) Broker() *Broker {
	return s.broker
}

// CreateSession opens a waiting session. A dealerID is kept only as the
// preferred dealer; assignment happens through AssignDealer.
func (s *Store) CreateSession(ctx context.Context, customerID, productID, dealerID string) (string, error) {
	if customerID == "" || productID == "" {
		return "", fmt.Errorf("%w: %w: customer and product are required", ErrCreateFailed, ErrInvalidArgument)
	}

	now := s.stamp()
	session := &entity.ChatSession{
		ID:                uuid.NewString(),
		CustomerID:        customerID,
		PreferredDealerID: dealerID,
		ProductID:         productID,
		Status:            entity.StatusWaiting,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.backend.CreateSession(ctx, session); err != nil {
		s.log.With(
			slog.String("customer_id", customerID),
			slog.String("product_id", productID),
			sl.Err(err),
		).Error("create session")
		return "", fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	s.log.With(
		slog.String("session_id", session.ID),
		slog.String("customer_id", customerID),
		slog.String("product_id", productID),
	).Debug("session created")

	s.publish(ctx, TopicSession, session.ID)
	return session.ID, nil
}

// GetSession returns the session with its full message list, or nil when it
// does not exist.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*entity.ChatSession, error) {
	session, err := s.backend.FindSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if session == nil {
		return nil, nil
	}
	if err = s.hydrate(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// LoadMessages returns the session's messages ascending by timestamp.
func (s *Store) LoadMessages(ctx context.Context, sessionID string) ([]entity.ChatMessage, error) {
	msgs, err := s.backend.FindMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if msgs == nil {
		msgs = []entity.ChatMessage{}
	}
	entity.SortMessages(msgs)
	return msgs, nil
}

func (s *Store) ListSessionsByCustomer(ctx context.Context, customerID string, opts ...ListOption) ([]entity.ChatSession, error) {
	return s.list(ctx, SessionFilter{CustomerID: customerID}, opts)
}

func (s *Store) ListSessionsByDealer(ctx context.Context, dealerID string, opts ...ListOption) ([]entity.ChatSession, error) {
	return s.list(ctx, SessionFilter{DealerID: dealerID}, opts)
}

// ListWaitingSessions returns waiting sessions oldest first.
func (s *Store) ListWaitingSessions(ctx context.Context, opts ...ListOption) ([]entity.ChatSession, error) {
	return s.list(ctx, SessionFilter{Status: entity.StatusWaiting, Ascending: true}, opts)
}

func (s *Store) ListSessionsByProduct(ctx context.Context, productID string, opts ...ListOption) ([]entity.ChatSession, error) {
	return s.list(ctx, SessionFilter{ProductID: productID}, opts)
}

func (s *Store) list(ctx context.Context, filter SessionFilter, opts []ListOption) ([]entity.ChatSession, error) {
	o := buildListOptions(opts)

	sessions, err := s.backend.FindSessions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if sessions == nil {
		sessions = []entity.ChatSession{}
	}
	if !o.hydrate {
		return sessions, nil
	}
	for i := range sessions {
		if err = s.hydrate(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (s *Store) hydrate(ctx context.Context, session *entity.ChatSession) error {
	msgs, err := s.LoadMessages(ctx, session.ID)
	if err != nil {
		return err
	}
	session.Messages = msgs
	return nil
}

// SendMessage appends a message and bumps the session's updated_at. The two
// writes are independent; a failed touch is logged, the message stays.
// Participant checks are left to the caller.
func (s *Store) SendMessage(ctx context.Context, sessionID, senderID string, senderType entity.SenderType, content string, attachments []string) (string, error) {
	if senderID == "" || !senderType.Valid() {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, ErrInvalidSender)
	}

	session, err := s.backend.FindSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if session == nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, ErrSessionNotFound)
	}
	if session.Status.IsTerminal() {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, ErrSessionClosed)
	}

	if attachments == nil {
		attachments = []string{}
	}
	msg := &entity.ChatMessage{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		SenderID:    senderID,
		SenderType:  senderType,
		Content:     content,
		Attachments: append([]string(nil), attachments...),
		Timestamp:   s.stamp(),
	}
	if err = s.backend.InsertMessage(ctx, msg); err != nil {
		s.log.With(
			slog.String("session_id", sessionID),
			slog.String("sender_id", senderID),
			sl.Err(err),
		).Error("insert message")
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	if err = s.backend.TouchSession(ctx, sessionID, msg.Timestamp); err != nil {
		s.log.With(
			slog.String("session_id", sessionID),
			sl.Err(err),
		).Warn("touch session after message")
	}

	s.publish(ctx, TopicMessages, sessionID)
	s.publish(ctx, TopicSession, sessionID)
	return msg.ID, nil
}

// UpdateStatus moves the session to status, optionally setting the dealer.
// Only transitions allowed by entity.ChatStatus are applied; entering a
// terminal state sets closed_at.
func (s *Store) UpdateStatus(ctx context.Context, sessionID string, status entity.ChatStatus, dealerID string) error {
	session, err := s.backend.FindSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStatusUpdateFailed, err)
	}
	if session == nil {
		return fmt.Errorf("%w: %w", ErrStatusUpdateFailed, ErrSessionNotFound)
	}

	if _, err = session.Status.TransitionTo(status); err != nil {
		return fmt.Errorf("%w: %s -> %s: %w", ErrStatusUpdateFailed, session.Status, status, err)
	}
	if status == entity.StatusActive && dealerID == "" && session.DealerID == "" {
		return fmt.Errorf("%w: %w", ErrStatusUpdateFailed, ErrDealerRequired)
	}

	now := s.stamp()
	upd := StatusUpdate{
		Status:    status,
		DealerID:  dealerID,
		UpdatedAt: now,
	}
	if status.IsTerminal() {
		upd.ClosedAt = &now
	}

	if err = s.backend.UpdateSessionStatus(ctx, sessionID, session.Status, upd); err != nil {
		if !errors.Is(err, ErrStatusConflict) && !errors.Is(err, ErrSessionNotFound) {
			s.log.With(
				slog.String("session_id", sessionID),
				slog.String("status", status.String()),
				sl.Err(err),
			).Error("update status")
		}
		return fmt.Errorf("%w: %w", ErrStatusUpdateFailed, err)
	}

	s.log.With(
		slog.String("session_id", sessionID),
		slog.String("from", session.Status.String()),
		slog.String("to", status.String()),
	).Debug("status updated")

	s.publish(ctx, TopicSession, sessionID)
	return nil
}

// AssignDealer activates a waiting session for dealerID.
func (s *Store) AssignDealer(ctx context.Context, sessionID, dealerID string) error {
	if dealerID == "" {
		return fmt.Errorf("%w: %w", ErrStatusUpdateFailed, ErrDealerRequired)
	}
	return s.UpdateStatus(ctx, sessionID, entity.StatusActive, dealerID)
}

// SubscribeToSession calls onChange with the hydrated session, or nil when it
// no longer exists, once right away and then after every change. Calls are
// sequential on a goroutine owned by the subscription.
func (s *Store) SubscribeToSession(sessionID string, onChange func(*entity.ChatSession)) Unsubscribe {
	return s.watch(Topic{Kind: TopicSession, SessionID: sessionID}, func(ctx context.Context) {
		session, err := s.GetSession(ctx, sessionID)
		if err != nil {
			s.log.With(slog.String("session_id", sessionID), sl.Err(err)).Warn("session snapshot")
			return
		}
		if ctx.Err() != nil {
			return
		}
		onChange(session)
	})
}

// SubscribeToMessages calls onChange with the full sorted message list, once
// right away and then whenever a message is added.
func (s *Store) SubscribeToMessages(sessionID string, onChange func([]entity.ChatMessage)) Unsubscribe {
	return s.watch(Topic{Kind: TopicMessages, SessionID: sessionID}, func(ctx context.Context) {
		msgs, err := s.LoadMessages(ctx, sessionID)
		if err != nil {
			s.log.With(slog.String("session_id", sessionID), sl.Err(err)).Warn("messages snapshot")
			return
		}
		if ctx.Err() != nil {
			return
		}
		onChange(msgs)
	})
}

func (s *Store) watch(topic Topic, deliver func(ctx context.Context)) Unsubscribe {
	sub := s.broker.subscribe(topic)
	ctx, cancel := context.WithCancel(context.Background())

	sub.notify()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.signal:
				if ctx.Err() != nil {
					return
				}
				deliver(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			s.broker.remove(sub)
		})
	}
}

func (s *Store) publish(ctx context.Context, kind TopicKind, sessionID string) {
	topic := Topic{Kind: kind, SessionID: sessionID}
	s.broker.Publish(topic)
	if s.relay == nil {
		return
	}
	if err := s.relay.Publish(ctx, topic); err != nil {
		s.log.With(
			slog.String("session_id", sessionID),
			slog.String("kind", string(kind)),
			sl.Err(err),
		).Warn("relay publish")
	}
}

// stamp returns a millisecond timestamp strictly after the previous one, so
// messages sent through this store keep their send order once persisted.
func (s *Store) stamp() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	t := s.now().UTC().Truncate(time.Millisecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Millisecond)
	}
	s.last = t
	return t
}
