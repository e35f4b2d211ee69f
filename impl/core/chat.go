package core

import (
	"context"
	"fmt"
	"furnishop/entity"
	"furnishop/internal/chat"
	"furnishop/internal/lib/sl"
	"log/slog"
	"sync"
	"time"
)

const (
	assistantSenderID = "assistant"
	assistantTimeout  = 30 * time.Second
)

// CreateInquiry opens a session for the principal (or, for admins, the given
// customer) and posts the optional first message.
func (c *Core) CreateInquiry(ctx context.Context, principal *entity.UserAuth, customerID, productID, dealerID, message string) (*entity.ChatSession, error) {
	switch {
	case principal.IsAdmin():
		if customerID == "" {
			return nil, fmt.Errorf("%w: customer_id is required", ErrBadRequest)
		}
	case principal.Role == entity.CustomerRole:
		if customerID != "" && customerID != principal.UserID {
			return nil, ErrForbidden
		}
		customerID = principal.UserID
	default:
		return nil, ErrForbidden
	}

	if c.catalog != nil {
		product, err := c.catalog.GetProduct(productID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		if dealerID == "" {
			dealerID = product.DealerID
		}
	}

	id, err := c.store.CreateSession(ctx, customerID, productID, dealerID)
	if err != nil {
		return nil, err
	}

	if message != "" {
		if _, err = c.store.SendMessage(ctx, id, customerID, entity.SenderCustomer, message, nil); err != nil {
			return nil, err
		}
	}

	session, err := c.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s vanished after create", ErrNotFound, id)
	}

	c.log.With(
		slog.String("session_id", id),
		slog.String("customer_id", customerID),
		slog.String("product_id", productID),
	).Info("inquiry opened")

	if c.notifier != nil {
		go c.notifier.NotifyNewInquiry(session.Clone(), c.lookupProduct(productID), c.lookupUser(customerID))
	}
	if message != "" {
		c.triggerAssistant(id)
	}

	return session, nil
}

// GetChat returns a session with messages if the principal may read it.
func (c *Core) GetChat(ctx context.Context, principal *entity.UserAuth, sessionID string) (*entity.ChatHeader, error) {
	session, err := c.readableSession(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}
	return c.headers([]entity.ChatSession{*session})[0], nil
}

func (c *Core) GetChatMessages(ctx context.Context, principal *entity.UserAuth, sessionID string) ([]entity.ChatMessage, error) {
	session, err := c.readableSession(ctx, principal, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

func (c *Core) ListCustomerChats(ctx context.Context, principal *entity.UserAuth, customerID string, withMessages bool) ([]*entity.ChatHeader, error) {
	if !principal.IsAdmin() && principal.UserID != customerID {
		return nil, ErrForbidden
	}
	sessions, err := c.store.ListSessionsByCustomer(ctx, customerID, chat.WithMessages(withMessages))
	if err != nil {
		return nil, err
	}
	return c.headers(sessions), nil
}

func (c *Core) ListDealerChats(ctx context.Context, principal *entity.UserAuth, dealerID string, withMessages bool) ([]*entity.ChatHeader, error) {
	if !principal.IsAdmin() && !(principal.IsDealer() && principal.UserID == dealerID) {
		return nil, ErrForbidden
	}
	sessions, err := c.store.ListSessionsByDealer(ctx, dealerID, chat.WithMessages(withMessages))
	if err != nil {
		return nil, err
	}
	return c.headers(sessions), nil
}

func (c *Core) ListWaitingChats(ctx context.Context, principal *entity.UserAuth, withMessages bool) ([]*entity.ChatHeader, error) {
	if !principal.IsAdmin() && !principal.IsDealer() {
		return nil, ErrForbidden
	}
	sessions, err := c.store.ListWaitingSessions(ctx, chat.WithMessages(withMessages))
	if err != nil {
		return nil, err
	}
	return c.headers(sessions), nil
}

func (c *Core) ListProductChats(ctx context.Context, principal *entity.UserAuth, productID string, withMessages bool) ([]*entity.ChatHeader, error) {
	if !principal.IsAdmin() && !principal.IsDealer() {
		return nil, ErrForbidden
	}
	sessions, err := c.store.ListSessionsByProduct(ctx, productID, chat.WithMessages(withMessages))
	if err != nil {
		return nil, err
	}
	return c.headers(sessions), nil
}

// SendChatMessage posts as the session's customer or as its dealer side.
// Admins write on the dealer side.
func (c *Core) SendChatMessage(ctx context.Context, principal *entity.UserAuth, sessionID, content string, attachments []string) (string, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	var senderType entity.SenderType
	switch {
	case principal.UserID == session.CustomerID:
		senderType = entity.SenderCustomer
	case principal.UserID == session.DealerID, principal.IsAdmin():
		senderType = entity.SenderDealer
	default:
		return "", ErrForbidden
	}

	id, err := c.store.SendMessage(ctx, sessionID, principal.UserID, senderType, content, attachments)
	if err != nil {
		return "", err
	}

	if senderType == entity.SenderCustomer && session.Status == entity.StatusWaiting {
		c.triggerAssistant(sessionID)
	}
	return id, nil
}

// UpdateChatStatus closes a session. Activation goes through AssignChatDealer.
func (c *Core) UpdateChatStatus(ctx context.Context, principal *entity.UserAuth, sessionID string, status entity.ChatStatus) error {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	isDealer := session.DealerID != "" && principal.UserID == session.DealerID
	switch status {
	case entity.StatusCancelled:
		if !principal.IsAdmin() && !isDealer && principal.UserID != session.CustomerID {
			return ErrForbidden
		}
	case entity.StatusCompleted:
		if !principal.IsAdmin() && !isDealer {
			return ErrForbidden
		}
	case entity.StatusActive:
		return c.AssignChatDealer(ctx, principal, sessionID, "")
	default:
		return fmt.Errorf("%w: status %q", ErrBadRequest, status)
	}

	if err = c.store.UpdateStatus(ctx, sessionID, status, ""); err != nil {
		return err
	}
	c.log.With(
		slog.String("session_id", sessionID),
		slog.String("status", status.String()),
		slog.String("by", principal.Username),
	).Info("chat status changed")
	return nil
}

// AssignChatDealer lets a dealer pick up a waiting session, or an admin hand
// it to any dealer.
func (c *Core) AssignChatDealer(ctx context.Context, principal *entity.UserAuth, sessionID, dealerID string) error {
	switch {
	case principal.IsAdmin():
		if dealerID == "" {
			return fmt.Errorf("%w: dealer_id is required", ErrBadRequest)
		}
		if c.repo != nil {
			dealer, err := c.repo.GetUserByUUID(dealerID)
			if err != nil {
				return fmt.Errorf("get dealer: %w", err)
			}
			if dealer == nil || !dealer.IsDealer() {
				return fmt.Errorf("%w: dealer %s", ErrNotFound, dealerID)
			}
		}
	case principal.IsDealer():
		if dealerID != "" && dealerID != principal.UserID {
			return ErrForbidden
		}
		dealerID = principal.UserID
	default:
		return ErrForbidden
	}

	if err := c.store.AssignDealer(ctx, sessionID, dealerID); err != nil {
		return err
	}
	c.log.With(
		slog.String("session_id", sessionID),
		slog.String("dealer_id", dealerID),
		slog.String("by", principal.Username),
	).Info("dealer assigned")
	return nil
}

// WatchChat streams session and message snapshots to the callbacks until the
// returned function is called. Every snapshot is re-checked against the
// principal's read access; on the first denial both streams stop and
// onRevoked (if set) is called once.
func (c *Core) WatchChat(ctx context.Context, principal *entity.UserAuth, sessionID string, onSession func(*entity.ChatSession), onMessages func([]entity.ChatMessage), onRevoked func()) (chat.Unsubscribe, error) {
	if _, err := c.readableSession(ctx, principal, sessionID); err != nil {
		return nil, err
	}

	w := &watch{onRevoked: onRevoked}
	stopSession := c.store.SubscribeToSession(sessionID, func(session *entity.ChatSession) {
		if w.isRevoked() {
			return
		}
		if session == nil || !canRead(principal, session) {
			w.revoke()
			return
		}
		onSession(session)
	})
	stopMessages := c.store.SubscribeToMessages(sessionID, func(messages []entity.ChatMessage) {
		if w.isRevoked() {
			return
		}
		// the message list carries no ownership, so look at the session record
		session, err := c.store.GetSession(context.Background(), sessionID)
		if err != nil {
			c.log.With(slog.String("session_id", sessionID), sl.Err(err)).Warn("watch access check")
			return
		}
		if session == nil || !canRead(principal, session) {
			w.revoke()
			return
		}
		onMessages(messages)
	})
	w.attach(func() {
		stopSession()
		stopMessages()
	})

	if !w.isRevoked() {
		c.log.With(
			slog.String("session_id", sessionID),
			slog.String("user", principal.Username),
		).Debug("watch started")
	}
	return w.stop, nil
}

// watch ties the two store subscriptions of WatchChat together so either
// callback can end both.
type watch struct {
	mu        sync.Mutex
	revoked   bool
	stopped   bool
	stopFn    func()
	onRevoked func()
}

func (w *watch) isRevoked() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.revoked
}

func (w *watch) attach(stop func()) {
	w.mu.Lock()
	w.stopFn = stop
	revoked := w.revoked
	w.mu.Unlock()
	if revoked {
		w.stop()
	}
}

func (w *watch) revoke() {
	w.mu.Lock()
	if w.revoked {
		w.mu.Unlock()
		return
	}
	w.revoked = true
	onRevoked := w.onRevoked
	w.mu.Unlock()

	w.stop()
	if onRevoked != nil {
		onRevoked()
	}
}

func (w *watch) stop() {
	w.mu.Lock()
	if w.stopped || w.stopFn == nil {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	stop := w.stopFn
	w.mu.Unlock()
	stop()
}

func (c *Core) readableSession(ctx context.Context, principal *entity.UserAuth, sessionID string) (*entity.ChatSession, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if !canRead(principal, session) {
		return nil, ErrForbidden
	}
	return session, nil
}

// canRead: admins, participants, the preferred dealer, and any dealer while
// the session is still waiting for pickup.
func canRead(principal *entity.UserAuth, session *entity.ChatSession) bool {
	if principal.IsAdmin() || session.IsParticipant(principal.UserID) {
		return true
	}
	if !principal.IsDealer() {
		return false
	}
	return session.Status == entity.StatusWaiting || session.PreferredDealerID == principal.UserID
}

func (c *Core) headers(sessions []entity.ChatSession) []*entity.ChatHeader {
	products := make(map[string]*entity.ProductInfo)
	users := make(map[string]*entity.UserInfo)

	product := func(id string) *entity.ProductInfo {
		if p, ok := products[id]; ok {
			return p
		}
		p := c.lookupProduct(id)
		products[id] = p
		return p
	}
	user := func(id string) *entity.UserInfo {
		if id == "" {
			return nil
		}
		if u, ok := users[id]; ok {
			return u
		}
		u := c.lookupUser(id)
		users[id] = u
		return u
	}

	result := make([]*entity.ChatHeader, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		result = append(result, &entity.ChatHeader{
			Session:  s,
			Product:  product(s.ProductID),
			Customer: user(s.CustomerID),
			Dealer:   user(s.DealerID),
		})
	}
	return result
}

func (c *Core) triggerAssistant(sessionID string) {
	if c.ass == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), assistantTimeout)
		defer cancel()
		if err := c.answerWaiting(ctx, sessionID); err != nil {
			c.log.With(
				slog.String("session_id", sessionID),
				sl.Err(err),
			).Error("assistant answer")
		}
	}()
}

// answerWaiting posts an AI reply while no dealer has picked the session up.
func (c *Core) answerWaiting(ctx context.Context, sessionID string) error {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil || session.Status != entity.StatusWaiting {
		return nil
	}

	answer, err := c.ass.Answer(ctx, sessionID, c.lookupProduct(session.ProductID), session.Messages)
	if err != nil {
		return err
	}
	if answer == "" {
		return nil
	}

	_, err = c.store.SendMessage(ctx, sessionID, assistantSenderID, entity.SenderAI, answer, nil)
	return err
}
