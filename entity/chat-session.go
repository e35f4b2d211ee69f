package entity

import (
	"sort"
	"time"
)

// ChatSession is a customer-dealer inquiry conversation about one product.
//
// DealerID is empty while the session is waiting and set once it is active.
// ClosedAt is set only when the status is terminal. Messages are not stored
// on the session document; they are hydrated from the message collection.
type ChatSession struct {
	ID                string        `json:"id" bson:"_id"`
	CustomerID        string        `json:"customer_id" bson:"customer_id"`
	DealerID          string        `json:"dealer_id,omitempty" bson:"dealer_id,omitempty"`
	PreferredDealerID string        `json:"preferred_dealer_id,omitempty" bson:"preferred_dealer_id,omitempty"`
	ProductID         string        `json:"product_id" bson:"product_id"`
	Status            ChatStatus    `json:"status" bson:"status"`
	CreatedAt         time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" bson:"updated_at"`
	ClosedAt          *time.Time    `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
	Messages          []ChatMessage `json:"messages" bson:"-"`
}

// IsParticipant reports whether userID is the session's customer or assigned dealer.
func (s *ChatSession) IsParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	return s.CustomerID == userID || s.DealerID == userID
}

// Clone returns a deep copy, so callers can't mutate stored state.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		c.ClosedAt = &t
	}
	if s.Messages != nil {
		c.Messages = make([]ChatMessage, len(s.Messages))
		for i, m := range s.Messages {
			c.Messages[i] = m.Clone()
		}
	}
	return &c
}

// SortMessages orders messages ascending by timestamp, keeping insertion
// order for equal timestamps.
func SortMessages(msgs []ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

// ChatHeader is a session enriched with display data for list views.
type ChatHeader struct {
	Session  *ChatSession `json:"session"`
	Product  *ProductInfo `json:"product,omitempty"`
	Customer *UserInfo    `json:"customer,omitempty"`
	Dealer   *UserInfo    `json:"dealer,omitempty"`
}
