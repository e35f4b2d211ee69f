package entity

import (
	"time"
)

// SenderType identifies who authored a chat message.
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderDealer   SenderType = "dealer"
	SenderAI       SenderType = "ai"
)

func (t SenderType) Valid() bool {
	switch t {
	case SenderCustomer, SenderDealer, SenderAI:
		return true
	}
	return false
}

// ChatMessage is a single message of an inquiry chat session.
// Timestamp is the only sort key within a session.
type ChatMessage struct {
	ID          string     `json:"id" bson:"_id"`
	SessionID   string     `json:"session_id" bson:"session_id"`
	SenderID    string     `json:"sender_id" bson:"sender_id"`
	SenderType  SenderType `json:"sender_type" bson:"sender_type"`
	Content     string     `json:"content" bson:"content"`
	Attachments []string   `json:"attachments" bson:"attachments"`
	Timestamp   time.Time  `json:"timestamp" bson:"timestamp"`
}

func (m ChatMessage) Clone() ChatMessage {
	c := m
	if m.Attachments != nil {
		c.Attachments = append([]string(nil), m.Attachments...)
	}
	return c
}
