package chat

import (
	"context"
	"furnishop/entity"
)

type Core interface {
	CreateInquiry(ctx context.Context, principal *entity.UserAuth, customerID, productID, dealerID, message string) (*entity.ChatSession, error)
	GetChat(ctx context.Context, principal *entity.UserAuth, sessionID string) (*entity.ChatHeader, error)
	GetChatMessages(ctx context.Context, principal *entity.UserAuth, sessionID string) ([]entity.ChatMessage, error)
	ListCustomerChats(ctx context.Context, principal *entity.UserAuth, customerID string, withMessages bool) ([]*entity.ChatHeader, error)
	ListDealerChats(ctx context.Context, principal *entity.UserAuth, dealerID string, withMessages bool) ([]*entity.ChatHeader, error)
	ListWaitingChats(ctx context.Context, principal *entity.UserAuth, withMessages bool) ([]*entity.ChatHeader, error)
	ListProductChats(ctx context.Context, principal *entity.UserAuth, productID string, withMessages bool) ([]*entity.ChatHeader, error)
	SendChatMessage(ctx context.Context, principal *entity.UserAuth, sessionID, content string, attachments []string) (string, error)
	UpdateChatStatus(ctx context.Context, principal *entity.UserAuth, sessionID string, status entity.ChatStatus) error
	AssignChatDealer(ctx context.Context, principal *entity.UserAuth, sessionID, dealerID string) error
}
