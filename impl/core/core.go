package core

import (
	"context"
	"errors"
	"furnishop/entity"
	"furnishop/internal/chat"
	"furnishop/internal/lib/sl"
	"io"
	"log/slog"
	"time"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

type Repository interface {
	// CheckApiKey returns "" for an unknown key; an error means the lookup failed.
	CheckApiKey(key string) (string, error)
	GenerateApiKey(username string) (string, error)
	GetUserByUUID(uuid string) (*entity.User, error)
	GetUserByEmail(email string) (*entity.User, error)
	UpsertUser(user entity.User) error
}

type ProductCatalog interface {
	GetProduct(id string) (*entity.Product, error)
}

type FileStorage interface {
	UploadFile(filename string, reader io.Reader, meta entity.FileMetadata) (string, int64, error)
	DownloadFile(fileID string) (string, entity.FileMetadata, io.ReadCloser, error)
}

type ChatStore interface {
	CreateSession(ctx context.Context, customerID, productID, dealerID string) (string, error)
	GetSession(ctx context.Context, sessionID string) (*entity.ChatSession, error)
	LoadMessages(ctx context.Context, sessionID string) ([]entity.ChatMessage, error)
	ListSessionsByCustomer(ctx context.Context, customerID string, opts ...chat.ListOption) ([]entity.ChatSession, error)
	ListSessionsByDealer(ctx context.Context, dealerID string, opts ...chat.ListOption) ([]entity.ChatSession, error)
	ListWaitingSessions(ctx context.Context, opts ...chat.ListOption) ([]entity.ChatSession, error)
	ListSessionsByProduct(ctx context.Context, productID string, opts ...chat.ListOption) ([]entity.ChatSession, error)
	SendMessage(ctx context.Context, sessionID, senderID string, senderType entity.SenderType, content string, attachments []string) (string, error)
	UpdateStatus(ctx context.Context, sessionID string, status entity.ChatStatus, dealerID string) error
	AssignDealer(ctx context.Context, sessionID, dealerID string) error
	SubscribeToSession(sessionID string, onChange func(*entity.ChatSession)) chat.Unsubscribe
	SubscribeToMessages(sessionID string, onChange func([]entity.ChatMessage)) chat.Unsubscribe
}

type Assistant interface {
	Answer(ctx context.Context, sessionID string, product *entity.ProductInfo, history []entity.ChatMessage) (string, error)
}

type Notifier interface {
	NotifyNewInquiry(session *entity.ChatSession, product *entity.ProductInfo, customer *entity.UserInfo)
}

type Core struct {
	store      ChatStore
	repo       Repository
	catalog    ProductCatalog
	files      FileStorage
	ass        Assistant
	notifier   Notifier
	authKey    string
	fileSecret string
	fileTTL    time.Duration
	log        *slog.Logger
}

func New(store ChatStore, log *slog.Logger) *Core {
	return &Core{
		store:   store,
		fileTTL: time.Hour,
		log:     log.With(sl.Module("core")),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetProductCatalog(catalog ProductCatalog) {
	c.catalog = catalog
}

func (c *Core) SetFileStorage(files FileStorage, secret string, ttl time.Duration) {
	c.files = files
	c.fileSecret = secret
	if ttl > 0 {
		c.fileTTL = ttl
	}
}

func (c *Core) SetAuthKey(key string) {
	c.authKey = key
}

func (c *Core) SetAssistant(ass Assistant) {
	c.ass = ass
}

func (c *Core) SetNotifier(notifier Notifier) {
	c.notifier = notifier
}
