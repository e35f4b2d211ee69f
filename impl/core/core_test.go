package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"furnishop/entity"
	"furnishop/internal/chat"
	"furnishop/internal/lib/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	keys  map[string]string
	users map[string]*entity.User
}

func (f *fakeRepo) CheckApiKey(key string) (string, error) {
	if key == "k-outage" {
		return "", errors.New("mongodb connect error")
	}
	return f.keys[key], nil
}

func (f *fakeRepo) GenerateApiKey(username string) (string, error) {
	for k, u := range f.keys {
		if u == username {
			return k, nil
		}
	}
	key := "key-" + username
	f.keys[key] = username
	return key, nil
}

func (f *fakeRepo) GetUserByUUID(uuid string) (*entity.User, error) {
	if u, ok := f.users[uuid]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeRepo) GetUserByEmail(email string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) UpsertUser(user entity.User) error {
	f.users[user.UUID] = &user
	return nil
}

type fakeCatalog map[string]*entity.Product

func (f fakeCatalog) GetProduct(id string) (*entity.Product, error) {
	return f[id], nil
}

type fakeFiles struct {
	mu    sync.Mutex
	data  map[string][]byte
	metas map[string]entity.FileMetadata
}

func (f *fakeFiles) UploadFile(filename string, reader io.Reader, meta entity.FileMetadata) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := io.ReadAll(reader)
	if err != nil {
		return "", 0, err
	}
	id := "file" + filename
	f.data[id] = b
	f.metas[id] = meta
	return id, int64(len(b)), nil
}

func (f *fakeFiles) DownloadFile(fileID string) (string, entity.FileMetadata, io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[fileID]
	if !ok {
		return "", entity.FileMetadata{}, nil, errors.New("no such file")
	}
	return strings.TrimPrefix(fileID, "file"), f.metas[fileID], io.NopCloser(bytes.NewReader(b)), nil
}

type fakeAssistant struct {
	answer string
	err    error
}

func (f *fakeAssistant) Answer(_ context.Context, _ string, _ *entity.ProductInfo, _ []entity.ChatMessage) (string, error) {
	return f.answer, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	sessions []string
}

func (f *fakeNotifier) NotifyNewInquiry(session *entity.ChatSession, _ *entity.ProductInfo, _ *entity.UserInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session.ID)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

var (
	customer  = &entity.UserAuth{Username: "c1", UserID: "c1", Role: entity.CustomerRole}
	customer2 = &entity.UserAuth{Username: "c2", UserID: "c2", Role: entity.CustomerRole}
	dealer    = &entity.UserAuth{Username: "d1", UserID: "d1", Role: entity.DealerRole}
	dealer2   = &entity.UserAuth{Username: "d2", UserID: "d2", Role: entity.DealerRole}
	admin     = &entity.UserAuth{Username: "admin", UserID: "admin", Role: entity.AdminRole}
)

func newTestCore(t *testing.T) (*Core, *chat.Store) {
	t.Helper()
	store := chat.NewStore(chat.NewMemoryBackend(), logger.Discard())
	c := New(store, logger.Discard())
	c.SetAuthKey("bootstrap")
	c.SetRepository(&fakeRepo{
		keys: map[string]string{"k-c1": "c1", "k-blocked": "b1"},
		users: map[string]*entity.User{
			"c1": {UUID: "c1", Name: "Ann", Email: "ann@example.com", Role: entity.CustomerRole},
			"d1": {UUID: "d1", Name: "Dan", Role: entity.DealerRole},
			"d2": {UUID: "d2", Name: "Dora", Role: entity.DealerRole},
			"b1": {UUID: "b1", Name: "Bob", Role: entity.CustomerRole, Blocked: true},
		},
	})
	c.SetProductCatalog(fakeCatalog{
		"p1": {ID: "p1", Name: "Oak table", Price: 499, DealerID: "d1"},
		"p2": {ID: "p2", Name: "Sofa", Price: 899},
	})
	return c, store
}

func TestAuthenticateByToken(t *testing.T) {
	c, _ := newTestCore(t)

	user, err := c.AuthenticateByToken("bootstrap")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	user, err = c.AuthenticateByToken("k-c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", user.UserID)
	assert.Equal(t, entity.CustomerRole, user.Role)
	assert.Equal(t, "Ann", user.Name)

	_, err = c.AuthenticateByToken("k-blocked")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.AuthenticateByToken("nope")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.AuthenticateByToken("")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.AuthenticateByToken("k-outage")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized, "a failed lookup is not a bad key")
}

func TestGenerateApiKey(t *testing.T) {
	c, _ := newTestCore(t)

	_, err := c.GenerateApiKey(customer, "d1")
	assert.ErrorIs(t, err, ErrForbidden)

	key, err := c.GenerateApiKey(admin, "d1")
	require.NoError(t, err)
	assert.Equal(t, "key-d1", key)

	_, err = c.GenerateApiKey(admin, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInquiry(t *testing.T) {
	c, _ := newTestCore(t)
	notifier := &fakeNotifier{}
	c.SetNotifier(notifier)
	ctx := context.Background()

	session, err := c.CreateInquiry(ctx, customer, "", "p1", "", "Is it solid oak?")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWaiting, session.Status)
	assert.Equal(t, "c1", session.CustomerID)
	assert.Empty(t, session.DealerID)
	assert.Equal(t, "d1", session.PreferredDealerID)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, "Is it solid oak?", session.Messages[0].Content)
	assert.Equal(t, entity.SenderCustomer, session.Messages[0].SenderType)

	assert.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond)

	_, err = c.CreateInquiry(ctx, customer, "", "missing", "", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.CreateInquiry(ctx, customer, "c2", "p1", "", "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = c.CreateInquiry(ctx, dealer, "", "p1", "", "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = c.CreateInquiry(ctx, admin, "", "p1", "", "")
	assert.ErrorIs(t, err, ErrBadRequest)

	onBehalf, err := c.CreateInquiry(ctx, admin, "c2", "p2", "", "")
	require.NoError(t, err)
	assert.Equal(t, "c2", onBehalf.CustomerID)
	assert.Empty(t, onBehalf.PreferredDealerID)
}

func TestChatLifecycle(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	session, err := c.CreateInquiry(ctx, customer, "", "p1", "", "")
	require.NoError(t, err)
	id := session.ID

	_, err = c.SendChatMessage(ctx, dealer, id, "hijack", nil)
	assert.ErrorIs(t, err, ErrForbidden)

	err = c.AssignChatDealer(ctx, dealer, id, "d2")
	assert.ErrorIs(t, err, ErrForbidden)
	err = c.AssignChatDealer(ctx, customer, id, "")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, c.AssignChatDealer(ctx, dealer, id, ""))

	err = c.AssignChatDealer(ctx, dealer2, id, "")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = c.SendChatMessage(ctx, customer, id, "Hi", nil)
	require.NoError(t, err)
	_, err = c.SendChatMessage(ctx, dealer, id, "Hello, how can I help?", nil)
	require.NoError(t, err)
	_, err = c.SendChatMessage(ctx, dealer2, id, "me too", nil)
	assert.ErrorIs(t, err, ErrForbidden)

	msgs, err := c.GetChatMessages(ctx, customer, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi", msgs[0].Content)
	assert.Equal(t, entity.SenderDealer, msgs[1].SenderType)

	_, err = c.GetChat(ctx, dealer2, id)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = c.GetChat(ctx, customer2, id)
	assert.ErrorIs(t, err, ErrForbidden)

	err = c.UpdateChatStatus(ctx, customer, id, entity.StatusCompleted)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, c.UpdateChatStatus(ctx, dealer, id, entity.StatusCompleted))

	header, err := c.GetChat(ctx, customer, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, header.Session.Status)
	assert.NotNil(t, header.Session.ClosedAt)
	require.NotNil(t, header.Product)
	assert.Equal(t, "Oak table", header.Product.Name)
	require.NotNil(t, header.Dealer)
	assert.Equal(t, "Dan", header.Dealer.Name)
	require.NotNil(t, header.Customer)
	assert.Equal(t, "Ann", header.Customer.Name)

	_, err = c.SendChatMessage(ctx, customer, id, "one more thing", nil)
	assert.ErrorIs(t, err, chat.ErrSessionClosed)

	err = c.UpdateChatStatus(ctx, customer, "missing", entity.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateChatStatus_CustomerCancelsWaiting(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	session, err := c.CreateInquiry(ctx, customer, "", "p2", "", "")
	require.NoError(t, err)

	require.NoError(t, c.UpdateChatStatus(ctx, customer, session.ID, entity.StatusCancelled))

	err = c.UpdateChatStatus(ctx, customer, session.ID, entity.ChatStatus("archived"))
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestAssignChatDealer_Admin(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	session, err := c.CreateInquiry(ctx, customer, "", "p2", "", "")
	require.NoError(t, err)

	assert.ErrorIs(t, c.AssignChatDealer(ctx, admin, session.ID, ""), ErrBadRequest)
	assert.ErrorIs(t, c.AssignChatDealer(ctx, admin, session.ID, "c1"), ErrNotFound)
	require.NoError(t, c.AssignChatDealer(ctx, admin, session.ID, "d2"))

	chats, err := c.ListDealerChats(ctx, dealer2, "d2", false)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, session.ID, chats[0].Session.ID)
	assert.Nil(t, chats[0].Session.Messages)
}

func TestListChats_Access(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	first, err := c.CreateInquiry(ctx, customer, "", "p1", "", "")
	require.NoError(t, err)
	second, err := c.CreateInquiry(ctx, customer, "", "p2", "", "")
	require.NoError(t, err)

	mine, err := c.ListCustomerChats(ctx, customer, "c1", true)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].Session.ID)

	_, err = c.ListCustomerChats(ctx, customer2, "c1", true)
	assert.ErrorIs(t, err, ErrForbidden)

	waiting, err := c.ListWaitingChats(ctx, dealer, false)
	require.NoError(t, err)
	require.Len(t, waiting, 2)
	assert.Equal(t, first.ID, waiting[0].Session.ID)

	_, err = c.ListWaitingChats(ctx, customer, false)
	assert.ErrorIs(t, err, ErrForbidden)

	byProduct, err := c.ListProductChats(ctx, admin, "p1", false)
	require.NoError(t, err)
	require.Len(t, byProduct, 1)

	_, err = c.ListDealerChats(ctx, dealer, "d2", false)
	assert.ErrorIs(t, err, ErrForbidden)

	header, err := c.GetChat(ctx, dealer2, first.ID)
	require.NoError(t, err, "any dealer may preview a waiting inquiry")
	assert.Equal(t, first.ID, header.Session.ID)
}

func TestAssistantAnswersWaitingInquiry(t *testing.T) {
	c, _ := newTestCore(t)
	c.SetAssistant(&fakeAssistant{answer: "A dealer will be with you shortly."})
	ctx := context.Background()

	session, err := c.CreateInquiry(ctx, customer, "", "p1", "", "Hello?")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		msgs, err := c.GetChatMessages(ctx, customer, session.ID)
		return err == nil && len(msgs) == 2 && msgs[1].SenderType == entity.SenderAI
	}, time.Second, 10*time.Millisecond)
}

func TestAnswerWaiting_SkipsActiveSession(t *testing.T) {
	c, store := newTestCore(t)
	c.SetAssistant(&fakeAssistant{answer: "should not be sent"})
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "c1", "p1", "")
	require.NoError(t, err)
	require.NoError(t, store.AssignDealer(ctx, id, "d1"))

	require.NoError(t, c.answerWaiting(ctx, id))
	msgs, err := store.LoadMessages(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	c.SetAssistant(&fakeAssistant{err: errors.New("quota")})
	id2, err := store.CreateSession(ctx, "c1", "p1", "")
	require.NoError(t, err)
	assert.Error(t, c.answerWaiting(ctx, id2))
}

func TestWatchChat(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	session, err := c.CreateInquiry(ctx, customer, "", "p1", "", "")
	require.NoError(t, err)

	_, err = c.WatchChat(ctx, customer2, session.ID, func(*entity.ChatSession) {}, func([]entity.ChatMessage) {}, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	sessions := make(chan *entity.ChatSession, 16)
	messages := make(chan []entity.ChatMessage, 16)
	stop, err := c.WatchChat(ctx, customer, session.ID,
		func(s *entity.ChatSession) { sessions <- s },
		func(m []entity.ChatMessage) { messages <- m },
		nil,
	)
	require.NoError(t, err)
	defer stop()

	select {
	case s := <-sessions:
		assert.Equal(t, session.ID, s.ID)
	case <-time.After(time.Second):
		t.Fatal("no initial session snapshot")
	}
	select {
	case m := <-messages:
		assert.Empty(t, m)
	case <-time.After(time.Second):
		t.Fatal("no initial messages snapshot")
	}
}

func TestAttachments(t *testing.T) {
	c, _ := newTestCore(t)
	files := &fakeFiles{data: map[string][]byte{}, metas: map[string]entity.FileMetadata{}}
	c.SetFileStorage(files, "secret", time.Minute)
	ctx := context.Background()

	session, err := c.CreateInquiry(ctx, customer, "", "p1", "", "")
	require.NoError(t, err)

	_, err = c.UploadAttachment(ctx, dealer2, session.ID, "x.jpg", "image/jpeg", 3, strings.NewReader("abc"))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = c.UploadAttachment(ctx, customer, session.ID, "big.jpg", "image/jpeg", entity.MaxFileSize+1, strings.NewReader(""))
	assert.ErrorIs(t, err, entity.ErrFileTooLarge)

	att, err := c.UploadAttachment(ctx, customer, session.ID, "x.jpg", "image/jpeg", 3, strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/files/filex.jpg", att.URL)
	assert.Equal(t, int64(3), att.Size)
	require.NotEmpty(t, att.SignedURL)

	_, err = c.SendChatMessage(ctx, customer, session.ID, "photo", []string{att.URL})
	require.NoError(t, err)

	name, mime, rc, err := c.DownloadAttachment(ctx, customer, att.FileID, "", "")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "x.jpg", name)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, "abc", string(body))

	_, _, _, err = c.DownloadAttachment(ctx, customer2, att.FileID, "", "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, _, err = c.DownloadAttachment(ctx, nil, att.FileID, "", "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	u, err := url.Parse(att.SignedURL)
	require.NoError(t, err)
	_, _, rc, err = c.DownloadAttachment(ctx, nil, att.FileID, u.Query().Get("expires"), u.Query().Get("sig"))
	require.NoError(t, err)
	_ = rc.Close()
}

func TestUserDirectory(t *testing.T) {
	c, _ := newTestCore(t)

	_, err := c.SaveUser(customer, entity.User{Name: "Eve"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = c.SaveUser(admin, entity.User{Name: "Eve", Role: "janitor"})
	assert.ErrorIs(t, err, ErrBadRequest)

	created, err := c.SaveUser(admin, entity.User{Name: "Eve", Email: "eve@example.com", Role: entity.DealerRole})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UUID)
	assert.True(t, created.IsDealer())

	found, err := c.GetUser(admin, "", "eve@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.UUID, found.UUID)

	self, err := c.GetUser(customer, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "Ann", self.Name)

	_, err = c.GetUser(customer, created.UUID, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = c.GetUser(admin, "", "")
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = c.GetUser(admin, "ghost", "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.BlockUser(admin, "c1", true))
	_, err = c.AuthenticateByToken("k-c1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	require.NoError(t, c.BlockUser(admin, "c1", false))
	_, err = c.AuthenticateByToken("k-c1")
	assert.NoError(t, err)

	assert.ErrorIs(t, c.BlockUser(dealer, "c1", true), ErrForbidden)
	assert.ErrorIs(t, c.BlockUser(admin, "ghost", true), ErrNotFound)
}

func TestWatchChat_RevokedAfterOtherDealerPicksUp(t *testing.T) {
	c, _ := newTestCore(t)
	ctx := context.Background()

	session, err := c.CreateInquiry(ctx, customer, "", "p2", "", "")
	require.NoError(t, err)

	type seen struct {
		mu       sync.Mutex
		sessions []*entity.ChatSession
		messages [][]entity.ChatMessage
	}
	watcher := &seen{}
	revoked := make(chan struct{})
	stop, err := c.WatchChat(ctx, dealer2, session.ID,
		func(s *entity.ChatSession) {
			watcher.mu.Lock()
			defer watcher.mu.Unlock()
			watcher.sessions = append(watcher.sessions, s)
		},
		func(m []entity.ChatMessage) {
			watcher.mu.Lock()
			defer watcher.mu.Unlock()
			watcher.messages = append(watcher.messages, m)
		},
		func() { close(revoked) },
	)
	require.NoError(t, err, "any dealer may watch a waiting inquiry")
	defer stop()

	assert.Eventually(t, func() bool {
		watcher.mu.Lock()
		defer watcher.mu.Unlock()
		return len(watcher.sessions) == 1 && len(watcher.messages) == 1
	}, time.Second, 5*time.Millisecond)

	ownerMessages := make(chan []entity.ChatMessage, 16)
	stopOwner, err := c.WatchChat(ctx, customer, session.ID,
		func(*entity.ChatSession) {},
		func(m []entity.ChatMessage) { ownerMessages <- m },
		nil,
	)
	require.NoError(t, err)
	defer stopOwner()

	require.NoError(t, c.AssignChatDealer(ctx, dealer, session.ID, ""))
	_, err = c.SendChatMessage(ctx, customer, session.ID, "private to d1", nil)
	require.NoError(t, err)

	select {
	case <-revoked:
	case <-time.After(time.Second):
		t.Fatal("watch not revoked after another dealer picked the session up")
	}

	assert.Eventually(t, func() bool {
		for {
			select {
			case m := <-ownerMessages:
				if len(m) == 1 && m[0].Content == "private to d1" {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond, "the customer keeps receiving updates")

	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	assert.Len(t, watcher.sessions, 1)
	for _, s := range watcher.sessions {
		assert.Empty(t, s.DealerID)
	}
	for _, batch := range watcher.messages {
		for _, m := range batch {
			assert.NotEqual(t, "private to d1", m.Content)
		}
	}

	_, err = c.GetChat(ctx, dealer2, session.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
