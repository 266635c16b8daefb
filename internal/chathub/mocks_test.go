package chathub_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sachirademein17/mindcareapp-sub000/internal/chathub"
	"github.com/sachirademein17/mindcareapp-sub000/internal/models"
)

// MockStorage implements storage.Storage via testify/mock.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SendMessage(ctx context.Context, senderID, receiverID uint, body string) (*models.ChatMessage, error) {
	args := m.Called(ctx, senderID, receiverID, body)
	if msg := args.Get(0); msg != nil {
		return msg.(*models.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) History(ctx context.Context, callerID, peerID uint) ([]models.ChatMessage, error) {
	args := m.Called(ctx, callerID, peerID)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]models.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) MarkRead(ctx context.Context, callerID, peerID uint) (int64, error) {
	args := m.Called(ctx, callerID, peerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) Summaries(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if sums := args.Get(0); sums != nil {
		return sums.([]models.ConversationSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockStorage) FindUser(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) SetOnline(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockStorage) SetOffline(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockStorage) IsOnline(ctx context.Context, userID uint) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) OnlineSet(ctx context.Context, userIDs []uint) (map[uint]bool, error) {
	args := m.Called(ctx, userIDs)
	if set := args.Get(0); set != nil {
		return set.(map[uint]bool), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeClient is a hub-side connection double that records what it is sent.
type fakeClient struct {
	userID    uint
	Recv      chan models.WireEvent
	closeOnce sync.Once
	closed    chan struct{}
}

var _ chathub.Client = (*fakeClient)(nil)

func newFakeClient(userID uint) *fakeClient {
	return &fakeClient{
		userID: userID,
		Recv:   make(chan models.WireEvent, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeClient) UserID() uint { return c.userID }

func (c *fakeClient) Send() chan<- models.WireEvent { return c.Recv }

func (c *fakeClient) Run() {}

func (c *fakeClient) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *fakeClient) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
