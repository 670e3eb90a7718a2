package chathub_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"quotedesk/backend/internal/models"
)

// MockStorage is a testify double for the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) EnsureRoom(room *models.Room) (*models.Room, error) {
	args := m.Called(room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) GetRoom(roomID string) (*models.Room, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) RoomsForRFQ(rfqID string) ([]models.Room, error) {
	args := m.Called(rfqID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *MockStorage) ArchiveRoom(roomID string) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStorage) GetRFQ(rfqID string) (*models.RFQ, error) {
	args := m.Called(rfqID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RFQ), args.Error(1)
}

func (m *MockStorage) AppendMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) GetMessage(id uint) (*models.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStorage) History(roomID string, beforeID uint, limit int) ([]models.Message, bool, error) {
	args := m.Called(roomID, beforeID, limit)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.Message), args.Bool(1), args.Error(2)
}

func (m *MockStorage) MarkRead(messageID uint, readerID string) (*models.Message, bool, error) {
	args := m.Called(messageID, readerID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Message), args.Bool(1), args.Error(2)
}

func (m *MockStorage) UnreadCount(roomID, identity string) (int64, error) {
	args := m.Called(roomID, identity)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) IncrUnread(roomID, identity string) error {
	args := m.Called(roomID, identity)
	return args.Error(0)
}

func (m *MockStorage) DecrUnread(roomID, identity string) error {
	args := m.Called(roomID, identity)
	return args.Error(0)
}

func (m *MockStorage) PublishBroadcast(b models.RoomBroadcast) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockStorage) SubscribeRooms() *redis.PubSub {
	args := m.Called()
	return args.Get(0).(*redis.PubSub)
}

// MockClient is a test double for the chathub.Client interface.
type MockClient struct {
	sessionID string
	identity  string
	authed    atomic.Bool
	closed    atomic.Bool
	send      chan models.ServerEvent
	closeOnce sync.Once
}

// newMockClient builds a pre-authenticated client. Pass identity "" for a
// connection that still has to authenticate.
func newMockClient(sessionID, identity string) *MockClient {
	c := &MockClient{
		sessionID: sessionID,
		identity:  identity,
		send:      make(chan models.ServerEvent, 32),
	}
	if identity != "" {
		c.authed.Store(true)
	}
	return c
}

func (c *MockClient) GetSessionID() string { return c.sessionID }
func (c *MockClient) GetIdentity() string  { return c.identity }
func (c *MockClient) Authenticated() bool  { return c.authed.Load() }
func (c *MockClient) Closed() bool         { return c.closed.Load() }

func (c *MockClient) SetIdentity(identity string) {
	c.identity = identity
	c.authed.Store(true)
}

func (c *MockClient) GetSendChannel() chan<- models.ServerEvent { return c.send }

func (c *MockClient) Run() {}

func (c *MockClient) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.send)
	})
}

// waitEvent blocks until the client receives an event of the given type,
// skipping others, or fails the test after a short timeout.
func waitEvent(t *testing.T, c *MockClient, eventType string) models.ServerEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				t.Fatalf("send channel closed while waiting for %q", eventType)
			}
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", eventType)
		}
	}
}

// expectNoEvent asserts the client receives nothing within the window.
func expectNoEvent(t *testing.T, c *MockClient) {
	t.Helper()
	select {
	case ev, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected event %q", ev.Type)
		}
	case <-time.After(150 * time.Millisecond):
	}
}
