package callhub_test

import (
	"sync"

	"randomcall/backend/internal/models"
)

// MockClient is a test double for the callhub.Client interface.
type MockClient struct {
	userID      string
	RecvChannel chan models.CallEvent

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID string) *MockClient {
	return newMockClientWithBuffer(userID, 10)
}

func newMockClientWithBuffer(userID string, size int) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.CallEvent, size),
	}
}

func (c *MockClient) GetUserID() string {
	return c.userID
}

func (c *MockClient) GetSendChannel() chan<- models.CallEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
