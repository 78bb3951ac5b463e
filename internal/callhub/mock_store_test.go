package callhub_test

import (
	"context"
	"time"

	"randomcall/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of storage.SessionStore used for failure injection.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertWaiting(ctx context.Context, entry *models.WaitingEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStore) DeleteWaiting(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) ClaimWaiting(ctx context.Context, entry *models.WaitingEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) FindWaitingCandidates(ctx context.Context, filter models.CandidateFilter, limit int) ([]models.WaitingEntry, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WaitingEntry), args.Error(1)
}

func (m *MockStore) SweepStaleWaiting(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) InsertActiveCall(ctx context.Context, session *models.ActiveCallSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockStore) UpdateActiveCall(ctx context.Context, callID string, patch models.CallPatch) error {
	args := m.Called(ctx, callID, patch)
	return args.Error(0)
}

func (m *MockStore) DeleteActiveCall(ctx context.Context, callID string) error {
	args := m.Called(ctx, callID)
	return args.Error(0)
}

func (m *MockStore) FindActiveCall(ctx context.Context, callID string) (*models.ActiveCallSession, error) {
	args := m.Called(ctx, callID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveCallSession), args.Error(1)
}

func (m *MockStore) FindActiveCallForUser(ctx context.Context, userID string) (*models.ActiveCallSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveCallSession), args.Error(1)
}

func (m *MockStore) ListActiveCalls(ctx context.Context) ([]models.ActiveCallSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActiveCallSession), args.Error(1)
}

// MockBus is a testify mock of storage.EventBus.
type MockBus struct {
	mock.Mock
}

func (m *MockBus) PublishEvent(ctx context.Context, ev models.CallEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockBus) SubscribeEvents(ctx context.Context) *redis.PubSub {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

// MockHandler records messages dispatched by the hub.
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) HandleClientMessage(ctx context.Context, msg models.ClientMessage) {
	m.Called(ctx, msg)
}
