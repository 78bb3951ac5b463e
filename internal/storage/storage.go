package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"randomcall/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	// ErrUnavailable wraps every failure of the underlying database.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrCallNotFound is returned by updates that matched no call session.
	ErrCallNotFound = errors.New("call session not found")
)

// SessionStore owns the waiting pool and the active call sessions.
type SessionStore interface {
	InsertWaiting(ctx context.Context, entry *models.WaitingEntry) error
	DeleteWaiting(ctx context.Context, userID string) error
	ClaimWaiting(ctx context.Context, entry *models.WaitingEntry) (bool, error)
	FindWaitingCandidates(ctx context.Context, filter models.CandidateFilter, limit int) ([]models.WaitingEntry, error)
	SweepStaleWaiting(ctx context.Context, maxAge time.Duration) (int64, error)

	InsertActiveCall(ctx context.Context, session *models.ActiveCallSession) error
	UpdateActiveCall(ctx context.Context, callID string, patch models.CallPatch) error
	DeleteActiveCall(ctx context.Context, callID string) error
	FindActiveCall(ctx context.Context, callID string) (*models.ActiveCallSession, error)
	FindActiveCallForUser(ctx context.Context, userID string) (*models.ActiveCallSession, error)
	ListActiveCalls(ctx context.Context) ([]models.ActiveCallSession, error)
}

// EventBus fans call events out to every server instance.
type EventBus interface {
	PublishEvent(ctx context.Context, ev models.CallEvent) error
	SubscribeEvents(ctx context.Context) *redis.PubSub
}

// Service implements SessionStore on gorm and EventBus on Redis.
// Redis may be nil (admin CLI, single-node dev, tests).
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Connect opens the PostgreSQL database.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
