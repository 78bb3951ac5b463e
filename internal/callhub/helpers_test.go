package callhub_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"randomcall/backend/internal/callhub"
	"randomcall/backend/internal/config"
	"randomcall/backend/internal/models"
	"randomcall/backend/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *storage.Service {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Migrate(gormDB))
	return storage.NewStorageService(gormDB, nil)
}

func fastConfig() config.Matchmaking {
	return config.Matchmaking{
		PollInterval:      10 * time.Millisecond,
		WaitTimeout:       2 * time.Second,
		StaleWaitingAge:   5 * time.Minute,
		SweepInterval:     time.Minute,
		CallDurationLimit: time.Minute,
		CleanupTimeout:    time.Second,
	}
}

// newCoordinator wires a coordinator with a recording notifier. Shutdown runs
// before the store is closed.
func newCoordinator(t *testing.T, store storage.SessionStore, cfg config.Matchmaking) (*callhub.Coordinator, *recordingNotifier) {
	t.Helper()
	c := callhub.NewCoordinator(store, cfg, nil)
	n := &recordingNotifier{}
	c.SetNotifier(n)
	t.Cleanup(c.Shutdown)
	return c, n
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.CallEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev models.CallEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) ofType(eventType string) []models.CallEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.CallEvent
	for _, ev := range n.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func user(id string, g models.Gender) models.MatchUser {
	return models.MatchUser{ID: id, Username: "name_" + id, Gender: g}
}

func waitingEntry(userID string, g models.Gender, age time.Duration) *models.WaitingEntry {
	now := time.Now().UTC()
	return &models.WaitingEntry{
		UserID:    userID,
		Username:  "name_" + userID,
		Gender:    g,
		CallID:    models.NewCallID(now) + "_" + userID,
		CreatedAt: now.Add(-age),
	}
}

func waitFor(t *testing.T, s *callhub.Search) callhub.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	out, err := s.Wait(ctx)
	require.NoError(t, err, "search did not finish in time")
	return out
}
