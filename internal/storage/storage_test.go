package storage_test

import (
	"context"
	"testing"
	"time"

	"randomcall/backend/internal/models"
	"randomcall/backend/internal/storage"

	"github.com/stretchr/testify/assert"
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
	// Кожне нове з'єднання з ":memory:" відкриває окрему порожню базу.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Migrate(gormDB))
	return storage.NewStorageService(gormDB, nil)
}

func waiting(userID string, gender models.Gender, age time.Duration) *models.WaitingEntry {
	now := time.Now().UTC()
	return &models.WaitingEntry{
		UserID:    userID,
		Username:  "name_" + userID,
		Gender:    gender,
		CallID:    models.NewCallID(now),
		CreatedAt: now.Add(-age),
	}
}

func TestInsertWaiting_UpsertsPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := waiting("u1", models.GenderMale, time.Minute)
	require.NoError(t, s.InsertWaiting(ctx, first))

	second := waiting("u1", models.GenderMale, 0)
	second.CallID = "call_second"
	require.NoError(t, s.InsertWaiting(ctx, second))

	entries, err := s.FindWaitingCandidates(ctx, models.CandidateFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1, "one entry per user")
	assert.Equal(t, "call_second", entries[0].CallID)
	assert.Equal(t, models.WaitingStatusWaiting, entries[0].Status)
}

func TestFindWaitingCandidates_FilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertWaiting(ctx, waiting("young_f", models.GenderFemale, time.Second)))
	require.NoError(t, s.InsertWaiting(ctx, waiting("old_f", models.GenderFemale, 3*time.Minute)))
	require.NoError(t, s.InsertWaiting(ctx, waiting("m", models.GenderMale, 2*time.Minute)))
	require.NoError(t, s.InsertWaiting(ctx, waiting("none", models.GenderUnset, 4*time.Minute)))

	t.Run("gender filter is oldest first", func(t *testing.T) {
		got, err := s.FindWaitingCandidates(ctx, models.CandidateFilter{Gender: models.GenderFemale}, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "old_f", got[0].UserID)
		assert.Equal(t, "young_f", got[1].UserID)
	})

	t.Run("exclude self and limit", func(t *testing.T) {
		got, err := s.FindWaitingCandidates(ctx, models.CandidateFilter{ExcludeUserID: "none"}, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "old_f", got[0].UserID)
	})

	t.Run("newer than", func(t *testing.T) {
		got, err := s.FindWaitingCandidates(ctx, models.CandidateFilter{NewerThan: time.Now().Add(-150 * time.Second)}, 0)
		require.NoError(t, err)
		ids := []string{}
		for _, e := range got {
			ids = append(ids, e.UserID)
		}
		assert.Equal(t, []string{"m", "young_f"}, ids)
	})
}

func TestClaimWaiting_OnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	entry := waiting("target", models.GenderUnset, 0)
	require.NoError(t, s.InsertWaiting(ctx, entry))

	claimed, err := s.ClaimWaiting(ctx, entry)
	require.NoError(t, err)
	assert.True(t, claimed, "first claim wins")

	claimed, err = s.ClaimWaiting(ctx, entry)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim finds nothing")
}

func TestClaimWaiting_StaleCallID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	entry := waiting("target", models.GenderUnset, 0)
	require.NoError(t, s.InsertWaiting(ctx, entry))

	stale := *entry
	stale.CallID = "call_from_an_older_search"
	claimed, err := s.ClaimWaiting(ctx, &stale)
	require.NoError(t, err)
	assert.False(t, claimed, "claim must match the call id that was read")
}

func TestDeleteWaiting_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertWaiting(ctx, waiting("u1", models.GenderUnset, 0)))

	assert.NoError(t, s.DeleteWaiting(ctx, "u1"))
	assert.NoError(t, s.DeleteWaiting(ctx, "u1"))
	assert.NoError(t, s.DeleteWaiting(ctx, "never_existed"))

	got, err := s.FindWaitingCandidates(ctx, models.CandidateFilter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSweepStaleWaiting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertWaiting(ctx, waiting("stale", models.GenderUnset, 6*time.Minute)))
	require.NoError(t, s.InsertWaiting(ctx, waiting("fresh", models.GenderUnset, time.Minute)))

	n, err := s.SweepStaleWaiting(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.FindWaitingCandidates(ctx, models.CandidateFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].UserID)
}

// TestActiveCall_RoundTrip verifies insert followed by find returns the same participants.
func TestActiveCall_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := &models.ActiveCallSession{
		CallID: "call_rt", User1ID: "a", User1Name: "Alice", User2ID: "b", User2Name: "Bob",
	}
	require.NoError(t, s.InsertActiveCall(ctx, session))

	got, err := s.FindActiveCall(ctx, "call_rt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.CallStatusActive, got.Status)
	assert.Equal(t, "a", got.User1ID)
	assert.Equal(t, "b", got.User2ID)
	assert.Nil(t, got.EndedAt)

	forUser, err := s.FindActiveCallForUser(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, forUser)
	assert.Equal(t, "call_rt", forUser.CallID)
}

func TestInsertActiveCall_RejectsIncomplete(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertActiveCall(context.Background(), &models.ActiveCallSession{CallID: "c", User1ID: "a"})
	assert.ErrorIs(t, err, models.ErrIncompleteSession)

	got, err := s.FindActiveCall(context.Background(), "c")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertActiveCall_DuplicateIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertActiveCall(ctx, &models.ActiveCallSession{CallID: "c", User1ID: "a", User2ID: "b"}))

	err := s.InsertActiveCall(ctx, &models.ActiveCallSession{CallID: "c", User1ID: "x", User2ID: "y"})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestUpdateAndDeleteActiveCall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertActiveCall(ctx, &models.ActiveCallSession{CallID: "c", User1ID: "a", User2ID: "b"}))

	endedAt := time.Now().UTC()
	require.NoError(t, s.UpdateActiveCall(ctx, "c", models.EndedPatch(endedAt)))

	got, err := s.FindActiveCall(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.CallStatusEnded, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.WithinDuration(t, endedAt, *got.EndedAt, time.Second)

	forUser, err := s.FindActiveCallForUser(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, forUser, "ended calls are not active for the user")

	assert.NoError(t, s.UpdateActiveCall(ctx, "c", models.CallPatch{}), "empty patch is a no-op")
	assert.ErrorIs(t, s.UpdateActiveCall(ctx, "missing", models.EndedPatch(endedAt)), storage.ErrCallNotFound)

	require.NoError(t, s.DeleteActiveCall(ctx, "c"))
	require.NoError(t, s.DeleteActiveCall(ctx, "c"))
	got, err = s.FindActiveCall(ctx, "c")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListActiveCalls(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.InsertActiveCall(ctx, &models.ActiveCallSession{CallID: "newer", User1ID: "a", User2ID: "b", CreatedAt: now}))
	require.NoError(t, s.InsertActiveCall(ctx, &models.ActiveCallSession{CallID: "older", User1ID: "c", User2ID: "d", CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, s.InsertActiveCall(ctx, &models.ActiveCallSession{CallID: "ended", User1ID: "e", User2ID: "f"}))
	require.NoError(t, s.UpdateActiveCall(ctx, "ended", models.EndedPatch(now)))

	calls, err := s.ListActiveCalls(ctx)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "older", calls[0].CallID)
	assert.Equal(t, "newer", calls[1].CallID)
}

func TestEvents_WithoutRedis(t *testing.T) {
	s := newTestStore(t)

	err := s.PublishEvent(context.Background(), models.CallEvent{Type: models.EventMatchFound})
	assert.ErrorIs(t, err, storage.ErrNoEventBus)
	assert.Nil(t, s.SubscribeEvents(context.Background()))
}

func TestDecodeEvent(t *testing.T) {
	ev, err := storage.DecodeEvent(`{"type":"call_ended","call_id":"c1","to_user_ids":["a","b"],"reason":"time_limit"}`)
	require.NoError(t, err)
	assert.Equal(t, models.EventCallEnded, ev.Type)
	assert.Equal(t, "c1", ev.CallID)
	assert.Equal(t, []string{"a", "b"}, ev.ToUserIDs)
	assert.Equal(t, models.EndReasonTimeLimit, ev.Reason)

	_, err = storage.DecodeEvent("not json")
	assert.Error(t, err)
}
