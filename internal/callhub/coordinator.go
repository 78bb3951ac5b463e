package callhub

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"randomcall/backend/internal/config"
	"randomcall/backend/internal/models"
	"randomcall/backend/internal/observability"
	"randomcall/backend/internal/storage"
)

// Notifier pushes events to connected clients. ManagerService implements it.
type Notifier interface {
	Notify(ctx context.Context, ev models.CallEvent) error
}

// Coordinator вирішує, з ким з'єднати користувача, і веде життєвий цикл
// пошуку та дзвінка. Стан у пам'яті не переживає перезапуск процесу;
// осиротілі записи прибирає sweeper.
type Coordinator struct {
	store   storage.SessionStore
	cfg     config.Matchmaking
	metrics *observability.Metrics

	transport CallTransport
	notifier  Notifier

	mu         sync.Mutex
	requesting map[string]bool         // re-entrancy flag per user
	searches   map[string]*Search      // live searches by user id
	finished   map[string]*Search      // last finished search per user
	calls      map[string]*trackedCall // calls tracked on this instance
	ended      map[string]endedCall    // exactly-once guard for EndCall
	generation uint64
}

// NewCoordinator creates a coordinator. metrics may be nil.
func NewCoordinator(store storage.SessionStore, cfg config.Matchmaking, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		store:      store,
		cfg:        cfg.WithDefaults(),
		metrics:    metrics,
		requesting: make(map[string]bool),
		searches:   make(map[string]*Search),
		finished:   make(map[string]*Search),
		calls:      make(map[string]*trackedCall),
		ended:      make(map[string]endedCall),
	}
}

func (c *Coordinator) SetTransport(t CallTransport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = t
}

func (c *Coordinator) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// Shutdown cancels live searches and stops the call timers. Calls stay in the
// store; the participants' clients or the sweeper reclaim them.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	searches := make([]*Search, 0, len(c.searches))
	for _, s := range c.searches {
		searches = append(searches, s)
	}
	for _, tc := range c.calls {
		tc.timer.Stop()
	}
	c.mu.Unlock()

	for _, s := range searches {
		s.Cancel()
	}
}

// RequestMatch either joins the oldest suitable waiting user or puts the
// requester into the waiting pool. On the wait path the returned Search
// polls for a partner in the background; on the match path it is nil.
func (c *Coordinator) RequestMatch(ctx context.Context, user models.MatchUser) (*models.MatchResult, *Search, error) {
	if user.ID == "" {
		return nil, nil, ErrInvalidUser
	}
	if !c.beginRequest(user.ID) {
		c.metrics.MatchRequest("rejected")
		return nil, nil, ErrSearchInProgress
	}
	defer c.endRequest(user.ID)

	result, search, err := c.requestMatch(ctx, user)
	switch {
	case err != nil:
		c.metrics.MatchRequest(ErrorCode(err))
	case result.Matched:
		c.metrics.MatchRequest("matched")
	default:
		c.metrics.MatchRequest("waiting")
	}
	return result, search, err
}

func (c *Coordinator) requestMatch(ctx context.Context, user models.MatchUser) (*models.MatchResult, *Search, error) {
	// 1. Користувач не може шукати, поки він у дзвінку
	existing, err := c.store.FindActiveCallForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, storeErr("check active call", err)
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrAlreadyInCall, existing.CallID)
	}

	// 2. Прибирання застарілих записів (best-effort)
	if n, err := c.store.SweepStaleWaiting(ctx, c.cfg.StaleWaitingAge); err != nil {
		log.Printf("WARNING: Failed to sweep stale waiting entries: %v", err)
	} else {
		c.metrics.Swept(n)
	}

	// 3. Пошук кандидата за пріоритетами
	candidate, tier, err := c.findCandidate(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	if candidate != nil {
		result, err := c.joinWaiting(ctx, user, candidate, tier)
		return result, nil, err
	}

	return c.startWaiting(ctx, user)
}

type matchTier struct {
	name   string
	gender models.Gender
}

// candidateTiers returns the search passes in priority order:
// opposite gender, same gender, anyone.
func candidateTiers(g models.Gender) []matchTier {
	var tiers []matchTier
	if opposite, ok := g.Opposite(); ok {
		tiers = append(tiers, matchTier{name: "opposite_gender", gender: opposite})
	}
	if g.IsSet() {
		tiers = append(tiers, matchTier{name: "same_gender", gender: g})
	}
	return append(tiers, matchTier{name: "any", gender: models.GenderUnset})
}

func (c *Coordinator) findCandidate(ctx context.Context, user models.MatchUser) (*models.WaitingEntry, string, error) {
	freshSince := time.Now().UTC().Add(-c.cfg.StaleWaitingAge)
	for _, tier := range candidateTiers(user.Gender) {
		filter := models.CandidateFilter{
			Gender:        tier.gender,
			ExcludeUserID: user.ID,
			NewerThan:     freshSince,
		}
		candidates, err := c.store.FindWaitingCandidates(ctx, filter, 1)
		if err != nil {
			return nil, "", storeErr("find candidates", err)
		}
		if len(candidates) > 0 {
			return &candidates[0], tier.name, nil
		}
	}
	return nil, "", nil
}

// joinWaiting claims the candidate and creates the shared call session.
func (c *Coordinator) joinWaiting(ctx context.Context, user models.MatchUser, candidate *models.WaitingEntry, tier string) (*models.MatchResult, error) {
	claimed, err := c.store.ClaimWaiting(ctx, candidate)
	if err != nil {
		log.Printf("ERROR: Failed to claim waiting user %s: %v", candidate.UserID, err)
		return nil, fmt.Errorf("%w: %w", ErrMatchClaimFailed, err)
	}
	if !claimed {
		log.Printf("WARNING: Waiting user %s was claimed by another search", candidate.UserID)
		return nil, ErrMatchClaimFailed
	}

	session := &models.ActiveCallSession{
		CallID:    candidate.CallID,
		User1ID:   candidate.UserID,
		User1Name: candidate.Username,
		User2ID:   user.ID,
		User2Name: user.Username,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.InsertActiveCall(ctx, session); err != nil {
		log.Printf("ERROR: Failed to create call %s: %v", session.CallID, err)
		c.restoreWaiting(ctx, candidate)
		return nil, fmt.Errorf("%w: %w", ErrSessionCreateFailed, err)
	}

	c.trackCall(session)
	c.notify(ctx, models.CallEvent{
		Type:      models.EventMatchFound,
		CallID:    session.CallID,
		ToUserIDs: []string{candidate.UserID},
		FromUser:  user.ID,
		PeerName:  user.Username,
	})
	c.metrics.Matched(tier)
	log.Printf("INFO: Match found (%s): %s and %s in call %s", tier, candidate.UserID, user.ID, session.CallID)

	return &models.MatchResult{
		Matched:         true,
		CallID:          session.CallID,
		MatchedUserID:   candidate.UserID,
		MatchedUserName: candidate.Username,
		IsJoining:       true,
	}, nil
}

// restoreWaiting puts a claimed candidate back into the pool at its original position.
func (c *Coordinator) restoreWaiting(ctx context.Context, candidate *models.WaitingEntry) {
	ctx, cancel := c.cleanupContext(ctx)
	defer cancel()

	restored := *candidate
	if err := c.store.InsertWaiting(ctx, &restored); err != nil {
		log.Printf("ERROR: Failed to restore waiting user %s after failed call creation: %v", candidate.UserID, err)
	}
}

func (c *Coordinator) startWaiting(ctx context.Context, user models.MatchUser) (*models.MatchResult, *Search, error) {
	now := time.Now().UTC()
	entry := &models.WaitingEntry{
		UserID:    user.ID,
		Username:  user.Username,
		Gender:    user.Gender,
		CallID:    models.NewCallID(now),
		CreatedAt: now,
	}
	if err := c.store.InsertWaiting(ctx, entry); err != nil {
		return nil, nil, storeErr("insert waiting entry", err)
	}
	log.Printf("INFO: User %s is waiting for a partner in call %s", user.ID, entry.CallID)

	search := c.PollForMatch(entry.CallID, user)
	return &models.MatchResult{Matched: false, CallID: entry.CallID, IsJoining: false}, search, nil
}

func (c *Coordinator) beginRequest(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.requesting[userID] || c.searches[userID] != nil {
		return false
	}
	c.requesting[userID] = true
	delete(c.finished, userID)
	return true
}

func (c *Coordinator) endRequest(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.requesting, userID)
}

func (c *Coordinator) notify(ctx context.Context, ev models.CallEvent) {
	c.mu.Lock()
	n := c.notifier
	c.mu.Unlock()
	if n == nil || len(ev.ToUserIDs) == 0 {
		return
	}
	if err := n.Notify(ctx, ev); err != nil {
		log.Printf("WARNING: Failed to notify %v about %s: %v", ev.ToUserIDs, ev.Type, err)
	}
}

// cleanupContext detaches cleanup work from the caller's cancellation
// but bounds it with CleanupTimeout.
func (c *Coordinator) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CleanupTimeout)
}
