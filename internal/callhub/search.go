package callhub

import (
	"context"
	"log"
	"sync"
	"time"

	"randomcall/backend/internal/models"
)

type SearchState string

const (
	SearchIdle      SearchState = "idle"
	SearchWaiting   SearchState = "waiting"
	SearchMatched   SearchState = "matched"
	SearchTimedOut  SearchState = "timed_out"
	SearchCancelled SearchState = "cancelled"
)

// Outcome is the state of a search. A timeout is a regular terminal state,
// Err only turns it into ErrMatchTimeout for callers that want an error.
type Outcome struct {
	State           SearchState `json:"state"`
	CallID          string      `json:"call_id,omitempty"`
	MatchedUserID   string      `json:"matched_user_id,omitempty"`
	MatchedUserName string      `json:"matched_user_name,omitempty"`
	IsJoining       bool        `json:"is_joining"`
}

func (o Outcome) Matched() bool { return o.State == SearchMatched }

func (o Outcome) Err() error {
	if o.State == SearchTimedOut {
		return ErrMatchTimeout
	}
	return nil
}

type stopCause int

const (
	stopNone stopCause = iota
	stopCancel
	stopSuperseded
)

// Search is one user's wait for a partner. A single goroutine owns both the
// poll ticker and the wait timeout, so every exit path releases both.
type Search struct {
	c          *Coordinator
	user       models.MatchUser
	callID     string
	generation uint64
	startedAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	cause   stopCause
	outcome Outcome
}

// PollForMatch starts polling the store for a session created on callID.
// A live search for the same call is returned as is; a live search for a
// different call is superseded without touching its waiting entry.
func (c *Coordinator) PollForMatch(callID string, user models.MatchUser) *Search {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WaitTimeout)

	c.mu.Lock()
	if old := c.searches[user.ID]; old != nil {
		if old.callID == callID {
			c.mu.Unlock()
			cancel()
			return old
		}
		defer old.stop(stopSuperseded)
	}
	c.generation++
	s := &Search{
		c:          c,
		user:       user,
		callID:     callID,
		generation: c.generation,
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		outcome:    Outcome{State: SearchWaiting, CallID: callID},
	}
	c.searches[user.ID] = s
	delete(c.finished, user.ID)
	c.mu.Unlock()

	c.metrics.SearchStarted()
	go s.run()
	return s
}

func (s *Search) CallID() string { return s.callID }

// Done is closed once the search reached a terminal state.
func (s *Search) Done() <-chan struct{} { return s.done }

// Outcome returns the current state of the search.
func (s *Search) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Wait blocks until the search finishes or ctx is done.
func (s *Search) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.Outcome(), nil
	case <-ctx.Done():
		return s.Outcome(), ctx.Err()
	}
}

// Cancel stops the search and removes its waiting entry. It blocks until the
// cleanup is done and is a no-op on a finished search.
func (s *Search) Cancel() {
	s.stop(stopCancel)
}

func (s *Search) stop(cause stopCause) {
	s.mu.Lock()
	if s.cause == stopNone {
		s.cause = cause
	}
	s.mu.Unlock()
	s.cancel()
	<-s.done
}

func (s *Search) run() {
	defer close(s.done)
	defer s.cancel()

	ticker := time.NewTicker(s.c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.finishWithoutMatch()
			return
		case <-ticker.C:
			session, err := s.c.store.FindActiveCall(s.ctx, s.callID)
			if s.ctx.Err() != nil {
				// Пошук уже скасовано або час вийшов: відповідь застаріла.
				s.finishWithoutMatch()
				return
			}
			if err != nil {
				log.Printf("WARNING: Poll for call %s failed: %v", s.callID, err)
				continue
			}
			if session == nil || session.Status != models.CallStatusActive {
				continue
			}
			s.finishMatched(session)
			return
		}
	}
}

func (s *Search) finishMatched(session *models.ActiveCallSession) {
	partnerID, partnerName, ok := session.Partner(s.user.ID)
	if !ok {
		partnerID, partnerName = session.User2ID, session.User2Name
	}
	s.c.trackCall(session)
	log.Printf("INFO: User %s matched with %s in call %s", s.user.ID, partnerID, s.callID)
	s.complete(Outcome{
		State:           SearchMatched,
		CallID:          s.callID,
		MatchedUserID:   partnerID,
		MatchedUserName: partnerName,
		IsJoining:       false,
	})
}

func (s *Search) finishWithoutMatch() {
	s.mu.Lock()
	cause := s.cause
	s.mu.Unlock()

	if cause == stopSuperseded {
		s.complete(Outcome{State: SearchCancelled, CallID: s.callID})
		return
	}

	ctx, cancel := s.c.cleanupContext(context.Background())
	defer cancel()

	// Видаляємо лише власний запис (з тим самим call_id).
	own := &models.WaitingEntry{UserID: s.user.ID, CallID: s.callID}
	claimed, err := s.c.store.ClaimWaiting(ctx, own)
	if err != nil {
		log.Printf("ERROR: Failed to remove waiting entry of %s: %v", s.user.ID, err)
	}
	if err == nil && !claimed {
		// Запис уже забрав інший користувач: сесія могла з'явитися між опитуваннями.
		session, ferr := s.c.store.FindActiveCall(ctx, s.callID)
		if ferr == nil && session != nil && session.Status == models.CallStatusActive {
			if cause != stopCancel {
				s.finishMatched(session)
				return
			}
			if _, err := s.c.EndCall(ctx, s.callID, s.user.ID, models.EndReasonUserEnded); err != nil {
				log.Printf("WARNING: Cleanup of call %s after cancel: %v", s.callID, err)
			}
		}
	}

	if cause == stopCancel {
		log.Printf("INFO: Search of %s cancelled", s.user.ID)
		s.complete(Outcome{State: SearchCancelled, CallID: s.callID})
		return
	}

	log.Printf("INFO: Search of %s timed out", s.user.ID)
	s.c.notify(ctx, models.CallEvent{
		Type:      models.EventTimedOut,
		CallID:    s.callID,
		ToUserIDs: []string{s.user.ID},
	})
	s.complete(Outcome{State: SearchTimedOut, CallID: s.callID})
}

func (s *Search) complete(o Outcome) {
	s.mu.Lock()
	s.outcome = o
	s.mu.Unlock()

	c := s.c
	c.mu.Lock()
	if cur := c.searches[s.user.ID]; cur != nil && cur.generation == s.generation {
		delete(c.searches, s.user.ID)
		c.finished[s.user.ID] = s
	}
	c.mu.Unlock()
	c.metrics.SearchFinished(time.Since(s.startedAt))
}

// CancelSearch stops the user's live search. Without one it still removes
// any waiting entry left for the user. Cancelling twice is a no-op.
func (c *Coordinator) CancelSearch(ctx context.Context, userID string) error {
	c.mu.Lock()
	s := c.searches[userID]
	c.mu.Unlock()

	if s != nil {
		s.Cancel()
		return nil
	}
	if err := c.store.DeleteWaiting(ctx, userID); err != nil {
		return storeErr("cancel search", err)
	}
	return nil
}

// SearchStatus returns the state of the user's current or last search.
func (c *Coordinator) SearchStatus(userID string) Outcome {
	c.mu.Lock()
	s := c.searches[userID]
	if s == nil {
		s = c.finished[userID]
	}
	c.mu.Unlock()

	if s == nil {
		return Outcome{State: SearchIdle}
	}
	return s.Outcome()
}
