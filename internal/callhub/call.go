package callhub

import (
	"context"
	"errors"
	"log"
	"time"

	"randomcall/backend/internal/models"
	"randomcall/backend/internal/storage"
)

// trackedCall is the in-memory side of an ActiveCallSession on this instance.
type trackedCall struct {
	session models.ActiveCallSession
	timer   *time.Timer
	handles map[string]CallHandle
}

// endedCall remembers who took part in a call that ended on this instance.
type endedCall struct {
	at    time.Time
	users []string
}

func (e endedCall) has(userID string) bool {
	for _, id := range e.users {
		if id == userID {
			return true
		}
	}
	return false
}

// trackCall starts the hard duration limit for a call. Tracking the same call
// twice, or a call that already ended here, is a no-op.
func (c *Coordinator) trackCall(session *models.ActiveCallSession) {
	callID := session.CallID

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.calls[callID]; ok {
		return
	}
	if _, ok := c.ended[callID]; ok {
		return
	}

	limit := c.cfg.CallDurationLimit
	if elapsed := time.Since(session.CreatedAt); !session.CreatedAt.IsZero() && elapsed > 0 && elapsed < limit {
		limit -= elapsed
	}
	tc := &trackedCall{session: *session, handles: make(map[string]CallHandle)}
	tc.timer = time.AfterFunc(limit, func() { c.expireCall(callID) })
	c.calls[callID] = tc
	c.metrics.CallStarted()
}

// expireCall ends a call that reached its duration limit. When the session is
// already gone from the store (ended on another instance) only the local
// tracking is released.
func (c *Coordinator) expireCall(callID string) {
	ctx, cancel := c.cleanupContext(context.Background())
	defer cancel()

	session, err := c.store.FindActiveCall(ctx, callID)
	if err == nil && (session == nil || session.Status != models.CallStatusActive) {
		log.Printf("INFO: Call %s already ended elsewhere, releasing its timer", callID)
		c.releaseCall(callID)
		return
	}
	if _, err := c.EndCall(ctx, callID, "", models.EndReasonTimeLimit); err != nil {
		log.Printf("WARNING: Time limit cleanup of call %s: %v", callID, err)
	}
}

// releaseCall drops local tracking of a call that some other instance ended.
// The store and the participants are left alone.
func (c *Coordinator) releaseCall(callID string) {
	c.mu.Lock()
	tc := c.calls[callID]
	if tc == nil {
		c.mu.Unlock()
		return
	}
	delete(c.calls, callID)
	if _, done := c.ended[callID]; !done {
		c.ended[callID] = endedCall{at: time.Now(), users: tc.session.Participants()}
	}
	c.mu.Unlock()

	tc.timer.Stop()
	c.metrics.CallStopped()
	for _, h := range tc.handles {
		h.Leave()
	}
}

// ObserveEvent reacts to events published by other instances. A call_ended
// for a call tracked here releases it.
func (c *Coordinator) ObserveEvent(ev models.CallEvent) {
	if ev.Type == models.EventCallEnded && ev.CallID != "" {
		c.releaseCall(ev.CallID)
	}
}

// lookupCall returns the session known for callID, from memory first, then from the store.
func (c *Coordinator) lookupCall(ctx context.Context, callID string) (*models.ActiveCallSession, error) {
	c.mu.Lock()
	tc := c.calls[callID]
	c.mu.Unlock()
	if tc != nil {
		session := tc.session
		return &session, nil
	}
	return c.store.FindActiveCall(ctx, callID)
}

// EndCall tears a call down exactly once per call on this instance. It
// returns false when the call was already ended. A call id without a session
// gives ErrCallNotActive and leaves no trace, so the call can still be ended
// once it exists. Every cleanup step runs even if an earlier one failed; the
// first store failure is returned for reporting.
func (c *Coordinator) EndCall(ctx context.Context, callID, userID string, reason models.EndReason) (bool, error) {
	if callID == "" {
		return false, ErrInvalidCall
	}
	ctx, cancel := c.cleanupContext(ctx)
	defer cancel()

	session, lookupErr := c.lookupCall(ctx, callID)
	if lookupErr != nil {
		if userID != "" {
			// Без сесії не можна перевірити, чи користувач у дзвінку
			return false, storeErr("load call", lookupErr)
		}
		log.Printf("WARNING: Could not load call %s before ending it: %v", callID, lookupErr)
	}
	if userID != "" && session != nil {
		if _, _, ok := session.Partner(userID); !ok {
			return false, ErrNotInCall
		}
	}

	c.mu.Lock()
	if prev, done := c.ended[callID]; done {
		c.mu.Unlock()
		if session == nil && userID != "" && !prev.has(userID) {
			return false, ErrCallNotActive
		}
		return false, nil
	}
	if session == nil && lookupErr == nil {
		c.mu.Unlock()
		return false, ErrCallNotActive
	}
	users := participantsOf(session, userID)
	c.ended[callID] = endedCall{at: time.Now(), users: users}
	tc := c.calls[callID]
	delete(c.calls, callID)
	c.mu.Unlock()

	if tc != nil {
		tc.timer.Stop()
		c.metrics.CallStopped()
	}

	var firstErr error
	record := func(step string, err error) {
		log.Printf("ERROR: End call %s: %s: %v", callID, step, err)
		if firstErr == nil {
			firstErr = storeErr(step, err)
		}
	}

	// 1. Позначаємо сесію завершеною
	if err := c.store.UpdateActiveCall(ctx, callID, models.EndedPatch(time.Now().UTC())); err != nil {
		if errors.Is(err, storage.ErrCallNotFound) {
			log.Printf("INFO: Call %s was already removed", callID)
		} else {
			record("mark ended", err)
		}
	}

	// 2. Видаляємо сесію та залишки саме цього дзвінка в черзі.
	// Новий запис учасника, що вже шукає знову, має інший call id.
	if err := c.store.DeleteActiveCall(ctx, callID); err != nil {
		record("delete call", err)
	}
	for _, id := range users {
		if _, err := c.store.ClaimWaiting(ctx, &models.WaitingEntry{UserID: id, CallID: callID}); err != nil {
			record("delete waiting entry", err)
		}
	}

	// 3. Звільняємо транспорт і повідомляємо учасників
	if tc != nil {
		for _, h := range tc.handles {
			h.Leave()
		}
	}
	c.notify(ctx, models.CallEvent{
		Type:      models.EventCallEnded,
		CallID:    callID,
		ToUserIDs: users,
		FromUser:  userID,
		Reason:    reason,
	})
	c.metrics.CallEnded(string(reason))
	log.Printf("INFO: Call %s ended (%s)", callID, reason)

	return true, firstErr
}

func participantsOf(session *models.ActiveCallSession, userID string) []string {
	var users []string
	if session != nil {
		users = session.Participants()
	}
	if userID != "" {
		for _, id := range users {
			if id == userID {
				return users
			}
		}
		users = append(users, userID)
	}
	return users
}

// JoinCall connects the user to the call transport. Transport callbacks are
// forwarded into EndCall.
func (c *Coordinator) JoinCall(ctx context.Context, callID string, user models.MatchUser) error {
	if callID == "" {
		return ErrInvalidCall
	}
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport == nil {
		return ErrNoTransport
	}

	session, err := c.lookupCall(ctx, callID)
	if err != nil {
		return storeErr("load call", err)
	}
	if session == nil || session.Status != models.CallStatusActive {
		return ErrCallNotActive
	}
	if _, _, ok := session.Partner(user.ID); !ok {
		return ErrNotInCall
	}
	c.trackCall(session)

	events := &callEvents{c: c, callID: callID, userID: user.ID}
	handle, err := transport.Join(ctx, callID, user.ID, user.Username, events)
	if err != nil {
		return err
	}

	c.mu.Lock()
	tc := c.calls[callID]
	if tc != nil {
		tc.handles[user.ID] = handle
	}
	c.mu.Unlock()

	if tc == nil {
		// Дзвінок завершився, поки ми приєднувались.
		handle.Leave()
		return ErrCallNotActive
	}
	log.Printf("INFO: User %s joined call %s", user.ID, callID)
	return nil
}

// PeerOf returns the other participant of a call.
func (c *Coordinator) PeerOf(ctx context.Context, callID, userID string) (string, error) {
	session, err := c.lookupCall(ctx, callID)
	if err != nil {
		return "", storeErr("load call", err)
	}
	if session == nil || session.Status != models.CallStatusActive {
		return "", ErrCallNotActive
	}
	peerID, _, ok := session.Partner(userID)
	if !ok {
		return "", ErrNotInCall
	}
	return peerID, nil
}

// callEvents forwards transport callbacks of one participant.
type callEvents struct {
	c      *Coordinator
	callID string
	userID string
}

func (e *callEvents) OnPeerJoined(peerID, peerName string) {
	log.Printf("INFO: Peer %s joined call %s", peerID, e.callID)
	e.c.notify(context.Background(), models.CallEvent{
		Type:      models.EventPeerJoined,
		CallID:    e.callID,
		ToUserIDs: []string{e.userID},
		FromUser:  peerID,
		PeerName:  peerName,
	})
}

func (e *callEvents) OnPeerLeft(peerID string) {
	if _, err := e.c.EndCall(context.Background(), e.callID, e.userID, models.EndReasonPeerLeft); err != nil {
		log.Printf("WARNING: End call %s after peer %s left: %v", e.callID, peerID, err)
	}
}

func (e *callEvents) OnEnded(reason models.EndReason) {
	if reason == "" {
		reason = models.EndReasonRemoteEnded
	}
	if _, err := e.c.EndCall(context.Background(), e.callID, "", reason); err != nil {
		log.Printf("WARNING: End call %s on transport end: %v", e.callID, err)
	}
}
