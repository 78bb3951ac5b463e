package callhub

import (
	"context"
	"log"
	"time"
)

// StartSweeper periodically removes stale waiting entries and prunes the
// in-memory guards of calls and searches that finished long ago.
func (c *Coordinator) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.SweepOnce(ctx); err != nil {
					log.Printf("WARNING: Sweep failed: %v", err)
				}
			}
		}
	}()
}

// SweepOnce runs a single sweep and returns the number of removed waiting entries.
func (c *Coordinator) SweepOnce(ctx context.Context) (int64, error) {
	c.pruneGuards(time.Now())

	n, err := c.store.SweepStaleWaiting(ctx, c.cfg.StaleWaitingAge)
	if err != nil {
		return 0, storeErr("sweep waiting entries", err)
	}
	c.metrics.Swept(n)
	if n > 0 {
		log.Printf("INFO: Swept %d stale waiting entries", n)
	}
	return n, nil
}

func (c *Coordinator) pruneGuards(now time.Time) {
	endedTTL := 2 * c.cfg.CallDurationLimit

	c.mu.Lock()
	defer c.mu.Unlock()
	for callID, e := range c.ended {
		if now.Sub(e.at) > endedTTL {
			delete(c.ended, callID)
		}
	}
	for userID, s := range c.finished {
		select {
		case <-s.done:
			if now.Sub(s.startedAt) > c.cfg.WaitTimeout+endedTTL {
				delete(c.finished, userID)
			}
		default:
		}
	}
}
