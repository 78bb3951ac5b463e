package callhub

import (
	"context"
	"log"

	"randomcall/backend/internal/storage"
)

// StartPubSubListener запускає Goroutine, яка слухає Redis Pub/Sub
// і передає події в локальну доставку.
func (m *ManagerService) StartPubSubListener(ctx context.Context) {
	if m.Bus == nil {
		return
	}
	pubsub := m.Bus.SubscribeEvents(ctx)
	if pubsub == nil {
		return
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := storage.DecodeEvent(msg.Payload)
				if err != nil {
					log.Printf("Error unmarshalling Redis message: %v", err)
					continue
				}
				if m.onRemote != nil {
					m.onRemote(ev)
				}
				if err := m.deliverLocal(ctx, ev); err != nil {
					return
				}
			}
		}
	}()
}
