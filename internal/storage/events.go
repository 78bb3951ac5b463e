package storage

import (
	"context"
	"encoding/json"
	"errors"

	"randomcall/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis Pub/Sub channel shared by all instances.
const EventsChannel = "call:events"

var ErrNoEventBus = errors.New("redis event bus is not configured")

// PublishEvent публікує подію дзвінка в Redis Pub/Sub.
func (s *Service) PublishEvent(ctx context.Context, ev models.CallEvent) error {
	if s.Redis == nil {
		return ErrNoEventBus
	}
	msgBytes, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, EventsChannel, string(msgBytes)).Err()
}

// SubscribeEvents підписується на канал подій. Повертає nil без Redis.
func (s *Service) SubscribeEvents(ctx context.Context) *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Subscribe(ctx, EventsChannel)
}

// DecodeEvent розбирає payload повідомлення з Redis.
func DecodeEvent(payload string) (models.CallEvent, error) {
	var ev models.CallEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
