package callhub

import (
	"context"
	"log"
	"sync"

	"randomcall/backend/internal/models"
	"randomcall/backend/internal/observability"
	"randomcall/backend/internal/storage"
)

// MessageHandler processes messages received from clients.
type MessageHandler interface {
	HandleClientMessage(ctx context.Context, msg models.ClientMessage)
}

// ManagerService тримає реєстр підключених клієнтів і доставляє їм події:
// напряму або через Redis Pub/Sub, якщо учасники на різних інстансах.
type ManagerService struct {
	mu      sync.RWMutex
	clients map[string]Client

	// Channels
	IncomingCh   chan models.ClientMessage
	RegisterCh   chan Client
	UnregisterCh chan Client
	deliverCh    chan models.CallEvent
	stopped      chan struct{}

	Bus     storage.EventBus
	metrics *observability.Metrics

	handler      MessageHandler
	onDisconnect func(userID string)
	onRemote     func(ev models.CallEvent)
}

// NewManagerService creates a hub. bus may be nil for single-instance setups.
func NewManagerService(bus storage.EventBus, metrics *observability.Metrics) *ManagerService {
	return &ManagerService{
		clients:      make(map[string]Client),
		IncomingCh:   make(chan models.ClientMessage, 64),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		deliverCh:    make(chan models.CallEvent, 256),
		stopped:      make(chan struct{}),
		Bus:          bus,
		metrics:      metrics,
	}
}

func (m *ManagerService) SetMessageHandler(h MessageHandler) {
	m.handler = h
}

// SetDisconnectHook registers a callback for users whose last connection went away.
func (m *ManagerService) SetDisconnectHook(hook func(userID string)) {
	m.onDisconnect = hook
}

// SetEventHook registers a callback for every event received from Redis,
// including the ones this instance published itself.
func (m *ManagerService) SetEventHook(hook func(ev models.CallEvent)) {
	m.onRemote = hook
}

// Run is the hub's main loop. It owns registration and delivery.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.stopped)
	m.StartPubSubListener(ctx)

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			for id, client := range m.clients {
				client.Close()
				delete(m.clients, id)
			}
			m.mu.Unlock()
			return

		case client := <-m.RegisterCh:
			m.register(client)

		case client := <-m.UnregisterCh:
			m.unregister(client)

		case msg := <-m.IncomingCh:
			if m.handler == nil {
				continue
			}
			go m.handler.HandleClientMessage(ctx, msg)

		case ev := <-m.deliverCh:
			m.deliver(ev)
		}
	}
}

func (m *ManagerService) register(client Client) {
	id := client.GetUserID()
	m.mu.Lock()
	old := m.clients[id]
	m.clients[id] = client
	m.mu.Unlock()

	if old != nil && old != client {
		// Нове з'єднання того ж користувача замінює старе.
		old.Close()
		log.Printf("INFO: Client %s reconnected, previous connection closed", id)
		return
	}
	m.metrics.ClientConnected()
	log.Printf("INFO: Client %s registered", id)
}

func (m *ManagerService) unregister(client Client) {
	id := client.GetUserID()
	m.mu.Lock()
	current, ok := m.clients[id]
	if ok && current == client {
		delete(m.clients, id)
	}
	m.mu.Unlock()

	client.Close()
	if !ok || current != client {
		return
	}
	m.metrics.ClientDisconnected()
	log.Printf("INFO: Client %s unregistered", id)
	if hook := m.onDisconnect; hook != nil {
		go hook(id)
	}
}

func (m *ManagerService) deliver(ev models.CallEvent) {
	for _, id := range ev.ToUserIDs {
		m.mu.RLock()
		client, ok := m.clients[id]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		select {
		case client.GetSendChannel() <- ev:
		default:
			log.Printf("WARNING: Client %s is too slow, dropping connection", id)
			m.unregister(client)
		}
	}
}

// Notify delivers an event to its recipients, through Redis when configured.
func (m *ManagerService) Notify(ctx context.Context, ev models.CallEvent) error {
	if m.Bus != nil {
		err := m.Bus.PublishEvent(ctx, ev)
		if err == nil {
			return nil
		}
		log.Printf("WARNING: Failed to publish %s event to Redis, delivering locally: %v", ev.Type, err)
	}
	return m.deliverLocal(ctx, ev)
}

func (m *ManagerService) deliverLocal(ctx context.Context, ev models.CallEvent) error {
	select {
	case m.deliverCh <- ev:
		return nil
	case <-m.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register hands a new client to the hub loop.
func (m *ManagerService) Register(client Client) {
	select {
	case m.RegisterCh <- client:
	case <-m.stopped:
		client.Close()
	}
}

// Unregister hands a closed client to the hub loop.
func (m *ManagerService) Unregister(client Client) {
	select {
	case m.UnregisterCh <- client:
	case <-m.stopped:
	}
}

// Submit queues a message received from a client.
func (m *ManagerService) Submit(msg models.ClientMessage) {
	select {
	case m.IncomingCh <- msg:
	case <-m.stopped:
	}
}

// IsConnected reports whether the user has a live connection on this instance.
func (m *ManagerService) IsConnected(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clients[userID]
	return ok
}

func (m *ManagerService) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
