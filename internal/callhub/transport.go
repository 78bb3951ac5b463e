package callhub

import (
	"context"
	"errors"
	"sync"

	"randomcall/backend/internal/models"
)

var ErrRoomFull = errors.New("call already has two participants")

// CallEvents receives the lifecycle callbacks of one participant's call session.
type CallEvents interface {
	OnPeerJoined(peerID, peerName string)
	OnPeerLeft(peerID string)
	OnEnded(reason models.EndReason)
}

// CallHandle is a joined participant. Leave is idempotent.
type CallHandle interface {
	Leave()
}

// CallTransport is the real-time audio/video session the two users join.
type CallTransport interface {
	Join(ctx context.Context, callID, userID, userName string, events CallEvents) (CallHandle, error)
}

// SignalingTransport tracks who is present in each call on this instance.
// Media goes peer to peer; the server only sees presence and relays signalling.
type SignalingTransport struct {
	mu    sync.Mutex
	rooms map[string]map[string]*participant
}

type participant struct {
	t        *SignalingTransport
	callID   string
	userID   string
	userName string
	events   CallEvents
}

func NewSignalingTransport() *SignalingTransport {
	return &SignalingTransport{rooms: make(map[string]map[string]*participant)}
}

// Join adds the user to the call room. Joining again replaces the previous
// handle without notifying the peer, which covers websocket reconnects.
func (t *SignalingTransport) Join(_ context.Context, callID, userID, userName string, events CallEvents) (CallHandle, error) {
	p := &participant{t: t, callID: callID, userID: userID, userName: userName, events: events}

	t.mu.Lock()
	room := t.rooms[callID]
	if room == nil {
		room = make(map[string]*participant)
		t.rooms[callID] = room
	}
	if _, rejoin := room[userID]; !rejoin && len(room) >= 2 {
		t.mu.Unlock()
		return nil, ErrRoomFull
	}
	room[userID] = p
	var peers []*participant
	for id, other := range room {
		if id != userID {
			peers = append(peers, other)
		}
	}
	t.mu.Unlock()

	for _, peer := range peers {
		peer.events.OnPeerJoined(p.userID, p.userName)
		p.events.OnPeerJoined(peer.userID, peer.userName)
	}
	return p, nil
}

func (p *participant) Leave() {
	t := p.t
	t.mu.Lock()
	room := t.rooms[p.callID]
	if room == nil || room[p.userID] != p {
		t.mu.Unlock()
		return
	}
	delete(room, p.userID)
	var remaining []*participant
	for _, other := range room {
		remaining = append(remaining, other)
	}
	if len(room) == 0 {
		delete(t.rooms, p.callID)
	}
	t.mu.Unlock()

	for _, other := range remaining {
		other.events.OnPeerLeft(p.userID)
	}
}

// Disconnect removes the user from every room, e.g. when its websocket dropped.
func (t *SignalingTransport) Disconnect(userID string) {
	t.mu.Lock()
	var gone []*participant
	for _, room := range t.rooms {
		if p, ok := room[userID]; ok {
			gone = append(gone, p)
		}
	}
	t.mu.Unlock()

	for _, p := range gone {
		p.Leave()
	}
}

// EndRoom closes the room and tells every participant the call ended.
func (t *SignalingTransport) EndRoom(callID string, reason models.EndReason) {
	t.mu.Lock()
	var present []*participant
	for _, p := range t.rooms[callID] {
		present = append(present, p)
	}
	delete(t.rooms, callID)
	t.mu.Unlock()

	for _, p := range present {
		p.events.OnEnded(reason)
	}
}

// Participants returns the user ids present in the call.
func (t *SignalingTransport) Participants(callID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.rooms[callID]))
	for id := range t.rooms[callID] {
		ids = append(ids, id)
	}
	return ids
}
