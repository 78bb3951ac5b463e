package models

import "encoding/json"

// MatchUser is the requester of a match: who they are and how they should be paired.
type MatchUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Gender   Gender `json:"gender,omitempty"`
}

// MatchResult is returned by a match request.
// Matched=false means the user now waits and should keep polling CallID.
type MatchResult struct {
	Matched         bool   `json:"matched"`
	CallID          string `json:"call_id"`
	MatchedUserID   string `json:"matched_user_id,omitempty"`
	MatchedUserName string `json:"matched_user_name,omitempty"`
	IsJoining       bool   `json:"is_joining"`
}

// Типи подій, які сервер надсилає клієнтам
const (
	EventMatchFound = "match_found"
	EventTimedOut   = "match_timeout"
	EventPeerJoined = "peer_joined"
	EventPeerLeft   = "peer_left"
	EventCallEnded  = "call_ended"
	EventSignal     = "signal"
	EventError      = "error"
)

// CallEvent is pushed to clients over websocket, possibly via Redis pub/sub
// when the participants are connected to different instances.
type CallEvent struct {
	Type      string          `json:"type"`
	CallID    string          `json:"call_id,omitempty"`
	ToUserIDs []string        `json:"to_user_ids,omitempty"`
	FromUser  string          `json:"from_user_id,omitempty"`
	PeerName  string          `json:"peer_name,omitempty"`
	Reason    EndReason       `json:"reason,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Типи повідомлень від клієнта
const (
	ClientJoin       = "join"
	ClientSignal     = "signal"
	ClientHangup     = "hangup"
	ClientBackground = "background"
	ClientCancel     = "cancel"
)

// ClientMessage is a message received from a websocket client.
// SenderID is filled by the server, never trusted from the payload.
type ClientMessage struct {
	Type     string          `json:"type"`
	CallID   string          `json:"call_id,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	SenderID string          `json:"-"`
	Username string          `json:"-"`
}
