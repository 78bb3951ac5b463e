package models

import (
	"errors"
	"time"
)

type CallStatus string

const (
	CallStatusActive CallStatus = "active"
	CallStatusEnded  CallStatus = "ended"
)

// EndReason describes which trigger ended a call.
type EndReason string

const (
	EndReasonUserEnded        EndReason = "user_ended"
	EndReasonTimeLimit        EndReason = "time_limit"
	EndReasonAppBackground    EndReason = "app_background"
	EndReasonComponentUnmount EndReason = "component_unmount"
	EndReasonPeerLeft         EndReason = "peer_left"
	EndReasonRemoteEnded      EndReason = "remote_ended"
	EndReasonAdminEnded       EndReason = "admin_ended"
)

// ParseEndReason returns the reason for a known value, or false.
func ParseEndReason(raw string) (EndReason, bool) {
	switch r := EndReason(raw); r {
	case EndReasonUserEnded, EndReasonTimeLimit, EndReasonAppBackground,
		EndReasonComponentUnmount, EndReasonPeerLeft, EndReasonRemoteEnded,
		EndReasonAdminEnded:
		return r, true
	}
	return "", false
}

var ErrIncompleteSession = errors.New("call session needs two distinct participants")

// ActiveCallSession represents two matched users currently in (or about to
// enter) a call. User1 is the user who was waiting, User2 the one who joined.
type ActiveCallSession struct {
	CallID    string     `gorm:"primaryKey" json:"call_id"`
	User1ID   string     `gorm:"not null;index" json:"user1_id"`
	User1Name string     `json:"user1_name"`
	User2ID   string     `gorm:"not null;index" json:"user2_id"`
	User2Name string     `json:"user2_name"`
	Status    CallStatus `gorm:"type:text;not null;index" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (ActiveCallSession) TableName() string { return "active_calls" }

// Validate rejects sessions that do not record two different participants.
func (s *ActiveCallSession) Validate() error {
	if s.CallID == "" || s.User1ID == "" || s.User2ID == "" || s.User1ID == s.User2ID {
		return ErrIncompleteSession
	}
	return nil
}

// Partner returns the participant that is not userID.
func (s *ActiveCallSession) Partner(userID string) (id, name string, ok bool) {
	switch userID {
	case s.User1ID:
		return s.User2ID, s.User2Name, true
	case s.User2ID:
		return s.User1ID, s.User1Name, true
	}
	return "", "", false
}

// Participants returns both user ids, skipping empty ones.
func (s *ActiveCallSession) Participants() []string {
	ids := make([]string, 0, 2)
	for _, id := range []string{s.User1ID, s.User2ID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// CallPatch is a partial update of an ActiveCallSession. Nil fields are left untouched.
type CallPatch struct {
	Status  *CallStatus
	EndedAt *time.Time
}

// EndedPatch builds the patch that marks a call as ended at the given time.
func EndedPatch(at time.Time) CallPatch {
	status := CallStatusEnded
	return CallPatch{Status: &status, EndedAt: &at}
}
