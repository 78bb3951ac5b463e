package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type WaitingStatus string

const WaitingStatusWaiting WaitingStatus = "waiting"

// WaitingEntry represents one user actively searching for a call partner.
// UserID is the primary key, so a user can have at most one entry at a time.
type WaitingEntry struct {
	// UserID is the identifier of the searching user.
	UserID string `gorm:"primaryKey" json:"user_id"`
	// Username is shown to the partner once the match is made.
	Username string `gorm:"type:text" json:"username"`
	// Gender is used for the tiered candidate search.
	Gender Gender `gorm:"type:text;index" json:"gender"`
	// CallID is the session token the future ActiveCallSession will reuse.
	CallID string `gorm:"uniqueIndex;not null" json:"call_id"`
	// Status is always "waiting"; rows are deleted rather than transitioned.
	Status WaitingStatus `gorm:"type:text;not null;index" json:"status"`
	// CreatedAt drives FIFO ordering and staleness eviction.
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (WaitingEntry) TableName() string { return "waiting_users" }

// CandidateFilter narrows a waiting-pool query.
type CandidateFilter struct {
	// Gender restricts candidates to this gender. GenderUnset means any.
	Gender Gender
	// ExcludeUserID keeps the requester out of its own results.
	ExcludeUserID string
	// NewerThan, when non-zero, ignores entries created before it.
	NewerThan time.Time
}

// NewCallID generates a session token of the form call_<millis36>_<random9>.
func NewCallID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return "call_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + random
}
