package callhub

import (
	"errors"
	"fmt"

	"randomcall/backend/internal/models"
)

var (
	ErrAlreadyInCall       = errors.New("user is already in an active call")
	ErrSearchInProgress    = errors.New("a search is already in progress for this user")
	ErrMatchClaimFailed    = errors.New("partner was claimed by another search")
	ErrSessionCreateFailed = errors.New("failed to create call session")
	ErrMatchTimeout        = errors.New("no partner found before the wait timeout")
	ErrStoreUnavailable    = errors.New("session store unavailable")

	ErrInvalidUser   = errors.New("user id is required")
	ErrInvalidCall   = errors.New("call id is required")
	ErrCallNotActive = errors.New("call is not active")
	ErrNotInCall     = errors.New("user is not a participant of this call")
	ErrNoTransport   = errors.New("call transport is not configured")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// ErrorCode maps an error to the stable code used by the API and the locale files.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyInCall):
		return "already_in_call"
	case errors.Is(err, ErrSearchInProgress):
		return "search_in_progress"
	case errors.Is(err, ErrMatchClaimFailed):
		return "match_claim_failed"
	case errors.Is(err, ErrSessionCreateFailed):
		return "session_create_failed"
	case errors.Is(err, ErrMatchTimeout):
		return "match_timeout"
	case errors.Is(err, ErrInvalidUser), errors.Is(err, ErrInvalidCall), errors.Is(err, models.ErrIncompleteSession):
		return "invalid_request"
	case errors.Is(err, ErrCallNotActive):
		return "call_not_active"
	case errors.Is(err, ErrNotInCall):
		return "not_in_call"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

// IsRetryable reports whether the user can simply try the same action again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrMatchClaimFailed) ||
		errors.Is(err, ErrSessionCreateFailed) ||
		errors.Is(err, ErrMatchTimeout) ||
		errors.Is(err, ErrStoreUnavailable)
}
