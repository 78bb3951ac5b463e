package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"randomcall/backend/internal/callhub"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{callhub.ErrAlreadyInCall, http.StatusConflict},
		{callhub.ErrSearchInProgress, http.StatusConflict},
		{callhub.ErrMatchClaimFailed, http.StatusConflict},
		{callhub.ErrRoomFull, http.StatusConflict},
		{callhub.ErrSessionCreateFailed, http.StatusInternalServerError},
		{fmt.Errorf("check active call: %w: %w", callhub.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{callhub.ErrMatchTimeout, http.StatusRequestTimeout},
		{callhub.ErrNotInCall, http.StatusForbidden},
		{callhub.ErrCallNotActive, http.StatusNotFound},
		{callhub.ErrInvalidCall, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
