package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"randomcall/backend/internal/callhub"
	"randomcall/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// GetCall returns the call session if the caller is one of its participants.
func (h *Handler) GetCall(c *gin.Context) {
	user := currentUser(c)

	session, err := h.Store.FindActiveCall(c.Request.Context(), c.Param("callID"))
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %w", callhub.ErrStoreUnavailable, err))
		return
	}
	if session == nil {
		h.respondError(c, callhub.ErrCallNotActive)
		return
	}
	if _, _, ok := session.Partner(user.ID); !ok {
		h.respondError(c, callhub.ErrNotInCall)
		return
	}
	c.JSON(http.StatusOK, session)
}

type endCallRequest struct {
	Reason string `json:"reason"`
}

// EndCall завершує дзвінок. Тіло запиту необов'язкове.
func (h *Handler) EndCall(c *gin.Context) {
	user := currentUser(c)

	var req endCallRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondBadRequest(c, err)
		return
	}
	reason := models.EndReasonUserEnded
	if req.Reason != "" {
		r, ok := models.ParseEndReason(req.Reason)
		if !ok {
			h.respondBadRequest(c, fmt.Errorf("unknown end reason %q", req.Reason))
			return
		}
		reason = r
	}

	ended, err := h.Coordinator.EndCall(c.Request.Context(), c.Param("callID"), user.ID, reason)
	if err != nil && !ended {
		h.respondError(c, err)
		return
	}
	// Дзвінок завершено, навіть якщо частина прибирання не вдалася
	c.JSON(http.StatusOK, gin.H{"ended": ended, "reason": reason})
}
