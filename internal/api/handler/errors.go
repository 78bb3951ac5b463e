package handler

import (
	"errors"
	"log"
	"net/http"

	"randomcall/backend/internal/callhub"

	"github.com/gin-gonic/gin"
)

// statusFor maps coordinator errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, callhub.ErrAlreadyInCall),
		errors.Is(err, callhub.ErrSearchInProgress),
		errors.Is(err, callhub.ErrMatchClaimFailed),
		errors.Is(err, callhub.ErrRoomFull):
		return http.StatusConflict
	case errors.Is(err, callhub.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, callhub.ErrMatchTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, callhub.ErrNotInCall):
		return http.StatusForbidden
	case errors.Is(err, callhub.ErrCallNotActive):
		return http.StatusNotFound
	case callhub.ErrorCode(err) == "invalid_request":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) language(c *gin.Context) string {
	if h.Localizer == nil {
		return "en"
	}
	return h.Localizer.BestLanguage(c.GetHeader("Accept-Language"))
}

func (h *Handler) message(c *gin.Context, code string) string {
	key := "error." + code
	if h.Localizer == nil {
		return key
	}
	return h.Localizer.GetString(h.language(c), key)
}

func (h *Handler) abortWith(c *gin.Context, status int, code string, retryable bool) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     code,
		"message":   h.message(c, code),
		"retryable": retryable,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	h.abortWith(c, status, callhub.ErrorCode(err), callhub.IsRetryable(err))
}

func (h *Handler) respondBadRequest(c *gin.Context, err error) {
	log.Printf("WARNING: Bad request to %s: %v", c.FullPath(), err)
	h.abortWith(c, http.StatusBadRequest, "invalid_request", false)
}

func (h *Handler) respondUnauthorized(c *gin.Context) {
	h.abortWith(c, http.StatusUnauthorized, "unauthorized", false)
}
