package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestMatch шукає співрозмовника для користувача з токена.
// 200 - дзвінок створено, 202 - користувач чекає в черзі.
func (h *Handler) RequestMatch(c *gin.Context) {
	user := currentUser(c)

	result, _, err := h.Coordinator.RequestMatch(c.Request.Context(), user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusAccepted
	if result.Matched {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// SearchStatus повертає стан поточного або останнього пошуку.
func (h *Handler) SearchStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Coordinator.SearchStatus(currentUser(c).ID))
}

// CancelSearch припиняє пошук. Повторне скасування не є помилкою.
func (h *Handler) CancelSearch(c *gin.Context) {
	if err := h.Coordinator.CancelSearch(c.Request.Context(), currentUser(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
