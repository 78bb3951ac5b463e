package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter registers all routes. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	r.POST("/auth/token", h.IssueToken) // Отримання JWT
	r.GET("/ws", h.ServeWebSocket)      // WebSocket Upgrade

	authorized := r.Group("/", h.AuthMiddleware())
	{
		authorized.POST("/match", h.RequestMatch)
		authorized.GET("/match", h.SearchStatus)
		authorized.DELETE("/match", h.CancelSearch)

		authorized.GET("/calls/:callID", h.GetCall)
		authorized.POST("/calls/:callID/end", h.EndCall)
	}

	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": h.Hub.ClientCount()})
}
