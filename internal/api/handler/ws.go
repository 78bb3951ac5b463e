package handler

import (
	"log"
	"net/http"

	"randomcall/backend/internal/callhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket
func (h *Handler) ServeWebSocket(c *gin.Context) {
	// 1. Валідація JWT (заголовок Authorization або ?token=)
	user, ok := h.authenticate(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade сам відповідає клієнтові з помилкою
		log.Printf("WARNING: Websocket upgrade for %s failed: %v", user.ID, err)
		return
	}

	// 2. Реєстрація клієнта в хабі та запуск pumps
	client := callhub.NewWebSocketClient(h.Hub, conn, user.ID, user.Username)
	h.Hub.Register(client)
	client.Run()
}
