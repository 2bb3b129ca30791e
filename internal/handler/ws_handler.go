package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/typeracer-api/internal/websocket"
	"github.com/yourusername/typeracer-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	hub        *websocket.Hub
	wsManager  *websocket.Manager
	jwtService *auth.JWTService
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(hub *websocket.Hub, wsManager *websocket.Manager, jwtService *auth.JWTService) *WSHandler {
	handler := &WSHandler{
		hub:        hub,
		wsManager:  wsManager,
		jwtService: jwtService,
	}
	handler.registerMessageHandlers()
	return handler
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Пустой Origin — не браузерный клиент (curl, нативное приложение)
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		// Список разрешенных origin (синхронизирован с CORS в main.go)
		allowedOrigins := []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}
		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		log.Printf("WebSocket: отклонен неразрешенный origin: %s", origin)
		return false
	},
	EnableCompression: true,
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Аутентификация — одноразовым тикетом в query-параметре: браузерные
// клиенты не могут выставить Authorization заголовок при апгрейде.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter"})
		return
	}

	claims, err := h.jwtService.ConsumeWSTicket(ticket)
	if err != nil {
		log.Printf("WebSocket: недействительный или истекший тикет - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket: ошибка апгрейда соединения: %v", err)
		return
	}

	log.Printf("WebSocket: соединение установлено для UserID: %d", claims.UserID)

	client := websocket.NewClient(h.hub, conn, strconv.FormatUint(uint64(claims.UserID), 10))
	client.StartPumps(h.wsManager.HandleMessage)
}

// registerMessageHandlers регистрирует обработчики входящих сообщений
func (h *WSHandler) registerMessageHandlers() {
	// Подписка на уведомления. Привязка userID→соединение уже выполнена
	// при регистрации клиента, здесь только подтверждаем подписку.
	h.wsManager.RegisterHandler(websocket.NotificationSubscribe, func(data json.RawMessage, client *websocket.Client) error {
		log.Printf("[WSHandler] Пользователь %s подписался на уведомления", client.UserID)
		return h.wsManager.SendEventToUser(client.UserID, "notification:subscribed", gin.H{
			"user_id": client.UserID,
		})
	})
}
