package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/typeracer-api/internal/service"
)

// NotificationHandler обрабатывает запросы, связанные с уведомлениями
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler создает новый обработчик уведомлений
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListUnacknowledged возвращает неподтвержденные уведомления вызывающего.
// Это pull-путь доставки: то, что не дошло по живому соединению,
// забирается отсюда.
func (h *NotificationHandler) ListUnacknowledged(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	notifications, err := h.notificationService.Unacknowledged(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// Acknowledge подтверждает получение уведомления. 404, если уведомление
// не существует или принадлежит другому пользователю.
func (h *NotificationHandler) Acknowledge(c *gin.Context) {
	notificationID := c.MustGet("notificationID").(uint)
	userID := c.MustGet("user_id").(uint)

	if err := h.notificationService.Acknowledge(notificationID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
