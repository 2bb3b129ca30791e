package repository

import (
	"github.com/yourusername/typeracer-api/internal/domain/entity"
)

// EventRepository определяет методы для работы с событиями
type EventRepository interface {
	// Create сохраняет событие; БД присваивает ID
	Create(event *entity.Event) error
	GetByID(id uint) (*entity.Event, error)
}

// NotificationRepository определяет методы для работы с уведомлениями
type NotificationRepository interface {
	Create(notification *entity.Notification) error
	// GetUnacknowledged возвращает неподтвержденные уведомления пользователя
	GetUnacknowledged(userID uint) ([]entity.Notification, error)
	// Acknowledge выставляет флаг подтверждения. Возвращает ErrNotFound,
	// если уведомление не существует или принадлежит другому пользователю.
	Acknowledge(id uint, userID uint) error
}
