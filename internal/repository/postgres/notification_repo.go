package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
)

// NotificationRepo реализует repository.NotificationRepository
type NotificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo создает новый репозиторий уведомлений
func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create сохраняет уведомление
func (r *NotificationRepo) Create(notification *entity.Notification) error {
	return r.db.Create(notification).Error
}

// GetUnacknowledged возвращает неподтвержденные уведомления пользователя
func (r *NotificationRepo) GetUnacknowledged(userID uint) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := r.db.Where("user_id = ? AND acknowledged = ?", userID, false).
		Order("created_at").
		Find(&notifications).Error
	return notifications, err
}

// Acknowledge выставляет флаг подтверждения уведомления.
// Фильтр по user_id не дает подтверждать чужие уведомления.
func (r *NotificationRepo) Acknowledge(id uint, userID uint) error {
	res := r.db.Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("acknowledged", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
