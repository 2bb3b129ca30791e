package entity

import (
	"time"
)

// Notification представляет персональный указатель пользователя на событие.
// Создается по одному на каждого участника соревнования; флаг Acknowledged
// выставляется, когда пользователь подтвердил получение.
type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	EventID      uint      `gorm:"not null;index" json:"event_id"`
	Acknowledged bool      `gorm:"not null;default:false" json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Notification) TableName() string {
	return "notifications"
}
