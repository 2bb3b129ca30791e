package entity

import (
	"time"
)

// Competition представляет соревнование — публичный тест на скорость печати
// с ограниченным временем жизни и живым лидербордом.
type Competition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Language  string    `gorm:"size:20;not null;index" json:"language"`
	Content   string    `gorm:"type:text;not null" json:"content,omitempty"`
	CreatedBy uint      `gorm:"not null;index" json:"created_by"`
	FinishAt  time.Time `gorm:"not null;index" json:"finish_at"`
	Finished  bool      `gorm:"not null;default:false;index" json:"finished"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Competition) TableName() string {
	return "competitions"
}

// IsOpen проверяет, открыто ли соревнование в данный момент
func (c *Competition) IsOpen() bool {
	return !c.Finished
}

// Duration возвращает полную продолжительность соревнования
func (c *Competition) Duration() time.Duration {
	return c.FinishAt.Sub(c.CreatedAt)
}
