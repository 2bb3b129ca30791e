package entity

import (
	"time"
)

// Result представляет один сыгранный тест на скорость печати.
// CompetitionID равен nil для обычных тестов вне соревнований.
type Result struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index;index:idx_comp_user" json:"user_id"`
	CompetitionID *uint     `gorm:"index;index:idx_comp_user" json:"competition_id,omitempty"`
	WPM           float64   `gorm:"not null" json:"wpm"`
	Accuracy      float64   `gorm:"not null" json:"acc"`
	StartTime     time.Time `gorm:"not null" json:"start_time"`
	EndTime       time.Time `gorm:"not null" json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Result) TableName() string {
	return "results"
}

// Improves возвращает true, если данный результат строго лучше other по wpm.
// Равный wpm улучшением не считается: сохраненным остается более ранний результат.
func (r *Result) Improves(other *Result) bool {
	if other == nil {
		return true
	}
	return r.WPM > other.WPM
}
