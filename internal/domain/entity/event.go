package entity

import (
	"time"
)

// Типы событий. Вариант выбирается один раз при создании события,
// дальнейшая диспетчеризация идет по этой метке.
const (
	EventTypeTopResult = "top_result"
	EventTypeFinished  = "finished"
)

// Event представляет долговечную запись о значимом происшествии в соревновании:
// попадание результата в тройку лидеров или завершение соревнования.
// Поля UserID, WPM и Rank заполнены только для варианта top_result.
type Event struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Type          string    `gorm:"size:20;not null;index" json:"type"`
	CompetitionID uint      `gorm:"not null;index" json:"competition_id"`
	UserID        uint      `gorm:"not null;default:0" json:"user_id,omitempty"`
	WPM           float64   `gorm:"not null;default:0" json:"wpm,omitempty"`
	Rank          int       `gorm:"not null;default:0" json:"rank,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Event) TableName() string {
	return "events"
}

// NewTopResultEvent создает событие о попадании результата в тройку лидеров
func NewTopResultEvent(competitionID, userID uint, wpm float64, rank int) *Event {
	return &Event{
		Type:          EventTypeTopResult,
		CompetitionID: competitionID,
		UserID:        userID,
		WPM:           wpm,
		Rank:          rank,
	}
}

// NewFinishedEvent создает событие о завершении соревнования
func NewFinishedEvent(competitionID uint) *Event {
	return &Event{
		Type:          EventTypeFinished,
		CompetitionID: competitionID,
	}
}

// IsTopResult проверяет, является ли событие попаданием в тройку лидеров
func (e *Event) IsTopResult() bool {
	return e.Type == EventTypeTopResult
}
