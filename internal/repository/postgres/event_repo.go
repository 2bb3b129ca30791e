package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
)

// EventRepo реализует repository.EventRepository
type EventRepo struct {
	db *gorm.DB
}

// NewEventRepo создает новый репозиторий событий
func NewEventRepo(db *gorm.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Create сохраняет событие
func (r *EventRepo) Create(event *entity.Event) error {
	return r.db.Create(event).Error
}

// GetByID возвращает событие по ID
func (r *EventRepo) GetByID(id uint) (*entity.Event, error) {
	var event entity.Event
	err := r.db.First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}
