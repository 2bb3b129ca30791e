package repository

import (
	"github.com/yourusername/typeracer-api/internal/domain/entity"
)

// CompetitionFilters определяет фильтры для выборки соревнований
type CompetitionFilters struct {
	// Finished фильтрует по флагу завершенности; nil — без фильтра
	Finished *bool
	Language string
}

// CompetitionRepository определяет методы для работы с соревнованиями
type CompetitionRepository interface {
	// Create сохраняет новое соревнование; БД присваивает ID и CreatedAt
	Create(competition *entity.Competition) error
	GetByID(id uint) (*entity.Competition, error)
	// GetOpen возвращает все незавершенные соревнования. Используется
	// при восстановлении кеша после перезапуска.
	GetOpen() ([]entity.Competition, error)
	// MarkFinished выставляет флаг finished. Возвращает ErrNotFound,
	// если соревнование не существует.
	MarkFinished(id uint) error
	List(filters CompetitionFilters, limit, offset int) ([]entity.Competition, int64, error)
}
