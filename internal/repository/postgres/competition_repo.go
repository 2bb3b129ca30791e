package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/domain/repository"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
)

// CompetitionRepo реализует repository.CompetitionRepository
type CompetitionRepo struct {
	db *gorm.DB
}

// NewCompetitionRepo создает новый репозиторий соревнований
func NewCompetitionRepo(db *gorm.DB) *CompetitionRepo {
	return &CompetitionRepo{db: db}
}

// Create сохраняет новое соревнование
func (r *CompetitionRepo) Create(competition *entity.Competition) error {
	return r.db.Create(competition).Error
}

// GetByID возвращает соревнование по ID
func (r *CompetitionRepo) GetByID(id uint) (*entity.Competition, error) {
	var competition entity.Competition
	err := r.db.First(&competition, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &competition, nil
}

// GetOpen возвращает все незавершенные соревнования
func (r *CompetitionRepo) GetOpen() ([]entity.Competition, error) {
	var competitions []entity.Competition
	// Пустой слайс — валидный результат, ErrRecordNotFound здесь не проверяем
	err := r.db.Where("finished = ?", false).
		Order("created_at").
		Find(&competitions).Error
	return competitions, err
}

// MarkFinished выставляет флаг finished для соревнования
func (r *CompetitionRepo) MarkFinished(id uint) error {
	res := r.db.Model(&entity.Competition{}).
		Where("id = ?", id).
		Update("finished", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List возвращает соревнования с фильтрами и пагинацией, вместе с общим количеством
func (r *CompetitionRepo) List(filters repository.CompetitionFilters, limit, offset int) ([]entity.Competition, int64, error) {
	var competitions []entity.Competition
	var total int64

	query := r.db.Model(&entity.Competition{})
	if filters.Finished != nil {
		query = query.Where("finished = ?", *filters.Finished)
	}
	if filters.Language != "" {
		query = query.Where("language = ?", filters.Language)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&competitions).Error
	if err != nil {
		return nil, 0, err
	}

	return competitions, total, nil
}
