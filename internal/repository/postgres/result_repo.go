package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
)

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo создает новый репозиторий результатов
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Save сохраняет результат теста
func (r *ResultRepo) Save(result *entity.Result) error {
	return r.db.Create(result).Error
}

// GetCompetitionResults возвращает все результаты соревнования в порядке записи.
// Каждая отправка хранится отдельной строкой; лучший результат на пользователя
// вычисляется кешем при восстановлении.
func (r *ResultRepo) GetCompetitionResults(competitionID uint) ([]entity.Result, error) {
	var results []entity.Result
	err := r.db.Where("competition_id = ?", competitionID).
		Order("created_at").
		Find(&results).Error
	return results, err
}

// GetParticipants возвращает ID всех пользователей с хотя бы одним результатом
// в соревновании
func (r *ResultRepo) GetParticipants(competitionID uint) ([]uint, error) {
	var userIDs []uint
	err := r.db.Model(&entity.Result{}).
		Where("competition_id = ?", competitionID).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

// GetUserResults возвращает результаты пользователя с пагинацией
func (r *ResultRepo) GetUserResults(userID uint, limit, offset int) ([]entity.Result, error) {
	var results []entity.Result
	err := r.db.Where("user_id = ?", userID).
		Order("start_time").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	return results, err
}
