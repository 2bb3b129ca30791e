package repository

import (
	"github.com/yourusername/typeracer-api/internal/domain/entity"
)

// ResultRepository определяет методы для работы с результатами тестов
type ResultRepository interface {
	Save(result *entity.Result) error
	// GetCompetitionResults возвращает все записанные результаты соревнования
	// в порядке их сохранения. Дедупликация по пользователю — забота кеша.
	GetCompetitionResults(competitionID uint) ([]entity.Result, error)
	// GetParticipants возвращает ID всех пользователей, у которых есть хотя бы
	// один результат в соревновании, включая отправленные до перезапуска процесса.
	GetParticipants(competitionID uint) ([]uint, error)
	GetUserResults(userID uint, limit, offset int) ([]entity.Result, error)
}
