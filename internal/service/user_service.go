package service

import (
	"log"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/domain/repository"
)

// UserService предоставляет методы для работы с пользователями
type UserService struct {
	userRepo   repository.UserRepository
	resultRepo repository.ResultRepository
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository, resultRepo repository.ResultRepository) *UserService {
	return &UserService{
		userRepo:   userRepo,
		resultRepo: resultRepo,
	}
}

// GetUser возвращает пользователя по ID
func (s *UserService) GetUser(id uint) (*entity.User, error) {
	return s.userRepo.GetByID(id)
}

// DeleteUser удаляет пользователя. Его результаты остаются в хранилище.
func (s *UserService) DeleteUser(id uint) error {
	if err := s.userRepo.Delete(id); err != nil {
		log.Printf("[UserService] Ошибка при удалении пользователя #%d: %v", id, err)
		return err
	}
	return nil
}

// GetUserResults возвращает пагинированную историю результатов пользователя
func (s *UserService) GetUserResults(userID uint, page, pageSize int) ([]entity.Result, error) {
	// Валидация параметров пагинации
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	} else if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	results, err := s.resultRepo.GetUserResults(userID, pageSize, offset)
	if err != nil {
		log.Printf("[UserService] Ошибка при получении результатов пользователя #%d: %v", userID, err)
		return nil, err
	}
	return results, nil
}
