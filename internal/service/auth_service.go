package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
	"github.com/yourusername/typeracer-api/internal/domain/repository"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
	"github.com/yourusername/typeracer-api/pkg/auth"
)

// AuthService предоставляет методы для работы с аутентификацией
type AuthService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
}

// RegisterInput содержит все данные для регистрации
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// NewAuthService создает новый сервис аутентификации и возвращает ошибку при проблемах
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
	}, nil
}

// RegisterUser регистрирует нового пользователя
func (s *AuthService) RegisterUser(input RegisterInput) (*entity.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)

	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", apperrors.ErrValidation)
	}
	if len(input.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", apperrors.ErrValidation)
	}

	// Проверяем, существует ли пользователь с таким email
	_, err := s.userRepo.GetByEmail(input.Email)
	if err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}

	user := &entity.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password, // хешируется хуком BeforeSave
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login проверяет учетные данные и возвращает пользователя с токеном доступа
func (s *AuthService) Login(email, password string) (*entity.User, string, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
		}
		return nil, "", err
	}

	if !user.CheckPassword(password) {
		return nil, "", fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Admin)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// GenerateWSTicket выдает одноразовый тикет для вебсокет-соединения
func (s *AuthService) GenerateWSTicket(userID uint, admin bool) (string, error) {
	return s.jwtService.GenerateWSTicket(userID, admin)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
