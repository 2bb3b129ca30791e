package dto

import (
	"time"

	"github.com/yourusername/typeracer-api/internal/domain/entity"
)

// UserResponse представляет пользователя в формате для ответа клиенту
type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse создает DTO для пользователя
func NewUserResponse(user *entity.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// AuthResponse представляет ответ на успешную аутентификацию
type AuthResponse struct {
	User        *UserResponse `json:"user"`
	AccessToken string        `json:"access_token"`
}
