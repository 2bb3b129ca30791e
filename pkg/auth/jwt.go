package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yourusername/typeracer-api/internal/domain/repository"
	apperrors "github.com/yourusername/typeracer-api/internal/pkg/errors"
)

// JWTCustomClaims содержит пользовательские поля для токена
type JWTCustomClaims struct {
	UserID uint `json:"user_id"`
	Admin  bool `json:"admin"`
	jwt.RegisteredClaims
}

// WSTicketClaims хранится в кеше по одноразовому тикету для апгрейда
// вебсокет-соединения. Тикет удаляется при первом использовании.
type WSTicketClaims struct {
	UserID uint `json:"user_id"`
	Admin  bool `json:"admin"`
}

// JWTService предоставляет методы для работы с JWT и вебсокет-тикетами
type JWTService struct {
	secret         []byte
	expirationHrs  int
	wsTicketExpiry time.Duration
	cache          repository.CacheRepository
}

// NewJWTService создает новый сервис JWT и возвращает ошибку при проблемах
func NewJWTService(secret string, expirationHrs int, wsTicketExpirySec int, cache repository.CacheRepository) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required for JWTService")
	}
	if cache == nil {
		return nil, fmt.Errorf("CacheRepository is required for JWTService")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	wsExpiry := time.Duration(wsTicketExpirySec) * time.Second
	if wsExpiry <= 0 {
		wsExpiry = 60 * time.Second
	}
	return &JWTService{
		secret:         []byte(secret),
		expirationHrs:  expirationHrs,
		wsTicketExpiry: wsExpiry,
		cache:          cache,
	}, nil
}

// GenerateToken создает новый JWT токен для пользователя
func (s *JWTService) GenerateToken(userID uint, admin bool) (string, error) {
	now := time.Now()
	claims := JWTCustomClaims{
		UserID: userID,
		Admin:  admin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expirationHrs) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken проверяет подпись и срок действия токена и возвращает claims
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*JWTCustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", apperrors.ErrUnauthorized)
	}
	return claims, nil
}

// GenerateWSTicket выдает одноразовый тикет для установки вебсокет-соединения.
// Тикет живет в кеше ограниченное время и сгорает при первом использовании.
func (s *JWTService) GenerateWSTicket(userID uint, admin bool) (string, error) {
	ticket := uuid.New().String()
	claims := WSTicketClaims{UserID: userID, Admin: admin}
	if err := s.cache.SetJSON(wsTicketKey(ticket), claims, s.wsTicketExpiry); err != nil {
		return "", fmt.Errorf("failed to store WS ticket: %w", err)
	}
	return ticket, nil
}

// ConsumeWSTicket проверяет тикет и немедленно удаляет его из кеша
func (s *JWTService) ConsumeWSTicket(ticket string) (*WSTicketClaims, error) {
	key := wsTicketKey(ticket)
	var claims WSTicketClaims
	if err := s.cache.GetJSON(key, &claims); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid or expired WS ticket", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	if err := s.cache.Delete(key); err != nil {
		// Тикет уже проверен; невозможность удалить лишь продлевает окно
		log.Printf("[JWTService] Не удалось удалить использованный WS-тикет: %v", err)
	}
	return &claims, nil
}

func wsTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}
