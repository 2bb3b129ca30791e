package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/typeracer-api/internal/domain/repository"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests — максимальное количество запросов за Window
	MaxRequests int
	// Window — временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix — префикс для ключей в Redis
	KeyPrefix string
}

// StrictAuthRateLimitConfig — строгий лимит для login/register (защита от brute-force)
func StrictAuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 5,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:auth:strict",
	}
}

// SubmitRateLimitConfig — лимит на отправку результатов. Честный тест на
// скорость печати занимает десятки секунд, так что окно щедрое.
func SubmitRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 12,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:submit",
	}
}

// RateLimiter создаёт middleware для rate limiting поверх счётчиков кеша
type RateLimiter struct {
	cache repository.CacheRepository
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(cache repository.CacheRepository) *RateLimiter {
	return &RateLimiter{cache: cache}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из ID пользователя (если аутентифицирован) или IP,
// плюс шаблон маршрута.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.ClientIP()
		if userID, exists := c.Get("user_id"); exists {
			subject = fmt.Sprintf("u%d", userID.(uint))
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, subject, path)

		count, err := rl.cache.Increment(key)
		if err != nil {
			// При ошибке кеша пропускаем запрос (fail-open), но логируем
			log.Printf("[RateLimiter] Cache error for key %s: %v. Allowing request (fail-open).", key, err)
			c.Next()
			return
		}

		// Первый запрос в окне устанавливает TTL
		if count == 1 {
			if err := rl.cache.Expire(key, cfg.Window); err != nil {
				log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
			}
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}

		ttl, _ := rl.cache.TTL(key)
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			log.Printf("[RateLimiter] Rate limit exceeded for %s path=%s. Count=%d, Limit=%d",
				subject, path, count, cfg.MaxRequests)

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
