package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем.
// Потребители: одноразовые тикеты WebSocket (SetJSON/GetJSON/Delete)
// и счётчики rate limiting (Increment/Expire/TTL).
type CacheRepository interface {
	Delete(key string) error
	Increment(key string) (int64, error)
	Expire(key string, expiration time.Duration) error
	TTL(key string) (time.Duration, error)
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
}
