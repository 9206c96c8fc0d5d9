package cache

import (
	"context"
	"time"
)

// BytesCache - минимальный кэш "ключ -> байты" с TTL.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Limiter считает попытки в окне времени.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// TrackingKey - ключ представления трекинга по guia или номеру заказа.
func TrackingKey(identifier string) string {
	return "tracking:" + identifier
}
