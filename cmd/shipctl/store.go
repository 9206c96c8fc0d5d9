package main

import (
	"context"
	"fmt"

	"github.com/BearBump/ShipLedger/internal/broker/kafka"
	"github.com/BearBump/ShipLedger/internal/cache"
	"github.com/BearBump/ShipLedger/internal/cache/rediscache"
	"github.com/BearBump/ShipLedger/internal/services/audit"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/pkg/errors"
)

func openStorage(ctx context.Context) (*pgshipments.Storage, error) {
	st, err := pgshipments.New(ctx, cfg.Database.ConnString())
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}
	return st, nil
}

// historyWriter публикует историю в Kafka, только если топик настроен.
func historyWriter(st *pgshipments.Storage) (*audit.Writer, func()) {
	if cfg.Kafka.Host == "" || cfg.Kafka.HistoryTopicName == "" {
		return audit.New(st, nil, ""), func() {}
	}
	p := kafka.NewProducer([]string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)})
	return audit.New(st, p, cfg.Kafka.HistoryTopicName), func() { _ = p.Close() }
}

// trackingCache нужен, чтобы импорт сбросил трекинг, который отдаёт ship-api.
// Без redis в конфиге возвращает nil.
func trackingCache() (cache.BytesCache, func()) {
	if cfg.Redis.Host == "" {
		return nil, func() {}
	}
	rc := rediscache.New(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
	return rc, func() { _ = rc.Close() }
}
