package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ShipLedger/config"
	shipmentsapi "github.com/BearBump/ShipLedger/internal/api/shipments_api"
	"github.com/BearBump/ShipLedger/internal/broker/kafka"
	"github.com/BearBump/ShipLedger/internal/cache/rediscache"
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/services/audit"
	"github.com/BearBump/ShipLedger/internal/services/ingest"
	"github.com/BearBump/ShipLedger/internal/services/ledger"
	"github.com/BearBump/ShipLedger/internal/services/reaper"
	"github.com/BearBump/ShipLedger/internal/services/reconciler"
	"github.com/BearBump/ShipLedger/internal/services/resolver"
	"github.com/BearBump/ShipLedger/internal/services/shipments"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type shipAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   shipAPIOpts
	deps   shipAPIDeps

	closers []func()
}

func mustBootstrapShipAPI() *shipAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	if err := logger.Init(cfg.ShipLedger.LogEnv, cfg.ShipLedger.LogLevel); err != nil {
		panic(fmt.Sprintf("logger init: %v", err))
	}
	log := logger.Named("bootstrap")

	grpcAddr := cfg.ShipLedger.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = ":50051"
	}
	httpAddr := cfg.ShipLedger.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ShipLedger.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "ship-api"
	}
	historyTopic := cfg.Kafka.HistoryTopicName
	if historyTopic == "" {
		historyTopic = "shipment.history"
	}
	statusTopic := cfg.Kafka.StatusRequestTopicName
	if statusTopic == "" {
		statusTopic = "shipment.status_requested"
	}
	// 0 = значение по умолчанию, отрицательное = кэш трекинга выключен
	trackTTL := time.Duration(cfg.ShipLedger.TrackingViewTTLSeconds) * time.Second
	if cfg.ShipLedger.TrackingViewTTLSeconds == 0 {
		trackTTL = time.Minute
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// pgshipments.New сам прогоняет InitSchema
	st := mustOpenPostgresWithRetry(ctx, cfg.Database.ConnString(), 60*time.Second)

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
	})
	rc := rediscache.NewWithClient(redisClient)
	rl := rediscache.NewRateLimiterWithClient(redisClient)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, statusTopic, consumerGroup)

	history := audit.New(st, producer, historyTopic)
	rec := reconciler.New(st, history)
	uploads := ingest.New(rec, ledger.New(st), cfg.ShipLedger.ChunkSize).WithTrackingCache(rc)
	svc := shipments.New(st, resolver.New(st), rec, history, rc, trackTTL)

	sweeper := reaper.New(st).WithSettings(
		time.Duration(cfg.ShipLedger.ReaperIntervalSeconds)*time.Second,
		time.Duration(cfg.ShipLedger.StaleBatchMinutes)*time.Minute,
	)

	api := shipmentsapi.New(uploads, svc, rl, shipmentsapi.Options{
		MaxUploadBytes:   int64(cfg.ShipLedger.MaxUploadBytes),
		UploadsPerMinute: int64(cfg.ShipLedger.UploadRateLimitPerMinute),
	})

	log.Info("ship-api configured",
		zap.String("grpc_addr", grpcAddr),
		zap.String("http_addr", httpAddr),
		zap.String("history_topic", historyTopic),
		zap.String("status_topic", statusTopic),
		zap.Duration("tracking_ttl", trackTTL),
	)

	return &shipAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: shipAPIOpts{
			grpcAddr:      grpcAddr,
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			statusTopic:   statusTopic,
			consumerGroup: consumerGroup,
		},
		deps: shipAPIDeps{
			api:      api,
			status:   svc,
			consumer: consumer,
			reaper:   sweeper,
			ready:    rc.Ping,

			corsOrigins: cfg.ShipLedger.CORSAllowedOrigins,
		},
		closers: []func(){
			func() { _ = consumer.Close() },
			func() { _ = producer.Close() },
			func() { _ = rc.Close() },
			st.Close,
			logger.Sync,
		},
	}
}

func mustOpenPostgresWithRetry(ctx context.Context, connString string, wait time.Duration) *pgshipments.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgshipments.New(ctx, connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *shipAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *shipAPIApp) Run() error {
	return runShipAPI(a.ctx, a.opts, a.deps)
}
