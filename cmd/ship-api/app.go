package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	shipmentsapi "github.com/BearBump/ShipLedger/internal/api/shipments_api"
	"github.com/BearBump/ShipLedger/internal/broker/kafka"
	"github.com/BearBump/ShipLedger/internal/broker/messages"
	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/services/reaper"
	"github.com/BearBump/ShipLedger/internal/services/shipments"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var consumerRetryDelay = 2 * time.Second

type shipAPIOpts struct {
	grpcAddr    string
	httpAddr    string
	swaggerPath string

	statusTopic   string
	consumerGroup string

	onListen func(grpcAddr, httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type statusApplier interface {
	ApplyStatusChange(ctx context.Context, req messages.StatusChangeRequested) error
}

type batchReaper interface {
	Run(ctx context.Context) error
	Trigger()
	Stats() reaper.Stats
}

type shipAPIDeps struct {
	api    *shipmentsapi.API
	status statusApplier
	// consumer == nil: запросы на смену статуса из Kafka не читаются
	consumer kafkaConsumer
	reaper   batchReaper
	ready    func(ctx context.Context) error

	corsOrigins []string
}

func runShipAPI(ctx context.Context, opts shipAPIOpts, deps shipAPIDeps) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	grpcLis, err := net.Listen("tcp", opts.grpcAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	if opts.onListen != nil {
		opts.onListen(grpcLis.Addr().String(), httpLis.Addr().String())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runGRPCServer(ctx, grpcLis)
	})
	g.Go(func() error {
		return runHTTPServer(ctx, httpLis, opts.swaggerPath, deps)
	})
	if deps.consumer != nil && deps.status != nil {
		g.Go(func() error {
			return runStatusConsumer(ctx, opts, deps.consumer, deps.status)
		})
	}
	if deps.reaper != nil {
		g.Go(func() error {
			return deps.reaper.Run(ctx)
		})
	}
	return g.Wait()
}

// runGRPCServer отдаёт только grpc.health.v1 - для оркестратора.
func runGRPCServer(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			s.Stop()
		}
		_ = lis.Close()
	}()

	logger.Named("grpc").Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	if err := s.Serve(lis); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

func newRouter(swaggerPath string, deps shipAPIDeps) http.Handler {
	r := chi.NewRouter()
	if len(deps.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.corsOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.ready != nil {
			if err := deps.ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	if deps.reaper != nil {
		r.Get("/reaper/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(deps.reaper.Stats())
		})
		r.Post("/reaper/trigger", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			deps.reaper.Trigger()
			_, _ = w.Write([]byte(`{"triggered":true}`))
		})
	}

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, swaggerPath)
	})
	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	if deps.api != nil {
		r.Route("/api", deps.api.Register)
	}
	return r
}

func runHTTPServer(ctx context.Context, lis net.Listener, swaggerPath string, deps shipAPIDeps) error {
	srv := &http.Server{
		Handler:           newRouter(swaggerPath, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Named("http").Info("HTTP server listening", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// runStatusConsumer перезапускает чтение после временных ошибок; сообщение без коммита
// будет прочитано снова.
func runStatusConsumer(ctx context.Context, opts shipAPIOpts, consumer kafkaConsumer, svc statusApplier) error {
	log := logger.Named("status-consumer")
	log.Info("kafka consumer started", zap.String("topic", opts.statusTopic), zap.String("group", opts.consumerGroup))
	for {
		err := consumer.Consume(ctx, func(_ []byte, value []byte) error {
			return handleStatusMessage(ctx, svc, value)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consumer stopped, retrying", zap.Error(err), zap.Duration("delay", consumerRetryDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(consumerRetryDelay):
		}
	}
}

func handleStatusMessage(ctx context.Context, svc statusApplier, value []byte) error {
	var m messages.StatusChangeRequested
	if err := json.Unmarshal(value, &m); err != nil {
		return kafka.Permanent(errors.Wrap(err, "decode status request"))
	}
	err := svc.ApplyStatusChange(ctx, m)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shipments.ErrNotFound),
		errors.Is(err, shipments.ErrInvalidStatus),
		errors.Is(err, shipments.ErrInvalidInput),
		errors.Is(err, carriers.ErrUnknownCarrier):
		return kafka.Permanent(err)
	default:
		return err
	}
}
