package shipments_api

import (
	"context"
	"net/http"
	"time"

	"github.com/BearBump/ShipLedger/internal/cache"
	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/ingest"
	"github.com/BearBump/ShipLedger/internal/services/resolver"
	"github.com/BearBump/ShipLedger/internal/services/shipments"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	defaultMaxUploadBytes = 32 << 20
	uploadWindow          = time.Minute
)

type Uploader interface {
	Upload(ctx context.Context, in ingest.Upload) (*ingest.Outcome, error)
	List(ctx context.Context, limit int) ([]models.UploadBatch, error)
}

type Shipments interface {
	Get(ctx context.Context, id int64, hint *carriers.Variant) (*resolver.Resolution, error)
	History(ctx context.Context, id int64, hint *carriers.Variant) ([]models.HistoryEntry, error)
	Create(ctx context.Context, in shipments.CreateInput) (*shipments.CreateResult, error)
	Update(ctx context.Context, id int64, hint *carriers.Variant, fields map[string]any) (*resolver.Resolution, models.FieldDiffs, error)
	Delete(ctx context.Context, id int64, hint *carriers.Variant) error
	BulkUpdateStatus(ctx context.Context, ids []int64, status string, hint *carriers.Variant) (*shipments.BulkResult, error)
	Track(ctx context.Context, identifier string) (*models.Tracking, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type Options struct {
	MaxUploadBytes int64
	// UploadsPerMinute - лимит загрузок на одного uploadedBy; 0 = без лимита.
	UploadsPerMinute int64
}

// API - HTTP-ручки /api/*.
type API struct {
	uploads   Uploader
	shipments Shipments
	limiter   cache.Limiter
	opts      Options
	validate  *validator.Validate
	log       *zap.Logger
}

func New(uploads Uploader, svc Shipments, limiter cache.Limiter, opts Options) *API {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &API{
		uploads:   uploads,
		shipments: svc,
		limiter:   limiter,
		opts:      opts,
		validate:  validator.New(),
		log:       logger.Named("http"),
	}
}

// Register вешает ручки на r; r обычно смонтирован на /api.
func (a *API) Register(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(a.accessLog)

	r.Post("/upload", a.postUpload)
	r.Get("/upload", a.listUploads)

	r.Post("/shipments", a.createShipment)
	r.Patch("/shipments/bulk-update", a.bulkUpdate)
	r.Get("/shipments/{id}", a.getShipment)
	r.Patch("/shipments/{id}", a.patchShipment)
	r.Delete("/shipments/{id}", a.deleteShipment)
	r.Get("/shipments/{id}/history", a.shipmentHistory)

	r.Get("/tracking/{guia}", a.tracking)
	r.Get("/stats", a.stats)
}

// Handler - готовый роутер с префиксом /api.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", a.Register)
	return r
}

func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
