package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/BearBump/ShipLedger/internal/cache"
	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/metrics"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/reconciler"
	"github.com/BearBump/ShipLedger/internal/spreadsheet"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultChunkSize  = 500
	DefaultUploadedBy = "Sistema"

	maxSummaryErrors  = 10
	maxSummaryHeaders = 20
)

var (
	// ErrStructure - заголовки файла не похожи на формат перевозчика; ничего не сохранено.
	ErrStructure = errors.New("file structure does not match carrier")
	ErrEmptyFile = errors.New("El archivo está vacío")
	// ErrBadFile - файл не удалось прочитать (тип, формат, повреждение).
	ErrBadFile = errors.New("unreadable file")
)

type Reconciler interface {
	Reconcile(ctx context.Context, v *carriers.Variant, client string, records []models.Shipment) (reconciler.Result, error)
}

type Ledger interface {
	Start(ctx context.Context, filename, uploadedBy string, c models.Carrier) (int64, error)
	Finish(ctx context.Context, id int64, c models.Carrier, sum models.UploadSummary) (models.UploadStatus, error)
	Fail(ctx context.Context, id int64, c models.Carrier, sum models.UploadSummary) error
	List(ctx context.Context, limit int) ([]models.UploadBatch, error)
}

// Upload - один загруженный файл.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	UploadedBy  string
	// Client - как клиент назван в форме; по нему выбран Variant и он же пишется в cliente.
	Client  string
	Variant *carriers.Variant
}

// Outcome - ответ на загрузку. Заполнен и при ErrStructure.
type Outcome struct {
	BatchID int64
	Status  models.UploadStatus
	Summary models.UploadSummary
}

type Service struct {
	rec       Reconciler
	ledger    Ledger
	chunkSize int
	// tracking == nil: кэш трекинга не сбрасывается
	tracking cache.BytesCache
	log      *zap.Logger
}

func New(rec Reconciler, ledger Ledger, chunkSize int) *Service {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Service{rec: rec, ledger: ledger, chunkSize: chunkSize, log: logger.Named("ingest")}
}

// WithTrackingCache включает сброс кэша трекинга для вставленных и изменённых строк.
func (s *Service) WithTrackingCache(c cache.BytesCache) *Service {
	s.tracking = c
	return s
}

// Upload: партия в журнале -> чтение листа -> проверка заголовков -> маппинг строк ->
// чанки через Reconciler -> закрытие партии ровно один раз.
func (s *Service) Upload(ctx context.Context, in Upload) (*Outcome, error) {
	if in.Variant == nil {
		return nil, carriers.ErrUnknownCarrier
	}
	v := in.Variant
	if strings.TrimSpace(in.UploadedBy) == "" {
		in.UploadedBy = DefaultUploadedBy
	}
	client := strings.TrimSpace(in.Client)
	if client == "" {
		client = v.Label
	}

	batchID, err := s.ledger.Start(ctx, in.Filename, in.UploadedBy, v.Carrier)
	if err != nil {
		return nil, err
	}
	out := &Outcome{BatchID: batchID, Status: models.UploadFailed}
	log := s.log.With(zap.Int64("batch_id", batchID), zap.String("carrier", string(v.Carrier)))

	// дальше партия обязана закрыться, даже если клиент отвалился
	ctx = context.WithoutCancel(ctx)

	sheet, err := spreadsheet.Read(in.Filename, in.ContentType, in.Data)
	if err != nil {
		out.Summary = summary(models.UploadSummary{Errors: []string{errors.Cause(err).Error()}}, nil)
		s.fail(ctx, log, batchID, v, out.Summary)
		return out, errors.Wrap(ErrBadFile, err.Error())
	}
	if len(sheet.Rows) == 0 {
		out.Summary = summary(models.UploadSummary{Errors: []string{ErrEmptyFile.Error()}}, sheet.Headers)
		s.fail(ctx, log, batchID, v, out.Summary)
		return out, ErrEmptyFile
	}

	total := len(sheet.Rows)
	check := carriers.ValidateStructure(sheet.Headers, v)
	if !check.Valid {
		out.Summary = summary(models.UploadSummary{
			TotalRows: total,
			ErrorRows: total,
			Errors:    []string{check.Error},
		}, check.DetectedHeaders)
		log.Warn("structure rejected",
			zap.Int("matched", check.Matched),
			zap.Int("expected", check.Expected),
			zap.Strings("headers", out.Summary.DetectedHeaders),
		)
		metrics.RowsTotal.WithLabelValues(string(v.Carrier), "rejected").Add(float64(total))
		if out.Status, err = s.ledger.Finish(ctx, batchID, v.Carrier, out.Summary); err != nil {
			return out, err
		}
		return out, ErrStructure
	}

	sum := models.UploadSummary{TotalRows: total}
	for start := 0; start < total; start += s.chunkSize {
		end := min(start+s.chunkSize, total)
		s.processChunk(ctx, log, v, client, sheet.Rows[start:end], start, &sum)
	}
	out.Summary = summary(sum, sheet.Headers)

	out.Status, err = s.ledger.Finish(ctx, batchID, v.Carrier, out.Summary)
	if err != nil {
		return out, err
	}
	return out, nil
}

// processChunk маппит строки чанка и сводит их одной транзакцией.
// offset - индекс первой строки чанка в файле, номер строки = offset + i + 2.
func (s *Service) processChunk(ctx context.Context, log *zap.Logger, v *carriers.Variant, client string, rows []map[string]any, offset int, sum *models.UploadSummary) {
	records := make([]models.Shipment, 0, len(rows))
	for i, raw := range rows {
		rec := v.Map(raw)
		if msg := v.MissingKey(rec, offset+i+2); msg != "" {
			sum.ErrorRows++
			addError(sum, msg)
			metrics.RowsTotal.WithLabelValues(string(v.Carrier), "rejected").Inc()
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return
	}

	res, err := s.rec.Reconcile(ctx, v, client, records)
	if err != nil {
		log.Error("chunk failed", zap.Int("offset", offset), zap.Int("records", len(records)), zap.Error(err))
		sum.ErrorRows += len(records)
		addError(sum, fmt.Sprintf("Error insertando bloque de %d registros: %s", len(records), errors.Cause(err).Error()))
		metrics.RowsTotal.WithLabelValues(string(v.Carrier), "failed").Add(float64(len(records)))
		return
	}
	s.invalidate(ctx, log, records, res.Touched)
	sum.InsertedRows += res.Inserted
	sum.UpdatedRows += res.Updated
	// строки с уже существующим ключом, изменённые или нет
	sum.DuplicateRows += len(records) - res.Inserted
	log.Debug("chunk reconciled",
		zap.Int("offset", offset),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
	)
}

// invalidate сбрасывает трекинг по guia и номеру заказа затронутых строк.
func (s *Service) invalidate(ctx context.Context, log *zap.Logger, records []models.Shipment, touched []pgshipments.Touched) {
	if s.tracking == nil || len(touched) == 0 {
		return
	}
	guias := make(map[string]struct{}, len(touched))
	for _, t := range touched {
		if t.Guia != "" {
			guias[t.Guia] = struct{}{}
		}
	}
	keys := make([]string, 0, 2*len(guias))
	seen := make(map[string]struct{}, 2*len(guias))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		keys = append(keys, cache.TrackingKey(id))
	}
	for _, rec := range records {
		if _, ok := guias[rec.TrackingNumber()]; ok {
			add(rec.TrackingNumber())
			add(rec.OrderNumber())
		}
	}
	for _, t := range touched {
		add(t.Guia)
	}
	if len(keys) == 0 {
		return
	}
	if err := s.tracking.Delete(ctx, keys...); err != nil {
		log.Warn("tracking cache invalidation failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

// addError копит только те сообщения, что попадут в ответ.
func addError(sum *models.UploadSummary, msg string) {
	if len(sum.Errors) < maxSummaryErrors {
		sum.Errors = append(sum.Errors, msg)
	}
}

func (s *Service) fail(ctx context.Context, log *zap.Logger, batchID int64, v *carriers.Variant, sum models.UploadSummary) {
	if err := s.ledger.Fail(ctx, batchID, v.Carrier, sum); err != nil {
		log.Error("mark batch failed", zap.Error(err))
	}
}

// summary обрезает ошибки до 10 и заголовки до 20.
func summary(sum models.UploadSummary, headers []string) models.UploadSummary {
	if len(sum.Errors) > maxSummaryErrors {
		sum.Errors = sum.Errors[:maxSummaryErrors]
	}
	if sum.Errors == nil {
		sum.Errors = []string{}
	}
	detected := make([]string, 0, min(len(headers), maxSummaryHeaders))
	for _, h := range headers {
		if len(detected) == maxSummaryHeaders {
			break
		}
		detected = append(detected, strings.TrimSpace(h))
	}
	sum.DetectedHeaders = detected
	return sum
}

// List - история загрузок.
func (s *Service) List(ctx context.Context, limit int) ([]models.UploadBatch, error) {
	return s.ledger.List(ctx, limit)
}
