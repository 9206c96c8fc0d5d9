package ledger

import (
	"context"

	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/metrics"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultListLimit = 50

// ErrAlreadyFinished - партия уже закрыта, повторное закрытие ничего не меняет.
var ErrAlreadyFinished = errors.New("upload batch already finished")

type Repository interface {
	CreateBatch(ctx context.Context, filename, uploadedBy string, carrier models.Carrier) (int64, error)
	FinishBatch(ctx context.Context, id int64, status models.UploadStatus, sum models.UploadSummary) (bool, error)
	ListBatches(ctx context.Context, limit int) ([]models.UploadBatch, error)
}

// Ledger - журнал загрузок: processing -> completed | failed, ровно один переход.
type Ledger struct {
	repo Repository
	log  *zap.Logger
}

func New(repo Repository) *Ledger {
	return &Ledger{repo: repo, log: logger.Named("ledger")}
}

func (l *Ledger) Start(ctx context.Context, filename, uploadedBy string, c models.Carrier) (int64, error) {
	id, err := l.repo.CreateBatch(ctx, filename, uploadedBy, c)
	if err != nil {
		return 0, errors.Wrap(err, "start batch")
	}
	l.log.Info("upload started",
		zap.Int64("batch_id", id),
		zap.String("filename", filename),
		zap.String("uploaded_by", uploadedBy),
		zap.String("carrier", string(c)),
	)
	return id, nil
}

// Finish закрывает партию со статусом из итогов загрузки.
func (l *Ledger) Finish(ctx context.Context, id int64, c models.Carrier, sum models.UploadSummary) (models.UploadStatus, error) {
	status := sum.FinalStatus()
	return status, l.finish(ctx, id, c, status, sum)
}

// Fail закрывает партию как failed: все строки считаются ошибочными.
func (l *Ledger) Fail(ctx context.Context, id int64, c models.Carrier, sum models.UploadSummary) error {
	sum.ErrorRows = sum.TotalRows
	return l.finish(ctx, id, c, models.UploadFailed, sum)
}

func (l *Ledger) finish(ctx context.Context, id int64, c models.Carrier, status models.UploadStatus, sum models.UploadSummary) error {
	ok, err := l.repo.FinishBatch(ctx, id, status, sum)
	if err != nil {
		return errors.Wrap(err, "finish batch")
	}
	if !ok {
		l.log.Warn("batch already finished", zap.Int64("batch_id", id))
		return ErrAlreadyFinished
	}

	metrics.UploadsTotal.WithLabelValues(string(c), string(status)).Inc()
	l.log.Info("upload finished",
		zap.Int64("batch_id", id),
		zap.String("status", string(status)),
		zap.Int("total", sum.TotalRows),
		zap.Int("inserted", sum.InsertedRows),
		zap.Int("updated", sum.UpdatedRows),
		zap.Int("duplicates", sum.DuplicateRows),
		zap.Int("errors", sum.ErrorRows),
	)
	return nil
}

// List - последние партии, новые первыми.
func (l *Ledger) List(ctx context.Context, limit int) ([]models.UploadBatch, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	out, err := l.repo.ListBatches(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list batches")
	}
	return out, nil
}
