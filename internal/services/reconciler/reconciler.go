package reconciler

import (
	"context"
	"time"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/metrics"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/pkg/errors"
)

type Store interface {
	InTx(ctx context.Context, fn func(w pgshipments.ChunkWriter) error) error
}

// HistoryWriter - часть audit.Writer, которая нужна массовым операциям.
type HistoryWriter interface {
	LogInitialLoad(ctx context.Context, tx pgshipments.ChunkWriter, v *carriers.Variant, rows []pgshipments.Touched) ([]models.HistoryEntry, error)
	LogStatusUpdates(ctx context.Context, tx pgshipments.ChunkWriter, v *carriers.Variant, rows []pgshipments.Touched) ([]models.HistoryEntry, error)
	LogStatusOverwrite(ctx context.Context, tx pgshipments.ChunkWriter, v *carriers.Variant, rows []pgshipments.Touched, change models.StatusChange) ([]models.HistoryEntry, error)
	Publish(ctx context.Context, c models.Carrier, entries []models.HistoryEntry)
}

// Result - итог одного чанка.
type Result struct {
	Inserted  int
	Updated   int
	Unchanged int
	// Touched - вставленные и изменённые строки в порядке выполнения.
	Touched []pgshipments.Touched
	History []models.HistoryEntry
}

type Reconciler struct {
	store   Store
	history HistoryWriter
}

func New(store Store, history HistoryWriter) *Reconciler {
	return &Reconciler{store: store, history: history}
}

// Reconcile сводит один чанк записей с таблицей перевозчика в одной транзакции:
// новые ключи вставляются, у существующих переписываются статус и примечание,
// если они отличаются. Повтор того же чанка ничего не меняет.
func (r *Reconciler) Reconcile(ctx context.Context, v *carriers.Variant, client string, records []models.Shipment) (Result, error) {
	if len(records) == 0 {
		return Result{}, nil
	}
	start := time.Now()
	defer func() {
		metrics.ChunkDuration.WithLabelValues(string(v.Carrier)).Observe(time.Since(start).Seconds())
	}()

	var res Result
	err := r.store.InTx(ctx, func(w pgshipments.ChunkWriter) error {
		res = Result{}

		inserted, err := w.InsertShipments(ctx, v, client, records)
		if err != nil {
			return err
		}
		h, err := r.history.LogInitialLoad(ctx, w, v, inserted)
		if err != nil {
			return err
		}
		res.History = append(res.History, h...)

		updated, err := w.UpdateChangedShipments(ctx, v, records)
		if err != nil {
			return err
		}
		h, err = r.history.LogStatusUpdates(ctx, w, v, updated)
		if err != nil {
			return err
		}
		res.History = append(res.History, h...)

		res.Inserted = len(inserted)
		res.Updated = len(updated)
		res.Touched = append(res.Touched, inserted...)
		res.Touched = append(res.Touched, updated...)
		return nil
	})
	if err != nil {
		return Result{}, errors.Wrapf(err, "reconcile %d %s records", len(records), v.Carrier)
	}

	res.Unchanged = max(len(records)-res.Inserted-res.Updated, 0)

	metrics.RowsTotal.WithLabelValues(string(v.Carrier), "inserted").Add(float64(res.Inserted))
	metrics.RowsTotal.WithLabelValues(string(v.Carrier), "updated").Add(float64(res.Updated))
	metrics.RowsTotal.WithLabelValues(string(v.Carrier), "unchanged").Add(float64(res.Unchanged))

	r.history.Publish(ctx, v.Carrier, res.History)
	return res, nil
}

// OverwriteStatus ставит статус всем id одной таблицы и пишет историю в той же транзакции.
func (r *Reconciler) OverwriteStatus(ctx context.Context, v *carriers.Variant, ids []int64, change models.StatusChange) ([]pgshipments.Touched, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var (
		touched []pgshipments.Touched
		history []models.HistoryEntry
	)
	err := r.store.InTx(ctx, func(w pgshipments.ChunkWriter) error {
		var err error
		touched, err = w.OverwriteStatus(ctx, v, ids, change.Status, change.Remark)
		if err != nil {
			return err
		}
		history, err = r.history.LogStatusOverwrite(ctx, w, v, touched, change)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "overwrite status of %d %s records", len(ids), v.Carrier)
	}
	r.history.Publish(ctx, v.Carrier, history)
	return touched, nil
}
