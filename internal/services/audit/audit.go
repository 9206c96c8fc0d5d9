package audit

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ShipLedger/internal/broker/messages"
	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/metrics"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	historyLimit = 200

	kindInitialLoad  = "initial_load"
	kindStatusUpdate = "status_update"
	kindManualEdit   = "manual_edit"
	kindOverwrite    = "status_overwrite"

	manualEditPrefix = "Edición manual: "
)

type Repository interface {
	AppendHistory(ctx context.Context, entries []models.HistoryEntry) ([]models.HistoryEntry, error)
	ListHistory(ctx context.Context, guia string, limit int) ([]models.HistoryEntry, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Writer ведёт журнал shipment_history: массовые записи идут через транзакцию чанка,
// ручные правки пишутся сразу. После коммита записи уходят в Kafka.
type Writer struct {
	repo  Repository
	pub   Publisher
	topic string
	log   *zap.Logger
}

func New(repo Repository, pub Publisher, topic string) *Writer {
	return &Writer{repo: repo, pub: pub, topic: topic, log: logger.Named("audit")}
}

// HistoryKey - номер, по которому запись ищется в журнале.
func HistoryKey(rec models.Shipment) string {
	if g := rec.TrackingNumber(); g != "" {
		return g
	}
	return rec.OrderNumber()
}

// carrierLabel: свободный cliente из формы, но если это просто другое имя
// того же перевозчика ("rym", "remesas"), пишем фиксированную метку.
func carrierLabel(v *carriers.Variant, client *string) string {
	if client == nil || *client == "" {
		return v.Label
	}
	if alias, err := carriers.Lookup(*client); err == nil && alias == v {
		return v.Label
	}
	return *client
}

func entriesFor(v *carriers.Variant, rows []pgshipments.Touched, remark func(pgshipments.Touched) *string) []models.HistoryEntry {
	out := make([]models.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		// без номера отслеживания запись в журнале не найти
		if r.Guia == "" {
			continue
		}
		out = append(out, models.HistoryEntry{
			Guia:           r.Guia,
			Transportadora: carrierLabel(v, r.Client),
			Estado:         r.Estado,
			Novedad:        remark(r),
		})
	}
	return out
}

func constRemark(s string) func(pgshipments.Touched) *string {
	return func(pgshipments.Touched) *string { return &s }
}

func (w *Writer) appendTx(ctx context.Context, tx pgshipments.ChunkWriter, entries []models.HistoryEntry, kind string) ([]models.HistoryEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	saved, err := tx.AppendHistory(ctx, entries)
	if err != nil {
		return nil, errors.Wrap(err, "append history")
	}
	metrics.HistoryEntriesTotal.WithLabelValues(kind).Add(float64(len(saved)))
	return saved, nil
}

// LogInitialLoad - по записи "Carga Inicial" на каждую вставленную строку.
func (w *Writer) LogInitialLoad(ctx context.Context, tx pgshipments.ChunkWriter, v *carriers.Variant, rows []pgshipments.Touched) ([]models.HistoryEntry, error) {
	return w.appendTx(ctx, tx, entriesFor(v, rows, constRemark(models.RemarkInitialLoad)), kindInitialLoad)
}

// LogStatusUpdates - по записи "Actualización de estado" на каждую изменённую строку.
func (w *Writer) LogStatusUpdates(ctx context.Context, tx pgshipments.ChunkWriter, v *carriers.Variant, rows []pgshipments.Touched) ([]models.HistoryEntry, error) {
	return w.appendTx(ctx, tx, entriesFor(v, rows, constRemark(models.RemarkStatusUpdate)), kindStatusUpdate)
}

// LogStatusOverwrite - массовая или внешняя смена статуса; примечание и место берутся из change.
func (w *Writer) LogStatusOverwrite(ctx context.Context, tx pgshipments.ChunkWriter, v *carriers.Variant, rows []pgshipments.Touched, change models.StatusChange) ([]models.HistoryEntry, error) {
	entries := entriesFor(v, rows, func(pgshipments.Touched) *string { return change.Remark })
	for i := range entries {
		entries[i].Ubicacion = change.Location
	}
	return w.appendTx(ctx, tx, entries, kindOverwrite)
}

// RecordChanges пишет одну запись на ручную правку. Пустой diff - ничего не пишем.
func (w *Writer) RecordChanges(ctx context.Context, v *carriers.Variant, rec models.Shipment, diffs models.FieldDiffs) (*models.HistoryEntry, error) {
	if len(diffs) == 0 {
		return nil, nil
	}
	remark := manualEditPrefix + diffs.Summary()
	entry := models.HistoryEntry{
		Guia:           HistoryKey(rec),
		Transportadora: carrierLabel(v, rec.Base().Client),
		Estado:         rec.Status(),
		Novedad:        &remark,
	}
	if entry.Guia == "" {
		w.log.Debug("skip history for record without identifiers", zap.Int64("id", rec.Base().ID))
		return nil, nil
	}

	saved, err := w.repo.AppendHistory(ctx, []models.HistoryEntry{entry})
	if err != nil {
		return nil, errors.Wrap(err, "append history")
	}
	metrics.HistoryEntriesTotal.WithLabelValues(kindManualEdit).Add(float64(len(saved)))
	w.Publish(ctx, v.Carrier, saved)
	if len(saved) == 0 {
		return &entry, nil
	}
	return &saved[0], nil
}

// GetHistory - записи по номеру, новые первыми. Нет таблицы - нет истории.
func (w *Writer) GetHistory(ctx context.Context, guia string) ([]models.HistoryEntry, error) {
	entries, err := w.repo.ListHistory(ctx, guia, historyLimit)
	if pgshipments.IsUndefinedTable(err) {
		w.log.Warn("shipment_history table is missing, returning empty history")
		return []models.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "list history")
	}
	return entries, nil
}

// Timeline - история записи; для старых записей без журнала собирается одна
// запись из текущего состояния (id = 0).
func (w *Writer) Timeline(ctx context.Context, v *carriers.Variant, rec models.Shipment) ([]models.HistoryEntry, error) {
	key := HistoryKey(rec)
	entries, err := w.GetHistory(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}
	return []models.HistoryEntry{synthesize(v, rec, key)}, nil
}

func synthesize(v *carriers.Variant, rec models.Shipment, key string) models.HistoryEntry {
	return models.HistoryEntry{
		ID:             0,
		Guia:           key,
		Transportadora: v.Label,
		Estado:         rec.Status(),
		Novedad:        rec.View().Novedad,
		CreatedAt:      rec.Base().LastTouched(),
	}
}

// Publish отправляет записи в Kafka. Журнал уже закоммичен, поэтому ошибки
// только логируются.
func (w *Writer) Publish(ctx context.Context, c models.Carrier, entries []models.HistoryEntry) {
	if w.pub == nil || w.topic == "" {
		return
	}
	for _, e := range entries {
		b, err := json.Marshal(messages.NewHistoryAppended(c, e))
		if err != nil {
			w.log.Error("marshal history event", zap.Error(err))
			continue
		}
		if err := w.pub.Publish(ctx, w.topic, []byte(e.Guia), b); err != nil {
			w.log.Warn("publish history event",
				zap.String("guia", e.Guia),
				zap.Int64("history_id", e.ID),
				zap.Error(err),
			)
		}
	}
}
