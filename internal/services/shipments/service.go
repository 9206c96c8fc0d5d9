package shipments

import (
	"context"
	"encoding/json"
	"maps"
	"reflect"
	"strings"
	"time"

	"github.com/BearBump/ShipLedger/internal/broker/messages"
	"github.com/BearBump/ShipLedger/internal/cache"
	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/metrics"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/reconciler"
	"github.com/BearBump/ShipLedger/internal/services/resolver"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxBulkIDs = 10_000

var (
	ErrNotFound      = resolver.ErrNotFound
	ErrDuplicateKey  = pgshipments.ErrDuplicateKey
	ErrInvalidStatus = errors.New("invalid status for carrier")
	ErrMissingKey    = errors.New("tracking number and order number are both empty")
	ErrInvalidInput  = errors.New("invalid input")
)

type Repository interface {
	UpdateShipment(ctx context.Context, v *carriers.Variant, id int64, rec models.Shipment) error
	DeleteShipment(ctx context.Context, v *carriers.Variant, id int64) error
	CountStatuses(ctx context.Context, v *carriers.Variant) (models.StatusCounts, error)
}

type Resolver interface {
	Resolve(ctx context.Context, identifier string, hint *carriers.Variant) (*resolver.Resolution, error)
	ResolveByID(ctx context.Context, id int64, hint *carriers.Variant) (*resolver.Resolution, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, v *carriers.Variant, client string, records []models.Shipment) (reconciler.Result, error)
	OverwriteStatus(ctx context.Context, v *carriers.Variant, ids []int64, change models.StatusChange) ([]pgshipments.Touched, error)
}

type History interface {
	RecordChanges(ctx context.Context, v *carriers.Variant, rec models.Shipment, diffs models.FieldDiffs) (*models.HistoryEntry, error)
	Timeline(ctx context.Context, v *carriers.Variant, rec models.Shipment) ([]models.HistoryEntry, error)
}

type Service struct {
	repo     Repository
	resolver Resolver
	rec      Reconciler
	history  History
	cache    cache.BytesCache
	trackTTL time.Duration
	log      *zap.Logger
}

func New(repo Repository, res Resolver, rec Reconciler, history History, c cache.BytesCache, trackTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		resolver: res,
		rec:      rec,
		history:  history,
		cache:    c,
		trackTTL: trackTTL,
		log:      logger.Named("shipments"),
	}
}

func (s *Service) Get(ctx context.Context, id int64, hint *carriers.Variant) (*resolver.Resolution, error) {
	return s.resolver.ResolveByID(ctx, id, hint)
}

// History - журнал записи; без журнала собирается одна запись из текущего состояния.
func (s *Service) History(ctx context.Context, id int64, hint *carriers.Variant) ([]models.HistoryEntry, error) {
	res, err := s.resolver.ResolveByID(ctx, id, hint)
	if err != nil {
		return nil, err
	}
	return s.history.Timeline(ctx, res.Variant, res.Record)
}

type CreateInput struct {
	Variant *carriers.Variant
	Client  string
	Fields  map[string]any
}

type CreateResult struct {
	*resolver.Resolution
	// Created == false: ключ уже был, запись сведена как повторная загрузка.
	Created bool
}

// Create - ручное создание: поля проходят тот же маппер, что и строки файла,
// и сводятся как чанк из одной записи.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	v := in.Variant
	if v == nil {
		return nil, carriers.ErrUnknownCarrier
	}
	rec := v.Map(in.Fields)
	if a, b := rec.NaturalKey(); a == "" && b == "" {
		return nil, errors.Wrap(ErrMissingKey, v.MissingKeyText)
	}
	if !v.IsValidStatus(rec.Status()) {
		return nil, errors.Wrapf(ErrInvalidStatus, "%q", rec.Status())
	}
	client := strings.TrimSpace(in.Client)
	if client == "" {
		client = v.Label
	}

	res, err := s.rec.Reconcile(ctx, v, client, []models.Shipment{rec})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, trackingKeys(rec)...)

	out := &CreateResult{Created: res.Inserted > 0}
	if len(res.Touched) > 0 {
		out.Resolution, err = s.resolver.ResolveByID(ctx, res.Touched[0].ID, v)
	} else {
		out.Resolution, err = s.resolver.Resolve(ctx, firstNonEmpty(rec.TrackingNumber(), rec.OrderNumber()), v)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update применяет частичную правку полей, пишет запись целиком и одну запись
// истории со списком изменений. Пустой diff ничего не пишет.
func (s *Service) Update(ctx context.Context, id int64, hint *carriers.Variant, fields map[string]any) (*resolver.Resolution, models.FieldDiffs, error) {
	cur, err := s.resolver.ResolveByID(ctx, id, hint)
	if err != nil {
		return nil, nil, err
	}
	v := cur.Variant

	next, diffs, err := applyFields(v, cur.Record, fields)
	if err != nil {
		return nil, nil, err
	}
	if len(diffs) == 0 {
		return cur, diffs, nil
	}
	if _, ok := diffs["estado"]; ok && !v.IsValidStatus(next.Status()) {
		return nil, nil, errors.Wrapf(ErrInvalidStatus, "%q", next.Status())
	}
	if a, b := next.NaturalKey(); a == "" && b == "" {
		return nil, nil, errors.Wrap(ErrMissingKey, v.MissingKeyText)
	}

	if err := s.repo.UpdateShipment(ctx, v, id, next); err != nil {
		if errors.Is(err, pgshipments.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	s.invalidate(ctx, append(trackingKeys(cur.Record), trackingKeys(next)...)...)

	fresh, err := s.resolver.ResolveByID(ctx, id, v)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.history.RecordChanges(ctx, v, fresh.Record, diffs); err != nil {
		// правка уже сохранена, теряем только запись журнала
		s.log.Error("record manual edit", zap.Int64("id", id), zap.String("carrier", string(v.Carrier)), zap.Error(err))
	}
	return fresh, diffs, nil
}

// applyFields накладывает поля на запись через её JSON-представление и
// возвращает новую запись и изменения по каноническим колонкам.
func applyFields(v *carriers.Variant, cur models.Shipment, fields map[string]any) (models.Shipment, models.FieldDiffs, error) {
	before, err := toMap(cur)
	if err != nil {
		return nil, nil, err
	}
	after := maps.Clone(before)
	for k, val := range fields {
		if !v.HasColumn(k) {
			return nil, nil, errors.Wrapf(ErrInvalidInput, "unknown field %q for %s", k, v.Carrier)
		}
		after[k] = val
	}

	b, err := json.Marshal(after)
	if err != nil {
		return nil, nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	next := v.New()
	if err := json.Unmarshal(b, next); err != nil {
		return nil, nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	normalized, err := toMap(next)
	if err != nil {
		return nil, nil, err
	}

	diffs := models.FieldDiffs{}
	for _, c := range v.ColumnNames() {
		if !reflect.DeepEqual(before[c], normalized[c]) {
			diffs[c] = models.FieldDiff{Old: before[c], New: normalized[c]}
		}
	}
	return next, diffs, nil
}

func toMap(rec models.Shipment) (map[string]any, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "marshal record")
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshal record")
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64, hint *carriers.Variant) error {
	cur, err := s.resolver.ResolveByID(ctx, id, hint)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteShipment(ctx, cur.Variant, id); err != nil {
		if errors.Is(err, pgshipments.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.invalidate(ctx, trackingKeys(cur.Record)...)
	s.log.Info("shipment deleted", zap.Int64("id", id), zap.String("carrier", string(cur.Variant.Carrier)))
	return nil
}

type BulkResult struct {
	Carrier models.Carrier `json:"carrier"`
	Count   int            `json:"count"`
}

// BulkUpdateStatus ставит статус списку id одной таблицы. Таблица - из подсказки
// или по первому id; id из других таблиц просто не совпадут.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []int64, status string, hint *carriers.Variant) (*BulkResult, error) {
	status = strings.TrimSpace(status)
	if len(ids) == 0 || status == "" {
		return nil, errors.Wrap(ErrInvalidInput, "IDs y estado son requeridos")
	}
	if len(ids) > maxBulkIDs {
		return nil, errors.Wrapf(ErrInvalidInput, "too many ids (max %d)", maxBulkIDs)
	}

	v := hint
	if v == nil {
		first, err := s.resolver.ResolveByID(ctx, ids[0], nil)
		if err != nil {
			return nil, err
		}
		v = first.Variant
	}
	if !v.IsValidStatus(status) {
		return nil, errors.Wrapf(ErrInvalidStatus, "%q", status)
	}

	touched, err := s.rec.OverwriteStatus(ctx, v, ids, models.StatusChange{Status: status})
	if err != nil {
		return nil, err
	}
	s.invalidateTouched(ctx, touched)
	return &BulkResult{Carrier: v.Carrier, Count: len(touched)}, nil
}

// ApplyStatusChange - обработка запроса из Kafka: найти запись и переписать статус.
func (s *Service) ApplyStatusChange(ctx context.Context, req messages.StatusChangeRequested) error {
	var hint *carriers.Variant
	if req.Carrier != "" {
		v, err := carriers.Lookup(string(req.Carrier))
		if err != nil {
			return err
		}
		hint = v
	}
	res, err := s.resolver.Resolve(ctx, req.Identifier, hint)
	if err != nil {
		return err
	}
	status := strings.TrimSpace(req.Status)
	if !res.Variant.IsValidStatus(status) {
		return errors.Wrapf(ErrInvalidStatus, "%q", status)
	}

	touched, err := s.rec.OverwriteStatus(ctx, res.Variant, []int64{res.Record.Base().ID}, models.StatusChange{
		Status:   status,
		Remark:   req.Remark,
		Location: req.Location,
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, trackingKeys(res.Record)...)
	s.invalidateTouched(ctx, touched)
	s.log.Info("status change applied",
		zap.String("identifier", req.Identifier),
		zap.String("carrier", string(res.Variant.Carrier)),
		zap.String("status", status),
		zap.String("requested_by", req.RequestedBy),
	)
	return nil
}

// Track - публичный трекинг по номеру отслеживания или заказа во всех таблицах.
func (s *Service) Track(ctx context.Context, identifier string) (*models.Tracking, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}
	key := cache.TrackingKey(identifier)

	if s.cacheEnabled() {
		b, ok, err := s.cache.Get(ctx, key)
		if err == nil && ok {
			var t models.Tracking
			if json.Unmarshal(b, &t) == nil {
				metrics.TrackingCacheTotal.WithLabelValues("hit").Inc()
				return &t, nil
			}
		}
		metrics.TrackingCacheTotal.WithLabelValues("miss").Inc()
	}

	res, err := s.resolver.Resolve(ctx, identifier, nil)
	if err != nil {
		return nil, err
	}
	history, err := s.history.Timeline(ctx, res.Variant, res.Record)
	if err != nil {
		return nil, err
	}
	out := &models.Tracking{Shipment: res.Record.View(), History: history}

	if s.cacheEnabled() {
		if b, err := json.Marshal(out); err == nil {
			// ошибки кэша не ломают ответ
			_ = s.cache.Set(ctx, key, b, s.trackTTL)
		}
	}
	return out, nil
}

// Stats - категории статусов по каждому перевозчику и общий итог.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	out := &models.Stats{}
	for _, v := range carriers.All() {
		c, err := s.repo.CountStatuses(ctx, v)
		if pgshipments.IsUndefinedTable(err) {
			c = models.StatusCounts{Carrier: v.Carrier}
		} else if err != nil {
			return nil, err
		}
		out.Add(c)
		out.Carriers = append(out.Carriers, c)
	}
	return out, nil
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.trackTTL > 0
}

// trackingKeys - ключи кэша, под которыми запись могла попасть в трекинг.
func trackingKeys(rec models.Shipment) []string {
	view := rec.View()
	var keys []string
	for _, id := range []string{view.Guia, view.Pedido} {
		if id != "" {
			keys = append(keys, cache.TrackingKey(id))
		}
	}
	return keys
}

func (s *Service) invalidateTouched(ctx context.Context, touched []pgshipments.Touched) {
	keys := make([]string, 0, len(touched))
	for _, t := range touched {
		if t.Guia != "" {
			keys = append(keys, cache.TrackingKey(t.Guia))
		}
	}
	s.invalidate(ctx, keys...)
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("tracking cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
