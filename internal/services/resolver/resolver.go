package resolver

import (
	"context"
	"strings"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/metrics"
	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/storage/pgshipments"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("shipment not found")

type Repository interface {
	FindByIdentifier(ctx context.Context, v *carriers.Variant, identifier string) (models.Shipment, error)
	FindByID(ctx context.Context, v *carriers.Variant, id int64) (models.Shipment, error)
}

// Resolution - найденная запись и хранилище, в котором она лежит.
type Resolution struct {
	Variant *carriers.Variant
	Record  models.Shipment
}

type Resolver struct {
	repo Repository
	log  *zap.Logger
}

func New(repo Repository) *Resolver {
	return &Resolver{repo: repo, log: logger.Named("resolver")}
}

// Resolve ищет запись по номеру отслеживания или номеру заказа.
// С подсказкой смотрим только в её таблицу, даже если там пусто.
// Без подсказки перебираем carriers.ProbeOrder, первое совпадение выигрывает.
func (r *Resolver) Resolve(ctx context.Context, identifier string, hint *carriers.Variant) (*Resolution, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}
	return r.resolve(ctx, "identifier", hint, func(v *carriers.Variant) (models.Shipment, error) {
		return r.repo.FindByIdentifier(ctx, v, identifier)
	})
}

// ResolveByID - то же самое по синтетическому id. id уникален только внутри таблицы.
func (r *Resolver) ResolveByID(ctx context.Context, id int64, hint *carriers.Variant) (*Resolution, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return r.resolve(ctx, "id", hint, func(v *carriers.Variant) (models.Shipment, error) {
		return r.repo.FindByID(ctx, v, id)
	})
}

func (r *Resolver) resolve(ctx context.Context, by string, hint *carriers.Variant, find func(v *carriers.Variant) (models.Shipment, error)) (*Resolution, error) {
	mode := "probing"
	candidates := carriers.ProbeOrder()
	if hint != nil {
		mode = "hinted"
		candidates = []*carriers.Variant{hint}
	}

	for _, v := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := find(v)
		switch {
		case err == nil:
			metrics.ResolveTotal.WithLabelValues(mode, "found").Inc()
			if hint == nil {
				r.log.Debug("probe matched",
					zap.String("by", by),
					zap.String("carrier", string(v.Carrier)),
					zap.Int64("id", rec.Base().ID),
				)
			}
			return &Resolution{Variant: v, Record: rec}, nil
		case errors.Is(err, pgshipments.ErrNotFound), pgshipments.IsUndefinedTable(err):
			continue
		default:
			metrics.ResolveTotal.WithLabelValues(mode, "error").Inc()
			return nil, errors.Wrapf(err, "find in %s", v.Table)
		}
	}

	metrics.ResolveTotal.WithLabelValues(mode, "not_found").Inc()
	return nil, ErrNotFound
}
