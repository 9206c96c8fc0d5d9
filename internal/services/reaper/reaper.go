// Package reaper закрывает партии загрузки, которые остались в processing
// (процесс упал между Start и Finish).
package reaper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/BearBump/ShipLedger/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultInterval = time.Minute
	DefaultStaleAge = 30 * time.Minute

	staleReason = "Carga interrumpida: el proceso terminó antes de cerrar la carga"
)

type Repository interface {
	FailStaleBatches(ctx context.Context, olderThan time.Duration, reason string) ([]int64, error)
}

type Reaper struct {
	repo Repository

	interval time.Duration
	staleAge time.Duration

	triggerCh chan struct{}
	log       *zap.Logger

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalReaped         atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository) *Reaper {
	return &Reaper{
		repo:              repo,
		interval:          DefaultInterval,
		staleAge:          DefaultStaleAge,
		triggerCh:         make(chan struct{}, 1),
		log:               logger.Named("reaper"),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// WithSettings: нулевые значения оставляют значения по умолчанию.
func (r *Reaper) WithSettings(interval, staleAge time.Duration) *Reaper {
	if interval > 0 {
		r.interval = interval
	}
	if staleAge > 0 {
		r.staleAge = staleAge
	}
	return r
}

// Trigger forces an immediate cycle (best-effort, non-blocking).
func (r *Reaper) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	StaleAfter    string     `json:"staleAfter"`
	TotalReaped   int64      `json:"totalReaped"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (r *Reaper) Stats() Stats {
	st := Stats{
		StartedAt:   time.Unix(0, r.startedAtUnixNano).UTC(),
		StaleAfter:  r.staleAge.String(),
		TotalReaped: r.totalReaped.Load(),
		TotalErrors: r.totalErrors.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Reaper) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	// партии, брошенные предыдущим запуском, закрываем сразу
	r.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Reaper) runOnce(ctx context.Context) {
	r.lastCycleUnixNano.Store(time.Now().UTC().UnixNano())

	ids, err := r.repo.FailStaleBatches(ctx, r.staleAge, staleReason)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.totalErrors.Add(1)
		r.lastErrorMu.Lock()
		r.lastError = err.Error()
		r.lastErrorMu.Unlock()
		r.log.Error("fail stale batches", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	r.totalReaped.Add(int64(len(ids)))
	metrics.BatchesReapedTotal.Add(float64(len(ids)))
	r.log.Warn("stale upload batches closed as failed",
		zap.Int64s("batch_ids", ids),
		zap.Duration("stale_after", r.staleAge),
	)
}
