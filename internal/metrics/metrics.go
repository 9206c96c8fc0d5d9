// Package metrics - Prometheus-метрики загрузок и журнала.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shipledger"

// UploadsTotal - завершённые загрузки по перевозчику и итоговому статусу.
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of finished uploads by carrier and final status.",
	},
	[]string{"carrier", "status"},
)

// RowsTotal - строки загрузок по исходу: inserted, updated, unchanged, rejected, failed.
var RowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_total",
		Help:      "Total number of uploaded rows by carrier and outcome.",
	},
	[]string{"carrier", "outcome"},
)

var ChunkDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chunk_duration_seconds",
		Help:      "Time spent reconciling one chunk.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"carrier"},
)

var HistoryEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_entries_total",
		Help:      "Total number of appended history entries by kind.",
	},
	[]string{"kind"},
)

// ResolveTotal - поиск отправления: mode hinted/probing, result found/not_found/error.
var ResolveTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolve_total",
		Help:      "Entity resolution outcomes.",
	},
	[]string{"mode", "result"},
)

var TrackingCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tracking_cache_total",
		Help:      "Tracking view cache lookups by result (hit/miss).",
	},
	[]string{"result"},
)

// BatchesReapedTotal - партии, закрытые как failed после падения процесса посреди загрузки.
var BatchesReapedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_reaped_total",
		Help:      "Upload batches closed as failed after staying in processing too long.",
	},
)
