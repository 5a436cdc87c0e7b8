package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── Prometheus collectors ─────────────────────────────────────────────────────
// Registered once on the default registry; exposed by router at /metrics.

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wms_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	LedgerMovements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_ledger_movements_total",
		Help: "Stock movements written by the ledger, by entity kind and movement type.",
	}, []string{"entity", "type"})

	LedgerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_ledger_rejections_total",
		Help: "Ledger calls rejected before any write, by reason.",
	}, []string{"reason"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_cache_lookups_total",
		Help: "Lookup cache reads by namespace and result (hit|miss).",
	}, []string{"namespace", "result"})

	AlertJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_stock_alert_jobs_total",
		Help: "Stock alert jobs by outcome (enqueued|sent|failed|dead).",
	}, []string{"outcome"})
)
