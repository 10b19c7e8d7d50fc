// Package metrics exposes the sync engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncsStarted counts accepted sync triggers
	SyncsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "square_syncs_started_total",
		Help: "Number of sync runs started",
	})

	// SyncFailures counts sync runs finalized as failed
	SyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "square_sync_failures_total",
		Help: "Number of sync runs that ended in failure",
	})

	// PagesFetched counts SearchOrders pages processed
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "square_sync_pages_fetched_total",
		Help: "Number of order search pages fetched",
	})

	// OrdersCreated counts orders ingested into the local store
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "square_sync_orders_created_total",
		Help: "Number of orders created by sync runs",
	})

	// ItemsCreated counts catalog items created by reconciliation
	ItemsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "square_sync_items_created_total",
		Help: "Number of catalog items created by sync runs",
	})

	// TokenRefreshes counts OAuth refresh-token grants performed
	TokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "square_token_refreshes_total",
		Help: "Number of access token refreshes",
	})

	// SyncDuration observes end-to-end sync run duration
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "square_sync_duration_seconds",
		Help:    "End-to-end duration of sync runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
