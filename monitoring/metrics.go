package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CommissionsCredited counts credited commissions; level "0" is personal.
	CommissionsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlm_commissions_credited_total",
			Help: "Commission credits applied, by upline level",
		},
		[]string{"level"},
	)

	PointsCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlm_points_credited_total",
			Help: "Loyalty points credited to members",
		},
	)

	MilestonesReached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlm_milestones_reached_total",
			Help: "Threshold crossings that fired a milestone alert",
		},
		[]string{"milestone"},
	)

	ProductViewsTracked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_product_views_total",
			Help: "Product views recorded",
		},
	)

	CatalogRowsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_rows_total",
			Help: "Rows written by the catalog sync, by operation",
		},
		[]string{"op"},
	)

	FeedTokenRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_feed_token_refreshes_total",
			Help: "Access tokens fetched from the partner feed",
		},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Alert deliveries that failed and were swallowed",
		},
		[]string{"channel"},
	)
)
