package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MigrationsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schema_migrations_applied_total",
		Help: "Total number of schema migration steps applied",
	})

	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of products created",
	})

	ProductsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "Total number of products deleted",
	})

	CartReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_reservations_total",
		Help: "Total number of cart reservation attempts",
	}, []string{"result"})

	CartReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_reserve_latency_seconds",
		Help:    "Latency of cart reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	StockReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_released_units_total",
		Help: "Total number of stock units returned from the cart",
	})

	UsersRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "users_registered_total",
		Help: "Total number of registered users",
	})

	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Total number of authentication attempts",
	}, []string{"result"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_events_published_total",
		Help: "Total number of inventory events published",
	}, []string{"type"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_events_publish_failed_total",
		Help: "Total number of inventory events that failed to publish",
	}, []string{"type"})

	StockMirrorUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_mirror_updates_total",
		Help: "Total number of stock mirror updates applied by the worker",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
