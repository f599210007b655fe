package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduler.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	bookingsConfirmed  prometheus.Counter
	bookingsWaitlisted prometheus.Counter
	waitlistPromotions prometheus.Counter
	swapsCompleted     prometheus.Counter
	coverageFilled     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	bookingsConfirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_confirmed_total",
		Help: "Total bookings admitted with a confirmed seat",
	})

	bookingsWaitlisted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_waitlisted_total",
		Help: "Total booking requests placed on a waitlist",
	})

	waitlistPromotions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_promotions_total",
		Help: "Total waitlist entries promoted to confirmed bookings",
	})

	swapsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swaps_completed_total",
		Help: "Total instructor swap requests completed",
	})

	coverageFilled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coverage_requests_filled_total",
		Help: "Total coverage requests filled with a substitute",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		bookingsConfirmed, bookingsWaitlisted, waitlistPromotions, swapsCompleted, coverageFilled, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		bookingsConfirmed:  bookingsConfirmed,
		bookingsWaitlisted: bookingsWaitlisted,
		waitlistPromotions: waitlistPromotions,
		swapsCompleted:     swapsCompleted,
		coverageFilled:     coverageFilled,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup outcome.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// BookingConfirmed counts a booking admitted with a confirmed seat.
func (m *MetricsService) BookingConfirmed() {
	if m != nil {
		m.bookingsConfirmed.Inc()
	}
}

// BookingWaitlisted counts a booking request placed on a waitlist.
func (m *MetricsService) BookingWaitlisted() {
	if m != nil {
		m.bookingsWaitlisted.Inc()
	}
}

// WaitlistPromoted counts a waitlist entry promoted to a confirmed booking.
func (m *MetricsService) WaitlistPromoted() {
	if m != nil {
		m.waitlistPromotions.Inc()
	}
}

// SwapCompleted counts a completed instructor swap.
func (m *MetricsService) SwapCompleted() {
	if m != nil {
		m.swapsCompleted.Inc()
	}
}

// CoverageFilled counts a coverage request filled with a substitute.
func (m *MetricsService) CoverageFilled() {
	if m != nil {
		m.coverageFilled.Inc()
	}
}
