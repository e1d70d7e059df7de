package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	complaintsSubmitted prometheus.Counter
	statusTransitions   *prometheus.CounterVec
	notificationsSent   prometheus.Counter
	emailsSent          *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheOps    prometheus.Histogram
}

// NewMetricsService registers the portal's Prometheus collectors.
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

	complaintsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "complaints_submitted_total",
		Help: "Total number of complaints submitted",
	})

	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_status_transitions_total",
		Help: "Total number of complaint status transitions",
	}, []string{"from", "to"})

	notificationsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Total number of in-app notifications created",
	})

	emailsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Total number of outbound emails by outcome",
	}, []string{"kind", "outcome"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheOps := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(requestDuration, requestTotal, complaintsSubmitted,
		statusTransitions, notificationsSent, emailsSent, cacheHits, cacheMisses, cacheOps)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		complaintsSubmitted: complaintsSubmitted,
		statusTransitions:   statusTransitions,
		notificationsSent:   notificationsSent,
		emailsSent:          emailsSent,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		cacheOps:            cacheOps,
	}
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// RecordRequest observes one completed HTTP request.
func (s *MetricsService) RecordRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// RecordComplaintSubmitted counts a new complaint.
func (s *MetricsService) RecordComplaintSubmitted() {
	s.complaintsSubmitted.Inc()
}

// RecordStatusTransition counts one workflow transition.
func (s *MetricsService) RecordStatusTransition(from, to string) {
	s.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordNotification counts one created in-app notification.
func (s *MetricsService) RecordNotification() {
	s.notificationsSent.Inc()
}

// RecordEmail counts one outbound email attempt.
func (s *MetricsService) RecordEmail(kind string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	s.emailsSent.WithLabelValues(kind, outcome).Inc()
}

// RecordCacheOperation observes one cache lookup.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
	s.cacheOps.Observe(duration.Seconds())
}
