package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_finder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_finder_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Outbound calls to hosted services
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_finder_provider_requests_total",
			Help: "Total number of calls to hosted search, scrape, LLM and data APIs",
		},
		[]string{"provider", "operation", "status"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_finder_provider_request_duration_seconds",
			Help:    "Hosted service call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_finder_cache_lookups_total",
			Help: "Provider response cache lookups",
		},
		[]string{"namespace", "result"},
	)

	// VOC discovery metrics
	VOCPostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_finder_voc_posts_total",
			Help: "Reddit posts handled by each VOC discovery stage",
		},
		[]string{"stage", "outcome"},
	)

	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_finder_sessions_created_total",
			Help: "Intelligence sessions created",
		},
	)

	MonthlyRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_finder_monthly_runs_total",
			Help: "Scheduled VOC runs per segment",
		},
		[]string{"status"},
	)
)

// ObserveProvider records one outbound call
func ObserveProvider(provider, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	ProviderRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latencies labelled by route template
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
