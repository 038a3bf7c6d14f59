package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "replystack", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "replystack", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "replystack", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "replystack", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	PollRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "replystack", Name: "poll_runs_total", Help: "Poll runs by outcome."},
		[]string{"outcome"}, // outcome: ok|partial|failed
	)
	PollLocations = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "replystack", Name: "poll_locations_processed_total", Help: "Locations successfully polled."},
	)
	PollReviews = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "replystack", Name: "poll_reviews_processed_total", Help: "Reviews persisted (inserts + updates)."},
	)
	PollErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "replystack", Name: "poll_errors_total", Help: "Non-fatal poll errors by kind."},
		[]string{"kind"}, // kind: decrypt|revoked|source|persistence|other
	)
	TokenCacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "replystack", Name: "token_cache_events_total", Help: "Token cache hits/misses/sets."},
		[]string{"event"}, // event: hit|miss|set
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		PollRuns, PollLocations, PollReviews, PollErrors, TokenCacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObservePollRun(outcome string, locations, reviews int) {
	PollRuns.WithLabelValues(outcome).Inc()
	PollLocations.Add(float64(locations))
	PollReviews.Add(float64(reviews))
}

func ObservePollError(kind string) {
	PollErrors.WithLabelValues(kind).Inc()
}

func ObserveTokenCache(event string) { // event: hit|miss|set
	TokenCacheEvents.WithLabelValues(event).Inc()
}
