package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storybooks_http_requests_total",
		Help: "HTTP requests served, by route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storybooks_http_request_duration_seconds",
		Help:    "Time from request receipt to response.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	StoryDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storybooks_story_decisions_total",
		Help: "Access decisions made on single stories.",
	}, []string{"action", "decision"})

	StoriesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storybooks_stories_created_total",
		Help: "Stories successfully written to the database.",
	})
)

// RecordDecision counts one access decision.
func RecordDecision(action, decision string) {
	StoryDecisionsTotal.WithLabelValues(action, decision).Inc()
}

// Middleware records request count and latency per chi route pattern. Raw
// paths are never used as labels; unmatched requests share one series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
