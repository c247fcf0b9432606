// Package metrics holds the Prometheus collectors for the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	FollowActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_follow_actions_total",
			Help: "Follow and unfollow attempts by outcome",
		},
		[]string{"action", "outcome"},
	)

	RecipeQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipe_queries_total",
			Help: "Recipe list queries by the filters they used",
		},
		[]string{"filter"},
	)

	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_auth_events_total",
			Help: "Token and password events by outcome",
		},
		[]string{"event", "outcome"},
	)

	DBErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_db_errors_total",
			Help: "Infrastructure errors returned by the database",
		},
		[]string{"operation"},
	)
)

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordFollow counts a follow/unfollow attempt. A nil error is "ok",
// otherwise the outcome is the error code.
func RecordFollow(action, outcome string) {
	FollowActions.WithLabelValues(action, outcome).Inc()
}

// RecordRecipeQuery counts one query per filter in use, or "none".
func RecordRecipeQuery(filters ...string) {
	if len(filters) == 0 {
		RecipeQueries.WithLabelValues("none").Inc()
		return
	}
	for _, f := range filters {
		RecipeQueries.WithLabelValues(f).Inc()
	}
}

func RecordAuthEvent(event, outcome string) {
	AuthEvents.WithLabelValues(event, outcome).Inc()
}

func RecordDBError(operation string) {
	DBErrors.WithLabelValues(operation).Inc()
}
