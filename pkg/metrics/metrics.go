package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values
const (
	ResultApplied   = "applied"
	ResultCompleted = "completed"
	ResultRejected  = "rejected"
	ResultConflict  = "conflict"

	JobRouteUsageSync   = "route_usage_sync"
	JobChallengeExpiry  = "challenge_expiry"
	JobOutcomeSucceeded = "success"
	JobOutcomeFailed    = "failure"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "method"},
	)
)

// Challenge Metrics
var (
	ProgressUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_progress_updates_total",
			Help: "Progress submissions by outcome",
		},
		[]string{"challenge_type", "result"},
	)

	LeaderboardSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "challenge_leaderboard_size",
			Help:    "Number of entries written per leaderboard rebuild",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	AchievementsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_awarded_total",
			Help: "Total number of achievements awarded",
		},
		[]string{"category"},
	)
)

// Activity metrics
var (
	RunsRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runs_recorded_total",
			Help: "Total number of runs recorded",
		},
	)

	LikesToggledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "likes_toggled_total",
			Help: "Like toggles by reference type and direction",
		},
		[]string{"reference_type", "action"},
	)
)

// Background job metrics
var (
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job executions by outcome",
		},
		[]string{"job", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Scheduled job latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"job"},
	)

	PresenceConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_connections",
			Help: "Open realtime websocket connections",
		},
	)
)
