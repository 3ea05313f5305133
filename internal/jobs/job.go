package jobs

import (
	"context"

	"go.uber.org/zap"

	challenge "runtoyou.app/runtoyou/internal/modules/challenge/service"
	route "runtoyou.app/runtoyou/internal/modules/route/service"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/metrics"
)

// Job is a unit of background work the scheduler runs on a cron schedule.
type Job interface {
	// Name identifies the job in logs and metrics.
	Name() string

	// Schedule is a cron spec such as "@every 1m". An empty schedule
	// registers the job for on-demand runs only.
	Schedule() string

	Execute(ctx context.Context) error
}

type routeUsageSync struct {
	routes   route.RouteService
	schedule string
}

// NewRouteUsageSync flushes route view counters buffered in redis to the database.
func NewRouteUsageSync(routes route.RouteService, schedule string) Job {
	return &routeUsageSync{routes: routes, schedule: schedule}
}

func (j *routeUsageSync) Name() string     { return metrics.JobRouteUsageSync }
func (j *routeUsageSync) Schedule() string { return j.schedule }

func (j *routeUsageSync) Execute(ctx context.Context) error {
	n, err := j.routes.SyncUsage(ctx)
	if n > 0 {
		logger.L().Info("route usage synced", zap.Int("routes", n))
	}
	return err
}

type challengeExpiry struct {
	challenges challenge.ChallengeService
	schedule   string
}

// NewChallengeExpiry deactivates challenges whose end date has passed.
func NewChallengeExpiry(challenges challenge.ChallengeService, schedule string) Job {
	return &challengeExpiry{challenges: challenges, schedule: schedule}
}

func (j *challengeExpiry) Name() string     { return metrics.JobChallengeExpiry }
func (j *challengeExpiry) Schedule() string { return j.schedule }

func (j *challengeExpiry) Execute(ctx context.Context) error {
	n, err := j.challenges.DeactivateExpired(ctx)
	if n > 0 {
		logger.L().Info("expired challenges deactivated", zap.Int64("challenges", n))
	}
	return err
}
