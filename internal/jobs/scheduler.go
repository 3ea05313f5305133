package jobs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"runtoyou.app/runtoyou/pkg/apperror"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/metrics"
)

const jobTimeout = 5 * time.Minute

var ErrJobNotFound = apperror.New(http.StatusNotFound, "Job not found", apperror.ErrNotFound)

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
	}
}

// Register adds a job. Jobs with a schedule are queued on the cron.
func (s *Scheduler) Register(job Job) error {
	if spec := job.Schedule(); spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.run(context.Background(), job) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		logger.L().Info("job scheduled", zap.String("job", job.Name()), zap.String("schedule", spec))
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.L().Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop halts the cron and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.L().Warn("scheduler stop timed out")
	}
}

// RunByName executes a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.run(ctx, job)
		}
	}
	return ErrJobNotFound
}

// Names lists registered jobs in registration order.
func (s *Scheduler) Names() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Execute(ctx)
	metrics.JobDuration.WithLabelValues(job.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(job.Name(), metrics.JobOutcomeFailed).Inc()
		logger.L().Error("job failed", zap.String("job", job.Name()), zap.Error(err))
		return err
	}
	metrics.JobRunsTotal.WithLabelValues(job.Name(), metrics.JobOutcomeSucceeded).Inc()
	return nil
}
