package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"runtoyou.app/runtoyou/pkg/logger"
)

const (
	usageDirtyKey  = "route:usage:dirty"
	usageSyncBatch = 100
)

func usageKey(id uuid.UUID) string {
	return fmt.Sprintf("route:usage:%s", id.String())
}

// recordUsage buffers one use in redis, or writes it straight to the database without redis.
func (s *routeService) recordUsage(ctx context.Context, id uuid.UUID) error {
	if s.redisClient == nil {
		return s.repo.AddUsage(ctx, id, 1)
	}

	pipe := s.redisClient.TxPipeline()
	pipe.Incr(ctx, usageKey(id))
	pipe.SAdd(ctx, usageDirtyKey, id.String())
	_, err := pipe.Exec(ctx)
	return err
}

// pendingUsage is the number of buffered uses not yet synced.
func (s *routeService) pendingUsage(ctx context.Context, id uuid.UUID) int64 {
	if s.redisClient == nil {
		return 0
	}
	n, err := s.redisClient.Get(ctx, usageKey(id)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("read route usage failed", zap.String("route_id", id.String()), zap.Error(err))
		}
		return 0
	}
	return n
}

func (s *routeService) dropUsage(ctx context.Context, id uuid.UUID) {
	if s.redisClient == nil {
		return
	}
	pipe := s.redisClient.TxPipeline()
	pipe.Del(ctx, usageKey(id))
	pipe.SRem(ctx, usageDirtyKey, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Warn("drop route usage failed", zap.String("route_id", id.String()), zap.Error(err))
	}
}

// SyncUsage moves buffered usage counts into the routes table and returns how
// many routes were updated. A failed write puts the count back for the next run.
func (s *routeService) SyncUsage(ctx context.Context) (int, error) {
	if s.redisClient == nil {
		return 0, nil
	}

	synced := 0
	for {
		ids, err := s.redisClient.SPopN(ctx, usageDirtyKey, usageSyncBatch).Result()
		if err != nil {
			return synced, fmt.Errorf("pop dirty routes: %w", err)
		}
		if len(ids) == 0 {
			return synced, nil
		}

		for _, raw := range ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}

			n, err := s.redisClient.GetDel(ctx, usageKey(id)).Int64()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				s.requeue(ctx, id, 0)
				return synced, fmt.Errorf("read usage for %s: %w", id, err)
			}
			if n <= 0 {
				continue
			}

			if err := s.repo.AddUsage(ctx, id, n); err != nil {
				s.requeue(ctx, id, n)
				return synced, fmt.Errorf("write usage for %s: %w", id, err)
			}
			synced++
		}
	}
}

func (s *routeService) requeue(ctx context.Context, id uuid.UUID, n int64) {
	pipe := s.redisClient.TxPipeline()
	if n > 0 {
		pipe.IncrBy(ctx, usageKey(id), n)
	}
	pipe.SAdd(ctx, usageDirtyKey, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Error("requeue route usage failed",
			zap.String("route_id", id.String()),
			zap.Int64("count", n),
			zap.Error(err),
		)
	}
}
