package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"runtoyou.app/runtoyou/internal/entity"
	likeRepo "runtoyou.app/runtoyou/internal/modules/like/repository"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/metrics"
)

const countTTL = 7 * 24 * time.Hour

type ToggleResult struct {
	Liked  bool
	Likers []uuid.UUID
}

type LikeService interface {
	Toggle(ctx context.Context, userID, refID uuid.UUID, refType string) (*ToggleResult, error)
	Likers(ctx context.Context, refID uuid.UUID, refType string) ([]uuid.UUID, error)
	LikersFor(ctx context.Context, refIDs []uuid.UUID, refType string) (map[uuid.UUID][]uuid.UUID, error)
	Count(ctx context.Context, refID uuid.UUID, refType string) (int64, error)
	Clear(ctx context.Context, refID uuid.UUID, refType string) error
}

type likeService struct {
	repo        likeRepo.LikeRepository
	redisClient *redis.Client
}

// NewLikeService caches like counts in redis when redisClient is set.
func NewLikeService(repo likeRepo.LikeRepository, redisClient *redis.Client) LikeService {
	return &likeService{repo: repo, redisClient: redisClient}
}

func countKey(refType string, refID uuid.UUID) string {
	return fmt.Sprintf("counts:%s:%s", refType, refID.String())
}

func (s *likeService) Toggle(ctx context.Context, userID, refID uuid.UUID, refType string) (*ToggleResult, error) {
	liked, err := s.repo.Toggle(ctx, &entity.Like{
		UserID:        userID,
		ReferenceID:   refID,
		ReferenceType: refType,
	})
	if err != nil {
		return nil, err
	}

	action := "unlike"
	if liked {
		action = "like"
	}
	metrics.LikesToggledTotal.WithLabelValues(refType, action).Inc()

	if s.redisClient != nil {
		var delta int64 = -1
		if liked {
			delta = 1
		}
		key := countKey(refType, refID)
		// only adjust a cached count; a missing key is rebuilt from the DB on read
		exists, err := s.redisClient.Exists(ctx, key).Result()
		if err == nil && exists > 0 {
			err = s.redisClient.HIncrBy(ctx, key, "likes", delta).Err()
		}
		if err != nil {
			logger.L().Warn("like count cache update failed", zap.String("key", key), zap.Error(err))
		}
	}

	likers, err := s.repo.LikerIDs(ctx, refID, refType)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Liked: liked, Likers: likers}, nil
}

func (s *likeService) Likers(ctx context.Context, refID uuid.UUID, refType string) ([]uuid.UUID, error) {
	return s.repo.LikerIDs(ctx, refID, refType)
}

func (s *likeService) LikersFor(ctx context.Context, refIDs []uuid.UUID, refType string) (map[uuid.UUID][]uuid.UUID, error) {
	return s.repo.LikerIDsFor(ctx, refIDs, refType)
}

func (s *likeService) Count(ctx context.Context, refID uuid.UUID, refType string) (int64, error) {
	if s.redisClient == nil {
		return s.repo.Count(ctx, refID, refType)
	}

	key := countKey(refType, refID)
	n, err := s.redisClient.HGet(ctx, key, "likes").Int64()
	if err == nil && n >= 0 {
		return n, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.L().Warn("like count cache read failed", zap.String("key", key), zap.Error(err))
	}

	n, err = s.repo.Count(ctx, refID, refType)
	if err != nil {
		return 0, err
	}

	pipe := s.redisClient.Pipeline()
	pipe.HSet(ctx, key, "likes", n)
	pipe.Expire(ctx, key, countTTL)
	_, _ = pipe.Exec(ctx)
	return n, nil
}

func (s *likeService) Clear(ctx context.Context, refID uuid.UUID, refType string) error {
	if err := s.repo.DeleteByReference(ctx, refID, refType); err != nil {
		return err
	}
	if s.redisClient != nil {
		s.redisClient.Del(ctx, countKey(refType, refID))
	}
	return nil
}
