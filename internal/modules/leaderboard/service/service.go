package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	leaderboardDto "runtoyou.app/runtoyou/internal/modules/leaderboard/dto"
	leaderboardRepo "runtoyou.app/runtoyou/internal/modules/leaderboard/repository"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
	"runtoyou.app/runtoyou/pkg/logger"
)

const (
	defaultLimit = 10
	cacheTTL     = time.Minute
)

type LeaderboardService interface {
	Get(ctx context.Context, q leaderboardDto.Query) (*leaderboardDto.LeaderboardResponse, error)
}

type leaderboardService struct {
	repo        leaderboardRepo.LeaderboardRepository
	redisClient *redis.Client
	now         func() time.Time
}

// NewLeaderboardService builds the service. With a redis client, responses
// are cached for a minute per metric, timeframe and limit.
func NewLeaderboardService(repo leaderboardRepo.LeaderboardRepository, redisClient *redis.Client) LeaderboardService {
	return &leaderboardService{
		repo:        repo,
		redisClient: redisClient,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func cacheKey(q leaderboardDto.Query) string {
	return fmt.Sprintf("leaderboard:%s:%s:%d", q.Metric, q.Timeframe, q.Limit)
}

func (s *leaderboardService) Get(ctx context.Context, q leaderboardDto.Query) (*leaderboardDto.LeaderboardResponse, error) {
	if q.Metric == "" {
		q.Metric = leaderboardDto.MetricDistance
	}
	if q.Timeframe == "" {
		q.Timeframe = leaderboardDto.TimeframeAllTime
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}

	if cached, ok := s.fromCache(ctx, q); ok {
		return cached, nil
	}

	now := s.now()
	var (
		standings []leaderboardRepo.Standing
		err       error
	)
	switch q.Timeframe {
	case leaderboardDto.TimeframeWeekly:
		standings, err = s.repo.TopSince(ctx, q.Metric, now.AddDate(0, 0, -7), q.Limit)
	case leaderboardDto.TimeframeMonthly:
		standings, err = s.repo.TopSince(ctx, q.Metric, now.AddDate(0, -1, 0), q.Limit)
	default:
		standings, err = s.repo.TopAllTime(ctx, q.Metric, q.Limit)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(standings))
	for i, st := range standings {
		ids[i] = st.UserID
	}
	weekly, err := s.repo.DistanceSince(ctx, ids, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}

	res := &leaderboardDto.LeaderboardResponse{
		Metric:    q.Metric,
		Timeframe: q.Timeframe,
		Entries:   make([]leaderboardDto.LeaderboardEntry, len(standings)),
	}
	for i, st := range standings {
		rank := i + 1
		if i > 0 && st.Value == standings[i-1].Value {
			rank = res.Entries[i-1].Rank
		}
		res.Entries[i] = leaderboardDto.LeaderboardEntry{
			User: commonDto.UserSummary{
				ID:             st.UserID.String(),
				FirstName:      st.FirstName,
				LastName:       st.LastName,
				ProfilePicture: st.ProfilePicture,
			},
			Value:    st.Value,
			Rank:     rank,
			Position: i + 1,
			Level:    LevelWithWeekly(st.TotalDistance, weekly[st.UserID]),
		}
	}

	s.toCache(ctx, q, res)
	return res, nil
}

func (s *leaderboardService) fromCache(ctx context.Context, q leaderboardDto.Query) (*leaderboardDto.LeaderboardResponse, bool) {
	if s.redisClient == nil {
		return nil, false
	}
	raw, err := s.redisClient.Get(ctx, cacheKey(q)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("leaderboard cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var res leaderboardDto.LeaderboardResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (s *leaderboardService) toCache(ctx context.Context, q leaderboardDto.Query, res *leaderboardDto.LeaderboardResponse) {
	if s.redisClient == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, cacheKey(q), raw, cacheTTL).Err(); err != nil {
		logger.L().Warn("leaderboard cache write failed", zap.Error(err))
	}
}
