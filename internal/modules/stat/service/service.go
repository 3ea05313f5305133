package service

import (
	"context"

	statDto "runtoyou.app/runtoyou/internal/modules/stat/dto"
	statRepo "runtoyou.app/runtoyou/internal/modules/stat/repository"
	userRepo "runtoyou.app/runtoyou/internal/modules/user/repository"
)

type StatService interface {
	GetTotalUsers(ctx context.Context) (int64, error)
	GetCommunityStats(ctx context.Context) (*statDto.CommunityStats, error)
}

type statService struct {
	repo     statRepo.StatRepository
	userRepo userRepo.UserRepository
}

func NewStatService(repo statRepo.StatRepository, userRepo userRepo.UserRepository) StatService {
	return &statService{
		repo:     repo,
		userRepo: userRepo,
	}
}

func (s *statService) GetTotalUsers(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

func (s *statService) GetCommunityStats(ctx context.Context) (*statDto.CommunityStats, error) {
	users, err := s.GetTotalUsers(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.RunTotals(ctx)
	if err != nil {
		return nil, err
	}
	challenges, err := s.repo.CountActiveChallenges(ctx)
	if err != nil {
		return nil, err
	}
	routes, err := s.repo.CountPublicRoutes(ctx)
	if err != nil {
		return nil, err
	}

	return &statDto.CommunityStats{
		TotalUsers:         users,
		TotalRuns:          totals.Runs,
		TotalDistance:      totals.Distance,
		TotalDuration:      totals.Duration,
		TotalElevationGain: totals.ElevationGain,
		ActiveChallenges:   challenges,
		PublicRoutes:       routes,
	}, nil
}
