package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	achievement "runtoyou.app/runtoyou/internal/modules/achievement/service"
	challengeDto "runtoyou.app/runtoyou/internal/modules/challenge/dto"
	challengeRepo "runtoyou.app/runtoyou/internal/modules/challenge/repository"
	presence "runtoyou.app/runtoyou/internal/modules/presence/service"
	runRepo "runtoyou.app/runtoyou/internal/modules/run/repository"
	"runtoyou.app/runtoyou/pkg/apperror"
	"runtoyou.app/runtoyou/pkg/database"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/metrics"
)

const defaultPageSize = 10

var (
	ErrChallengeNotFound  = apperror.New(http.StatusNotFound, "Challenge not found", apperror.ErrNotFound)
	ErrRunNotFound        = apperror.New(http.StatusNotFound, "Run not found", apperror.ErrNotFound)
	ErrRunIDRequired      = apperror.New(http.StatusBadRequest, "Run ID is required", apperror.ErrInvalidInput)
	ErrNotParticipant     = apperror.New(http.StatusBadRequest, "Not a participant of this challenge", apperror.ErrInvalidState)
	ErrRunNotOwned        = apperror.New(http.StatusForbidden, "Cannot use someone else's run", apperror.ErrForbidden)
	ErrOutOfWindow        = apperror.New(http.StatusBadRequest, "Run is outside of challenge period", apperror.ErrInvalidState)
	ErrProgressConflict   = apperror.New(http.StatusInternalServerError, "Server error", apperror.ErrInternal)
	ErrAccessDenied       = apperror.New(http.StatusForbidden, "Access denied", apperror.ErrForbidden)
	ErrNotCreator         = apperror.New(http.StatusForbidden, "Not authorized", apperror.ErrForbidden)
	ErrNotActive          = apperror.New(http.StatusBadRequest, "Challenge is not active", apperror.ErrInvalidState)
	ErrAlreadyJoined      = apperror.New(http.StatusBadRequest, "Already joined this challenge", apperror.ErrInvalidState)
	ErrInviteOnly         = apperror.New(http.StatusForbidden, "This challenge is invite-only", apperror.ErrForbidden)
	ErrCreatorCannotLeave = apperror.New(http.StatusBadRequest, "Creator cannot leave the challenge, delete it instead", apperror.ErrInvalidState)
	ErrUserIDsRequired    = apperror.New(http.StatusBadRequest, "User IDs required", apperror.ErrInvalidInput)
	ErrGoalRequired       = apperror.New(http.StatusBadRequest, "Goal value and unit are required", apperror.ErrInvalidInput)
)

type ChallengeService interface {
	Create(ctx context.Context, userID uuid.UUID, req challengeDto.CreateChallengeRequest) (*entity.Challenge, error)
	List(ctx context.Context, userID uuid.UUID, filter challengeDto.ListFilter) (*challengeDto.ListResponse, error)
	Mine(ctx context.Context, userID uuid.UUID, filter challengeDto.MineFilter) (*challengeDto.ListResponse, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*entity.Challenge, error)
	Update(ctx context.Context, userID, id uuid.UUID, req challengeDto.UpdateChallengeRequest) (*entity.Challenge, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Join(ctx context.Context, userID, id uuid.UUID) (*entity.Challenge, error)
	Leave(ctx context.Context, userID, id uuid.UUID) error
	Invite(ctx context.Context, userID, id uuid.UUID, req challengeDto.InviteRequest) (*entity.Challenge, error)
	UpdateProgress(ctx context.Context, userID, id uuid.UUID, req challengeDto.ProgressRequest) (*challengeDto.ProgressResponse, error)
	DeactivateExpired(ctx context.Context) (int64, error)
}

type challengeService struct {
	repo       challengeRepo.Repository
	runRepo    runRepo.RunRepository
	linker     achievement.Linker
	transactor database.Transactor
	publisher  presence.Publisher
	now        func() time.Time
}

func NewChallengeService(
	repo challengeRepo.Repository,
	runRepo runRepo.RunRepository,
	linker achievement.Linker,
	transactor database.Transactor,
	publisher presence.Publisher,
) ChallengeService {
	return &challengeService{
		repo:       repo,
		runRepo:    runRepo,
		linker:     linker,
		transactor: transactor,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *challengeService) Create(ctx context.Context, userID uuid.UUID, req challengeDto.CreateChallengeRequest) (*entity.Challenge, error) {
	if req.Goal.Value <= 0 || strings.TrimSpace(req.Goal.Unit) == "" {
		return nil, ErrGoalRequired
	}

	challenge := &entity.Challenge{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CreatorID:   userID,
		Type:        req.Type,
		Goal:        entity.Goal{Value: req.Goal.Value, Unit: req.Goal.Unit},
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		IsActive:    true,
		Visibility:  req.Visibility,
		RouteID:     req.RouteID,
		Rules:       req.Rules,
		Rewards:     req.Rewards,
		Category:    req.Category,
		Tags:        req.Tags,
		Updates:     []entity.ChallengeUpdate{},
	}
	challenge.Participants = []entity.ChallengeParticipant{{UserID: userID, JoinedAt: s.now()}}
	if challenge.Visibility == "" {
		challenge.Visibility = entity.VisibilityPublic
	}
	if challenge.Category == "" {
		challenge.Category = "running"
	}
	if challenge.Tags == nil {
		challenge.Tags = []string{}
	}
	if req.Badge != nil {
		challenge.Badge = entity.Badge{
			Name:        req.Badge.Name,
			ImageURL:    req.Badge.ImageURL,
			Description: req.Badge.Description,
		}
	}

	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, challenge); err != nil {
			return fmt.Errorf("create challenge: %w", err)
		}

		var invites []entity.ChallengeInvite
		for _, invitee := range req.InvitedUsers {
			if invitee == userID {
				continue
			}
			invites = append(invites, entity.ChallengeInvite{ChallengeID: challenge.ID, UserID: invitee})
		}
		if err := s.repo.AddInvites(ctx, invites); err != nil {
			return fmt.Errorf("invite users: %w", err)
		}

		if err := s.repo.ReplaceLeaderboard(ctx, challenge.ID, BuildLeaderboard(challenge.ID, challenge.Participants)); err != nil {
			return fmt.Errorf("init leaderboard: %w", err)
		}

		if challenge.Badge.Name != "" && challenge.Badge.ImageURL != "" {
			if _, err := s.linker.CreateForChallenge(ctx, challenge); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, challenge.ID)
}

func (s *challengeService) List(ctx context.Context, userID uuid.UUID, filter challengeDto.ListFilter) (*challengeDto.ListResponse, error) {
	offset := filter.Normalize(defaultPageSize)

	challenges, total, err := s.repo.FindAll(ctx, challengeRepo.ListQuery{
		ViewerID:   userID,
		Types:      splitList(filter.Type),
		Categories: splitList(filter.Category),
		Active:     parseBool(filter.Active),
		Visibility: filter.Visibility,
		Search:     strings.TrimSpace(filter.Search),
		SortBy:     filter.SortBy,
		Now:        s.now(),
		Offset:     offset,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &challengeDto.ListResponse{
		Challenges:  challenges,
		TotalPages:  commonDto.TotalPages(total, filter.Limit),
		CurrentPage: filter.Page,
		Total:       total,
	}, nil
}

func (s *challengeService) Mine(ctx context.Context, userID uuid.UUID, filter challengeDto.MineFilter) (*challengeDto.ListResponse, error) {
	offset := filter.Normalize(defaultPageSize)

	challenges, total, err := s.repo.FindByUser(ctx, userID, parseBool(filter.Active), s.now(), offset, filter.Limit)
	if err != nil {
		return nil, err
	}

	return &challengeDto.ListResponse{
		Challenges:  challenges,
		TotalPages:  commonDto.TotalPages(total, filter.Limit),
		CurrentPage: filter.Page,
		Total:       total,
	}, nil
}

func (s *challengeService) Get(ctx context.Context, userID, id uuid.UUID) (*entity.Challenge, error) {
	challenge, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if challenge.Visibility == entity.VisibilityPrivate &&
		challenge.CreatorID != userID &&
		challenge.Participant(userID) == nil &&
		!challenge.IsInvited(userID) {
		return nil, ErrAccessDenied
	}
	return challenge, nil
}

func (s *challengeService) Update(ctx context.Context, userID, id uuid.UUID, req challengeDto.UpdateChallengeRequest) (*entity.Challenge, error) {
	challenge, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if challenge.CreatorID != userID {
		return nil, ErrNotCreator
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		challenge.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		challenge.Description = *req.Description
	}
	if req.IsActive != nil {
		challenge.IsActive = *req.IsActive
	}
	if req.Visibility != nil && *req.Visibility != "" {
		challenge.Visibility = *req.Visibility
	}
	if req.Rules != nil && *req.Rules != "" {
		challenge.Rules = *req.Rules
	}
	if req.Rewards != nil && *req.Rewards != "" {
		challenge.Rewards = *req.Rewards
	}
	if req.Tags != nil {
		challenge.Tags = req.Tags
	}
	if req.Badge != nil {
		challenge.Badge = entity.Badge{
			Name:        req.Badge.Name,
			ImageURL:    req.Badge.ImageURL,
			Description: req.Badge.Description,
		}
	}
	if req.Updates != nil && strings.TrimSpace(req.Updates.Message) != "" {
		note := entity.ChallengeUpdate{Message: strings.TrimSpace(req.Updates.Message), Date: s.now()}
		challenge.Updates = append([]entity.ChallengeUpdate{note}, challenge.Updates...)
	}

	if err := s.repo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("update challenge: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

func (s *challengeService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	challenge, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if challenge.CreatorID != userID {
		return ErrNotCreator
	}

	return s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.linker.DeleteForChallenge(ctx, id); err != nil {
			return fmt.Errorf("delete challenge achievement: %w", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete challenge: %w", err)
		}
		return nil
	})
}

func (s *challengeService) Join(ctx context.Context, userID, id uuid.UUID) (*entity.Challenge, error) {
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		challenge, err := s.lock(ctx, id)
		if err != nil {
			return err
		}

		if !challenge.IsActive || challenge.EndDate.Before(s.now()) {
			return ErrNotActive
		}
		if challenge.Participant(userID) != nil {
			return ErrAlreadyJoined
		}

		if challenge.Visibility == entity.VisibilityInviteOnly && challenge.CreatorID != userID {
			full, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if !full.IsInvited(userID) {
				return ErrInviteOnly
			}
		}

		participant := entity.ChallengeParticipant{ChallengeID: id, UserID: userID, JoinedAt: s.now()}
		if err := s.repo.AddParticipant(ctx, &participant); err != nil {
			return fmt.Errorf("add participant: %w", err)
		}
		if err := s.repo.RemoveInvite(ctx, id, userID); err != nil {
			return err
		}
		return s.rebuildLeaderboard(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, id)
}

func (s *challengeService) Leave(ctx context.Context, userID, id uuid.UUID) error {
	return s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		challenge, err := s.lock(ctx, id)
		if err != nil {
			return err
		}

		if challenge.Participant(userID) == nil {
			return ErrNotParticipant
		}
		if challenge.CreatorID == userID {
			return ErrCreatorCannotLeave
		}

		if err := s.repo.RemoveParticipant(ctx, id, userID); err != nil {
			return fmt.Errorf("remove participant: %w", err)
		}
		return s.rebuildLeaderboard(ctx, id)
	})
}

func (s *challengeService) Invite(ctx context.Context, userID, id uuid.UUID, req challengeDto.InviteRequest) (*entity.Challenge, error) {
	if len(req.UserIDs) == 0 {
		return nil, ErrUserIDsRequired
	}

	challenge, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if challenge.CreatorID != userID {
		return nil, ErrNotCreator
	}

	seen := make(map[uuid.UUID]bool, len(req.UserIDs))
	var invites []entity.ChallengeInvite
	for _, invitee := range req.UserIDs {
		if seen[invitee] || challenge.Participant(invitee) != nil || challenge.IsInvited(invitee) {
			continue
		}
		seen[invitee] = true
		invites = append(invites, entity.ChallengeInvite{ChallengeID: id, UserID: invitee})
	}

	if err := s.repo.AddInvites(ctx, invites); err != nil {
		return nil, fmt.Errorf("invite users: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

// DeactivateExpired flags every active challenge whose end date has passed.
func (s *challengeService) DeactivateExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("deactivate expired challenges: %w", err)
	}
	if n > 0 {
		logger.L().Info("challenges deactivated", zap.Int64("count", n))
	}
	return n, nil
}

func (s *challengeService) find(ctx context.Context, id uuid.UUID) (*entity.Challenge, error) {
	challenge, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

func (s *challengeService) lock(ctx context.Context, id uuid.UUID) (*entity.Challenge, error) {
	challenge, err := s.repo.FindForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return challenge, nil
}

func (s *challengeService) rebuildLeaderboard(ctx context.Context, id uuid.UUID) error {
	participants, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return err
	}
	board := BuildLeaderboard(id, participants)
	if err := s.repo.ReplaceLeaderboard(ctx, id, board); err != nil {
		return fmt.Errorf("rebuild leaderboard: %w", err)
	}
	metrics.LeaderboardSize.Observe(float64(len(board)))
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) *bool {
	switch s {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
