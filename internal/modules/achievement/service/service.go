package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	achievementDto "runtoyou.app/runtoyou/internal/modules/achievement/dto"
	achievementRepo "runtoyou.app/runtoyou/internal/modules/achievement/repository"
	presence "runtoyou.app/runtoyou/internal/modules/presence/service"
	"runtoyou.app/runtoyou/pkg/apperror"
	"runtoyou.app/runtoyou/pkg/database"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/metrics"
)

const defaultPageSize = 20

var (
	ErrAchievementNotFound = apperror.New(http.StatusNotFound, "Achievement not found", apperror.ErrNotFound)
	ErrUserNotFound        = apperror.New(http.StatusNotFound, "User not found", apperror.ErrNotFound)
)

const hiddenDescription = "This achievement is hidden. Complete the required tasks to unlock it."

// Linker ties an achievement to a challenge and awards it on completion.
// The create, award and delete methods join the transaction carried by ctx.
type Linker interface {
	CreateForChallenge(ctx context.Context, challenge *entity.Challenge) (*entity.Achievement, error)
	AwardForChallenge(ctx context.Context, challengeID, userID uuid.UUID) (*entity.Achievement, bool, error)
	DeleteForChallenge(ctx context.Context, challengeID uuid.UUID) error
	NotifyUnlocked(ctx context.Context, userID uuid.UUID, achievement *entity.Achievement)
}

type AchievementService interface {
	Linker
	List(ctx context.Context, q achievementDto.ListQuery) (*achievementDto.ListResponse, error)
	Get(ctx context.Context, viewerID, id uuid.UUID) (any, error)
	ForUser(ctx context.Context, userID uuid.UUID, q achievementDto.ListQuery) (*achievementDto.EarnedListResponse, error)
	Create(ctx context.Context, req achievementDto.CreateAchievementRequest) (*entity.Achievement, error)
	Check(ctx context.Context, userID uuid.UUID) (*achievementDto.CheckResponse, error)
}

type achievementService struct {
	repo       achievementRepo.Repository
	transactor database.Transactor
	publisher  presence.Publisher
	now        func() time.Time
}

func NewAchievementService(repo achievementRepo.Repository, transactor database.Transactor, publisher presence.Publisher) AchievementService {
	return &achievementService{
		repo:       repo,
		transactor: transactor,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *achievementService) CreateForChallenge(ctx context.Context, challenge *entity.Challenge) (*entity.Achievement, error) {
	challengeID := challenge.ID
	achievement := &entity.Achievement{
		Name:          "Complete " + challenge.Name,
		Description:   fmt.Sprintf("Successfully complete the %q challenge", challenge.Name),
		Category:      entity.AchievementCategoryChallenge,
		Level:         1,
		Criteria:      entity.Criteria{Type: entity.CriteriaCustom, Value: 1, Unit: "completion", TimeFrame: "custom"},
		Icon:          challenge.Badge.ImageURL,
		BadgeURL:      challenge.Badge.ImageURL,
		UnlockMessage: fmt.Sprintf("Congratulations! You've completed the %q challenge!", challenge.Name),
		Points:        100,
		IsSystem:      false,
		ChallengeID:   &challengeID,
		Rarity:        entity.RarityUncommon,
	}
	if err := s.repo.Create(ctx, achievement); err != nil {
		return nil, fmt.Errorf("create challenge achievement: %w", err)
	}
	return achievement, nil
}

// AwardForChallenge grants the challenge's linked achievement to userID. It is a
// no-op when the challenge has none or the user already holds it.
func (s *achievementService) AwardForChallenge(ctx context.Context, challengeID, userID uuid.UUID) (*entity.Achievement, bool, error) {
	achievement, err := s.repo.FindByChallengeID(ctx, challengeID)
	if err != nil {
		return nil, false, fmt.Errorf("find challenge achievement: %w", err)
	}
	if achievement == nil {
		return nil, false, nil
	}

	earned, err := s.repo.HasEarned(ctx, achievement.ID, userID)
	if err != nil {
		return nil, false, err
	}
	if earned {
		return achievement, false, nil
	}

	added, err := s.repo.AddEarner(ctx, &entity.AchievementEarner{
		AchievementID: achievement.ID,
		UserID:        userID,
		EarnedAt:      s.now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("award achievement: %w", err)
	}
	return achievement, added, nil
}

func (s *achievementService) DeleteForChallenge(ctx context.Context, challengeID uuid.UUID) error {
	return s.repo.DeleteByChallengeID(ctx, challengeID)
}

func (s *achievementService) List(ctx context.Context, q achievementDto.ListQuery) (*achievementDto.ListResponse, error) {
	filter, err := toFilter(&q)
	if err != nil {
		return nil, err
	}

	achievements, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &achievementDto.ListResponse{
		Achievements: achievements,
		TotalPages:   commonDto.TotalPages(total, q.Limit),
		CurrentPage:  q.Page,
		Total:        total,
	}, nil
}

func (s *achievementService) Get(ctx context.Context, viewerID, id uuid.UUID) (any, error) {
	achievement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAchievementNotFound
		}
		return nil, err
	}

	if achievement.IsHidden && !earnedBy(achievement, viewerID) {
		return &achievementDto.MaskedAchievement{
			ID:          achievement.ID.String(),
			Name:        "???",
			Description: hiddenDescription,
			Category:    achievement.Category,
			Level:       achievement.Level,
			IsHidden:    true,
			Rarity:      achievement.Rarity,
		}, nil
	}
	return achievement, nil
}

func (s *achievementService) ForUser(ctx context.Context, userID uuid.UUID, q achievementDto.ListQuery) (*achievementDto.EarnedListResponse, error) {
	if _, err := s.repo.UserMetrics(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// isHidden does not filter a user's own list
	q.IsHidden = ""
	filter, err := toFilter(&q)
	if err != nil {
		return nil, err
	}

	earned, total, err := s.repo.FindEarnedByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	return &achievementDto.EarnedListResponse{
		Achievements: earned,
		TotalPages:   commonDto.TotalPages(total, q.Limit),
		CurrentPage:  q.Page,
		Total:        total,
	}, nil
}

func (s *achievementService) Create(ctx context.Context, req achievementDto.CreateAchievementRequest) (*entity.Achievement, error) {
	achievement := &entity.Achievement{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Level:       req.Level,
		Criteria: entity.Criteria{
			Type:      req.Criteria.Type,
			Value:     req.Criteria.Value,
			Unit:      req.Criteria.Unit,
			TimeFrame: req.Criteria.TimeFrame,
		},
		Icon:          req.Icon,
		BadgeURL:      req.BadgeURL,
		UnlockMessage: req.UnlockMessage,
		Points:        req.Points,
		IsSystem:      true,
		Rarity:        req.Rarity,
	}
	if achievement.Level == 0 {
		achievement.Level = 1
	}
	if achievement.Criteria.TimeFrame == "" {
		achievement.Criteria.TimeFrame = "all_time"
	}
	if achievement.Rarity == "" {
		achievement.Rarity = entity.RarityCommon
	}
	if req.IsHidden != nil {
		achievement.IsHidden = *req.IsHidden
	}

	if err := s.repo.Create(ctx, achievement); err != nil {
		return nil, fmt.Errorf("create achievement: %w", err)
	}
	return achievement, nil
}

// Check evaluates every unearned system achievement against the user's figures
// and awards the ones that are met.
func (s *achievementService) Check(ctx context.Context, userID uuid.UUID) (*achievementDto.CheckResponse, error) {
	earned := []entity.Achievement{}

	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.repo.UserMetrics(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		candidates, err := s.repo.FindUnearnedSystem(ctx, userID)
		if err != nil {
			return err
		}

		for _, a := range candidates {
			if !CriteriaMet(a, m) {
				continue
			}
			added, err := s.repo.AddEarner(ctx, &entity.AchievementEarner{
				AchievementID: a.ID,
				UserID:        userID,
				EarnedAt:      s.now(),
			})
			if err != nil {
				return err
			}
			if added {
				earned = append(earned, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range earned {
		s.NotifyUnlocked(ctx, userID, &earned[i])
	}

	msg := "No new achievements"
	if len(earned) > 0 {
		msg = "New achievements earned!"
	}
	return &achievementDto.CheckResponse{Message: msg, EarnedAchievements: earned}, nil
}

// NotifyUnlocked records the award and pushes it to the user's presence channel.
// Failures are logged only.
func (s *achievementService) NotifyUnlocked(ctx context.Context, userID uuid.UUID, achievement *entity.Achievement) {
	metrics.AchievementsAwardedTotal.WithLabelValues(achievement.Category).Inc()

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, presence.UserChannel(userID), presence.EventAchievementUnlocked, achievement); err != nil {
		logger.L().Warn("publish achievement unlocked failed",
			zap.String("user_id", userID.String()),
			zap.String("achievement_id", achievement.ID.String()),
			zap.Error(err),
		)
	}
}

// CriteriaMet reports whether m satisfies a system achievement.
// Streaks are approximated by the total run count.
func CriteriaMet(a entity.Achievement, m *achievementRepo.Metrics) bool {
	c := a.Criteria
	switch a.Category {
	case entity.AchievementCategoryDistance:
		switch c.Type {
		case entity.CriteriaCumulative:
			return m.Stats.TotalDistance >= c.Value
		case entity.CriteriaSingle:
			return m.LongestRun > 0 && m.LongestRun >= c.Value
		}
	case entity.AchievementCategoryDuration:
		switch c.Type {
		case entity.CriteriaCumulative:
			return m.Stats.TotalTime >= c.Value
		case entity.CriteriaSingle:
			return m.LongestRunTime > 0 && m.LongestRunTime >= c.Value
		}
	case entity.AchievementCategoryElevation:
		if c.Type == entity.CriteriaCumulative {
			return m.Stats.TotalElevationGain >= c.Value
		}
	case entity.AchievementCategoryStreak:
		if c.Type == entity.CriteriaStreak {
			return float64(m.Stats.TotalRuns) >= c.Value
		}
	case entity.AchievementCategorySocial:
		switch c.Unit {
		case "followers":
			return float64(m.Followers) >= c.Value
		case "following":
			return float64(m.Following) >= c.Value
		}
	case entity.AchievementCategoryMilestone:
		if c.Unit == "runs" {
			return float64(m.Stats.TotalRuns) >= c.Value
		}
	}
	return false
}

func earnedBy(a *entity.Achievement, userID uuid.UUID) bool {
	for _, e := range a.EarnedBy {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

func toFilter(q *achievementDto.ListQuery) (achievementRepo.Filter, error) {
	offset := q.Normalize(defaultPageSize)
	f := achievementRepo.Filter{
		Categories: splitList(q.Category),
		Rarities:   splitList(q.Rarity),
		Offset:     offset,
		Limit:      q.Limit,
	}

	for _, lv := range splitList(q.Level) {
		n, err := strconv.Atoi(lv)
		if err != nil {
			return f, apperror.New(http.StatusBadRequest, "Invalid level filter", apperror.ErrInvalidInput)
		}
		f.Levels = append(f.Levels, n)
	}

	switch q.IsHidden {
	case "true":
		v := true
		f.IsHidden = &v
	case "false":
		v := false
		f.IsHidden = &v
	}
	return f, nil
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
