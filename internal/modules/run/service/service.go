package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	likeService "runtoyou.app/runtoyou/internal/modules/like/service"
	runDto "runtoyou.app/runtoyou/internal/modules/run/dto"
	runRepo "runtoyou.app/runtoyou/internal/modules/run/repository"
	userRepo "runtoyou.app/runtoyou/internal/modules/user/repository"
	"runtoyou.app/runtoyou/pkg/apperror"
	"runtoyou.app/runtoyou/pkg/database"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/metrics"
	"runtoyou.app/runtoyou/pkg/ratelimiter"
)

const (
	defaultPageSize = 10
	createAction    = "create_run"
)

var (
	ErrRunNotFound      = apperror.New(http.StatusNotFound, "Run not found", apperror.ErrNotFound)
	ErrCommentNotFound  = apperror.New(http.StatusNotFound, "Comment not found", apperror.ErrNotFound)
	ErrUserNotFound     = apperror.New(http.StatusNotFound, "User not found", apperror.ErrNotFound)
	ErrAccessDenied     = apperror.New(http.StatusForbidden, "Access denied", apperror.ErrForbidden)
	ErrNotAuthorized    = apperror.New(http.StatusForbidden, "Not authorized", apperror.ErrForbidden)
	ErrCommentRequired  = apperror.New(http.StatusBadRequest, "Comment text is required", apperror.ErrInvalidInput)
	ErrDistanceRequired = apperror.New(http.StatusBadRequest, "Distance and duration must be positive", apperror.ErrInvalidInput)
)

type RunService interface {
	Create(ctx context.Context, userID uuid.UUID, req runDto.CreateRunRequest) (*entity.Run, error)
	ListForUser(ctx context.Context, viewerID, userID uuid.UUID, query runDto.ListQuery) (*runDto.ListResponse, error)
	Feed(ctx context.Context, userID uuid.UUID, query runDto.ListQuery) (*runDto.ListResponse, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*entity.Run, error)
	Update(ctx context.Context, userID, id uuid.UUID, req runDto.UpdateRunRequest) (*entity.Run, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Like(ctx context.Context, userID, id uuid.UUID) ([]uuid.UUID, error)
	Comment(ctx context.Context, userID, id uuid.UUID, req runDto.CommentRequest) ([]entity.RunComment, error)
	DeleteComment(ctx context.Context, userID, id, commentID uuid.UUID) ([]entity.RunComment, error)
}

type runService struct {
	repo        runRepo.RunRepository
	userRepo    userRepo.UserRepository
	likes       likeService.LikeService
	limiter     *ratelimiter.Limiter
	createEvery time.Duration
	transactor  database.Transactor
	sanitizer   *bluemonday.Policy
}

// NewRunService builds the run service. A nil limiter or a zero createEvery disables the create cooldown.
func NewRunService(
	repo runRepo.RunRepository,
	userRepo userRepo.UserRepository,
	likes likeService.LikeService,
	limiter *ratelimiter.Limiter,
	createEvery time.Duration,
	transactor database.Transactor,
) RunService {
	return &runService{
		repo:        repo,
		userRepo:    userRepo,
		likes:       likes,
		limiter:     limiter,
		createEvery: createEvery,
		transactor:  transactor,
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (s *runService) findRun(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	run, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (s *runService) Create(ctx context.Context, userID uuid.UUID, req runDto.CreateRunRequest) (*entity.Run, error) {
	if req.Distance <= 0 || req.Duration <= 0 {
		return nil, ErrDistanceRequired
	}

	release, err := s.limiter.Acquire(ctx, userID, createAction, s.createEvery)
	if err != nil {
		return nil, err
	}

	pace := req.Pace
	if pace <= 0 {
		pace = req.Duration / req.Distance
	}

	run := &entity.Run{
		UserID:         userID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Distance:       req.Distance,
		Duration:       req.Duration,
		Pace:           pace,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		RouteID:        req.Route,
		RouteData:      req.RouteData,
		Weather:        req.WeatherConditions,
		ElevationGain:  req.ElevationGain,
		CaloriesBurned: req.CaloriesBurned,
		Images:         nonNil(req.Images),
		IsPrivate:      req.IsPrivate,
		Tags:           nonNil(req.Tags),
		ChallengeID:    req.Challenge,
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, run); err != nil {
			return err
		}
		return s.userRepo.ApplyStats(ctx, userID, userRepo.StatsDelta{
			Distance:       run.Distance,
			Runs:           1,
			Time:           run.Duration,
			ElevationGain:  run.ElevationGain,
			CaloriesBurned: run.CaloriesBurned,
		})
	})
	if err != nil {
		release()
		return nil, err
	}

	metrics.RunsRecordedTotal.Inc()
	logger.L().Info("run recorded",
		zap.String("user_id", userID.String()),
		zap.String("run_id", run.ID.String()),
		zap.Float64("distance", run.Distance),
	)

	run.Likes = []uuid.UUID{}
	run.Comments = []entity.RunComment{}
	return run, nil
}

// ListForUser hides private runs unless the viewer owns them.
func (s *runService) ListForUser(ctx context.Context, viewerID, userID uuid.UUID, query runDto.ListQuery) (*runDto.ListResponse, error) {
	offset := query.Normalize(defaultPageSize)

	runs, total, err := s.repo.FindByUser(ctx, userID, viewerID == userID, offset, query.Limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachLikes(ctx, runs); err != nil {
		return nil, err
	}

	return &runDto.ListResponse{
		Runs:        runs,
		TotalPages:  commonDto.TotalPages(total, query.Limit),
		CurrentPage: query.Page,
		Total:       total,
	}, nil
}

func (s *runService) Feed(ctx context.Context, userID uuid.UUID, query runDto.ListQuery) (*runDto.ListResponse, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	offset := query.Normalize(defaultPageSize)
	runs, total, err := s.repo.FindFeed(ctx, userID, offset, query.Limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachLikes(ctx, runs); err != nil {
		return nil, err
	}

	return &runDto.ListResponse{
		Runs:        runs,
		TotalPages:  commonDto.TotalPages(total, query.Limit),
		CurrentPage: query.Page,
		Total:       total,
	}, nil
}

func (s *runService) Get(ctx context.Context, userID, id uuid.UUID) (*entity.Run, error) {
	run, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	if run.IsPrivate && run.UserID != userID {
		return nil, ErrAccessDenied
	}

	likers, err := s.likes.Likers(ctx, run.ID, entity.LikeRefRun)
	if err != nil {
		return nil, err
	}
	run.Likes = likers
	return run, nil
}

func (s *runService) Update(ctx context.Context, userID, id uuid.UUID, req runDto.UpdateRunRequest) (*entity.Run, error) {
	run, err := s.findRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.UserID != userID {
		return nil, ErrNotAuthorized
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		run.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		run.Description = *req.Description
	}
	if req.IsPrivate != nil {
		run.IsPrivate = *req.IsPrivate
	}
	if req.Tags != nil {
		run.Tags = req.Tags
	}

	if err := s.repo.Update(ctx, run); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete reverses the run's contribution to the owner's stats. Challenge progress is kept.
func (s *runService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	run, err := s.findRun(ctx, id)
	if err != nil {
		return err
	}
	if run.UserID != userID {
		return ErrNotAuthorized
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.ApplyStats(ctx, userID, userRepo.StatsDelta{
			Distance:       -run.Distance,
			Runs:           -1,
			Time:           -run.Duration,
			ElevationGain:  -run.ElevationGain,
			CaloriesBurned: -run.CaloriesBurned,
		}); err != nil {
			return err
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	if err := s.likes.Clear(ctx, id, entity.LikeRefRun); err != nil {
		logger.L().Warn("clear run likes failed", zap.String("run_id", id.String()), zap.Error(err))
	}
	return nil
}

func (s *runService) Like(ctx context.Context, userID, id uuid.UUID) ([]uuid.UUID, error) {
	run, err := s.findRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.IsPrivate && run.UserID != userID {
		return nil, ErrAccessDenied
	}

	res, err := s.likes.Toggle(ctx, userID, id, entity.LikeRefRun)
	if err != nil {
		return nil, err
	}
	return res.Likers, nil
}

func (s *runService) Comment(ctx context.Context, userID, id uuid.UUID, req runDto.CommentRequest) ([]entity.RunComment, error) {
	text := strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if text == "" {
		return nil, ErrCommentRequired
	}

	run, err := s.findRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.IsPrivate && run.UserID != userID {
		return nil, ErrAccessDenied
	}

	if err := s.repo.AddComment(ctx, &entity.RunComment{
		RunID:  id,
		UserID: userID,
		Text:   text,
	}); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, id)
}

// DeleteComment is allowed for the comment author and the run owner.
func (s *runService) DeleteComment(ctx context.Context, userID, id, commentID uuid.UUID) ([]entity.RunComment, error) {
	run, err := s.findRun(ctx, id)
	if err != nil {
		return nil, err
	}

	comment, err := s.repo.FindComment(ctx, id, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	if comment.UserID != userID && run.UserID != userID {
		return nil, ErrNotAuthorized
	}

	if err := s.repo.DeleteComment(ctx, commentID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, id)
}

func (s *runService) attachLikes(ctx context.Context, runs []entity.Run) error {
	if len(runs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(runs))
	for i := range runs {
		ids[i] = runs[i].ID
	}

	likers, err := s.likes.LikersFor(ctx, ids, entity.LikeRefRun)
	if err != nil {
		return err
	}
	for i := range runs {
		runs[i].Likes = nonNil(likers[runs[i].ID])
	}
	return nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
