package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	leaderboard "runtoyou.app/runtoyou/internal/modules/leaderboard/service"
	profileDto "runtoyou.app/runtoyou/internal/modules/profile/dto"
	search "runtoyou.app/runtoyou/internal/modules/search/service"
	userRepo "runtoyou.app/runtoyou/internal/modules/user/repository"
	"runtoyou.app/runtoyou/pkg/apperror"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/storage"
)

var (
	ErrUserNotFound    = apperror.New(http.StatusNotFound, "User not found", apperror.ErrNotFound)
	ErrFollowSelf      = apperror.New(http.StatusBadRequest, "You cannot follow yourself", apperror.ErrInvalidInput)
	ErrQueryRequired   = apperror.New(http.StatusBadRequest, "Search query is required", apperror.ErrInvalidInput)
	ErrAvatarNotStored = apperror.New(http.StatusServiceUnavailable, "Image upload is not configured", storage.ErrNotConfigured)
)

const defaultSearchLimit = 20

type ProfileService interface {
	Me(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	GetByID(ctx context.Context, viewerID, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.UploadFile) (*profileDto.ProfileResponse, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, input profileDto.UpdatePreferencesInput) (*profileDto.ProfileResponse, error)
	Follow(ctx context.Context, userID, targetID uuid.UUID) (*profileDto.FollowResponse, error)
	Search(ctx context.Context, query profileDto.SearchQuery) ([]commonDto.UserSummary, error)
}

type profileService struct {
	repo         userRepo.UserRepository
	imageStorage storage.ImageStorage
	meili        search.MeiliSearchService
}

// NewProfileService builds the profile service. imageStorage and meili may be nil.
func NewProfileService(repo userRepo.UserRepository, imageStorage storage.ImageStorage, meili search.MeiliSearchService) ProfileService {
	return &profileService{
		repo:         repo,
		imageStorage: imageStorage,
		meili:        meili,
	}
}

func (s *profileService) findUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *profileService) Me(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, user, true, false)
}

func (s *profileService) GetByID(ctx context.Context, viewerID, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	self := viewerID == userID
	following := false
	if !self {
		following, err = s.repo.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, err
		}
	}
	return s.buildProfile(ctx, user, self, following)
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.UploadFile) (*profileDto.ProfileResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(input.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(input.LastName); v != "" {
		user.LastName = v
	}
	if v := strings.TrimSpace(input.Bio); v != "" {
		user.Bio = v
	}
	if v := strings.TrimSpace(input.Location); v != "" {
		user.Location = v
	}
	if v := strings.TrimSpace(input.FitnessGoals); v != "" {
		user.FitnessGoals = v
	}

	if avatar != nil && avatar.Reader != nil {
		if s.imageStorage == nil {
			return nil, ErrAvatarNotStored
		}
		url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, "avatars", avatar.FileName)
		if err != nil {
			return nil, err
		}
		old := user.ProfilePicture
		user.ProfilePicture = &url
		if old != nil && *old != "" {
			if err := s.imageStorage.DeleteImage(ctx, *old); err != nil {
				logger.L().Warn("delete old avatar failed", zap.String("user_id", userID.String()), zap.Error(err))
			}
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	if s.meili != nil {
		if err := s.meili.IndexUser(user); err != nil {
			logger.L().Warn("index user failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}

	return s.buildProfile(ctx, user, true, false)
}

func (s *profileService) UpdatePreferences(ctx context.Context, userID uuid.UUID, input profileDto.UpdatePreferencesInput) (*profileDto.ProfileResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.DistanceUnit != nil {
		user.Preferences.DistanceUnit = *input.DistanceUnit
	}
	if input.PaceUnit != nil {
		user.Preferences.PaceUnit = *input.PaceUnit
	}
	if input.PrivacySettings != nil {
		user.Preferences.PrivacySettings = *input.PrivacySettings
	}
	if input.Notifications != nil {
		user.Preferences.Notifications = *input.Notifications
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, user, true, false)
}

// Follow toggles the follow edge from userID to targetID.
func (s *profileService) Follow(ctx context.Context, userID, targetID uuid.UUID) (*profileDto.FollowResponse, error) {
	if userID == targetID {
		return nil, ErrFollowSelf
	}
	if _, err := s.findUser(ctx, targetID); err != nil {
		return nil, err
	}

	following, err := s.repo.IsFollowing(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}

	if following {
		if err := s.repo.Unfollow(ctx, userID, targetID); err != nil {
			return nil, err
		}
		return &profileDto.FollowResponse{Message: "User unfollowed successfully", Following: false}, nil
	}

	if err := s.repo.Follow(ctx, userID, targetID); err != nil {
		return nil, err
	}
	return &profileDto.FollowResponse{Message: "User followed successfully", Following: true}, nil
}

func (s *profileService) Search(ctx context.Context, query profileDto.SearchQuery) ([]commonDto.UserSummary, error) {
	q := strings.TrimSpace(query.Query)
	if q == "" {
		return nil, ErrQueryRequired
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	users, err := s.repo.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

func (s *profileService) buildProfile(ctx context.Context, user *entity.User, self, following bool) (*profileDto.ProfileResponse, error) {
	followers, err := s.repo.Followers(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	followings, err := s.repo.Following(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	res := &profileDto.ProfileResponse{
		ID:             user.ID.String(),
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Role:           user.Role.Name,
		ProfilePicture: user.ProfilePicture,
		Bio:            user.Bio,
		Location:       user.Location,
		FitnessGoals:   user.FitnessGoals,
		Stats:          user.Stats,
		Level:          leaderboard.LevelFor(user.Stats.TotalDistance),
		Followers:      summaries(followers),
		Following:      summaries(followings),
		IsFollowing:    following,
		CreatedAt:      user.CreatedAt,
	}
	if self {
		prefs := user.Preferences
		res.Email = user.Email
		res.Preferences = &prefs
	}
	return res, nil
}

func summaries(users []entity.User) []commonDto.UserSummary {
	out := make([]commonDto.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, commonDto.UserSummary{
			ID:             u.ID.String(),
			FirstName:      u.FirstName,
			LastName:       u.LastName,
			ProfilePicture: u.ProfilePicture,
		})
	}
	return out
}
