package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	search "runtoyou.app/runtoyou/internal/modules/search/service"
	"runtoyou.app/runtoyou/internal/modules/user/dto"
	"runtoyou.app/runtoyou/internal/modules/user/repository"
	"runtoyou.app/runtoyou/pkg/apperror"
	"runtoyou.app/runtoyou/pkg/logger"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	ErrMissingFields      = apperror.New(http.StatusBadRequest, "Please provide all required fields", apperror.ErrInvalidInput)
	ErrUserExists         = apperror.New(http.StatusBadRequest, "User already exists", apperror.ErrInvalidInput)
	ErrInvalidCredentials = apperror.New(http.StatusBadRequest, "Invalid credentials", apperror.ErrInvalidInput)
	ErrInvalidOAuthState  = apperror.New(http.StatusBadRequest, "Invalid OAuth state", apperror.ErrInvalidInput)
	ErrGoogleNotEnabled   = apperror.New(http.StatusNotFound, "Google login is not configured", apperror.ErrNotFound)
)

type AuthConfig struct {
	Secret             string
	TokenTTL           time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	GoogleLogin() (string, error)
	GoogleCallback(ctx context.Context, state, code string) (*dto.AuthResponse, error)
}

type authService struct {
	repo         repository.UserRepository
	meili        search.MeiliSearchService
	secret       string
	tokenTTL     time.Duration
	googleConfig *oauth2.Config
	userInfoURL  string
	oauthState   string
	now          func() time.Time
}

// NewAuthService builds the auth service. meili may be nil.
func NewAuthService(repo repository.UserRepository, meili search.MeiliSearchService, cfg AuthConfig) AuthService {
	s := &authService{
		repo:        repo,
		meili:       meili,
		secret:      cfg.Secret,
		tokenTTL:    cfg.TokenTTL,
		userInfoURL: googleUserInfoURL,
		oauthState:  "run-to-you-state",
		now:         time.Now,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = 30 * 24 * time.Hour
	}
	if cfg.GoogleClientID != "" {
		s.googleConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		}
	}
	return s
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.FirstName == "" || input.LastName == "" || input.Email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hash),
		Preferences:  entity.DefaultPreferences(),
	}
	if err := s.assignDefaultRole(ctx, user); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.index(user)
	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.buildAuthResponse(user)
}

func (s *authService) GoogleLogin() (string, error) {
	if s.googleConfig == nil {
		return "", ErrGoogleNotEnabled
	}
	return s.googleConfig.AuthCodeURL(s.oauthState, oauth2.AccessTypeOffline), nil
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (s *authService) GoogleCallback(ctx context.Context, state, code string) (*dto.AuthResponse, error) {
	if s.googleConfig == nil {
		return nil, ErrGoogleNotEnabled
	}
	if state != s.oauthState {
		return nil, ErrInvalidOAuthState
	}

	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.New(http.StatusBadRequest, "Failed to exchange token", err)
	}

	resp, err := s.googleConfig.Client(ctx, token).Get(s.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get google user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info status %d", resp.StatusCode)
	}

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("decode google user info: %w", err)
	}
	if gu.Email == "" {
		return nil, apperror.New(http.StatusBadRequest, "Google account has no email", apperror.ErrInvalidInput)
	}

	user, err := s.repo.FindByEmail(ctx, gu.Email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.createGoogleUser(ctx, gu)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if user.GoogleID == nil || *user.GoogleID != gu.ID {
			user.GoogleID = &gu.ID
			if err := s.repo.Update(ctx, user); err != nil {
				logger.L().Warn("failed to link google account",
					zap.String("user_id", user.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	return s.buildAuthResponse(user)
}

func (s *authService) createGoogleUser(ctx context.Context, gu googleUser) (*entity.User, error) {
	// the password is unusable; the account signs in through Google
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	first, last := gu.GivenName, gu.FamilyName
	if first == "" {
		first, last, _ = strings.Cut(gu.Name, " ")
	}
	if first == "" {
		first, _, _ = strings.Cut(gu.Email, "@")
	}

	user := &entity.User{
		FirstName:    first,
		LastName:     last,
		Email:        strings.ToLower(gu.Email),
		PasswordHash: string(hash),
		GoogleID:     &gu.ID,
		Preferences:  entity.DefaultPreferences(),
	}
	if gu.Picture != "" {
		user.ProfilePicture = &gu.Picture
	}
	if err := s.assignDefaultRole(ctx, user); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.index(user)
	return user, nil
}

func (s *authService) assignDefaultRole(ctx context.Context, user *entity.User) error {
	role, err := s.repo.FindRoleByName(ctx, entity.RoleRunner)
	if err != nil {
		return fmt.Errorf("default role: %w", err)
	}
	user.RoleID = &role.ID
	user.Role = *role
	return nil
}

func (s *authService) index(user *entity.User) {
	if s.meili == nil {
		return
	}
	if err := s.meili.IndexUser(user); err != nil {
		logger.L().Warn("index user failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	var searchToken string
	if s.meili != nil {
		st, err := s.meili.GenerateSearchToken(user.ID)
		if err != nil {
			logger.L().Warn("failed to generate search token", zap.String("user_id", user.ID.String()), zap.Error(err))
		} else {
			searchToken = st
		}
	}

	return &dto.AuthResponse{
		Token:       token,
		ExpiresIn:   expiresAt,
		User:        dto.NewAuthUser(user),
		SearchToken: searchToken,
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}
	return signed, expiresAt.Unix(), nil
}
