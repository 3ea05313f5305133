package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/database"
)

// StatsDelta is added to a user's running totals. Runs is +1 on create and -1 on delete.
type StatsDelta struct {
	Distance       float64
	Runs           int
	Time           float64
	ElevationGain  float64
	CaloriesBurned float64
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindRoleByName(ctx context.Context, name string) (*entity.Role, error)
	Update(ctx context.Context, user *entity.User) error
	ApplyStats(ctx context.Context, userID uuid.UUID, d StatsDelta) error
	Followers(ctx context.Context, userID uuid.UUID) ([]entity.User, error)
	Following(ctx context.Context, userID uuid.UUID) ([]entity.User, error)
	IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
	Follow(ctx context.Context, followerID, followingID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followingID uuid.UUID) error
	Search(ctx context.Context, query string, limit int) ([]entity.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.conn(ctx).Model(&entity.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.conn(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.conn(ctx).
		Preload("Role").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.conn(ctx).
		Preload("Role").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	var role entity.Role
	if err := r.conn(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// Update saves profile and preference columns. Stats are only changed through ApplyStats.
func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return r.conn(ctx).
		Model(user).
		Select(
			"first_name", "last_name", "profile_picture", "bio", "location", "fitness_goals", "google_id",
			"pref_distance_unit", "pref_pace_unit", "pref_privacy_settings", "pref_notifications",
		).
		Updates(user).Error
}

// ApplyStats adds d to the user's totals and recomputes the average pace in one statement.
func (r *userRepository) ApplyStats(ctx context.Context, userID uuid.UUID, d StatsDelta) error {
	db := r.conn(ctx)
	if err := db.Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"stats_total_distance":        gorm.Expr("stats_total_distance + ?", d.Distance),
			"stats_total_runs":            gorm.Expr("stats_total_runs + ?", d.Runs),
			"stats_total_time":            gorm.Expr("stats_total_time + ?", d.Time),
			"stats_total_elevation_gain":  gorm.Expr("stats_total_elevation_gain + ?", d.ElevationGain),
			"stats_total_calories_burned": gorm.Expr("stats_total_calories_burned + ?", d.CaloriesBurned),
		}).Error; err != nil {
		return err
	}

	return db.Model(&entity.User{}).
		Where("id = ?", userID).
		Update("stats_average_pace", gorm.Expr(
			"CASE WHEN stats_total_runs > 0 AND stats_total_distance > 0 THEN stats_total_time / stats_total_distance ELSE 0 END",
		)).Error
}

func (r *userRepository) Followers(ctx context.Context, userID uuid.UUID) ([]entity.User, error) {
	users := []entity.User{}
	err := r.conn(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", userID).
		Order("follows.created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) Following(ctx context.Context, userID uuid.UUID) ([]entity.User, error) {
	users := []entity.User{}
	err := r.conn(ctx).
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&entity.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&n).Error
	return n > 0, err
}

func (r *userRepository) Follow(ctx context.Context, followerID, followingID uuid.UUID) error {
	return r.conn(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.Follow{FollowerID: followerID, FollowingID: followingID}).Error
}

func (r *userRepository) Unfollow(ctx context.Context, followerID, followingID uuid.UUID) error {
	return r.conn(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&entity.Follow{}).Error
}

// Search matches first name, last name or email case-insensitively.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]entity.User, error) {
	users := []entity.User{}
	like := "%" + strings.ToLower(query) + "%"
	err := r.conn(ctx).
		Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like).
		Order("first_name ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
