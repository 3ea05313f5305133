package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/database"
)

// Standing is one runner's aggregated value for a metric.
type Standing struct {
	UserID         uuid.UUID
	FirstName      string
	LastName       string
	ProfilePicture *string
	TotalDistance  float64
	Value          float64
}

type LeaderboardRepository interface {
	// TopAllTime ranks runners by the running totals kept on the user row.
	TopAllTime(ctx context.Context, metric string, limit int) ([]Standing, error)
	// TopSince ranks runners by their public runs started at or after since.
	TopSince(ctx context.Context, metric string, since time.Time, limit int) ([]Standing, error)
	// DistanceSince sums public run distance per user since the given time.
	DistanceSince(ctx context.Context, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]float64, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

var statsColumns = map[string]string{
	"distance":  "users.stats_total_distance",
	"duration":  "users.stats_total_time",
	"elevation": "users.stats_total_elevation_gain",
	"runs":      "users.stats_total_runs",
}

var runAggregates = map[string]string{
	"distance":  "SUM(runs.distance)",
	"duration":  "SUM(runs.duration)",
	"elevation": "SUM(runs.elevation_gain)",
	"runs":      "COUNT(runs.id)",
}

func (r *leaderboardRepository) TopAllTime(ctx context.Context, metric string, limit int) ([]Standing, error) {
	col, ok := statsColumns[metric]
	if !ok {
		return nil, fmt.Errorf("unknown leaderboard metric %q", metric)
	}

	var standings []Standing
	err := r.conn(ctx).Model(&entity.User{}).
		Select("users.id AS user_id, users.first_name, users.last_name, users.profile_picture, users.stats_total_distance AS total_distance, "+col+" AS value").
		Where("users.pref_privacy_settings <> ?", entity.PrivacyPrivate).
		Where(col + " > 0").
		Order("value DESC").
		Order("users.created_at ASC").
		Limit(limit).
		Scan(&standings).Error
	return standings, err
}

func (r *leaderboardRepository) TopSince(ctx context.Context, metric string, since time.Time, limit int) ([]Standing, error) {
	agg, ok := runAggregates[metric]
	if !ok {
		return nil, fmt.Errorf("unknown leaderboard metric %q", metric)
	}

	var standings []Standing
	err := r.conn(ctx).Table("runs").
		Select("runs.user_id, users.first_name, users.last_name, users.profile_picture, users.stats_total_distance AS total_distance, "+agg+" AS value").
		Joins("JOIN users ON users.id = runs.user_id").
		Where("runs.is_private = ? AND runs.start_time >= ?", false, since).
		Where("users.pref_privacy_settings <> ?", entity.PrivacyPrivate).
		Group("runs.user_id, users.first_name, users.last_name, users.profile_picture, users.stats_total_distance, users.created_at").
		Order("value DESC").
		Order("users.created_at ASC").
		Limit(limit).
		Scan(&standings).Error
	return standings, err
}

func (r *leaderboardRepository) DistanceSince(ctx context.Context, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]float64, error) {
	out := make(map[uuid.UUID]float64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		UserID   uuid.UUID
		Distance float64
	}
	err := r.conn(ctx).Model(&entity.Run{}).
		Select("user_id, SUM(distance) AS distance").
		Where("user_id IN ? AND is_private = ? AND start_time >= ?", userIDs, false, since).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row.Distance
	}
	return out, nil
}
