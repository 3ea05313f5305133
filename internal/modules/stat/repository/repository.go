package repository

import (
	"context"

	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/database"
)

type ActivityTotals struct {
	Runs          int64
	Distance      float64
	Duration      float64
	ElevationGain float64
}

type StatRepository interface {
	// RunTotals aggregates every public run.
	RunTotals(ctx context.Context) (ActivityTotals, error)
	CountActiveChallenges(ctx context.Context) (int64, error)
	CountPublicRoutes(ctx context.Context) (int64, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

func (r *statRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *statRepository) RunTotals(ctx context.Context) (ActivityTotals, error) {
	var totals ActivityTotals
	err := r.conn(ctx).Model(&entity.Run{}).
		Select("COUNT(*) AS runs, COALESCE(SUM(distance), 0) AS distance, COALESCE(SUM(duration), 0) AS duration, COALESCE(SUM(elevation_gain), 0) AS elevation_gain").
		Where("is_private = ?", false).
		Scan(&totals).Error
	return totals, err
}

func (r *statRepository) CountActiveChallenges(ctx context.Context) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&entity.Challenge{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

func (r *statRepository) CountPublicRoutes(ctx context.Context) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&entity.Route{}).
		Where("is_public = ?", true).
		Count(&count).Error
	return count, err
}
