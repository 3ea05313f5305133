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

// DistanceRange is an inclusive [Min, Max] in kilometres.
type DistanceRange struct {
	Min float64
	Max float64
}

// BoundingBox limits start locations to a lat/lng rectangle.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

type ListFilter struct {
	Distances   []DistanceRange
	Difficulty  []string
	Terrain     []string
	SurfaceType []string
	Search      string
	CreatedBy   *uuid.UUID
	Near        *BoundingBox
	SortBy      string
	Offset      int
	Limit       int
}

type RouteRepository interface {
	Create(ctx context.Context, route *entity.Route) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Route, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*entity.Route, error)
	List(ctx context.Context, filter ListFilter) ([]entity.Route, int64, error)
	FindByCreator(ctx context.Context, creatorID uuid.UUID, offset, limit int) ([]entity.Route, int64, error)
	Update(ctx context.Context, route *entity.Route) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddUsage(ctx context.Context, id uuid.UUID, n int64) error
	UpsertReview(ctx context.Context, review *entity.RouteReview) error
	RecomputeRating(ctx context.Context, id uuid.UUID) (float64, error)
	ListReviews(ctx context.Context, id uuid.UUID) ([]entity.RouteReview, error)
}

type routeRepository struct {
	db *gorm.DB
}

func NewRouteRepository(db *gorm.DB) RouteRepository {
	return &routeRepository{db: db}
}

func (r *routeRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *routeRepository) Create(ctx context.Context, route *entity.Route) error {
	return r.conn(ctx).Omit(clause.Associations).Create(route).Error
}

func (r *routeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Route, error) {
	var route entity.Route
	if err := r.conn(ctx).Where("id = ?", id).First(&route).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

// FindDetail loads the route with its creator and reviews.
func (r *routeRepository) FindDetail(ctx context.Context, id uuid.UUID) (*entity.Route, error) {
	var route entity.Route
	if err := r.conn(ctx).
		Preload("Creator").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("updated_at DESC") }).
		Preload("Reviews.User").
		Where("id = ?", id).
		First(&route).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

// List returns public routes. Distance ranges are ORed and every other filter is ANDed.
func (r *routeRepository) List(ctx context.Context, filter ListFilter) ([]entity.Route, int64, error) {
	var routes []entity.Route
	var total int64

	db := r.conn(ctx)
	query := db.Model(&entity.Route{}).Where("is_public = ?", true)

	if len(filter.Distances) > 0 {
		or := db.Where("distance BETWEEN ? AND ?", filter.Distances[0].Min, filter.Distances[0].Max)
		for _, d := range filter.Distances[1:] {
			or = or.Or("distance BETWEEN ? AND ?", d.Min, d.Max)
		}
		query = query.Where(or)
	}
	if len(filter.Difficulty) > 0 {
		query = query.Where("difficulty IN ?", filter.Difficulty)
	}
	if len(filter.Terrain) > 0 {
		query = query.Where("terrain IN ?", filter.Terrain)
	}
	if len(filter.SurfaceType) > 0 {
		query = query.Where("surface_type IN ?", filter.SurfaceType)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?", like, like, like)
	}
	if filter.CreatedBy != nil {
		query = query.Where("creator_id = ?", *filter.CreatedBy)
	}
	if b := filter.Near; b != nil {
		query = query.Where("start_latitude BETWEEN ? AND ? AND start_longitude BETWEEN ? AND ?",
			b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "distance":
		query = query.Order("distance ASC")
	case "popularity":
		query = query.Order("usage_count DESC")
	case "rating":
		query = query.Order("average_rating DESC")
	default:
		query = query.Order("created_at DESC")
	}

	err := query.
		Preload("Creator").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&routes).Error
	return routes, total, err
}

func (r *routeRepository) FindByCreator(ctx context.Context, creatorID uuid.UUID, offset, limit int) ([]entity.Route, int64, error) {
	var routes []entity.Route
	var total int64

	query := r.conn(ctx).Model(&entity.Route{}).Where("creator_id = ?", creatorID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&routes).Error
	return routes, total, err
}

func (r *routeRepository) Update(ctx context.Context, route *entity.Route) error {
	return r.conn(ctx).
		Model(route).
		Select("name", "description", "difficulty", "tags", "is_public", "points_of_interest", "updated_at").
		Updates(route).Error
}

func (r *routeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.conn(ctx)
	if err := db.Where("route_id = ?", id).Delete(&entity.RouteReview{}).Error; err != nil {
		return err
	}
	return db.Delete(&entity.Route{}, "id = ?", id).Error
}

func (r *routeRepository) AddUsage(ctx context.Context, id uuid.UUID, n int64) error {
	return r.conn(ctx).Model(&entity.Route{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", n)).Error
}

// UpsertReview keeps one review per (route, user).
func (r *routeRepository) UpsertReview(ctx context.Context, review *entity.RouteReview) error {
	return r.conn(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "route_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
		}).
		Create(review).Error
}

func (r *routeRepository) RecomputeRating(ctx context.Context, id uuid.UUID) (float64, error) {
	db := r.conn(ctx)

	var avg float64
	if err := db.Model(&entity.RouteReview{}).
		Select("COALESCE(AVG(rating), 0)").
		Where("route_id = ?", id).
		Scan(&avg).Error; err != nil {
		return 0, err
	}

	if err := db.Model(&entity.Route{}).
		Where("id = ?", id).
		UpdateColumn("average_rating", avg).Error; err != nil {
		return 0, err
	}
	return avg, nil
}

func (r *routeRepository) ListReviews(ctx context.Context, id uuid.UUID) ([]entity.RouteReview, error) {
	var reviews []entity.RouteReview
	err := r.conn(ctx).
		Preload("User").
		Where("route_id = ?", id).
		Order("updated_at DESC").
		Find(&reviews).Error
	return reviews, err
}
