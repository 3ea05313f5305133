package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	likeService "runtoyou.app/runtoyou/internal/modules/like/service"
	routeDto "runtoyou.app/runtoyou/internal/modules/route/dto"
	routeRepo "runtoyou.app/runtoyou/internal/modules/route/repository"
	search "runtoyou.app/runtoyou/internal/modules/search/service"
	"runtoyou.app/runtoyou/pkg/apperror"
	"runtoyou.app/runtoyou/pkg/database"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
	"runtoyou.app/runtoyou/pkg/logger"
)

const (
	defaultPageSize = 10
	defaultRadiusKm = 10
	kmPerDegree     = 111.32
)

var (
	ErrRouteNotFound   = apperror.New(http.StatusNotFound, "Route not found", apperror.ErrNotFound)
	ErrAccessDenied    = apperror.New(http.StatusForbidden, "Access denied", apperror.ErrForbidden)
	ErrNotAuthorized   = apperror.New(http.StatusForbidden, "Not authorized", apperror.ErrForbidden)
	ErrInvalidRating   = apperror.New(http.StatusBadRequest, "Rating must be between 1 and 5", apperror.ErrInvalidInput)
	ErrInvalidDistance = apperror.New(http.StatusBadRequest, "Distance filter must look like 0-5,10-15", apperror.ErrInvalidInput)
	ErrInvalidNear     = apperror.New(http.StatusBadRequest, "Near filter must look like lat,lng", apperror.ErrInvalidInput)
	ErrInvalidCreator  = apperror.New(http.StatusBadRequest, "createdBy must be a user id", apperror.ErrInvalidInput)
)

type RouteService interface {
	Create(ctx context.Context, userID uuid.UUID, req routeDto.CreateRouteRequest) (*entity.Route, error)
	List(ctx context.Context, filter routeDto.ListFilter) (*routeDto.ListResponse, error)
	Mine(ctx context.Context, userID uuid.UUID, page commonDto.Pagination) (*routeDto.ListResponse, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*entity.Route, error)
	Update(ctx context.Context, userID, id uuid.UUID, req routeDto.UpdateRouteRequest) (*entity.Route, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Like(ctx context.Context, userID, id uuid.UUID) ([]uuid.UUID, error)
	Review(ctx context.Context, userID, id uuid.UUID, req routeDto.ReviewRequest) ([]entity.RouteReview, error)
	SyncUsage(ctx context.Context) (int, error)
}

type routeService struct {
	repo        routeRepo.RouteRepository
	likes       likeService.LikeService
	meili       search.MeiliSearchService
	redisClient *redis.Client
	transactor  database.Transactor
}

// NewRouteService builds the route service. meili and redisClient may be nil;
// without redis usage is written to the database on every view.
func NewRouteService(
	repo routeRepo.RouteRepository,
	likes likeService.LikeService,
	meili search.MeiliSearchService,
	redisClient *redis.Client,
	transactor database.Transactor,
) RouteService {
	return &routeService{
		repo:        repo,
		likes:       likes,
		meili:       meili,
		redisClient: redisClient,
		transactor:  transactor,
	}
}

func (s *routeService) findRoute(ctx context.Context, id uuid.UUID) (*entity.Route, error) {
	route, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return route, nil
}

func (s *routeService) Create(ctx context.Context, userID uuid.UUID, req routeDto.CreateRouteRequest) (*entity.Route, error) {
	route := &entity.Route{
		CreatorID:         userID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Distance:          req.Distance,
		EstimatedDuration: req.EstimatedDuration,
		ElevationGain:     req.ElevationGain,
		Difficulty:        orDefault(req.Difficulty, "moderate"),
		RouteType:         orDefault(req.RouteType, "loop"),
		StartLocation:     toLocation(req.StartLocation),
		EndLocation:       toLocation(req.EndLocation),
		Path:              nonNil(req.Path),
		Terrain:           orDefault(req.Terrain, "road"),
		SurfaceType:       orDefault(req.SurfaceType, "paved"),
		Tags:              nonNil(req.Tags),
		IsPublic:          req.IsPublic == nil || *req.IsPublic,
		PointsOfInterest:  nonNil(req.PointsOfInterest),
	}

	if err := s.repo.Create(ctx, route); err != nil {
		return nil, err
	}
	s.index(route)

	route.Likes = []uuid.UUID{}
	return route, nil
}

func (s *routeService) List(ctx context.Context, filter routeDto.ListFilter) (*routeDto.ListResponse, error) {
	offset := filter.Normalize(defaultPageSize)

	q := routeRepo.ListFilter{
		Difficulty:  splitList(filter.Difficulty),
		Terrain:     splitList(filter.Terrain),
		SurfaceType: splitList(filter.SurfaceType),
		Search:      strings.TrimSpace(filter.Search),
		SortBy:      filter.SortBy,
		Offset:      offset,
		Limit:       filter.Limit,
	}

	var err error
	if q.Distances, err = parseDistances(filter.Distance); err != nil {
		return nil, err
	}
	if filter.CreatedBy != "" {
		id, err := uuid.Parse(filter.CreatedBy)
		if err != nil {
			return nil, ErrInvalidCreator
		}
		q.CreatedBy = &id
	}
	if filter.Near != "" {
		if q.Near, err = parseNear(filter.Near, filter.Radius); err != nil {
			return nil, err
		}
	}

	routes, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.attachLikes(ctx, routes); err != nil {
		return nil, err
	}

	return &routeDto.ListResponse{
		Routes:      routes,
		TotalPages:  commonDto.TotalPages(total, filter.Limit),
		CurrentPage: filter.Page,
		Total:       total,
	}, nil
}

func (s *routeService) Mine(ctx context.Context, userID uuid.UUID, page commonDto.Pagination) (*routeDto.ListResponse, error) {
	offset := page.Normalize(defaultPageSize)

	routes, total, err := s.repo.FindByCreator(ctx, userID, offset, page.Limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachLikes(ctx, routes); err != nil {
		return nil, err
	}

	return &routeDto.ListResponse{
		Routes:      routes,
		TotalPages:  commonDto.TotalPages(total, page.Limit),
		CurrentPage: page.Page,
		Total:       total,
	}, nil
}

// Get counts a use whenever someone other than the creator opens the route.
func (s *routeService) Get(ctx context.Context, userID, id uuid.UUID) (*entity.Route, error) {
	route, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	if !route.IsPublic && route.CreatorID != userID {
		return nil, ErrAccessDenied
	}

	if route.CreatorID != userID {
		if err := s.recordUsage(ctx, id); err != nil {
			logger.L().Warn("record route usage failed", zap.String("route_id", id.String()), zap.Error(err))
		} else if s.redisClient == nil {
			// written through after the route was loaded
			route.UsageCount++
		}
	}
	route.UsageCount += s.pendingUsage(ctx, id)

	likers, err := s.likes.Likers(ctx, id, entity.LikeRefRoute)
	if err != nil {
		return nil, err
	}
	route.Likes = likers
	return route, nil
}

func (s *routeService) Update(ctx context.Context, userID, id uuid.UUID, req routeDto.UpdateRouteRequest) (*entity.Route, error) {
	route, err := s.findRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	if route.CreatorID != userID {
		return nil, ErrNotAuthorized
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		route.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		route.Description = *req.Description
	}
	if req.Difficulty != nil && *req.Difficulty != "" {
		route.Difficulty = *req.Difficulty
	}
	if req.Tags != nil {
		route.Tags = req.Tags
	}
	if req.IsPublic != nil {
		route.IsPublic = *req.IsPublic
	}
	if req.PointsOfInterest != nil {
		route.PointsOfInterest = req.PointsOfInterest
	}

	if err := s.repo.Update(ctx, route); err != nil {
		return nil, err
	}
	s.index(route)

	likers, err := s.likes.Likers(ctx, id, entity.LikeRefRoute)
	if err != nil {
		return nil, err
	}
	route.Likes = likers
	return route, nil
}

func (s *routeService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	route, err := s.findRoute(ctx, id)
	if err != nil {
		return err
	}
	if route.CreatorID != userID {
		return ErrNotAuthorized
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.likes.Clear(ctx, id, entity.LikeRefRoute); err != nil {
		logger.L().Warn("clear route likes failed", zap.String("route_id", id.String()), zap.Error(err))
	}
	s.dropUsage(ctx, id)
	if s.meili != nil {
		if err := s.meili.DeleteRoute(id); err != nil {
			logger.L().Warn("remove route from index failed", zap.String("route_id", id.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *routeService) Like(ctx context.Context, userID, id uuid.UUID) ([]uuid.UUID, error) {
	route, err := s.findRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	if !route.IsPublic && route.CreatorID != userID {
		return nil, ErrAccessDenied
	}

	res, err := s.likes.Toggle(ctx, userID, id, entity.LikeRefRoute)
	if err != nil {
		return nil, err
	}
	return res.Likers, nil
}

// Review upserts the caller's review and recomputes the route's average rating.
func (s *routeService) Review(ctx context.Context, userID, id uuid.UUID, req routeDto.ReviewRequest) ([]entity.RouteReview, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	route, err := s.findRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	if !route.IsPublic && route.CreatorID != userID {
		return nil, ErrAccessDenied
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpsertReview(ctx, &entity.RouteReview{
			RouteID: id,
			UserID:  userID,
			Rating:  req.Rating,
			Comment: strings.TrimSpace(req.Comment),
		}); err != nil {
			return err
		}
		avg, err := s.repo.RecomputeRating(ctx, id)
		if err != nil {
			return err
		}
		route.AverageRating = avg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.index(route)
	return s.repo.ListReviews(ctx, id)
}

func (s *routeService) index(route *entity.Route) {
	if s.meili == nil {
		return
	}
	if err := s.meili.IndexRoute(route); err != nil {
		logger.L().Warn("index route failed", zap.String("route_id", route.ID.String()), zap.Error(err))
	}
}

func (s *routeService) attachLikes(ctx context.Context, routes []entity.Route) error {
	if len(routes) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(routes))
	for i := range routes {
		ids[i] = routes[i].ID
	}

	likers, err := s.likes.LikersFor(ctx, ids, entity.LikeRefRoute)
	if err != nil {
		return err
	}
	for i := range routes {
		routes[i].Likes = nonNil(likers[routes[i].ID])
	}
	return nil
}

func toLocation(in routeDto.LocationInput) entity.Location {
	return entity.Location{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Name:      in.Name,
		Address:   in.Address,
	}
}

// parseDistances reads "0-5,10-15". A single number n means exactly n.
func parseDistances(raw string) ([]routeRepo.DistanceRange, error) {
	var out []routeRepo.DistanceRange
	for _, part := range splitList(raw) {
		lo, hi, found := strings.Cut(part, "-")
		lower, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return nil, ErrInvalidDistance
		}
		upper := lower
		if found {
			if upper, err = strconv.ParseFloat(strings.TrimSpace(hi), 64); err != nil {
				return nil, ErrInvalidDistance
			}
		}
		if upper < lower {
			return nil, ErrInvalidDistance
		}
		out = append(out, routeRepo.DistanceRange{Min: lower, Max: upper})
	}
	return out, nil
}

// parseNear turns "lat,lng" and a radius in km into a bounding box.
func parseNear(raw string, radiusKm float64) (*routeRepo.BoundingBox, error) {
	latStr, lngStr, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, ErrInvalidNear
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, ErrInvalidNear
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, ErrInvalidNear
	}
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}

	dLat := radiusKm / kmPerDegree
	dLng := 180.0
	if c := math.Cos(lat * math.Pi / 180); c > 1e-6 {
		dLng = math.Min(180, radiusKm/(kmPerDegree*c))
	}

	return &routeRepo.BoundingBox{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLng: lng - dLng,
		MaxLng: lng + dLng,
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
