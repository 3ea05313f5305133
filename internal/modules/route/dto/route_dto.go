package dto

import (
	"runtoyou.app/runtoyou/internal/entity"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
)

type LocationInput struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
	Name      string  `json:"name" binding:"max=255"`
	Address   string  `json:"address" binding:"max=255"`
}

type CreateRouteRequest struct {
	Name              string                   `json:"name" binding:"required,max=200"`
	Description       string                   `json:"description"`
	Distance          float64                  `json:"distance" binding:"required,gt=0"`
	EstimatedDuration float64                  `json:"estimatedDuration" binding:"omitempty,gte=0"`
	ElevationGain     float64                  `json:"elevationGain" binding:"omitempty,gte=0"`
	Difficulty        string                   `json:"difficulty" binding:"omitempty,oneof=easy moderate hard extreme"`
	RouteType         string                   `json:"routeType" binding:"omitempty,oneof=loop out-and-back point-to-point"`
	StartLocation     LocationInput            `json:"startLocation"`
	EndLocation       LocationInput            `json:"endLocation"`
	Path              []entity.GeoPoint        `json:"path"`
	Terrain           string                   `json:"terrain" binding:"omitempty,oneof=road trail track mixed"`
	SurfaceType       string                   `json:"surfaceType" binding:"omitempty,oneof=paved unpaved mixed"`
	Tags              []string                 `json:"tags" binding:"omitempty,max=20"`
	IsPublic          *bool                    `json:"isPublic"`
	PointsOfInterest  []entity.PointOfInterest `json:"pointsOfInterest"`
}

type UpdateRouteRequest struct {
	Name             *string                  `json:"name" binding:"omitempty,max=200"`
	Description      *string                  `json:"description"`
	Difficulty       *string                  `json:"difficulty" binding:"omitempty,oneof=easy moderate hard extreme"`
	Tags             []string                 `json:"tags" binding:"omitempty,max=20"`
	IsPublic         *bool                    `json:"isPublic"`
	PointsOfInterest []entity.PointOfInterest `json:"pointsOfInterest"`
}

// ListFilter is bound from the query string. Comma separated values are ORed within a field.
type ListFilter struct {
	Distance    string  `form:"distance"`
	Difficulty  string  `form:"difficulty"`
	Terrain     string  `form:"terrain"`
	SurfaceType string  `form:"surfaceType"`
	Search      string  `form:"search"`
	CreatedBy   string  `form:"createdBy"`
	Near        string  `form:"near"`
	Radius      float64 `form:"radius" binding:"omitempty,gt=0,lte=500"`
	SortBy      string  `form:"sortBy" binding:"omitempty,oneof=distance popularity rating newest"`
	commonDto.Pagination
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" binding:"max=2000"`
}

type ListResponse struct {
	Routes      []entity.Route `json:"routes"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Total       int64          `json:"total"`
}
