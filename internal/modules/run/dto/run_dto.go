package dto

import (
	"time"

	"github.com/google/uuid"

	"runtoyou.app/runtoyou/internal/entity"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
)

type CreateRunRequest struct {
	Title             string            `json:"title" binding:"required,max=200"`
	Description       string            `json:"description"`
	Distance          float64           `json:"distance" binding:"required,gt=0"`
	Duration          float64           `json:"duration" binding:"required,gt=0"`
	Pace              float64           `json:"pace" binding:"omitempty,gte=0"`
	StartTime         time.Time         `json:"startTime" binding:"required"`
	EndTime           time.Time         `json:"endTime" binding:"required,gtefield=StartTime"`
	RouteData         *entity.RouteData `json:"routeData"`
	WeatherConditions *entity.Weather   `json:"weatherConditions"`
	ElevationGain     float64           `json:"elevationGain" binding:"omitempty,gte=0"`
	CaloriesBurned    float64           `json:"caloriesBurned" binding:"omitempty,gte=0"`
	Images            []entity.RunImage `json:"images" binding:"omitempty,max=10,dive"`
	IsPrivate         bool              `json:"isPrivate"`
	Tags              []string          `json:"tags" binding:"omitempty,max=20"`
	Route             *uuid.UUID        `json:"route"`
	Challenge         *uuid.UUID        `json:"challenge"`
}

type UpdateRunRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=200"`
	Description *string  `json:"description"`
	IsPrivate   *bool    `json:"isPrivate"`
	Tags        []string `json:"tags" binding:"omitempty,max=20"`
}

type CommentRequest struct {
	Text string `json:"text" binding:"max=2000"`
}

type ListQuery struct {
	commonDto.Pagination
}

type ListResponse struct {
	Runs        []entity.Run `json:"runs"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	Total       int64        `json:"total"`
}
