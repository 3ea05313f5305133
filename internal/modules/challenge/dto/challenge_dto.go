package dto

import (
	"time"

	"github.com/google/uuid"

	"runtoyou.app/runtoyou/internal/entity"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
)

type GoalInput struct {
	Value float64 `json:"value" binding:"required,gt=0"`
	Unit  string  `json:"unit" binding:"required"`
}

type BadgeInput struct {
	Name        string `json:"name"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

type CreateChallengeRequest struct {
	Name         string      `json:"name" binding:"required,max=200"`
	Description  string      `json:"description"`
	Type         string      `json:"type" binding:"required,oneof=distance duration elevation streak custom"`
	Goal         GoalInput   `json:"goal"`
	StartDate    time.Time   `json:"startDate" binding:"required"`
	EndDate      time.Time   `json:"endDate" binding:"required,gtefield=StartDate"`
	Visibility   string      `json:"visibility" binding:"omitempty,oneof=public private inviteOnly"`
	InvitedUsers []uuid.UUID `json:"invitedUsers"`
	RouteID      *uuid.UUID  `json:"routeId"`
	Rules        string      `json:"rules"`
	Rewards      string      `json:"rewards"`
	Category     string      `json:"category" binding:"omitempty,oneof=running training community event"`
	Tags         []string    `json:"tags"`
	Badge        *BadgeInput `json:"badge"`
}

type UpdateNote struct {
	Message string `json:"message"`
}

type UpdateChallengeRequest struct {
	Name          *string     `json:"name" binding:"omitempty,max=200"`
	Description   *string     `json:"description"`
	IsActive      *bool       `json:"isActive"`
	Visibility    *string     `json:"visibility" binding:"omitempty,oneof=public private inviteOnly"`
	Rules         *string     `json:"rules"`
	Rewards       *string     `json:"rewards"`
	Tags          []string    `json:"tags"`
	Badge         *BadgeInput `json:"badge"`
	Updates       *UpdateNote `json:"updates"`
}

type ProgressRequest struct {
	RunID string `json:"runId"`
}

type InviteRequest struct {
	UserIDs []uuid.UUID `json:"userIds"`
}

// ListFilter is bound from the challenge list query string.
type ListFilter struct {
	commonDto.Pagination
	Type       string `form:"type"`
	Category   string `form:"category"`
	Active     string `form:"active" binding:"omitempty,oneof=true false"`
	Visibility string `form:"visibility"`
	Search     string `form:"search"`
	SortBy     string `form:"sortBy" binding:"omitempty,oneof=startDate endDate participants newest"`
}

type MineFilter struct {
	commonDto.Pagination
	Active string `form:"active" binding:"omitempty,oneof=true false"`
}

type ListResponse struct {
	Challenges  []entity.Challenge `json:"challenges"`
	TotalPages  int                `json:"totalPages"`
	CurrentPage int                `json:"currentPage"`
	Total       int64              `json:"total"`
}

type ProgressResponse struct {
	Message     string                    `json:"message"`
	Progress    float64                   `json:"progress"`
	Completed   bool                      `json:"completed"`
	Leaderboard []entity.LeaderboardEntry `json:"leaderboard"`
}
