package dto

import (
	"runtoyou.app/runtoyou/internal/entity"
	achievementRepo "runtoyou.app/runtoyou/internal/modules/achievement/repository"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
)

// ListQuery is bound from the query string. Category, level and rarity accept comma lists.
type ListQuery struct {
	commonDto.Pagination
	Category string `form:"category"`
	Level    string `form:"level"`
	IsHidden string `form:"isHidden" binding:"omitempty,oneof=true false"`
	Rarity   string `form:"rarity"`
}

type CriteriaInput struct {
	Type      string  `json:"type" binding:"required,oneof=single cumulative streak social custom"`
	Value     float64 `json:"value" binding:"required,gt=0"`
	Unit      string  `json:"unit" binding:"required"`
	TimeFrame string  `json:"timeFrame" binding:"omitempty,oneof=all_time yearly monthly weekly daily"`
}

type CreateAchievementRequest struct {
	Name          string        `json:"name" binding:"required,max=200"`
	Description   string        `json:"description" binding:"required"`
	Category      string        `json:"category" binding:"required,oneof=distance duration elevation streak speed challenge social milestone"`
	Level         int           `json:"level" binding:"omitempty,min=1,max=5"`
	Criteria      CriteriaInput `json:"criteria"`
	Icon          string        `json:"icon"`
	BadgeURL      string        `json:"badgeUrl"`
	UnlockMessage string        `json:"unlockMessage"`
	Points        int           `json:"points" binding:"omitempty,min=0"`
	IsHidden      *bool         `json:"isHidden"`
	Rarity        string        `json:"rarity" binding:"omitempty,oneof=common uncommon rare epic legendary"`
}

type ListResponse struct {
	Achievements []entity.Achievement `json:"achievements"`
	TotalPages   int                  `json:"totalPages"`
	CurrentPage  int                  `json:"currentPage"`
	Total        int64                `json:"total"`
}

type EarnedListResponse struct {
	Achievements []achievementRepo.EarnedAchievement `json:"achievements"`
	TotalPages   int                                 `json:"totalPages"`
	CurrentPage  int                                 `json:"currentPage"`
	Total        int64                               `json:"total"`
}

// MaskedAchievement is what callers see of a hidden achievement they have not earned.
type MaskedAchievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Level       int    `json:"level"`
	IsHidden    bool   `json:"isHidden"`
	Rarity      string `json:"rarity"`
}

type CheckResponse struct {
	Message            string               `json:"message"`
	EarnedAchievements []entity.Achievement `json:"earnedAchievements"`
}
