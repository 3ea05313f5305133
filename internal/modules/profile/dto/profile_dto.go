package dto

import (
	"time"

	"runtoyou.app/runtoyou/internal/entity"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
)

// UpdateProfileInput is bound from JSON or a multipart form. Empty fields are left unchanged.
type UpdateProfileInput struct {
	FirstName    string `json:"firstName" form:"firstName" binding:"omitempty,max=100"`
	LastName     string `json:"lastName" form:"lastName" binding:"omitempty,max=100"`
	Bio          string `json:"bio" form:"bio" binding:"omitempty,max=1000"`
	Location     string `json:"location" form:"location" binding:"omitempty,max=255"`
	FitnessGoals string `json:"fitnessGoals" form:"fitnessGoals" binding:"omitempty,max=1000"`
}

type UpdatePreferencesInput struct {
	DistanceUnit    *string `json:"distanceUnit" binding:"omitempty,oneof=km mi"`
	PaceUnit        *string `json:"paceUnit" binding:"omitempty,oneof=min/km min/mi"`
	PrivacySettings *string `json:"privacySettings" binding:"omitempty,oneof=public followers private"`
	Notifications   *bool   `json:"notifications"`
}

// ProfileResponse is a user with follower and following summaries.
type ProfileResponse struct {
	ID             string                  `json:"id"`
	FirstName      string                  `json:"firstName"`
	LastName       string                  `json:"lastName"`
	Email          string                  `json:"email,omitempty"`
	Role           string                  `json:"role"`
	ProfilePicture *string                 `json:"profilePicture,omitempty"`
	Bio            string                  `json:"bio"`
	Location       string                  `json:"location"`
	FitnessGoals   string                  `json:"fitnessGoals"`
	Stats          entity.UserStats        `json:"stats"`
	Level          commonDto.RunnerLevel   `json:"level"`
	Preferences    *entity.Preferences     `json:"preferences,omitempty"`
	Followers      []commonDto.UserSummary `json:"followers"`
	Following      []commonDto.UserSummary `json:"following"`
	IsFollowing    bool                    `json:"isFollowing"`
	CreatedAt      time.Time               `json:"createdAt"`
}

type SearchQuery struct {
	Query string `form:"query"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type FollowResponse struct {
	Message   string `json:"message"`
	Following bool   `json:"following"`
}
