package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AchievementCategoryDistance  = "distance"
	AchievementCategoryDuration  = "duration"
	AchievementCategoryElevation = "elevation"
	AchievementCategoryStreak    = "streak"
	AchievementCategorySpeed     = "speed"
	AchievementCategoryChallenge = "challenge"
	AchievementCategorySocial    = "social"
	AchievementCategoryMilestone = "milestone"

	CriteriaSingle     = "single"
	CriteriaCumulative = "cumulative"
	CriteriaStreak     = "streak"
	CriteriaSocial     = "social"
	CriteriaCustom     = "custom"

	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

type Criteria struct {
	Type      string  `gorm:"size:20;not null" json:"type"`
	Value     float64 `gorm:"not null" json:"value"`
	Unit      string  `gorm:"size:20;not null" json:"unit"`
	TimeFrame string  `gorm:"size:20;default:all_time" json:"timeFrame"`
}

type Achievement struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string              `gorm:"size:200;not null" json:"name"`
	Description   string              `gorm:"type:text;not null" json:"description"`
	Category      string              `gorm:"size:20;not null;index:idx_achievement_category,priority:1" json:"category"`
	Level         int                 `gorm:"not null;default:1;index:idx_achievement_category,priority:2" json:"level"`
	Criteria      Criteria            `gorm:"embedded;embeddedPrefix:criteria_" json:"criteria"`
	Icon          string              `gorm:"type:text" json:"icon"`
	BadgeURL      string              `gorm:"type:text" json:"badgeUrl"`
	UnlockMessage string              `gorm:"type:text" json:"unlockMessage"`
	Points        int                 `gorm:"default:0" json:"points"`
	IsHidden      bool                `gorm:"default:false" json:"isHidden"`
	IsSystem      bool                `gorm:"not null;index" json:"isSystem"`
	ChallengeID   *uuid.UUID          `gorm:"type:uuid;uniqueIndex" json:"challengeId,omitempty"`
	Rarity        string              `gorm:"size:20;default:common" json:"rarity"`
	EarnedBy      []AchievementEarner `gorm:"constraint:OnDelete:CASCADE" json:"earnedBy"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID, err = uuid.NewV7()
	}
	return
}

// AchievementEarner is both the achievement's earnedBy list and the user's
// achievement list. One row per (achievement, user).
type AchievementEarner struct {
	AchievementID uuid.UUID `gorm:"type:uuid;primaryKey" json:"achievementId"`
	UserID        uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"userId"`
	EarnedAt      time.Time `gorm:"not null" json:"earnedAt"`
}
