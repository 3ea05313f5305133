package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ChallengeTypeDistance  = "distance"
	ChallengeTypeDuration  = "duration"
	ChallengeTypeElevation = "elevation"
	ChallengeTypeStreak    = "streak"
	ChallengeTypeCustom    = "custom"

	VisibilityPublic     = "public"
	VisibilityPrivate    = "private"
	VisibilityInviteOnly = "inviteOnly"
)

type Goal struct {
	Value float64 `gorm:"not null" json:"value"`
	Unit  string  `gorm:"size:20;not null" json:"unit"`
}

type Badge struct {
	Name        string `gorm:"size:200" json:"name,omitempty"`
	ImageURL    string `gorm:"type:text" json:"imageUrl,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

type ChallengeUpdate struct {
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// Challenge owns its participants and the leaderboard derived from them.
// Version is bumped on every progress write and guards concurrent writers.
type Challenge struct {
	ID           uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string                 `gorm:"size:200;not null" json:"name"`
	Description  string                 `gorm:"type:text" json:"description"`
	CreatorID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"creatorId"`
	Creator      User                   `gorm:"constraint:OnDelete:CASCADE" json:"creator"`
	Type         string                 `gorm:"size:20;not null;index" json:"type"`
	Goal         Goal                   `gorm:"embedded;embeddedPrefix:goal_" json:"goal"`
	StartDate    time.Time              `gorm:"not null;index:idx_challenge_window,priority:1" json:"startDate"`
	EndDate      time.Time              `gorm:"not null;index:idx_challenge_window,priority:2" json:"endDate"`
	IsActive     bool                   `gorm:"not null;index" json:"isActive"`
	Visibility   string                 `gorm:"size:20;not null;default:public;index" json:"visibility"`
	RouteID      *uuid.UUID             `gorm:"type:uuid" json:"routeId,omitempty"`
	Route        *Route                 `gorm:"constraint:OnDelete:SET NULL" json:"route,omitempty"`
	Rules        string                 `gorm:"type:text" json:"rules"`
	Rewards      string                 `gorm:"type:text" json:"rewards"`
	Category     string                 `gorm:"size:20;default:running;index" json:"category"`
	Tags         []string               `gorm:"type:text;serializer:json" json:"tags"`
	Badge        Badge                  `gorm:"embedded;embeddedPrefix:badge_" json:"badge"`
	Updates      []ChallengeUpdate      `gorm:"type:text;serializer:json" json:"updates"`
	Version      int                    `gorm:"not null;default:1" json:"-"`
	Participants []ChallengeParticipant `gorm:"constraint:OnDelete:CASCADE" json:"participants"`
	Invites      []ChallengeInvite      `gorm:"constraint:OnDelete:CASCADE" json:"invitedUsers"`
	Leaderboard  []LeaderboardEntry     `gorm:"constraint:OnDelete:CASCADE" json:"leaderboard"`
	CreatedAt    time.Time              `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time              `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return
}

// Participant returns the participant row for userID, or nil.
func (c *Challenge) Participant(userID uuid.UUID) *ChallengeParticipant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

func (c *Challenge) IsInvited(userID uuid.UUID) bool {
	for _, inv := range c.Invites {
		if inv.UserID == userID {
			return true
		}
	}
	return false
}

type ChallengeParticipant struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_participant_unique,priority:1" json:"challengeId"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_participant_unique,priority:2;index" json:"userId"`
	User          User       `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	JoinedAt      time.Time  `gorm:"not null" json:"joinedAt"`
	Progress      float64    `gorm:"not null;default:0" json:"progress"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
}

func (p *ChallengeParticipant) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	return
}

type ChallengeInvite struct {
	ChallengeID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"invitedAt"`
}

// LeaderboardEntry is a denormalized snapshot rebuilt from participants.
type LeaderboardEntry struct {
	ChallengeID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Position    int       `gorm:"primaryKey;autoIncrement:false" json:"-"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"userId"`
	User        User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Score       float64   `gorm:"not null" json:"score"`
	Rank        int       `gorm:"not null" json:"rank"`
}

func (LeaderboardEntry) TableName() string {
	return "challenge_leaderboard_entries"
}

// ProgressEntry records one applied run. It is an audit trail, not the
// source of participant progress.
type ProgressEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChallengeID uuid.UUID `gorm:"type:uuid;not null;index:idx_progress_lookup,priority:1" json:"challengeId"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_progress_lookup,priority:2" json:"userId"`
	RunID       uuid.UUID `gorm:"type:uuid;not null;index" json:"runId"`
	Delta       float64   `gorm:"not null" json:"delta"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (e *ProgressEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID, err = uuid.NewV7()
	}
	return
}
