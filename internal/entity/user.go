package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

const (
	RoleAdmin  = "admin"
	RoleRunner = "runner"
)

// UserStats are running totals maintained by run create/delete.
type UserStats struct {
	TotalDistance       float64 `gorm:"default:0" json:"totalDistance"`
	TotalRuns           int     `gorm:"default:0" json:"totalRuns"`
	TotalTime           float64 `gorm:"default:0" json:"totalTime"`
	AveragePace         float64 `gorm:"default:0" json:"averagePace"`
	TotalElevationGain  float64 `gorm:"default:0" json:"totalElevationGain"`
	TotalCaloriesBurned float64 `gorm:"default:0" json:"totalCaloriesBurned"`
}

const (
	DistanceUnitKm = "km"
	DistanceUnitMi = "mi"

	PrivacyPublic    = "public"
	PrivacyFollowers = "followers"
	PrivacyPrivate   = "private"
)

type Preferences struct {
	DistanceUnit    string `gorm:"size:2;default:km" json:"distanceUnit"`
	PaceUnit        string `gorm:"size:10;default:min/km" json:"paceUnit"`
	PrivacySettings string `gorm:"size:10;default:public" json:"privacySettings"`
	Notifications   bool   `gorm:"not null" json:"notifications"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		DistanceUnit:    DistanceUnitKm,
		PaceUnit:        "min/km",
		PrivacySettings: PrivacyPublic,
		Notifications:   true,
	}
}

type User struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName      string      `gorm:"size:100;not null" json:"firstName"`
	LastName       string      `gorm:"size:100;not null" json:"lastName"`
	Email          string      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash   string      `gorm:"size:255;not null" json:"-"`
	RoleID         *uint       `json:"roleId,omitempty"`
	Role           Role        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role"`
	ProfilePicture *string     `gorm:"type:text" json:"profilePicture,omitempty"`
	Bio            string      `gorm:"type:text" json:"bio"`
	Location       string      `gorm:"size:255" json:"location"`
	FitnessGoals   string      `gorm:"type:text" json:"fitnessGoals"`
	GoogleID       *string     `gorm:"size:100;uniqueIndex" json:"-"`
	Stats          UserStats   `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	Preferences    Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	FollowerID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"followerId"`
	FollowingID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"followingId"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
