package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GeoPoint struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Elevation float64    `json:"elevation,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type NamedPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

type RouteData struct {
	Coordinates   []GeoPoint  `json:"coordinates,omitempty"`
	StartLocation *NamedPoint `json:"startLocation,omitempty"`
	EndLocation   *NamedPoint `json:"endLocation,omitempty"`
}

type Weather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Conditions  string  `json:"conditions"`
}

type RunImage struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// Run is immutable for challenge accounting: only title, description,
// privacy and tags may change after creation.
type Run struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID    `gorm:"type:uuid;not null;index" json:"userId"`
	User           User         `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Title          string       `gorm:"size:200;not null" json:"title"`
	Description    string       `gorm:"type:text" json:"description"`
	Distance       float64      `gorm:"not null" json:"distance"`
	Duration       float64      `gorm:"not null" json:"duration"`
	Pace           float64      `json:"pace"`
	StartTime      time.Time    `gorm:"not null;index" json:"startTime"`
	EndTime        time.Time    `gorm:"not null" json:"endTime"`
	RouteID        *uuid.UUID   `gorm:"type:uuid;index" json:"routeId,omitempty"`
	RouteData      *RouteData   `gorm:"type:text;serializer:json" json:"routeData,omitempty"`
	Weather        *Weather     `gorm:"type:text;serializer:json" json:"weatherConditions,omitempty"`
	ElevationGain  float64      `gorm:"default:0" json:"elevationGain"`
	CaloriesBurned float64      `gorm:"default:0" json:"caloriesBurned"`
	Images         []RunImage   `gorm:"type:text;serializer:json" json:"images"`
	IsPrivate      bool         `gorm:"default:false;index" json:"isPrivate"`
	Tags           []string     `gorm:"type:text;serializer:json" json:"tags"`
	ChallengeID    *uuid.UUID   `gorm:"type:uuid" json:"challengeId,omitempty"`
	Comments       []RunComment `gorm:"constraint:OnDelete:CASCADE" json:"comments"`
	Likes          []uuid.UUID  `gorm:"-" json:"likes"`
	CreatedAt      time.Time    `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (r *Run) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

type RunComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index" json:"runId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"userId"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (c *RunComment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}
