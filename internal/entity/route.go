package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `gorm:"size:255" json:"name"`
	Address   string  `gorm:"size:255" json:"address"`
}

type PointOfInterest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Type        string  `json:"type"`
}

type Route struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatorID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"creatorId"`
	Creator           User              `gorm:"constraint:OnDelete:CASCADE" json:"creator"`
	Name              string            `gorm:"size:200;not null" json:"name"`
	Description       string            `gorm:"type:text" json:"description"`
	Distance          float64           `gorm:"not null;index" json:"distance"`
	EstimatedDuration float64           `gorm:"default:0" json:"estimatedDuration"`
	ElevationGain     float64           `gorm:"default:0" json:"elevationGain"`
	Difficulty        string            `gorm:"size:20;default:moderate;index" json:"difficulty"`
	RouteType         string            `gorm:"size:20;default:loop" json:"routeType"`
	StartLocation     Location          `gorm:"embedded;embeddedPrefix:start_" json:"startLocation"`
	EndLocation       Location          `gorm:"embedded;embeddedPrefix:end_" json:"endLocation"`
	Path              []GeoPoint        `gorm:"type:text;serializer:json" json:"path"`
	Terrain           string            `gorm:"size:20;default:road" json:"terrain"`
	SurfaceType       string            `gorm:"size:20;default:paved" json:"surfaceType"`
	Tags              []string          `gorm:"type:text;serializer:json" json:"tags"`
	IsPublic          bool              `gorm:"not null;index" json:"isPublic"`
	UsageCount        int64             `gorm:"default:0" json:"usageCount"`
	AverageRating     float64           `gorm:"default:0" json:"averageRating"`
	PointsOfInterest  []PointOfInterest `gorm:"type:text;serializer:json" json:"pointsOfInterest"`
	Reviews           []RouteReview     `gorm:"constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
	Likes             []uuid.UUID       `gorm:"-" json:"likes"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (r *Route) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

type RouteReview struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_route_reviews_unique,priority:1" json:"routeId"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_route_reviews_unique,priority:2" json:"userId"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (r *RouteReview) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
