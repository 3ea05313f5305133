package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LikeRefRun   = "run"
	LikeRefRoute = "route"
)

type Like struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_unique,priority:1" json:"userId"`
	ReferenceID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_unique,priority:2;index:idx_likes_lookup,priority:1" json:"referenceId"`
	ReferenceType string    `gorm:"size:20;not null;uniqueIndex:idx_likes_unique,priority:3;index:idx_likes_lookup,priority:2" json:"referenceType"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (l *Like) TableName() string {
	return "likes"
}

func (l *Like) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	return
}
