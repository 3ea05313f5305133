package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/database"
)

type LikeRepository interface {
	// Toggle adds the like when missing and removes it otherwise. It reports the new state.
	Toggle(ctx context.Context, like *entity.Like) (bool, error)
	LikerIDs(ctx context.Context, refID uuid.UUID, refType string) ([]uuid.UUID, error)
	LikerIDsFor(ctx context.Context, refIDs []uuid.UUID, refType string) (map[uuid.UUID][]uuid.UUID, error)
	Count(ctx context.Context, refID uuid.UUID, refType string) (int64, error)
	DeleteByReference(ctx context.Context, refID uuid.UUID, refType string) error
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *likeRepository) Toggle(ctx context.Context, like *entity.Like) (bool, error) {
	// Find with a slice keeps "record not found" out of the gorm log
	var existing []entity.Like
	if err := r.conn(ctx).
		Where("user_id = ? AND reference_id = ? AND reference_type = ?", like.UserID, like.ReferenceID, like.ReferenceType).
		Limit(1).
		Find(&existing).Error; err != nil {
		return false, err
	}

	if len(existing) > 0 {
		if err := r.conn(ctx).Delete(&existing[0]).Error; err != nil {
			return false, err
		}
		return false, nil
	}

	if err := r.conn(ctx).Create(like).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *likeRepository) LikerIDs(ctx context.Context, refID uuid.UUID, refType string) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.conn(ctx).
		Model(&entity.Like{}).
		Where("reference_id = ? AND reference_type = ?", refID, refType).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *likeRepository) LikerIDsFor(ctx context.Context, refIDs []uuid.UUID, refType string) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(refIDs))
	if len(refIDs) == 0 {
		return out, nil
	}

	var likes []entity.Like
	if err := r.conn(ctx).
		Where("reference_id IN ? AND reference_type = ?", refIDs, refType).
		Order("created_at ASC").
		Find(&likes).Error; err != nil {
		return nil, err
	}
	for _, l := range likes {
		out[l.ReferenceID] = append(out[l.ReferenceID], l.UserID)
	}
	return out, nil
}

func (r *likeRepository) Count(ctx context.Context, refID uuid.UUID, refType string) (int64, error) {
	var n int64
	err := r.conn(ctx).
		Model(&entity.Like{}).
		Where("reference_id = ? AND reference_type = ?", refID, refType).
		Count(&n).Error
	return n, err
}

func (r *likeRepository) DeleteByReference(ctx context.Context, refID uuid.UUID, refType string) error {
	return r.conn(ctx).
		Where("reference_id = ? AND reference_type = ?", refID, refType).
		Delete(&entity.Like{}).Error
}
