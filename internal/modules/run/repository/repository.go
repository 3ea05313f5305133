package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/database"
)

type RunRepository interface {
	Create(ctx context.Context, run *entity.Run) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	FindByUser(ctx context.Context, userID uuid.UUID, includePrivate bool, offset, limit int) ([]entity.Run, int64, error)
	FindFeed(ctx context.Context, viewerID uuid.UUID, offset, limit int) ([]entity.Run, int64, error)
	Update(ctx context.Context, run *entity.Run) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddComment(ctx context.Context, comment *entity.RunComment) error
	FindComment(ctx context.Context, runID, commentID uuid.UUID) (*entity.RunComment, error)
	DeleteComment(ctx context.Context, commentID uuid.UUID) error
	ListComments(ctx context.Context, runID uuid.UUID) ([]entity.RunComment, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *runRepository) Create(ctx context.Context, run *entity.Run) error {
	return r.conn(ctx).Omit(clause.Associations).Create(run).Error
}

// FindByID loads the bare run row.
func (r *runRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	var run entity.Run
	if err := r.conn(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// FindDetail loads the run with its owner and comments, newest comment first.
func (r *runRepository) FindDetail(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	var run entity.Run
	if err := r.conn(ctx).
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Comments.User").
		Where("id = ?", id).
		First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) FindByUser(ctx context.Context, userID uuid.UUID, includePrivate bool, offset, limit int) ([]entity.Run, int64, error) {
	var runs []entity.Run
	var total int64

	query := r.conn(ctx).Model(&entity.Run{}).Where("user_id = ?", userID)
	if !includePrivate {
		query = query.Where("is_private = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("User").
		Order("start_time DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	return runs, total, err
}

// FindFeed returns public runs of the viewer and of everyone the viewer follows.
func (r *runRepository) FindFeed(ctx context.Context, viewerID uuid.UUID, offset, limit int) ([]entity.Run, int64, error) {
	var runs []entity.Run
	var total int64

	query := r.conn(ctx).Model(&entity.Run{}).
		Where("is_private = ?", false).
		Where("user_id = ? OR user_id IN (SELECT following_id FROM follows WHERE follower_id = ?)", viewerID, viewerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("User").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	return runs, total, err
}

func (r *runRepository) Update(ctx context.Context, run *entity.Run) error {
	return r.conn(ctx).
		Model(run).
		Select("title", "description", "is_private", "tags", "updated_at").
		Updates(run).Error
}

func (r *runRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.conn(ctx)
	if err := db.Where("run_id = ?", id).Delete(&entity.RunComment{}).Error; err != nil {
		return err
	}
	return db.Delete(&entity.Run{}, "id = ?", id).Error
}

func (r *runRepository) AddComment(ctx context.Context, comment *entity.RunComment) error {
	return r.conn(ctx).Omit(clause.Associations).Create(comment).Error
}

func (r *runRepository) FindComment(ctx context.Context, runID, commentID uuid.UUID) (*entity.RunComment, error) {
	var comment entity.RunComment
	if err := r.conn(ctx).Where("id = ? AND run_id = ?", commentID, runID).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *runRepository) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	return r.conn(ctx).Delete(&entity.RunComment{}, "id = ?", commentID).Error
}

func (r *runRepository) ListComments(ctx context.Context, runID uuid.UUID) ([]entity.RunComment, error) {
	var comments []entity.RunComment
	err := r.conn(ctx).
		Preload("User").
		Where("run_id = ?", runID).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}
