package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/database"
)

// ErrVersionConflict means another writer bumped the challenge version first.
var ErrVersionConflict = errors.New("challenge version conflict")

type ListQuery struct {
	ViewerID   uuid.UUID
	Types      []string
	Categories []string
	Active     *bool
	Visibility string
	Search     string
	SortBy     string
	Now        time.Time
	Offset     int
	Limit      int
}

type Repository interface {
	Create(ctx context.Context, challenge *entity.Challenge) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Challenge, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*entity.Challenge, error)
	FindAll(ctx context.Context, q ListQuery) ([]entity.Challenge, int64, error)
	FindByUser(ctx context.Context, userID uuid.UUID, active *bool, now time.Time, offset, limit int) ([]entity.Challenge, int64, error)
	Update(ctx context.Context, challenge *entity.Challenge) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddParticipant(ctx context.Context, p *entity.ChallengeParticipant) error
	RemoveParticipant(ctx context.Context, challengeID, userID uuid.UUID) error
	ListParticipants(ctx context.Context, challengeID uuid.UUID) ([]entity.ChallengeParticipant, error)
	SaveParticipant(ctx context.Context, p *entity.ChallengeParticipant) error
	AddInvites(ctx context.Context, invites []entity.ChallengeInvite) error
	RemoveInvite(ctx context.Context, challengeID, userID uuid.UUID) error
	ReplaceLeaderboard(ctx context.Context, challengeID uuid.UUID, entries []entity.LeaderboardEntry) error
	BumpVersion(ctx context.Context, id uuid.UUID, expected int) error
	AppendProgress(ctx context.Context, entry *entity.ProgressEntry) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *repository) Create(ctx context.Context, challenge *entity.Challenge) error {
	participants := challenge.Participants
	if err := r.conn(ctx).Omit(clause.Associations).Create(challenge).Error; err != nil {
		return err
	}
	for i := range participants {
		participants[i].ChallengeID = challenge.ID
		if err := r.conn(ctx).Omit(clause.Associations).Create(&participants[i]).Error; err != nil {
			return err
		}
	}
	challenge.Participants = participants
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Challenge, error) {
	var challenge entity.Challenge
	if err := r.conn(ctx).
		Preload("Creator").
		Preload("Route").
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		Preload("Participants.User").
		Preload("Leaderboard", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Leaderboard.User").
		Preload("Invites").
		Where("id = ?", id).
		First(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

// FindForUpdate locks the challenge row for the rest of the transaction.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*entity.Challenge, error) {
	var challenge entity.Challenge
	if err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&challenge).Error; err != nil {
		return nil, err
	}

	participants, err := r.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	challenge.Participants = participants
	return &challenge, nil
}

func (r *repository) FindAll(ctx context.Context, q ListQuery) ([]entity.Challenge, int64, error) {
	var challenges []entity.Challenge
	var total int64

	query := r.conn(ctx).Model(&entity.Challenge{}).
		Where(
			r.db.Where("challenges.visibility = ?", entity.VisibilityPublic).
				Or("challenges.visibility = ? AND EXISTS (SELECT 1 FROM challenge_invites ci WHERE ci.challenge_id = challenges.id AND ci.user_id = ?)", entity.VisibilityInviteOnly, q.ViewerID).
				Or("challenges.creator_id = ?", q.ViewerID),
		)

	if len(q.Types) > 0 {
		query = query.Where("challenges.type IN ?", q.Types)
	}
	if len(q.Categories) > 0 {
		query = query.Where("challenges.category IN ?", q.Categories)
	}
	if q.Visibility != "" {
		query = query.Where("challenges.visibility = ?", q.Visibility)
	}
	if q.Active != nil {
		if *q.Active {
			query = query.Where("challenges.is_active = ? AND challenges.end_date >= ?", true, q.Now)
		} else {
			query = query.Where("challenges.is_active = ? OR challenges.end_date < ?", false, q.Now)
		}
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where(
			"LOWER(challenges.name) LIKE ? OR LOWER(challenges.description) LIKE ? OR LOWER(challenges.tags) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch q.SortBy {
	case "startDate":
		query = query.Order("challenges.start_date ASC")
	case "endDate":
		query = query.Order("challenges.end_date ASC")
	case "participants":
		query = query.Order("(SELECT COUNT(*) FROM challenge_participants cp WHERE cp.challenge_id = challenges.id) DESC")
	default:
		query = query.Order("challenges.created_at DESC")
	}

	err := query.
		Preload("Creator").
		Preload("Participants").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&challenges).Error

	return challenges, total, err
}

// FindByUser returns challenges the user created or joined, newest start first.
func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID, active *bool, now time.Time, offset, limit int) ([]entity.Challenge, int64, error) {
	var challenges []entity.Challenge
	var total int64

	query := r.conn(ctx).Model(&entity.Challenge{}).
		Where("creator_id = ? OR EXISTS (SELECT 1 FROM challenge_participants cp WHERE cp.challenge_id = challenges.id AND cp.user_id = ?)", userID, userID)

	if active != nil {
		if *active {
			query = query.Where("is_active = ? AND end_date >= ?", true, now)
		} else {
			query = query.Where("is_active = ? OR end_date < ?", false, now)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Creator").
		Preload("Participants").
		Order("start_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&challenges).Error
	return challenges, total, err
}

func (r *repository) Update(ctx context.Context, challenge *entity.Challenge) error {
	return r.conn(ctx).
		Model(challenge).
		Select("name", "description", "is_active", "visibility", "rules", "rewards", "tags", "badge_name", "badge_image_url", "badge_description", "updates", "updated_at").
		Updates(challenge).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.conn(ctx)
	for _, model := range []any{
		&entity.ChallengeParticipant{},
		&entity.ChallengeInvite{},
		&entity.LeaderboardEntry{},
		&entity.ProgressEntry{},
	} {
		if err := db.Where("challenge_id = ?", id).Delete(model).Error; err != nil {
			return err
		}
	}
	return db.Delete(&entity.Challenge{}, "id = ?", id).Error
}

func (r *repository) AddParticipant(ctx context.Context, p *entity.ChallengeParticipant) error {
	return r.conn(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *repository) RemoveParticipant(ctx context.Context, challengeID, userID uuid.UUID) error {
	return r.conn(ctx).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Delete(&entity.ChallengeParticipant{}).Error
}

func (r *repository) ListParticipants(ctx context.Context, challengeID uuid.UUID) ([]entity.ChallengeParticipant, error) {
	var participants []entity.ChallengeParticipant
	err := r.conn(ctx).
		Preload("User").
		Where("challenge_id = ?", challengeID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

func (r *repository) SaveParticipant(ctx context.Context, p *entity.ChallengeParticipant) error {
	return r.conn(ctx).
		Model(&entity.ChallengeParticipant{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"progress":       p.Progress,
			"completed":      p.Completed,
			"completed_date": p.CompletedDate,
		}).Error
}

func (r *repository) AddInvites(ctx context.Context, invites []entity.ChallengeInvite) error {
	if len(invites) == 0 {
		return nil
	}
	return r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&invites).Error
}

func (r *repository) RemoveInvite(ctx context.Context, challengeID, userID uuid.UUID) error {
	return r.conn(ctx).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Delete(&entity.ChallengeInvite{}).Error
}

// ReplaceLeaderboard swaps the stored snapshot for entries.
func (r *repository) ReplaceLeaderboard(ctx context.Context, challengeID uuid.UUID, entries []entity.LeaderboardEntry) error {
	db := r.conn(ctx)
	if err := db.Where("challenge_id = ?", challengeID).Delete(&entity.LeaderboardEntry{}).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return db.Omit(clause.Associations).Create(&entries).Error
}

// BumpVersion is a compare-and-swap on the challenge version.
func (r *repository) BumpVersion(ctx context.Context, id uuid.UUID, expected int) error {
	res := r.conn(ctx).
		Model(&entity.Challenge{}).
		Where("id = ? AND version = ?", id, expected).
		Updates(map[string]any{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) AppendProgress(ctx context.Context, entry *entity.ProgressEntry) error {
	return r.conn(ctx).Create(entry).Error
}

func (r *repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.conn(ctx).
		Model(&entity.Challenge{}).
		Where("is_active = ? AND end_date < ?", true, now).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
