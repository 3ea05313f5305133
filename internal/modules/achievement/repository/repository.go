package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/database"
)

type Filter struct {
	Categories []string
	Levels     []int
	IsHidden   *bool
	Rarities   []string
	Offset     int
	Limit      int
}

// EarnedAchievement is an achievement joined with the time a user earned it.
type EarnedAchievement struct {
	entity.Achievement
	EarnedAt time.Time `json:"earnedAt"`
}

// Metrics are the user figures system criteria are evaluated against.
type Metrics struct {
	Stats          entity.UserStats
	LongestRun     float64
	LongestRunTime float64
	Followers      int64
	Following      int64
}

type Repository interface {
	Create(ctx context.Context, achievement *entity.Achievement) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Achievement, error)
	FindByChallengeID(ctx context.Context, challengeID uuid.UUID) (*entity.Achievement, error)
	FindAll(ctx context.Context, f Filter) ([]entity.Achievement, int64, error)
	FindEarnedByUser(ctx context.Context, userID uuid.UUID, f Filter) ([]EarnedAchievement, int64, error)
	FindUnearnedSystem(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error)
	HasEarned(ctx context.Context, achievementID, userID uuid.UUID) (bool, error)
	AddEarner(ctx context.Context, earner *entity.AchievementEarner) (bool, error)
	DeleteByChallengeID(ctx context.Context, challengeID uuid.UUID) error
	UserMetrics(ctx context.Context, userID uuid.UUID) (*Metrics, error)
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

func (r *repository) Create(ctx context.Context, achievement *entity.Achievement) error {
	return r.conn(ctx).Omit(clause.Associations).Create(achievement).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Achievement, error) {
	var achievement entity.Achievement
	if err := r.conn(ctx).Preload("EarnedBy").Where("id = ?", id).First(&achievement).Error; err != nil {
		return nil, err
	}
	return &achievement, nil
}

// FindByChallengeID returns nil without error when the challenge has no linked achievement.
func (r *repository) FindByChallengeID(ctx context.Context, challengeID uuid.UUID) (*entity.Achievement, error) {
	var found []entity.Achievement
	if err := r.conn(ctx).Where("challenge_id = ?", challengeID).Limit(1).Find(&found).Error; err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func applyFilter(query *gorm.DB, f Filter) *gorm.DB {
	if len(f.Categories) > 0 {
		query = query.Where("achievements.category IN ?", f.Categories)
	}
	if len(f.Levels) > 0 {
		query = query.Where("achievements.level IN ?", f.Levels)
	}
	if f.IsHidden != nil {
		query = query.Where("achievements.is_hidden = ?", *f.IsHidden)
	}
	if len(f.Rarities) > 0 {
		query = query.Where("achievements.rarity IN ?", f.Rarities)
	}
	return query
}

func (r *repository) FindAll(ctx context.Context, f Filter) ([]entity.Achievement, int64, error) {
	var achievements []entity.Achievement
	var total int64

	query := applyFilter(r.conn(ctx).Model(&entity.Achievement{}), f)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("achievements.category ASC, achievements.level ASC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&achievements).Error
	return achievements, total, err
}

func (r *repository) FindEarnedByUser(ctx context.Context, userID uuid.UUID, f Filter) ([]EarnedAchievement, int64, error) {
	var earners []entity.AchievementEarner
	var total int64

	query := applyFilter(
		r.conn(ctx).Model(&entity.AchievementEarner{}).
			Joins("JOIN achievements ON achievements.id = achievement_earners.achievement_id").
			Where("achievement_earners.user_id = ?", userID),
		f,
	)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Select("achievement_earners.*").
		Order("achievement_earners.earned_at DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&earners).Error; err != nil {
		return nil, 0, err
	}
	if len(earners) == 0 {
		return []EarnedAchievement{}, total, nil
	}

	ids := make([]uuid.UUID, len(earners))
	for i, e := range earners {
		ids[i] = e.AchievementID
	}

	var achievements []entity.Achievement
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&achievements).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[uuid.UUID]entity.Achievement, len(achievements))
	for _, a := range achievements {
		byID[a.ID] = a
	}

	earned := make([]EarnedAchievement, 0, len(earners))
	for _, e := range earners {
		if a, ok := byID[e.AchievementID]; ok {
			earned = append(earned, EarnedAchievement{Achievement: a, EarnedAt: e.EarnedAt})
		}
	}
	return earned, total, nil
}

func (r *repository) FindUnearnedSystem(ctx context.Context, userID uuid.UUID) ([]entity.Achievement, error) {
	var achievements []entity.Achievement
	err := r.conn(ctx).
		Where("is_system = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM achievement_earners ae WHERE ae.achievement_id = achievements.id AND ae.user_id = ?)", userID).
		Order("category ASC, level ASC").
		Find(&achievements).Error
	return achievements, err
}

func (r *repository) HasEarned(ctx context.Context, achievementID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.conn(ctx).
		Model(&entity.AchievementEarner{}).
		Where("achievement_id = ? AND user_id = ?", achievementID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddEarner inserts the earner row and reports whether it was new.
func (r *repository) AddEarner(ctx context.Context, earner *entity.AchievementEarner) (bool, error) {
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(earner)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteByChallengeID(ctx context.Context, challengeID uuid.UUID) error {
	db := r.conn(ctx)
	if err := db.
		Where("achievement_id IN (?)", db.Model(&entity.Achievement{}).Select("id").Where("challenge_id = ?", challengeID)).
		Delete(&entity.AchievementEarner{}).Error; err != nil {
		return err
	}
	return db.Where("challenge_id = ?", challengeID).Delete(&entity.Achievement{}).Error
}

func (r *repository) UserMetrics(ctx context.Context, userID uuid.UUID) (*Metrics, error) {
	db := r.conn(ctx)

	var user entity.User
	if err := db.Select("id", "stats_total_distance", "stats_total_runs", "stats_total_time", "stats_average_pace", "stats_total_elevation_gain", "stats_total_calories_burned").
		Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}

	m := &Metrics{Stats: user.Stats}

	var longest struct {
		Distance float64
		Duration float64
	}
	if err := db.Model(&entity.Run{}).
		Select("COALESCE(MAX(distance), 0) AS distance, COALESCE(MAX(duration), 0) AS duration").
		Where("user_id = ?", userID).
		Scan(&longest).Error; err != nil {
		return nil, err
	}
	m.LongestRun = longest.Distance
	m.LongestRunTime = longest.Duration

	if err := db.Model(&entity.Follow{}).Where("following_id = ?", userID).Count(&m.Followers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&entity.Follow{}).Where("follower_id = ?", userID).Count(&m.Following).Error; err != nil {
		return nil, err
	}
	return m, nil
}
