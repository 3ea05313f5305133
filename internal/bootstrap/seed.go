package bootstrap

import (
	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.Follow{},
		&entity.Route{},
		&entity.RouteReview{},
		&entity.Run{},
		&entity.RunComment{},
		&entity.Like{},
		&entity.Challenge{},
		&entity.ChallengeParticipant{},
		&entity.ChallengeInvite{},
		&entity.LeaderboardEntry{},
		&entity.ProgressEntry{},
		&entity.Achievement{},
		&entity.AchievementEarner{},
	)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []entity.Role{
		{Name: entity.RoleAdmin, Description: "Administrator"},
		{Name: entity.RoleRunner, Description: "Runner"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&entity.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedAdminUser(db *gorm.DB, email, password string) error {
	var adminRole entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.L().Debug("admin user already exists, skipping seed")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := entity.User{
		FirstName:    "Run To You",
		LastName:     "Admin",
		Email:        email,
		PasswordHash: string(hashed),
		RoleID:       &adminRole.ID,
		Preferences:  entity.DefaultPreferences(),
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	logger.L().Info("admin user seeded", zap.String("email", email))
	return nil
}

// SystemAchievements are the badges every runner can unlock through /achievements/check.
func SystemAchievements() []entity.Achievement {
	return []entity.Achievement{
		{
			Name: "First Steps", Description: "Log your first run", Category: entity.AchievementCategoryMilestone,
			Level: 1, Criteria: entity.Criteria{Type: entity.CriteriaCustom, Value: 1, Unit: "runs", TimeFrame: "all_time"},
			Icon: "shoe", UnlockMessage: "Every journey starts with a single run.", Points: 10, Rarity: entity.RarityCommon,
		},
		{
			Name: "10K Runner", Description: "Complete a single run of 10 km", Category: entity.AchievementCategoryDistance,
			Level: 2, Criteria: entity.Criteria{Type: entity.CriteriaSingle, Value: 10, Unit: "km", TimeFrame: "all_time"},
			Icon: "medal", UnlockMessage: "Double digits!", Points: 50, Rarity: entity.RarityUncommon,
		},
		{
			Name: "Century", Description: "Run 100 km in total", Category: entity.AchievementCategoryDistance,
			Level: 3, Criteria: entity.Criteria{Type: entity.CriteriaCumulative, Value: 100, Unit: "km", TimeFrame: "all_time"},
			Icon: "trophy", UnlockMessage: "One hundred kilometres and counting.", Points: 100, Rarity: entity.RarityRare,
		},
		{
			Name: "Endurance", Description: "Spend 10 hours running", Category: entity.AchievementCategoryDuration,
			Level: 3, Criteria: entity.Criteria{Type: entity.CriteriaCumulative, Value: 36000, Unit: "seconds", TimeFrame: "all_time"},
			Icon: "clock", UnlockMessage: "Ten hours on your feet.", Points: 100, Rarity: entity.RarityRare,
		},
		{
			Name: "Consistency", Description: "Log 30 runs", Category: entity.AchievementCategoryStreak,
			Level: 3, Criteria: entity.Criteria{Type: entity.CriteriaStreak, Value: 30, Unit: "runs", TimeFrame: "all_time"},
			Icon: "flame", UnlockMessage: "Thirty runs. Habit formed.", Points: 100, Rarity: entity.RarityRare,
		},
		{
			Name: "Running Buddies", Description: "Gain 10 followers", Category: entity.AchievementCategorySocial,
			Level: 2, Criteria: entity.Criteria{Type: entity.CriteriaSocial, Value: 10, Unit: "followers", TimeFrame: "all_time"},
			Icon: "people", UnlockMessage: "Your crew is growing.", Points: 50, Rarity: entity.RarityUncommon,
		},
	}
}

// SeedAchievements inserts missing system achievements by name.
func SeedAchievements(db *gorm.DB) error {
	for _, a := range SystemAchievements() {
		var count int64
		if err := db.Model(&entity.Achievement{}).
			Where("name = ? AND is_system = ?", a.Name, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		a.IsSystem = true
		if err := db.Create(&a).Error; err != nil {
			return err
		}
	}
	return nil
}
