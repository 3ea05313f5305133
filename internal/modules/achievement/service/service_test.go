package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/bootstrap"
	"runtoyou.app/runtoyou/internal/entity"
	achievementDto "runtoyou.app/runtoyou/internal/modules/achievement/dto"
	achievementRepo "runtoyou.app/runtoyou/internal/modules/achievement/repository"
	presence "runtoyou.app/runtoyou/internal/modules/presence/service"
	"runtoyou.app/runtoyou/internal/testutil"
	"runtoyou.app/runtoyou/pkg/database"
)

func TestCriteriaMet(t *testing.T) {
	m := &achievementRepo.Metrics{
		Stats: entity.UserStats{
			TotalDistance:      120,
			TotalRuns:          12,
			TotalTime:          40000,
			TotalElevationGain: 900,
		},
		LongestRun:     21.1,
		LongestRunTime: 7200,
		Followers:      3,
		Following:      15,
	}

	achievement := func(category, criteriaType string, value float64, unit string) entity.Achievement {
		return entity.Achievement{
			Category: category,
			Criteria: entity.Criteria{Type: criteriaType, Value: value, Unit: unit},
		}
	}

	tests := []struct {
		name string
		a    entity.Achievement
		want bool
	}{
		{"cumulative distance met", achievement(entity.AchievementCategoryDistance, entity.CriteriaCumulative, 100, "km"), true},
		{"cumulative distance short", achievement(entity.AchievementCategoryDistance, entity.CriteriaCumulative, 200, "km"), false},
		{"single distance met", achievement(entity.AchievementCategoryDistance, entity.CriteriaSingle, 21, "km"), true},
		{"single distance short", achievement(entity.AchievementCategoryDistance, entity.CriteriaSingle, 42.2, "km"), false},
		{"cumulative duration", achievement(entity.AchievementCategoryDuration, entity.CriteriaCumulative, 36000, "seconds"), true},
		{"single duration short", achievement(entity.AchievementCategoryDuration, entity.CriteriaSingle, 10800, "seconds"), false},
		{"elevation", achievement(entity.AchievementCategoryElevation, entity.CriteriaCumulative, 500, "m"), true},
		{"elevation single unsupported", achievement(entity.AchievementCategoryElevation, entity.CriteriaSingle, 1, "m"), false},
		{"streak by run count", achievement(entity.AchievementCategoryStreak, entity.CriteriaStreak, 10, "runs"), true},
		{"streak too long", achievement(entity.AchievementCategoryStreak, entity.CriteriaStreak, 30, "runs"), false},
		{"followers short", achievement(entity.AchievementCategorySocial, entity.CriteriaSocial, 10, "followers"), false},
		{"following met", achievement(entity.AchievementCategorySocial, entity.CriteriaSocial, 10, "following"), true},
		{"milestone runs", achievement(entity.AchievementCategoryMilestone, entity.CriteriaCustom, 1, "runs"), true},
		{"speed never auto awarded", achievement(entity.AchievementCategorySpeed, entity.CriteriaSingle, 1, "min/km"), false},
		{"challenge never auto awarded", achievement(entity.AchievementCategoryChallenge, entity.CriteriaCustom, 1, "completion"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CriteriaMet(tt.a, m); got != tt.want {
				t.Errorf("CriteriaMet() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCriteriaMetSingleWithoutRuns(t *testing.T) {
	a := entity.Achievement{
		Category: entity.AchievementCategoryDistance,
		Criteria: entity.Criteria{Type: entity.CriteriaSingle, Value: 0, Unit: "km"},
	}
	if CriteriaMet(a, &achievementRepo.Metrics{}) {
		t.Fatal("single-run criteria met without any run")
	}
}

func newTestService(t *testing.T) (*achievementService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewAchievementService(achievementRepo.NewRepository(db), database.NewTransactor(db), presence.NewPublisher(nil)).(*achievementService)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }
	return svc, db
}

func TestAwardForChallengeIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "Ana")

	challenge := &entity.Challenge{
		ID:    uuid.New(),
		Name:  "Spring 50",
		Badge: entity.Badge{Name: "Spring", ImageURL: "https://img.example.com/s.png"},
	}
	linked, err := svc.CreateForChallenge(ctx, challenge)
	if err != nil {
		t.Fatalf("create linked achievement: %v", err)
	}
	if linked.Name != "Complete Spring 50" || linked.Points != 100 || linked.Rarity != entity.RarityUncommon {
		t.Fatalf("unexpected linked achievement %+v", linked)
	}

	a, added, err := svc.AwardForChallenge(ctx, challenge.ID, user.ID)
	if err != nil || !added || a.ID != linked.ID {
		t.Fatalf("first award = (%v, %v, %v)", a, added, err)
	}

	_, added, err = svc.AwardForChallenge(ctx, challenge.ID, user.ID)
	if err != nil {
		t.Fatalf("second award: %v", err)
	}
	if added {
		t.Fatal("achievement awarded twice")
	}

	var n int64
	db.Model(&entity.AchievementEarner{}).Where("achievement_id = ?", linked.ID).Count(&n)
	if n != 1 {
		t.Fatalf("earner rows = %d, want 1", n)
	}
}

func TestAwardForChallengeWithoutLinkedAchievement(t *testing.T) {
	svc, db := newTestService(t)
	user := testutil.CreateUser(t, db, "Ana")

	a, added, err := svc.AwardForChallenge(context.Background(), uuid.New(), user.ID)
	if err != nil || added || a != nil {
		t.Fatalf("got (%v, %v, %v), want nothing", a, added, err)
	}
}

func TestDeleteForChallenge(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "Ana")
	challenge := &entity.Challenge{ID: uuid.New(), Name: "Gone", Badge: entity.Badge{Name: "g", ImageURL: "u"}}

	if _, err := svc.CreateForChallenge(ctx, challenge); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.AwardForChallenge(ctx, challenge.ID, user.ID); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := svc.DeleteForChallenge(ctx, challenge.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var achievements, earners int64
	db.Model(&entity.Achievement{}).Count(&achievements)
	db.Model(&entity.AchievementEarner{}).Count(&earners)
	if achievements != 0 || earners != 0 {
		t.Fatalf("achievements=%d earners=%d after delete", achievements, earners)
	}
}

func TestGetMasksHiddenAchievement(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "Ana")
	viewer := testutil.CreateUser(t, db, "Ben")

	hidden := true
	a, err := svc.Create(ctx, achievementDto.CreateAchievementRequest{
		Name:        "Night Owl",
		Description: "Run after midnight",
		Category:    entity.AchievementCategoryMilestone,
		Criteria:    achievementDto.CriteriaInput{Type: entity.CriteriaCustom, Value: 1, Unit: "runs"},
		IsHidden:    &hidden,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Level != 1 || a.Rarity != entity.RarityCommon || a.Criteria.TimeFrame != "all_time" || !a.IsSystem {
		t.Fatalf("defaults not applied: %+v", a)
	}

	if err := db.Create(&entity.AchievementEarner{AchievementID: a.ID, UserID: owner.ID, EarnedAt: time.Now()}).Error; err != nil {
		t.Fatalf("earn: %v", err)
	}

	got, err := svc.Get(ctx, viewer.ID, a.ID)
	if err != nil {
		t.Fatalf("get as viewer: %v", err)
	}
	masked, ok := got.(*achievementDto.MaskedAchievement)
	if !ok {
		t.Fatalf("viewer got %T, want masked", got)
	}
	if masked.Name != "???" || masked.Description != hiddenDescription || masked.ID != a.ID.String() {
		t.Fatalf("masked = %+v", masked)
	}

	got, err = svc.Get(ctx, owner.ID, a.ID)
	if err != nil {
		t.Fatalf("get as owner: %v", err)
	}
	if full, ok := got.(*entity.Achievement); !ok || full.Name != "Night Owl" {
		t.Fatalf("owner got %#v", got)
	}

	if _, err := svc.Get(ctx, owner.ID, uuid.New()); !errors.Is(err, ErrAchievementNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestCheckAwardsMetSystemAchievements(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	if err := bootstrap.SeedAchievements(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	user := testutil.CreateUser(t, db, "Ana")
	testutil.CreateRun(t, db, user.ID, time.Now().Add(-time.Hour), 12, 3600, 40)
	if err := db.Model(&entity.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"stats_total_distance": 12,
		"stats_total_runs":     1,
		"stats_total_time":     3600,
	}).Error; err != nil {
		t.Fatalf("set stats: %v", err)
	}

	res, err := svc.Check(ctx, user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Message != "New achievements earned!" {
		t.Fatalf("message = %q", res.Message)
	}
	names := map[string]bool{}
	for _, a := range res.EarnedAchievements {
		names[a.Name] = true
	}
	if len(names) != 2 || !names["First Steps"] || !names["10K Runner"] {
		t.Fatalf("earned = %v", names)
	}

	res, err = svc.Check(ctx, user.ID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if res.Message != "No new achievements" || len(res.EarnedAchievements) != 0 {
		t.Fatalf("second check = %+v", res)
	}

	list, err := svc.ForUser(ctx, user.ID, achievementDto.ListQuery{Category: "distance"})
	if err != nil {
		t.Fatalf("for user: %v", err)
	}
	if list.Total != 1 || list.Achievements[0].Name != "10K Runner" || list.Achievements[0].EarnedAt.IsZero() {
		t.Fatalf("for user = %+v", list)
	}
}

func TestCheckUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Check(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, db := newTestService(t)
	if err := bootstrap.SeedAchievements(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name  string
		query achievementDto.ListQuery
		want  int64
	}{
		{"all", achievementDto.ListQuery{}, int64(len(bootstrap.SystemAchievements()))},
		{"category list", achievementDto.ListQuery{Category: "distance,duration"}, 3},
		{"level", achievementDto.ListQuery{Level: "3"}, 3},
		{"rarity", achievementDto.ListQuery{Rarity: "uncommon"}, 2},
		{"hidden only", achievementDto.ListQuery{IsHidden: "true"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.List(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if res.Total != tt.want {
				t.Fatalf("total = %d, want %d", res.Total, tt.want)
			}
		})
	}

	if _, err := svc.List(context.Background(), achievementDto.ListQuery{Level: "high"}); err == nil {
		t.Fatal("expected error for non-numeric level")
	}
}
