package service

import (
	"context"
	"testing"
	"time"

	"runtoyou.app/runtoyou/internal/entity"
	statRepo "runtoyou.app/runtoyou/internal/modules/stat/repository"
	userRepo "runtoyou.app/runtoyou/internal/modules/user/repository"
	"runtoyou.app/runtoyou/internal/testutil"
)

func TestCommunityStats(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewStatService(statRepo.NewStatRepository(db), userRepo.NewUserRepository(db))
	ctx := context.Background()

	empty, err := svc.GetCommunityStats(ctx)
	if err != nil {
		t.Fatalf("empty stats: %v", err)
	}
	if empty.TotalUsers != 0 || empty.TotalRuns != 0 || empty.TotalDistance != 0 {
		t.Fatalf("empty = %+v", empty)
	}

	ana := testutil.CreateUser(t, db, "Ana")
	ben := testutil.CreateUser(t, db, "Ben")
	now := time.Now().UTC()

	testutil.CreateRun(t, db, ana.ID, now.Add(-time.Hour), 5, 1500, 40)
	testutil.CreateRun(t, db, ben.ID, now.Add(-2*time.Hour), 10.5, 3300, 60)
	hidden := testutil.CreateRun(t, db, ben.ID, now.Add(-3*time.Hour), 100, 30000, 900)
	if err := db.Model(hidden).Update("is_private", true).Error; err != nil {
		t.Fatal(err)
	}

	for i, active := range []bool{true, true, false} {
		c := &entity.Challenge{
			Name:      "Challenge",
			CreatorID: ana.ID,
			Type:      entity.ChallengeTypeDistance,
			StartDate: now.AddDate(0, 0, -i-1),
			EndDate:   now.AddDate(0, 0, 7),
			IsActive:  active,
		}
		if err := db.Create(c).Error; err != nil {
			t.Fatal(err)
		}
	}

	for _, public := range []bool{true, false} {
		r := &entity.Route{CreatorID: ben.ID, Name: "Loop", Distance: 5, IsPublic: public}
		if err := db.Create(r).Error; err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.GetCommunityStats(ctx)
	if err != nil {
		t.Fatal(err)
	}

	want := struct {
		users, runs, challenges, routes int64
		distance, duration, elevation   float64
	}{2, 2, 2, 1, 15.5, 4800, 100}

	if stats.TotalUsers != want.users || stats.TotalRuns != want.runs {
		t.Fatalf("users/runs = %d/%d", stats.TotalUsers, stats.TotalRuns)
	}
	if stats.TotalDistance != want.distance || stats.TotalDuration != want.duration || stats.TotalElevationGain != want.elevation {
		t.Fatalf("totals = %+v", stats)
	}
	if stats.ActiveChallenges != want.challenges || stats.PublicRoutes != want.routes {
		t.Fatalf("challenges/routes = %d/%d", stats.ActiveChallenges, stats.PublicRoutes)
	}
}
