package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	leaderboardDto "runtoyou.app/runtoyou/internal/modules/leaderboard/dto"
	leaderboardRepo "runtoyou.app/runtoyou/internal/modules/leaderboard/repository"
	"runtoyou.app/runtoyou/internal/testutil"
)

func setStats(t *testing.T, db *gorm.DB, u *entity.User, km float64, runs int) {
	t.Helper()
	if err := db.Model(u).Updates(map[string]any{
		"stats_total_distance": km,
		"stats_total_runs":     runs,
	}).Error; err != nil {
		t.Fatal(err)
	}
}

func TestAllTimeStandings(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeaderboardService(leaderboardRepo.NewLeaderboardRepository(db), nil)
	ctx := context.Background()

	ana := testutil.CreateUser(t, db, "Ana")
	ben := testutil.CreateUser(t, db, "Ben")
	cy := testutil.CreateUser(t, db, "Cy")
	hidden := testutil.CreateUser(t, db, "Hidden")
	testutil.CreateUser(t, db, "Idle")

	setStats(t, db, ana, 120, 4)
	setStats(t, db, ben, 120, 9)
	setStats(t, db, cy, 30, 2)
	setStats(t, db, hidden, 500, 20)
	if err := db.Model(hidden).Update("pref_privacy_settings", entity.PrivacyPrivate).Error; err != nil {
		t.Fatal(err)
	}

	res, err := svc.Get(ctx, leaderboardDto.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Metric != leaderboardDto.MetricDistance || res.Timeframe != leaderboardDto.TimeframeAllTime {
		t.Fatalf("defaults = %s/%s", res.Metric, res.Timeframe)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("entries = %d, want 3 (private and idle runners excluded)", len(res.Entries))
	}

	wantRanks := []int{1, 1, 3}
	for i, e := range res.Entries {
		if e.Rank != wantRanks[i] || e.Position != i+1 {
			t.Fatalf("entry %d: rank %d position %d", i, e.Rank, e.Position)
		}
	}
	if res.Entries[0].User.ID != ana.ID.String() {
		t.Fatalf("tie should keep signup order, got %s first", res.Entries[0].User.FirstName)
	}
	if res.Entries[0].Level.Name != "Runner" || res.Entries[2].Level.Name != "Jogger" {
		t.Fatalf("levels = %s, %s", res.Entries[0].Level.Name, res.Entries[2].Level.Name)
	}

	byRuns, err := svc.Get(ctx, leaderboardDto.Query{Metric: leaderboardDto.MetricRuns, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(byRuns.Entries) != 1 || byRuns.Entries[0].User.ID != ben.ID.String() || byRuns.Entries[0].Value != 9 {
		t.Fatalf("runs leaderboard = %+v", byRuns.Entries)
	}
}

func TestWeeklyStandingsUsePublicRecentRuns(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLeaderboardService(leaderboardRepo.NewLeaderboardRepository(db), nil)
	ctx := context.Background()
	now := time.Now().UTC()

	ana := testutil.CreateUser(t, db, "Ana")
	ben := testutil.CreateUser(t, db, "Ben")

	testutil.CreateRun(t, db, ana.ID, now.Add(-24*time.Hour), 8, 2400, 50)
	testutil.CreateRun(t, db, ana.ID, now.Add(-48*time.Hour), 5, 1500, 20)
	testutil.CreateRun(t, db, ben.ID, now.Add(-24*time.Hour), 10, 3000, 10)
	testutil.CreateRun(t, db, ben.ID, now.AddDate(0, 0, -10), 42, 14000, 300)
	private := testutil.CreateRun(t, db, ben.ID, now.Add(-time.Hour), 30, 9000, 0)
	if err := db.Model(private).Update("is_private", true).Error; err != nil {
		t.Fatal(err)
	}

	weekly, err := svc.Get(ctx, leaderboardDto.Query{Timeframe: leaderboardDto.TimeframeWeekly})
	if err != nil {
		t.Fatal(err)
	}
	if len(weekly.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(weekly.Entries))
	}
	if weekly.Entries[0].User.ID != ana.ID.String() || weekly.Entries[0].Value != 13 {
		t.Fatalf("weekly leader = %+v", weekly.Entries[0])
	}
	if weekly.Entries[1].Value != 10 || weekly.Entries[1].Level.WeeklyDistance != 10 {
		t.Fatalf("ben weekly = %+v", weekly.Entries[1])
	}
	if weekly.Entries[1].Level.WeeklyLabel != "Active" {
		t.Fatalf("label = %q, want Active", weekly.Entries[1].Level.WeeklyLabel)
	}

	monthly, err := svc.Get(ctx, leaderboardDto.Query{Timeframe: leaderboardDto.TimeframeMonthly, Metric: leaderboardDto.MetricElevation})
	if err != nil {
		t.Fatal(err)
	}
	if monthly.Entries[0].User.ID != ben.ID.String() || monthly.Entries[0].Value != 310 {
		t.Fatalf("monthly elevation leader = %+v", monthly.Entries[0])
	}
}

func TestStandingsCached(t *testing.T) {
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	svc := NewLeaderboardService(leaderboardRepo.NewLeaderboardRepository(db), rdb)
	ctx := context.Background()

	ana := testutil.CreateUser(t, db, "Ana")
	setStats(t, db, ana, 50, 5)

	first, err := svc.Get(ctx, leaderboardDto.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Entries) != 1 {
		t.Fatalf("entries = %d", len(first.Entries))
	}

	ben := testutil.CreateUser(t, db, "Ben")
	setStats(t, db, ben, 80, 8)

	cached, err := svc.Get(ctx, leaderboardDto.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cached.Entries) != 1 {
		t.Fatalf("expected cached response, got %d entries", len(cached.Entries))
	}

	mr.FastForward(cacheTTL + time.Second)

	fresh, err := svc.Get(ctx, leaderboardDto.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh.Entries) != 2 || fresh.Entries[0].User.ID != ben.ID.String() {
		t.Fatalf("fresh = %+v", fresh.Entries)
	}
}
