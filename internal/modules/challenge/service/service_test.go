package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"runtoyou.app/runtoyou/internal/entity"
	achievementRepo "runtoyou.app/runtoyou/internal/modules/achievement/repository"
	achievement "runtoyou.app/runtoyou/internal/modules/achievement/service"
	challengeDto "runtoyou.app/runtoyou/internal/modules/challenge/dto"
	challengeRepo "runtoyou.app/runtoyou/internal/modules/challenge/repository"
	presence "runtoyou.app/runtoyou/internal/modules/presence/service"
	runRepo "runtoyou.app/runtoyou/internal/modules/run/repository"
	"runtoyou.app/runtoyou/internal/testutil"
	"runtoyou.app/runtoyou/pkg/apperror"
	"runtoyou.app/runtoyou/pkg/database"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db   *gorm.DB
	rdb  *redis.Client
	repo challengeRepo.Repository
	svc  *challengeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	tx := database.NewTransactor(db)
	publisher := presence.NewPublisher(rdb)
	repo := challengeRepo.NewRepository(db)

	linker := achievement.NewAchievementService(achievementRepo.NewRepository(db), tx, publisher)
	svc := NewChallengeService(repo, runRepo.NewRunRepository(db), linker, tx, publisher).(*challengeService)
	svc.now = func() time.Time { return testNow }

	return &fixture{db: db, rdb: rdb, repo: repo, svc: svc}
}

func (f *fixture) createChallenge(t *testing.T, creator uuid.UUID, mutate func(*challengeDto.CreateChallengeRequest)) *entity.Challenge {
	t.Helper()
	req := challengeDto.CreateChallengeRequest{
		Name:      "March Hundred",
		Type:      entity.ChallengeTypeDistance,
		Goal:      challengeDto.GoalInput{Value: 100, Unit: "km"},
		StartDate: testNow.AddDate(0, 0, -14),
		EndDate:   testNow.AddDate(0, 0, 16),
		Badge:     &challengeDto.BadgeInput{Name: "Centurion", ImageURL: "https://img.example.com/c.png"},
	}
	if mutate != nil {
		mutate(&req)
	}
	c, err := f.svc.Create(context.Background(), creator, req)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	return c
}

func (f *fixture) participant(t *testing.T, challengeID, userID uuid.UUID) entity.ChallengeParticipant {
	t.Helper()
	var p entity.ChallengeParticipant
	if err := f.db.Where("challenge_id = ? AND user_id = ?", challengeID, userID).First(&p).Error; err != nil {
		t.Fatalf("load participant: %v", err)
	}
	return p
}

func (f *fixture) setProgress(t *testing.T, challengeID, userID uuid.UUID, progress float64) {
	t.Helper()
	if err := f.db.Model(&entity.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Update("progress", progress).Error; err != nil {
		t.Fatalf("set progress: %v", err)
	}
}

func (f *fixture) earnerCount(t *testing.T, challengeID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&entity.AchievementEarner{}).
		Joins("JOIN achievements ON achievements.id = achievement_earners.achievement_id").
		Where("achievements.challenge_id = ?", challengeID).
		Count(&n).Error; err != nil {
		t.Fatalf("count earners: %v", err)
	}
	return n
}

func TestCreateChallengeAddsCreatorAndLinkedAchievement(t *testing.T) {
	f := newFixture(t)
	creator := testutil.CreateUser(t, f.db, "Ana")

	c := f.createChallenge(t, creator.ID, nil)

	if len(c.Participants) != 1 || c.Participants[0].UserID != creator.ID {
		t.Fatalf("participants = %+v, want creator only", c.Participants)
	}
	if !c.IsActive || c.Visibility != entity.VisibilityPublic {
		t.Errorf("isActive=%v visibility=%q", c.IsActive, c.Visibility)
	}
	if len(c.Leaderboard) != 1 || c.Leaderboard[0].Rank != 1 {
		t.Errorf("leaderboard = %+v", c.Leaderboard)
	}

	var a entity.Achievement
	if err := f.db.Where("challenge_id = ?", c.ID).First(&a).Error; err != nil {
		t.Fatalf("linked achievement missing: %v", err)
	}
	if a.Name != "Complete March Hundred" || a.IsSystem || a.Category != entity.AchievementCategoryChallenge {
		t.Errorf("unexpected achievement %+v", a)
	}
}

func TestCreateChallengeWithoutBadgeHasNoAchievement(t *testing.T) {
	f := newFixture(t)
	creator := testutil.CreateUser(t, f.db, "Ana")

	c := f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.Badge = &challengeDto.BadgeInput{Name: "No image"}
	})

	var n int64
	f.db.Model(&entity.Achievement{}).Where("challenge_id = ?", c.ID).Count(&n)
	if n != 0 {
		t.Fatalf("got %d achievements, want 0", n)
	}
}

func TestCreateChallengeRequiresGoal(t *testing.T) {
	f := newFixture(t)
	creator := testutil.CreateUser(t, f.db, "Ana")

	_, err := f.svc.Create(context.Background(), creator.ID, challengeDto.CreateChallengeRequest{
		Name:      "No goal",
		Type:      entity.ChallengeTypeDistance,
		StartDate: testNow,
		EndDate:   testNow.AddDate(0, 0, 1),
	})
	if !errors.Is(err, ErrGoalRequired) {
		t.Fatalf("err = %v, want ErrGoalRequired", err)
	}
}

func TestUpdateProgressCompletesAndAwardsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	runner := testutil.CreateUser(t, f.db, "Ben")

	c := f.createChallenge(t, creator.ID, nil)
	if _, err := f.svc.Join(ctx, runner.ID, c.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	f.setProgress(t, c.ID, runner.ID, 92)

	run := testutil.CreateRun(t, f.db, runner.ID, testNow.AddDate(0, 0, -1), 10, 3000, 50)
	res, err := f.svc.UpdateProgress(ctx, runner.ID, c.ID, challengeDto.ProgressRequest{RunID: run.ID.String()})
	if err != nil {
		t.Fatalf("update progress: %v", err)
	}

	if res.Progress != 102 || !res.Completed {
		t.Fatalf("progress=%v completed=%v, want 102 true", res.Progress, res.Completed)
	}
	if len(res.Leaderboard) != 2 || res.Leaderboard[0].UserID != runner.ID || res.Leaderboard[0].Rank != 1 {
		t.Fatalf("leaderboard = %+v", res.Leaderboard)
	}
	if got := f.earnerCount(t, c.ID); got != 1 {
		t.Fatalf("earners = %d, want 1", got)
	}

	p := f.participant(t, c.ID, runner.ID)
	if p.CompletedDate == nil {
		t.Fatal("completed date not stored")
	}
	firstCompletion := *p.CompletedDate

	second := testutil.CreateRun(t, f.db, runner.ID, testNow.AddDate(0, 0, -2), 5, 1500, 10)
	res, err = f.svc.UpdateProgress(ctx, runner.ID, c.ID, challengeDto.ProgressRequest{RunID: second.ID.String()})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if res.Progress != 107 || !res.Completed {
		t.Fatalf("progress=%v completed=%v, want 107 true", res.Progress, res.Completed)
	}
	if got := f.earnerCount(t, c.ID); got != 1 {
		t.Fatalf("earners after second completion = %d, want 1", got)
	}
	p = f.participant(t, c.ID, runner.ID)
	if !p.CompletedDate.Equal(firstCompletion) {
		t.Fatal("completed date moved on a later run")
	}
}

func TestUpdateProgressRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	stranger := testutil.CreateUser(t, f.db, "Cid")

	c := f.createChallenge(t, creator.ID, nil)
	own := testutil.CreateRun(t, f.db, creator.ID, testNow.AddDate(0, 0, -1), 5, 1500, 0)
	early := testutil.CreateRun(t, f.db, creator.ID, testNow.AddDate(0, 0, -30), 5, 1500, 0)
	late := testutil.CreateRun(t, f.db, creator.ID, testNow.AddDate(0, 0, 30), 5, 1500, 0)
	foreign := testutil.CreateRun(t, f.db, stranger.ID, testNow.AddDate(0, 0, -1), 5, 1500, 0)

	tests := []struct {
		name   string
		userID uuid.UUID
		runID  string
		want   error
	}{
		{"missing run id", creator.ID, "", ErrRunIDRequired},
		{"not a participant", stranger.ID, foreign.ID.String(), ErrNotParticipant},
		{"not a participant checked before run", stranger.ID, uuid.NewString(), ErrNotParticipant},
		{"unknown run", creator.ID, uuid.NewString(), ErrRunNotFound},
		{"malformed run id", creator.ID, "not-a-uuid", ErrRunNotFound},
		{"someone else's run", creator.ID, foreign.ID.String(), ErrRunNotOwned},
		{"before window", creator.ID, early.ID.String(), ErrOutOfWindow},
		{"after window", creator.ID, late.ID.String(), ErrOutOfWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateProgress(ctx, tt.userID, c.ID, challengeDto.ProgressRequest{RunID: tt.runID})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := f.svc.UpdateProgress(ctx, creator.ID, uuid.New(), challengeDto.ProgressRequest{RunID: own.ID.String()})
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("unknown challenge err = %v", err)
	}

	if p := f.participant(t, c.ID, creator.ID); p.Progress != 0 || p.Completed {
		t.Fatalf("rejected updates mutated participant: %+v", p)
	}
	var entries int64
	f.db.Model(&entity.ProgressEntry{}).Where("challenge_id = ?", c.ID).Count(&entries)
	if entries != 0 {
		t.Fatalf("ledger has %d entries, want 0", entries)
	}
}

func TestUpdateProgressWindowIsInclusive(t *testing.T) {
	f := newFixture(t)
	creator := testutil.CreateUser(t, f.db, "Ana")
	c := f.createChallenge(t, creator.ID, nil)

	atStart := testutil.CreateRun(t, f.db, creator.ID, c.StartDate, 3, 900, 0)
	atEnd := testutil.CreateRun(t, f.db, creator.ID, c.EndDate, 4, 1200, 0)

	for _, r := range []*entity.Run{atStart, atEnd} {
		if _, err := f.svc.UpdateProgress(context.Background(), creator.ID, c.ID, challengeDto.ProgressRequest{RunID: r.ID.String()}); err != nil {
			t.Fatalf("run at boundary rejected: %v", err)
		}
	}
	if p := f.participant(t, c.ID, creator.ID); p.Progress != 7 {
		t.Fatalf("progress = %v, want 7", p.Progress)
	}
}

func TestUpdateProgressDuplicateRunCountsTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	c := f.createChallenge(t, creator.ID, nil)
	run := testutil.CreateRun(t, f.db, creator.ID, testNow.AddDate(0, 0, -1), 6, 1800, 0)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.UpdateProgress(ctx, creator.ID, c.ID, challengeDto.ProgressRequest{RunID: run.ID.String()}); err != nil {
			t.Fatalf("submission %d: %v", i, err)
		}
	}

	if p := f.participant(t, c.ID, creator.ID); p.Progress != 12 {
		t.Fatalf("progress = %v, want 12", p.Progress)
	}
	var entries int64
	f.db.Model(&entity.ProgressEntry{}).Where("challenge_id = ? AND run_id = ?", c.ID, run.ID).Count(&entries)
	if entries != 2 {
		t.Fatalf("ledger entries = %d, want 2", entries)
	}
}

func TestUpdateProgressByChallengeType(t *testing.T) {
	tests := []struct {
		challengeType string
		want          float64
	}{
		{entity.ChallengeTypeDuration, 2400},
		{entity.ChallengeTypeElevation, 85},
		{entity.ChallengeTypeStreak, 1},
		{entity.ChallengeTypeCustom, 0},
	}

	for _, tt := range tests {
		t.Run(tt.challengeType, func(t *testing.T) {
			f := newFixture(t)
			creator := testutil.CreateUser(t, f.db, "Ana")
			c := f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
				r.Type = tt.challengeType
				r.Goal = challengeDto.GoalInput{Value: 100000, Unit: "units"}
			})
			run := testutil.CreateRun(t, f.db, creator.ID, testNow.AddDate(0, 0, -1), 8, 2400, 85)

			res, err := f.svc.UpdateProgress(context.Background(), creator.ID, c.ID, challengeDto.ProgressRequest{RunID: run.ID.String()})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if res.Progress != tt.want {
				t.Fatalf("progress = %v, want %v", res.Progress, tt.want)
			}
		})
	}
}

func TestUpdateProgressLeaderboardTies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "Ana")
	b := testutil.CreateUser(t, f.db, "Ben")
	cUser := testutil.CreateUser(t, f.db, "Cid")

	c := f.createChallenge(t, a.ID, nil)
	for _, u := range []*entity.User{b, cUser} {
		if _, err := f.svc.Join(ctx, u.ID, c.ID); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	f.setProgress(t, c.ID, a.ID, 50)
	f.setProgress(t, c.ID, b.ID, 40)
	f.setProgress(t, c.ID, cUser.ID, 30)

	run := testutil.CreateRun(t, f.db, b.ID, testNow.AddDate(0, 0, -1), 10, 3000, 0)
	res, err := f.svc.UpdateProgress(ctx, b.ID, c.ID, challengeDto.ProgressRequest{RunID: run.ID.String()})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	wantRanks := []int{1, 1, 3}
	for i, e := range res.Leaderboard {
		if e.Rank != wantRanks[i] {
			t.Errorf("entry %d rank = %d, want %d", i, e.Rank, wantRanks[i])
		}
	}

	stored, err := f.repo.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(stored.Leaderboard) != 3 || stored.Leaderboard[2].UserID != cUser.ID {
		t.Fatalf("stored leaderboard = %+v", stored.Leaderboard)
	}
}

func TestUpdateProgressPublishesLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	c := f.createChallenge(t, creator.ID, nil)
	run := testutil.CreateRun(t, f.db, creator.ID, testNow.AddDate(0, 0, -1), 5, 1500, 0)

	sub := f.rdb.Subscribe(ctx, presence.ChallengeChannel(c.ID))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := f.svc.UpdateProgress(ctx, creator.ID, c.ID, challengeDto.ProgressRequest{RunID: run.ID.String()}); err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var ev presence.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Event != presence.EventLeaderboardUpdated {
			t.Fatalf("event = %q", ev.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no leaderboard event published")
	}
}

// conflictingRepo loses every version compare-and-swap.
type conflictingRepo struct {
	challengeRepo.Repository
}

func (conflictingRepo) BumpVersion(context.Context, uuid.UUID, int) error {
	return challengeRepo.ErrVersionConflict
}

func TestUpdateProgressVersionConflictRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	c := f.createChallenge(t, creator.ID, nil)
	f.setProgress(t, c.ID, creator.ID, 95)
	run := testutil.CreateRun(t, f.db, creator.ID, testNow.AddDate(0, 0, -1), 10, 3000, 0)

	f.svc.repo = conflictingRepo{Repository: f.repo}

	_, err := f.svc.UpdateProgress(ctx, creator.ID, c.ID, challengeDto.ProgressRequest{RunID: run.ID.String()})
	if !errors.Is(err, ErrProgressConflict) {
		t.Fatalf("err = %v, want ErrProgressConflict", err)
	}
	if code := apperror.MapErrorToStatus(err); code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}

	p := f.participant(t, c.ID, creator.ID)
	if p.Progress != 95 || p.Completed {
		t.Fatalf("participant changed after conflict: %+v", p)
	}
	if got := f.earnerCount(t, c.ID); got != 0 {
		t.Fatalf("achievement awarded despite rollback: %d", got)
	}
}

func TestBumpVersionCompareAndSwap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	c := f.createChallenge(t, creator.ID, nil)

	if err := f.repo.BumpVersion(ctx, c.ID, 1); err != nil {
		t.Fatalf("first bump: %v", err)
	}
	if err := f.repo.BumpVersion(ctx, c.ID, 1); !errors.Is(err, challengeRepo.ErrVersionConflict) {
		t.Fatalf("stale bump err = %v, want conflict", err)
	}
}

func TestJoinRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	invited := testutil.CreateUser(t, f.db, "Ben")
	stranger := testutil.CreateUser(t, f.db, "Cid")

	c := f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.Visibility = entity.VisibilityInviteOnly
		r.InvitedUsers = []uuid.UUID{invited.ID}
	})

	if _, err := f.svc.Join(ctx, stranger.ID, c.ID); !errors.Is(err, ErrInviteOnly) {
		t.Fatalf("stranger join err = %v, want ErrInviteOnly", err)
	}

	joined, err := f.svc.Join(ctx, invited.ID, c.ID)
	if err != nil {
		t.Fatalf("invited join: %v", err)
	}
	if joined.IsInvited(invited.ID) {
		t.Error("invite not removed after joining")
	}
	if len(joined.Leaderboard) != 2 {
		t.Errorf("leaderboard has %d entries, want 2", len(joined.Leaderboard))
	}

	if _, err := f.svc.Join(ctx, invited.ID, c.ID); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("second join err = %v, want ErrAlreadyJoined", err)
	}
	if _, err := f.svc.Join(ctx, stranger.ID, uuid.New()); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("missing challenge err = %v", err)
	}
}

func TestJoinEndedChallenge(t *testing.T) {
	f := newFixture(t)
	creator := testutil.CreateUser(t, f.db, "Ana")
	runner := testutil.CreateUser(t, f.db, "Ben")

	c := f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.StartDate = testNow.AddDate(0, -2, 0)
		r.EndDate = testNow.AddDate(0, -1, 0)
	})

	if _, err := f.svc.Join(context.Background(), runner.ID, c.ID); !errors.Is(err, ErrNotActive) {
		t.Fatalf("err = %v, want ErrNotActive", err)
	}
}

func TestLeaveRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	runner := testutil.CreateUser(t, f.db, "Ben")
	c := f.createChallenge(t, creator.ID, nil)

	if err := f.svc.Leave(ctx, creator.ID, c.ID); !errors.Is(err, ErrCreatorCannotLeave) {
		t.Fatalf("creator leave err = %v", err)
	}
	if err := f.svc.Leave(ctx, runner.ID, c.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("non participant leave err = %v", err)
	}

	if _, err := f.svc.Join(ctx, runner.ID, c.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := f.svc.Leave(ctx, runner.ID, c.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	stored, err := f.repo.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(stored.Participants) != 1 || len(stored.Leaderboard) != 1 {
		t.Fatalf("participants=%d leaderboard=%d, want 1 and 1", len(stored.Participants), len(stored.Leaderboard))
	}
}

func TestInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	runner := testutil.CreateUser(t, f.db, "Ben")
	other := testutil.CreateUser(t, f.db, "Cid")
	c := f.createChallenge(t, creator.ID, nil)

	if _, err := f.svc.Invite(ctx, creator.ID, c.ID, challengeDto.InviteRequest{}); !errors.Is(err, ErrUserIDsRequired) {
		t.Fatalf("empty invite err = %v", err)
	}
	if _, err := f.svc.Invite(ctx, runner.ID, c.ID, challengeDto.InviteRequest{UserIDs: []uuid.UUID{other.ID}}); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("non creator invite err = %v", err)
	}

	res, err := f.svc.Invite(ctx, creator.ID, c.ID, challengeDto.InviteRequest{UserIDs: []uuid.UUID{creator.ID, runner.ID, runner.ID}})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if len(res.Invites) != 1 || res.Invites[0].UserID != runner.ID {
		t.Fatalf("invites = %+v, want runner only", res.Invites)
	}

	res, err = f.svc.Invite(ctx, creator.ID, c.ID, challengeDto.InviteRequest{UserIDs: []uuid.UUID{runner.ID, other.ID}})
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}
	if len(res.Invites) != 2 {
		t.Fatalf("got %d invites, want 2", len(res.Invites))
	}
}

func TestGetPrivateChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	invited := testutil.CreateUser(t, f.db, "Ben")
	stranger := testutil.CreateUser(t, f.db, "Cid")

	c := f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.Visibility = entity.VisibilityPrivate
		r.InvitedUsers = []uuid.UUID{invited.ID}
	})

	if _, err := f.svc.Get(ctx, stranger.ID, c.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("stranger err = %v, want ErrAccessDenied", err)
	}
	for _, id := range []uuid.UUID{creator.ID, invited.ID} {
		if _, err := f.svc.Get(ctx, id, c.ID); err != nil {
			t.Fatalf("allowed viewer got %v", err)
		}
	}
}

func TestGetIncludesLinkedRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")

	route := &entity.Route{
		CreatorID:  creator.ID,
		Name:       "Riverside Loop",
		Distance:   8.4,
		Difficulty: "easy",
		Path:       []entity.GeoPoint{{Latitude: 51.5, Longitude: -0.12}, {Latitude: 51.51, Longitude: -0.1}},
		IsPublic:   true,
	}
	if err := f.db.Omit(clause.Associations).Create(route).Error; err != nil {
		t.Fatal(err)
	}

	withRoute := f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.RouteID = &route.ID
	})
	got, err := f.svc.Get(ctx, creator.ID, withRoute.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Route == nil {
		t.Fatal("route not loaded")
	}
	if got.Route.Name != "Riverside Loop" || got.Route.Distance != 8.4 || got.Route.Difficulty != "easy" || len(got.Route.Path) != 2 {
		t.Fatalf("route = %+v", got.Route)
	}

	without := f.createChallenge(t, creator.ID, nil)
	got, err = f.svc.Get(ctx, creator.ID, without.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Route != nil {
		t.Fatalf("unexpected route %+v", got.Route)
	}
}

func TestListVisibilityAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	viewer := testutil.CreateUser(t, f.db, "Ben")

	f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) { r.Name = "Open Road" })
	f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.Name = "Secret Hills"
		r.Visibility = entity.VisibilityPrivate
	})
	f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.Name = "Crew Only"
		r.Visibility = entity.VisibilityInviteOnly
		r.InvitedUsers = []uuid.UUID{viewer.ID}
	})
	f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.Name = "Closed Club"
		r.Visibility = entity.VisibilityInviteOnly
	})
	f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.Name = "Winter Climb"
		r.Type = entity.ChallengeTypeElevation
		r.StartDate = testNow.AddDate(0, -3, 0)
		r.EndDate = testNow.AddDate(0, -2, 0)
	})

	names := func(res *challengeDto.ListResponse) map[string]bool {
		out := map[string]bool{}
		for _, c := range res.Challenges {
			out[c.Name] = true
		}
		return out
	}

	res, err := f.svc.List(ctx, viewer.ID, challengeDto.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := names(res)
	if !got["Open Road"] || !got["Crew Only"] || !got["Winter Climb"] || got["Secret Hills"] || got["Closed Club"] {
		t.Fatalf("viewer sees %v", got)
	}
	if res.Total != 3 || res.CurrentPage != 1 || res.TotalPages != 1 {
		t.Fatalf("total=%d page=%d pages=%d", res.Total, res.CurrentPage, res.TotalPages)
	}

	res, err = f.svc.List(ctx, viewer.ID, challengeDto.ListFilter{Active: "true"})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if got := names(res); got["Winter Climb"] || got["Secret Hills"] || !got["Open Road"] {
		t.Fatalf("active filter leaked: %v", got)
	}

	res, err = f.svc.List(ctx, viewer.ID, challengeDto.ListFilter{Active: "false"})
	if err != nil {
		t.Fatalf("list inactive: %v", err)
	}
	if got := names(res); len(got) != 1 || !got["Winter Climb"] {
		t.Fatalf("inactive filter = %v", got)
	}

	res, err = f.svc.List(ctx, viewer.ID, challengeDto.ListFilter{Search: "crew"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := names(res); len(got) != 1 || !got["Crew Only"] {
		t.Fatalf("search = %v", got)
	}

	res, err = f.svc.List(ctx, viewer.ID, challengeDto.ListFilter{Type: "elevation,streak"})
	if err != nil {
		t.Fatalf("type filter: %v", err)
	}
	if got := names(res); len(got) != 1 || !got["Winter Climb"] {
		t.Fatalf("type filter = %v", got)
	}

	res, err = f.svc.List(ctx, creator.ID, challengeDto.ListFilter{})
	if err != nil {
		t.Fatalf("creator list: %v", err)
	}
	if res.Total != 5 {
		t.Fatalf("creator sees %d, want 5", res.Total)
	}
}

func TestMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	runner := testutil.CreateUser(t, f.db, "Ben")

	c := f.createChallenge(t, creator.ID, nil)
	f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) { r.Name = "Other" })
	if _, err := f.svc.Join(ctx, runner.ID, c.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	res, err := f.svc.Mine(ctx, runner.ID, challengeDto.MineFilter{})
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if res.Total != 1 || res.Challenges[0].ID != c.ID {
		t.Fatalf("mine = %+v", res)
	}
}

func TestUpdateChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	runner := testutil.CreateUser(t, f.db, "Ben")
	c := f.createChallenge(t, creator.ID, nil)

	name := "Renamed"
	inactive := false
	if _, err := f.svc.Update(ctx, runner.ID, c.ID, challengeDto.UpdateChallengeRequest{Name: &name}); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("non creator update err = %v", err)
	}

	res, err := f.svc.Update(ctx, creator.ID, c.ID, challengeDto.UpdateChallengeRequest{
		Name:     &name,
		IsActive: &inactive,
		Updates:  &challengeDto.UpdateNote{Message: "Halfway there"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Name != "Renamed" || res.IsActive {
		t.Fatalf("name=%q active=%v", res.Name, res.IsActive)
	}
	if len(res.Updates) != 1 || res.Updates[0].Message != "Halfway there" {
		t.Fatalf("updates = %+v", res.Updates)
	}
}

func TestDeleteChallengeRemovesAchievement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")
	runner := testutil.CreateUser(t, f.db, "Ben")
	c := f.createChallenge(t, creator.ID, nil)

	if err := f.svc.Delete(ctx, runner.ID, c.ID); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("non creator delete err = %v", err)
	}
	if err := f.svc.Delete(ctx, creator.ID, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.svc.Get(ctx, creator.ID, c.ID); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
	var n int64
	f.db.Model(&entity.Achievement{}).Where("challenge_id = ?", c.ID).Count(&n)
	if n != 0 {
		t.Fatalf("linked achievement survived delete")
	}
}

func TestDeactivateExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := testutil.CreateUser(t, f.db, "Ana")

	ended := f.createChallenge(t, creator.ID, func(r *challengeDto.CreateChallengeRequest) {
		r.StartDate = testNow.AddDate(0, -2, 0)
		r.EndDate = testNow.AddDate(0, -1, 0)
	})
	running := f.createChallenge(t, creator.ID, nil)

	n, err := f.svc.DeactivateExpired(ctx)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if n != 1 {
		t.Fatalf("deactivated %d, want 1", n)
	}

	got, _ := f.repo.FindByID(ctx, ended.ID)
	if got.IsActive {
		t.Error("ended challenge still active")
	}
	got, _ = f.repo.FindByID(ctx, running.ID)
	if !got.IsActive {
		t.Error("running challenge deactivated")
	}
}
