package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/internal/entity"
	challengeDto "runtoyou.app/runtoyou/internal/modules/challenge/dto"
	challengeRepo "runtoyou.app/runtoyou/internal/modules/challenge/repository"
	presence "runtoyou.app/runtoyou/internal/modules/presence/service"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/metrics"
)

// progressOutcome is what a committed progress update hands to the post-commit hooks.
type progressOutcome struct {
	challengeType string
	participant   entity.ChallengeParticipant
	completed     bool
	leaderboard   []entity.LeaderboardEntry
	awarded       *entity.Achievement
}

// UpdateProgress applies one run to the caller's participation. Checks run in
// order: participant, run exists, run owner, run inside the challenge window.
// The whole read-modify-write happens in one transaction on a locked challenge
// row and ends with a compare-and-swap on the challenge version.
func (s *challengeService) UpdateProgress(ctx context.Context, userID, id uuid.UUID, req challengeDto.ProgressRequest) (*challengeDto.ProgressResponse, error) {
	rawRunID := strings.TrimSpace(req.RunID)
	if rawRunID == "" {
		return nil, ErrRunIDRequired
	}
	// malformed ids cannot match a run and surface as "Run not found"
	runID, err := uuid.Parse(rawRunID)
	if err != nil {
		runID = uuid.Nil
	}

	var out progressOutcome
	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		challenge, err := s.lock(ctx, id)
		if err != nil {
			return err
		}
		out.challengeType = challenge.Type

		participant := challenge.Participant(userID)
		if participant == nil {
			return ErrNotParticipant
		}

		run, err := s.runRepo.FindByID(ctx, runID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRunNotFound
			}
			return err
		}
		if run.UserID != userID {
			return ErrRunNotOwned
		}
		if run.StartTime.Before(challenge.StartDate) || run.StartTime.After(challenge.EndDate) {
			return ErrOutOfWindow
		}

		delta := ProgressDelta(challenge.Type, run)
		out.completed = applyProgress(participant, delta, challenge.Goal.Value, s.now())
		if err := s.repo.SaveParticipant(ctx, participant); err != nil {
			return fmt.Errorf("save participant: %w", err)
		}

		if out.completed {
			awarded, added, err := s.linker.AwardForChallenge(ctx, challenge.ID, userID)
			if err != nil {
				return err
			}
			if added {
				out.awarded = awarded
			}
		}

		out.leaderboard = BuildLeaderboard(challenge.ID, challenge.Participants)
		if err := s.repo.ReplaceLeaderboard(ctx, challenge.ID, out.leaderboard); err != nil {
			return fmt.Errorf("rebuild leaderboard: %w", err)
		}

		if err := s.repo.AppendProgress(ctx, &entity.ProgressEntry{
			ChallengeID: challenge.ID,
			UserID:      userID,
			RunID:       run.ID,
			Delta:       delta,
		}); err != nil {
			return fmt.Errorf("append progress: %w", err)
		}

		if err := s.repo.BumpVersion(ctx, challenge.ID, challenge.Version); err != nil {
			if errors.Is(err, challengeRepo.ErrVersionConflict) {
				return ErrProgressConflict
			}
			return err
		}

		out.participant = *participant
		return nil
	})
	if err != nil {
		s.recordRejected(out.challengeType, err)
		return nil, err
	}

	s.afterProgress(ctx, id, userID, out)

	return &challengeDto.ProgressResponse{
		Message:     "Progress updated",
		Progress:    out.participant.Progress,
		Completed:   out.participant.Completed,
		Leaderboard: out.leaderboard,
	}, nil
}

func (s *challengeService) afterProgress(ctx context.Context, challengeID, userID uuid.UUID, out progressOutcome) {
	result := metrics.ResultApplied
	if out.completed {
		result = metrics.ResultCompleted
	}
	metrics.ProgressUpdatesTotal.WithLabelValues(out.challengeType, result).Inc()
	metrics.LeaderboardSize.Observe(float64(len(out.leaderboard)))

	if out.awarded != nil {
		s.linker.NotifyUnlocked(ctx, userID, out.awarded)
	}

	if s.publisher == nil {
		return
	}
	payload := map[string]any{
		"challengeId": challengeID,
		"userId":      userID,
		"progress":    out.participant.Progress,
		"completed":   out.participant.Completed,
		"leaderboard": out.leaderboard,
	}
	if err := s.publisher.Publish(ctx, presence.ChallengeChannel(challengeID), presence.EventLeaderboardUpdated, payload); err != nil {
		logger.L().Warn("publish leaderboard update failed",
			zap.String("challenge_id", challengeID.String()),
			zap.Error(err),
		)
	}
}

func (s *challengeService) recordRejected(challengeType string, err error) {
	if challengeType == "" {
		return
	}
	result := metrics.ResultRejected
	if errors.Is(err, ErrProgressConflict) {
		result = metrics.ResultConflict
	}
	metrics.ProgressUpdatesTotal.WithLabelValues(challengeType, result).Inc()
}
