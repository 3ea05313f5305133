package service

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"runtoyou.app/runtoyou/internal/entity"
)

// ProgressDelta is the amount a run contributes to a challenge of the given type.
// Custom challenges have no progress rule and always yield 0.
func ProgressDelta(challengeType string, run *entity.Run) float64 {
	switch challengeType {
	case entity.ChallengeTypeDistance:
		return run.Distance
	case entity.ChallengeTypeDuration:
		return run.Duration
	case entity.ChallengeTypeElevation:
		return run.ElevationGain
	case entity.ChallengeTypeStreak:
		return 1
	default:
		return 0
	}
}

// BuildLeaderboard ranks participants by progress using competition ranking:
// equal scores share a rank and the next distinct score takes its 1-based position.
// Ties keep participant order, so scores [10,10,7] rank [1,1,3].
func BuildLeaderboard(challengeID uuid.UUID, participants []entity.ChallengeParticipant) []entity.LeaderboardEntry {
	entries := make([]entity.LeaderboardEntry, len(participants))
	for i, p := range participants {
		entries[i] = entity.LeaderboardEntry{
			ChallengeID: challengeID,
			UserID:      p.UserID,
			User:        p.User,
			Score:       p.Progress,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	for i := range entries {
		entries[i].Position = i + 1
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}

	return entries
}

// applyProgress adds delta to the participant and reports whether this call
// completed the challenge. Completion never reverts.
func applyProgress(p *entity.ChallengeParticipant, delta, goal float64, now time.Time) bool {
	p.Progress += delta
	if p.Completed || p.Progress < goal {
		return false
	}
	p.Completed = true
	p.CompletedDate = &now
	return true
}
