package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	EventLeaderboardUpdated  = "leaderboard_updated"
	EventAchievementUnlocked = "achievement_unlocked"
)

// Event is the frame pushed to websocket clients.
type Event struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("presence:user:%s", userID.String())
}

func ChallengeChannel(challengeID uuid.UUID) string {
	return fmt.Sprintf("presence:challenge:%s", challengeID.String())
}

type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
	Enabled() bool
}

type publisher struct {
	redisClient *redis.Client
}

// NewPublisher returns a publisher backed by redis pub/sub. With a nil client
// every publish is a no-op.
func NewPublisher(redisClient *redis.Client) Publisher {
	return &publisher{redisClient: redisClient}
}

func (p *publisher) Enabled() bool {
	return p.redisClient != nil
}

func (p *publisher) Publish(ctx context.Context, channel, event string, payload any) error {
	if p.redisClient == nil {
		return nil
	}

	data, err := json.Marshal(Event{Event: event, Channel: channel, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal presence event: %w", err)
	}
	return p.redisClient.Publish(ctx, channel, data).Err()
}
