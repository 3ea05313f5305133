package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"runtoyou.app/runtoyou/internal/entity"
	presence "runtoyou.app/runtoyou/internal/modules/presence/service"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/metrics"
	"runtoyou.app/runtoyou/pkg/response"
)

const (
	frameJoinChallenge  = "join_challenge"
	frameLeaveChallenge = "leave_challenge"
)

// clientFrame is what browsers send over the socket.
type clientFrame struct {
	Event       string `json:"event"`
	ChallengeID string `json:"challengeId"`
}

// ChallengeReader resolves a challenge as seen by a user; it fails for
// challenges the user may not view.
type ChallengeReader interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*entity.Challenge, error)
}

type PresenceHandler struct {
	redisClient *redis.Client
	challenges  ChallengeReader
	upgrader    websocket.Upgrader
}

func NewPresenceHandler(redisClient *redis.Client, challenges ChallengeReader, allowedOrigins []string) *PresenceHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &PresenceHandler{
		redisClient: redisClient,
		challenges:  challenges,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// HandleWebSocket subscribes the caller to their user channel and to any
// challenge channels they join over the socket.
func (h *PresenceHandler) HandleWebSocket(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.redisClient == nil {
		response.Message(c, http.StatusServiceUnavailable, "Realtime updates are unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redisClient.Subscribe(ctx, presence.UserChannel(userID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logger.L().Warn("presence subscribe failed", zap.Error(err))
		return
	}

	metrics.PresenceConnections.Inc()
	defer metrics.PresenceConnections.Dec()

	ch := pubsub.Channel()
	clientClosed := make(chan struct{})

	go func() {
		defer close(clientClosed)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			h.handleFrame(ctx, pubsub, userID, data)
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				logger.L().Debug("presence write failed", zap.Error(err))
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *PresenceHandler) handleFrame(ctx context.Context, pubsub *redis.PubSub, userID uuid.UUID, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	challengeID, err := uuid.Parse(frame.ChallengeID)
	if err != nil {
		return
	}

	switch frame.Event {
	case frameJoinChallenge:
		if _, err := h.challenges.Get(ctx, userID, challengeID); err != nil {
			logger.L().Debug("presence join refused",
				zap.String("user_id", userID.String()),
				zap.String("challenge_id", challengeID.String()),
				zap.Error(err),
			)
			return
		}
		err = pubsub.Subscribe(ctx, presence.ChallengeChannel(challengeID))
	case frameLeaveChallenge:
		err = pubsub.Unsubscribe(ctx, presence.ChallengeChannel(challengeID))
	default:
		return
	}
	if err != nil {
		logger.L().Debug("presence channel change failed", zap.String("event", frame.Event), zap.Error(err))
	}
}
