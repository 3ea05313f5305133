package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	leaderboardDto "runtoyou.app/runtoyou/internal/modules/leaderboard/dto"
	leaderboard "runtoyou.app/runtoyou/internal/modules/leaderboard/service"
	"runtoyou.app/runtoyou/pkg/response"
	"runtoyou.app/runtoyou/pkg/validator"
)

type LeaderboardHandler struct {
	service leaderboard.LeaderboardService
}

func NewLeaderboardHandler(service leaderboard.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

func (h *LeaderboardHandler) Get(c *gin.Context) {
	var q leaderboardDto.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Get(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
