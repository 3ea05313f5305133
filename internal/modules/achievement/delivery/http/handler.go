package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	achievementDto "runtoyou.app/runtoyou/internal/modules/achievement/dto"
	achievement "runtoyou.app/runtoyou/internal/modules/achievement/service"
	"runtoyou.app/runtoyou/pkg/response"
	"runtoyou.app/runtoyou/pkg/validator"
)

type AchievementHandler struct {
	service achievement.AchievementService
}

func NewAchievementHandler(service achievement.AchievementService) *AchievementHandler {
	return &AchievementHandler{service: service}
}

func (h *AchievementHandler) List(c *gin.Context) {
	var q achievementDto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AchievementHandler) Get(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AchievementHandler) Mine(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	h.forUser(c, userID)
}

func (h *AchievementHandler) ForUser(c *gin.Context) {
	userID, ok := response.ParamUUID(c, "userId")
	if !ok {
		return
	}
	h.forUser(c, userID)
}

func (h *AchievementHandler) forUser(c *gin.Context, userID uuid.UUID) {
	var q achievementDto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.ForUser(c.Request.Context(), userID, q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AchievementHandler) Create(c *gin.Context) {
	var req achievementDto.CreateAchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AchievementHandler) Check(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Check(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
