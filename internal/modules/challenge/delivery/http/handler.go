package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	challengeDto "runtoyou.app/runtoyou/internal/modules/challenge/dto"
	challenge "runtoyou.app/runtoyou/internal/modules/challenge/service"
	"runtoyou.app/runtoyou/pkg/response"
	"runtoyou.app/runtoyou/pkg/validator"
)

type ChallengeHandler struct {
	service challenge.ChallengeService
}

func NewChallengeHandler(service challenge.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{service: service}
}

func (h *ChallengeHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req challengeDto.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ChallengeHandler) List(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter challengeDto.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.List(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ChallengeHandler) Mine(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter challengeDto.MineFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Mine(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ChallengeHandler) Get(c *gin.Context) {
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

func (h *ChallengeHandler) Update(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req challengeDto.UpdateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ChallengeHandler) Delete(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Challenge deleted successfully")
}

func (h *ChallengeHandler) Join(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.service.Join(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully joined the challenge", "challenge": res})
}

func (h *ChallengeHandler) Leave(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Leave(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Successfully left the challenge")
}

func (h *ChallengeHandler) Invite(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req challengeDto.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Invite(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Users invited successfully", "challenge": res})
}

// UpdateProgress applies the run in the body to the caller's progress.
func (h *ChallengeHandler) UpdateProgress(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req challengeDto.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, challenge.ErrRunIDRequired.Message)
		return
	}

	res, err := h.service.UpdateProgress(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
