package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	routeDto "runtoyou.app/runtoyou/internal/modules/route/dto"
	route "runtoyou.app/runtoyou/internal/modules/route/service"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
	"runtoyou.app/runtoyou/pkg/response"
	"runtoyou.app/runtoyou/pkg/validator"
)

type RouteHandler struct {
	service route.RouteService
}

func NewRouteHandler(service route.RouteService) *RouteHandler {
	return &RouteHandler{service: service}
}

func (h *RouteHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req routeDto.CreateRouteRequest
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

func (h *RouteHandler) List(c *gin.Context) {
	var filter routeDto.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RouteHandler) Mine(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var page commonDto.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Mine(c.Request.Context(), userID, page)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RouteHandler) Get(c *gin.Context) {
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

func (h *RouteHandler) Update(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req routeDto.UpdateRouteRequest
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

func (h *RouteHandler) Delete(c *gin.Context) {
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
	response.Message(c, http.StatusOK, "Route deleted successfully")
}

func (h *RouteHandler) Like(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	likers, err := h.service.Like(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, likers)
}

func (h *RouteHandler) Review(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := response.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req routeDto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	reviews, err := h.service.Review(c.Request.Context(), userID, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}
