package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	routeDto "runtoyou.app/runtoyou/internal/modules/route/dto"
	route "runtoyou.app/runtoyou/internal/modules/route/service"
	statService "runtoyou.app/runtoyou/internal/modules/stat/service"
	commonDto "runtoyou.app/runtoyou/pkg/dto"
	"runtoyou.app/runtoyou/pkg/response"
)

type StatHandler struct {
	statService  statService.StatService
	routeService route.RouteService
}

func NewStatHandler(statService statService.StatService, routeService route.RouteService) *StatHandler {
	return &StatHandler{
		statService:  statService,
		routeService: routeService,
	}
}

func (h *StatHandler) GetCommunityStats(c *gin.Context) {
	stats, err := h.statService.GetCommunityStats(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatHandler) GetTrendingRoutes(c *gin.Context) {
	limit := 10
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 50 {
		limit = l
	}

	res, err := h.routeService.List(c.Request.Context(), routeDto.ListFilter{
		SortBy:     "popularity",
		Pagination: commonDto.Pagination{Page: 1, Limit: limit},
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": res.Routes})
}
