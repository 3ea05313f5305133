package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/response"
)

// JobRunner is the part of the scheduler the admin endpoints drive.
type JobRunner interface {
	Names() []string
	RunByName(ctx context.Context, name string) error
}

type AdminHandler struct {
	jobs JobRunner
}

func NewAdminHandler(jobs JobRunner) *AdminHandler {
	return &AdminHandler{jobs: jobs}
}

func (h *AdminHandler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.Names()})
}

// RunJob executes a background job now and waits for it to finish.
func (h *AdminHandler) RunJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.jobs.RunByName(c.Request.Context(), name); err != nil {
		response.ResponseError(c, err)
		return
	}

	logger.L().Info("job triggered by admin", zap.String("job", name), zap.String("user_id", c.GetString("user_id")))
	c.JSON(http.StatusOK, gin.H{"message": "Job completed", "job": name})
}
