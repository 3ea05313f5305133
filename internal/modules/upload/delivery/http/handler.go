package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	uploadDto "runtoyou.app/runtoyou/internal/modules/upload/dto"
	upload "runtoyou.app/runtoyou/internal/modules/upload/service"
	"runtoyou.app/runtoyou/pkg/response"
	"runtoyou.app/runtoyou/pkg/validator"
)

type UploadHandler struct {
	service upload.UploadService
}

func NewUploadHandler(service upload.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req uploadDto.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ResponseError(c, upload.ErrFileRequired)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Message(c, http.StatusBadRequest, "Failed to read file")
		return
	}
	defer file.Close()

	res, err := h.service.Upload(c.Request.Context(), userID, req.Folder, file, fileHeader.Filename, fileHeader.Size)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
