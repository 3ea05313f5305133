package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	uploadDto "runtoyou.app/runtoyou/internal/modules/upload/dto"
	"runtoyou.app/runtoyou/pkg/apperror"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/storage"
)

const (
	MaxUploadSize = 10 << 20
	defaultFolder = "runs"
)

var (
	ErrFileRequired   = apperror.New(http.StatusBadRequest, "File is required", apperror.ErrInvalidInput)
	ErrFileTooLarge   = apperror.New(http.StatusBadRequest, "File must be 10MB or smaller", apperror.ErrInvalidInput)
	ErrNotAnImage     = apperror.New(http.StatusBadRequest, "Only JPEG, PNG, GIF and WebP images are allowed", apperror.ErrInvalidInput)
	ErrStorageMissing = apperror.New(http.StatusServiceUnavailable, "Image upload is not configured", storage.ErrNotConfigured)
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type UploadService interface {
	Upload(ctx context.Context, userID uuid.UUID, folder string, file io.Reader, fileName string, size int64) (*uploadDto.UploadResponse, error)
}

type uploadService struct {
	storage storage.ImageStorage
}

// NewUploadService builds the upload service. A nil storage rejects every upload.
func NewUploadService(imageStorage storage.ImageStorage) UploadService {
	return &uploadService{storage: imageStorage}
}

func (s *uploadService) Upload(ctx context.Context, userID uuid.UUID, folder string, file io.Reader, fileName string, size int64) (*uploadDto.UploadResponse, error) {
	if file == nil {
		return nil, ErrFileRequired
	}
	if size > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if s.storage == nil {
		return nil, ErrStorageMissing
	}
	if folder == "" {
		folder = defaultFolder
	}

	// sniff the real content type from the first bytes
	br := bufio.NewReaderSize(io.LimitReader(file, MaxUploadSize+1), 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrFileRequired
	}
	fileType := http.DetectContentType(head)
	if i := strings.IndexByte(fileType, ';'); i >= 0 {
		fileType = fileType[:i]
	}
	if !allowedTypes[fileType] {
		return nil, ErrNotAnImage
	}

	url, err := s.storage.UploadImage(ctx, br, folder, fileName)
	if err != nil {
		return nil, err
	}

	logger.L().Info("image uploaded",
		zap.String("user_id", userID.String()),
		zap.String("folder", folder),
		zap.String("file_type", fileType),
	)
	return &uploadDto.UploadResponse{URL: url, FileType: fileType, Folder: folder}, nil
}
