package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	upload "runtoyou.app/runtoyou/internal/modules/upload/service"
	"runtoyou.app/runtoyou/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memStorage struct {
	stored map[string][]byte
}

func (m *memStorage) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "https://cdn.test/" + folder + "/" + fileName
	m.stored[url] = data
	return url, nil
}

func (m *memStorage) DeleteImage(context.Context, string) error { return nil }

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func newRouter(st storage.ImageStorage, user string) *gin.Engine {
	h := NewUploadHandler(upload.NewUploadService(st))
	r := gin.New()
	r.POST("/api/upload", func(c *gin.Context) {
		if user != "" {
			c.Set("user_id", user)
		}
		c.Next()
	}, h.Upload)
	return r
}

func multipartBody(t *testing.T, folder, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if folder != "" {
		if err := w.WriteField("folder", folder); err != nil {
			t.Fatal(err)
		}
	}
	if content != nil {
		fw, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	user := uuid.NewString()

	tests := []struct {
		name       string
		noStorage  bool
		user       string
		folder     string
		content    []byte
		wantStatus int
		wantMsg    string
	}{
		{name: "png to avatars", user: user, folder: "avatars", content: pngBytes, wantStatus: http.StatusCreated},
		{name: "default folder", user: user, content: pngBytes, wantStatus: http.StatusCreated},
		{name: "unknown folder", user: user, folder: "secrets", content: pngBytes, wantStatus: http.StatusBadRequest},
		{name: "missing file", user: user, folder: "runs", wantStatus: http.StatusBadRequest, wantMsg: "File is required"},
		{name: "not an image", user: user, content: []byte("just some text"), wantStatus: http.StatusBadRequest, wantMsg: upload.ErrNotAnImage.Message},
		{name: "unauthenticated", content: pngBytes, wantStatus: http.StatusUnauthorized},
		{name: "storage not configured", noStorage: true, user: user, content: pngBytes, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := &memStorage{stored: map[string][]byte{}}
			var st storage.ImageStorage = mem
			if tt.noStorage {
				st = nil
			}

			body, contentType := multipartBody(t, tt.folder, "pic.png", tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			newRouter(st, tt.user).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			var res map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantMsg != "" && res["message"] != tt.wantMsg {
				t.Fatalf("message = %v, want %q", res["message"], tt.wantMsg)
			}
			if tt.wantStatus == http.StatusCreated {
				url, _ := res["url"].(string)
				if !bytes.Equal(mem.stored[url], pngBytes) {
					t.Fatalf("stored bytes mismatch for %q", url)
				}
				if res["fileType"] != "image/png" {
					t.Fatalf("fileType = %v", res["fileType"])
				}
			}
		})
	}
}
