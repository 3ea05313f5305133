package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"runtoyou.app/runtoyou/internal/entity"
	userRepo "runtoyou.app/runtoyou/internal/modules/user/repository"
	"runtoyou.app/runtoyou/internal/testutil"
	"runtoyou.app/runtoyou/pkg/logger"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body["message"]
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.NewString()
	valid := signToken(t, testSecret, userID, time.Now().Add(time.Hour))

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantMsg    string
	}{
		{name: "bearer header", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "query token", query: valid, wantStatus: http.StatusOK},
		{name: "missing", wantStatus: http.StatusUnauthorized, wantMsg: "No token, authorization denied"},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized, wantMsg: "No token, authorization denied"},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", userID, time.Now().Add(time.Hour)), wantStatus: http.StatusUnauthorized, wantMsg: "Token is not valid"},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, userID, time.Now().Add(-time.Minute)), wantStatus: http.StatusUnauthorized, wantMsg: "Token is not valid"},
		{name: "subject not a uuid", header: "Bearer " + signToken(t, testSecret, "bob", time.Now().Add(time.Hour)), wantStatus: http.StatusUnauthorized, wantMsg: "Token is not valid"},
	}

	m := NewAuthMiddleware(nil, testSecret)
	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if w.Body.String() != userID {
					t.Fatalf("user_id = %q, want %q", w.Body.String(), userID)
				}
				return
			}
			if got := decodeMessage(t, w); got != tt.wantMsg {
				t.Fatalf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	repo := userRepo.NewUserRepository(db)

	runner := testutil.CreateUser(t, db, "Runner")
	admin := testutil.CreateUser(t, db, "Admin")
	var adminRole entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Model(admin).Update("role_id", adminRole.ID).Error; err != nil {
		t.Fatal(err)
	}

	m := NewAuthMiddleware(repo, testSecret)
	r := gin.New()
	r.GET("/admin", m.RequireAuth(), m.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		subject    string
		wantStatus int
	}{
		{name: "admin", subject: admin.ID.String(), wantStatus: http.StatusNoContent},
		{name: "runner", subject: runner.ID.String(), wantStatus: http.StatusForbidden},
		{name: "unknown user", subject: uuid.NewString(), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, tt.subject, time.Now().Add(time.Hour)))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(4) // burst 2
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := hit("10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	w := hit("10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "15" {
		t.Fatalf("Retry-After = %q, want 15", w.Header().Get("Retry-After"))
	}

	if w := hit("10.0.0.2"); w.Code != http.StatusOK {
		t.Fatalf("other ip limited: %d", w.Code)
	}

	now = now.Add(15 * time.Second)
	if w := hit("10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("after refill: status = %d", w.Code)
	}

	now = now.Add(limiterIdleTTL + time.Second)
	hit("10.0.0.3")
	if got := l.size(); got != 1 {
		t.Fatalf("tracked buckets = %d, want 1 after idle cleanup", got)
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	r := gin.New()
	r.Use(AccessLog("/api/health"))
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/runs/:id", func(c *gin.Context) {
		c.Set("user_id", "u-1")
		c.Status(http.StatusNotFound)
	})

	for _, path := range []string{"/api/health", "/api/runs/42"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zap.WarnLevel {
		t.Fatalf("level = %v, want warn", e.Level)
	}
	fields := e.ContextMap()
	if fields["path"] != "/api/runs/42" || fields["status"] != int64(http.StatusNotFound) || fields["user_id"] != "u-1" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}
