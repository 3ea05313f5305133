// Package testutil opens throwaway databases and redis servers for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"runtoyou.app/runtoyou/internal/bootstrap"
	"runtoyou.app/runtoyou/internal/entity"
	"runtoyou.app/runtoyou/pkg/database"
)

// NewDB returns a migrated sqlite database in a temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Options{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: gormlogger.Silent,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := bootstrap.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewRedis starts a miniredis server and returns a client bound to it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

// CreateUser inserts a runner with a unique email.
func CreateUser(t *testing.T, db *gorm.DB, firstName string) *entity.User {
	t.Helper()
	u := &entity.User{
		FirstName:    firstName,
		LastName:     "Tester",
		Email:        firstName + "-" + uuid.NewString()[:8] + "@example.com",
		PasswordHash: "x",
		Preferences:  entity.DefaultPreferences(),
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateRun inserts a run owned by userID starting at start.
func CreateRun(t *testing.T, db *gorm.DB, userID uuid.UUID, start time.Time, distance, duration, elevation float64) *entity.Run {
	t.Helper()
	r := &entity.Run{
		UserID:        userID,
		Title:         "Test run",
		Distance:      distance,
		Duration:      duration,
		ElevationGain: elevation,
		StartTime:     start,
		EndTime:       start.Add(time.Duration(duration) * time.Second),
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create run: %v", err)
	}
	return r
}
