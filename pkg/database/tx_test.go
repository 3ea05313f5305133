package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type counter struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func sqliteOptions(t *testing.T) Options {
	t.Helper()
	return Options{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "tx.db")}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, err := Open(sqliteOptions(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.AutoMigrate(&counter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tx := NewTransactor(db)
	boom := errors.New("boom")

	err = tx.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := Conn(ctx, db).Create(&counter{Value: 1}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	var n int64
	db.Model(&counter{}).Count(&n)
	if n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}

func TestWithinTxJoinsOuterTransaction(t *testing.T) {
	db, err := Open(sqliteOptions(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.AutoMigrate(&counter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tx := NewTransactor(db)
	err = tx.WithinTx(context.Background(), func(ctx context.Context) error {
		return tx.WithinTx(ctx, func(inner context.Context) error {
			return Conn(inner, db).Create(&counter{Value: 2}).Error
		})
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}

	var got counter
	if err := db.First(&got).Error; err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if got.Value != 2 {
		t.Errorf("Value = %d, want 2", got.Value)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
