package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type rowModel struct {
	ID   int
	Name string
}

// Each test gets its own named in-memory database so row counts never
// bleed across tests.
func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&rowModel{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

func countRows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := conn.Model(&rowModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	conn := openSQLite(t)
	client := &Client{conn: conn}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&rowModel{Name: "kept"}).Error
	})
	if err != nil {
		t.Fatalf("commit path: %v", err)
	}
	if got := countRows(t, conn); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn := openSQLite(t)
	client := &Client{conn: conn}

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&rowModel{Name: "discarded"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error back, got %v", err)
	}
	if got := countRows(t, conn); got != 0 {
		t.Fatalf("rows after rollback = %d, want 0", got)
	}
}

func TestPing(t *testing.T) {
	client := &Client{conn: openSQLite(t)}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
