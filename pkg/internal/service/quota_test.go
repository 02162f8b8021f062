package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/filegate/pkg/apperrors"
	"github.com/yeisme/filegate/pkg/internal/model"
	dbc "github.com/yeisme/filegate/pkg/internal/storage/db"
)

func testDB(t *testing.T) *dbc.Client {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := gdb.AutoMigrate(&model.FileRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &dbc.Client{DB: gdb}
}

func seedRecord(t *testing.T, db *dbc.Client, id, user string, size int64) {
	t.Helper()

	rec := &model.FileRecord{
		ID:          id,
		User:        user,
		Category:    "docs",
		FileName:    "f.txt",
		StoragePath: user + "/docs/" + id + ".txt",
		URL:         "/files/" + user + "/docs/" + id + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Size:        size,
		Digest:      "d-" + id,
	}
	if err := db.GetDB().Create(rec).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestCurrentUsageSumsOwnRecordsOnly(t *testing.T) {
	db := testDB(t)
	seedRecord(t, db, "01A", "u1", 100)
	seedRecord(t, db, "01B", "u1", 250)
	seedRecord(t, db, "01C", "u2", 999)

	q := NewQuotaLedger(db, testDiskStore(t), 1000)

	usage, err := q.CurrentUsage(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CurrentUsage: %v", err)
	}

	if usage != 350 {
		t.Errorf("usage = %d, want 350", usage)
	}

	// 无记录用户用量为 0
	usage, err = q.CurrentUsage(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("CurrentUsage(ghost): %v", err)
	}

	if usage != 0 {
		t.Errorf("usage(ghost) = %d, want 0", usage)
	}
}

func TestCheckQuotaBoundary(t *testing.T) {
	db := testDB(t)
	q := NewQuotaLedger(db, testDiskStore(t), 100)

	// 用量 90：再传 11 字节拒绝，10 字节放行
	seedRecord(t, db, "01D", "u1", 90)

	err := q.CheckQuota(context.Background(), "u1", 11)
	if !apperrors.IsKind(err, apperrors.KindQuotaExceeded) {
		t.Errorf("11 bytes at quota-10 should be QuotaExceeded, got %v", err)
	}

	if err := q.CheckQuota(context.Background(), "u1", 10); err != nil {
		t.Errorf("10 bytes at quota-10 should pass, got %v", err)
	}
}

func TestLockUserSerializes(t *testing.T) {
	q := NewQuotaLedger(testDB(t), testDiskStore(t), 100)

	unlock := q.LockUser("u1")

	acquired := make(chan struct{})

	go func() {
		u := q.LockUser("u1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	<-acquired
}
