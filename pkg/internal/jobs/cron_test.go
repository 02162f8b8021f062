package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/filegate/pkg/configs"
	"github.com/yeisme/filegate/pkg/internal/model"
	"github.com/yeisme/filegate/pkg/internal/service"
	"github.com/yeisme/filegate/pkg/internal/storage"
	dbc "github.com/yeisme/filegate/pkg/internal/storage/db"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
)

func testManager(t *testing.T) *storage.Manager {
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

	root := t.TempDir()
	store, err := disk.NewWithConfig(&configs.StoreConfig{
		DataDir:       filepath.Join(root, "files"),
		StagingDir:    filepath.Join(root, "staging"),
		QuarantineDir: filepath.Join(root, "quarantine"),
		PublicBaseURL: "/files",
	})
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}

	return &storage.Manager{DB: &dbc.Client{DB: gdb}, Disk: store}
}

// writeTree 在活动树内的相对路径写入文件.
func writeTree(t *testing.T, mgr *storage.Manager, rel string, data []byte) {
	t.Helper()

	abs := mgr.GetDiskStore().Abs(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := os.WriteFile(abs, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestReconcileExcludesVariantBytes(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()

	original := []byte("original image bytes")
	variant := []byte("smaller webp")

	writeTree(t, mgr, "u1/images/a.png", original)
	writeTree(t, mgr, "u1/images/a.webp", variant)

	rec := &model.FileRecord{
		ID:          "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		User:        "u1",
		Category:    "images",
		FileName:    "a.png",
		StoragePath: "u1/images/a.png",
		VariantPath: "u1/images/a.webp",
		URL:         "/files/u1/images/a.png",
		ContentType: "image/png",
		Size:        int64(len(original)),
		Digest:      "d1",
	}
	if err := mgr.GetDBClient().GetDB().Create(rec).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}

	ledger := service.NewQuotaLedger(mgr.GetDBClient(), mgr.GetDiskStore(), 1<<30)

	ledgerBytes, err := ledger.CurrentUsage(ctx, "u1")
	if err != nil {
		t.Fatalf("ledger usage: %v", err)
	}

	diskBytes, err := mgr.GetDiskStore().UsageBytes("u1")
	if err != nil {
		t.Fatalf("disk usage: %v", err)
	}

	vBytes, err := variantBytes(ctx, mgr, "u1")
	if err != nil {
		t.Fatalf("variant usage: %v", err)
	}

	if vBytes != int64(len(variant)) {
		t.Errorf("variant bytes = %d, want %d", vBytes, len(variant))
	}

	// 剔除变体后账本与磁盘必须一致，否则每个带变体的用户都会被误报漂移
	if diskBytes-vBytes != ledgerBytes {
		t.Errorf("reconcile drift: disk %d - variants %d != ledger %d", diskBytes, vBytes, ledgerBytes)
	}
}

func TestVariantBytesSkipsMissingFiles(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()

	rec := &model.FileRecord{
		ID:          "01ARZ3NDEKTSV4RRFFQ69G5FAW",
		User:        "u2",
		Category:    "images",
		FileName:    "b.png",
		StoragePath: "u2/images/b.png",
		VariantPath: "u2/images/b.webp",
		URL:         "/files/u2/images/b.png",
		ContentType: "image/png",
		Size:        10,
		Digest:      "d2",
	}
	if err := mgr.GetDBClient().GetDB().Create(rec).Error; err != nil {
		t.Fatalf("seed record: %v", err)
	}

	// 变体文件不在盘上时按 0 计，不算错误
	vBytes, err := variantBytes(ctx, mgr, "u2")
	if err != nil {
		t.Fatalf("variant usage: %v", err)
	}

	if vBytes != 0 {
		t.Errorf("variant bytes = %d, want 0", vBytes)
	}
}
