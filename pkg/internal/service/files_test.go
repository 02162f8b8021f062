package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yeisme/filegate/pkg/apperrors"
	"github.com/yeisme/filegate/pkg/configs"
	mqc "github.com/yeisme/filegate/pkg/internal/storage/mq"
)

func newTestFileService(t *testing.T) *FileService {
	t.Helper()

	return &FileService{
		db:   testDB(t),
		disk: testDiskStore(t),
	}
}

// materialize 在存储树中放置一个与记录对应的物理文件.
func materialize(t *testing.T, fs *FileService, relPath string, data []byte) {
	t.Helper()

	abs := fs.disk.Abs(relPath)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	fs := newTestFileService(t)
	seedRecord(t, fs.db, "01OWN", "alice", 42)

	info, err := fs.Get(context.Background(), "alice", "01OWN")
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if info.ID != "01OWN" || info.Size != 42 {
		t.Fatalf("unexpected info: %+v", info)
	}

	// 他人文件与不存在的文件返回同一种错误
	_, errForeign := fs.Get(context.Background(), "bob", "01OWN")
	_, errMissing := fs.Get(context.Background(), "alice", "NOPE")

	for name, err := range map[string]error{"foreign": errForeign, "missing": errMissing} {
		if !apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden) {
			t.Errorf("%s: want NotFoundOrForbidden, got %v", name, err)
		}
	}
	if apperrors.UserMessage(errForeign) != apperrors.UserMessage(errMissing) {
		t.Error("foreign and missing must be indistinguishable")
	}
}

func TestListFiltersByUserAndCategory(t *testing.T) {
	fs := newTestFileService(t)
	seedRecord(t, fs.db, "01A", "alice", 10)
	seedRecord(t, fs.db, "01B", "alice", 20)
	seedRecord(t, fs.db, "01C", "bob", 30)

	all, err := fs.List(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("want 2 files for alice, got %d", len(all))
	}

	none, err := fs.List(context.Background(), "alice", "images")
	if err != nil {
		t.Fatalf("list category: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("want 0 files in images, got %d", len(none))
	}
}

func TestDeleteRemovesRecordAndBytes(t *testing.T) {
	fs := newTestFileService(t)
	seedRecord(t, fs.db, "01DEL", "alice", 5)
	materialize(t, fs, "alice/docs/01DEL.txt", []byte("hello"))

	if err := fs.Delete(context.Background(), "alice", "01DEL"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := fs.Get(context.Background(), "alice", "01DEL"); !apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden) {
		t.Fatalf("record should be gone, got %v", err)
	}
	if _, err := os.Stat(fs.disk.Abs("alice/docs/01DEL.txt")); !os.IsNotExist(err) {
		t.Fatalf("bytes should be gone, stat err: %v", err)
	}
}

func TestDeleteTwiceSecondNotFound(t *testing.T) {
	fs := newTestFileService(t)
	seedRecord(t, fs.db, "01TWICE", "alice", 5)

	if err := fs.Delete(context.Background(), "alice", "01TWICE"); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	err := fs.Delete(context.Background(), "alice", "01TWICE")
	if !apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden) {
		t.Fatalf("second delete: want NotFoundOrForbidden, got %v", err)
	}
}

func TestDeletePublishFailureIsNonFatal(t *testing.T) {
	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("init config: %v", err)
	}

	fs := newTestFileService(t)
	fs.mq = &mqc.Client{} // 未初始化的 publisher，发布必然失败
	seedRecord(t, fs.db, "01PUB", "alice", 5)
	materialize(t, fs, "alice/docs/01PUB.txt", []byte("hello"))

	// 事件发布是 best-effort：失败只记日志，删除本身照常成功
	if err := fs.Delete(context.Background(), "alice", "01PUB"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := fs.Get(context.Background(), "alice", "01PUB"); !apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden) {
		t.Fatalf("record should be gone, got %v", err)
	}
}

func TestDeleteForeignUserRejected(t *testing.T) {
	fs := newTestFileService(t)
	seedRecord(t, fs.db, "01FOREIGN", "alice", 5)

	err := fs.Delete(context.Background(), "bob", "01FOREIGN")
	if !apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden) {
		t.Fatalf("want NotFoundOrForbidden, got %v", err)
	}

	// 原主的记录必须完好
	if _, err := fs.Get(context.Background(), "alice", "01FOREIGN"); err != nil {
		t.Fatalf("owner record damaged: %v", err)
	}
}
