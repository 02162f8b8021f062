package disk

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/filegate/pkg/configs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	root := t.TempDir()
	s, err := NewWithConfig(&configs.StoreConfig{
		DataDir:       filepath.Join(root, "files"),
		StagingDir:    filepath.Join(root, "staging"),
		QuarantineDir: filepath.Join(root, "quarantine"),
		PublicBaseURL: "/files",
	})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}

	return s
}

func TestStageComputesDigest(t *testing.T) {
	s := newTestStore(t)
	data := []byte("hello filegate")

	staged, err := s.Stage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	if staged.Size != int64(len(data)) {
		t.Errorf("size = %d, want %d", staged.Size, len(data))
	}

	sum := sha256.Sum256(data)
	if want := hex.EncodeToString(sum[:]); staged.Digest != want {
		t.Errorf("digest = %s, want %s", staged.Digest, want)
	}

	got, err := os.ReadFile(staged.Path)
	if err != nil {
		t.Fatalf("read staged: %v", err)
	}

	if !bytes.Equal(got, data) {
		t.Error("staged bytes differ from input")
	}

	// temp 文件不应残留
	entries, _ := os.ReadDir(filepath.Dir(staged.Path))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestPromoteMovesIntoUserCategoryTree(t *testing.T) {
	s := newTestStore(t)

	staged, err := s.Stage(bytes.NewReader([]byte("png bytes")))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	stored, err := s.Promote(staged, "u1", "avatar", ".png")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}

	if !strings.HasPrefix(stored.RelPath, "u1/avatar/") {
		t.Errorf("rel path %s not under u1/avatar/", stored.RelPath)
	}

	if !strings.HasSuffix(stored.RelPath, ".png") {
		t.Errorf("rel path %s missing extension", stored.RelPath)
	}

	if stored.URL != "/files/"+stored.RelPath {
		t.Errorf("url = %s", stored.URL)
	}

	if _, err := os.Stat(stored.Path); err != nil {
		t.Errorf("promoted file missing: %v", err)
	}

	// 暂存位置不应再有文件
	if _, err := os.Stat(staged.Path); !os.IsNotExist(err) {
		t.Errorf("staged file still present after promote")
	}
}

func TestPromoteSanitizesPathComponents(t *testing.T) {
	s := newTestStore(t)

	staged, err := s.Stage(bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	stored, err := s.Promote(staged, "../../etc", "../passwd", ".txt")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}

	abs, err := filepath.Abs(stored.Path)
	if err != nil {
		t.Fatalf("abs: %v", err)
	}

	if !strings.HasPrefix(abs, s.DataDir()+string(filepath.Separator)) {
		t.Errorf("stored path %s escapes data dir %s", abs, s.DataDir())
	}

	if strings.Contains(stored.RelPath, "..") {
		t.Errorf("rel path %s contains traversal", stored.RelPath)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	staged, _ := s.Stage(bytes.NewReader([]byte("bytes")))

	stored, err := s.Promote(staged, "u1", "docs", ".pdf")
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}

	if err := s.Delete(stored.RelPath); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	if err := s.Delete(stored.RelPath); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}

	if err := s.Delete("u1/docs/never-existed.pdf"); err != nil {
		t.Errorf("delete of missing path should be a no-op, got %v", err)
	}
}

func TestQuarantineMovesOutOfStaging(t *testing.T) {
	s := newTestStore(t)

	staged, err := s.Stage(bytes.NewReader([]byte("infected")))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	qPath, err := s.Quarantine(staged.Path)
	if err != nil {
		t.Fatalf("Quarantine: %v", err)
	}

	if _, err := os.Stat(staged.Path); !os.IsNotExist(err) {
		t.Error("original path still exists after quarantine")
	}

	if _, err := os.Stat(qPath); err != nil {
		t.Errorf("quarantined file missing: %v", err)
	}
}

func TestUsageBytes(t *testing.T) {
	s := newTestStore(t)

	for _, payload := range []string{"aaaa", "bbbbbb"} {
		staged, err := s.Stage(strings.NewReader(payload))
		if err != nil {
			t.Fatalf("Stage: %v", err)
		}

		if _, err := s.Promote(staged, "u1", "docs", ".txt"); err != nil {
			t.Fatalf("Promote: %v", err)
		}
	}

	got, err := s.UsageBytes("u1")
	if err != nil {
		t.Fatalf("UsageBytes: %v", err)
	}

	if got != 10 {
		t.Errorf("usage = %d, want 10", got)
	}

	// 未知用户目录为空
	got, err = s.UsageBytes("ghost")
	if err != nil {
		t.Fatalf("UsageBytes(ghost): %v", err)
	}

	if got != 0 {
		t.Errorf("usage(ghost) = %d, want 0", got)
	}
}

func TestPurgeStaging(t *testing.T) {
	s := newTestStore(t)

	old, err := s.Stage(bytes.NewReader([]byte("abandoned")))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	fresh, err := s.Stage(bytes.NewReader([]byte("in-flight")))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	// 把第一个文件伪装成过期
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old.Path, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	purged, err := s.PurgeStaging(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeStaging: %v", err)
	}

	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	if _, err := os.Stat(old.Path); !os.IsNotExist(err) {
		t.Error("expired staging file survived purge")
	}

	if _, err := os.Stat(fresh.Path); err != nil {
		t.Errorf("fresh staging file purged: %v", err)
	}
}
