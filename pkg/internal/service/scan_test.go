package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yeisme/filegate/pkg/configs"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
	"github.com/yeisme/filegate/pkg/internal/types"
)

func testDiskStore(t *testing.T) *disk.Store {
	t.Helper()

	root := t.TempDir()
	s, err := disk.NewWithConfig(&configs.StoreConfig{
		DataDir:       filepath.Join(root, "files"),
		StagingDir:    filepath.Join(root, "staging"),
		QuarantineDir: filepath.Join(root, "quarantine"),
		PublicBaseURL: "/files",
	})
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}

	return s
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "staged")
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	return p
}

func TestHeuristicScan(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		wantClean   bool
	}{
		{"eicar", eicarSignature, "text/plain", false},
		{"pe header", []byte("MZ\x90\x00binary"), "application/octet-stream", false},
		{"elf header", []byte{0x7f, 'E', 'L', 'F', 0, 0}, "application/octet-stream", false},
		{"svg with script", []byte(`<svg><script>alert(1)</script></svg>`), "image/svg+xml", false},
		{"svg onload", []byte(`<svg onload="evil()"></svg>`), "image/svg+xml", false},
		{"pdf with js", []byte("%PDF-1.4 /JavaScript (app.alert(1))"), "application/pdf", false},
		{"embedded dos stub", append([]byte("GIF89a"), dosStub...), "image/gif", false},
		{"clean svg", []byte(`<svg><rect width="1" height="1"/></svg>`), "image/svg+xml", true},
		{"clean pdf", []byte("%PDF-1.4 plain document"), "application/pdf", true},
		{"clean text", []byte("just some notes"), "text/plain; charset=utf-8", true},
		// script 标记只在容器类型上检查，普通文本里提到 javascript: 不算命中
		{"text mentioning javascript", []byte("use javascript: pseudo urls"), "text/plain; charset=utf-8", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, reason := heuristicScan(tt.data, tt.contentType)
			if clean != tt.wantClean {
				t.Errorf("clean = %v (reason %q), want %v", clean, reason, tt.wantClean)
			}
		})
	}
}

// fakeEngine 可编排的引擎替身.
type fakeEngine struct {
	available bool
	clean     bool
	reason    string
	err       error
}

func (f *fakeEngine) IsAvailable(context.Context) bool { return f.available }

func (f *fakeEngine) Scan(context.Context, string) (bool, string, error) {
	return f.clean, f.reason, f.err
}

func TestScreenerHeuristicOnly(t *testing.T) {
	s := NewMalwareScreener(nil, testDiskStore(t), nil, 0)

	verdict := s.Scan(context.Background(), writeTemp(t, []byte("harmless")), "d1", "text/plain; charset=utf-8")
	if !verdict.Clean {
		t.Fatalf("clean file rejected: %s", verdict.Reason)
	}

	if verdict.Source != types.ScanSourceHeuristic {
		t.Errorf("source = %s", verdict.Source)
	}
}

func TestScreenerEngineDisabledByConfig(t *testing.T) {
	// 生产装配路径：引擎未启用时接口值必须是真 nil，
	// typed-nil 指针会绕过 nil 判断并在探活时崩溃
	eng := EngineFromConfig(&configs.ScanConfig{EngineEnabled: false})
	if eng != nil {
		t.Fatal("disabled engine must yield a nil interface")
	}

	s := NewMalwareScreener(eng, testDiskStore(t), nil, 0)

	verdict := s.Scan(context.Background(), writeTemp(t, []byte("plain notes")), "d8", "text/plain; charset=utf-8")
	if !verdict.Clean {
		t.Fatalf("heuristic-only scan rejected clean file: %s", verdict.Reason)
	}

	if verdict.Source != types.ScanSourceHeuristic {
		t.Errorf("source = %s", verdict.Source)
	}
}

func TestScanUnreadableFileIsStorageError(t *testing.T) {
	s := NewMalwareScreener(nil, testDiskStore(t), nil, 0)

	verdict := s.Scan(context.Background(), filepath.Join(t.TempDir(), "gone"), "d9", "text/plain")
	if verdict.Clean {
		t.Fatal("unreadable file must not scan clean")
	}

	if !verdict.StorageErr {
		t.Error("unreadable file must be flagged as a storage error, not a malicious verdict")
	}
}

func TestScreenerHeuristicHitSkipsEngine(t *testing.T) {
	// 引擎说 clean，但启发式命中必须优先（fail closed）
	engine := &fakeEngine{available: true, clean: true}
	s := NewMalwareScreener(engine, testDiskStore(t), nil, 0)

	verdict := s.Scan(context.Background(), writeTemp(t, eicarSignature), "d2", "text/plain")
	if verdict.Clean {
		t.Fatal("heuristic hit must reject regardless of engine")
	}

	if verdict.Source != types.ScanSourceHeuristic {
		t.Errorf("source = %s", verdict.Source)
	}
}

func TestScreenerEngineVerdictPreferred(t *testing.T) {
	engine := &fakeEngine{available: true, clean: false, reason: "Win.Test.EICAR"}
	s := NewMalwareScreener(engine, testDiskStore(t), nil, 0)

	verdict := s.Scan(context.Background(), writeTemp(t, []byte("looks innocent")), "d3", "text/plain")
	if verdict.Clean {
		t.Fatal("engine infected verdict ignored")
	}

	if verdict.Source != types.ScanSourceEngine {
		t.Errorf("source = %s", verdict.Source)
	}
}

func TestScreenerFailsOpenOnEngineOutage(t *testing.T) {
	engine := &fakeEngine{available: true, err: errors.New("connection refused")}
	s := NewMalwareScreener(engine, testDiskStore(t), nil, 0)

	verdict := s.Scan(context.Background(), writeTemp(t, []byte("harmless")), "d4", "text/plain")
	if !verdict.Clean {
		t.Fatal("engine outage with clean heuristics must not block ingestion")
	}
}

func TestScreenerQuarantineRemovesOriginal(t *testing.T) {
	store := testDiskStore(t)
	s := NewMalwareScreener(nil, store, nil, 0)

	p := writeTemp(t, eicarSignature)

	qPath, err := s.Quarantine(p)
	if err != nil {
		t.Fatalf("Quarantine: %v", err)
	}

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("original still exists after quarantine")
	}

	if _, err := os.Stat(qPath); err != nil {
		t.Errorf("quarantined copy missing: %v", err)
	}
}
