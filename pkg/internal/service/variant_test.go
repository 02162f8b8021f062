package service

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yeisme/filegate/pkg/apperrors"
)

func writeTestPNG(t *testing.T, side int) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "original.png")
	if err := os.WriteFile(p, pngBytes(t, side), 0o600); err != nil {
		t.Fatalf("write png: %v", err)
	}

	return p
}

func TestDeriveWebVariant(t *testing.T) {
	d := NewVariantDeriver()
	original := writeTestPNG(t, 32)

	variantPath, err := d.DeriveWebVariant(original)
	if err != nil {
		t.Fatalf("DeriveWebVariant: %v", err)
	}

	// 同 stem，.webp 后缀，与原图同目录
	if filepath.Dir(variantPath) != filepath.Dir(original) {
		t.Error("variant not alongside original")
	}

	if !strings.HasSuffix(variantPath, "original.webp") {
		t.Errorf("variant path = %s", variantPath)
	}

	if _, err := os.Stat(variantPath); err != nil {
		t.Errorf("variant missing: %v", err)
	}

	// 原图保留
	if _, err := os.Stat(original); err != nil {
		t.Errorf("original gone after derivation: %v", err)
	}
}

func TestDeriveWebVariantFromWebpOriginal(t *testing.T) {
	d := NewVariantDeriver()

	// 先派生出真实的 webp 文件充当原图
	seed, err := d.DeriveWebVariant(writeTestPNG(t, 32))
	if err != nil {
		t.Fatalf("seed webp: %v", err)
	}

	origData, err := os.ReadFile(seed)
	if err != nil {
		t.Fatalf("read seed: %v", err)
	}

	variantPath, err := d.DeriveWebVariant(seed)
	if err != nil {
		t.Fatalf("DeriveWebVariant: %v", err)
	}

	if variantPath == seed {
		t.Fatal("variant path equals original path")
	}

	if !strings.HasSuffix(variantPath, "_web.webp") {
		t.Errorf("variant path = %s", variantPath)
	}

	if _, err := os.Stat(variantPath); err != nil {
		t.Errorf("variant missing: %v", err)
	}

	// 原图字节原样保留
	got, err := os.ReadFile(seed)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}

	if !bytes.Equal(got, origData) {
		t.Error("original bytes changed by derivation")
	}
}

func TestThumbnail(t *testing.T) {
	d := NewVariantDeriver()
	original := writeTestPNG(t, 500)

	variantPath, err := d.Thumbnail(original, 150)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}

	if !strings.Contains(variantPath, "_thumb150") {
		t.Errorf("variant path = %s", variantPath)
	}

	if _, err := os.Stat(variantPath); err != nil {
		t.Errorf("thumbnail missing: %v", err)
	}
}

func TestMultiSize(t *testing.T) {
	d := NewVariantDeriver()
	original := writeTestPNG(t, 64)

	out, err := d.MultiSize(original)
	if err != nil {
		t.Fatalf("MultiSize: %v", err)
	}

	if out["original"] != original {
		t.Errorf("original entry = %s", out["original"])
	}

	for _, name := range []string{"large", "medium", "small", "thumbnail"} {
		p, ok := out[name]
		if !ok {
			t.Errorf("missing size %s", name)

			continue
		}

		if _, err := os.Stat(p); err != nil {
			t.Errorf("size %s missing on disk: %v", name, err)
		}
	}
}

func TestDeriveFailsOnCorruptBody(t *testing.T) {
	d := NewVariantDeriver()

	// PNG 魔数合法、主体损坏
	p := filepath.Join(t.TempDir(), "corrupt.png")

	data := append([]byte("\x89PNG\r\n\x1a\n"), []byte("this is not image data")...)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := d.DeriveWebVariant(p)
	if !apperrors.IsKind(err, apperrors.KindDerivationFailure) {
		t.Errorf("want DerivationFailure, got %v", err)
	}

	// 失败不得留下半成品变体
	if _, statErr := os.Stat(strings.TrimSuffix(p, ".png") + ".webp"); !os.IsNotExist(statErr) {
		t.Error("partial variant left behind")
	}
}
