package service

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/yeisme/filegate/pkg/configs"
	"github.com/yeisme/filegate/pkg/internal/types"
)

func testValidator() *ContentValidator {
	return NewContentValidatorWith(&configs.IngestConfig{
		MaxFileBytes:   1 << 20,
		MaxImageBytes:  512 << 10,
		MaxImagePixels: 256,
		AllowedTypes:   configs.DefaultAllowedTypes,
	})
}

// pngBytes 生成给定边长的有效 PNG.
func pngBytes(t *testing.T, side int) []byte {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, side, side))

	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	return buf.Bytes()
}

func TestValidateAcceptsPNG(t *testing.T) {
	v := testValidator()

	verdict := v.Validate(&types.UploadRequest{
		Data:         pngBytes(t, 16),
		DeclaredName: "avatar.png",
		DeclaredMIME: "image/png",
		User:         "u1",
	})

	if !verdict.Accepted {
		t.Fatalf("rejected: %s", verdict.Reason)
	}

	if verdict.DetectedMIME != "image/png" {
		t.Errorf("detected = %s", verdict.DetectedMIME)
	}

	if !verdict.IsImage {
		t.Error("png should be flagged as image")
	}

	if verdict.SanitizedName != "avatar.png" {
		t.Errorf("name = %s", verdict.SanitizedName)
	}
}

func TestValidateDistrustsDeclaredType(t *testing.T) {
	v := testValidator()

	// 声明 image/jpeg，内容却是脚本
	verdict := v.Validate(&types.UploadRequest{
		Data:         []byte("<script>alert(1)</script>"),
		DeclaredName: "photo.jpg",
		DeclaredMIME: "image/jpeg",
		User:         "u1",
	})

	if verdict.Accepted {
		t.Error("script payload with image declaration must be rejected")
	}
}

func TestValidateRejectsEmptyAndOversized(t *testing.T) {
	v := testValidator()

	if v.Validate(&types.UploadRequest{DeclaredName: "a.txt", User: "u1"}).Accepted {
		t.Error("empty file accepted")
	}

	big := bytes.Repeat([]byte("a"), (1<<20)+1)
	if v.Validate(&types.UploadRequest{Data: big, DeclaredName: "big.txt", User: "u1"}).Accepted {
		t.Error("oversized file accepted")
	}
}

func TestValidateImageSizeCeilingIsLower(t *testing.T) {
	v := testValidator()

	// 超过图片上限但低于通用上限的 PNG 应被拒
	data := pngBytes(t, 16)
	padded := append(data, bytes.Repeat([]byte{0}, 600<<10)...)

	verdict := v.Validate(&types.UploadRequest{Data: padded, DeclaredName: "big.png", User: "u1"})
	if verdict.Accepted {
		t.Error("image above image ceiling accepted")
	}
}

func TestValidateRejectsExcessiveDimensions(t *testing.T) {
	v := testValidator()

	verdict := v.Validate(&types.UploadRequest{
		Data:         pngBytes(t, 300),
		DeclaredName: "huge.png",
		User:         "u1",
	})

	if verdict.Accepted {
		t.Error("image beyond pixel limit accepted")
	}

	if !strings.Contains(verdict.Reason, "dimensions") {
		t.Errorf("reason = %s", verdict.Reason)
	}
}

func TestValidateCallerAllowListIntersection(t *testing.T) {
	v := testValidator()

	verdict := v.Validate(&types.UploadRequest{
		Data:         pngBytes(t, 16),
		DeclaredName: "avatar.png",
		User:         "u1",
		AllowedTypes: []string{"image/jpeg"},
	})

	if verdict.Accepted {
		t.Error("png accepted though caller only allows jpeg")
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"traversal", "../../etc/passwd", "passwd"},
		{"windows sep", `..\..\boot.ini`, "boot.ini"},
		{"control chars", "a\x00b\x1f.txt", "ab.txt"},
		{"plain", "report.pdf", "report.pdf"},
		{"dots only", "..", ""},
		{"embedded traversal", "a..b.txt", "ab.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.in); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := strings.Repeat("a", 300) + ".txt"

	got := SanitizeFileName(long)
	if len(got) > MaxFileNameLen {
		t.Errorf("len = %d, want <= %d", len(got), MaxFileNameLen)
	}

	if !strings.HasSuffix(got, ".txt") {
		t.Errorf("extension lost: %s", got)
	}

	// 多字节名截断必须落在 rune 边界，不产出无效 UTF-8
	wide := strings.Repeat("文", 200) + ".txt"

	got = SanitizeFileName(wide)
	if len(got) > MaxFileNameLen {
		t.Errorf("wide len = %d, want <= %d", len(got), MaxFileNameLen)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncation produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, ".txt") {
		t.Errorf("wide extension lost: %s", got)
	}
}
