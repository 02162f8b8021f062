package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/filegate/pkg/rule"
)

// ingestRules 模拟配置节上的校验标签.
type ingestRules struct {
	MaxFileSize      int64    `rule:"gt=0"`
	DefaultCategory  string   `rule:"required"`
	AllowedMIMETypes []string `rule:"min=1,dive,required"`
}

func TestEngineNotNil(t *testing.T) {
	if rule.Engine() == nil {
		t.Fatal("Engine() returned nil")
	}
}

func TestValidateStructConfigSection(t *testing.T) {
	valid := ingestRules{
		MaxFileSize:      64 << 20,
		DefaultCategory:  "misc",
		AllowedMIMETypes: []string{"image/png", "application/pdf"},
	}
	if err := rule.ValidateStruct(valid); err != nil {
		t.Errorf("valid section rejected: %v", err)
	}

	zeroSize := valid
	zeroSize.MaxFileSize = 0

	if err := rule.ValidateStruct(zeroSize); err == nil {
		t.Error("zero max file size should be rejected")
	}

	noTypes := valid
	noTypes.AllowedMIMETypes = nil

	if err := rule.ValidateStruct(noTypes); err == nil {
		t.Error("empty allow list should be rejected")
	}
}

func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar("http://localhost:8080", "url"); err != nil {
		t.Errorf("valid url rejected: %v", err)
	}

	if err := rule.ValidateVar("not a url", "url"); err == nil {
		t.Error("invalid url accepted")
	}

	if err := rule.ValidateVar("redis", "oneof=memory redis nats groupcache"); err != nil {
		t.Errorf("valid kv type rejected: %v", err)
	}

	if err := rule.ValidateVar("bolt", "oneof=memory redis nats groupcache"); err == nil {
		t.Error("unknown kv type accepted")
	}
}

func TestRegisterValidation(t *testing.T) {
	// sha256 十六进制摘要：64 个小写 hex 字符
	err := rule.RegisterValidation("sha256hex", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok || len(s) != 64 {
			return false
		}

		for _, c := range s {
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				return false
			}
		}

		return true
	})
	if err != nil {
		t.Fatalf("RegisterValidation: %v", err)
	}

	digest := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	if err := rule.ValidateVar(digest, "sha256hex"); err != nil {
		t.Errorf("valid digest rejected: %v", err)
	}

	if err := rule.ValidateVar("not-a-digest", "sha256hex"); err == nil {
		t.Error("malformed digest accepted")
	}
}

func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("category_name", "required,min=1,max=64")

	if err := rule.ValidateVar("images", "category_name"); err != nil {
		t.Errorf("valid category rejected: %v", err)
	}

	if err := rule.ValidateVar("", "category_name"); err == nil {
		t.Error("empty category accepted")
	}
}
