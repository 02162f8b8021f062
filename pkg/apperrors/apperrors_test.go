package apperrors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", New(KindQuotaExceeded, "over budget"), KindQuotaExceeded},
		{"wrapped app error", fmt.Errorf("ingest: %w", New(KindValidation, "too big")), KindValidation},
		{"wrapped os error", Wrap(fs.ErrPermission, KindStorageFailure, "write failed"), KindStorageFailure},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil-ish", fmt.Errorf("ctx"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindSecurityRejection, "eicar match"))

	if !errors.Is(err, New(KindSecurityRejection, "")) {
		t.Error("errors.Is should match same kind")
	}

	if errors.Is(err, New(KindValidation, "")) {
		t.Error("errors.Is should not match different kind")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := fs.ErrNotExist
	err := Wrap(cause, KindStorageFailure, "read failed")

	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("wrapped cause should survive errors.Is")
	}
}

func TestUserMessageIsStableAndGeneric(t *testing.T) {
	err := Wrap(errors.New("/data/files/u1/avatar/x.png: disk full"), KindStorageFailure, "promote failed")

	msg := UserMessage(err)
	if msg != "storage temporarily unavailable, please retry" {
		t.Errorf("unexpected message: %s", msg)
	}

	// 提示语不得泄露内部路径
	if msg == err.Error() {
		t.Error("user message must not expose internals")
	}

	if UserMessage(errors.New("anything")) != "internal error" {
		t.Error("unclassified errors fall back to internal message")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(New(KindStorageFailure, "disk full")) {
		t.Error("storage failures are retryable")
	}

	if Retryable(New(KindQuotaExceeded, "over")) {
		t.Error("quota errors are not infrastructure retries")
	}
}
