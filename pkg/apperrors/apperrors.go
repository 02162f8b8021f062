// Package apperrors 定义摄取管线的类型化错误.
// 错误分类（Kind）决定调用方可见的稳定提示语；内部细节只进日志，
// 绝不把路径、引擎信息或堆栈透给调用方.
package apperrors

import (
	stderrors "errors"
	"fmt"
)

// Kind 错误分类.
type Kind string

const (
	// KindValidation 超限、类型不允许、内容畸形、文件名不安全；在校验阶段拦下，不触达存储.
	KindValidation Kind = "VALIDATION"
	// KindSecurityRejection 恶意内容命中；触发隔离，对该文件不可恢复.
	KindSecurityRejection Kind = "SECURITY_REJECTION"
	// KindQuotaExceeded 写前配额检查失败；未写任何字节，调用方可自行腾挪后重试.
	KindQuotaExceeded Kind = "QUOTA_EXCEEDED"
	// KindStorageFailure 磁盘读写失败；触发半成品清理，属可重试的基础设施错误.
	KindStorageFailure Kind = "STORAGE_FAILURE"
	// KindDerivationFailure 图片转码失败；仅记录日志，不影响摄取结果.
	KindDerivationFailure Kind = "DERIVATION_FAILURE"
	// KindNotFoundOrForbidden 访问不存在或不属于调用方的文件；两种情况刻意不可区分.
	KindNotFoundOrForbidden Kind = "NOT_FOUND_OR_FORBIDDEN"
	// KindInternal 其余未分类错误.
	KindInternal Kind = "INTERNAL"
)

// userMessages 每个分类对调用方的稳定提示语.
var userMessages = map[Kind]string{
	KindValidation:          "file rejected: invalid or unsupported content",
	KindSecurityRejection:   "file rejected",
	KindQuotaExceeded:       "storage quota exceeded",
	KindStorageFailure:      "storage temporarily unavailable, please retry",
	KindDerivationFailure:   "file stored, optimized variant unavailable",
	KindNotFoundOrForbidden: "file not found",
	KindInternal:            "internal error",
}

// Error 应用错误.
type Error struct {
	Kind Kind
	// Detail 内部细节，仅用于日志
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Detail, e.Err)
	}

	return fmt.Sprintf("[%s] %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使同分类的两个错误在 errors.Is 下相等.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}

	return e.Kind == t.Kind
}

// New 创建指定分类的错误.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf 创建指定分类的错误，detail 带格式化.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap 把底层错误包进指定分类.
func Wrap(err error, kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf 提取错误的分类，非应用错误归为 Internal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// IsKind 判断错误是否属于指定分类.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage 返回调用方可见的稳定提示语.
func UserMessage(err error) string {
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}

	return userMessages[KindInternal]
}

// Retryable 判断错误是否属于可重试的基础设施错误.
func Retryable(err error) bool {
	return IsKind(err, KindStorageFailure)
}
