// Package types 定义摄取管线各阶段之间传递的数据结构.
package types

// UploadRequest 单次摄取调用的输入，仅在调用期间存活.
// 声明的文件名、类型与大小均来自调用方，不可信任，须经校验.
type UploadRequest struct {
	Data         []byte   `json:"-"`
	DeclaredName string   `json:"declared_name" rule:"required,max=512"`
	DeclaredMIME string   `json:"declared_mime" rule:"max=255"`
	DeclaredSize int64    `json:"declared_size"`
	User         string   `json:"user"          rule:"required,max=255"`
	Category     string   `json:"category"      rule:"max=128"`
	// AllowedTypes 调用方附加的类型白名单，与全局安全白名单取交集
	AllowedTypes []string `json:"allowed_types,omitempty"`
}

// ValidationVerdict 校验阶段的输出.
type ValidationVerdict struct {
	Accepted      bool   `json:"accepted"`
	DetectedMIME  string `json:"detected_mime"`
	SanitizedName string `json:"sanitized_name"`
	IsImage       bool   `json:"is_image"`
	Reason        string `json:"reason,omitempty"`
}

// ScanVerdict 病毒扫描阶段的输出.
type ScanVerdict struct {
	Clean bool `json:"clean"`
	// Source 给出判定来源（heuristic 或 engine），用于日志区分引擎不可达与阳性判定
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
	// StorageErr 暂存文件读取失败. 不是恶意判定：编排器按可重试的
	// 存储错误处理（丢弃暂存），不走隔离.
	StorageErr bool `json:"storage_err,omitempty"`
}

// 扫描判定来源.
const (
	ScanSourceHeuristic = "heuristic"
	ScanSourceEngine    = "engine"
	ScanSourceCache     = "cache"
)
