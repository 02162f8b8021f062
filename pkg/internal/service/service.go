// Package service 实现文件摄取管线：校验、病毒扫描、配额、写入、变体派生与编排.
//
// 各阶段以接口形式显式注入编排器（构造函数装配，无运行时服务定位），
// 进程启动时装配一次，之后并发安全地被多个摄取调用复用.
package service

import (
	"context"

	"github.com/yeisme/filegate/pkg/internal/types"
)

// Validator 校验阶段：检查字节与声明元数据，产出净化后的文件名与嗅探类型.
type Validator interface {
	Validate(req *types.UploadRequest) *types.ValidationVerdict
}

// Screener 病毒扫描阶段：检查暂存文件内容，可隔离.
type Screener interface {
	Scan(ctx context.Context, path, digest, contentType string) *types.ScanVerdict
	Quarantine(path string) (string, error)
}

// Quota 配额阶段：统计用户占用并做写前检查.
type Quota interface {
	CurrentUsage(ctx context.Context, user string) (int64, error)
	CheckQuota(ctx context.Context, user string, incoming int64) error
}

// Deriver 变体派生阶段：为图片生成优化变体，失败不影响摄取.
type Deriver interface {
	DeriveWebVariant(storedPath string) (string, error)
	Thumbnail(storedPath string, size int) (string, error)
	MultiSize(storedPath string) (map[string]string, error)
}
