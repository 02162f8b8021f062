package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMaxFileBytes     = 25 * 1024 * 1024   // 通用文件大小上限
	DefaultMaxImageBytes    = 10 * 1024 * 1024   // 图片文件大小上限（低于通用上限，约束转码成本）
	DefaultMaxImagePixels   = 8192               // 图片单边最大像素
	DefaultUserQuotaBytes   = 1024 * 1024 * 1024 // 每用户存储配额（1GB）
	DefaultStagingRetention = 24                 // 暂存文件保留时长（小时）
	DefaultReloadConfig     = true               // 是否启用配置热重载
	DefaultDebug            = false              // 是否启用调试模式
)

// DefaultAllowedTypes 已知安全类型白名单，嗅探结果不在其中的一律拒绝.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
	"application/pdf",
	"text/plain; charset=utf-8",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type (
	// IngestConfig 摄取管线配置，含进程级开关.
	IngestConfig struct {
		MaxFileBytes          int64    `mapstructure:"max_file_bytes"          rule:"min=1"`
		MaxImageBytes         int64    `mapstructure:"max_image_bytes"         rule:"min=1"`
		MaxImagePixels        int      `mapstructure:"max_image_pixels"        rule:"min=16"`
		UserQuotaBytes        int64    `mapstructure:"user_quota_bytes"        rule:"min=1"`
		AllowedTypes          []string `mapstructure:"allowed_types"`
		StagingRetentionHours int      `mapstructure:"staging_retention_hours" rule:"min=1"`
		// StrictQuota 启用后以用户粒度串行化配额检查与写入，消除并发超卖
		StrictQuota  bool `mapstructure:"strict_quota"`
		ReloadConfig bool `mapstructure:"reload_config"`
		Debug        bool `mapstructure:"debug"`
	}
)

// StagingRetention 返回暂存保留窗口作为 time.Duration.
func (c *IngestConfig) StagingRetention() time.Duration {
	return time.Duration(c.StagingRetentionHours) * time.Hour
}

// setDefaults 设置摄取管线配置的默认值.
func (c *IngestConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("ingest.max_file_bytes", DefaultMaxFileBytes)
	v.SetDefault("ingest.max_image_bytes", DefaultMaxImageBytes)
	v.SetDefault("ingest.max_image_pixels", DefaultMaxImagePixels)
	v.SetDefault("ingest.user_quota_bytes", DefaultUserQuotaBytes)
	v.SetDefault("ingest.allowed_types", DefaultAllowedTypes)
	v.SetDefault("ingest.staging_retention_hours", DefaultStagingRetention)
	v.SetDefault("ingest.strict_quota", false)
	v.SetDefault("ingest.reload_config", DefaultReloadConfig)
	v.SetDefault("ingest.debug", DefaultDebug)
}
