package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultScanEngineAddr    = "tcp://localhost:3310" // clamd 默认地址
	DefaultScanTimeout       = 20                     // 引擎单次扫描超时（秒）
	DefaultVerdictCacheTTL   = 6                      // 按内容摘要缓存 clean 判定的时长（小时）
	DefaultVerdictCacheOn    = true
	DefaultScanEngineEnabled = false // 默认仅启用启发式；引擎按部署环境开启
)

type (
	// ScanConfig 恶意内容扫描配置.
	// 引擎不可达时降级为仅启发式（fail open），启发式命中始终拒绝（fail closed）.
	ScanConfig struct {
		EngineEnabled   bool                 `mapstructure:"engine_enabled"`
		EngineAddr      string               `mapstructure:"engine_addr"`
		TimeoutSeconds  int                  `mapstructure:"timeout_seconds"   rule:"min=1,max=300"`
		VerdictCache    bool                 `mapstructure:"verdict_cache"`
		VerdictCacheTTL int                  `mapstructure:"verdict_cache_ttl" rule:"min=1"` // 小时
		Breaker         CircuitBreakerConfig `mapstructure:"breaker"`
		RateLimit       RateLimitConfig      `mapstructure:"rate_limit"`
	}
)

// Timeout 返回引擎扫描超时作为 time.Duration.
func (c *ScanConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL 返回判定缓存时长作为 time.Duration.
func (c *ScanConfig) CacheTTL() time.Duration {
	return time.Duration(c.VerdictCacheTTL) * time.Hour
}

// setDefaults 设置扫描配置的默认值.
func (c *ScanConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("scan.engine_enabled", DefaultScanEngineEnabled)
	v.SetDefault("scan.engine_addr", DefaultScanEngineAddr)
	v.SetDefault("scan.timeout_seconds", DefaultScanTimeout)
	v.SetDefault("scan.verdict_cache", DefaultVerdictCacheOn)
	v.SetDefault("scan.verdict_cache_ttl", DefaultVerdictCacheTTL)

	c.Breaker.setDefaults(v)
	c.RateLimit.setDefaults(v)
}
