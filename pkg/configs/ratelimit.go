package configs

import "github.com/spf13/viper"

const (
	// 默认速率限制配置（限制对扫描引擎的请求速率，防止引擎过载）.
	DefaultRateLimitEnabled = true
	DefaultRateLimitRPS     = 20.0
	DefaultRateLimitBurst   = 40
)

// RateLimitConfig 速率限制配置.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`   // 每秒允许的请求数
	Burst   int     `mapstructure:"burst"` // 突发容量
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("scan.rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("scan.rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("scan.rate_limit.burst", DefaultRateLimitBurst)
}
