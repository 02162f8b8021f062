package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool             `mapstructure:"enabled"` // 总开关
	File    FileEventsConfig `mapstructure:"file"`
}

// FileEventsConfig 针对文件摄取领域的事件开关。
type FileEventsConfig struct {
	Ingested       bool `mapstructure:"ingested"`
	Rejected       bool `mapstructure:"rejected"`
	Quarantined    bool `mapstructure:"quarantined"`
	Deleted        bool `mapstructure:"deleted"`
	VariantDerived bool `mapstructure:"variant_derived"`
	StagingPurged  bool `mapstructure:"staging_purged"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 文件领域事件：默认开启提交/删除/隔离这类审计必需的最小集
	v.SetDefault("events.file.ingested", true)
	v.SetDefault("events.file.deleted", true)
	v.SetDefault("events.file.quarantined", true)

	// 可选事件：默认关闭，按需开启
	v.SetDefault("events.file.rejected", false) // 拒绝量可能很大，默认关闭
	v.SetDefault("events.file.variant_derived", false)
	v.SetDefault("events.file.staging_purged", false)
}
