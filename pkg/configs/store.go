package configs

import (
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultStoreDataDir       = "data/files"      // 活动存储树根目录
	DefaultStoreStagingDir    = "data/staging"    // 暂存目录（写入但未提交）
	DefaultStoreQuarantineDir = "data/quarantine" // 隔离区目录（无元数据记录，不可公开访问）
	DefaultStorePublicBaseURL = "/files"          // 公开 URL 前缀
)

type (
	// StoreConfig 磁盘内容存储配置.
	// 隔离区必须与活动树位于同一文件系统，保证 rename 的原子性.
	StoreConfig struct {
		DataDir       string `mapstructure:"data_dir"        rule:"required"`
		StagingDir    string `mapstructure:"staging_dir"     rule:"required"`
		QuarantineDir string `mapstructure:"quarantine_dir"  rule:"required"`
		PublicBaseURL string `mapstructure:"public_base_url" rule:"required"`
	}
)

// AbsDataDir 返回活动存储树的绝对路径.
func (s *StoreConfig) AbsDataDir() string {
	abs, err := filepath.Abs(s.DataDir)
	if err != nil {
		return s.DataDir
	}

	return abs
}

// setDefaults 设置磁盘存储配置的默认值.
func (s *StoreConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("store.data_dir", DefaultStoreDataDir)
	v.SetDefault("store.staging_dir", DefaultStoreStagingDir)
	v.SetDefault("store.quarantine_dir", DefaultStoreQuarantineDir)
	v.SetDefault("store.public_base_url", DefaultStorePublicBaseURL)
}
