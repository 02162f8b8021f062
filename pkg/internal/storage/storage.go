// Package storage 聚合元数据库、磁盘内容存储、KV、消息队列与可选归档层.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	dbClient := mgr.GetDBClient()
//	diskStore := mgr.GetDiskStore()
package storage

import (
	"context"
	"sync"

	"github.com/yeisme/filegate/pkg/configs"
	"github.com/yeisme/filegate/pkg/internal/model"
	dbc "github.com/yeisme/filegate/pkg/internal/storage/db"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
	kvc "github.com/yeisme/filegate/pkg/internal/storage/kv"
	mqc "github.com/yeisme/filegate/pkg/internal/storage/mq"
	s3c "github.com/yeisme/filegate/pkg/internal/storage/s3"
	nlog "github.com/yeisme/filegate/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB   *dbc.Client
	Disk *disk.Store
	KV   *kvc.Client
	// MQ 事件发布通道，事件未启用时为 nil
	MQ *mqc.Client
	// S3 归档层，未启用时为 nil
	S3 *s3c.Client
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		cfg := configs.GetConfig()
		m := &Manager{}

		// DB
		dbi, e := dbc.New(ctx)
		if e != nil {
			err = e

			return
		}

		m.DB = dbi

		// 元数据表结构迁移
		if e := dbi.GetDB().WithContext(ctx).AutoMigrate(&model.FileRecord{}); e != nil {
			err = e

			return
		}

		// 磁盘内容存储
		di, e := disk.New()
		if e != nil {
			err = e

			return
		}

		m.Disk = di

		// KV（扫描判定缓存等）
		kvi, e := kvc.NewKVClient(ctx)
		if e != nil {
			err = e

			return
		}

		m.KV = kvi

		// MQ（事件发布，可选）
		if cfg.Events.Enabled {
			mqi, e := mqc.New(ctx)
			if e != nil {
				err = e

				return
			}

			m.MQ = mqi
		}

		// S3 归档层（可选，未启用时返回 nil）
		s3i, e := s3c.New(ctx)
		if e != nil {
			err = e

			return
		}

		m.S3 = s3i

		mgr = m

		nlog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetDiskStore 获取磁盘内容存储.
func (m *Manager) GetDiskStore() *disk.Store {
	return m.Disk
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端，事件未启用时为 nil.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetS3Client 获取归档客户端，未启用时为 nil.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// Close 关闭所有存储资源.
func (m *Manager) Close() {
	if m == nil {
		return
	}

	if m.MQ != nil {
		if err := m.MQ.Close(); err != nil {
			nlog.Logger().Warn().Err(err).Msg("close mq failed")
		}
	}

	if m.KV != nil {
		if err := m.KV.Close(); err != nil {
			nlog.Logger().Warn().Err(err).Msg("close kv failed")
		}
	}

	if m.S3 != nil {
		_ = m.S3.Close()
	}
}
