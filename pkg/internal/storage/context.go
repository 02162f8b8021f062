package storage

import (
	"context"

	dbc "github.com/yeisme/filegate/pkg/internal/storage/db"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
	kvc "github.com/yeisme/filegate/pkg/internal/storage/kv"
	mqc "github.com/yeisme/filegate/pkg/internal/storage/mq"
)

type contextKey string

const managerKey contextKey = "storageManager"

// WithManager 将 Manager 存储到 context 中.
func WithManager(ctx context.Context, mgr *Manager) context.Context {
	return context.WithValue(ctx, managerKey, mgr)
}

// GetManagerFromContext 从 context 中获取 Manager.
func GetManagerFromContext(ctx context.Context) *Manager {
	if mgr, ok := ctx.Value(managerKey).(*Manager); ok {
		return mgr
	}

	return nil
}

// GetDBClientFromContext 从 context 中获取 DB 客户端.
func GetDBClientFromContext(ctx context.Context) *dbc.Client {
	if mgr := GetManagerFromContext(ctx); mgr != nil {
		return mgr.DB
	}

	return nil
}

// GetDiskStoreFromContext 从 context 中获取磁盘内容存储.
func GetDiskStoreFromContext(ctx context.Context) *disk.Store {
	if mgr := GetManagerFromContext(ctx); mgr != nil {
		return mgr.Disk
	}

	return nil
}

// GetKVClientFromContext 从 context 中获取 KV 客户端.
func GetKVClientFromContext(ctx context.Context) *kvc.Client {
	if mgr := GetManagerFromContext(ctx); mgr != nil {
		return mgr.KV
	}

	return nil
}

// GetMQClientFromContext 从 context 中获取 MQ 客户端.
func GetMQClientFromContext(ctx context.Context) *mqc.Client {
	if mgr := GetManagerFromContext(ctx); mgr != nil {
		return mgr.MQ
	}

	return nil
}
