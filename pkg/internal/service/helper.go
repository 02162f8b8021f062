package service

import (
	"context"

	"github.com/yeisme/filegate/pkg/cache"
	"github.com/yeisme/filegate/pkg/configs"
	ctxPkg "github.com/yeisme/filegate/pkg/context"
)

// scanVerdictCache 按配置构建摘要键的扫描判定缓存，不可用时返回 nil.
func scanVerdictCache(ctx context.Context, cfg *configs.ScanConfig) *cache.Cache {
	if !cfg.VerdictCache {
		return nil
	}

	kvClient := ctxPkg.GetKVClient(ctx)
	if kvClient == nil {
		return nil
	}

	return cache.NewCache(kvClient.KVStore)
}
