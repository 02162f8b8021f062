package service

import (
	"context"
	"os"
	"time"

	"github.com/yeisme/filegate/pkg/cache"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
	"github.com/yeisme/filegate/pkg/internal/types"
	nlog "github.com/yeisme/filegate/pkg/log"
)

// verdictCachePrefix 扫描判定缓存键前缀，键为内容摘要.
const verdictCachePrefix = "scan:clean:"

// MalwareScreener 两级扫描策略：本地启发式优先，引擎可用时委托引擎.
// 引擎不可达降级放行（fail open），启发式命中始终拒绝（fail closed）.
type MalwareScreener struct {
	// engine 为 nil 时仅启发式模式
	engine Engine
	disk   *disk.Store
	// verdictCache 为 nil 时不缓存；只缓存 clean 判定，
	// 同一内容在 TTL 内重复上传可跳过引擎往返
	verdictCache *cache.Cache
	cacheTTL     time.Duration
}

// NewMalwareScreener 创建扫描器. engine、verdictCache 均可为 nil.
func NewMalwareScreener(engine Engine, diskStore *disk.Store, verdictCache *cache.Cache, cacheTTL time.Duration) *MalwareScreener {
	return &MalwareScreener{
		engine:       engine,
		disk:         diskStore,
		verdictCache: verdictCache,
		cacheTTL:     cacheTTL,
	}
}

// Scan 扫描暂存路径上的文件. digest 为内容摘要，用于判定缓存；
// contentType 为嗅探出的真实类型，决定容器相关的启发式检查项.
func (s *MalwareScreener) Scan(ctx context.Context, path, digest, contentType string) *types.ScanVerdict {
	logger := nlog.Logger()

	// 摘要相同的内容近期已判定为 clean，跳过重复扫描
	if s.verdictCache != nil && digest != "" {
		if ok, err := s.verdictCache.Exists(ctx, verdictCachePrefix+digest); err == nil && ok {
			return &types.ScanVerdict{Clean: true, Source: types.ScanSourceCache}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &types.ScanVerdict{Clean: false, StorageErr: true, Reason: "unreadable staged file"}
	}

	// 启发式命中立即拒绝，不再询问引擎
	if clean, reason := heuristicScan(data, contentType); !clean {
		return &types.ScanVerdict{Clean: false, Source: types.ScanSourceHeuristic, Reason: reason}
	}

	// 引擎委托：可达时以引擎判定为准
	if s.engine != nil && s.engine.IsAvailable(ctx) {
		clean, reason, err := s.engine.Scan(ctx, path)

		switch {
		case err != nil:
			// 不可达/超时与阳性判定在日志里分开记，两者都不阻塞摄取
			logger.Warn().Err(err).Str("path", path).
				Msg("scan engine unreachable, falling back to heuristic verdict")
		case !clean:
			return &types.ScanVerdict{Clean: false, Source: types.ScanSourceEngine, Reason: reason}
		default:
			s.cacheClean(ctx, digest)

			return &types.ScanVerdict{Clean: true, Source: types.ScanSourceEngine}
		}
	}

	s.cacheClean(ctx, digest)

	return &types.ScanVerdict{Clean: true, Source: types.ScanSourceHeuristic}
}

// cacheClean 记录 clean 判定，失败只记日志.
func (s *MalwareScreener) cacheClean(ctx context.Context, digest string) {
	if s.verdictCache == nil || digest == "" {
		return
	}

	if err := cache.Set(ctx, s.verdictCache, verdictCachePrefix+digest, true, s.cacheTTL); err != nil {
		nlog.Logger().Debug().Err(err).Msg("cache scan verdict failed")
	}
}

// Quarantine 将文件原子移入隔离区，返回隔离后的路径.
func (s *MalwareScreener) Quarantine(path string) (string, error) {
	return s.disk.Quarantine(path)
}
