package service

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yeisme/filegate/pkg/apperrors"
	"github.com/yeisme/filegate/pkg/internal/model"
	dbc "github.com/yeisme/filegate/pkg/internal/storage/db"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
	"github.com/yeisme/filegate/pkg/internal/types"
)

// QuotaLedger 按需汇总用户已提交记录的字节数并做写前配额检查.
// 用量不做长期缓存，避免与并发删除漂移；同一用户的并发查询
// 经 singleflight 合并为一次 SUM.
//
// 检查是咨询一致而非线性化：同一用户并发上传可能同时通过同一
// 快照，合计超限至多一个文件的大小（接受的有界超卖）.
// 启用严格模式后，编排器经 LockUser 以用户粒度串行化检查与写入.
type QuotaLedger struct {
	db         *dbc.Client
	disk       *disk.Store
	quotaBytes int64
	sf         singleflight.Group
	// userLocks 严格模式下的按用户互斥锁
	userLocks sync.Map
}

// NewQuotaLedger 创建配额账本.
func NewQuotaLedger(db *dbc.Client, diskStore *disk.Store, quotaBytes int64) *QuotaLedger {
	return &QuotaLedger{
		db:         db,
		disk:       diskStore,
		quotaBytes: quotaBytes,
	}
}

// CurrentUsage 返回用户全部已提交记录的字节总和.
func (q *QuotaLedger) CurrentUsage(ctx context.Context, user string) (int64, error) {
	v, err, _ := q.sf.Do(user, func() (any, error) {
		var total int64

		err := q.db.GetDB().WithContext(ctx).
			Model(&model.FileRecord{}).
			Where("user_id = ?", user).
			Select("COALESCE(SUM(size), 0)").
			Scan(&total).Error
		if err != nil {
			return int64(0), apperrors.Wrap(err, apperrors.KindStorageFailure, "sum usage")
		}

		return total, nil
	})
	if err != nil {
		return 0, err
	}

	return v.(int64), nil
}

// CheckQuota 写前检查：currentUsage + incoming 超过配额即拒绝.
// 在任何字节写入活动树之前调用，绝不走先写后回滚.
func (q *QuotaLedger) CheckQuota(ctx context.Context, user string, incoming int64) error {
	usage, err := q.CurrentUsage(ctx, user)
	if err != nil {
		return err
	}

	if usage+incoming > q.quotaBytes {
		return apperrors.Newf(apperrors.KindQuotaExceeded,
			"user %s usage %d + incoming %d exceeds quota %d", user, usage, incoming, q.quotaBytes)
	}

	return nil
}

// LockUser 获取用户粒度互斥锁，返回解锁函数.
// 仅在严格配额模式下由编排器包住 检查+写入 临界区.
func (q *QuotaLedger) LockUser(user string) func() {
	v, _ := q.userLocks.LoadOrStore(user, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// Status 汇总账本用量、磁盘实际占用与配额，用于对账与查询.
func (q *QuotaLedger) Status(ctx context.Context, user string) (*types.QuotaStatus, error) {
	usage, err := q.CurrentUsage(ctx, user)
	if err != nil {
		return nil, err
	}

	diskBytes, err := q.disk.UsageBytes(user)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindStorageFailure, "scan disk usage")
	}

	return &types.QuotaStatus{
		User:       user,
		UsedBytes:  usage,
		QuotaBytes: q.quotaBytes,
		DiskBytes:  diskBytes,
	}, nil
}
