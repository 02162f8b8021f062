// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filegate/pkg/configs"
	"github.com/yeisme/filegate/pkg/internal/model"
	"github.com/yeisme/filegate/pkg/internal/service"
	"github.com/yeisme/filegate/pkg/internal/storage"
	"github.com/yeisme/filegate/pkg/log"
	"github.com/yeisme/filegate/pkg/metrics"
	"github.com/yeisme/filegate/pkg/queue"
	"github.com/yeisme/filegate/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 每小时第 15 分清理超过保留窗口的暂存文件
//   - 每天 03:40 对账每用户的账本用量与磁盘实际用量
//   - 每天 04:20 将未归档的已提交文件同步到对象存储归档层（归档层启用时）
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	baseCtx := context.Background()

	// 每小时清理过期暂存文件
	_ = sched.AddCron(JobStagingPurgeHourly, CronStagingPurgeHourly, func(ctx context.Context) {
		RunStagingPurge(ctx, mgr)
	}, baseCtx)

	// 每天 03:40 配额对账
	_ = sched.AddCron(JobQuotaReconcileDaily, CronQuotaReconcileDaily, func(ctx context.Context) {
		RunQuotaReconcile(ctx, mgr)
	}, baseCtx)

	// 每天 04:20 归档同步（归档层未启用时任务直接返回）
	_ = sched.AddCron(JobArchiveSyncDaily, CronArchiveSyncDaily, func(ctx context.Context) {
		RunArchiveSync(ctx, mgr)
	}, baseCtx)

	return nil
}

// RunStagingPurge 删除暂存目录中超过保留窗口的文件.
// 保留窗口内的暂存文件可能属于尚在执行的摄取，绝不能动.
func RunStagingPurge(ctx context.Context, mgr *storage.Manager) {
	l := log.Logger().With().Str("job", JobStagingPurgeHourly).Logger()

	retention := configs.GetConfig().Ingest.StagingRetention()

	purged, err := mgr.GetDiskStore().PurgeStaging(retention)
	if err != nil {
		l.Error().Err(err).Msg("staging purge failed")
		return
	}

	if purged == 0 {
		return
	}

	metrics.StagingPurgedCounter.Add(float64(purged))
	l.Info().Int("purged", purged).Dur("retention", retention).Msg("staging purged")

	publishStagingPurged(ctx, mgr, purged, retention)
}

// publishStagingPurged 发布清理事件，best-effort.
func publishStagingPurged(ctx context.Context, mgr *storage.Manager, purged int, retention time.Duration) {
	mq := mgr.GetMQClient()
	if mq == nil || !configs.GetConfig().Events.File.StagingPurged {
		return
	}

	payload := queue.StagingPurgedPayload{
		Purged:    purged,
		Retention: retention.String(),
		RanAt:     time.Now().UTC(),
	}

	msg, err := queue.NewWatermillMessage(queue.TopicStagingPurged, payload.RanAt.Format("20060102T150405"), payload)
	if err == nil {
		err = mq.Publish(ctx, queue.TopicStagingPurged, msg)
	}

	if err != nil {
		log.Logger().Warn().Err(err).Msg("publish staging purged event failed")
	}
}

// RunQuotaReconcile 对账：账本用量（记录 SUM）与磁盘实际字节数的漂移只记日志，
// 不自动修正——漂移意味着补偿没有彻底完成或有外部手动操作，需要人工确认.
func RunQuotaReconcile(ctx context.Context, mgr *storage.Manager) {
	l := log.Logger().With().Str("job", JobQuotaReconcileDaily).Logger()

	users, err := listAllUsers(ctx, mgr)
	if err != nil {
		l.Error().Err(err).Msg("list users failed")
		return
	}

	cfg := configs.GetConfig()
	ledger := service.NewQuotaLedger(mgr.GetDBClient(), mgr.GetDiskStore(), cfg.Ingest.UserQuotaBytes)

	for _, u := range users {
		ledgerBytes, err := ledger.CurrentUsage(ctx, u)
		if err != nil {
			l.Error().Err(err).Str("user", u).Msg("ledger usage failed")
			continue
		}

		diskBytes, err := mgr.GetDiskStore().UsageBytes(u)
		if err != nil {
			l.Error().Err(err).Str("user", u).Msg("disk usage failed")
			continue
		}

		// 账本只计原始字节，派生变体不占配额，从磁盘总量中剔除
		vBytes, err := variantBytes(ctx, mgr, u)
		if err != nil {
			l.Error().Err(err).Str("user", u).Msg("variant usage failed")
			continue
		}

		originalBytes := diskBytes - vBytes

		if ledgerBytes != originalBytes {
			l.Warn().
				Str("user", u).
				Int64("ledger_bytes", ledgerBytes).
				Int64("disk_bytes", diskBytes).
				Int64("variant_bytes", vBytes).
				Int64("drift", originalBytes-ledgerBytes).
				Msg("quota drift detected")
		}
	}
}

// variantBytes 统计用户全部派生变体的磁盘占用.
func variantBytes(ctx context.Context, mgr *storage.Manager, user string) (int64, error) {
	dbx := mgr.GetDBClient().GetDB().WithContext(ctx)

	var paths []string
	if err := dbx.Model(&model.FileRecord{}).
		Where("user_id = ? AND variant_path <> ''", user).
		Pluck("variant_path", &paths).Error; err != nil {
		return 0, err
	}

	diskStore := mgr.GetDiskStore()

	var total int64

	for _, p := range paths {
		if info, err := os.Stat(diskStore.Abs(p)); err == nil {
			total += info.Size()
		}
	}

	return total, nil
}

// RunArchiveSync 将已提交但未归档的文件复制到对象存储归档层.
// 归档是旁路副本，失败不影响本地存储树的权威地位.
func RunArchiveSync(ctx context.Context, mgr *storage.Manager) {
	s3 := mgr.GetS3Client()
	if s3 == nil {
		return
	}

	l := log.Logger().With().Str("job", JobArchiveSyncDaily).Logger()

	dbx := mgr.GetDBClient().GetDB().WithContext(ctx)
	diskStore := mgr.GetDiskStore()

	var archived, failed int

	// 分批遍历全部记录，避免一次性加载大表
	var records []model.FileRecord

	err := dbx.Model(&model.FileRecord{}).FindInBatches(&records, 200, func(_ *gorm.DB, _ int) error {
		for i := range records {
			rec := &records[i]

			exists, err := s3.Archived(ctx, rec.StoragePath)
			if err != nil {
				l.Error().Err(err).Str("path", rec.StoragePath).Msg("archive stat failed")

				failed++

				continue
			}

			if exists {
				continue
			}

			if err := s3.ArchiveFile(ctx, diskStore.Abs(rec.StoragePath), rec.StoragePath, rec.ContentType); err != nil {
				l.Error().Err(err).Str("path", rec.StoragePath).Msg("archive upload failed")

				failed++

				continue
			}

			archived++
		}

		return nil
	}).Error
	if err != nil {
		l.Error().Err(err).Msg("archive sync scan failed")
		return
	}

	if archived > 0 || failed > 0 {
		l.Info().Int("archived", archived).Int("failed", failed).Msg("archive sync done")
	}
}

// listAllUsers 查询 DB 中存在文件记录的所有用户.
func listAllUsers(ctx context.Context, mgr *storage.Manager) ([]string, error) {
	if mgr == nil || mgr.GetDBClient() == nil || mgr.GetDBClient().GetDB() == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	dbx := mgr.GetDBClient().GetDB().WithContext(ctx)

	var users []string
	if err := dbx.Model(&model.FileRecord{}).Distinct().Pluck("user_id", &users).Error; err != nil {
		return nil, err
	}

	return users, nil
}
