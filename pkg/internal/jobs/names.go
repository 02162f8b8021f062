package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobStagingPurgeHourly  = "staging.purge.hourly"
	JobQuotaReconcileDaily = "quota.reconcile.daily"
	JobArchiveSyncDaily    = "archive.sync.daily"
)

// Cron 表达式常量（可选，但推荐一并集中管理）.
const (
	CronStagingPurgeHourly  = "15 * * * *"
	CronQuotaReconcileDaily = "40 3 * * *"
	CronArchiveSyncDaily    = "20 4 * * *"
)
