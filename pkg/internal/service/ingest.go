package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid"
	"github.com/rs/zerolog"

	"github.com/yeisme/filegate/pkg/apperrors"
	"github.com/yeisme/filegate/pkg/configs"
	ctxPkg "github.com/yeisme/filegate/pkg/context"
	"github.com/yeisme/filegate/pkg/internal/model"
	dbc "github.com/yeisme/filegate/pkg/internal/storage/db"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
	mqc "github.com/yeisme/filegate/pkg/internal/storage/mq"
	"github.com/yeisme/filegate/pkg/internal/types"
	"github.com/yeisme/filegate/pkg/metrics"
	"github.com/yeisme/filegate/pkg/tracing"
)

// IngestState 摄取状态机的状态.
type IngestState string

const (
	StateValidating    IngestState = "validating"
	StateScanning      IngestState = "scanning"
	StateQuotaChecking IngestState = "quota_checking"
	StateWriting       IngestState = "writing"
	StateDeriving      IngestState = "deriving"
	StateCommitting    IngestState = "committing"
	StateDone          IngestState = "done"
	StateFailed        IngestState = "failed"
	StateQuarantined   IngestState = "quarantined"
)

// IngestionOrchestrator 把校验、扫描、配额、写入、派生编排为一条同步管线.
// 元数据提交（createRecord）是最后一步，也是唯一的提交点；
// 任何阶段失败都按进度做补偿清理后再上抛类型化错误.
// 管线不可断点续传：失败的摄取由调用方重新提交原始字节.
type IngestionOrchestrator struct {
	validator Validator
	screener  Screener
	quota     Quota
	store     *disk.Store
	deriver   Deriver
	db        *dbc.Client
	// mq 事件未启用时为 nil，事件全部 best-effort
	mq          *mqc.Client
	strictQuota bool
}

// NewIngestionOrchestrator 显式注入各阶段，进程启动时装配一次.
func NewIngestionOrchestrator(
	validator Validator,
	screener Screener,
	quota Quota,
	store *disk.Store,
	deriver Deriver,
	db *dbc.Client,
	mq *mqc.Client,
) *IngestionOrchestrator {
	return &IngestionOrchestrator{
		validator:   validator,
		screener:    screener,
		quota:       quota,
		store:       store,
		deriver:     deriver,
		db:          db,
		mq:          mq,
		strictQuota: configs.GetConfig().Ingest.StrictQuota,
	}
}

// NewPipeline 从 context 中的存储管理器与全局配置装配整条管线.
func NewPipeline(ctx context.Context) *IngestionOrchestrator {
	cfg := configs.GetConfig()
	diskStore := ctxPkg.GetDiskStore(ctx)
	db := ctxPkg.GetDBClient(ctx)

	screener := NewMalwareScreener(
		EngineFromConfig(&cfg.Scan),
		diskStore,
		scanVerdictCache(ctx, &cfg.Scan),
		cfg.Scan.CacheTTL(),
	)

	return NewIngestionOrchestrator(
		NewContentValidator(),
		screener,
		NewQuotaLedger(db, diskStore, cfg.Ingest.UserQuotaBytes),
		diskStore,
		NewVariantDeriver(),
		db,
		ctxPkg.GetMQClient(ctx),
	)
}

// Ingest 执行一次完整摄取. 成功返回已提交的结果；
// 失败返回类型化错误，且活动存储树无任何残留字节.
func (o *IngestionOrchestrator) Ingest(ctx context.Context, req *types.UploadRequest) (*types.IngestResult, error) {
	ctx, logger := ctxPkg.WithRequestLogger(ctx)

	ctx, span := tracing.StartSpan(ctx, "ingest")
	defer span.End()

	// Validating：无副作用，失败即直接上报
	start := time.Now()
	verdict := o.validator.Validate(req)
	metrics.ObserveStage(string(StateValidating), start)

	if !verdict.Accepted {
		logger.Info().Str("reason", verdict.Reason).Str("user", req.User).Msg("validation rejected")
		metrics.IngestCounter.WithLabelValues(metrics.OutcomeValidation).Inc()
		o.publishRejected(ctx, req, apperrors.KindValidation)

		return nil, apperrors.New(apperrors.KindValidation, verdict.Reason)
	}

	// 字节先落暂存目录（非活动树），扫描在暂存路径上进行，
	// 配额检查先于任何进入活动树的写入
	staged, err := o.store.Stage(bytes.NewReader(req.Data))
	if err != nil {
		metrics.IngestCounter.WithLabelValues(metrics.OutcomeStorage).Inc()

		return nil, apperrors.Wrap(err, apperrors.KindStorageFailure, "stage upload")
	}

	// Scanning
	start = time.Now()
	scan := o.screener.Scan(ctx, staged.Path, staged.Digest, verdict.DetectedMIME)
	metrics.ObserveStage(string(StateScanning), start)

	if !scan.Clean {
		// 读不到暂存文件是基础设施错误，丢弃暂存而非隔离
		if scan.StorageErr {
			o.store.Discard(staged)
			metrics.IngestCounter.WithLabelValues(metrics.OutcomeStorage).Inc()

			return nil, apperrors.New(apperrors.KindStorageFailure, scan.Reason)
		}

		return nil, o.quarantineStaged(ctx, req, staged, scan)
	}

	// QuotaChecking（严格模式下以用户粒度串行化 检查+写入）
	if o.strictQuota {
		if locker, ok := o.quota.(interface{ LockUser(string) func() }); ok {
			unlock := locker.LockUser(req.User)
			defer unlock()
		}
	}

	start = time.Now()
	err = o.quota.CheckQuota(ctx, req.User, staged.Size)
	metrics.ObserveStage(string(StateQuotaChecking), start)

	if err != nil {
		o.store.Discard(staged)

		if apperrors.IsKind(err, apperrors.KindQuotaExceeded) {
			logger.Info().Str("user", req.User).Int64("size", staged.Size).Msg("quota exceeded")
			metrics.IngestCounter.WithLabelValues(metrics.OutcomeQuota).Inc()
			o.publishRejected(ctx, req, apperrors.KindQuotaExceeded)
		} else {
			metrics.IngestCounter.WithLabelValues(metrics.OutcomeStorage).Inc()
		}

		return nil, err
	}

	// 调用方在提交前取消时走干净中止：丢弃暂存，不进活动树.
	// 提交之后的取消是 no-op（记录已存在）.
	if ctxErr := ctx.Err(); ctxErr != nil {
		o.store.Discard(staged)
		metrics.IngestCounter.WithLabelValues(metrics.OutcomeStorage).Inc()

		return nil, apperrors.Wrap(ctxErr, apperrors.KindInternal, "ingest canceled before write")
	}

	// Writing：原子提升进活动树
	start = time.Now()
	stored, err := o.store.Promote(staged, req.User, req.Category, extFor(verdict))
	metrics.ObserveStage(string(StateWriting), start)

	if err != nil {
		o.store.Discard(staged)
		metrics.IngestCounter.WithLabelValues(metrics.OutcomeStorage).Inc()

		return nil, apperrors.Wrap(err, apperrors.KindStorageFailure, "promote upload")
	}

	// Deriving（仅图片，失败非致命，原图兜底）
	variantRel := ""

	if verdict.IsImage && !strings.HasSuffix(verdict.DetectedMIME, "svg+xml") {
		start = time.Now()

		if _, derr := o.deriver.DeriveWebVariant(stored.Path); derr != nil {
			logger.Warn().Err(derr).Str("path", stored.RelPath).Msg("variant derivation failed, serving original")
			metrics.VariantCounter.WithLabelValues("failed").Inc()
		} else {
			variantRel = variantName(stored.RelPath, "")
		}

		metrics.ObserveStage(string(StateDeriving), start)
	}

	// Committing：唯一一次 createRecord，之后再无可回滚的动作
	record := &model.FileRecord{
		ID:          newULID(),
		User:        req.User,
		Category:    req.Category,
		FileName:    verdict.SanitizedName,
		StoragePath: stored.RelPath,
		VariantPath: variantRel,
		URL:         stored.URL,
		ContentType: verdict.DetectedMIME,
		Size:        stored.Size,
		Digest:      stored.Digest,
	}

	start = time.Now()
	err = o.db.GetDB().WithContext(ctx).Create(record).Error
	metrics.ObserveStage(string(StateCommitting), start)

	if err != nil {
		// 提交失败补偿：删除已写入的字节与变体，补偿失败只记日志，不掩盖原错误
		o.compensate(logger, stored.RelPath, variantRel)
		metrics.IngestCounter.WithLabelValues(metrics.OutcomeStorage).Inc()

		return nil, apperrors.Wrap(err, apperrors.KindStorageFailure, "commit metadata")
	}

	// Done：提交之后的一切都是 best-effort，绝不回滚已提交的记录
	metrics.IngestCounter.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.StoredBytes.Add(float64(stored.Size))

	logger.Info().
		Str("id", record.ID).
		Str("user", req.User).
		Str("path", stored.RelPath).
		Int64("size", stored.Size).
		Msg("file ingested")

	o.publishIngested(ctx, record)

	if record.VariantPath != "" {
		o.publishVariantDerived(ctx, record)
	}

	result := &types.IngestResult{
		ID:          record.ID,
		FileName:    record.FileName,
		URL:         record.URL,
		ContentType: record.ContentType,
		Size:        record.Size,
		Digest:      record.Digest,
		Category:    record.Category,
		User:        record.User,
		CreatedAt:   record.CreatedAt,
	}
	if variantRel != "" {
		result.VariantURL = o.store.URLFor(variantRel)
	}

	return result, nil
}

// quarantineStaged 处理扫描命中：原子移入隔离区，无元数据记录，
// 对调用方只暴露通用拒绝信息.
func (o *IngestionOrchestrator) quarantineStaged(
	ctx context.Context,
	req *types.UploadRequest,
	staged *disk.StagedFile,
	scan *types.ScanVerdict,
) error {
	qPath, err := o.screener.Quarantine(staged.Path)
	if err != nil {
		// 隔离失败也不能让感染文件留在暂存区
		o.store.Discard(staged)
	}

	logger := ctxPkg.GetRequestLogger(ctx)
	logger.Warn().
		Str("user", req.User).
		Str("source", scan.Source).
		Str("reason", scan.Reason).
		Str("quarantine_path", qPath).
		Msg("file quarantined")

	metrics.IngestCounter.WithLabelValues(metrics.OutcomeQuarantined).Inc()
	metrics.QuarantineCounter.WithLabelValues(scan.Source).Inc()

	o.publishQuarantined(ctx, req, staged.Digest, scan.Source)

	return apperrors.New(apperrors.KindSecurityRejection, "malicious content detected")
}

// compensate 提交失败后的清理，删除已进入活动树的字节与变体.
func (o *IngestionOrchestrator) compensate(logger zerolog.Logger, storedRel, variantRel string) {
	if err := o.store.Delete(storedRel); err != nil {
		logger.Warn().Err(err).Str("path", storedRel).Msg("compensation delete failed")
	}

	if variantRel != "" {
		if err := o.store.Delete(variantRel); err != nil {
			logger.Warn().Err(err).Str("path", variantRel).Msg("compensation variant delete failed")
		}
	}
}

// newULID 生成按时间有序的记录 ID.
func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// extFor 决定存储文件的扩展名：优先净化名里的扩展名，否则按嗅探类型推断.
func extFor(verdict *types.ValidationVerdict) string {
	if ext := path.Ext(verdict.SanitizedName); ext != "" {
		return strings.ToLower(ext)
	}

	mt := verdict.DetectedMIME
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	if ext, ok := mimeExtensions[mt]; ok {
		return ext
	}

	return ".bin"
}

// mimeExtensions 白名单类型到扩展名的映射.
var mimeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
}
