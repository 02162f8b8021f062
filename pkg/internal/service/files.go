package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yeisme/filegate/pkg/apperrors"
	"github.com/yeisme/filegate/pkg/configs"
	ctxPkg "github.com/yeisme/filegate/pkg/context"
	"github.com/yeisme/filegate/pkg/internal/model"
	dbc "github.com/yeisme/filegate/pkg/internal/storage/db"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
	mqc "github.com/yeisme/filegate/pkg/internal/storage/mq"
	"github.com/yeisme/filegate/pkg/internal/types"
	"github.com/yeisme/filegate/pkg/queue"
)

// FileService 已提交记录的查询与删除. 所有操作以调用方身份为界：
// 不存在与不属于调用方刻意不可区分，避免泄露他人文件的存在性.
type FileService struct {
	db   *dbc.Client
	disk *disk.Store
	mq   *mqc.Client
}

// NewFileService 从 context 中的存储管理器装配.
func NewFileService(ctx context.Context) *FileService {
	return &FileService{
		db:   ctxPkg.GetDBClient(ctx),
		disk: ctxPkg.GetDiskStore(ctx),
		mq:   ctxPkg.GetMQClient(ctx),
	}
}

// findOwned 查找调用方拥有的记录. 缺失与越权统一返回 NotFoundOrForbidden.
func (fs *FileService) findOwned(ctx context.Context, user, id string) (*model.FileRecord, error) {
	var record model.FileRecord

	err := fs.db.GetDB().WithContext(ctx).
		Where("id = ? AND user_id = ?", id, user).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFoundOrForbidden, "record not found or not owned")
		}

		return nil, apperrors.Wrap(err, apperrors.KindStorageFailure, "find record")
	}

	return &record, nil
}

// Get 按 ID 查询调用方拥有的文件.
func (fs *FileService) Get(ctx context.Context, user, id string) (*types.FileInfo, error) {
	record, err := fs.findOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	return fs.infoOf(record), nil
}

// List 列出调用方的文件，category 为空时不过滤分类.
func (fs *FileService) List(ctx context.Context, user, category string) ([]types.FileInfo, error) {
	q := fs.db.GetDB().WithContext(ctx).
		Model(&model.FileRecord{}).
		Where("user_id = ?", user).
		Order("created_at DESC")

	if category != "" {
		q = q.Where("category = ?", category)
	}

	var records []model.FileRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindStorageFailure, "list records")
	}

	infos := make([]types.FileInfo, 0, len(records))
	for i := range records {
		infos = append(infos, *fs.infoOf(&records[i]))
	}

	return infos, nil
}

// Delete 删除调用方拥有的文件：先删记录（此后公开 URL 立即 404），
// 再 best-effort 清理物理文件与变体. 重复删除同一 ID 第二次返回
// NotFoundOrForbidden.
func (fs *FileService) Delete(ctx context.Context, user, id string) error {
	record, err := fs.findOwned(ctx, user, id)
	if err != nil {
		return err
	}

	if err := fs.db.GetDB().WithContext(ctx).Delete(&model.FileRecord{}, "id = ?", record.ID).Error; err != nil {
		return apperrors.Wrap(err, apperrors.KindStorageFailure, "delete record")
	}

	logger := ctxPkg.GetRequestLogger(ctx)

	// 物理清理幂等：路径已不存在不算错误
	if err := fs.disk.Delete(record.StoragePath); err != nil {
		logger.Warn().Err(err).Str("path", record.StoragePath).Msg("delete stored bytes failed")
	}

	if record.VariantPath != "" {
		if err := fs.disk.Delete(record.VariantPath); err != nil {
			logger.Warn().Err(err).Str("path", record.VariantPath).Msg("delete variant failed")
		}
	}

	fs.publishDeleted(ctx, record)

	return nil
}

// Quota 返回调用方的配额状态（账本用量 + 磁盘对账值）.
func (fs *FileService) Quota(ctx context.Context, user string) (*types.QuotaStatus, error) {
	ledger := NewQuotaLedger(fs.db, fs.disk, configs.GetConfig().Ingest.UserQuotaBytes)
	return ledger.Status(ctx, user)
}

// publishDeleted 发布删除事件，best-effort.
func (fs *FileService) publishDeleted(ctx context.Context, record *model.FileRecord) {
	if fs.mq == nil || !configs.GetConfig().Events.File.Deleted {
		return
	}

	payload := queue.FileDeletedPayload{File: fileRefOf(record)}

	msg, err := queue.NewWatermillMessage(queue.TopicFileDeleted, record.ID, payload,
		queue.WithTraceID(ctxPkg.GetRequestID(ctx)))
	if err == nil {
		err = fs.mq.Publish(ctx, queue.TopicFileDeleted, msg)
	}

	if err != nil {
		logger := ctxPkg.GetRequestLogger(ctx)
		logger.Warn().Err(err).Msg("publish deleted event failed")
	}
}

// infoOf 构建展示结构，变体存在时一并给出变体 URL.
func (fs *FileService) infoOf(record *model.FileRecord) *types.FileInfo {
	info := &types.FileInfo{
		ID:          record.ID,
		FileName:    record.FileName,
		URL:         record.URL,
		ContentType: record.ContentType,
		Size:        record.Size,
		Digest:      record.Digest,
		Category:    record.Category,
		CreatedAt:   record.CreatedAt,
	}
	if record.VariantPath != "" {
		info.VariantURL = fs.disk.URLFor(record.VariantPath)
	}

	return info
}
