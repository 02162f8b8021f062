package service

import (
	"context"

	"github.com/yeisme/filegate/pkg/apperrors"
	"github.com/yeisme/filegate/pkg/configs"
	ctxPkg "github.com/yeisme/filegate/pkg/context"
	"github.com/yeisme/filegate/pkg/internal/model"
	"github.com/yeisme/filegate/pkg/internal/types"
	"github.com/yeisme/filegate/pkg/queue"
)

// 事件发布全部 best-effort：发布失败只记日志，永远不影响已完成的摄取或删除.

// publishIngested 发布摄取成功事件.
func (o *IngestionOrchestrator) publishIngested(ctx context.Context, record *model.FileRecord) {
	if o.mq == nil || !configs.GetConfig().Events.File.Ingested {
		return
	}

	payload := queue.FileIngestedPayload{
		File:        fileRefOf(record),
		FileName:    record.FileName,
		URL:         record.URL,
		VariantPath: record.VariantPath,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicFileIngested, record.ID, payload,
		queue.WithTraceID(ctxPkg.GetRequestID(ctx)))
	if err == nil {
		err = o.mq.Publish(ctx, queue.TopicFileIngested, msg)
	}

	if err != nil {
		logger := ctxPkg.GetRequestLogger(ctx)
		logger.Warn().Err(err).Msg("publish ingested event failed")
	}
}

// publishRejected 发布拒绝事件（校验或配额），只携带错误分类.
func (o *IngestionOrchestrator) publishRejected(ctx context.Context, req *types.UploadRequest, kind apperrors.Kind) {
	if o.mq == nil || !configs.GetConfig().Events.File.Rejected {
		return
	}

	payload := queue.FileRejectedPayload{
		User:     req.User,
		Category: req.Category,
		FileName: SanitizeFileName(req.DeclaredName),
		Kind:     string(kind),
	}

	msg, err := queue.NewWatermillMessage(queue.TopicFileRejected, "", payload,
		queue.WithTraceID(ctxPkg.GetRequestID(ctx)))
	if err == nil {
		err = o.mq.Publish(ctx, queue.TopicFileRejected, msg)
	}

	if err != nil {
		logger := ctxPkg.GetRequestLogger(ctx)
		logger.Warn().Err(err).Msg("publish rejected event failed")
	}
}

// publishQuarantined 发布隔离事件. 负载不含隔离路径.
func (o *IngestionOrchestrator) publishQuarantined(ctx context.Context, req *types.UploadRequest, digest, source string) {
	if o.mq == nil || !configs.GetConfig().Events.File.Quarantined {
		return
	}

	payload := queue.FileQuarantinedPayload{
		User:     req.User,
		Category: req.Category,
		Digest:   digest,
		Source:   source,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicFileQuarantined, digest, payload,
		queue.WithTraceID(ctxPkg.GetRequestID(ctx)))
	if err == nil {
		err = o.mq.Publish(ctx, queue.TopicFileQuarantined, msg)
	}

	if err != nil {
		logger := ctxPkg.GetRequestLogger(ctx)
		logger.Warn().Err(err).Msg("publish quarantined event failed")
	}
}

// publishVariantDerived 发布变体生成事件.
func (o *IngestionOrchestrator) publishVariantDerived(ctx context.Context, record *model.FileRecord) {
	if o.mq == nil || !configs.GetConfig().Events.File.VariantDerived {
		return
	}

	payload := queue.VariantDerivedPayload{
		File:        fileRefOf(record),
		VariantPath: record.VariantPath,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicVariantDerived, record.ID, payload,
		queue.WithTraceID(ctxPkg.GetRequestID(ctx)))
	if err == nil {
		err = o.mq.Publish(ctx, queue.TopicVariantDerived, msg)
	}

	if err != nil {
		logger := ctxPkg.GetRequestLogger(ctx)
		logger.Warn().Err(err).Msg("publish variant derived event failed")
	}
}

// fileRefOf 由记录构建事件引用.
func fileRefOf(record *model.FileRecord) queue.FileRef {
	return queue.FileRef{
		ID:          record.ID,
		User:        record.User,
		Category:    record.Category,
		StoragePath: record.StoragePath,
		ContentType: record.ContentType,
		Size:        record.Size,
		Digest:      record.Digest,
	}
}
