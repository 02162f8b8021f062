// Package context 拓展上下文功能，将日志、存储等集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/filegate/pkg/internal/storage"
	dbc "github.com/yeisme/filegate/pkg/internal/storage/db"
	"github.com/yeisme/filegate/pkg/internal/storage/disk"
	kvc "github.com/yeisme/filegate/pkg/internal/storage/kv"
	mqc "github.com/yeisme/filegate/pkg/internal/storage/mq"
	s3c "github.com/yeisme/filegate/pkg/internal/storage/s3"
	nlog "github.com/yeisme/filegate/pkg/log"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	RequestLoggerKey  ContextKey = "requestLogger"
	RequestIDKey      ContextKey = "requestID"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// GetS3Client 从 context 中获取归档客户端，未启用时为 nil.
func GetS3Client(ctx context.Context) *s3c.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetS3Client()
	}

	return nil
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetDiskStore 从 context 中获取磁盘内容存储.
func GetDiskStore(ctx context.Context) *disk.Store {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDiskStore()
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}

// WithRequestLogger 派生一次摄取调用的专属 logger，携带 request_id 关联标识，
// 生命周期随调用结束，替代进程级单例日志.
func WithRequestLogger(ctx context.Context) (context.Context, zerolog.Logger) {
	requestID := uuid.NewString()

	logger := WithTraceContext(ctx, nlog.Logger().With().Str("request_id", requestID).Logger())

	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	ctx = context.WithValue(ctx, RequestLoggerKey, logger)

	return ctx, logger
}

// GetRequestLogger 从 context 中获取请求级 logger，未设置时退回全局 logger.
func GetRequestLogger(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(RequestLoggerKey).(zerolog.Logger); ok {
		return logger
	}

	return *nlog.Logger()
}

// GetRequestID 从 context 中获取请求关联标识.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}

	return ""
}

// WithTraceContext 创建带有追踪上下文的logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		return logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}
