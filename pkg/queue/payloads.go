package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，通常取摄取的 request_id.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 标识一条已提交的文件记录.
type FileRef struct {
	ID          string `json:"id"`
	User        string `json:"user"`
	Category    string `json:"category,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Digest      string `json:"digest,omitempty"`
}

// FileIngestedPayload 摄取成功，元数据已提交.
type FileIngestedPayload struct {
	File     FileRef `json:"file"`
	FileName string  `json:"file_name,omitempty"`
	URL      string  `json:"url,omitempty"`
	// VariantPath 派生变体路径，无变体时为空
	VariantPath string `json:"variant_path,omitempty"`
}

// FileRejectedPayload 校验或配额拒绝. 只携带分类，不泄露内部细节.
type FileRejectedPayload struct {
	User     string `json:"user"`
	Category string `json:"category,omitempty"`
	FileName string `json:"file_name,omitempty"`
	// Kind 错误分类（VALIDATION / QUOTA_EXCEEDED / ...）
	Kind string `json:"kind"`
}

// FileQuarantinedPayload 扫描命中，文件已移入隔离区.
// 不携带隔离路径，隔离区永不对外暴露.
type FileQuarantinedPayload struct {
	User     string `json:"user"`
	Category string `json:"category,omitempty"`
	Digest   string `json:"digest,omitempty"`
	// Source 判定来源（heuristic 或 engine）
	Source string `json:"source,omitempty"`
}

// FileDeletedPayload 用户删除完成.
type FileDeletedPayload struct {
	File FileRef `json:"file"`
}

// VariantDerivedPayload 图片变体生成完成.
type VariantDerivedPayload struct {
	File        FileRef `json:"file"`
	VariantPath string  `json:"variant_path"`
	// Sizes 多尺寸派生时给出各档路径，键为档位名
	Sizes map[string]string `json:"sizes,omitempty"`
}

// StagingPurgedPayload 定时清理过期暂存文件完成.
type StagingPurgedPayload struct {
	Purged    int       `json:"purged"`
	Retention string    `json:"retention"`
	RanAt     time.Time `json:"ran_at"`
}
