package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishFileIngested 发布 fg.file.ingested 事件。
// 在元数据提交后调用，通知下游流程（审计、通知、归档触发等）。
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishFileIngested(pub message.Publisher, payload FileIngestedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileIngested, payload.File.ID, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileIngested, msg)
}

// ParseFileIngested 将 Watermill 消息解析为强类型 Envelope（FileIngestedPayload）。
func ParseFileIngested(msg *message.Message) (Message[FileIngestedPayload], error) {
	return ParseWatermillMessage[FileIngestedPayload](msg)
}

// PublishFileRejected 发布 fg.file.rejected 事件。
func PublishFileRejected(pub message.Publisher, payload FileRejectedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileRejected, "", payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileRejected, msg)
}

// PublishFileQuarantined 发布 fg.file.quarantined 事件。
// 负载刻意不含隔离路径，隔离区永不对外暴露。
func PublishFileQuarantined(pub message.Publisher, payload FileQuarantinedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileQuarantined, payload.Digest, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileQuarantined, msg)
}

// PublishFileDeleted 发布 fg.file.deleted 事件。
func PublishFileDeleted(pub message.Publisher, payload FileDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileDeleted, payload.File.ID, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileDeleted, msg)
}

// ParseFileDeleted 将 Watermill 消息解析为强类型 Envelope（FileDeletedPayload）。
func ParseFileDeleted(msg *message.Message) (Message[FileDeletedPayload], error) {
	return ParseWatermillMessage[FileDeletedPayload](msg)
}

// PublishVariantDerived 发布 fg.variant.derived 事件。
func PublishVariantDerived(pub message.Publisher, payload VariantDerivedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicVariantDerived, payload.File.ID, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicVariantDerived, msg)
}

// PublishStagingPurged 发布 fg.staging.purged 事件。
func PublishStagingPurged(pub message.Publisher, payload StagingPurgedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicStagingPurged, payload.RanAt.Format("20060102T150405"), payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicStagingPurged, msg)
}
