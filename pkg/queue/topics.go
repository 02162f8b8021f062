// Package queue 定义摄取事件的主题常量，供发布/订阅使用.
package queue

// 主题命名规范：fg.<域>.<动作>，尽量稳定且向后兼容.
// 域：file(文件生命周期)、variant(派生变体)、staging(暂存维护)
// 动作：过去式表已发生事实（ingested/rejected/quarantined/deleted/derived/purged）
//
// 所有事件都在元数据提交之后以 best-effort 方式发布，
// 发布失败只记日志，绝不回滚已提交的摄取.

const (
	// 文件生命周期领域.
	TopicFileIngested    = "fg.file.ingested"    // 摄取成功，元数据已提交
	TopicFileRejected    = "fg.file.rejected"    // 校验或配额拒绝，无任何落盘残留
	TopicFileQuarantined = "fg.file.quarantined" // 扫描命中，文件已移入隔离区
	TopicFileDeleted     = "fg.file.deleted"     // 用户删除，记录与物理文件均已移除

	// 派生变体领域.
	TopicVariantDerived = "fg.variant.derived" // 图片变体生成完成

	// 暂存维护领域.
	TopicStagingPurged = "fg.staging.purged" // 定时清理过期暂存文件完成
)

// FileTopics 文件生命周期相关主题集合.
var FileTopics = []string{
	TopicFileIngested, TopicFileRejected,
	TopicFileQuarantined, TopicFileDeleted,
}
