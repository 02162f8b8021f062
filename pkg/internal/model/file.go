// Package model 定义元数据存储的 GORM 模型.
package model

import (
	"time"
)

// FileRecord 文件元数据记录，仅在摄取管线全部阶段成功后创建（提交点）.
// 不变式：记录引用的存储路径必然存在；校验或扫描失败的文件永远不会产生记录.
// 删除为硬删除，由调用方级联清理物理文件.
type FileRecord struct {
	// ID ULID，按时间有序
	ID string `gorm:"primaryKey;size:26" json:"id"`
	// User 列名用 user_id，避开 PostgreSQL 的 user 保留字
	User string `gorm:"column:user_id;size:255;index:idx_user_cat" json:"user"`
	// Category 自由文本分类标签，和 User 一起构成存储树的目录层级
	Category string `gorm:"size:128;index:idx_user_cat" json:"category"`
	// FileName 净化后的原始文件名，仅作展示元数据，不作存储键
	FileName string `gorm:"size:512" json:"file_name"`
	// StoragePath 原始文件在活动存储树内的相对路径
	StoragePath string `gorm:"size:1024" json:"storage_path"`
	// VariantPath 派生变体的相对路径，无变体时为空.
	// 原始与变体的区分显式建模，URL 的选择权归调用方.
	VariantPath string `gorm:"size:1024"      json:"variant_path"`
	URL         string `gorm:"size:1024"      json:"url"`
	ContentType string `gorm:"size:255;index" json:"content_type"`
	Size        int64  `gorm:"index"          json:"size"`
	// Digest 内容的十六进制 SHA-256 摘要，用于完整性校验与未来去重
	Digest    string    `gorm:"size:64;index" json:"digest"`
	CreatedAt time.Time `gorm:"index"         json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名.
func (FileRecord) TableName() string {
	return "file_records"
}
