package types

import "time"

// StoredFile 内容存储写入成功后的描述，由 ContentStore 产生.
type StoredFile struct {
	// Path 磁盘绝对路径
	Path string `json:"path"`
	// RelPath 活动存储树内的相对路径，作为记录的存储键
	RelPath string `json:"rel_path"`
	URL     string `json:"url"`
	Digest  string `json:"digest"`
	Size    int64  `json:"size"`
}

// IngestResult 摄取成功后返回给调用方的结果.
type IngestResult struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	URL         string    `json:"url"`
	VariantURL  string    `json:"variant_url,omitempty"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Digest      string    `json:"digest"`
	Category    string    `json:"category"`
	User        string    `json:"user"`
	CreatedAt   time.Time `json:"created_at"`
}

// FileInfo 文件列表与查询使用的展示结构.
type FileInfo struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	URL         string    `json:"url"`
	VariantURL  string    `json:"variant_url,omitempty"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Digest      string    `json:"digest"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// PreferredURL 返回带宽友好的服务地址：有变体用变体，否则回退原图.
func (f *FileInfo) PreferredURL() string {
	if f.VariantURL != "" {
		return f.VariantURL
	}

	return f.URL
}

// PreferredURL 同 FileInfo.PreferredURL.
func (r *IngestResult) PreferredURL() string {
	if r.VariantURL != "" {
		return r.VariantURL
	}

	return r.URL
}

// QuotaStatus 配额查询结果.
type QuotaStatus struct {
	User       string `json:"user"`
	UsedBytes  int64  `json:"used_bytes"`
	QuotaBytes int64  `json:"quota_bytes"`
	// DiskBytes 目录扫描得到的实际磁盘占用，用于对账
	DiskBytes int64 `json:"disk_bytes,omitempty"`
}
