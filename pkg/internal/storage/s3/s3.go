// Package s3 提供可选的归档存储层：已提交的原始文件由定时任务镜像到对象存储.
// 归档属于 best-effort，不参与摄取流水线的提交路径.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/filegate/pkg/configs"
	nlog "github.com/yeisme/filegate/pkg/log"
)

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client

	bucket string
	prefix string
}

// New 初始化 MinIO 客户端，若归档 bucket 不存在则尝试创建.
// 归档未启用时返回 nil Client，调用方需判空.
func New(ctx context.Context) (*Client, error) {
	cfg := configs.GetConfig().S3
	if !cfg.Enabled {
		return nil, nil
	}

	endpoint := cfg.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("filegate", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.Bucket).Msg("archive bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("archive storage connected")

	return &Client{Client: cli, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// objectName 由相对存储路径计算归档对象名.
func (c *Client) objectName(relPath string) string {
	return path.Join(c.prefix, relPath)
}

// ArchiveFile 上传本地文件到归档 bucket. relPath 为存储树内的相对路径，
// 同时作为对象名，保持与磁盘布局一致.
func (c *Client) ArchiveFile(ctx context.Context, localPath, relPath, contentType string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	_, err = c.FPutObject(ctx, c.bucket, c.objectName(relPath), localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", relPath, err)
	}

	nlog.Logger().Debug().Str("object", c.objectName(relPath)).Int64("size", info.Size()).Msg("file archived")

	return nil
}

// Archived 判断对象是否已归档.
func (c *Client) Archived(ctx context.Context, relPath string) (bool, error) {
	_, err := c.StatObject(ctx, c.bucket, c.objectName(relPath), minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// RemoveArchived 删除归档对象. 对象不存在不算错误.
func (c *Client) RemoveArchived(ctx context.Context, relPath string) error {
	return c.RemoveObject(ctx, c.bucket, c.objectName(relPath), minio.RemoveObjectOptions{})
}

// HealthCheck 简单的健康检查，通过列出桶来验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListBuckets(ctx)
	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}
