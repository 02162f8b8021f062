// Package disk 实现磁盘内容存储：暂存写入、原子提升、隔离移动、
// 幂等删除与用量扫描. 文件以碰撞安全的生成名落盘，内容摘要单独计算，
// 摘要不作为存储键.
package disk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yeisme/filegate/pkg/configs"
	"github.com/yeisme/filegate/pkg/internal/types"
	nlog "github.com/yeisme/filegate/pkg/log"
)

// Store 管理活动存储树、暂存目录与隔离区.
// 三者必须位于同一文件系统，rename 才具备原子性.
type Store struct {
	dataDir       string
	stagingDir    string
	quarantineDir string
	baseURL       string
}

// StagedFile 暂存写入的结果，尚未进入活动存储树.
type StagedFile struct {
	Path   string
	Size   int64
	Digest string
}

// New 按全局配置初始化磁盘存储，目录不存在时创建.
func New() (*Store, error) {
	cfg := configs.GetConfig().Store
	return NewWithConfig(&cfg)
}

// NewWithConfig 按给定配置初始化磁盘存储.
func NewWithConfig(cfg *configs.StoreConfig) (*Store, error) {
	s := &Store{
		dataDir:       cfg.AbsDataDir(),
		stagingDir:    cfg.StagingDir,
		quarantineDir: cfg.QuarantineDir,
		baseURL:       strings.TrimRight(cfg.PublicBaseURL, "/"),
	}

	for _, dir := range []string{s.dataDir, s.stagingDir, s.quarantineDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return s, nil
}

// Stage 将字节流写入暂存目录：temp 文件 → 写入 + SHA-256 → fsync → rename.
// 出错时清理 temp 文件，不留半成品.
func (s *Store) Stage(r io.Reader) (*StagedFile, error) {
	name := uuid.NewString()
	finalPath := filepath.Join(s.stagingDir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	hasher := sha256.New()
	tee := io.TeeReader(r, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)

		return nil, fmt.Errorf("write staging file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)

		return nil, fmt.Errorf("sync staging file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)

		return nil, fmt.Errorf("close staging file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)

		return nil, fmt.Errorf("rename staging file: %w", err)
	}

	return &StagedFile{
		Path:   finalPath,
		Size:   size,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Promote 将暂存文件原子移入活动存储树 user/category 目录.
// 存储名由时间戳 + 随机后缀生成，净化后的原始文件名只作展示元数据，
// 不参与存储键，避免碰撞与路径注入.
func (s *Store) Promote(staged *StagedFile, user, category, ext string) (*types.StoredFile, error) {
	// user/category 作为目录层级，再次兜底剥离路径成分
	dir := filepath.Join(s.dataDir, filepath.Base(user), filepath.Base(category))
	// 并发摄取共享同一目录，MkdirAll 对已存在目录不报错
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	name := storageName(ext)
	target := filepath.Join(dir, name)

	if err := os.Rename(staged.Path, target); err != nil {
		return nil, fmt.Errorf("promote staged file: %w", err)
	}

	relPath, err := filepath.Rel(s.dataDir, target)
	if err != nil {
		return nil, fmt.Errorf("relative storage path: %w", err)
	}

	relPath = filepath.ToSlash(relPath)

	return &types.StoredFile{
		Path:    target,
		RelPath: relPath,
		URL:     s.URLFor(relPath),
		Digest:  staged.Digest,
		Size:    staged.Size,
	}, nil
}

// storageName 生成碰撞安全的存储文件名.
func storageName(ext string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return time.Now().UTC().Format("20060102T150405") + "_" + suffix + ext
}

// Abs 由相对存储路径计算磁盘绝对路径.
func (s *Store) Abs(relPath string) string {
	return filepath.Join(s.dataDir, filepath.FromSlash(relPath))
}

// URLFor 由相对存储路径计算公开 URL.
func (s *Store) URLFor(relPath string) string {
	return s.baseURL + "/" + path.Clean(relPath)
}

// Delete 按相对路径删除活动树内的文件. 路径不存在不算错误，支持回滚重试.
func (s *Store) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}

	if err := os.Remove(s.Abs(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", relPath, err)
	}

	return nil
}

// Discard 删除暂存文件，幂等.
func (s *Store) Discard(staged *StagedFile) {
	if staged == nil {
		return
	}

	if err := os.Remove(staged.Path); err != nil && !os.IsNotExist(err) {
		nlog.Logger().Warn().Err(err).Str("path", staged.Path).Msg("discard staged file failed")
	}
}

// Quarantine 将文件原子移入隔离区，返回隔离后的路径.
// 移动而非复制后删除，避免感染内容出现短暂的双份窗口.
func (s *Store) Quarantine(absPath string) (string, error) {
	name := time.Now().UTC().Format("20060102T150405") + "_" + filepath.Base(absPath)
	target := filepath.Join(s.quarantineDir, name)

	if err := os.Rename(absPath, target); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", absPath, err)
	}

	return target, nil
}

// UsageBytes 扫描用户目录统计实际磁盘占用，作为配额账本的对账兜底.
func (s *Store) UsageBytes(user string) (int64, error) {
	root := filepath.Join(s.dataDir, filepath.Base(user))

	var total int64

	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		total += info.Size()

		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("scan usage for %s: %w", user, err)
	}

	return total, nil
}

// PurgeStaging 清理超过保留窗口的暂存文件（崩溃或被放弃的上传残留），
// 返回清理数量.
func (s *Store) PurgeStaging(retention time.Duration) (int, error) {
	entries, err := os.ReadDir(s.stagingDir)
	if err != nil {
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	purged := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().After(cutoff) {
			continue
		}

		p := filepath.Join(s.stagingDir, entry.Name())
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			nlog.Logger().Warn().Err(err).Str("path", p).Msg("purge staging file failed")

			continue
		}

		purged++
	}

	return purged, nil
}

// DataDir 返回活动存储树根目录.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Close 接口兼容，无实际资源.
func (s *Store) Close() error {
	return nil
}
