package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // 注册 WebP 解码器

	"github.com/yeisme/filegate/pkg/configs"
	"github.com/yeisme/filegate/pkg/internal/types"
)

// MaxFileNameLen 净化后文件名的长度上限.
const MaxFileNameLen = 128

// ContentValidator 校验上传内容：大小上限、类型嗅探白名单、
// 文件名净化与图片尺寸兜底. 声明的 MIME 与文件名一律不信任.
type ContentValidator struct {
	maxFileBytes   int64
	maxImageBytes  int64
	maxImagePixels int
	allowedTypes   []string
}

// NewContentValidator 按全局配置创建校验器.
func NewContentValidator() *ContentValidator {
	cfg := configs.GetConfig().Ingest
	return NewContentValidatorWith(&cfg)
}

// NewContentValidatorWith 按给定配置创建校验器.
func NewContentValidatorWith(cfg *configs.IngestConfig) *ContentValidator {
	return &ContentValidator{
		maxFileBytes:   cfg.MaxFileBytes,
		maxImageBytes:  cfg.MaxImageBytes,
		maxImagePixels: cfg.MaxImagePixels,
		allowedTypes:   cfg.AllowedTypes,
	}
}

// Validate 检查一次上传请求，产出校验结论. 不产生任何副作用.
func (v *ContentValidator) Validate(req *types.UploadRequest) *types.ValidationVerdict {
	if len(req.Data) == 0 {
		return reject("empty file")
	}

	// 嗅探真实类型，声明类型只作日志参考
	mtype := mimetype.Detect(req.Data)
	detected := mtype.String()
	isImage := strings.HasPrefix(detected, "image/")

	// 图片与通用内容使用不同的大小上限，图片更低以约束转码成本
	limit := v.maxFileBytes
	if isImage {
		limit = v.maxImageBytes
	}

	if int64(len(req.Data)) > limit {
		return reject(fmt.Sprintf("file too large: %d bytes (limit %d)", len(req.Data), limit))
	}

	if !v.typeAllowed(mtype, req.AllowedTypes) {
		return reject(fmt.Sprintf("type not allowed: %s", detected))
	}

	name := SanitizeFileName(req.DeclaredName)
	if name == "" {
		return reject("unusable file name")
	}

	// 可栅格化的图片类型检查像素边界，约束下游转码成本.
	// SVG 无像素概念，由扫描阶段负责其脚本注入检查.
	if isImage && !mtype.Is("image/svg+xml") {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(req.Data))
		if err != nil {
			return reject("malformed image header")
		}

		if cfg.Width > v.maxImagePixels || cfg.Height > v.maxImagePixels {
			return reject(fmt.Sprintf("image dimensions %dx%d exceed limit %d", cfg.Width, cfg.Height, v.maxImagePixels))
		}
	}

	return &types.ValidationVerdict{
		Accepted:      true,
		DetectedMIME:  detected,
		SanitizedName: name,
		IsImage:       isImage,
	}
}

// reject 构造拒绝结论.
func reject(reason string) *types.ValidationVerdict {
	return &types.ValidationVerdict{Reason: reason}
}

// typeAllowed 检查嗅探类型是否同时落在全局安全白名单与调用方白名单内.
func (v *ContentValidator) typeAllowed(mtype *mimetype.MIME, callerAllowed []string) bool {
	inGlobal := false

	for _, t := range v.allowedTypes {
		if mtype.Is(t) {
			inGlobal = true

			break
		}
	}

	if !inGlobal {
		return false
	}

	if len(callerAllowed) == 0 {
		return true
	}

	for _, t := range callerAllowed {
		if mtype.Is(t) {
			return true
		}
	}

	return false
}

// SanitizeFileName 净化调用方声明的文件名：剥离路径成分、
// 去除控制字符与目录穿越序列，并截断到长度上限.
// 净化结果只作展示元数据，永远不作为存储键.
func SanitizeFileName(name string) string {
	// 两种分隔符都剥掉，只留最后一段
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder

	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}

		b.WriteRune(r)
	}

	name = b.String()

	// 目录穿越序列整体移除
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "")
	}

	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return ""
	}

	if len(name) > MaxFileNameLen {
		// 截断时尽量保留扩展名
		ext := ""
		if i := strings.LastIndex(name, "."); i > 0 && len(name)-i <= 16 {
			ext = name[i:]
		}

		// 截断点退到 rune 边界，避免产出无效 UTF-8
		keep := MaxFileNameLen - len(ext)
		for keep > 0 && !utf8.RuneStart(name[keep]) {
			keep--
		}

		name = name[:keep] + ext
	}

	return name
}
