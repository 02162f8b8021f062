package service

import (
	"fmt"
	"image"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 注册 WebP 解码器

	"github.com/yeisme/filegate/pkg/apperrors"
	nlog "github.com/yeisme/filegate/pkg/log"
	"github.com/yeisme/filegate/pkg/metrics"
)

// VariantSize 变体档位.
type VariantSize struct {
	Name   string
	Width  int
	Height int
}

// 预定义档位.
var (
	SizeThumbnail = VariantSize{Name: "thumbnail", Width: 150, Height: 150}
	SizeSmall     = VariantSize{Name: "small", Width: 400, Height: 400}
	SizeMedium    = VariantSize{Name: "medium", Width: 800, Height: 800}
	SizeLarge     = VariantSize{Name: "large", Width: 1600, Height: 1600}
)

// DefaultWebPQuality 有损 WebP 编码质量.
const DefaultWebPQuality = 80

// VariantDeriver 为已落盘的图片派生带宽友好的变体.
// 变体写在原图旁（同 stem、.webp 后缀），原图保留作溯源；
// 重新编码天然剥离 EXIF 等嵌入元数据. 全部失败均不阻塞摄取.
type VariantDeriver struct {
	quality float32
}

// NewVariantDeriver 创建派生器.
func NewVariantDeriver() *VariantDeriver {
	return &VariantDeriver{quality: DefaultWebPQuality}
}

// DeriveWebVariant 把原图重编码为有损 WebP，写在同目录下（同 stem、.webp 后缀）.
// 返回变体的绝对路径.
func (d *VariantDeriver) DeriveWebVariant(storedPath string) (string, error) {
	img, err := decodeImageFile(storedPath)
	if err != nil {
		return "", err
	}

	variantPath := variantName(storedPath, "")

	if err := d.encodeWebP(img, variantPath); err != nil {
		return "", err
	}

	return variantPath, nil
}

// Thumbnail 生成指定边长的方形缩略变体.
func (d *VariantDeriver) Thumbnail(storedPath string, size int) (string, error) {
	img, err := decodeImageFile(storedPath)
	if err != nil {
		return "", err
	}

	resized := resizeToFit(img, size, size)
	variantPath := variantName(storedPath, fmt.Sprintf("_thumb%d", size))

	if err := d.encodeWebP(resized, variantPath); err != nil {
		return "", err
	}

	return variantPath, nil
}

// MultiSize 一次派生全部预定义档位，返回档位名到变体路径的映射.
// original 档位指向原图自身.
func (d *VariantDeriver) MultiSize(storedPath string) (map[string]string, error) {
	img, err := decodeImageFile(storedPath)
	if err != nil {
		return nil, err
	}

	out := map[string]string{"original": storedPath}

	for _, size := range []VariantSize{SizeLarge, SizeMedium, SizeSmall, SizeThumbnail} {
		resized := resizeToFit(img, size.Width, size.Height)
		variantPath := variantName(storedPath, "_"+size.Name)

		if err := d.encodeWebP(resized, variantPath); err != nil {
			// 单档位失败不中断其余档位
			nlog.Logger().Warn().Err(err).Str("size", size.Name).Msg("derive size variant failed")

			continue
		}

		out[size.Name] = variantPath
	}

	return out, nil
}

// encodeWebP 有损编码写盘. 重新编码只携带像素，EXIF/位置等元数据随之剥离.
func (d *VariantDeriver) encodeWebP(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindDerivationFailure, "create variant file")
	}

	if err := webp.Encode(f, img, &webp.Options{Quality: d.quality}); err != nil {
		f.Close()
		os.Remove(path)

		return apperrors.Wrap(err, apperrors.KindDerivationFailure, "encode webp")
	}

	if err := f.Close(); err != nil {
		os.Remove(path)

		return apperrors.Wrap(err, apperrors.KindDerivationFailure, "close variant file")
	}

	metrics.VariantCounter.WithLabelValues(metrics.OutcomeSuccess).Inc()

	return nil
}

// decodeImageFile 解码整幅图片. 头部合法但主体损坏的图片会在这里失败，
// 编排器据此回退到只服务原图.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindDerivationFailure, "open original")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		metrics.VariantCounter.WithLabelValues("decode_failed").Inc()

		return nil, apperrors.Wrap(err, apperrors.KindDerivationFailure, "decode original")
	}

	return img, nil
}

// variantName 由原路径生成变体路径：同 stem + 可选后缀 + .webp.
// 原图本身已是 .webp 时强制加后缀，变体绝不与原图同路径.
func variantName(storedPath, suffix string) string {
	ext := filepath.Ext(storedPath)
	stem := strings.TrimSuffix(storedPath, ext)

	if suffix == "" && strings.EqualFold(ext, ".webp") {
		suffix = "_web"
	}

	return stem + suffix + ".webp"
}

// resizeToFit 保持纵横比缩放到边界内. 原图已在边界内时原样返回.
func resizeToFit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxWidth && height <= maxHeight {
		return img
	}

	ratio := float64(width) / float64(height)

	newWidth := maxWidth
	newHeight := maxHeight

	if float64(maxWidth)/float64(maxHeight) > ratio {
		newWidth = int(float64(maxHeight) * ratio)
	} else {
		newHeight = int(float64(maxWidth) / ratio)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}
