package service

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// ==================== 拒绝原因 ====================

// RejectReason 图片校验/保存失败的机器可读原因
type RejectReason string

const (
	RejectNotAnImage         RejectReason = "NOT_AN_IMAGE"
	RejectFileTooLarge       RejectReason = "FILE_TOO_LARGE"
	RejectDimensionsTooLarge RejectReason = "DIMENSIONS_TOO_LARGE"
	RejectProcessingError    RejectReason = "PROCESSING_ERROR"
	RejectTooManyImages      RejectReason = "TOO_MANY_IMAGES"
	RejectUploadFailed       RejectReason = "UPLOAD_FAILED"
	RejectSaveFailed         RejectReason = "SAVE_FAILED"
)

// Rejection 带用户可读信息的拒绝结果
type Rejection struct {
	Reason  RejectReason
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// ==================== 数据类型 ====================

// ImageCandidate 用户选择的原始文件，未经校验
type ImageCandidate struct {
	Filename    string
	ContentType string // 声明的 MIME 类型
	Data        []byte
}

// ProcessedImage 通过校验并压缩到预算内的图片
type ProcessedImage struct {
	Filename    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// ==================== 配置 ====================

// ImageConfig 图片限制配置
// 历史上多次调整过 (8→14 张, 2→8MB)，必须注入而不是写死
type ImageConfig struct {
	MaxImages                   int   // 单个广告最多图片数
	MaxRawBytes                 int64 // 原始文件大小上限
	MaxRawDimensionPx           int   // 原始图片最大边长
	CompressedTargetBytes       int64 // 压缩目标大小
	CompressedTargetDimensionPx int   // 压缩目标最大边长
}

// DefaultImageConfig 当前线上默认值
func DefaultImageConfig() *ImageConfig {
	return &ImageConfig{
		MaxImages:                   14,
		MaxRawBytes:                 8 * 1024 * 1024,
		MaxRawDimensionPx:           4000,
		CompressedTargetBytes:       6 * 1024 * 1024,
		CompressedTargetDimensionPx: 4000,
	}
}

// ==================== ImageService ====================

// ImageService 图片校验与压缩服务
// 纯内存操作，不做任何 I/O 副作用
type ImageService struct {
	cfg *ImageConfig
}

// NewImageService 创建图片服务
func NewImageService(cfg *ImageConfig) *ImageService {
	if cfg == nil {
		cfg = DefaultImageConfig()
	}
	return &ImageService{cfg: cfg}
}

// Config 返回当前限制配置
func (s *ImageService) Config() *ImageConfig {
	return s.cfg
}

// ValidateMediaTypes 批量类型预检
// 只看声明的 MIME 类型，是压缩前的廉价关卡，不能替代逐文件校验
func (s *ImageService) ValidateMediaTypes(candidates []ImageCandidate) *Rejection {
	for _, c := range candidates {
		if !isImageType(c) {
			return &Rejection{
				Reason:  RejectNotAnImage,
				Message: "只允许上传图片文件 (JPG, PNG, GIF 等)",
			}
		}
	}
	return nil
}

// ValidateAndNormalize 校验单个文件并压缩到预算内
// 校验顺序: 类型 → 文件大小 → 像素尺寸 → 压缩
// 通过原始校验的文件压缩阶段绝不拒绝 (解码失败除外)
func (s *ImageService) ValidateAndNormalize(c ImageCandidate) (*ProcessedImage, *Rejection) {
	// 1. 类型检查
	if !isImageType(c) {
		return nil, &Rejection{
			Reason:  RejectNotAnImage,
			Message: "只允许上传图片文件 (JPG, PNG, GIF 等)",
		}
	}

	// 2. 原始大小检查
	if int64(len(c.Data)) > s.cfg.MaxRawBytes {
		return nil, &Rejection{
			Reason:  RejectFileTooLarge,
			Message: fmt.Sprintf("图片文件过大，最大允许 %dMB", s.cfg.MaxRawBytes/(1024*1024)),
		}
	}

	// 3. 像素尺寸检查 (只解配置头，不解整图)
	conf, _, err := image.DecodeConfig(bytes.NewReader(c.Data))
	if err != nil {
		return nil, &Rejection{
			Reason:  RejectProcessingError,
			Message: "图片处理失败，请重新尝试",
		}
	}
	if conf.Width > s.cfg.MaxRawDimensionPx || conf.Height > s.cfg.MaxRawDimensionPx {
		return nil, &Rejection{
			Reason: RejectDimensionsTooLarge,
			Message: fmt.Sprintf("图片尺寸过大，最大允许 %dx%d 像素",
				s.cfg.MaxRawDimensionPx, s.cfg.MaxRawDimensionPx),
		}
	}

	// 4. 压缩
	img, format, err := image.Decode(bytes.NewReader(c.Data))
	if err != nil {
		return nil, &Rejection{
			Reason:  RejectProcessingError,
			Message: "图片处理失败，请重新尝试",
		}
	}

	// 先收敛尺寸，再收敛文件大小
	bounds := img.Bounds()
	if bounds.Dx() > s.cfg.CompressedTargetDimensionPx || bounds.Dy() > s.cfg.CompressedTargetDimensionPx {
		img = imaging.Fit(img,
			s.cfg.CompressedTargetDimensionPx, s.cfg.CompressedTargetDimensionPx,
			imaging.Lanczos)
	}

	data, w, h, err := s.encodeToBudget(img, format)
	if err != nil {
		log.Printf("[Image] 压缩失败 (%s): %v", c.Filename, err)
		return nil, &Rejection{
			Reason:  RejectProcessingError,
			Message: "图片处理失败，请重新尝试",
		}
	}

	return &ProcessedImage{
		Filename:    c.Filename,
		ContentType: c.ContentType,
		Data:        data,
		Width:       w,
		Height:      h,
	}, nil
}

// ValidateAndNormalizeAll 按选择顺序逐个处理，首个失败即中止
// 保证不出现 "部分成功" 的待提交状态
func (s *ImageService) ValidateAndNormalizeAll(candidates []ImageCandidate) ([]ProcessedImage, *Rejection) {
	if rej := s.ValidateMediaTypes(candidates); rej != nil {
		return nil, rej
	}

	processed := make([]ProcessedImage, 0, len(candidates))
	for _, c := range candidates {
		p, rej := s.ValidateAndNormalize(c)
		if rej != nil {
			return nil, rej
		}
		processed = append(processed, *p)
	}
	return processed, nil
}

// ==================== 编码 ====================

// encodeToBudget 在保持媒体类型族的前提下把图片压到目标大小内
// jpeg/webp 逐级降质量；png/gif 无质量参数，逐级缩小尺寸
// 返回最终编码数据和它的实际像素尺寸 (尺寸阶梯可能继续缩小图片)
func (s *ImageService) encodeToBudget(img image.Image, format string) ([]byte, int, int, error) {
	switch format {
	case "jpeg":
		return s.encodeQualitySteps(img, func(buf *bytes.Buffer, m image.Image, q int) error {
			return jpeg.Encode(buf, m, &jpeg.Options{Quality: q})
		})
	case "webp":
		return s.encodeQualitySteps(img, func(buf *bytes.Buffer, m image.Image, q int) error {
			return webp.Encode(buf, m, &webp.Options{Quality: float32(q)})
		})
	case "png":
		return s.encodeDimensionSteps(img, func(buf *bytes.Buffer, m image.Image) error {
			return png.Encode(buf, m)
		})
	case "gif":
		return s.encodeDimensionSteps(img, func(buf *bytes.Buffer, m image.Image) error {
			return gif.Encode(buf, m, nil)
		})
	default:
		// 未注册的格式理论上到不了这里 (解码会先失败)
		return s.encodeQualitySteps(img, func(buf *bytes.Buffer, m image.Image, q int) error {
			return jpeg.Encode(buf, m, &jpeg.Options{Quality: q})
		})
	}
}

func (s *ImageService) encodeQualitySteps(img image.Image, encode func(*bytes.Buffer, image.Image, int) error) ([]byte, int, int, error) {
	var buf bytes.Buffer
	for q := 90; q >= 40; q -= 10 {
		buf.Reset()
		if err := encode(&buf, img, q); err != nil {
			return nil, 0, 0, err
		}
		if int64(buf.Len()) <= s.cfg.CompressedTargetBytes {
			bounds := img.Bounds()
			return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
		}
	}
	// 质量降到底仍超预算时继续缩小尺寸
	return s.encodeDimensionSteps(img, func(b *bytes.Buffer, m image.Image) error {
		return encode(b, m, 40)
	})
}

func (s *ImageService) encodeDimensionSteps(img image.Image, encode func(*bytes.Buffer, image.Image) error) ([]byte, int, int, error) {
	var buf bytes.Buffer
	for {
		buf.Reset()
		if err := encode(&buf, img); err != nil {
			return nil, 0, 0, err
		}
		bounds := img.Bounds()
		if int64(buf.Len()) <= s.cfg.CompressedTargetBytes {
			return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
		}

		w, h := bounds.Dx()*4/5, bounds.Dy()*4/5
		if w < 16 || h < 16 {
			// 已经缩无可缩，接受当前结果
			return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
}

// ==================== 工具函数 ====================

// isImageType 按声明类型判断，声明缺失时嗅探内容兜底
func isImageType(c ImageCandidate) bool {
	ct := c.ContentType
	if ct == "" {
		ct = mimetype.Detect(c.Data).String()
	}
	return strings.HasPrefix(ct, "image/")
}
