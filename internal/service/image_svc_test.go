package service

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// ==================== 测试辅助 ====================

// makeJPEG 生成指定尺寸的 JPEG 测试图片
func makeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	// 填充噪声避免纯色图压缩得太小
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8((x + y) * 3), 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("生成测试 JPEG 失败: %v", err)
	}
	return buf.Bytes()
}

// makePNG 生成指定尺寸的 PNG 测试图片
func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 11), uint8(y * 5), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("生成测试 PNG 失败: %v", err)
	}
	return buf.Bytes()
}

// ==================== 单文件校验 ====================

func TestImageService_RejectNotAnImage(t *testing.T) {
	svc := NewImageService(nil)

	_, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "listing.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 not an image"),
	})

	if rej == nil {
		t.Fatal("期望拒绝非图片文件")
	}
	if rej.Reason != RejectNotAnImage {
		t.Errorf("reason = %s, want %s", rej.Reason, RejectNotAnImage)
	}
}

func TestImageService_SniffWhenContentTypeMissing(t *testing.T) {
	svc := NewImageService(nil)

	// 声明缺失时按内容嗅探，不应误拒真实图片
	p, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename: "noheader.jpg",
		Data:     makeJPEG(t, 100, 80),
	})
	if rej != nil {
		t.Fatalf("期望通过，被拒: %s (%s)", rej.Reason, rej.Message)
	}
	if p.Width != 100 || p.Height != 80 {
		t.Errorf("尺寸 = %dx%d, want 100x80", p.Width, p.Height)
	}

	// 内容是文本时应拒绝
	_, rej = svc.ValidateAndNormalize(ImageCandidate{
		Filename: "fake.jpg",
		Data:     []byte("just some plain text"),
	})
	if rej == nil || rej.Reason != RejectNotAnImage {
		t.Error("缺失声明 + 非图片内容应该拒绝为 NOT_AN_IMAGE")
	}
}

func TestImageService_RejectFileTooLarge(t *testing.T) {
	cfg := DefaultImageConfig()
	cfg.MaxRawBytes = 1024
	svc := NewImageService(cfg)

	data := makeJPEG(t, 200, 200)
	if int64(len(data)) <= cfg.MaxRawBytes {
		t.Fatalf("测试图应超过 %d 字节, 实际 %d", cfg.MaxRawBytes, len(data))
	}

	_, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "big.jpg",
		ContentType: "image/jpeg",
		Data:        data,
	})
	if rej == nil || rej.Reason != RejectFileTooLarge {
		t.Fatal("超过原始大小上限应拒绝为 FILE_TOO_LARGE")
	}
}

func TestImageService_FileTooLargeMessage(t *testing.T) {
	svc := NewImageService(nil)

	// 默认上限 8MB：超限时用户应看到 "8MB" 而不是字节数
	data := make([]byte, 8*1024*1024+1)
	_, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "huge.jpg",
		ContentType: "image/jpeg",
		Data:        data,
	})
	if rej == nil || rej.Reason != RejectFileTooLarge {
		t.Fatal("8MB+1 字节应拒绝为 FILE_TOO_LARGE")
	}
	if !bytes.Contains([]byte(rej.Message), []byte("8MB")) {
		t.Errorf("提示信息应包含 8MB: %s", rej.Message)
	}
}

func TestImageService_RejectDimensionsTooLarge(t *testing.T) {
	cfg := DefaultImageConfig()
	cfg.MaxRawDimensionPx = 150
	svc := NewImageService(cfg)

	// 一边超限即拒绝
	_, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "wide.jpg",
		ContentType: "image/jpeg",
		Data:        makeJPEG(t, 300, 100),
	})
	if rej == nil || rej.Reason != RejectDimensionsTooLarge {
		t.Fatal("宽超限应拒绝为 DIMENSIONS_TOO_LARGE")
	}

	_, rej = svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "tall.jpg",
		ContentType: "image/jpeg",
		Data:        makeJPEG(t, 100, 300),
	})
	if rej == nil || rej.Reason != RejectDimensionsTooLarge {
		t.Fatal("高超限应拒绝为 DIMENSIONS_TOO_LARGE")
	}
}

func TestImageService_RejectCorruptImage(t *testing.T) {
	svc := NewImageService(nil)

	// 合法 JPEG 头 + 截断内容：类型检查过，解码失败
	data := makeJPEG(t, 100, 100)
	truncated := data[:len(data)/4]

	_, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "broken.jpg",
		ContentType: "image/jpeg",
		Data:        truncated,
	})
	if rej == nil {
		t.Fatal("损坏图片应被拒绝")
	}
	if rej.Reason != RejectProcessingError {
		t.Errorf("reason = %s, want %s", rej.Reason, RejectProcessingError)
	}
}

// ==================== 压缩 ====================

func TestImageService_CompressWithinBudget(t *testing.T) {
	cfg := &ImageConfig{
		MaxImages:                   14,
		MaxRawBytes:                 8 * 1024 * 1024,
		MaxRawDimensionPx:           4000,
		CompressedTargetBytes:       20 * 1024,
		CompressedTargetDimensionPx: 200,
	}
	svc := NewImageService(cfg)

	p, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        makeJPEG(t, 1200, 900),
	})
	if rej != nil {
		t.Fatalf("压缩阶段不应拒绝合法图片: %s (%s)", rej.Reason, rej.Message)
	}

	if int64(len(p.Data)) > cfg.CompressedTargetBytes {
		t.Errorf("压缩后 %d 字节, 超过预算 %d", len(p.Data), cfg.CompressedTargetBytes)
	}
	if p.Width > cfg.CompressedTargetDimensionPx || p.Height > cfg.CompressedTargetDimensionPx {
		t.Errorf("压缩后尺寸 %dx%d, 超过目标 %d", p.Width, p.Height, cfg.CompressedTargetDimensionPx)
	}
	// 等比缩放: 1200x900 → 200x150
	if p.Width != 200 || p.Height != 150 {
		t.Errorf("尺寸 = %dx%d, want 200x150", p.Width, p.Height)
	}
}

func TestImageService_CompressPNGByShrinking(t *testing.T) {
	// PNG 没有质量参数，超预算时逐级缩小
	cfg := &ImageConfig{
		MaxImages:                   14,
		MaxRawBytes:                 8 * 1024 * 1024,
		MaxRawDimensionPx:           4000,
		CompressedTargetBytes:       30 * 1024,
		CompressedTargetDimensionPx: 4000,
	}
	svc := NewImageService(cfg)

	p, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "diagram.png",
		ContentType: "image/png",
		Data:        makePNG(t, 600, 600),
	})
	if rej != nil {
		t.Fatalf("期望通过, 被拒: %s", rej.Reason)
	}
	if int64(len(p.Data)) > cfg.CompressedTargetBytes {
		t.Errorf("PNG 压缩后 %d 字节, 超过预算 %d", len(p.Data), cfg.CompressedTargetBytes)
	}
	// 结果仍应是合法 PNG
	if _, format, err := image.Decode(bytes.NewReader(p.Data)); err != nil || format != "png" {
		t.Errorf("压缩结果应为合法 PNG, format=%s err=%v", format, err)
	}
}

func TestImageService_ReportedDimensionsMatchEncoded(t *testing.T) {
	// 预算逼出尺寸阶梯时，Width/Height 必须跟最终编码数据一致
	cfg := &ImageConfig{
		MaxImages:                   14,
		MaxRawBytes:                 8 * 1024 * 1024,
		MaxRawDimensionPx:           4000,
		CompressedTargetBytes:       20 * 1024,
		CompressedTargetDimensionPx: 4000,
	}
	svc := NewImageService(cfg)

	p, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "harta.png",
		ContentType: "image/png",
		Data:        makePNG(t, 800, 600),
	})
	if rej != nil {
		t.Fatalf("期望通过, 被拒: %s", rej.Reason)
	}

	conf, _, err := image.DecodeConfig(bytes.NewReader(p.Data))
	if err != nil {
		t.Fatalf("解码结果失败: %v", err)
	}
	if p.Width != conf.Width || p.Height != conf.Height {
		t.Errorf("报告尺寸 %dx%d 与实际编码尺寸 %dx%d 不一致",
			p.Width, p.Height, conf.Width, conf.Height)
	}
	if p.Width >= 800 || p.Height >= 600 {
		t.Errorf("预算应触发缩小, 实际 %dx%d", p.Width, p.Height)
	}
}

func TestImageService_SmallImagePassesUnscaled(t *testing.T) {
	svc := NewImageService(nil)

	p, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "thumb.jpg",
		ContentType: "image/jpeg",
		Data:        makeJPEG(t, 320, 240),
	})
	if rej != nil {
		t.Fatalf("小图应直接通过: %s", rej.Reason)
	}
	if p.Width != 320 || p.Height != 240 {
		t.Errorf("预算内的小图不应缩放: %dx%d", p.Width, p.Height)
	}
}

func TestImageService_Idempotent(t *testing.T) {
	// 处理过的图片再过一遍管线必须仍然通过，且不再被改动尺寸
	cfg := &ImageConfig{
		MaxImages:                   14,
		MaxRawBytes:                 8 * 1024 * 1024,
		MaxRawDimensionPx:           4000,
		CompressedTargetBytes:       50 * 1024,
		CompressedTargetDimensionPx: 300,
	}
	svc := NewImageService(cfg)

	first, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        makeJPEG(t, 1000, 800),
	})
	if rej != nil {
		t.Fatalf("首次处理失败: %s", rej.Reason)
	}

	second, rej := svc.ValidateAndNormalize(ImageCandidate{
		Filename:    first.Filename,
		ContentType: first.ContentType,
		Data:        first.Data,
	})
	if rej != nil {
		t.Fatalf("重复处理被拒: %s (%s)", rej.Reason, rej.Message)
	}
	if second.Width != first.Width || second.Height != first.Height {
		t.Errorf("重复处理改变了尺寸: %dx%d → %dx%d",
			first.Width, first.Height, second.Width, second.Height)
	}
	if int64(len(second.Data)) > cfg.CompressedTargetBytes {
		t.Errorf("重复处理超出预算: %d", len(second.Data))
	}
}

// ==================== 批量处理 ====================

func TestImageService_ValidateMediaTypes(t *testing.T) {
	svc := NewImageService(nil)

	ok := []ImageCandidate{
		{Filename: "a.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 10, 10)},
		{Filename: "b.png", ContentType: "image/png", Data: makePNG(t, 10, 10)},
	}
	if rej := svc.ValidateMediaTypes(ok); rej != nil {
		t.Errorf("全图片批次不应被拒: %s", rej.Reason)
	}

	mixed := append(ok, ImageCandidate{
		Filename:    "c.mp4",
		ContentType: "video/mp4",
		Data:        []byte{0, 0, 0, 0},
	})
	rej := svc.ValidateMediaTypes(mixed)
	if rej == nil || rej.Reason != RejectNotAnImage {
		t.Error("混入视频的批次应拒绝为 NOT_AN_IMAGE")
	}
}

func TestImageService_BatchFirstFailureAborts(t *testing.T) {
	cfg := DefaultImageConfig()
	cfg.MaxRawDimensionPx = 150
	svc := NewImageService(cfg)

	candidates := []ImageCandidate{
		{Filename: "ok1.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 100)},
		{Filename: "toobig.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 400, 400)},
		{Filename: "ok2.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 100)},
	}

	processed, rej := svc.ValidateAndNormalizeAll(candidates)
	if rej == nil {
		t.Fatal("批次中有违规文件应整体拒绝")
	}
	if rej.Reason != RejectDimensionsTooLarge {
		t.Errorf("reason = %s, want %s", rej.Reason, RejectDimensionsTooLarge)
	}
	// 不允许部分成功
	if processed != nil {
		t.Errorf("失败批次不应返回部分结果: %d 张", len(processed))
	}
}

func TestImageService_BatchPreservesOrder(t *testing.T) {
	svc := NewImageService(nil)

	candidates := []ImageCandidate{
		{Filename: "first.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 50, 50)},
		{Filename: "second.png", ContentType: "image/png", Data: makePNG(t, 60, 60)},
		{Filename: "third.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 70, 70)},
	}

	processed, rej := svc.ValidateAndNormalizeAll(candidates)
	if rej != nil {
		t.Fatalf("期望全部通过: %s", rej.Reason)
	}
	if len(processed) != 3 {
		t.Fatalf("处理数量 = %d, want 3", len(processed))
	}
	for i, want := range []string{"first.jpg", "second.png", "third.jpg"} {
		if processed[i].Filename != want {
			t.Errorf("顺序[%d] = %s, want %s", i, processed[i].Filename, want)
		}
	}
}
