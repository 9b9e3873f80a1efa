package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"carhub_dev_v1_202608/internal/api/dto"
	"carhub_dev_v1_202608/internal/model"
	"carhub_dev_v1_202608/internal/repository"
)

// ==================== CarService 车辆广告服务 ====================

// CarService 车辆广告服务
// 图片集合并 (Reconcile) 是唯一允许调用存储上传/删除的地方
type CarService struct {
	carRepo  repository.CarRepository
	imageSvc *ImageService
	storage  StorageProvider
}

// NewCarService 创建车辆服务
func NewCarService(carRepo repository.CarRepository, imageSvc *ImageService, storage StorageProvider) *CarService {
	return &CarService{
		carRepo:  carRepo,
		imageSvc: imageSvc,
		storage:  storage,
	}
}

// ==================== 图片集合并 ====================

// CoverSelector 封面选择
// 新建流程用 Index (指向合并后的序列)，编辑流程用显式 URL
// 内部统一归一到 URL，Index 只是 UI 层的便利
type CoverSelector struct {
	URL   string
	Index int // URL 为空时生效，-1 表示未指定
}

// ReconcileResult 合并结果，由调用方写入广告记录
type ReconcileResult struct {
	Images     []string
	CoverImage string
}

// Reconcile 把保留图、新图、删除图合并为下一个持久化图片集
//
// 流程:
//  1. 数量预检 (违规时零上传零删除)
//  2. 逐张上传新图，URL 顺序与输入一致
//  3. 合并: 保留图原序 + 新图追加
//  4. 删除已移除的图 (单张失败只记日志，不中止)
//  5. 封面归一: 显式 URL → 索引 → 原封面 → 首图
//
// 上传中途失败时整体中止，本次已上传的图成为孤儿，由后台清理任务回收
func (s *CarService) Reconcile(
	ctx context.Context,
	userID int64,
	retained []string,
	currentCover string,
	newImages []ProcessedImage,
	removed []string,
	cover CoverSelector,
) (*ReconcileResult, *Rejection) {
	cfg := s.imageSvc.Config()

	// 1. 数量上限预检，必须发生在任何存储调用之前
	if len(retained)+len(newImages) > cfg.MaxImages {
		return nil, &Rejection{
			Reason:  RejectTooManyImages,
			Message: fmt.Sprintf("图片数量超出上限，最多 %d 张", cfg.MaxImages),
		}
	}

	// 2. 上传新图
	uploaded := make([]string, 0, len(newImages))
	for _, img := range newImages {
		key := fmt.Sprintf("cars/%d/%d_%s", userID, time.Now().UnixMilli(), img.Filename)
		url, err := s.storage.UploadWithKey(ctx, key, img.Data, img.ContentType)
		if err != nil {
			log.Printf("[Car] 图片上传失败 (%s): %v", img.Filename, err)
			return nil, &Rejection{
				Reason:  RejectUploadFailed,
				Message: "图片上传失败，请重试",
			}
		}
		uploaded = append(uploaded, url)
	}

	// 3. 合并序列
	next := make([]string, 0, len(retained)+len(uploaded))
	next = append(next, retained...)
	next = append(next, uploaded...)

	// 4. 删除已移除的图
	// 权威状态是数据库里的 URL 列表，存储桶删不掉不影响正确性
	for _, url := range removed {
		if err := s.storage.Delete(ctx, url); err != nil {
			log.Printf("[Car] 删除旧图失败 (忽略): %s: %v", url, err)
		}
	}

	// 5. 封面归一
	return &ReconcileResult{
		Images:     next,
		CoverImage: resolveCover(next, currentCover, cover),
	}, nil
}

// resolveCover 封面归一: 显式 URL → 索引 → 原封面 → 首图
func resolveCover(images []string, currentCover string, cover CoverSelector) string {
	if cover.URL != "" && containsURL(images, cover.URL) {
		return cover.URL
	}
	if cover.URL == "" && cover.Index >= 0 && cover.Index < len(images) {
		return images[cover.Index]
	}
	if currentCover != "" && containsURL(images, currentCover) {
		return currentCover
	}
	if len(images) > 0 {
		return images[0]
	}
	return ""
}

func containsURL(urls []string, target string) bool {
	for _, u := range urls {
		if u == target {
			return true
		}
	}
	return false
}

// ==================== 新建 ====================

// AddCar 新建广告: 校验压缩 → 合并上传 → 入库
// 新建必须至少一张图片
func (s *CarService) AddCar(ctx context.Context, userID int64, req *dto.CarCreateReq, files []ImageCandidate, coverIndex int) (*model.Car, *Rejection) {
	if len(files) == 0 {
		return nil, &Rejection{
			Reason:  RejectProcessingError,
			Message: "至少需要上传一张图片",
		}
	}

	processed, rej := s.imageSvc.ValidateAndNormalizeAll(files)
	if rej != nil {
		return nil, rej
	}

	result, rej := s.Reconcile(ctx, userID, nil, "", processed, nil, CoverSelector{Index: coverIndex})
	if rej != nil {
		return nil, rej
	}

	car := req.ToModel()
	car.UserID = userID
	car.Images = result.Images
	car.CoverImage = result.CoverImage

	if err := s.carRepo.Create(ctx, car); err != nil {
		log.Printf("[Car] 保存广告失败: %v", err)
		return nil, &Rejection{
			Reason:  RejectSaveFailed,
			Message: "保存失败，请重试",
		}
	}

	// slug 含记录 ID，只能在入库后回填
	car.Slug = carSlug(car)
	if err := s.carRepo.UpdateFields(ctx, car.ID, map[string]interface{}{"slug": car.Slug}); err != nil {
		log.Printf("[Car] 回填 slug 失败 (忽略): %v", err)
	}
	return car, nil
}

// ==================== 编辑 ====================

// UpdateCar 编辑广告
// retained 是调用方仍保留的已有图 URL；removed = 当前持久化集合 − retained
func (s *CarService) UpdateCar(ctx context.Context, id int64, req *dto.CarUpdateReq, files []ImageCandidate) (*model.Car, *Rejection) {
	car, err := s.carRepo.GetByID(ctx, id)
	if err != nil {
		return nil, &Rejection{
			Reason:  RejectSaveFailed,
			Message: "广告不存在",
		}
	}

	processed, rej := s.imageSvc.ValidateAndNormalizeAll(files)
	if rej != nil {
		return nil, rej
	}

	retained := make([]string, 0, len(req.ExistingImages))
	for _, url := range req.ExistingImages {
		if containsURL(car.Images, url) {
			retained = append(retained, url)
		}
	}

	// 被调用方丢弃的旧图需要从存储删除
	removed := make([]string, 0)
	for _, url := range car.Images {
		if !containsURL(retained, url) {
			removed = append(removed, url)
		}
	}

	// 编辑后不允许出现零图广告
	// 必须在 Reconcile 之前拦下，否则旧图已从存储删除而记录仍引用它们
	if len(retained)+len(processed) == 0 {
		return nil, &Rejection{
			Reason:  RejectProcessingError,
			Message: "至少需要保留一张图片",
		}
	}

	result, rej := s.Reconcile(ctx, car.UserID, retained, car.CoverImage, processed, removed,
		CoverSelector{URL: req.CoverImage, Index: -1})
	if rej != nil {
		return nil, rej
	}

	req.ApplyToModel(car)
	car.Slug = carSlug(car)
	car.Images = result.Images
	car.CoverImage = result.CoverImage

	if err := s.carRepo.Update(ctx, car); err != nil {
		log.Printf("[Car] 更新广告失败: %v", err)
		return nil, &Rejection{
			Reason:  RejectSaveFailed,
			Message: "保存失败，请重试",
		}
	}
	return car, nil
}

// ==================== 删除 ====================

// DeleteCar 删除广告并回收全部图片
// 单张图删不掉只记日志，记录删除不回滚
func (s *CarService) DeleteCar(ctx context.Context, id int64) error {
	car, err := s.carRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("广告不存在: %w", err)
	}

	for _, url := range car.Images {
		if delErr := s.storage.Delete(ctx, url); delErr != nil {
			log.Printf("[Car] 删除广告图片失败 (忽略): %s: %v", url, delErr)
		}
	}

	return s.carRepo.Delete(ctx, id)
}

// ==================== 查询 ====================

// GetCar 广告详情
func (s *CarService) GetCar(ctx context.Context, id int64) (*model.Car, error) {
	return s.carRepo.GetByID(ctx, id)
}

// GetCarBySlug 按详情页路径查广告
func (s *CarService) GetCarBySlug(ctx context.Context, slug string) (*model.Car, error) {
	return s.carRepo.GetBySlug(ctx, slug)
}

// ListCars 广告列表 (品牌/价格过滤 + 排序 + 分页)
func (s *CarService) ListCars(ctx context.Context, filter repository.CarFilter) ([]model.Car, int64, error) {
	return s.carRepo.List(ctx, filter)
}

// ListMarci 在售广告的去重品牌列表 (前台筛选下拉用)
func (s *CarService) ListMarci(ctx context.Context) ([]string, error) {
	return s.carRepo.DistinctMarca(ctx)
}

// ==================== Slug ====================

// carSlug 详情页路径: marca-model-an-id
// 末尾的 ID 保证唯一，前缀只为可读性
func carSlug(car *model.Car) string {
	return slugify(fmt.Sprintf("%s %s %d", car.Marca, car.Model, car.An)) +
		fmt.Sprintf("-%d", car.ID)
}

// slugify 小写化，非字母数字折叠成单个连字符
func slugify(s string) string {
	var b strings.Builder
	prevDash := true // 抑制开头的连字符
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevDash = false
		case !prevDash:
			b.WriteByte('-')
			prevDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
