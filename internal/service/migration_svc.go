package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"

	"carhub_dev_v1_202608/internal/model"
	"carhub_dev_v1_202608/internal/repository"
	"carhub_dev_v1_202608/pkg/utils"
)

// ==================== 历史数据迁移 ====================

// LegacyCar 旧站导出 JSON 中的单条广告
type LegacyCar struct {
	Title       string   `json:"title"`
	Marca       string   `json:"marca"`
	Model       string   `json:"model"`
	An          int      `json:"an"`
	Pret        int64    `json:"pret"`
	Km          int64    `json:"km"`
	Caroserie   string   `json:"caroserie"`
	Transmisie  string   `json:"transmisie"`
	Combustibil string   `json:"combustibil"`
	Capacitate  int      `json:"capacitate"`
	Putere      int      `json:"putere"`
	Descriere   string   `json:"descriere"`
	Contact     string   `json:"contact"`
	Locatie     string   `json:"locatie"`
	Images      []string `json:"images"` // 旧站图片 URL
	CoverImage  string   `json:"coverImage"`
}

// ImportResult 迁移汇总
type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// MigrationService 旧站广告迁移
// 逐条拉取旧图 → 过图片管线 → 重新上传 → 入库
// 单条失败跳过并记录，不中止整体迁移
type MigrationService struct {
	carRepo  repository.CarRepository
	carSvc   *CarService
	imageSvc *ImageService
	client   *resty.Client
}

// NewMigrationService 创建迁移服务
func NewMigrationService(carRepo repository.CarRepository, carSvc *CarService, imageSvc *ImageService) *MigrationService {
	return &MigrationService{
		carRepo:  carRepo,
		carSvc:   carSvc,
		imageSvc: imageSvc,
		client:   utils.NewHTTPClient(),
	}
}

// ImportLegacyListings 从导出 URL 拉取旧广告并迁移
func (s *MigrationService) ImportLegacyListings(ctx context.Context, exportURL string, userID int64) (*ImportResult, error) {
	var legacy []LegacyCar
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&legacy).
		Get(exportURL)
	if err != nil {
		return nil, fmt.Errorf("拉取导出数据失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("拉取导出数据失败，状态码: %d", resp.StatusCode())
	}

	result := &ImportResult{Total: len(legacy), Errors: []string{}}

	for i, lc := range legacy {
		if err := s.importOne(ctx, &lc, userID); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("#%d %s: %v", i+1, lc.Title, err))
			log.Printf("[Migration] 跳过 #%d (%s): %v", i+1, lc.Title, err)
			continue
		}
		result.Imported++
	}
	return result, nil
}

// importOne 迁移单条广告
func (s *MigrationService) importOne(ctx context.Context, lc *LegacyCar, userID int64) error {
	if len(lc.Images) == 0 {
		return fmt.Errorf("没有图片")
	}

	// 下载旧图为候选文件
	candidates := make([]ImageCandidate, 0, len(lc.Images))
	coverIndex := 0
	for i, url := range lc.Images {
		data, contentType, err := s.downloadImage(ctx, url)
		if err != nil {
			return fmt.Errorf("下载旧图失败 (%s): %w", url, err)
		}
		candidates = append(candidates, ImageCandidate{
			Filename:    legacyFilename(url),
			ContentType: contentType,
			Data:        data,
		})
		if url == lc.CoverImage {
			coverIndex = i
		}
	}

	processed, rej := s.imageSvc.ValidateAndNormalizeAll(candidates)
	if rej != nil {
		return fmt.Errorf("图片校验失败: %s", rej.Message)
	}

	result, rej := s.carSvc.Reconcile(ctx, userID, nil, "", processed, nil, CoverSelector{Index: coverIndex})
	if rej != nil {
		return fmt.Errorf("图片上传失败: %s", rej.Message)
	}

	car := &model.Car{
		UserID:      userID,
		Title:       lc.Title,
		Marca:       lc.Marca,
		Model:       lc.Model,
		An:          lc.An,
		Pret:        lc.Pret,
		Km:          lc.Km,
		Caroserie:   lc.Caroserie,
		Transmisie:  lc.Transmisie,
		Combustibil: lc.Combustibil,
		Capacitate:  lc.Capacitate,
		Putere:      lc.Putere,
		Descriere:   lc.Descriere,
		Contact:     lc.Contact,
		Locatie:     lc.Locatie,
		Images:      result.Images,
		CoverImage:  result.CoverImage,
	}
	return s.carRepo.Create(ctx, car)
}

// downloadImage 拉取单张旧图
func (s *MigrationService) downloadImage(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", err
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("状态码 %d", resp.StatusCode())
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}

// legacyFilename 从旧图 URL 提取文件名，取不到就给默认名
func legacyFilename(url string) string {
	name := path.Base(strings.SplitN(url, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		return "legacy.jpg"
	}
	return name
}
