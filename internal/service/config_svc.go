package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"carhub_dev_v1_202608/internal/api/dto"
	"carhub_dev_v1_202608/internal/model"
	"carhub_dev_v1_202608/internal/repository"
	"carhub_dev_v1_202608/pkg/utils"
)

const configCacheKey = "site_config:public"

// ==================== ConfigService 站点配置服务 ====================

// ConfigService 站点配置 (品牌展示/联系方式/SEO) 维护
// 公共读取走内存缓存，前台每次渲染都要读配置
type ConfigService struct {
	configRepo repository.ConfigRepository
	imageSvc   *ImageService
	storage    StorageProvider
}

// NewConfigService 创建配置服务
func NewConfigService(configRepo repository.ConfigRepository, imageSvc *ImageService, storage StorageProvider) *ConfigService {
	return &ConfigService{
		configRepo: configRepo,
		imageSvc:   imageSvc,
		storage:    storage,
	}
}

// GetPublicConfig 前台公共配置，短 TTL 缓存
func (s *ConfigService) GetPublicConfig(ctx context.Context) (*model.SiteConfig, error) {
	if cached, ok := utils.GetCache(configCacheKey); ok {
		if cfg, ok := cached.(*model.SiteConfig); ok {
			return cfg, nil
		}
	}

	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	if cfg != nil {
		utils.SetCache(configCacheKey, cfg, time.Minute)
	}
	return cfg, nil
}

// SaveConfig 保存配置，logo/banner 可选替换
// 新图走与广告图相同的校验压缩管线；旧图删除失败只记日志
func (s *ConfigService) SaveConfig(ctx context.Context, req *dto.ConfigSaveReq, logo, banner *ImageCandidate) (*model.SiteConfig, *Rejection) {
	current, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, &Rejection{
			Reason:  RejectSaveFailed,
			Message: "读取配置失败，请重试",
		}
	}
	if current == nil {
		current = &model.SiteConfig{}
	}

	if logo != nil {
		url, rej := s.replaceImage(ctx, "logo", logo, current.LogoURL)
		if rej != nil {
			return nil, rej
		}
		current.LogoURL = url
	}
	if banner != nil {
		url, rej := s.replaceImage(ctx, "banner", banner, current.BannerImg)
		if rej != nil {
			return nil, rej
		}
		current.BannerImg = url
	}

	current.Nume = req.Nume
	current.Slogan = req.Slogan
	current.Locatie = req.Locatie
	current.Whatsapp = req.Whatsapp
	current.Facebook = req.Facebook
	current.ContactEmail = req.ContactEmail
	current.SiteTitle = req.SiteTitle
	current.SiteDescription = req.SiteDescription

	if err := s.configRepo.Save(ctx, current); err != nil {
		log.Printf("[Config] 保存配置失败: %v", err)
		return nil, &Rejection{
			Reason:  RejectSaveFailed,
			Message: "保存失败，请重试",
		}
	}

	utils.DeleteCache(configCacheKey)
	return current, nil
}

// replaceImage 单图替换: 校验压缩 → 上传 → 旧图尽力删除
func (s *ConfigService) replaceImage(ctx context.Context, kind string, candidate *ImageCandidate, oldURL string) (string, *Rejection) {
	processed, rej := s.imageSvc.ValidateAndNormalize(*candidate)
	if rej != nil {
		return "", rej
	}

	key := fmt.Sprintf("config/%s_%d_%s", kind, time.Now().UnixMilli(), processed.Filename)
	url, err := s.storage.UploadWithKey(ctx, key, processed.Data, processed.ContentType)
	if err != nil {
		log.Printf("[Config] 上传 %s 失败: %v", kind, err)
		return "", &Rejection{
			Reason:  RejectUploadFailed,
			Message: "图片上传失败，请重试",
		}
	}

	if oldURL != "" {
		if err := s.storage.Delete(ctx, oldURL); err != nil {
			log.Printf("[Config] 删除旧 %s 失败 (忽略): %v", kind, err)
		}
	}
	return url, nil
}
