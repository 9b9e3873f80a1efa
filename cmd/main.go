package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carhub_dev_v1_202608/internal/controller"
	"carhub_dev_v1_202608/internal/middleware"
	"carhub_dev_v1_202608/internal/model"
	"carhub_dev_v1_202608/internal/repository"
	"carhub_dev_v1_202608/internal/router"
	"carhub_dev_v1_202608/internal/service"
	"carhub_dev_v1_202608/internal/task"
	"carhub_dev_v1_202608/pkg/database"
)

// @title CarHub API
// @version 1.0
// @description 汽车广告后台 API
// @host localhost:8080
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 0. JWT 密钥必须来自环境，默认值仅限本地开发
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg := middleware.DefaultJWTConfig()
		cfg.SecretKey = secret
		middleware.SetJWTConfig(cfg)
	}

	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r,
		deps.Controllers.Car,
		deps.Controllers.Brand,
		deps.Controllers.Config,
		deps.Controllers.User,
		deps.Controllers.Migration,
	)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Car    repository.CarRepository
	Brand  repository.BrandRepository
	Config repository.ConfigRepository
	User   repository.UserRepository
}

// Services 服务集合
type Services struct {
	Image     *service.ImageService
	Storage   *service.StorageService
	Car       *service.CarService
	Brand     *service.BrandService
	Config    *service.ConfigService
	User      *service.UserService
	Migration *service.MigrationService
}

// Controllers 控制器集合
type Controllers struct {
	Car       *controller.CarController
	Brand     *controller.BrandController
	Config    *controller.ConfigController
	User      *controller.UserController
	Migration *controller.MigrationController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		getEnv("DB_DRIVER", "sqlite"),
		getEnv("DB_DSN", "carhub.db"),
		&model.SysUser{},
		&model.Car{},
		&model.Brand{},
		&model.SiteConfig{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Car:    repository.NewCarRepository(db),
		Brand:  repository.NewBrandRepository(db),
		Config: repository.NewConfigRepository(db),
		User:   repository.NewUserRepository(db),
	}

	// -------- 基础服务 --------
	storageSvc := initStorageService()
	imageSvc := service.NewImageService(initImageConfig())

	var provider service.StorageProvider
	if storageSvc != nil {
		provider = storageSvc.GetProvider()
	}

	// -------- 业务服务 --------
	services := &Services{
		Image:   imageSvc,
		Storage: storageSvc,
	}
	services.Car = service.NewCarService(repos.Car, imageSvc, provider)
	services.Brand = service.NewBrandService(repos.Brand, repos.Car)
	services.Config = service.NewConfigService(repos.Config, imageSvc, provider)
	services.User = service.NewUserService(repos.User, &service.UserConfig{
		RegisterSecret: getEnv("REGISTER_SECRET", ""),
	})
	services.Migration = service.NewMigrationService(repos.Car, services.Car, imageSvc)

	// -------- Controller 层 --------
	controllers := &Controllers{
		Car:       controller.NewCarController(services.Car),
		Brand:     controller.NewBrandController(services.Brand),
		Config:    controller.NewConfigController(services.Config),
		User:      controller.NewUserController(services.User),
		Migration: controller.NewMigrationController(services.Migration),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initStorageService 初始化存储服务
func initStorageService() *service.StorageService {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", "local"),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:  getEnv("AWS_ENDPOINT", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "uploads"),
	})
	if err != nil {
		log.Printf("警告: 存储服务初始化失败: %v", err)
		return nil
	}
	return storageSvc
}

// initImageConfig 图片管线配置，全部可由环境变量覆盖
func initImageConfig() *service.ImageConfig {
	cfg := service.DefaultImageConfig()
	cfg.MaxImages = getEnvInt("IMAGE_MAX_COUNT", cfg.MaxImages)
	cfg.MaxRawBytes = int64(getEnvInt("IMAGE_MAX_RAW_BYTES", int(cfg.MaxRawBytes)))
	cfg.MaxRawDimensionPx = getEnvInt("IMAGE_MAX_DIMENSION", cfg.MaxRawDimensionPx)
	cfg.CompressedTargetBytes = int64(getEnvInt("IMAGE_TARGET_BYTES", int(cfg.CompressedTargetBytes)))
	cfg.CompressedTargetDimensionPx = getEnvInt("IMAGE_TARGET_DIMENSION", cfg.CompressedTargetDimensionPx)
	return cfg
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	// 孤儿图片清扫
	if deps.Services.Storage != nil {
		sweepTask := task.NewOrphanSweepTask(deps.Repos.Car, deps.Services.Storage)
		sweepTask.Start()
	}

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
