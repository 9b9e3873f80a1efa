package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"carhub_dev_v1_202608/internal/controller"
	"carhub_dev_v1_202608/internal/middleware"

	_ "carhub_dev_v1_202608/docs"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	carCtl *controller.CarController,
	brandCtl *controller.BrandController,
	configCtl *controller.ConfigController,
	userCtl *controller.UserController,
	migrationCtl *controller.MigrationController) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. 前台公开路由
	api := r.Group("/api")
	{
		// cars 广告浏览
		cars := api.Group("/cars")
		{
			// GET /api/cars?marca=&pret_min=&pret_max=&sort=&page=&page_size=
			cars.GET("", carCtl.GetCars)
			cars.GET("/:id", carCtl.GetCar)
			// GET /api/cars/marci 在售品牌列表 (用于前台筛选)
			cars.GET("/marci", carCtl.GetMarci)
		}

		// brands 品牌列表
		api.GET("/brands", brandCtl.GetBrands)

		// config 站点公共配置
		api.GET("/config", configCtl.GetConfig)

		// auth 鉴权组
		auth := api.Group("/auth")
		{
			auth.POST("/login", userCtl.Login)
			auth.POST("/refresh", userCtl.RefreshToken)
			auth.POST("/register", userCtl.Register)
		}
	}

	// 3. 后台管理路由，JWT 保护
	admin := r.Group("/api/admin")
	admin.Use(middleware.JWTAuth(), middleware.AuditContext())
	{
		admin.GET("/profile", userCtl.GetProfile)

		// cars 广告维护
		cars := admin.Group("/cars")
		{
			cars.POST("", carCtl.CreateCar)
			cars.PUT("/:id", carCtl.UpdateCar)
			cars.DELETE("/:id", carCtl.DeleteCar)
		}

		// brands 品牌维护
		brands := admin.Group("/brands")
		{
			brands.GET("/usage", brandCtl.GetBrandUsage)
			brands.POST("", brandCtl.CreateBrand)
			brands.PUT("/:id", brandCtl.UpdateBrand)
			brands.DELETE("/:id", brandCtl.DeleteBrand)
			brands.POST("/migrate", brandCtl.MigrateBrands)
		}

		// config 站点配置维护
		admin.PUT("/config", configCtl.SaveConfig)

		// migration 旧站迁移
		admin.POST("/migration/listings", migrationCtl.ImportLegacy)
	}
}
