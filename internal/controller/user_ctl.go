package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"carhub_dev_v1_202608/internal/api/dto"
	"carhub_dev_v1_202608/internal/middleware"
	"carhub_dev_v1_202608/internal/service"
)

type UserController struct {
	userService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{userService: userService}
}

// Login 登录
// @Summary 用户名密码登录
// @Tags Auth
// @Accept json
// @Param body body dto.LoginRequest true "登录参数"
// @Success 200 {object} dto.LoginResponse
// @Router /api/auth/login [post]
func (ctrl *UserController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	// 同一用户名 3 秒内只允许一次登录尝试，减缓口令爆破
	if result := middleware.GetLimiter().Check("login:"+req.Username, 3*time.Second); !result.Allowed {
		c.JSON(429, gin.H{
			"code":        429,
			"message":     "登录过于频繁，请稍后再试",
			"retry_after": result.RetryAfter.Seconds(),
		})
		return
	}

	resp, err := ctrl.userService.Login(c.Request.Context(), &req)
	if err != nil {
		c.JSON(401, gin.H{"code": 401, "message": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "登录成功",
		"data":    resp,
	})
}

// RefreshToken 刷新 Token
// @Summary 用 Refresh Token 换新 Token 对
// @Tags Auth
// @Accept json
// @Param body body dto.RefreshTokenRequest true "刷新参数"
// @Success 200 {object} dto.RefreshTokenResponse
// @Router /api/auth/refresh [post]
func (ctrl *UserController) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	resp, err := ctrl.userService.RefreshToken(c.Request.Context(), &req)
	if err != nil {
		c.JSON(401, gin.H{"code": 401, "message": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "刷新成功",
		"data":    resp,
	})
}

// Register 注册后台账号
// @Summary 注册 (需要共享口令)
// @Tags Auth
// @Accept json
// @Param body body dto.RegisterRequest true "注册参数"
// @Success 200 {object} dto.UserInfo
// @Router /api/auth/register [post]
func (ctrl *UserController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	info, err := ctrl.userService.Register(c.Request.Context(), &req)
	if err != nil {
		c.JSON(400, gin.H{"code": 400, "message": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "注册成功",
		"data":    info,
	})
}

// GetProfile 当前用户信息
// @Summary 当前登录用户信息
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} dto.UserInfo
// @Router /api/admin/profile [get]
func (ctrl *UserController) GetProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		c.JSON(401, gin.H{"code": 401, "message": "未登录"})
		return
	}

	info, err := ctrl.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		c.JSON(404, gin.H{"code": 404, "message": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    info,
	})
}
