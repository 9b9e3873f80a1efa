package controller

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carhub_dev_v1_202608/internal/api/dto"
	"carhub_dev_v1_202608/internal/middleware"
	"carhub_dev_v1_202608/internal/model"
	"carhub_dev_v1_202608/internal/repository"
	"carhub_dev_v1_202608/internal/service"
)

type CarController struct {
	carService *service.CarService
}

func NewCarController(carService *service.CarService) *CarController {
	return &CarController{carService: carService}
}

// ==================== 公开查询接口 ====================

// GetCars 获取广告列表
// @Summary 按品牌/价格过滤并排序的广告列表
// @Tags Car
// @Param marca query string false "品牌模糊匹配"
// @Param pret_min query int false "最低价"
// @Param pret_max query int false "最高价"
// @Param sort query string false "price-asc | price-desc"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.CarListResp
// @Router /api/cars [get]
func (ctrl *CarController) GetCars(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pretMin, _ := strconv.ParseInt(c.Query("pret_min"), 10, 64)
	pretMax, _ := strconv.ParseInt(c.Query("pret_max"), 10, 64)

	filter := repository.CarFilter{
		Marca:    c.Query("marca"),
		PretMin:  pretMin,
		PretMax:  pretMax,
		SortBy:   c.Query("sort"),
		Page:     page,
		PageSize: pageSize,
	}

	cars, total, err := ctrl.carService.ListCars(c.Request.Context(), filter)
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	respList := make([]dto.CarResp, 0, len(cars))
	for i := range cars {
		respList = append(respList, dto.ToCarResp(&cars[i]))
	}

	c.JSON(200, dto.CarListResp{
		Code:     0,
		Message:  "success",
		Data:     respList,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetCar 获取广告详情
// @Summary 获取单条广告详情 (数字按 ID 查，其余按 slug 查)
// @Tags Car
// @Param id path string true "广告 ID 或 slug"
// @Success 200 {object} dto.CarResp
// @Router /api/cars/{id} [get]
func (ctrl *CarController) GetCar(c *gin.Context) {
	param := c.Param("id")

	var car *model.Car
	var err error
	if id, parseErr := strconv.ParseInt(param, 10, 64); parseErr == nil && id > 0 {
		car, err = ctrl.carService.GetCar(c.Request.Context(), id)
	} else {
		car, err = ctrl.carService.GetCarBySlug(c.Request.Context(), param)
	}
	if err != nil {
		c.JSON(404, gin.H{"code": 404, "message": "广告不存在"})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.ToCarResp(car),
	})
}

// GetMarci 在售品牌下拉列表
// @Summary 在售广告的去重品牌列表
// @Tags Car
// @Success 200 {object} map[string]interface{}
// @Router /api/cars/marci [get]
func (ctrl *CarController) GetMarci(c *gin.Context) {
	marci, err := ctrl.carService.ListMarci(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "success", "data": marci})
}

// ==================== 管理接口 ====================

// CreateCar 新建广告 (multipart: 表单字段 + images 文件 + cover_index)
// @Summary 新建广告
// @Tags Car
// @Accept mpfd
// @Security BearerAuth
// @Success 200 {object} dto.CarResp
// @Router /api/admin/cars [post]
func (ctrl *CarController) CreateCar(c *gin.Context) {
	var req dto.CarCreateReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	files, err := readMultipartImages(c, "images")
	if err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "读取上传文件失败: " + err.Error()})
		return
	}

	coverIndex, _ := strconv.Atoi(c.DefaultPostForm("cover_index", "0"))
	userID := middleware.GetUserID(c)

	car, rej := ctrl.carService.AddCar(c.Request.Context(), userID, &req, files, coverIndex)
	if rej != nil {
		status := rejectionStatus(rej)
		c.JSON(status, gin.H{
			"code":    status,
			"message": rej.Message,
			"reason":  rej.Reason,
		})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "发布成功",
		"data":    dto.ToCarResp(car),
	})
}

// UpdateCar 编辑广告
// @Summary 编辑广告 (保留图以 existing_images 传回，封面用 cover_image URL 指定)
// @Tags Car
// @Accept mpfd
// @Security BearerAuth
// @Param id path int true "广告ID"
// @Success 200 {object} dto.CarResp
// @Router /api/admin/cars/{id} [put]
func (ctrl *CarController) UpdateCar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"code": 400, "message": "无效的广告ID"})
		return
	}

	var req dto.CarUpdateReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}
	req.ExistingImages = c.PostFormArray("existing_images")

	files, err := readMultipartImages(c, "images")
	if err != nil {
		c.JSON(400, gin.H{"code": 400, "message": "读取上传文件失败: " + err.Error()})
		return
	}

	car, rej := ctrl.carService.UpdateCar(c.Request.Context(), id, &req, files)
	if rej != nil {
		status := rejectionStatus(rej)
		c.JSON(status, gin.H{
			"code":    status,
			"message": rej.Message,
			"reason":  rej.Reason,
		})
		return
	}

	c.JSON(200, gin.H{
		"code":    0,
		"message": "保存成功",
		"data":    dto.ToCarResp(car),
	})
}

// DeleteCar 删除广告
// @Summary 删除广告并回收图片
// @Tags Car
// @Security BearerAuth
// @Param id path int true "广告ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/cars/{id} [delete]
func (ctrl *CarController) DeleteCar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"code": 400, "message": "无效的广告ID"})
		return
	}

	if err := ctrl.carService.DeleteCar(c.Request.Context(), id); err != nil {
		c.JSON(404, gin.H{"code": 404, "message": err.Error()})
		return
	}

	c.JSON(200, gin.H{"code": 0, "message": "已删除"})
}

// ==================== 辅助函数 ====================

// readMultipartImages 把 multipart 文件读成内存候选
func readMultipartImages(c *gin.Context, field string) ([]service.ImageCandidate, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// 无文件的纯字段表单也是合法的 (编辑时可以不加新图)
		return nil, nil
	}

	fileHeaders := form.File[field]
	candidates := make([]service.ImageCandidate, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, service.ImageCandidate{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return candidates, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// rejectionStatus 拒绝原因映射 HTTP 状态码
// 用户可自行修正的给 400，服务端问题给 500
func rejectionStatus(rej *service.Rejection) int {
	switch rej.Reason {
	case service.RejectUploadFailed, service.RejectSaveFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
