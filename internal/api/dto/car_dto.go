package dto

import (
	"time"

	"carhub_dev_v1_202608/internal/model"
)

// ==================== 请求 DTO ====================

// CarCreateReq 新建广告请求 (multipart 表单的字段部分)
// 图片文件与 cover_index 由控制器单独提取
type CarCreateReq struct {
	Title string `form:"title" binding:"required,max=255"`
	Marca string `form:"marca" binding:"required,max=100"`
	Model string `form:"model" binding:"required,max=100"`
	An    int    `form:"an" binding:"required,gte=1900"`
	Pret  int64  `form:"pret" binding:"required,gt=0"`
	Km    int64  `form:"km" binding:"gte=0"`

	Caroserie   string `form:"caroserie" binding:"required,max=50"`
	Transmisie  string `form:"transmisie" binding:"max=50"`
	Combustibil string `form:"combustibil" binding:"max=50"`
	Capacitate  int    `form:"capacitate" binding:"gte=0"`
	Putere      int    `form:"putere" binding:"gte=0"`
	Tractiune   string `form:"tractiune" binding:"max=50"`

	Descriere  string `form:"descriere"`
	Dotari     string `form:"dotari"`
	Contact    string `form:"contact" binding:"max=100"`
	Locatie    string `form:"locatie" binding:"max=255"`
	LinkExtern string `form:"link_extern" binding:"omitempty,url,max=500"`
}

// ToModel 转换为数据库模型
func (r *CarCreateReq) ToModel() *model.Car {
	return &model.Car{
		Title:       r.Title,
		Marca:       r.Marca,
		Model:       r.Model,
		An:          r.An,
		Pret:        r.Pret,
		Km:          r.Km,
		Caroserie:   r.Caroserie,
		Transmisie:  r.Transmisie,
		Combustibil: r.Combustibil,
		Capacitate:  r.Capacitate,
		Putere:      r.Putere,
		Tractiune:   r.Tractiune,
		Descriere:   r.Descriere,
		Dotari:      r.Dotari,
		Contact:     r.Contact,
		Locatie:     r.Locatie,
		LinkExtern:  r.LinkExtern,
	}
}

// CarUpdateReq 编辑广告请求
// ExistingImages 是仍保留的已有图 URL (原有相对顺序)
// CoverImage 是显式封面 URL (编辑流程不用索引)
type CarUpdateReq struct {
	CarCreateReq

	ExistingImages []string `form:"existing_images"`
	CoverImage     string   `form:"cover_image" binding:"omitempty,url"`
}

// ApplyToModel 把表单字段写入已加载的模型 (图片字段由服务层处理)
func (r *CarUpdateReq) ApplyToModel(car *model.Car) {
	car.Title = r.Title
	car.Marca = r.Marca
	car.Model = r.Model
	car.An = r.An
	car.Pret = r.Pret
	car.Km = r.Km
	car.Caroserie = r.Caroserie
	car.Transmisie = r.Transmisie
	car.Combustibil = r.Combustibil
	car.Capacitate = r.Capacitate
	car.Putere = r.Putere
	car.Tractiune = r.Tractiune
	car.Descriere = r.Descriere
	car.Dotari = r.Dotari
	car.Contact = r.Contact
	car.Locatie = r.Locatie
	car.LinkExtern = r.LinkExtern
}

// ==================== 响应 DTO ====================

// CarResp 广告详情响应
type CarResp struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Marca       string    `json:"marca"`
	Model       string    `json:"model"`
	An          int       `json:"an"`
	Pret        int64     `json:"pret"`
	Km          int64     `json:"km"`
	Caroserie   string    `json:"caroserie"`
	Transmisie  string    `json:"transmisie"`
	Combustibil string    `json:"combustibil"`
	Capacitate  int       `json:"capacitate"`
	Putere      int       `json:"putere"`
	Tractiune   string    `json:"tractiune"`
	Descriere   string    `json:"descriere"`
	Dotari      string    `json:"dotari"`
	Contact     string    `json:"contact"`
	Locatie     string    `json:"locatie"`
	LinkExtern  string    `json:"link_extern"`
	Images      []string  `json:"images"`
	CoverImage  string    `json:"cover_image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToCarResp 模型转响应
func ToCarResp(car *model.Car) CarResp {
	return CarResp{
		ID:          car.ID,
		Title:       car.Title,
		Slug:        car.Slug,
		Marca:       car.Marca,
		Model:       car.Model,
		An:          car.An,
		Pret:        car.Pret,
		Km:          car.Km,
		Caroserie:   car.Caroserie,
		Transmisie:  car.Transmisie,
		Combustibil: car.Combustibil,
		Capacitate:  car.Capacitate,
		Putere:      car.Putere,
		Tractiune:   car.Tractiune,
		Descriere:   car.Descriere,
		Dotari:      car.Dotari,
		Contact:     car.Contact,
		Locatie:     car.Locatie,
		LinkExtern:  car.LinkExtern,
		Images:      car.Images,
		CoverImage:  car.CoverImage,
		CreatedAt:   car.CreatedAt,
		UpdatedAt:   car.UpdatedAt,
	}
}

// CarListResp 广告列表响应
type CarListResp struct {
	Code     int       `json:"code"`
	Message  string    `json:"message"`
	Data     []CarResp `json:"data"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
