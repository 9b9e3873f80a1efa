package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carhub_dev_v1_202608/internal/api/dto"
	"carhub_dev_v1_202608/internal/model"
	"carhub_dev_v1_202608/internal/repository"
)

// ==================== 存储替身 ====================

// spyStorage 记录全部调用的存储替身
type spyStorage struct {
	uploads     []string // 上传顺序的 key 列表
	deletes     []string // 删除顺序的 URL 列表
	failUploads bool
	failDeletes bool
}

func (s *spyStorage) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	return s.UploadWithKey(ctx, filename, data, contentType)
}

func (s *spyStorage) UploadWithKey(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.failUploads {
		return "", fmt.Errorf("storage unavailable")
	}
	s.uploads = append(s.uploads, key)
	return "https://cdn.test/" + key, nil
}

func (s *spyStorage) UploadFromURL(ctx context.Context, sourceURL, filename string) (string, error) {
	return s.UploadWithKey(ctx, filename, nil, "")
}

func (s *spyStorage) Delete(ctx context.Context, url string) error {
	s.deletes = append(s.deletes, url)
	if s.failDeletes {
		return fmt.Errorf("access denied")
	}
	return nil
}

func (s *spyStorage) List(ctx context.Context, prefix string) ([]StorageObject, error) {
	return nil, nil
}

// ==================== 测试辅助 ====================

func setupCarTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	db.AutoMigrate(&model.Car{})
	return db
}

func newTestCarService(t *testing.T, storage StorageProvider) (*CarService, repository.CarRepository) {
	db := setupCarTestDB(t)
	carRepo := repository.NewCarRepository(db)
	return NewCarService(carRepo, NewImageService(nil), storage), carRepo
}

func processedImages(t *testing.T, names ...string) []ProcessedImage {
	t.Helper()
	imgs := make([]ProcessedImage, 0, len(names))
	for _, name := range names {
		imgs = append(imgs, ProcessedImage{
			Filename:    name,
			ContentType: "image/jpeg",
			Data:        makeJPEG(t, 40, 30),
			Width:       40,
			Height:      30,
		})
	}
	return imgs
}

// ==================== 图片集合并 ====================

func TestReconcile_CountViolationMakesNoStorageCalls(t *testing.T) {
	spy := &spyStorage{}
	svc, _ := newTestCarService(t, spy)
	ctx := context.Background()

	retained := make([]string, 10)
	for i := range retained {
		retained[i] = fmt.Sprintf("https://cdn.test/cars/1/old%d.jpg", i)
	}

	// 10 保留 + 5 新 = 15 > 14
	_, rej := svc.Reconcile(ctx, 1, retained, "", processedImages(t, "a", "b", "c", "d", "e"),
		[]string{"https://cdn.test/cars/1/gone.jpg"}, CoverSelector{Index: -1})

	if rej == nil || rej.Reason != RejectTooManyImages {
		t.Fatal("超出数量上限应拒绝为 TOO_MANY_IMAGES")
	}
	if len(spy.uploads) != 0 || len(spy.deletes) != 0 {
		t.Errorf("数量预检失败时不允许任何存储调用: uploads=%d deletes=%d",
			len(spy.uploads), len(spy.deletes))
	}
}

func TestReconcile_PreservesOrder(t *testing.T) {
	spy := &spyStorage{}
	svc, _ := newTestCarService(t, spy)

	retained := []string{"https://cdn.test/cars/1/keep1.jpg", "https://cdn.test/cars/1/keep2.jpg"}
	result, rej := svc.Reconcile(context.Background(), 1, retained, "",
		processedImages(t, "new1.jpg", "new2.jpg"), nil, CoverSelector{Index: -1})
	if rej != nil {
		t.Fatalf("合并失败: %s", rej.Reason)
	}

	if len(result.Images) != 4 {
		t.Fatalf("合并后 %d 张, want 4", len(result.Images))
	}
	// 保留图原序在前，新图按选择顺序追加
	if result.Images[0] != retained[0] || result.Images[1] != retained[1] {
		t.Error("保留图顺序被打乱")
	}
	if !strings.Contains(result.Images[2], "new1.jpg") || !strings.Contains(result.Images[3], "new2.jpg") {
		t.Errorf("新图顺序错误: %v", result.Images[2:])
	}
}

func TestReconcile_UploadFailureAborts(t *testing.T) {
	spy := &spyStorage{failUploads: true}
	svc, _ := newTestCarService(t, spy)

	_, rej := svc.Reconcile(context.Background(), 1, nil, "",
		processedImages(t, "a.jpg"), []string{"https://cdn.test/cars/1/old.jpg"}, CoverSelector{Index: 0})

	if rej == nil || rej.Reason != RejectUploadFailed {
		t.Fatal("上传失败应拒绝为 UPLOAD_FAILED")
	}
	// 中止后不应继续做删除
	if len(spy.deletes) != 0 {
		t.Errorf("上传失败后不应执行删除: %v", spy.deletes)
	}
}

func TestReconcile_DeleteFailureTolerated(t *testing.T) {
	spy := &spyStorage{failDeletes: true}
	svc, _ := newTestCarService(t, spy)

	removed := []string{"https://cdn.test/cars/1/a.jpg", "https://cdn.test/cars/1/b.jpg"}
	result, rej := svc.Reconcile(context.Background(), 1,
		[]string{"https://cdn.test/cars/1/keep.jpg"}, "", nil, removed, CoverSelector{Index: -1})

	if rej != nil {
		t.Fatalf("删除失败不应导致合并失败: %s", rej.Reason)
	}
	// 每张都必须尝试过删除
	if len(spy.deletes) != 2 {
		t.Errorf("删除尝试 %d 次, want 2", len(spy.deletes))
	}
	if len(result.Images) != 1 {
		t.Errorf("结果集 %d 张, want 1", len(result.Images))
	}
}

// ==================== 封面归一 ====================

func TestResolveCover(t *testing.T) {
	images := []string{"https://cdn.test/a.jpg", "https://cdn.test/b.jpg", "https://cdn.test/c.jpg"}

	// 显式 URL 优先
	got := resolveCover(images, "https://cdn.test/a.jpg", CoverSelector{URL: "https://cdn.test/b.jpg", Index: 0})
	if got != "https://cdn.test/b.jpg" {
		t.Errorf("显式 URL 应优先: %s", got)
	}

	// 无 URL 时按索引
	got = resolveCover(images, "", CoverSelector{Index: 2})
	if got != "https://cdn.test/c.jpg" {
		t.Errorf("索引选择失败: %s", got)
	}

	// 索引越界回退到原封面
	got = resolveCover(images, "https://cdn.test/b.jpg", CoverSelector{Index: 99})
	if got != "https://cdn.test/b.jpg" {
		t.Errorf("越界索引应回退到原封面: %s", got)
	}

	// 原封面已被移除时回退到首图
	got = resolveCover(images, "https://cdn.test/removed.jpg", CoverSelector{Index: -1})
	if got != "https://cdn.test/a.jpg" {
		t.Errorf("原封面失效应回退到首图: %s", got)
	}

	// 指向不在集合里的显式 URL 同样回退
	got = resolveCover(images, "", CoverSelector{URL: "https://cdn.test/stranger.jpg", Index: -1})
	if got != "https://cdn.test/a.jpg" {
		t.Errorf("集合外的显式 URL 应回退到首图: %s", got)
	}

	// 空集合
	if got = resolveCover(nil, "whatever", CoverSelector{Index: 0}); got != "" {
		t.Errorf("空集合封面应为空: %s", got)
	}
}

// ==================== 新建 ====================

func TestAddCar(t *testing.T) {
	spy := &spyStorage{}
	svc, carRepo := newTestCarService(t, spy)
	ctx := context.Background()

	req := &dto.CarCreateReq{
		Title: "BMW 320d 2019", Marca: "BMW", Model: "320d",
		An: 2019, Pret: 18500, Km: 89000, Caroserie: "Sedan",
	}
	files := []ImageCandidate{
		{Filename: "front.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
		{Filename: "back.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
	}

	car, rej := svc.AddCar(ctx, 7, req, files, 1)
	if rej != nil {
		t.Fatalf("新建失败: %s (%s)", rej.Reason, rej.Message)
	}

	if len(car.Images) != 2 {
		t.Fatalf("图片 %d 张, want 2", len(car.Images))
	}
	// cover_index=1 → 第二张
	if car.CoverImage != car.Images[1] {
		t.Errorf("封面 = %s, want %s", car.CoverImage, car.Images[1])
	}
	// key 按 cars/{userID}/ 命名
	for _, key := range spy.uploads {
		if !strings.HasPrefix(key, "cars/7/") {
			t.Errorf("上传 key 前缀错误: %s", key)
		}
	}

	// 已入库
	saved, err := carRepo.GetByID(ctx, car.ID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if saved.Marca != "BMW" || len(saved.Images) != 2 {
		t.Error("入库数据不完整")
	}
}

func TestAddCar_GeneratesSlug(t *testing.T) {
	svc, carRepo := newTestCarService(t, &spyStorage{})
	ctx := context.Background()

	car, rej := svc.AddCar(ctx, 1, &dto.CarCreateReq{
		Title: "Mercedes-Benz C 200", Marca: "Mercedes-Benz", Model: "C 200",
		An: 2020, Pret: 27000, Caroserie: "Sedan",
	}, []ImageCandidate{
		{Filename: "c.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
	}, 0)
	if rej != nil {
		t.Fatalf("新建失败: %s", rej.Reason)
	}

	want := fmt.Sprintf("mercedes-benz-c-200-2020-%d", car.ID)
	if car.Slug != want {
		t.Errorf("slug = %s, want %s", car.Slug, want)
	}

	// slug 已落库且可反查
	found, err := carRepo.GetBySlug(ctx, want)
	if err != nil {
		t.Fatalf("按 slug 查询失败: %v", err)
	}
	if found.ID != car.ID {
		t.Errorf("slug 反查到 ID %d, want %d", found.ID, car.ID)
	}
}

func TestUpdateCar_RefreshesSlug(t *testing.T) {
	svc, _ := newTestCarService(t, &spyStorage{})
	ctx := context.Background()

	car, rej := svc.AddCar(ctx, 1, &dto.CarCreateReq{
		Title: "VW Golf", Marca: "Volkswagen", Model: "Golf", An: 2017, Pret: 11000, Caroserie: "Hatchback",
	}, []ImageCandidate{
		{Filename: "g.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
	}, 0)
	if rej != nil {
		t.Fatalf("新建失败: %s", rej.Reason)
	}

	updateReq := &dto.CarUpdateReq{ExistingImages: car.Images}
	updateReq.CarCreateReq = dto.CarCreateReq{
		Title: "VW Golf 7", Marca: "Volkswagen", Model: "Golf 7", An: 2018, Pret: 12500, Caroserie: "Hatchback",
	}

	updated, rej := svc.UpdateCar(ctx, car.ID, updateReq, nil)
	if rej != nil {
		t.Fatalf("编辑失败: %s", rej.Reason)
	}

	want := fmt.Sprintf("volkswagen-golf-7-2018-%d", car.ID)
	if updated.Slug != want {
		t.Errorf("编辑后 slug = %s, want %s", updated.Slug, want)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BMW 320d", "bmw-320d"},
		{"Mercedes-Benz   C 200", "mercedes-benz-c-200"},
		{"Škoda Octavia", "koda-octavia"},
		{"--Dacia--", "dacia"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddCar_RequiresAtLeastOneImage(t *testing.T) {
	svc, _ := newTestCarService(t, &spyStorage{})

	_, rej := svc.AddCar(context.Background(), 1, &dto.CarCreateReq{
		Title: "Fara poze", Marca: "Dacia", Model: "Logan", An: 2015, Pret: 4000, Caroserie: "Sedan",
	}, nil, 0)

	if rej == nil {
		t.Fatal("零图片新建应被拒绝")
	}
}

func TestAddCar_InvalidFileRejectsWholeBatch(t *testing.T) {
	spy := &spyStorage{}
	svc, carRepo := newTestCarService(t, spy)
	ctx := context.Background()

	files := []ImageCandidate{
		{Filename: "ok.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
		{Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	}

	_, rej := svc.AddCar(ctx, 1, &dto.CarCreateReq{
		Title: "Audi A4", Marca: "Audi", Model: "A4", An: 2018, Pret: 15000, Caroserie: "Sedan",
	}, files, 0)

	if rej == nil || rej.Reason != RejectNotAnImage {
		t.Fatal("混入非图片文件应整体拒绝")
	}
	// 校验在上传之前，失败批次不产生任何存储调用
	if len(spy.uploads) != 0 {
		t.Errorf("失败批次不应上传: %v", spy.uploads)
	}
	// 不应落库
	if _, total, _ := carRepo.List(ctx, repository.CarFilter{Page: 1, PageSize: 10}); total != 0 {
		t.Errorf("失败批次不应落库: %d 条记录", total)
	}
}

// ==================== 编辑 ====================

func TestUpdateCar_ReplaceAndRemove(t *testing.T) {
	spy := &spyStorage{}
	svc, _ := newTestCarService(t, spy)
	ctx := context.Background()

	car, rej := svc.AddCar(ctx, 1, &dto.CarCreateReq{
		Title: "VW Golf", Marca: "Volkswagen", Model: "Golf", An: 2020, Pret: 16000, Caroserie: "Hatchback",
	}, []ImageCandidate{
		{Filename: "a.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
		{Filename: "b.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
	}, 0)
	if rej != nil {
		t.Fatalf("新建失败: %s", rej.Reason)
	}
	oldA, oldB := car.Images[0], car.Images[1]

	// 保留 a, 丢弃 b, 加一张新图
	updateReq := &dto.CarUpdateReq{ExistingImages: []string{oldA}}
	updateReq.CarCreateReq = dto.CarCreateReq{
		Title: "VW Golf facelift", Marca: "Volkswagen", Model: "Golf", An: 2020, Pret: 15500, Caroserie: "Hatchback",
	}

	updated, rej := svc.UpdateCar(ctx, car.ID, updateReq, []ImageCandidate{
		{Filename: "c.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
	})
	if rej != nil {
		t.Fatalf("编辑失败: %s (%s)", rej.Reason, rej.Message)
	}

	if len(updated.Images) != 2 {
		t.Fatalf("编辑后 %d 张, want 2", len(updated.Images))
	}
	if updated.Images[0] != oldA {
		t.Error("保留图应在前")
	}
	// 被丢弃的 b 已从存储删除
	if len(spy.deletes) != 1 || spy.deletes[0] != oldB {
		t.Errorf("应删除被丢弃的旧图: %v", spy.deletes)
	}
	if updated.Title != "VW Golf facelift" || updated.Pret != 15500 {
		t.Error("表单字段未更新")
	}
}

func TestUpdateCar_CoverFallbackWhenRemoved(t *testing.T) {
	spy := &spyStorage{}
	svc, _ := newTestCarService(t, spy)
	ctx := context.Background()

	car, rej := svc.AddCar(ctx, 1, &dto.CarCreateReq{
		Title: "Ford Focus", Marca: "Ford", Model: "Focus", An: 2017, Pret: 9000, Caroserie: "Hatchback",
	}, []ImageCandidate{
		{Filename: "a.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
		{Filename: "b.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
	}, 1)
	if rej != nil {
		t.Fatalf("新建失败: %s", rej.Reason)
	}
	oldA, oldB := car.Images[0], car.Images[1]
	if car.CoverImage != oldB {
		t.Fatalf("封面应为第二张: %s", car.CoverImage)
	}

	// 删掉封面 b，只保留 a，不指定新封面
	updateReq := &dto.CarUpdateReq{ExistingImages: []string{oldA}}
	updateReq.CarCreateReq = dto.CarCreateReq{
		Title: "Ford Focus", Marca: "Ford", Model: "Focus", An: 2017, Pret: 9000, Caroserie: "Hatchback",
	}

	updated, rej := svc.UpdateCar(ctx, car.ID, updateReq, nil)
	if rej != nil {
		t.Fatalf("编辑失败: %s", rej.Reason)
	}
	// 封面自动回退到剩余首图
	if updated.CoverImage != oldA {
		t.Errorf("封面应回退到 %s, got %s", oldA, updated.CoverImage)
	}
}

func TestUpdateCar_RejectsEmptyResult(t *testing.T) {
	spy := &spyStorage{}
	svc, carRepo := newTestCarService(t, spy)
	ctx := context.Background()

	car, rej := svc.AddCar(ctx, 1, &dto.CarCreateReq{
		Title: "Opel Astra", Marca: "Opel", Model: "Astra", An: 2016, Pret: 7000, Caroserie: "Hatchback",
	}, []ImageCandidate{
		{Filename: "only.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
	}, 0)
	if rej != nil {
		t.Fatalf("新建失败: %s", rej.Reason)
	}

	// 丢弃全部图且不加新图
	updateReq := &dto.CarUpdateReq{ExistingImages: nil}
	updateReq.CarCreateReq = dto.CarCreateReq{
		Title: "Opel Astra", Marca: "Opel", Model: "Astra", An: 2016, Pret: 7000, Caroserie: "Hatchback",
	}

	uploadsBefore := len(spy.uploads)

	_, rej = svc.UpdateCar(ctx, car.ID, updateReq, nil)
	if rej == nil {
		t.Fatal("零图编辑结果应被拒绝")
	}

	// 拒绝必须发生在任何存储调用之前，旧图不能被删掉
	if len(spy.deletes) != 0 {
		t.Errorf("零图编辑不应触发删除, 实际删除了 %v", spy.deletes)
	}
	if len(spy.uploads) != uploadsBefore {
		t.Errorf("零图编辑不应触发上传")
	}

	// 记录里的图片列表保持原样
	saved, err := carRepo.GetByID(ctx, car.ID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(saved.Images) != 1 || saved.Images[0] != car.Images[0] {
		t.Errorf("记录图片应保持不变: %v", saved.Images)
	}
}

// ==================== 删除 ====================

func TestDeleteCar_BlobFailureDoesNotBlockRecordDelete(t *testing.T) {
	spy := &spyStorage{}
	svc, carRepo := newTestCarService(t, spy)
	ctx := context.Background()

	car, rej := svc.AddCar(ctx, 1, &dto.CarCreateReq{
		Title: "Skoda Octavia", Marca: "Skoda", Model: "Octavia", An: 2021, Pret: 19000, Caroserie: "Combi",
	}, []ImageCandidate{
		{Filename: "x.jpg", ContentType: "image/jpeg", Data: makeJPEG(t, 100, 80)},
	}, 0)
	if rej != nil {
		t.Fatalf("新建失败: %s", rej.Reason)
	}

	spy.failDeletes = true
	if err := svc.DeleteCar(ctx, car.ID); err != nil {
		t.Fatalf("存储删除失败不应阻止记录删除: %v", err)
	}

	if _, err := carRepo.GetByID(ctx, car.ID); err == nil {
		t.Error("记录应已删除")
	}
}

// ==================== 查询 ====================

func TestListCars_FilterAndSort(t *testing.T) {
	svc, carRepo := newTestCarService(t, &spyStorage{})
	ctx := context.Background()

	seed := []model.Car{
		{Title: "BMW 320d", Marca: "BMW", Model: "320d", An: 2019, Pret: 18500, Caroserie: "Sedan"},
		{Title: "BMW X5", Marca: "BMW", Model: "X5", An: 2021, Pret: 45000, Caroserie: "SUV"},
		{Title: "Dacia Logan", Marca: "Dacia", Model: "Logan", An: 2015, Pret: 4000, Caroserie: "Sedan"},
	}
	for i := range seed {
		if err := carRepo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("种子数据失败: %v", err)
		}
	}

	// 按品牌过滤
	cars, total, err := svc.ListCars(ctx, repository.CarFilter{Marca: "BMW", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if total != 2 || len(cars) != 2 {
		t.Errorf("BMW 过滤: total=%d len=%d, want 2", total, len(cars))
	}

	// 价格区间
	_, total, _ = svc.ListCars(ctx, repository.CarFilter{PretMin: 5000, PretMax: 20000, Page: 1, PageSize: 10})
	if total != 1 {
		t.Errorf("价格区间过滤: total=%d, want 1", total)
	}

	// 价格升序
	cars, _, _ = svc.ListCars(ctx, repository.CarFilter{SortBy: "price-asc", Page: 1, PageSize: 10})
	if len(cars) != 3 || cars[0].Pret != 4000 || cars[2].Pret != 45000 {
		t.Error("价格升序排序错误")
	}

	// 品牌去重列表
	marci, err := svc.ListMarci(ctx)
	if err != nil {
		t.Fatalf("品牌列表失败: %v", err)
	}
	if len(marci) != 2 {
		t.Errorf("去重品牌 %d 个, want 2: %v", len(marci), marci)
	}
}

// ==================== 上传 key 命名 ====================

func TestUploadKeyNaming(t *testing.T) {
	spy := &spyStorage{}
	svc, _ := newTestCarService(t, spy)

	before := time.Now().UnixMilli()
	_, rej := svc.Reconcile(context.Background(), 42, nil, "",
		processedImages(t, "poza.jpg"), nil, CoverSelector{Index: 0})
	if rej != nil {
		t.Fatalf("合并失败: %s", rej.Reason)
	}

	if len(spy.uploads) != 1 {
		t.Fatalf("上传 %d 次, want 1", len(spy.uploads))
	}
	key := spy.uploads[0]
	// cars/{userID}/{timestamp}_{filename}
	var userID, ts int64
	var name string
	if _, err := fmt.Sscanf(key, "cars/%d/%d_%s", &userID, &ts, &name); err != nil {
		t.Fatalf("key 格式错误: %s", key)
	}
	if userID != 42 || name != "poza.jpg" {
		t.Errorf("key 内容错误: %s", key)
	}
	if ts < before || ts > time.Now().UnixMilli() {
		t.Errorf("时间戳异常: %d", ts)
	}
}
