package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"carhub_dev_v1_202608/internal/repository"
	"carhub_dev_v1_202608/internal/service"
)

// ==================== OrphanSweepTask 孤儿图片清扫 ====================

// OrphanSweepTask 定时清扫存储里没有任何广告引用的图片。
// 上传成功但落库失败、编辑中途放弃等情况都会留下孤儿 blob，
// 写路径对此一律容忍，统一交给本任务兜底回收。
type OrphanSweepTask struct {
	CarRepo repository.CarRepository
	Storage *service.StorageService
	Cron    *cron.Cron

	// 保护窗口：太新的 blob 可能属于正在进行的上传，跳过不删
	minAge time.Duration
}

func NewOrphanSweepTask(carRepo repository.CarRepository, storage *service.StorageService) *OrphanSweepTask {
	return &OrphanSweepTask{
		CarRepo: carRepo,
		Storage: storage,
		Cron:    cron.New(cron.WithSeconds()),
		minAge:  24 * time.Hour,
	}
}

// Start 启动定时任务
func (t *OrphanSweepTask) Start() {
	// 每天凌晨 3 点清扫一次
	_, err := t.Cron.AddFunc("0 0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		t.RunOnce(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动孤儿图片清扫任务: %v", err)
	}

	t.Cron.Start()
	log.Println("[Task] 孤儿图片清扫任务已启动 (每天 03:00)")
}

// Stop 停止定时任务
func (t *OrphanSweepTask) Stop() {
	if t.Cron != nil {
		t.Cron.Stop()
	}
	log.Println("[Task] 孤儿图片清扫任务已停止")
}

// RunOnce 执行一轮清扫，返回删除数量
func (t *OrphanSweepTask) RunOnce(ctx context.Context) int {
	referenced, err := t.CarRepo.AllImageURLs(ctx)
	if err != nil {
		log.Printf("[Cron] 查询在用图片失败: %v", err)
		return 0
	}
	inUse := make(map[string]struct{}, len(referenced))
	for _, url := range referenced {
		inUse[url] = struct{}{}
	}

	objects, err := t.Storage.List(ctx, "cars/")
	if err != nil {
		log.Printf("[Cron] 列举存储对象失败: %v", err)
		return 0
	}

	cutoff := time.Now().Add(-t.minAge)
	deleted := 0
	for _, obj := range objects {
		select {
		case <-ctx.Done():
			log.Println("[Cron] 清扫任务超时停止")
			return deleted
		default:
		}

		if _, ok := inUse[obj.URL]; ok {
			continue
		}
		if obj.LastModified.After(cutoff) {
			// 可能是进行中的上传，留到下一轮
			continue
		}

		if err := t.Storage.Delete(ctx, obj.URL); err != nil {
			// 删不掉就留着，下一轮再试
			log.Printf("[Cron] 删除孤儿图片失败 [%s]: %v", obj.Key, err)
			continue
		}
		deleted++
	}

	log.Printf("[Cron] 本轮孤儿图片清扫完成: 共 %d 个对象, 在用 %d, 删除 %d", len(objects), len(inUse), deleted)
	return deleted
}
