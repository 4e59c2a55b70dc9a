package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"jiancai_surplus_v1/internal/service"
)

// ==================== 分类同步任务 ====================

// CategorySyncTask 定时从主站刷新分类缓存
type CategorySyncTask struct {
	categoryService *service.CategoryService
	Cron            *cron.Cron
}

func NewCategorySyncTask(categoryService *service.CategoryService) *CategorySyncTask {
	return &CategorySyncTask{
		categoryService: categoryService,
		Cron:            cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时同步
func (t *CategorySyncTask) Start() {
	// 首次执行，保证启动后分类可用
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		log.Println("[CategorySyncTask] 服务启动，正在执行首次分类同步...")
		if err := t.categoryService.Sync(ctx); err != nil {
			log.Printf("[CategorySyncTask] 首次分类同步失败: %v", err)
		}
	}()

	// 每6小时刷新
	_, err := t.Cron.AddFunc("0 0 */6 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := t.categoryService.Sync(ctx); err != nil {
			log.Printf("[CategorySyncTask] 分类同步失败: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("无法启动分类同步任务: %v", err)
	}

	t.Cron.Start()
	log.Println("[CategorySyncTask] 分类同步任务已启动 (每6小时刷新一次)")
}

// Stop 停止任务
func (t *CategorySyncTask) Stop() {
	t.Cron.Stop()
}
