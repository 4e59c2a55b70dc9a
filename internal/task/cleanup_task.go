package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"jiancai_surplus_v1/internal/service"
)

// ==================== 闲置流程清理任务 ====================

// SessionCleanupTask 定时回收闲置的提交流程实例
// 实例销毁只释放内存与暂存图片，落盘草稿保留供用户下次恢复
type SessionCleanupTask struct {
	workflowService *service.WorkflowService
	Cron            *cron.Cron

	maxIdle time.Duration
}

func NewSessionCleanupTask(workflowService *service.WorkflowService, maxIdle time.Duration) *SessionCleanupTask {
	if maxIdle <= 0 {
		maxIdle = 24 * time.Hour
	}
	return &SessionCleanupTask{
		workflowService: workflowService,
		Cron:            cron.New(cron.WithSeconds()), // 支持秒级控制
		maxIdle:         maxIdle,
	}
}

// Start 启动定时清理
func (t *SessionCleanupTask) Start() {
	// 每小时执行一次
	_, err := t.Cron.AddFunc("0 0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		t.sweep(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动流程清理任务: %v", err)
	}

	t.Cron.Start()
	log.Println("[SessionCleanupTask] 流程清理任务已启动 (每小时检查一次)")
}

// Stop 停止任务
func (t *SessionCleanupTask) Stop() {
	t.Cron.Stop()
}

func (t *SessionCleanupTask) sweep(ctx context.Context) {
	count := t.workflowService.SweepIdle(ctx, t.maxIdle)
	if count > 0 {
		log.Printf("[SessionCleanupTask] 已回收 %d 个闲置流程", count)
	}
}
