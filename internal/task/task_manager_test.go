package task

import (
	"context"
	"testing"
	"time"

	"jiancai_surplus_v1/internal/repository"
	"jiancai_surplus_v1/internal/service"
)

func newTestWorkflowService() *service.WorkflowService {
	return service.NewWorkflowService(
		repository.NewMemoryDraftStore(),
		nil,
		nil,
		nil,
		time.Hour,
	)
}

// ==================== TaskManager 测试 ====================

func TestTaskManager_ConfigGating(t *testing.T) {
	svc := newTestWorkflowService()

	tm := NewTaskManager(svc, nil, &TaskManagerConfig{
		CleanupEnabled:  true,
		SessionMaxIdle:  time.Hour,
		CategoryEnabled: true, // 无分类服务，应跳过
	})

	status := tm.Status()
	if !status["cleanup"] {
		t.Error("清理任务应已注册")
	}
	if status["category"] {
		t.Error("缺少分类服务时不应注册同步任务")
	}
}

func TestTaskManager_AllDisabled(t *testing.T) {
	tm := NewTaskManager(newTestWorkflowService(), nil, &TaskManagerConfig{})

	status := tm.Status()
	if status["cleanup"] || status["category"] {
		t.Errorf("全部禁用时不应注册任务: %v", status)
	}

	// 空管理器的启停不应出错
	tm.Start()
	tm.Stop()
}

// ==================== 清理任务 ====================

func TestSessionCleanupTask_Schedule(t *testing.T) {
	task := NewSessionCleanupTask(newTestWorkflowService(), time.Hour)
	task.Start()
	defer task.Stop()

	if len(task.Cron.Entries()) != 1 {
		t.Errorf("应注册 1 个定时条目, got %d", len(task.Cron.Entries()))
	}
}

func TestSessionCleanupTask_DefaultMaxIdle(t *testing.T) {
	task := NewSessionCleanupTask(newTestWorkflowService(), 0)
	if task.maxIdle != 24*time.Hour {
		t.Errorf("maxIdle = %v, want 24h", task.maxIdle)
	}
}

func TestSessionCleanupTask_Sweep(t *testing.T) {
	svc := newTestWorkflowService()
	ctx := context.Background()

	sess, _, err := svc.Open(ctx, 42, "test-token")
	if err != nil {
		t.Fatalf("打开流程失败: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	task := NewSessionCleanupTask(svc, 1*time.Millisecond)
	task.sweep(ctx)

	if _, err := svc.Get(sess.ID, 42); err == nil {
		t.Error("闲置流程应被回收")
	}
}
