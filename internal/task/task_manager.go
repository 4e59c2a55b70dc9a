package task

import (
	"log"
	"time"

	"jiancai_surplus_v1/internal/service"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台定时任务
// 管理范围：闲置流程清理、分类缓存同步
type TaskManager struct {
	cleanupTask  *SessionCleanupTask
	categoryTask *CategorySyncTask
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	CleanupEnabled bool
	SessionMaxIdle time.Duration

	CategoryEnabled bool
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CleanupEnabled: true,
		SessionMaxIdle: 24 * time.Hour,

		CategoryEnabled: true,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(workflowService *service.WorkflowService, categoryService *service.CategoryService, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if cfg.CleanupEnabled && workflowService != nil {
		tm.cleanupTask = NewSessionCleanupTask(workflowService, cfg.SessionMaxIdle)
	}
	if cfg.CategoryEnabled && categoryService != nil {
		tm.categoryTask = NewCategorySyncTask(categoryService)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动后台任务...")

	if tm.cleanupTask != nil {
		tm.cleanupTask.Start()
	}
	if tm.categoryTask != nil {
		tm.categoryTask.Start()
	}

	log.Println("[TaskManager] 后台任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止后台任务...")

	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}
	if tm.categoryTask != nil {
		tm.categoryTask.Stop()
	}

	log.Println("[TaskManager] 后台任务已全部停止")
}

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"cleanup":  tm.cleanupTask != nil,
		"category": tm.categoryTask != nil,
	}
}
