package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== ActionRateLimiter 操作冷却限流器 ====================

// ActionRateLimiter 用户敏感操作的冷却限流器
// 抑制对提交、图片上传等开销较大操作的高频触发
type ActionRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// 全局限流器实例
var globalLimiter = &ActionRateLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *ActionRateLimiter {
	return globalLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时同步更新最后执行时间
// key: 限流键，如 "user:123:submit"
// interval: 冷却间隔
func (r *ActionRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *ActionRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成工具 ====================

// ActionType 操作类型
type ActionType string

const (
	ActionSubmit ActionType = "submit"
	ActionUpload ActionType = "upload"
)

// UserActionKey 生成用户级操作 Key
func UserActionKey(userID int64, action ActionType) string {
	return fmt.Sprintf("user:%d:%s", userID, action)
}

// ==================== 默认冷却间隔 ====================

// DefaultIntervals 默认冷却间隔配置
var DefaultIntervals = map[ActionType]time.Duration{
	ActionSubmit: 3 * time.Second,
	ActionUpload: 1 * time.Second,
}

// GetInterval 获取操作类型的默认冷却间隔
func GetInterval(action ActionType) time.Duration {
	if interval, ok := DefaultIntervals[action]; ok {
		return interval
	}
	return 3 * time.Second
}
