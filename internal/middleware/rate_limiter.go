package middleware

import (
	"sync"
	"time"
)

// ==================== OpRateLimiter 操作限流器 ====================

// OpRateLimiter 操作级限流器
// 给登录尝试和手动触发的迁移这类昂贵操作加冷却间隔
type OpRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// 全局限流器实例
var globalLimiter = &OpRateLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *OpRateLimiter {
	return globalLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行
// key: 限流键，如 "migration:brands" 或 "login:1.2.3.4"
// interval: 冷却间隔
func (r *OpRateLimiter) Check(key string, interval time.Duration) CheckResult {
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
	return CheckResult{
		Allowed:    true,
		RetryAfter: 0,
	}
}

// Reset 清除限流键 (操作失败后允许立即重试时用)
func (r *OpRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}
