// Package security 提供调用方身份提取和频率限制
package security

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/paiban/shiftassign/internal/tenant"
)

// 网关透传的身份头
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderTenantID = "X-Tenant-ID"
)

var (
	ErrInvalidIdentity   = errors.New("无效的身份头")
	ErrRateLimitExceeded = errors.New("请求频率超限")
)

// ExtractCaller 从身份头构造调用方，缺失的头保持为空
func ExtractCaller(r *http.Request) (tenant.Caller, error) {
	caller := tenant.Caller{Role: strings.TrimSpace(r.Header.Get(HeaderUserRole))}

	if v := strings.TrimSpace(r.Header.Get(HeaderUserID)); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return tenant.Caller{}, ErrInvalidIdentity
		}
		caller.UserID = &id
	}
	if v := strings.TrimSpace(r.Header.Get(HeaderTenantID)); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return tenant.Caller{}, ErrInvalidIdentity
		}
		caller.TenantID = &id
	}
	return caller, nil
}

// RateLimiter 按键（通常为租户）的令牌桶限流器
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 创建限流器；perSecond <= 0 时不限流
func NewRateLimiter(perSecond, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimiter{
		limit:   limit,
		burst:   burst,
		idle:    10 * time.Minute,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Cleanup 清理长时间未访问的桶，返回清理数量
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	removed := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Len 返回当前桶数量
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
