package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/lk2023060901/aquarium/pkg/cache/lru"
	"github.com/lk2023060901/aquarium/pkg/logger"
	weberrors "github.com/lk2023060901/aquarium/pkg/web/errors"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond float64
	// Burst 突发容量
	Burst int
	// PerIP 是否按 IP 限流
	PerIP bool
	// PerPath 是否按路径限流
	PerPath bool
	// SkipPaths 跳过的路径
	SkipPaths []string
	// WaitMode 等待模式（true=等待，false=拒绝）
	WaitMode bool
	// WaitTimeout 等待超时
	WaitTimeout time.Duration
	// KeyFunc 自定义限流键生成函数
	KeyFunc func(*gin.Context) string
	// Limiters 按键限流器表
	Limiters lru.Config
}

// RateLimiter 限流器
type RateLimiter struct {
	cfg      *RateLimitConfig
	global   *rate.Limiter
	limiters *lru.LRU[string, *rate.Limiter]
	logger   logger.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(l logger.Logger, cfg *RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:    cfg,
		global: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger: l,
	}
	rl.limiters = lru.New(cfg.Limiters,
		lru.WithOnEvict(func(key string, _ *rate.Limiter) {
			l.Debug("rate limiter evicted", "key", key)
		}),
	)
	return rl
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	if key == "" {
		return rl.global.Allow()
	}
	return rl.getLimiter(key).Allow()
}

// Wait 等待直到允许请求
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	if key == "" {
		return rl.global.Wait(ctx)
	}
	return rl.getLimiter(key).Wait(ctx)
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	return rl.limiters.GetOrCreate(key, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)
	})
}

// Close 关闭限流器
func (rl *RateLimiter) Close() error {
	return rl.limiters.Close()
}

// RateLimit 限流中间件
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(limiter.cfg.SkipPaths))
	for _, path := range limiter.cfg.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, skip := skipPaths[path]; skip {
			c.Next()
			return
		}

		key := generateKey(c, limiter.cfg)

		if limiter.cfg.WaitMode {
			ctx := c.Request.Context()
			if limiter.cfg.WaitTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, limiter.cfg.WaitTimeout)
				defer cancel()
			}
			if err := limiter.Wait(ctx, key); err != nil {
				limiter.logger.Warn("rate limit wait timeout", "key", key, "path", path, "error", err)
				abortWithRateLimitError(c)
				return
			}
		} else if !limiter.Allow(key) {
			limiter.logger.Warn("rate limit exceeded", "key", key, "path", path)
			abortWithRateLimitError(c)
			return
		}

		c.Next()
	}
}

// generateKey 生成限流键；为空时使用全局限流器
func generateKey(c *gin.Context, cfg *RateLimitConfig) string {
	if cfg.KeyFunc != nil {
		return cfg.KeyFunc(c)
	}

	var key string
	if cfg.PerIP {
		key = "ip:" + c.ClientIP()
	}
	if cfg.PerPath {
		if key != "" {
			key += ":path:" + c.Request.URL.Path
		} else {
			key = "path:" + c.Request.URL.Path
		}
	}
	return key
}

func abortWithRateLimitError(c *gin.Context) {
	c.Header("Retry-After", strconv.Itoa(1))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    weberrors.CodeRateLimited,
		"message": "too many requests",
		"data":    nil,
	})
}
