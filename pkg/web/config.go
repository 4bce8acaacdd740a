package web

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/aquarium/pkg/cache/lru"
)

// Config Web 服务配置
type Config struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes 请求体上限，玩家文档整体提交
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	AllowOrigins []string `mapstructure:"allow_origins"` // 为空时允许所有来源
}

// RateLimitConfig 按客户端 IP 的令牌桶限流
type RateLimitConfig struct {
	Enabled           bool       `mapstructure:"enabled"`
	RequestsPerSecond float64    `mapstructure:"requests_per_second"`
	Burst             int        `mapstructure:"burst"`
	SkipPaths         []string   `mapstructure:"skip_paths"`
	Limiters          lru.Config `mapstructure:"limiters"`
}

// DefaultConfig 返回默认配置；开关类字段默认关闭，由配置显式打开
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		Mode:            gin.ReleaseMode,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxBodyBytes:    1 << 20,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			SkipPaths:         []string{"/healthz", "/metrics"},
			Limiters: lru.Config{
				MaxSize:         10000,
				TTL:             10 * time.Minute,
				CleanupInterval: time.Minute,
			},
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.Wrap(ErrInvalidConfig, "addr is required")
	}
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown mode %q", c.Mode)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return errors.Wrap(ErrInvalidConfig, "rate_limit requires positive requests_per_second and burst")
	}
	return nil
}
