package sentry

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
)

// Config Sentry 配置
type Config struct {
	// Enabled 关闭时客户端所有方法都是空操作
	Enabled bool `mapstructure:"enabled"`
	// DSN 为空时 SDK 丢弃事件，适合本地运行
	DSN         string            `mapstructure:"dsn"`
	Environment string            `mapstructure:"environment"`
	Release     string            `mapstructure:"release"`
	ServerName  string            `mapstructure:"server_name"`
	SampleRate  float64           `mapstructure:"sample_rate"` // 0-1
	Tags        map[string]string `mapstructure:"tags"`

	// FlushTimeout Close 时等待事件发送的最长时间
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Environment:  "production",
		SampleRate:   1.0,
		FlushTimeout: 2 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return errors.Wrapf(ErrInvalidConfig, "sample_rate %v out of [0,1]", c.SampleRate)
	}
	if c.FlushTimeout < 0 {
		return errors.Wrap(ErrInvalidConfig, "flush_timeout must not be negative")
	}
	return nil
}

func (c *Config) clientOptions() sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              c.DSN,
		Environment:      c.Environment,
		Release:          c.Release,
		ServerName:       c.ServerName,
		SampleRate:       c.SampleRate,
		AttachStacktrace: true,
	}
}
