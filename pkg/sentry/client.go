// Package sentry 错误上报：Error 级日志、HTTP panic 与显式捕获的错误发送到 Sentry。
package sentry

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/aquarium/pkg/config"
	"github.com/lk2023060901/aquarium/pkg/logger"
)

// Client Sentry 客户端；未启用时 hub 为 nil，所有方法都是空操作
type Client struct {
	hub *sentry.Hub
	cfg *Config
}

// Option 客户端选项
type Option func(*sentry.ClientOptions)

// WithBeforeSend 发送前回调，返回 nil 丢弃事件
func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) Option {
	return func(o *sentry.ClientOptions) { o.BeforeSend = fn }
}

// New 创建客户端。在 logger 之前创建，以便把 LogHook 交给 logger。
func New(cfg *Config, opts ...Option) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge sentry config")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if !merged.Enabled {
		return &Client{cfg: merged}, nil
	}

	co := merged.clientOptions()
	for _, opt := range opts {
		opt(&co)
	}
	client, err := sentry.NewClient(co)
	if err != nil {
		return nil, errors.Wrap(err, "create sentry client")
	}
	scope := sentry.NewScope()
	scope.SetTags(merged.Tags)
	return &Client{hub: sentry.NewHub(client, scope), cfg: merged}, nil
}

// Enabled 是否会上报
func (c *Client) Enabled() bool {
	return c != nil && c.hub != nil
}

// CaptureError 上报错误，tags 附加到本次事件
func (c *Client) CaptureError(err error, tags map[string]string) {
	if c.hub == nil || err == nil {
		return
	}
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		c.hub.CaptureException(err)
	})
}

// LogHook Error 及以上级别的日志作为事件上报；日志本身照常输出
func (c *Client) LogHook() logger.Hook {
	return logger.HookFunc(func(entry zapcore.Entry, fields []zapcore.Field) bool {
		if c.hub == nil || entry.Level < zapcore.ErrorLevel {
			return true
		}
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
		}
		event := sentry.NewEvent()
		event.Level = sentry.LevelError
		event.Message = entry.Message
		event.Logger = entry.LoggerName
		event.Timestamp = entry.Time
		event.Extra = enc.Fields
		c.hub.CaptureEvent(event)
		return true
	})
}

// Close 等待未发送的事件，实现 app.Closer
func (c *Client) Close() error {
	if c.hub == nil {
		return nil
	}
	if !c.hub.Flush(c.cfg.FlushTimeout) {
		return errors.Newf("sentry flush timed out after %s", c.cfg.FlushTimeout)
	}
	return nil
}

func (c *Client) recovered(ctx context.Context, v any, tags map[string]string) {
	if c.hub == nil {
		return
	}
	hub := c.hub.Clone()
	hub.Scope().SetTags(tags)
	hub.RecoverWithContext(ctx, v)
}
