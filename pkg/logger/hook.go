package logger

import (
	"go.uber.org/zap/zapcore"
)

// Hook 日志写入前的回调；sentry 上报与脱敏都以 Hook 形式挂到 logger 上
type Hook interface {
	// OnWrite 返回 false 时丢弃该条日志，后续钩子不再执行
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

// HookFunc 函数式 Hook
type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

// HookedCore 在写入前依次执行钩子
type HookedCore struct {
	zapcore.Core
	hooks []Hook
}

// NewHookedCore 创建带钩子的 Core
func NewHookedCore(core zapcore.Core, hooks ...Hook) zapcore.Core {
	return &HookedCore{
		Core:  core,
		hooks: hooks,
	}
}

func (h *HookedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if h.Enabled(entry.Level) {
		return ce.AddCore(entry, h)
	}
	return ce
}

func (h *HookedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	for _, hook := range h.hooks {
		if !hook.OnWrite(entry, fields) {
			return nil
		}
	}
	return h.Core.Write(entry, fields)
}

func (h *HookedCore) With(fields []zapcore.Field) zapcore.Core {
	return &HookedCore{
		Core:  h.Core.With(fields),
		hooks: h.hooks,
	}
}

const redacted = "***REDACTED***"

// SensitiveDataHook 按字段名脱敏，如远端地址中的凭据 (dsn、password)
func SensitiveDataHook(keys ...string) Hook {
	sensitive := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		sensitive[k] = struct{}{}
	}
	return HookFunc(func(_ zapcore.Entry, fields []zapcore.Field) bool {
		for i, f := range fields {
			if _, ok := sensitive[f.Key]; ok {
				fields[i] = zapcore.Field{Key: f.Key, Type: zapcore.StringType, String: redacted}
			}
		}
		return true
	})
}
