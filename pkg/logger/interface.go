package logger

import "context"

// Logger 键值对日志接口。组件按职责命名子日志（Named("store.state")、Named("dao.cache")），
// 测试中使用 NoopLogger。
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	// *Context 变体附加 ContextFieldExtractor 从 ctx 中取出的字段（如 request_id）
	DebugContext(ctx context.Context, msg string, keysAndValues ...any)
	InfoContext(ctx context.Context, msg string, keysAndValues ...any)
	WarnContext(ctx context.Context, msg string, keysAndValues ...any)
	ErrorContext(ctx context.Context, msg string, keysAndValues ...any)

	Named(name string) Logger
	WithFields(keysAndValues ...any) Logger

	Sync() error
}
