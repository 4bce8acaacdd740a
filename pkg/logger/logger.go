package logger

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 确保 BaseLogger 实现了 Logger 接口
var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的日志记录器实现
type BaseLogger struct {
	zl               *zap.Logger
	level            zap.AtomicLevel
	config           *Config
	name             string
	hooks            []Hook
	extraWriters     []io.Writer
	contextExtractor ContextFieldExtractor
}

// New 创建新的 BaseLogger，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (*BaseLogger, error) {
	merged := DefaultConfig()
	if cfg != nil {
		mergeInto(merged, cfg)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	l := &BaseLogger{
		config:           merged,
		level:            zap.NewAtomicLevelAt(parseLevel(merged.Level)),
		contextExtractor: DefaultContextExtractor,
	}
	for _, opt := range opts {
		opt(l)
	}
	if len(merged.SensitiveKeys) > 0 {
		l.hooks = append(l.hooks, SensitiveDataHook(merged.SensitiveKeys...))
	}

	zl, err := l.build()
	if err != nil {
		return nil, err
	}
	l.zl = zl
	return l, nil
}

// mergeInto 只覆盖用户显式设置的字段
func mergeInto(dst, src *Config) {
	if src.Level != "" {
		dst.Level = src.Level
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	// 输出开关作为一组处理：用户至少打开一个时以用户为准
	if src.EnableConsole || src.EnableFile {
		dst.EnableConsole = src.EnableConsole
		dst.EnableFile = src.EnableFile
	}
	if src.OutputPath != "" {
		dst.OutputPath = src.OutputPath
	}
	if src.TimeFormat != "" {
		dst.TimeFormat = src.TimeFormat
	}
	if src.Rotation.Type != "" {
		dst.Rotation = src.Rotation
	}
	if src.StacktraceLevel != "" {
		dst.StacktraceLevel = src.StacktraceLevel
	}
	dst.Development = src.Development
	for k, v := range src.GlobalFields {
		dst.GlobalFields[k] = v
	}
	dst.SensitiveKeys = append(dst.SensitiveKeys, src.SensitiveKeys...)
}

// build 构建 zap logger
func (l *BaseLogger) build() (*zap.Logger, error) {
	encoderConfig := l.buildEncoderConfig()

	var encoder zapcore.Encoder
	switch l.config.Format {
	case ConsoleFormat:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writers := make([]zapcore.WriteSyncer, 0, 2+len(l.extraWriters))
	if l.config.EnableConsole {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if l.config.EnableFile {
		fileWriter, err := NewRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create rotation writer")
		}
		writers = append(writers, zapcore.AddSync(fileWriter))
	}
	for _, w := range l.extraWriters {
		writers = append(writers, zapcore.AddSync(w))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), l.level)
	if len(l.hooks) > 0 {
		core = NewHookedCore(core, l.hooks...)
	}

	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	}
	if l.config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(parseLevel(l.config.StacktraceLevel)))
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	zl := zap.New(core, options...)

	if len(l.config.GlobalFields) > 0 {
		fields := make([]zap.Field, 0, len(l.config.GlobalFields))
		for k, v := range l.config.GlobalFields {
			fields = append(fields, zap.Any(k, v))
		}
		zl = zl.With(fields...)
	}
	if l.name != "" {
		zl = zl.Named(l.name)
	}
	return zl, nil
}

// buildEncoderConfig 构建 encoder 配置
func (l *BaseLogger) buildEncoderConfig() zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if l.config.TimeFormat != "" {
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(l.config.TimeFormat)
	} else {
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if l.config.Development && l.config.Format == ConsoleFormat {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg
}

// parseLevel 解析日志等级
func parseLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel 动态调整日志等级（配置热更新时使用）
func (l *BaseLogger) SetLevel(level Level) {
	l.level.SetLevel(parseLevel(level))
}

// CurrentLevel 返回当前生效的日志等级
func (l *BaseLogger) CurrentLevel() Level {
	return Level(l.level.Level().String())
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...any) {
	l.zl.Debug(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...any) {
	l.zl.Info(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...any) {
	l.zl.Warn(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...any) {
	l.zl.Error(msg, toZapFields(keysAndValues...)...)
}

// DebugContext 记录 debug 级别日志，并从 context 中提取字段
func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.zl.Debug(msg, append(l.contextExtractor(ctx), toZapFields(keysAndValues...)...)...)
}

// InfoContext 记录 info 级别日志，并从 context 中提取字段
func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.zl.Info(msg, append(l.contextExtractor(ctx), toZapFields(keysAndValues...)...)...)
}

// WarnContext 记录 warn 级别日志，并从 context 中提取字段
func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.zl.Warn(msg, append(l.contextExtractor(ctx), toZapFields(keysAndValues...)...)...)
}

// ErrorContext 记录 error 级别日志，并从 context 中提取字段
func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.zl.Error(msg, append(l.contextExtractor(ctx), toZapFields(keysAndValues...)...)...)
}

// Named 创建具名 logger
func (l *BaseLogger) Named(name string) Logger {
	cp := *l
	cp.zl = l.zl.Named(name)
	cp.name = name
	return &cp
}

// WithFields 添加字段
func (l *BaseLogger) WithFields(keysAndValues ...any) Logger {
	fields := toZapFields(keysAndValues...)
	if len(fields) == 0 {
		return l
	}
	cp := *l
	cp.zl = l.zl.With(fields...)
	return &cp
}

// Sync 同步日志
func (l *BaseLogger) Sync() error {
	return l.zl.Sync()
}

// toZapFields 将 key-value 对转换为 zap.Field
func toZapFields(keysAndValues ...any) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}

	if _, ok := keysAndValues[0].(zap.Field); ok {
		fields := make([]zap.Field, 0, len(keysAndValues))
		for _, v := range keysAndValues {
			if f, ok := v.(zap.Field); ok {
				fields = append(fields, f)
			}
		}
		return fields
	}

	// 奇数个参数时丢弃最后一个孤立的 key
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
