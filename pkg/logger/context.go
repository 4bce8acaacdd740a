package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取字段的函数类型
type ContextFieldExtractor func(ctx context.Context) []zap.Field

type ctxKey struct{}

// ContextWithRequestID 在 context 中携带请求/会话 ID
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestIDFromContext 读取 context 中的请求/会话 ID
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// DefaultContextExtractor 默认提取器：输出 request_id
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	if id, ok := RequestIDFromContext(ctx); ok {
		return []zap.Field{zap.String("request_id", id)}
	}
	return nil
}
