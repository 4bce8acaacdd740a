// Package errors 业务错误码
package errors

import "net/http"

// 常见业务错误码
const (
	CodeOK            = 0
	CodeInvalidParams = 40001
	CodeNotFound      = 40004
	CodeConflict      = 40009
	CodeRateLimited   = 40029
	CodeInternalError = 50000
)

// CodeToStatus 将业务错误码映射为 HTTP 状态码
func CodeToStatus(code int) int {
	switch {
	case code == CodeOK:
		return http.StatusOK
	case code == CodeNotFound:
		return http.StatusNotFound
	case code == CodeRateLimited:
		return http.StatusTooManyRequests
	case code >= 40000 && code < 50000:
		// 冲突也按 400 返回，客户端靠消息文本区分
		return http.StatusBadRequest
	case code >= 50000:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
