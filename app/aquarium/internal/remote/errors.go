package remote

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound 玩家文档不存在（可恢复，触发创建）
	ErrNotFound = errors.New("remote: player not found")

	// ErrAlreadyExists 创建时文档已存在（并发创建的良性竞争）
	ErrAlreadyExists = errors.New("remote: player already exists")

	// ErrNetwork 传输层失败（连接、超时、读响应）
	ErrNetwork = errors.New("remote: network failure")

	// ErrServer 服务端 5xx 或无法解析的响应
	ErrServer = errors.New("remote: server error")

	// ErrRejected 其余非 2xx 响应
	ErrRejected = errors.New("remote: request rejected")
)

// alreadyExistsMarker 服务端在 400 响应体中用于标识重复创建的子串
const alreadyExistsMarker = "Player already exists"

// StatusError 携带 HTTP 状态码与响应体摘要
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}
