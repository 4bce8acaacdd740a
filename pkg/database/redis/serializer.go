package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// KV 对象读写所需的最小命令集，*Client 满足该接口
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
}

var _ KV = (*Client)(nil)

// Transformer 对象序列化后的字节变换（如压缩）
type Transformer interface {
	Encode(src []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// GetObject 获取对象（JSON 反序列化）；键不存在时返回 ErrNil
func GetObject[T any](ctx context.Context, c KV, key string) (*T, error) {
	return GetEncoded[T](ctx, c, key, nil)
}

// SetObject 设置对象（JSON 序列化）
func SetObject(ctx context.Context, c KV, key string, value any, expiration time.Duration) error {
	return SetEncoded(ctx, c, key, value, expiration, nil)
}

// GetEncoded 同 GetObject，反序列化前先经 tr 还原；tr 为 nil 时不变换
func GetEncoded[T any](ctx context.Context, c KV, key string, tr Transformer) (*T, error) {
	val, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data := []byte(val)
	if tr != nil {
		if data, err = tr.Decode(data); err != nil {
			return nil, errors.Wrapf(err, "decode object %s", key)
		}
	}
	var obj T
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrapf(err, "unmarshal object %s", key)
	}
	return &obj, nil
}

// SetEncoded 同 SetObject，写入前经 tr 变换
func SetEncoded(ctx context.Context, c KV, key string, value any, expiration time.Duration, tr Transformer) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "marshal object %s", key)
	}
	if tr != nil {
		if data, err = tr.Encode(data); err != nil {
			return errors.Wrapf(err, "encode object %s", key)
		}
	}
	return c.Set(ctx, key, data, expiration)
}
