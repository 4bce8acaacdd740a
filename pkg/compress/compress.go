// Package compress 缓存载荷压缩。
//
// 编码结果以 1 字节算法标记开头，解码不依赖当前配置，
// 切换算法后已写入的缓存仍可读取。
package compress

import (
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type 压缩算法
type Type string

const (
	TypeNone   Type = "none"
	TypeSnappy Type = "snappy"
	TypeZstd   Type = "zstd"
	TypeLZ4    Type = "lz4"
)

const (
	tagNone byte = iota
	tagSnappy
	tagZstd
	tagLZ4
)

const (
	// DefaultMinSize 小于该长度的载荷原样存储
	DefaultMinSize = 256
	// maxDecodedSize 解码长度上限，防止损坏的长度前缀导致超大分配
	maxDecodedSize = 64 << 20
)

var (
	ErrUnsupported = errors.New("unsupported compression type")
	ErrCorrupt     = errors.New("corrupt compressed payload")
)

var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	})
)

// Codec 按配置的算法编码，解码自动识别算法
type Codec struct {
	typ     Type
	minSize int
}

// Option 编码器选项
type Option func(*Codec)

// WithMinSize 设置压缩阈值；0 表示总是尝试压缩
func WithMinSize(n int) Option {
	return func(c *Codec) {
		if n >= 0 {
			c.minSize = n
		}
	}
}

// New 创建编码器；t 为空时不压缩
func New(t Type, opts ...Option) (*Codec, error) {
	switch t {
	case "":
		t = TypeNone
	case TypeNone, TypeSnappy, TypeLZ4:
	case TypeZstd:
		if _, err := zstdEncoder(); err != nil {
			return nil, errors.Wrap(err, "init zstd encoder")
		}
	default:
		return nil, errors.Wrapf(ErrUnsupported, "%q", t)
	}
	c := &Codec{typ: t, minSize: DefaultMinSize}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Type 当前编码算法
func (c *Codec) Type() Type {
	return c.typ
}

// Encode 压缩 src；压缩后不更小时原样存储
func (c *Codec) Encode(src []byte) ([]byte, error) {
	if c.typ == TypeNone || len(src) < c.minSize || len(src) == 0 {
		return plain(src), nil
	}

	var (
		tag  byte
		body []byte
	)
	switch c.typ {
	case TypeSnappy:
		tag, body = tagSnappy, snappy.Encode(nil, src)
	case TypeZstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, err
		}
		tag, body = tagZstd, enc.EncodeAll(src, nil)
	case TypeLZ4:
		block := make([]byte, lz4.CompressBlockBound(len(src)))
		n, err := lz4.CompressBlock(src, block, nil)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 compress")
		}
		if n == 0 {
			return plain(src), nil
		}
		body = binary.AppendUvarint(nil, uint64(len(src)))
		tag, body = tagLZ4, append(body, block[:n]...)
	}

	if len(body) >= len(src) {
		return plain(src), nil
	}
	return append([]byte{tag}, body...), nil
}

// Decode 实现 Decode
func (c *Codec) Decode(data []byte) ([]byte, error) {
	return Decode(data)
}

// Decode 按标记解码任意算法的载荷
func Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrCorrupt, "empty payload")
	}
	tag, body := data[0], data[1:]

	switch tag {
	case tagNone:
		return append([]byte(nil), body...), nil
	case tagSnappy:
		out, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, errors.WithSecondaryError(errors.Wrap(ErrCorrupt, "snappy decode"), err)
		}
		return out, nil
	case tagZstd:
		dec, err := zstdDecoder()
		if err != nil {
			return nil, err
		}
		out, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, errors.WithSecondaryError(errors.Wrap(ErrCorrupt, "zstd decode"), err)
		}
		return out, nil
	case tagLZ4:
		size, n := binary.Uvarint(body)
		if n <= 0 || size > maxDecodedSize {
			return nil, errors.Wrap(ErrCorrupt, "lz4 length prefix")
		}
		out := make([]byte, size)
		got, err := lz4.UncompressBlock(body[n:], out)
		if err != nil || uint64(got) != size {
			return nil, errors.Wrapf(ErrCorrupt, "lz4 block: got %d of %d bytes", got, size)
		}
		return out, nil
	default:
		return nil, errors.Wrapf(ErrCorrupt, "unknown tag %d", tag)
	}
}

func plain(src []byte) []byte {
	out := make([]byte, 0, len(src)+1)
	out = append(out, tagNone)
	return append(out, src...)
}
