package idgen

import (
	"strconv"
	"sync/atomic"
)

// Generator ID 生成器：文档内实体（鱼、鱼缸）与服务端文档主键
type Generator interface {
	// NextID 生成下一个唯一ID
	NextID() (string, error)
}

// Sequence 进程内自增 ID，测试与单机工具使用
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence 创建以 prefix 开头的自增生成器
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NextID() (string, error) {
	return s.prefix + strconv.FormatUint(s.n.Add(1), 10), nil
}
