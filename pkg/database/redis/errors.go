package redis

import "github.com/cockroachdb/errors"

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("redis config is nil")

	// ErrInvalidConfig 配置无效（Standalone/Master-Slave/Cluster 必须且只能配置一种）
	ErrInvalidConfig = errors.New("invalid redis config: must specify exactly one of standalone, master-slave, or cluster mode")

	// ErrNil 键不存在
	ErrNil = errors.New("redis: nil")

	// ErrInvalidSlaveLoadBalance 无效的从库负载均衡策略
	ErrInvalidSlaveLoadBalance = errors.New("invalid slave load balance strategy: must be 'random' or 'round_robin'")
)
