package redis

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config Redis 配置（Standalone/Master-Slave/Cluster 三种模式，必须且只能配置一种）
type Config struct {
	// Standalone 单机模式配置
	Standalone *NodeConfig `mapstructure:"standalone"`

	// Master 主节点配置（主从模式）
	Master *NodeConfig `mapstructure:"master"`
	// Slaves 从节点配置列表（主从模式）
	Slaves []NodeConfig `mapstructure:"slaves"`

	// Cluster 集群模式配置
	Cluster *ClusterConfig `mapstructure:"cluster"`

	// Pool 连接池配置（所有模式共享）
	Pool PoolConfig `mapstructure:"pool"`

	// SlaveLoadBalance 从库负载均衡策略：random（默认）或 round_robin
	SlaveLoadBalance string `mapstructure:"slave_load_balance"`
}

// NodeConfig 单节点配置
type NodeConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"` // 0-15
}

// ClusterConfig 集群配置
type ClusterConfig struct {
	Addrs    []string `mapstructure:"addrs"` // host:port
	Password string   `mapstructure:"password"`
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
}

// DefaultPoolConfig 连接池默认值
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    50,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		PoolTimeout:     2 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}

	modeCount := 0
	if c.Standalone != nil {
		modeCount++
	}
	if c.Master != nil {
		modeCount++
	}
	if c.Cluster != nil {
		modeCount++
	}
	if modeCount != 1 {
		return ErrInvalidConfig
	}

	if c.Cluster != nil && len(c.Cluster.Addrs) == 0 {
		return errors.Wrap(ErrInvalidConfig, "cluster requires at least one addr")
	}
	if c.Master != nil && len(c.Slaves) > 0 {
		switch c.SlaveLoadBalance {
		case "", "random", "round_robin":
		default:
			return ErrInvalidSlaveLoadBalance
		}
	}
	return nil
}

// IsStandalone 是否为单机模式
func (c *Config) IsStandalone() bool { return c.Standalone != nil }

// IsMasterSlave 是否为主从模式
func (c *Config) IsMasterSlave() bool { return c.Master != nil }

// IsCluster 是否为集群模式
func (c *Config) IsCluster() bool { return c.Cluster != nil }
