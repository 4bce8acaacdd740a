// Package redis go-redis 的薄封装：三种部署模式、主从读写分离、JSON 对象存取。
package redis

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/lk2023060901/aquarium/pkg/logger"
)

// Client Redis 客户端（支持主从读写分离）
type Client struct {
	master redis.UniversalClient   // 主节点（或单机/集群客户端）
	slaves []redis.UniversalClient // 从节点列表（主从模式）
	cfg    *Config
	logger logger.Logger

	slaveIndex atomic.Uint64
	rngMu      sync.Mutex
	rng        *rand.Rand
}

// NewClient 创建 Redis 客户端，不主动建立连接；需要时调用 Ping
func NewClient(cfg *Config, l logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		logger: l.Named("redis"),
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}

	switch {
	case cfg.IsStandalone():
		c.master = redis.NewClient(c.nodeOptions(cfg.Standalone))
	case cfg.IsMasterSlave():
		c.master = redis.NewClient(c.nodeOptions(cfg.Master))
		for i := range cfg.Slaves {
			c.slaves = append(c.slaves, redis.NewClient(c.nodeOptions(&cfg.Slaves[i])))
		}
	case cfg.IsCluster():
		p := cfg.Pool
		c.master = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           cfg.Cluster.Addrs,
			Password:        cfg.Cluster.Password,
			MaxIdleConns:    p.MaxIdleConns,
			MaxActiveConns:  p.MaxOpenConns,
			ConnMaxLifetime: p.ConnMaxLifetime,
			ConnMaxIdleTime: p.ConnMaxIdleTime,
			DialTimeout:     p.DialTimeout,
			ReadTimeout:     p.ReadTimeout,
			WriteTimeout:    p.WriteTimeout,
			PoolTimeout:     p.PoolTimeout,
		})
	}

	c.logger.Info("redis client created",
		"standalone", cfg.IsStandalone(),
		"master_slave", cfg.IsMasterSlave(),
		"cluster", cfg.IsCluster(),
		"slaves", len(c.slaves),
	)
	return c, nil
}

func (c *Client) nodeOptions(n *NodeConfig) *redis.Options {
	p := c.cfg.Pool
	return &redis.Options{
		Addr:            fmt.Sprintf("%s:%d", n.Host, n.Port),
		Password:        n.Password,
		DB:              n.DB,
		MaxIdleConns:    p.MaxIdleConns,
		MaxActiveConns:  p.MaxOpenConns,
		ConnMaxLifetime: p.ConnMaxLifetime,
		ConnMaxIdleTime: p.ConnMaxIdleTime,
		DialTimeout:     p.DialTimeout,
		ReadTimeout:     p.ReadTimeout,
		WriteTimeout:    p.WriteTimeout,
		PoolTimeout:     p.PoolTimeout,
	}
}

// getMaster 写操作使用主节点
func (c *Client) getMaster() redis.UniversalClient {
	return c.master
}

// getSlave 读操作按策略选择从节点，没有从节点时使用主节点
func (c *Client) getSlave() redis.UniversalClient {
	if len(c.slaves) == 0 {
		return c.master
	}
	if c.cfg.SlaveLoadBalance == "round_robin" {
		return c.slaves[c.slaveIndex.Add(1)%uint64(len(c.slaves))]
	}
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.slaves[c.rng.Intn(len(c.slaves))]
}

// Ping 测试主节点与全部从节点
func (c *Client) Ping(ctx context.Context) error {
	if err := c.master.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "master ping failed")
	}
	for i, slave := range c.slaves {
		if err := slave.Ping(ctx).Err(); err != nil {
			return errors.Wrapf(err, "slave[%d] ping failed", i)
		}
	}
	return nil
}

// PoolStats 主节点连接池统计
func (c *Client) PoolStats() PoolStats {
	stats := c.master.PoolStats()
	return PoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

// Close 关闭全部节点
func (c *Client) Close() error {
	err := c.master.Close()
	for i, slave := range c.slaves {
		if sErr := slave.Close(); sErr != nil {
			err = errors.CombineErrors(err, errors.Wrapf(sErr, "close slave[%d]", i))
		}
	}
	return err
}
