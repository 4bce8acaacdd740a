// Package postgres pgx 连接池封装：单机/主从模式、查询超时、事务辅助。
package postgres

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lk2023060901/aquarium/pkg/config"
	"github.com/lk2023060901/aquarium/pkg/logger"
)

// Client PostgreSQL 客户端
type Client struct {
	master *pgxpool.Pool   // 主库连接池（单机模式或主从模式的写库）
	slaves []*pgxpool.Pool // 从库连接池（仅主从模式）
	cfg    *Config
	logger logger.Logger

	slaveIndex atomic.Uint64
}

// New 创建客户端并检查主库连通性；从库失败只记录告警
func New(ctx context.Context, cfg *Config, l logger.Logger) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge postgres config")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: newCfg, logger: l.Named("postgres")}

	primary := newCfg.Standalone
	if primary == nil {
		primary = newCfg.Master
	}
	c.master, err = createPool(ctx, newCfg, primary)
	if err != nil {
		return nil, errors.Wrap(err, "create primary pool")
	}

	for i := range newCfg.Slaves {
		pool, err := createPool(ctx, newCfg, &newCfg.Slaves[i])
		if err != nil {
			c.logger.Warn("slave pool unavailable, reads fall back to master", "slave", i, "error", err)
			continue
		}
		c.slaves = append(c.slaves, pool)
	}

	c.logger.Info("postgres connected", "host", primary.Host, "db", primary.DBName, "slaves", len(c.slaves))
	return c, nil
}

func (c *Client) getMaster() *pgxpool.Pool {
	return c.master
}

// getSlave 读操作优先使用从库
func (c *Client) getSlave() *pgxpool.Pool {
	if len(c.slaves) == 0 {
		return c.master
	}
	if c.cfg.SlaveLoadBalance == "round_robin" {
		return c.slaves[c.slaveIndex.Add(1)%uint64(len(c.slaves))]
	}
	return c.slaves[rand.Intn(len(c.slaves))]
}

// Ping 检查主库连接；从库失败只记录告警
func (c *Client) Ping(ctx context.Context) error {
	if err := c.master.Ping(ctx); err != nil {
		return errors.Wrap(err, "master ping failed")
	}
	for i, slave := range c.slaves {
		if err := slave.Ping(ctx); err != nil {
			c.logger.Warn("slave ping failed", "slave", i, "error", err)
		}
	}
	return nil
}

// Stats 主库连接池状态
func (c *Client) Stats() PoolStats {
	stat := c.master.Stat()
	return PoolStats{
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration(),
		AcquiredConns:   stat.AcquiredConns(),
		IdleConns:       stat.IdleConns(),
		MaxConns:        stat.MaxConns(),
		TotalConns:      stat.TotalConns(),
	}
}

// Close 关闭全部连接池
func (c *Client) Close() error {
	if c.master != nil {
		c.master.Close()
	}
	for _, slave := range c.slaves {
		slave.Close()
	}
	return nil
}

func createPool(ctx context.Context, cfg *Config, dbCfg *DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg, dbCfg))
	if err != nil {
		return nil, errors.Wrap(err, "parse pool config")
	}
	poolConfig.MaxConns = cfg.Pool.MaxConns
	poolConfig.MinConns = cfg.Pool.MinConns
	poolConfig.MaxConnLifetime = cfg.Pool.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Pool.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.Pool.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

func buildConnString(cfg *Config, dbCfg *DBConfig) string {
	sslMode := dbCfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.Password, dbCfg.DBName, sslMode,
		int(cfg.ConnectTimeout.Seconds()),
	)
}
