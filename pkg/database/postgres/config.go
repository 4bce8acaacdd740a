package postgres

import (
	"time"

	"github.com/cockroachdb/errors"
)

// DBConfig 单个数据库实例配置
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"` // disable, require, verify-ca, verify-full
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// Config PostgreSQL 配置
type Config struct {
	// 单机模式配置（与主从模式互斥）
	Standalone *DBConfig `mapstructure:"standalone"`

	// 主从模式配置（与单机模式互斥）
	Master *DBConfig  `mapstructure:"master"`
	Slaves []DBConfig `mapstructure:"slaves"`

	Pool PoolConfig `mapstructure:"pool"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`

	// 从库负载均衡策略（仅主从模式有效）：random, round_robin
	SlaveLoadBalance string `mapstructure:"slave_load_balance"`
}

// DefaultConfig 返回默认配置；不包含实例地址，调用方必须指定 standalone 或 master
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			MaxConns:          25,
			MinConns:          2,
			MaxConnLifetime:   time.Hour,
			MaxConnIdleTime:   30 * time.Minute,
			HealthCheckPeriod: time.Minute,
		},
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   5 * time.Second,
	}
}

// IsStandaloneMode 判断是否为单机模式
func (c *Config) IsStandaloneMode() bool {
	return c.Standalone != nil
}

// IsMasterSlaveMode 判断是否为主从模式
func (c *Config) IsMasterSlaveMode() bool {
	return c.Master != nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	switch {
	case c.IsStandaloneMode() && c.IsMasterSlaveMode():
		return errors.Wrap(ErrInvalidConfig, "standalone and master-slave mode cannot be both configured")
	case !c.IsStandaloneMode() && !c.IsMasterSlaveMode():
		return errors.Wrap(ErrInvalidConfig, "must configure either standalone or master-slave mode")
	}

	if c.IsStandaloneMode() {
		if err := c.Standalone.validate(); err != nil {
			return errors.Wrap(err, "standalone")
		}
	} else {
		if err := c.Master.validate(); err != nil {
			return errors.Wrap(err, "master")
		}
		for i := range c.Slaves {
			if err := c.Slaves[i].validate(); err != nil {
				return errors.Wrapf(err, "slave %d", i)
			}
		}
	}

	switch {
	case c.Pool.MaxConns <= 0:
		return errors.Wrap(ErrInvalidConfig, "max_conns must be positive")
	case c.Pool.MinConns < 0:
		return errors.Wrap(ErrInvalidConfig, "min_conns must be non-negative")
	case c.Pool.MinConns > c.Pool.MaxConns:
		return errors.Wrap(ErrInvalidConfig, "min_conns cannot be greater than max_conns")
	}
	return nil
}

func (d *DBConfig) validate() error {
	switch {
	case d.Host == "":
		return errors.Wrap(ErrInvalidConfig, "host is empty")
	case d.Port <= 0 || d.Port > 65535:
		return errors.Wrapf(ErrInvalidConfig, "invalid port %d", d.Port)
	case d.User == "":
		return errors.Wrap(ErrInvalidConfig, "user is empty")
	case d.DBName == "":
		return errors.Wrap(ErrInvalidConfig, "db_name is empty")
	}
	return nil
}
