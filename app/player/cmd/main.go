package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/lk2023060901/aquarium/app/player/internal/dao"
	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/app/player/internal/service"
	"github.com/lk2023060901/aquarium/pkg/app"
	"github.com/lk2023060901/aquarium/pkg/compress"
	"github.com/lk2023060901/aquarium/pkg/database/postgres"
	"github.com/lk2023060901/aquarium/pkg/database/redis"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
	"github.com/lk2023060901/aquarium/pkg/sentry"
	"github.com/lk2023060901/aquarium/pkg/web"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// StorageConfig 文档存储后端
type StorageConfig struct {
	Driver   string          `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Postgres postgres.Config `mapstructure:"postgres"`
	SQLite   dao.SQLiteConfig `mapstructure:"sqlite"`
}

// CacheConfig 文档缓存；未启用时只读写数据库
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   redis.Config  `mapstructure:"redis"`

	// Compression 缓存载荷压缩算法：none/snappy/zstd/lz4
	Compression compress.Type `mapstructure:"compression"`
}

// Config 玩家服务完整配置
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// MachineID sonyflake 机器号，多实例时需不同
	MachineID uint16 `mapstructure:"machine_id"`

	Web        web.Config         `mapstructure:"web"`
	Storage    StorageConfig      `mapstructure:"storage"`
	Cache      CacheConfig        `mapstructure:"cache"`
	Quiz       service.QuizConfig `mapstructure:"quiz"`
	Prometheus prometheus.Config  `mapstructure:"prometheus"`
	Metrics    metrics.Config     `mapstructure:"metrics"`
	Sentry     sentry.Config      `mapstructure:"sentry"`
}

var defaults = map[string]any{
	"web.addr":                        ":8080",
	"storage.driver":                  driverSQLite,
	"storage.sqlite.path":             "player.db",
	"cache.ttl":                       "30m",
	"cache.compression":               string(compress.TypeSnappy),
	"quiz.refresh_spec":               "@every 5m",
	"prometheus.namespace":            "aquarium_player",
	"metrics.system_collect_interval": "15s",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("player", pflag.ContinueOnError)
	fs.String("web.addr", "", "listen address")
	fs.String("storage.driver", "", "document store: postgres or sqlite")
	fs.String("storage.sqlite.path", "", "sqlite database file")
	fs.String("log.level", "", "log level (debug/info/warn/error)")

	var cfg Config
	if _, err := app.LoadConfig(&cfg, fs, args, defaults); err != nil {
		return err
	}

	sc, err := sentry.New(&cfg.Sentry)
	if err != nil {
		return err
	}

	l, err := logger.New(&cfg.Log, logger.WithHooks(sc.LogHook()))
	if err != nil {
		return err
	}
	defer l.Sync()

	a, cleanup, err := InitApp(&cfg, l, sc)
	if err != nil {
		l.Error("failed to init app", "error", err)
		return err
	}
	defer cleanup()

	return a.Run()
}
