package main

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/player/internal/dao"
	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/app/player/internal/router"
	"github.com/lk2023060901/aquarium/app/player/internal/service"
	"github.com/lk2023060901/aquarium/pkg/app"
	"github.com/lk2023060901/aquarium/pkg/compress"
	"github.com/lk2023060901/aquarium/pkg/database/postgres"
	"github.com/lk2023060901/aquarium/pkg/database/redis"
	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/metrics/system"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
	"github.com/lk2023060901/aquarium/pkg/sentry"
	"github.com/lk2023060901/aquarium/pkg/web"
	webmetrics "github.com/lk2023060901/aquarium/pkg/web/metrics"
)

const storeInitTimeout = 15 * time.Second

// provideAppOptions 提供应用选项
func provideAppOptions(l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName("player"),
		app.WithLogger(l),
	}
}

// providePrometheusConfig 提供 Prometheus 配置
func providePrometheusConfig(cfg *Config) *prometheus.Config {
	return &cfg.Prometheus
}

// provideMetricsConfig 提供指标配置
func provideMetricsConfig(cfg *Config) *metrics.Config {
	return &cfg.Metrics
}

// provideSystemCollector 进程资源采集器
func provideSystemCollector(cfg *Config, l logger.Logger) (*system.Collector, error) {
	return system.New(cfg.Metrics.SystemCollectInterval, l)
}

// provideMetrics 注册玩家服务指标
func provideMetrics(c *prometheus.Client, cfg *metrics.Config, sys *system.Collector) (*metrics.PlayerMetrics, error) {
	return metrics.New(c, cfg, sys)
}

// provideStore 按配置打开文档存储并建表
func provideStore(cfg *Config, l logger.Logger, m *metrics.PlayerMetrics) (dao.Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeInitTimeout)
	defer cancel()

	var store dao.Store
	switch cfg.Storage.Driver {
	case driverPostgres:
		db, err := postgres.New(ctx, &cfg.Storage.Postgres, l)
		if err != nil {
			return nil, nil, err
		}
		store = dao.NewPostgresDAO(db, l, m)
	case driverSQLite, "":
		s, err := dao.OpenSQLite(&cfg.Storage.SQLite, l, m)
		if err != nil {
			return nil, nil, err
		}
		store = s
	default:
		return nil, nil, errors.Newf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	l.Info("document store ready", "driver", cfg.Storage.Driver)

	cleanup := func() {
		if err := store.Close(); err != nil {
			l.Error("failed to close document store", "error", err)
		}
	}
	return store, cleanup, nil
}

func providePlayerStore(s dao.Store) dao.PlayerStore { return s }

func provideQuizStore(s dao.Store) dao.QuizStore { return s }

// provideCacheDAO 启用缓存时连接 Redis；未启用返回 nil
func provideCacheDAO(cfg *Config, l logger.Logger, m *metrics.PlayerMetrics) (*dao.CacheDAO, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}
	codec, err := compress.New(cfg.Cache.Compression)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cache compression")
	}
	client, err := redis.NewClient(&cfg.Cache.Redis, l)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Error("failed to close redis client", "error", err)
		}
	}
	l.Info("player cache enabled", "ttl", cfg.Cache.TTL, "compression", codec.Type())
	return dao.NewCacheDAO(client, cfg.Cache.TTL, codec, l, m), cleanup, nil
}

// provideIDGenerator 文档内部 ID
func provideIDGenerator(cfg *Config) (idgen.Generator, error) {
	return idgen.NewSonyflake(cfg.MachineID, "p")
}

// provideQuizConfig 未配置种子题目时使用内置题目
func provideQuizConfig(cfg *Config) *service.QuizConfig {
	qc := cfg.Quiz
	if len(qc.Seed) == 0 {
		qc.Seed = service.DefaultQuestions()
	}
	return &qc
}

// provideWebServer 创建 HTTP 服务并挂载路由
func provideWebServer(cfg *Config, l logger.Logger, c *prometheus.Client, rt *router.Router) (*web.Server, error) {
	httpMetrics, err := webmetrics.New(c)
	if err != nil {
		return nil, err
	}
	srv, err := web.NewServer(&cfg.Web, l, web.WithMetrics(httpMetrics))
	if err != nil {
		return nil, err
	}
	rt.Mount(srv)
	return srv, nil
}

// provideComponents 启动顺序：指标、采集器、题库、最后才对外监听
func provideComponents(
	srv *web.Server,
	quiz *service.QuizService,
	promClient *prometheus.Client,
	sys *system.Collector,
	sc *sentry.Client,
) app.Components {
	return app.Components{
		Servers: []app.Server{promClient, sys, quiz, srv},
		Closers: []app.Closer{promClient, sc},
	}
}
