//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/lk2023060901/aquarium/app/player/internal/handler"
	"github.com/lk2023060901/aquarium/app/player/internal/repository"
	"github.com/lk2023060901/aquarium/app/player/internal/router"
	"github.com/lk2023060901/aquarium/app/player/internal/service"
	"github.com/lk2023060901/aquarium/pkg/app"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
	"github.com/lk2023060901/aquarium/pkg/sentry"
)

func InitApp(cfg *Config, l logger.Logger, sc *sentry.Client) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架
		provideAppOptions,
		app.ProviderSet,

		// 2. 指标
		providePrometheusConfig,
		prometheus.New,
		provideSystemCollector,
		provideMetricsConfig,
		provideMetrics,

		// 3. 数据层
		provideStore,
		providePlayerStore,
		provideQuizStore,
		provideCacheDAO,
		repository.NewPlayerRepository,

		// 4. 服务层
		provideIDGenerator,
		service.NewPlayerService,
		provideQuizConfig,
		service.NewQuizService,

		// 5. 接口层
		handler.NewPlayerHandler,
		handler.NewQuizHandler,
		handler.NewHealthHandler,
		router.New,
		provideWebServer,

		// 6. 组装
		provideComponents,
	))
}
