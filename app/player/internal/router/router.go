// Package router 玩家服务路由表
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/aquarium/app/player/internal/handler"
	"github.com/lk2023060901/aquarium/pkg/prometheus"
	"github.com/lk2023060901/aquarium/pkg/sentry"
	"github.com/lk2023060901/aquarium/pkg/web"
)

// Router 持有所有 HTTP 处理器
type Router struct {
	player *handler.PlayerHandler
	quiz   *handler.QuizHandler
	health *handler.HealthHandler
	prom   *prometheus.Client
	sentry *sentry.Client
}

// New 创建路由表
func New(
	player *handler.PlayerHandler,
	quiz *handler.QuizHandler,
	health *handler.HealthHandler,
	prom *prometheus.Client,
	sc *sentry.Client,
) *Router {
	return &Router{player: player, quiz: quiz, health: health, prom: prom, sentry: sc}
}

// Mount 把路由挂到 web 服务上；prom 非 nil 时同端口暴露 /metrics
func (r *Router) Mount(s *web.Server) {
	engine := s.Router()
	if r.sentry.Enabled() {
		engine.Use(sentry.Middleware(r.sentry))
	}
	r.player.Register(engine)
	r.quiz.Register(engine)
	r.health.Register(engine)
	if r.prom != nil {
		engine.GET("/metrics", gin.WrapH(r.prom.Handler()))
	}
}
