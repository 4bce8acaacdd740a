package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/pkg/web"
)

// HealthHandler 健康检查：近期存储 QPS、延迟、成功率与进程资源
type HealthHandler struct {
	metrics *metrics.PlayerMetrics
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(m *metrics.PlayerMetrics) *HealthHandler {
	return &HealthHandler{metrics: m}
}

// Register 注册路由
func (h *HealthHandler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)
}

// Health 健康检查
func (h *HealthHandler) Health(c *gin.Context) {
	web.Success(c, h.metrics.Health())
}
