package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/aquarium/app/player/internal/service"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/web"
	weberrors "github.com/lk2023060901/aquarium/pkg/web/errors"
)

// QuizHandler 题库接口
type QuizHandler struct {
	svc    *service.QuizService
	logger logger.Logger
}

// NewQuizHandler 创建题库处理器
func NewQuizHandler(svc *service.QuizService, l logger.Logger) *QuizHandler {
	return &QuizHandler{svc: svc, logger: l.Named("handler.quiz")}
}

// Register 注册路由
func (h *QuizHandler) Register(r gin.IRouter) {
	r.GET("/quiz", h.List)
}

// List 返回全部题目
// @Router /quiz [get]
func (h *QuizHandler) List(c *gin.Context) {
	qs, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list quiz failed", "error", err)
		web.Error(c, http.StatusInternalServerError, weberrors.CodeInternalError, msgInternal)
		return
	}
	c.JSON(http.StatusOK, qs)
}
