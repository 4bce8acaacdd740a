// Package handler 玩家服务 HTTP 接口。
//
// 玩家文档与题库接口直接返回文档 JSON（不包 web.Response），
// 错误仍使用 web.Response 结构。
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/aquarium/app/player/internal/dao"
	"github.com/lk2023060901/aquarium/app/player/internal/service"
	"github.com/lk2023060901/aquarium/pkg/checksum"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
	"github.com/lk2023060901/aquarium/pkg/web"
	weberrors "github.com/lk2023060901/aquarium/pkg/web/errors"
	"github.com/lk2023060901/aquarium/pkg/web/validator"
)

const (
	msgPlayerExists   = "Player already exists"
	msgPlayerNotFound = "Player not found"
	msgInvalidUserID  = "invalid userId"
	msgInternal       = "internal server error"
)

// PlayerHandler 玩家文档接口
type PlayerHandler struct {
	svc    *service.PlayerService
	logger logger.Logger
}

// NewPlayerHandler 创建玩家处理器
func NewPlayerHandler(svc *service.PlayerService, l logger.Logger) *PlayerHandler {
	return &PlayerHandler{
		svc:    svc,
		logger: l.Named("handler.player"),
	}
}

// Register 注册路由
func (h *PlayerHandler) Register(r gin.IRouter) {
	g := r.Group("/player")
	{
		g.GET("/:userId", h.Get)
		g.POST("", h.Create)
		g.PUT("/:userId", h.Replace)
	}
}

// Get 读取玩家文档；If-None-Match 命中当前 ETag 时返回 304
// @Router /player/{userId} [get]
func (h *PlayerHandler) Get(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}

	doc, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "get", userID, err)
		return
	}
	h.writeDoc(c, doc, true)
}

// Create 创建玩家文档；已存在时返回 400 与 "Player already exists"
// @Router /player [post]
func (h *PlayerHandler) Create(c *gin.Context) {
	var doc playerdoc.PlayerState
	if !web.BindJSON(c, &doc) {
		return
	}
	if !validator.IsUserID(doc.UserID) {
		web.Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, msgInvalidUserID)
		return
	}

	saved, err := h.svc.Create(c.Request.Context(), &doc)
	if err != nil {
		h.fail(c, "create", doc.UserID, err)
		return
	}
	h.writeDoc(c, saved, false)
}

// Replace 整文档替换，返回保存后的副本
// @Router /player/{userId} [put]
func (h *PlayerHandler) Replace(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}
	var doc playerdoc.PlayerState
	if !web.BindJSON(c, &doc) {
		return
	}

	saved, err := h.svc.Replace(c.Request.Context(), userID, &doc)
	if err != nil {
		h.fail(c, "replace", userID, err)
		return
	}
	h.writeDoc(c, saved, false)
}

// writeDoc 输出文档并附带内容 ETag
func (h *PlayerHandler) writeDoc(c *gin.Context, doc *playerdoc.PlayerState, conditional bool) {
	body, err := json.Marshal(doc)
	if err != nil {
		h.fail(c, "encode", doc.UserID, errors.Wrap(err, "marshal player"))
		return
	}
	etag := checksum.ETag(body)
	c.Header("ETag", etag)
	if conditional && checksum.Match(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func pathUserID(c *gin.Context) (string, bool) {
	userID := c.Param("userId")
	if !validator.IsUserID(userID) {
		web.Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, msgInvalidUserID)
		return "", false
	}
	return userID, true
}

// fail 按错误类别写响应
func (h *PlayerHandler) fail(c *gin.Context, op, userID string, err error) {
	switch {
	case errors.Is(err, dao.ErrPlayerNotFound):
		web.Error(c, http.StatusNotFound, weberrors.CodeNotFound, msgPlayerNotFound)
	case errors.Is(err, dao.ErrPlayerExists):
		web.Error(c, http.StatusBadRequest, weberrors.CodeConflict, msgPlayerExists)
	case errors.IsAny(err, playerdoc.ErrInvalidDoc, playerdoc.ErrMissingUserID,
		playerdoc.ErrDuplicateID, playerdoc.ErrTankNotFound, playerdoc.ErrFishNotFound):
		web.Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, err.Error())
	default:
		h.logger.ErrorContext(c.Request.Context(), "player request failed",
			"op", op,
			"user_id", userID,
			"error", err,
		)
		web.Error(c, http.StatusInternalServerError, weberrors.CodeInternalError, msgInternal)
	}
}
