package web

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	weberrors "github.com/lk2023060901/aquarium/pkg/web/errors"
)

// BindJSON 绑定 JSON 请求体并进行校验；失败时已写入 400 响应
func BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, verrs.Error())
			return false
		}
		Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "invalid request body: "+err.Error())
		return false
	}
	return true
}
