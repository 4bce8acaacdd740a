// Package validator gin 绑定校验器的扩展
package validator

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// MaxUserIDLength 玩家 ID 最大长度
const MaxUserIDLength = 64

var once sync.Once

// Init 注册自定义校验规则，可重复调用
func Init() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// 错误信息显示 json/uri tag 而非 struct 字段名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "uri"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		_ = v.RegisterValidation("userid", validUserID)
	})
}

// validUserID 非空、不超过 64 字符、不含空白与路径分隔符
func validUserID(fl validator.FieldLevel) bool {
	return IsUserID(fl.Field().String())
}

// IsUserID 与 userid 校验规则一致
func IsUserID(s string) bool {
	if s == "" || len(s) > MaxUserIDLength {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == '/' || r == '\\' || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
