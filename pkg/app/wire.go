package app

import (
	"github.com/google/wire"
)

// Components 由 Wire 收集、交给 BaseApp 管理生命周期的组件
type Components struct {
	Servers []Server
	Closers []Closer
}

// ProviderSet 导出给 Wire 使用
var ProviderSet = wire.NewSet(
	NewBaseApp,
	Assemble,
)

// Application Wire 注入器的产物
type Application interface {
	Run() error
	Stop()
	Shutdown() error
}

var _ Application = (*BaseApp)(nil)

// Assemble 把组件挂到 BaseApp 上
func Assemble(a *BaseApp, comps Components) Application {
	a.AppendServer(comps.Servers...)
	a.AppendCloser(comps.Closers...)
	return a
}

// CloserFunc 适配 func() error 到 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

// MapCloser 将实现了 Close() 的对象转换为 Closer（go-redis、sql.DB 的 Close 返回 error，pgxpool 的不返回）
func MapCloser[T interface{ Close() error }](c T) Closer {
	return CloserFunc(c.Close)
}
