package web

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/container"
	"github.com/gocrud/container/logging"
)

// HostName Web 主机在容器里的注册名称
const HostName = "web.host"

// Controller 路由控制器。
// 实现了该接口的容器组件会在 Provide 时被收集并挂载到引擎上。
type Controller interface {
	Register(r gin.IRouter)
}

// Provide 构建 Web 主机并注册为容器单例。
// 容器里所有 Controller 候选的路由会挂到引擎上，
// 引擎本身按类型可注入，主机在容器关闭时优雅停机。
func Provide(c *container.Container, logger logging.Logger, configure func(*Builder)) (*Host, error) {
	if logger == nil {
		logger = logging.Discard
	}
	builder := NewBuilder(logger)
	if configure != nil {
		configure(builder)
	}
	host := builder.Build()

	controllers, err := container.Get[[]Controller](c)
	if err != nil {
		var missing *container.NoMatchingCandidateError
		if !errors.As(err, &missing) {
			return nil, err
		}
	}
	for _, ctrl := range controllers {
		ctrl.Register(host.engine)
	}

	c.RegisterResolvable(host.engine)
	ctor := func() *Host { return host }
	if err := container.RegisterConstructor(c, HostName, ctor); err != nil {
		return nil, err
	}
	return host, nil
}
