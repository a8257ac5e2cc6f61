package redis

import (
	"github.com/gocrud/container"
	goredis "github.com/redis/go-redis/v9"
)

// Provide 把配置的客户端注册为容器里的延迟单例。
// 每个客户端按自己的名称注册，"default" 客户端标记为首选候选，
// 连接在首次解析时建立，容器关闭时按依赖序断开。
func Provide(c *container.Container, configure func(*Builder)) error {
	builder := NewBuilder()
	if configure != nil {
		configure(builder)
	}
	if err := builder.err(); err != nil {
		return err
	}

	names := builder.names()
	for _, name := range names {
		opts := builder.configs[name]
		ctor := func() (*goredis.Client, error) {
			return Open(opts)
		}
		defOpts := []container.Option{
			container.WithLazy(),
			container.WithQualifier(name),
			container.WithDestroyMethod("Close"),
		}
		if name == DefaultClientName {
			defOpts = append(defOpts, container.WithPrimary())
		}
		if err := container.RegisterConstructor(c, name, ctor, defOpts...); err != nil {
			return err
		}
	}

	c.RegisterResolvable(&ClientFactory{container: c, clients: names})
	return nil
}

// ClientFactory 按名称取客户端的工厂视图，实例由容器持有
type ClientFactory struct {
	container *container.Container
	clients   []string
}

// Get 获取指定名称的 Redis 客户端
func (f *ClientFactory) Get(name string) (*goredis.Client, error) {
	return container.GetNamed[*goredis.Client](f.container, name)
}

// Names 返回已配置的客户端名称
func (f *ClientFactory) Names() []string {
	names := make([]string, len(f.clients))
	copy(names, f.clients)
	return names
}
