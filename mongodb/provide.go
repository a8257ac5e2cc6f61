package mongodb

import (
	"fmt"
	"sort"

	"github.com/gocrud/container"
)

// Builder MongoDB 客户端配置构建器
type Builder struct {
	configs map[string]ClientOptions
	errors  []error
}

// NewBuilder 创建 MongoDB 构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]ClientOptions),
		errors:  make([]error, 0),
	}
}

// AddClient 添加一个 MongoDB 客户端配置
func (b *Builder) AddClient(name string, uri string, configure func(*ClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("mongo client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid mongo configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	return b
}

// Provide 把配置的客户端注册为容器里的延迟单例。
// 客户端实现了销毁回调，容器关闭时自动断开连接。
func Provide(c *container.Container, configure func(*Builder)) error {
	builder := NewBuilder()
	if configure != nil {
		configure(builder)
	}
	if len(builder.errors) > 0 {
		return fmt.Errorf("mongo configuration errors: %v", builder.errors)
	}

	names := make([]string, 0, len(builder.configs))
	for name := range builder.configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		opts := builder.configs[name]
		ctor := func() (*Client, error) {
			return Open(opts)
		}
		defOpts := []container.Option{container.WithLazy()}
		if name == "default" {
			defOpts = append(defOpts, container.WithPrimary())
		}
		if err := container.RegisterConstructor(c, name, ctor, defOpts...); err != nil {
			return err
		}
	}
	return nil
}
