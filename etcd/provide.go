package etcd

import (
	"fmt"
	"sort"

	"github.com/gocrud/container"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Builder etcd 客户端配置构建器
type Builder struct {
	configs map[string]ClientOptions
	errors  []error
}

// NewBuilder 创建 etcd 构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]ClientOptions),
		errors:  make([]error, 0),
	}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("etcd client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid etcd configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	return b
}

// Provide 把配置的客户端注册为容器里的延迟单例，容器关闭时自动 Close。
func Provide(c *container.Container, configure func(*Builder)) error {
	builder := NewBuilder()
	if configure != nil {
		configure(builder)
	}
	if len(builder.errors) > 0 {
		return fmt.Errorf("etcd configuration errors: %v", builder.errors)
	}

	names := make([]string, 0, len(builder.configs))
	for name := range builder.configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		opts := builder.configs[name]
		ctor := func() (*clientv3.Client, error) {
			return Open(opts)
		}
		defOpts := []container.Option{
			container.WithLazy(),
			container.WithDestroyMethod("Close"),
		}
		if name == "default" {
			defOpts = append(defOpts, container.WithPrimary())
		}
		if err := container.RegisterConstructor(c, name, ctor, defOpts...); err != nil {
			return err
		}
	}
	return nil
}
