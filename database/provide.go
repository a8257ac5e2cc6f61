package database

import (
	"fmt"
	"sort"

	"github.com/gocrud/container"
	"gorm.io/gorm"
)

// Builder 数据库配置构建器
type Builder struct {
	configs map[string]Options
	errors  []error
}

// NewBuilder 创建数据库构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]Options),
		errors:  make([]error, 0),
	}
}

// Add 添加一个数据库连接配置
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*Options)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("database '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid database configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	return b
}

// Provide 把配置的数据库连接注册为容器里的延迟单例。
// 连接在首次解析时建立（含自动迁移），容器关闭时释放连接池。
func Provide(c *container.Container, configure func(*Builder)) error {
	builder := NewBuilder()
	if configure != nil {
		configure(builder)
	}
	if len(builder.errors) > 0 {
		return fmt.Errorf("database configuration errors: %v", builder.errors)
	}

	names := make([]string, 0, len(builder.configs))
	for name := range builder.configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		opts := builder.configs[name]
		ctor := func() (*DB, error) {
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
