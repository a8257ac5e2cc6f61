package redis

import (
	"fmt"
	"sort"
)

// Builder Redis 客户端配置构建器
type Builder struct {
	configs map[string]ClientOptions
	errors  []error
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]ClientOptions),
		errors:  make([]error, 0),
	}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	// 检查名称冲突
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("redis client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid redis configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	return b
}

// names 返回排序后的客户端名称，注册顺序与遍历顺序保持稳定
func (b *Builder) names() []string {
	names := make([]string, 0, len(b.configs))
	for name := range b.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Builder) err() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("redis configuration errors: %v", b.errors)
	}
	return nil
}
