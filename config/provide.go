package config

import (
	"fmt"
	"reflect"

	"github.com/gocrud/container"
)

// Provide 构建配置并注册进容器。
// Configuration 按接口类型直接可注入，可重载实现同时按 Reloadable 暴露。
func Provide(c *container.Container, b *ConfigurationBuilder) (Configuration, error) {
	cfg, err := b.BuildReloadable()
	if err != nil {
		return nil, err
	}
	asTypes := []reflect.Type{container.TypeOf[Configuration]()}
	if _, ok := cfg.(Reloadable); ok {
		asTypes = append(asTypes, container.TypeOf[Reloadable]())
	}
	c.RegisterResolvable(cfg, asTypes...)
	return cfg, nil
}

// Bind 将配置节绑定到结构体 T 并注册为命名单例
func Bind[T any](c *container.Container, cfg Configuration, name, section string) (*T, error) {
	var settings T
	if err := cfg.Bind(section, &settings); err != nil {
		return nil, fmt.Errorf("config: failed to bind section '%s': %w", section, err)
	}
	if err := c.RegisterSingleton(name, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// BindLive 将配置节绑定为实时视图并注册进容器：
// 按名称登记为单例，同时作为 *Binding[T] 类型的可解析依赖供字段注入。
// 与 Bind 不同，配置重载后注入点读到的是新值。
func BindLive[T any](c *container.Container, cfg Configuration, name, section string) (*Binding[T], error) {
	b := NewBinding[T](cfg, section)
	if err := c.RegisterSingleton(name, b); err != nil {
		return nil, err
	}
	c.RegisterResolvable(b)
	return b, nil
}

// Load 加载并绑定指定节的配置到结构体 T
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}
