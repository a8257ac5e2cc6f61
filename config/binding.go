package config

import (
	"encoding/json"
	"sync"
)

// Binding 配置节的实时绑定视图。
// 构建时绑定一次；配置实现了 Reloadable 时，每次 Reload 后自动重新绑定，
// 持有方通过 Value 总能读到当前值。
type Binding[T any] struct {
	cfg     Configuration
	section string

	mu       sync.RWMutex
	current  T
	onChange []func(T)
}

// NewBinding 创建实时绑定。节不存在时以零值起步，等待后续重载补齐。
func NewBinding[T any](cfg Configuration, section string) *Binding[T] {
	b := &Binding[T]{cfg: cfg, section: section}
	b.rebind()
	if rc, ok := cfg.(Reloadable); ok {
		rc.OnReload(func() { b.rebind() })
	}
	return b
}

// Value 返回最近一次绑定出的值。
func (b *Binding[T]) Value() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Snapshot 返回当前值的深拷贝，调用方可安全修改。
func (b *Binding[T]) Snapshot() T {
	value := b.Value()
	data, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var snapshot T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return value
	}
	return snapshot
}

// OnChange 注册重新绑定后的回调，新值作为参数传入。
func (b *Binding[T]) OnChange(fn func(T)) {
	b.mu.Lock()
	b.onChange = append(b.onChange, fn)
	b.mu.Unlock()
}

// rebind 重新绑定配置节。绑定失败时保留旧值。
func (b *Binding[T]) rebind() {
	var next T
	if err := b.cfg.Bind(b.section, &next); err != nil {
		return
	}
	b.mu.Lock()
	b.current = next
	callbacks := make([]func(T), len(b.onChange))
	copy(callbacks, b.onChange)
	b.mu.Unlock()
	for _, fn := range callbacks {
		fn(next)
	}
}
