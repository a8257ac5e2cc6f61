package container

import (
	"fmt"
	"sync"
)

// definitionMerger 将带父定义的定义拍平为可直接实例化的合并定义。
//
// 合并结果按名称缓存。缓存持有自己的锁：合并过程可能需要读取父容器
// 的定义元数据，绝不能在持有单例互斥锁时发生（否则会和并发的重注册
// 形成死锁），所以这里刻意与单例锁、注册表锁分离。
type definitionMerger struct {
	mu     sync.Mutex
	merged map[string]*Definition
	c      *Container
}

func newDefinitionMerger(c *Container) *definitionMerger {
	return &definitionMerger{
		merged: make(map[string]*Definition),
		c:      c,
	}
}

// mergedDefinition 返回 name 的合并定义，未注册时返回 NoSuchDefinitionError。
func (m *definitionMerger) mergedDefinition(name string) (*Definition, error) {
	m.mu.Lock()
	if md, ok := m.merged[name]; ok {
		m.mu.Unlock()
		return md, nil
	}
	m.mu.Unlock()

	def, ok := m.c.registry.get(name)
	if !ok {
		return nil, &NoSuchDefinitionError{Name: name}
	}

	md, err := m.mergeFor(name, def, nil)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	// 并发合并同一名称时保留先到者，保证调用方拿到同一份缓存对象
	if cached, ok := m.merged[name]; ok {
		md = cached
	} else {
		m.merged[name] = md
	}
	m.mu.Unlock()
	return md, nil
}

// mergeFor 执行实际合并。containing 是包含本定义的外层定义
// （内嵌/匿名定义场景），非 nil 时结果不进缓存。
func (m *definitionMerger) mergeFor(name string, def *Definition, containing *Definition) (*Definition, error) {
	var md *Definition

	if def.Parent == "" {
		md = def.clone()
	} else {
		parentName := m.c.registry.resolveAlias(def.Parent)
		if parentName == name {
			return nil, fmt.Errorf("container: definition '%s' cannot be its own parent", name)
		}

		var parent *Definition
		if pdef, ok := m.c.registry.get(parentName); ok {
			var err error
			parent, err = m.mergeFor(parentName, pdef, nil)
			if err != nil {
				return nil, err
			}
		} else if m.c.parent != nil {
			var err error
			parent, err = m.c.parent.merger.mergedDefinition(parentName)
			if err != nil {
				return nil, fmt.Errorf("container: cannot resolve parent definition '%s' of '%s': %w",
					parentName, name, err)
			}
		} else {
			return nil, fmt.Errorf("container: parent definition '%s' of '%s' not found",
				parentName, name)
		}

		md = parent.clone()
		md.Parent = ""
		md.overrideFrom(def)
	}

	// 作用域默认为 singleton
	if md.Scope == "" {
		md.Scope = ScopeSingleton
	}

	// 内嵌定义不能比包含它的定义活得更久：外层非单例时降级内层作用域
	if containing != nil && !containing.isSingleton() && md.isSingleton() {
		md.Scope = containing.Scope
	}

	return md, nil
}

// mergedFor 为内嵌定义执行合并（不缓存）。
func (m *definitionMerger) mergedFor(name string, def *Definition, containing *Definition) (*Definition, error) {
	return m.mergeFor(name, def, containing)
}

// invalidate 清除 name 的合并缓存，并递归清除以 name 为父定义的所有定义。
// 任何注册、移除、重定义都必须走这里，否则旧的解析缓存会泄漏到新定义上。
func (m *definitionMerger) invalidate(name string) {
	m.mu.Lock()
	md, ok := m.merged[name]
	if ok {
		delete(m.merged, name)
	}
	m.mu.Unlock()

	if md != nil {
		md.invalidateResolutionCache()
	}

	for _, child := range m.c.registry.childrenOf(name) {
		if child != name {
			m.invalidate(child)
		}
	}
}

// clear 丢弃全部合并缓存。
func (m *definitionMerger) clear() {
	m.mu.Lock()
	m.merged = make(map[string]*Definition)
	m.mu.Unlock()
}
