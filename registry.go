package container

import (
	"fmt"
	"sync"
)

// definitionRegistry 名称到定义的映射。
// 持有独立于单例缓存的锁（见 merger.go 的注释，锁层次是刻意的）。
type definitionRegistry struct {
	mu            sync.RWMutex
	definitions   map[string]*Definition
	names         []string // 注册顺序
	aliases       map[string]string
	allowOverride bool
}

func newDefinitionRegistry(allowOverride bool) *definitionRegistry {
	return &definitionRegistry{
		definitions:   make(map[string]*Definition),
		aliases:       make(map[string]string),
		allowOverride: allowOverride,
	}
}

// register 注册定义。
// 名称冲突时：除非容器允许覆盖，或新定义的角色优先级更高
// （数值更小，应用级可替换基础设施级），否则报错。
func (r *definitionRegistry) register(name string, def *Definition) error {
	if name == "" {
		return fmt.Errorf("container: definition name must not be empty")
	}
	if def == nil {
		return fmt.Errorf("container: definition must not be nil")
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("container: invalid definition '%s': %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.definitions[name]; ok {
		if !r.allowOverride && def.Role >= existing.Role {
			return fmt.Errorf("container: definition '%s' already registered (overriding is disabled)", name)
		}
		r.definitions[name] = def
		return nil
	}
	if _, ok := r.aliases[name]; ok {
		return fmt.Errorf("container: name '%s' is already in use as an alias", name)
	}

	r.definitions[name] = def
	r.names = append(r.names, name)
	return nil
}

// remove 移除定义，不存在时返回 NoSuchDefinitionError。
func (r *definitionRegistry) remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.definitions[name]; !ok {
		return &NoSuchDefinitionError{Name: name}
	}
	delete(r.definitions, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return nil
}

// get 按名称查找定义（不解析别名，调用方先走 canonical）。
func (r *definitionRegistry) get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	return def, ok
}

func (r *definitionRegistry) contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.definitions[name]
	return ok
}

// definitionNames 返回注册顺序的名称快照。
func (r *definitionRegistry) definitionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// childrenOf 返回直接以 name 为父定义的名称列表（用于合并缓存级联失效）。
func (r *definitionRegistry) childrenOf(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var children []string
	for n, def := range r.definitions {
		if def.Parent == name {
			children = append(children, n)
		}
	}
	return children
}

// registerAlias 注册别名。别名链是允许的，但不允许形成环。
func (r *definitionRegistry) registerAlias(name, alias string) error {
	if alias == "" || name == "" {
		return fmt.Errorf("container: alias and name must not be empty")
	}
	if alias == name {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.definitions[alias]; ok {
		return fmt.Errorf("container: cannot register alias '%s': a definition with that name exists", alias)
	}
	if existing, ok := r.aliases[alias]; ok && existing != name {
		return fmt.Errorf("container: alias '%s' already points to '%s'", alias, existing)
	}

	// 环检测：沿着别名链从 name 走回去不能碰到 alias
	cur := name
	for {
		next, ok := r.aliases[cur]
		if !ok {
			break
		}
		if next == alias {
			return fmt.Errorf("container: alias '%s' -> '%s' would form a cycle", alias, name)
		}
		cur = next
	}

	r.aliases[alias] = name
	return nil
}

// resolveAlias 沿别名链解析到规范名称。
func (r *definitionRegistry) resolveAlias(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cur := name
	for {
		next, ok := r.aliases[cur]
		if !ok {
			return cur
		}
		cur = next
	}
}
