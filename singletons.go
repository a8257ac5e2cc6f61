package container

import (
	"fmt"
	"sync"

	"github.com/gocrud/container/logging"
)

// singletonState 单例条目的生命周期状态。
// 一个名称在任意时刻只处于一个状态：要么在创建中（可能暴露早期引用），
// 要么已完成，要么已销毁——这就是"三层缓存里名称至多占一层"的不变式。
type singletonState int

const (
	stateInCreation singletonState = iota + 1
	stateFinished
	stateDestroyed
)

// singletonEntry 单个单例名称的缓存条目。
//
// InCreation 状态下 earlyFactory / early 承担打破循环引用的职责：
// earlyFactory 是一次性的，首次需要早期引用时被调用并替换为 early。
type singletonEntry struct {
	state        singletonState
	instance     any
	early        any
	earlyFactory func() any
	done         chan struct{} // 创建结束（成功或失败）时关闭
}

// singletonRegistry 单例注册表。
//
// 一把互斥锁守护条目表和创建追踪集合的全部变更；实际的构建在锁外执行，
// 这样同一调用链可以重入（走早期引用），请求不同名称的并发调用互不阻塞，
// 请求同一名称的并发调用在条目的 done 通道上等待。
type singletonRegistry struct {
	mu         sync.Mutex
	entries    map[string]*singletonEntry
	inCreation map[string]struct{}
	suppressed map[string][]error

	// 依赖边：destroy 时先处理依赖者再处理被依赖者
	dependents   map[string]map[string]struct{} // name -> 依赖 name 的组件
	dependencies map[string]map[string]struct{} // name -> name 依赖的组件

	order       []string // 完成创建的顺序
	disposables map[string]func()

	logger logging.Logger
}

func newSingletonRegistry(logger logging.Logger) *singletonRegistry {
	return &singletonRegistry{
		entries:      make(map[string]*singletonEntry),
		inCreation:   make(map[string]struct{}),
		suppressed:   make(map[string][]error),
		dependents:   make(map[string]map[string]struct{}),
		dependencies: make(map[string]map[string]struct{}),
		disposables:  make(map[string]func()),
		logger:       logger,
	}
}

// get 查询缓存。allowEarly 为 true 时允许触发一次性早期引用工厂，
// 这是循环引用解析的入口：A 在创建中被 B 回头请求时从这里拿到半成品。
func (s *singletonRegistry) get(name string, allowEarly bool) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(name, allowEarly)
}

func (s *singletonRegistry) getLocked(name string, allowEarly bool) (any, bool) {
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	switch e.state {
	case stateFinished:
		return e.instance, true
	case stateInCreation:
		if e.early != nil {
			return e.early, true
		}
		if allowEarly && e.earlyFactory != nil {
			e.early = e.earlyFactory()
			e.earlyFactory = nil
			return e.early, true
		}
	}
	return nil, false
}

// contains name 是否有已完成的实例。
func (s *singletonRegistry) contains(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	return ok && e.state == stateFinished
}

// registerInstance 直接登记一个外部构建好的单例。
func (s *singletonRegistry) registerInstance(name string, instance any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok && e.state != stateDestroyed {
		return fmt.Errorf("container: singleton '%s' is already registered", name)
	}
	s.entries[name] = &singletonEntry{state: stateFinished, instance: instance}
	s.order = append(s.order, name)
	return nil
}

// getOrCreate 返回 name 的单例，必要时用 factory 构建。
//
// 状态机：NotStarted -> InCreation -> Finished（失败回滚到 NotStarted）。
// 同名并发调用在 done 通道上等待后重查；本调用链重入（即构造函数环，
// 早期引用无法满足）直接以 CurrentlyInCreationError 失败。
func (s *singletonRegistry) getOrCreate(name string, rctx *resolutionContext, factory func() (any, error)) (any, error) {
	for {
		s.mu.Lock()
		e, ok := s.entries[name]
		if ok {
			switch e.state {
			case stateFinished:
				s.mu.Unlock()
				return e.instance, nil
			case stateInCreation:
				if rctx.ownsSingleton(name) {
					s.mu.Unlock()
					return nil, &CurrentlyInCreationError{Name: name}
				}
				done := e.done
				s.mu.Unlock()
				<-done
				continue // 重查：可能成功（Finished）也可能失败（条目被移除）
			case stateDestroyed:
				s.mu.Unlock()
				return nil, &CurrentlyInCreationError{Name: name}
			}
		}

		// NotStarted -> InCreation。创建追踪集合里已有该名称说明
		// 状态机被破坏（重复进入），按规约报错。
		if _, dup := s.inCreation[name]; dup {
			s.mu.Unlock()
			return nil, &CurrentlyInCreationError{Name: name}
		}
		s.inCreation[name] = struct{}{}
		e = &singletonEntry{state: stateInCreation, done: make(chan struct{})}
		s.entries[name] = e
		s.mu.Unlock()

		rctx.beforeSingleton(name)
		instance, err := factory()
		rctx.afterSingleton(name)

		s.mu.Lock()
		suppressed := s.suppressed[name]
		delete(s.suppressed, name)
		delete(s.inCreation, name)

		if err != nil {
			// 失败路径：清空全部缓存层级，保证重试时从头创建
			delete(s.entries, name)
			close(e.done)
			s.mu.Unlock()
			if s.logger != nil {
				s.logger.Debug("singleton creation failed",
					logging.Field{Key: "name", Value: name},
					logging.Field{Key: "error", Value: err})
			}
			return nil, newInstantiationError(name, err, suppressed)
		}

		e.state = stateFinished
		e.instance = instance
		e.early = nil
		e.earlyFactory = nil
		s.order = append(s.order, name)
		close(e.done)
		s.mu.Unlock()

		if s.logger != nil {
			s.logger.Debug("singleton created", logging.Field{Key: "name", Value: name})
		}
		return instance, nil
	}
}

// addEarlyFactory 注册一次性早期引用工厂。只在 name 确实处于创建中时生效。
func (s *singletonRegistry) addEarlyFactory(name string, f func() any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok && e.state == stateInCreation && e.early == nil {
		e.earlyFactory = f
	}
}

// earlyConsumed name 的早期引用是否已被取走。
func (s *singletonRegistry) earlyConsumed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	return ok && e.early != nil
}

// inCreationState name 是否正在创建。
func (s *singletonRegistry) inCreationState(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inCreation[name]
	return ok
}

// recordSuppressed 记录创建窗口内观察到的次要错误。
func (s *singletonRegistry) recordSuppressed(name string, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, creating := s.inCreation[name]; creating {
		s.suppressed[name] = append(s.suppressed[name], err)
	}
}

// removeSingleton 从缓存移除（重注册场景）。
func (s *singletonRegistry) removeSingleton(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	delete(s.disposables, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// registerDependent 记录依赖边：dependent 依赖 name。
func (s *singletonRegistry) registerDependent(name, dependent string) {
	if name == dependent {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.dependents[name]
	if !ok {
		set = make(map[string]struct{})
		s.dependents[name] = set
	}
	set[dependent] = struct{}{}

	rev, ok := s.dependencies[dependent]
	if !ok {
		rev = make(map[string]struct{})
		s.dependencies[dependent] = rev
	}
	rev[name] = struct{}{}
}

// isDependent name 是否（传递地）依赖 candidate。用于 dependsOn 环检测。
func (s *singletonRegistry) isDependent(name, candidate string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDependentLocked(name, candidate, make(map[string]struct{}))
}

func (s *singletonRegistry) isDependentLocked(name, candidate string, seen map[string]struct{}) bool {
	if _, done := seen[name]; done {
		return false
	}
	seen[name] = struct{}{}
	deps, ok := s.dependencies[name]
	if !ok {
		return false
	}
	if _, direct := deps[candidate]; direct {
		return true
	}
	for dep := range deps {
		if s.isDependentLocked(dep, candidate, seen) {
			return true
		}
	}
	return false
}

// registerDisposable 登记销毁回调，destroySingletons 时按依赖序执行。
func (s *singletonRegistry) registerDisposable(name string, callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposables[name] = callback
}

// destroySingletons 销毁全部单例。
// 顺序在此刻推导：整体按完成创建的逆序，且每个组件销毁前先递归销毁
// 依赖它的组件——依赖者必须先于被依赖者消亡。
func (s *singletonRegistry) destroySingletons() {
	s.mu.Lock()
	names := append([]string(nil), s.order...)
	s.mu.Unlock()

	for i := len(names) - 1; i >= 0; i-- {
		s.destroySingleton(names[i])
	}

	s.mu.Lock()
	s.entries = make(map[string]*singletonEntry)
	s.order = nil
	s.dependents = make(map[string]map[string]struct{})
	s.dependencies = make(map[string]map[string]struct{})
	s.mu.Unlock()
}

// destroySingleton 销毁单个单例及其依赖者（依赖者优先）。
func (s *singletonRegistry) destroySingleton(name string) {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok || e.state != stateFinished {
		s.mu.Unlock()
		return
	}
	e.state = stateDestroyed
	callback := s.disposables[name]
	delete(s.disposables, name)
	var deps []string
	for dep := range s.dependents[name] {
		deps = append(deps, dep)
	}
	delete(s.dependents, name)
	s.mu.Unlock()

	for _, dep := range deps {
		s.destroySingleton(dep)
	}

	if callback != nil {
		callback()
	}
	if s.logger != nil {
		s.logger.Trace("singleton destroyed", logging.Field{Key: "name", Value: name})
	}
}

// finishedNames 已完成创建的名称快照（按完成顺序）。
func (s *singletonRegistry) finishedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, n := range s.order {
		if e, ok := s.entries[n]; ok && e.state == stateFinished {
			names = append(names, n)
		}
	}
	return names
}
