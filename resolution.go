package container

// resolutionContext 一次顶层 Get 调用的解析上下文。
//
// Go 没有线程局部存储，容器也不该依赖 goroutine 身份；取而代之，
// 每次对外的获取调用创建一个上下文并沿解析调用链显式传递。
// 它同时承担两个职责：
//  1. 原型作用域的创建追踪（对应源系统里 per-thread 的原型集合）；
//  2. 判断"单例正在创建"是本调用链的环（致命）还是并发调用（等待）。
type resolutionContext struct {
	singletons map[string]struct{}
	prototypes map[string]struct{}
	stack      []string
}

func newResolutionContext() *resolutionContext {
	return &resolutionContext{}
}

func (rc *resolutionContext) beforeSingleton(name string) {
	if rc.singletons == nil {
		rc.singletons = make(map[string]struct{})
	}
	rc.singletons[name] = struct{}{}
	rc.stack = append(rc.stack, name)
}

func (rc *resolutionContext) afterSingleton(name string) {
	delete(rc.singletons, name)
	rc.popStack(name)
}

// ownsSingleton 本调用链是否正在创建 name。
func (rc *resolutionContext) ownsSingleton(name string) bool {
	_, ok := rc.singletons[name]
	return ok
}

// beforePrototype 登记原型创建；重复进入说明原型环，报错。
func (rc *resolutionContext) beforePrototype(name string) error {
	if rc.prototypes == nil {
		rc.prototypes = make(map[string]struct{})
	}
	if _, dup := rc.prototypes[name]; dup {
		return &CurrentlyInCreationError{Name: name}
	}
	rc.prototypes[name] = struct{}{}
	rc.stack = append(rc.stack, name)
	return nil
}

func (rc *resolutionContext) afterPrototype(name string) {
	delete(rc.prototypes, name)
	rc.popStack(name)
}

func (rc *resolutionContext) inPrototypeCreation(name string) bool {
	_, ok := rc.prototypes[name]
	return ok
}

func (rc *resolutionContext) popStack(name string) {
	for i := len(rc.stack) - 1; i >= 0; i-- {
		if rc.stack[i] == name {
			rc.stack = append(rc.stack[:i], rc.stack[i+1:]...)
			return
		}
	}
}
