package container

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gocrud/container/logging"
)

// Container IoC 容器：注册组件定义，按名称/类型解析实例，管理生命周期。
//
// 容器实例自持全部状态，互相独立；父容器通过组合委托，
// 本地找不到的定义和候选会沿父链向上查找。
type Container struct {
	parent     *Container
	registry   *definitionRegistry
	merger     *definitionMerger
	singletons *singletonRegistry

	scopesMu sync.RWMutex
	scopes   map[string]Scope

	processorsMu   sync.RWMutex
	postProcessors []PostProcessor

	resolvablesMu sync.RWMutex
	resolvables   []resolvableDependency

	productsMu sync.Mutex
	products   map[string]any // ObjectFactory 单例工厂的产品缓存

	logger        logging.Logger
	allowCircular bool
}

// resolvableDependency 预注册的可解析依赖：注入点类型可赋值即命中。
type resolvableDependency struct {
	typ   reflect.Type
	value any
}

// ContainerOption 配置容器。
type ContainerOption func(*Container)

// WithParentContainer 设置父容器。
func WithParentContainer(parent *Container) ContainerOption {
	return func(c *Container) {
		c.parent = parent
	}
}

// WithLogger 设置容器日志。
func WithLogger(logger logging.Logger) ContainerOption {
	return func(c *Container) {
		c.logger = logger
	}
}

// AllowDefinitionOverride 允许同名定义覆盖注册。
func AllowDefinitionOverride() ContainerOption {
	return func(c *Container) {
		c.registry.allowOverride = true
	}
}

// DisallowCircularReferences 禁用早期引用，任何循环引用都按致命处理。
func DisallowCircularReferences() ContainerOption {
	return func(c *Container) {
		c.allowCircular = false
	}
}

// New 创建容器。
func New(opts ...ContainerOption) *Container {
	c := &Container{
		registry:      newDefinitionRegistry(false),
		scopes:        make(map[string]Scope),
		products:      make(map[string]any),
		allowCircular: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.merger = newDefinitionMerger(c)
	c.singletons = newSingletonRegistry(c.logger)

	// 容器自身是内置可解析依赖
	c.resolvables = append(c.resolvables, resolvableDependency{
		typ:   reflect.TypeOf(c),
		value: c,
	})
	return c
}

// ---------------------------------------------------------------------------
// 定义注册

// RegisterDefinition 注册组件定义。
// 重注册会丢弃旧的合并缓存、解析缓存和已创建的单例实例。
func (c *Container) RegisterDefinition(name string, def *Definition) error {
	if err := c.registry.register(name, def); err != nil {
		return err
	}
	c.merger.invalidate(name)
	def.invalidateResolutionCache()
	c.singletons.removeSingleton(name)
	c.dropProduct(name)
	return nil
}

// RemoveDefinition 移除定义及其全部缓存痕迹。
func (c *Container) RemoveDefinition(name string) error {
	if err := c.registry.remove(name); err != nil {
		return err
	}
	c.merger.invalidate(name)
	c.singletons.removeSingleton(name)
	c.dropProduct(name)
	return nil
}

// ContainsDefinition 本容器是否注册了名为 name 的定义。
func (c *Container) ContainsDefinition(name string) bool {
	return c.registry.contains(c.registry.resolveAlias(name))
}

// DefinitionNames 注册顺序的定义名称列表。
func (c *Container) DefinitionNames() []string {
	return c.registry.definitionNames()
}

// MergedDefinition 返回 name 的合并定义（父定义属性已拍平，作用域已定）。
func (c *Container) MergedDefinition(name string) (*Definition, error) {
	return c.merger.mergedDefinition(c.registry.resolveAlias(name))
}

// RegisterAlias 为已注册名称登记别名。
func (c *Container) RegisterAlias(name, alias string) error {
	return c.registry.registerAlias(name, alias)
}

// RegisterSingleton 直接登记一个外部构建好的单例实例。
func (c *Container) RegisterSingleton(name string, instance any) error {
	if instance == nil {
		return fmt.Errorf("container: singleton instance must not be nil")
	}
	return c.singletons.registerInstance(name, instance)
}

// RegisterResolvable 注册内置可解析依赖。
// asTypes 省略时以值的动态类型注册；注入点按可赋值匹配，先注册者先命中。
func (c *Container) RegisterResolvable(value any, asTypes ...reflect.Type) {
	c.resolvablesMu.Lock()
	defer c.resolvablesMu.Unlock()
	if len(asTypes) == 0 {
		c.resolvables = append(c.resolvables, resolvableDependency{
			typ:   reflect.TypeOf(value),
			value: value,
		})
		return
	}
	for _, t := range asTypes {
		c.resolvables = append(c.resolvables, resolvableDependency{typ: t, value: value})
	}
}

// RegisterScope 注册自定义作用域。
func (c *Container) RegisterScope(name string, scope Scope) error {
	if name == ScopeSingleton || name == ScopePrototype {
		return fmt.Errorf("container: cannot replace built-in scope '%s'", name)
	}
	if scope == nil {
		return fmt.Errorf("container: scope must not be nil")
	}
	c.scopesMu.Lock()
	c.scopes[name] = scope
	c.scopesMu.Unlock()
	return nil
}

// AddPostProcessor 追加实例化回调，按添加顺序执行。
func (c *Container) AddPostProcessor(pp PostProcessor) {
	c.processorsMu.Lock()
	c.postProcessors = append(c.postProcessors, pp)
	c.processorsMu.Unlock()
}

// ---------------------------------------------------------------------------
// 获取

// Get 按名称获取组件实例。
func (c *Container) Get(name string) (any, error) {
	return c.getWithContext(name, nil, newResolutionContext())
}

// GetWithArgs 按名称获取组件实例，显式提供构造函数参数。
// 显式参数绕过构造函数解析缓存，也不会被缓存。
func (c *Container) GetWithArgs(name string, args ...any) (any, error) {
	return c.getWithContext(name, args, newResolutionContext())
}

// GetByType 按类型获取唯一候选实例。
func (c *Container) GetByType(t reflect.Type) (any, error) {
	return c.resolveDependency(DependencyDescriptor{Type: t, Required: true}, "", newResolutionContext())
}

// getWithContext 获取主流程。解析上下文沿调用链传递（见 resolution.go）。
func (c *Container) getWithContext(name string, explicitArgs []any, rctx *resolutionContext) (any, error) {
	canonical, deref := c.canonicalName(name)

	// 快速路径：已完成的单例。早期引用仅限正在创建该名称的调用链，
	// 其他调用方在 getOrCreate 里等待创建完成。
	if explicitArgs == nil {
		if instance, ok := c.singletons.get(canonical, rctx.ownsSingleton(canonical)); ok {
			return c.exposeInstance(canonical, instance, deref)
		}
	}

	if rctx.inPrototypeCreation(canonical) {
		return nil, &CurrentlyInCreationError{Name: canonical}
	}

	if !c.registry.contains(canonical) {
		if c.parent != nil {
			if explicitArgs != nil {
				return c.parent.GetWithArgs(name, explicitArgs...)
			}
			return c.parent.Get(name)
		}
		return nil, &NoSuchDefinitionError{Name: canonical}
	}

	md, err := c.merger.mergedDefinition(canonical)
	if err != nil {
		return nil, err
	}
	if md.Abstract {
		return nil, &AbstractDefinitionError{Name: canonical}
	}

	// dependsOn 声明的依赖先行创建；环是配置错误，直接致命
	for _, dep := range md.DependsOn {
		depName := c.registry.resolveAlias(dep)
		if c.singletons.isDependent(depName, canonical) {
			return nil, fmt.Errorf("container: circular depends-on between '%s' and '%s'", canonical, depName)
		}
		c.singletons.registerDependent(depName, canonical)
		if _, err := c.getWithContext(depName, nil, rctx); err != nil {
			return nil, fmt.Errorf("container: depends-on '%s' of '%s': %w", depName, canonical, err)
		}
	}

	var instance any
	switch {
	case md.isSingleton():
		instance, err = c.singletons.getOrCreate(canonical, rctx, func() (any, error) {
			return c.createComponent(canonical, md, explicitArgs, rctx)
		})

	case md.isPrototype():
		if err = rctx.beforePrototype(canonical); err != nil {
			return nil, err
		}
		instance, err = c.createComponent(canonical, md, explicitArgs, rctx)
		rctx.afterPrototype(canonical)
		if err != nil {
			return nil, newInstantiationError(canonical, err, nil)
		}

	default:
		c.scopesMu.RLock()
		scope, ok := c.scopes[md.Scope]
		c.scopesMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("container: no scope registered with name '%s'", md.Scope)
		}
		instance, err = scope.Get(canonical, func() (any, error) {
			if err := rctx.beforePrototype(canonical); err != nil {
				return nil, err
			}
			defer rctx.afterPrototype(canonical)
			return c.createComponent(canonical, md, explicitArgs, rctx)
		})
		if err != nil {
			return nil, newInstantiationError(canonical, err, nil)
		}
	}
	if err != nil {
		return nil, err
	}

	return c.exposeInstance(canonical, instance, deref)
}

// canonicalName 剥离工厂前缀并解析别名。
func (c *Container) canonicalName(name string) (string, bool) {
	deref := false
	for strings.HasPrefix(name, FactoryPrefix) {
		deref = true
		name = name[len(FactoryPrefix):]
	}
	return c.registry.resolveAlias(name), deref
}

// exposeInstance 决定对外暴露什么：普通实例原样返回；
// 工厂组件默认解引用为产品（单例工厂的产品带缓存），
// 带工厂前缀的请求返回工厂本身。
func (c *Container) exposeInstance(name string, instance any, deref bool) (any, error) {
	factory, isFactory := instance.(ObjectFactory)
	if deref {
		if !isFactory {
			return nil, fmt.Errorf("container: component '%s' is not an ObjectFactory", name)
		}
		return instance, nil
	}
	if !isFactory {
		return instance, nil
	}

	c.productsMu.Lock()
	if product, ok := c.products[name]; ok {
		c.productsMu.Unlock()
		return product, nil
	}
	c.productsMu.Unlock()

	product, err := factory.Object()
	if err != nil {
		return nil, fmt.Errorf("container: factory '%s' failed to produce object: %w", name, err)
	}
	if product == nil {
		return nil, fmt.Errorf("container: factory '%s' produced nil object", name)
	}

	if c.isSingletonName(name) {
		c.productsMu.Lock()
		if cached, ok := c.products[name]; ok {
			product = cached
		} else {
			c.products[name] = product
		}
		c.productsMu.Unlock()
	}
	return product, nil
}

func (c *Container) dropProduct(name string) {
	c.productsMu.Lock()
	delete(c.products, name)
	c.productsMu.Unlock()
}

// isSingletonName name 是否按单例语义共享。
func (c *Container) isSingletonName(name string) bool {
	if c.singletons.contains(name) {
		return true
	}
	if md, err := c.merger.mergedDefinition(name); err == nil {
		return md.isSingleton()
	}
	return false
}

// ---------------------------------------------------------------------------
// 创建

// createComponent 实例化、注入、初始化一个组件。
// 单例在创建中会注册早期引用工厂，这是 A->B->A 字段注入环的解药。
func (c *Container) createComponent(name string, md *Definition, explicitArgs []any, rctx *resolutionContext) (any, error) {
	if c.logger != nil {
		c.logger.Trace("creating component", logging.Field{Key: "name", Value: name})
	}

	instance, err := c.instantiateComponent(name, md, explicitArgs, rctx)
	if err != nil {
		return nil, err
	}

	earlyExposure := md.isSingleton() && c.allowCircular && c.singletons.inCreationState(name)
	if earlyExposure {
		raw := instance
		c.singletons.addEarlyFactory(name, func() any { return raw })
	}

	if err := c.populateComponent(name, md, instance, rctx); err != nil {
		return nil, err
	}

	exposed, err := c.initializeComponent(name, md, instance)
	if err != nil {
		return nil, err
	}

	// 早期引用一旦被别人拿走，实例身份就定死了：
	// 后置处理器再替换实例会造成同一名称两个对象，必须报错。
	if earlyExposure && !sameInstance(exposed, instance) && c.singletons.earlyConsumed(name) {
		return nil, fmt.Errorf(
			"container: component '%s' was replaced during initialization but its early reference is already injected elsewhere", name)
	}

	c.registerDestructionIfNeeded(name, md, exposed)
	return exposed, nil
}

// populateComponent 属性填充阶段：di 标签字段注入 + 配置的属性值。
func (c *Container) populateComponent(name string, md *Definition, instance any, rctx *resolutionContext) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		if len(md.Properties) > 0 {
			return fmt.Errorf("container: component '%s' (%T) is not a struct pointer, cannot apply properties", name, instance)
		}
		return nil
	}
	elem := v.Elem()
	t := elem.Type()

	// di 标签驱动的字段注入
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tagValue, hasTag := field.Tag.Lookup("di")
		if !hasTag || !field.IsExported() {
			continue
		}

		qualifier, optional := parseInjectTag(tagValue)
		desc := DependencyDescriptor{
			Type:      field.Type,
			Name:      lowerFirst(field.Name),
			Qualifier: qualifier,
			Required:  !optional,
		}
		value, err := c.resolveDependency(desc, name, rctx)
		if err != nil {
			if optional {
				continue
			}
			return fmt.Errorf("container: field %s of '%s': %w", field.Name, name, err)
		}
		if value == nil {
			continue
		}
		converted, err := convertValue(value, field.Type)
		if err != nil {
			return fmt.Errorf("container: field %s of '%s': %w", field.Name, name, err)
		}
		elem.Field(i).Set(converted)
	}

	// 配置的属性值
	for _, prop := range md.Properties {
		field, ok := t.FieldByName(prop.Name)
		if !ok || !field.IsExported() {
			return fmt.Errorf("container: component '%s' has no settable field '%s'", name, prop.Name)
		}

		var value any
		if prop.Ref != "" {
			ref, err := c.getWithContext(prop.Ref, nil, rctx)
			if err != nil {
				return fmt.Errorf("container: property %s of '%s': %w", prop.Name, name, err)
			}
			c.singletons.registerDependent(c.registry.resolveAlias(prop.Ref), name)
			value = ref
		} else {
			value = prop.Value
		}

		converted, err := convertValue(value, field.Type)
		if err != nil {
			return fmt.Errorf("container: property %s of '%s': %w", prop.Name, name, err)
		}
		elem.FieldByIndex(field.Index).Set(converted)
	}

	return nil
}

// initializeComponent 初始化阶段：前置处理器 -> Init -> 后置处理器。
func (c *Container) initializeComponent(name string, md *Definition, instance any) (any, error) {
	current, err := c.applyBeforeInit(name, instance)
	if err != nil {
		return nil, fmt.Errorf("container: before-init of '%s': %w", name, err)
	}

	if init, ok := current.(Initializer); ok {
		if err := init.Init(); err != nil {
			return nil, fmt.Errorf("container: init of '%s': %w", name, err)
		}
	}
	if md.InitMethod != "" && !implementsNamedHook(current, md.InitMethod, "Init") {
		if err := invokeLifecycleMethod(current, md.InitMethod); err != nil {
			return nil, fmt.Errorf("container: init method '%s' of '%s': %w", md.InitMethod, name, err)
		}
	}

	current, err = c.applyAfterInit(name, current)
	if err != nil {
		return nil, fmt.Errorf("container: after-init of '%s': %w", name, err)
	}
	return current, nil
}

// implementsNamedHook InitMethod/DestroyMethod 与接口钩子同名时只调用一次。
func implementsNamedHook(instance any, method, hookName string) bool {
	if method != hookName {
		return false
	}
	switch hookName {
	case "Init":
		_, ok := instance.(Initializer)
		return ok
	case "Destroy":
		_, ok := instance.(Disposable)
		return ok
	}
	return false
}

// invokeLifecycleMethod 按名称反射调用无参生命周期方法（可选 error 返回）。
func invokeLifecycleMethod(instance any, name string) error {
	method := reflect.ValueOf(instance).MethodByName(name)
	if !method.IsValid() {
		return fmt.Errorf("no method '%s' on %T", name, instance)
	}
	if method.Type().NumIn() != 0 {
		return fmt.Errorf("method '%s' on %T must take no arguments", name, instance)
	}
	results := method.Call(nil)
	for _, r := range results {
		if r.Type().Implements(errorType) && !r.IsNil() {
			return r.Interface().(error)
		}
	}
	return nil
}

// registerDestructionIfNeeded 按作用域登记销毁回调。
// 原型实例的销毁由调用方负责，容器不追踪。
func (c *Container) registerDestructionIfNeeded(name string, md *Definition, instance any) {
	callback := c.destructionCallback(name, md, instance)
	if callback == nil {
		return
	}
	switch {
	case md.isSingleton():
		c.singletons.registerDisposable(name, callback)
	case md.isPrototype():
		// no-op
	default:
		c.scopesMu.RLock()
		scope, ok := c.scopes[md.Scope]
		c.scopesMu.RUnlock()
		if ok {
			scope.RegisterDestructionCallback(name, callback)
		}
	}
}

func (c *Container) destructionCallback(name string, md *Definition, instance any) func() {
	disposable, isDisposable := instance.(Disposable)
	hasMethod := md.DestroyMethod != "" && !implementsNamedHook(instance, md.DestroyMethod, "Destroy")
	if !isDisposable && !hasMethod {
		return nil
	}
	return func() {
		if isDisposable {
			if err := disposable.Destroy(); err != nil && c.logger != nil {
				c.logger.Warn("destroy failed",
					logging.Field{Key: "name", Value: name},
					logging.Field{Key: "error", Value: err})
			}
		}
		if hasMethod {
			if err := invokeLifecycleMethod(instance, md.DestroyMethod); err != nil && c.logger != nil {
				c.logger.Warn("destroy method failed",
					logging.Field{Key: "name", Value: name},
					logging.Field{Key: "error", Value: err})
			}
		}
	}
}

// ---------------------------------------------------------------------------
// 查询

// IsSingleton name 是否按单例语义共享。
func (c *Container) IsSingleton(name string) (bool, error) {
	canonical, _ := c.canonicalName(name)
	if c.singletons.contains(canonical) && !c.registry.contains(canonical) {
		return true, nil
	}
	if !c.registry.contains(canonical) {
		if c.parent != nil {
			return c.parent.IsSingleton(name)
		}
		return false, &NoSuchDefinitionError{Name: canonical}
	}
	md, err := c.merger.mergedDefinition(canonical)
	if err != nil {
		return false, err
	}
	return md.isSingleton(), nil
}

// IsPrototype name 是否每次获取产生新实例。
func (c *Container) IsPrototype(name string) (bool, error) {
	canonical, _ := c.canonicalName(name)
	if c.singletons.contains(canonical) && !c.registry.contains(canonical) {
		return false, nil
	}
	if !c.registry.contains(canonical) {
		if c.parent != nil {
			return c.parent.IsPrototype(name)
		}
		return false, &NoSuchDefinitionError{Name: canonical}
	}
	md, err := c.merger.mergedDefinition(canonical)
	if err != nil {
		return false, err
	}
	return md.isPrototype(), nil
}

// GetType 预测 name 暴露的类型；带工厂前缀时返回工厂自身类型。
func (c *Container) GetType(name string) (reflect.Type, error) {
	canonical, deref := c.canonicalName(name)
	if !deref {
		return c.predictType(canonical)
	}

	if instance, ok := c.singletons.get(canonical, false); ok && instance != nil {
		return reflect.TypeOf(instance), nil
	}
	md, err := c.merger.mergedDefinition(canonical)
	if err != nil {
		if c.parent != nil {
			return c.parent.GetType(name)
		}
		return nil, err
	}
	return c.definitionType(canonical, md), nil
}

// IsTypeMatch name 暴露的实例是否可赋给 t 声明的注入点。
func (c *Container) IsTypeMatch(name string, t reflect.Type) (bool, error) {
	actual, err := c.GetType(name)
	if err != nil {
		return false, err
	}
	if actual == nil {
		return false, nil
	}
	return typeMatches(actual, t), nil
}

// ---------------------------------------------------------------------------
// 生命周期

// PreInstantiateSingletons 急切实例化所有非延迟的单例定义。
func (c *Container) PreInstantiateSingletons() error {
	for _, name := range c.registry.definitionNames() {
		md, err := c.merger.mergedDefinition(name)
		if err != nil {
			return err
		}
		if md.Abstract || md.Lazy || !md.isSingleton() {
			continue
		}
		if _, err := c.Get(name); err != nil {
			return fmt.Errorf("container: eager instantiation of '%s': %w", name, err)
		}
	}
	return nil
}

// Close 销毁全部单例：依赖者先于被依赖者，整体按创建完成的逆序。
func (c *Container) Close() {
	if c.logger != nil {
		c.logger.Debug("closing container")
	}
	c.singletons.destroySingletons()
	c.productsMu.Lock()
	c.products = make(map[string]any)
	c.productsMu.Unlock()
}

// ---------------------------------------------------------------------------

// matchResolvable 内置可解析依赖查找：第一个可赋值匹配胜出。
func (c *Container) matchResolvable(target reflect.Type) (any, bool) {
	c.resolvablesMu.RLock()
	for _, r := range c.resolvables {
		if r.typ != nil && typeMatches(r.typ, target) {
			c.resolvablesMu.RUnlock()
			return r.value, true
		}
	}
	c.resolvablesMu.RUnlock()

	if c.parent != nil {
		return c.parent.matchResolvable(target)
	}
	return nil, false
}

// parseInjectTag 解析 di 标签："name,optional"；"?" 等价于 optional。
func parseInjectTag(tag string) (qualifier string, optional bool) {
	parts := strings.Split(tag, ",")
	qualifier = strings.TrimSpace(parts[0])
	if qualifier == "?" || qualifier == "optional" {
		qualifier = ""
		optional = true
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "optional" || part == "?" {
			optional = true
		}
	}
	return qualifier, optional
}

// lowerFirst 字段名到组件名的约定转换（ServiceA -> serviceA）。
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// sameInstance 身份比较，仅对引用类语义的值有意义。
func sameInstance(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != vb.Kind() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Map, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	return false
}
