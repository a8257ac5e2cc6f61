package container

import (
	"fmt"
	"reflect"
	"sync"
)

// 内置作用域名称。自定义作用域通过 Container.RegisterScope 注册。
const (
	// ScopeSingleton 每个容器一个实例（默认）。
	ScopeSingleton = "singleton"
	// ScopePrototype 每次获取创建新实例，容器不缓存也不负责销毁。
	ScopePrototype = "prototype"
)

// Role 定义的角色，用于区分应用组件和框架基础设施。
// 角色参与覆盖策略：应用级定义可以替换基础设施级定义。
type Role int

const (
	// RoleApplication 应用主体组件（默认）。
	RoleApplication Role = iota
	// RoleSupport 辅助组件。
	RoleSupport
	// RoleInfrastructure 框架内部组件。
	RoleInfrastructure
)

// ValueHolder 构造函数参数值。
// Type 可选，用于限定目标参数类型；Ref 引用容器内另一个组件（按名称）。
type ValueHolder struct {
	Value any
	Type  reflect.Type
	Ref   string
}

// ConstructorArgs 构造函数参数集合。
// Indexed 按参数位置精确匹配，Generic 按声明类型就近匹配。
type ConstructorArgs struct {
	Indexed map[int]ValueHolder
	Generic []ValueHolder
}

// AddIndexed 添加按位置匹配的参数值。
func (ca *ConstructorArgs) AddIndexed(index int, value any) {
	if ca.Indexed == nil {
		ca.Indexed = make(map[int]ValueHolder)
	}
	ca.Indexed[index] = ValueHolder{Value: value}
}

// AddIndexedRef 添加按位置匹配的组件引用。
func (ca *ConstructorArgs) AddIndexedRef(index int, ref string) {
	if ca.Indexed == nil {
		ca.Indexed = make(map[int]ValueHolder)
	}
	ca.Indexed[index] = ValueHolder{Ref: ref}
}

// AddGeneric 添加按类型匹配的参数值。
func (ca *ConstructorArgs) AddGeneric(value any) {
	ca.Generic = append(ca.Generic, ValueHolder{Value: value})
}

// Empty 没有配置任何参数值。
func (ca *ConstructorArgs) Empty() bool {
	return len(ca.Indexed) == 0 && len(ca.Generic) == 0
}

// Property 属性值，实例化后注入到导出字段。
// Ref 非空时注入容器内名为 Ref 的组件，否则注入字面值 Value。
type Property struct {
	Name  string
	Value any
	Ref   string
}

// Definition 组件定义：描述如何构建一个受管组件的声明式配方。
//
// 注册后、首次创建前定义是可变的；一旦容器开始基于它创建实例，
// 就不应再修改（合并后的副本会缓存解析结果）。
type Definition struct {
	// Type 组件类型（结构体或指针类型）。构造函数存在时可以省略，
	// 此时组件类型取第一个构造函数的首个返回值。
	Type reflect.Type

	// Constructors 候选构造函数列表。多个候选之间按参数打分选优，
	// 这是 Go 下"构造函数重载"的表达方式。
	Constructors []any

	// FactoryRef + FactoryMethod 通过另一个组件的方法创建实例。
	FactoryRef    string
	FactoryMethod string

	// Scope 作用域名称；空串视为 singleton。
	Scope string

	// Lazy 延迟创建（PreInstantiateSingletons 跳过）。
	Lazy bool

	// DependsOn 必须先于本组件创建的组件名列表。
	DependsOn []string

	// Parent 父定义名称，合并时继承父定义的属性。
	Parent string

	// Abstract 抽象定义，仅作为父模板，禁止实例化。
	Abstract bool

	// Primary 类型匹配出现多个候选时优先选择本定义。
	Primary bool

	// Priority 数值优先级，越小越优先；nil 表示未声明。
	Priority *int

	// Qualifier 限定符，用于注入点的定向匹配。
	Qualifier string

	// AutowireCandidate 是否参与按类型自动装配（默认 true）。
	AutowireCandidate bool

	// StrictConstructorResolution 构造函数打分平局时报错而不是取先见者。
	StrictConstructorResolution bool

	// Role 定义角色，参与注册覆盖策略。
	Role Role

	// ConstructorArgs 配置的构造函数参数。
	ConstructorArgs ConstructorArgs

	// Properties 实例化后注入的属性值。
	Properties []Property

	// InitMethod / DestroyMethod 按名称反射调用的生命周期方法。
	// 组件也可以直接实现 Initializer / Disposable 接口。
	InitMethod    string
	DestroyMethod string

	// ---- 解析缓存（只存在于合并后的副本上）----
	resolveMu           sync.Mutex
	resolvedConstructor *executable
	resolvedArgs        []reflect.Value
	preparedArgs        []argumentPlan
}

// NewDefinition 创建组件定义。
//
// target 支持：
//  1. reflect.Type          -> 结构体注入模式
//  2. func(...) (T[, error]) -> 构造函数模式，组件类型取第一个返回值
func NewDefinition(target any, opts ...Option) *Definition {
	def := &Definition{AutowireCandidate: true}

	switch v := target.(type) {
	case nil:
		// 抽象定义或纯父模板，类型由选项或子定义补齐
	case reflect.Type:
		def.Type = v
	default:
		t := reflect.TypeOf(target)
		if t.Kind() == reflect.Func {
			def.Constructors = []any{target}
		} else {
			panic(fmt.Sprintf("container: unsupported definition target %T (want reflect.Type or constructor func)", target))
		}
	}

	for _, opt := range opts {
		opt(def)
	}
	return def
}

// Validate 校验定义的完整性。
func (d *Definition) Validate() error {
	if d.FactoryMethod != "" && d.FactoryRef == "" {
		return fmt.Errorf("container: factory method '%s' requires a factory ref", d.FactoryMethod)
	}
	if d.FactoryRef != "" && d.FactoryMethod == "" {
		return fmt.Errorf("container: factory ref '%s' requires a factory method", d.FactoryRef)
	}
	if d.Type == nil && len(d.Constructors) == 0 && d.FactoryRef == "" &&
		d.Parent == "" && !d.Abstract {
		return fmt.Errorf("container: definition needs a type, constructor, factory or parent")
	}
	for _, ctor := range d.Constructors {
		t := reflect.TypeOf(ctor)
		if t == nil || t.Kind() != reflect.Func {
			return fmt.Errorf("container: constructor must be a func, got %T", ctor)
		}
		if t.NumOut() == 0 {
			return fmt.Errorf("container: constructor must return at least one value")
		}
	}
	return nil
}

// clone 深拷贝定义（不含解析缓存）。合并器在此副本上工作。
func (d *Definition) clone() *Definition {
	cp := &Definition{
		Type:                        d.Type,
		Constructors:                append([]any(nil), d.Constructors...),
		FactoryRef:                  d.FactoryRef,
		FactoryMethod:               d.FactoryMethod,
		Scope:                       d.Scope,
		Lazy:                        d.Lazy,
		DependsOn:                   append([]string(nil), d.DependsOn...),
		Parent:                      d.Parent,
		Abstract:                    d.Abstract,
		Primary:                     d.Primary,
		Priority:                    d.Priority,
		Qualifier:                   d.Qualifier,
		AutowireCandidate:           d.AutowireCandidate,
		StrictConstructorResolution: d.StrictConstructorResolution,
		Role:                        d.Role,
		InitMethod:                  d.InitMethod,
		DestroyMethod:               d.DestroyMethod,
		Properties:                  append([]Property(nil), d.Properties...),
	}
	if d.ConstructorArgs.Indexed != nil {
		cp.ConstructorArgs.Indexed = make(map[int]ValueHolder, len(d.ConstructorArgs.Indexed))
		for i, h := range d.ConstructorArgs.Indexed {
			cp.ConstructorArgs.Indexed[i] = h
		}
	}
	cp.ConstructorArgs.Generic = append([]ValueHolder(nil), d.ConstructorArgs.Generic...)
	return cp
}

// overrideFrom 将 child 的显式配置覆盖到本定义上。
// 本定义此时是父定义的合并副本；child 未设置的属性保留父值。
func (d *Definition) overrideFrom(child *Definition) {
	if child.Type != nil {
		d.Type = child.Type
	}
	if len(child.Constructors) > 0 {
		d.Constructors = append([]any(nil), child.Constructors...)
	}
	if child.FactoryRef != "" {
		d.FactoryRef = child.FactoryRef
		d.FactoryMethod = child.FactoryMethod
	}
	if child.Scope != "" {
		d.Scope = child.Scope
	}
	if len(child.DependsOn) > 0 {
		d.DependsOn = append([]string(nil), child.DependsOn...)
	}
	// 布尔标志与角色以子定义为准
	d.Lazy = child.Lazy
	d.Abstract = child.Abstract
	d.Primary = child.Primary
	d.AutowireCandidate = child.AutowireCandidate
	d.StrictConstructorResolution = child.StrictConstructorResolution
	d.Role = child.Role
	if child.Priority != nil {
		d.Priority = child.Priority
	}
	if child.Qualifier != "" {
		d.Qualifier = child.Qualifier
	}
	if child.InitMethod != "" {
		d.InitMethod = child.InitMethod
	}
	if child.DestroyMethod != "" {
		d.DestroyMethod = child.DestroyMethod
	}

	// 构造参数：子定义按位置覆盖，按类型追加
	for i, h := range child.ConstructorArgs.Indexed {
		if d.ConstructorArgs.Indexed == nil {
			d.ConstructorArgs.Indexed = make(map[int]ValueHolder)
		}
		d.ConstructorArgs.Indexed[i] = h
	}
	d.ConstructorArgs.Generic = append(d.ConstructorArgs.Generic, child.ConstructorArgs.Generic...)

	// 属性：按字段名覆盖
	for _, pv := range child.Properties {
		replaced := false
		for i := range d.Properties {
			if d.Properties[i].Name == pv.Name {
				d.Properties[i] = pv
				replaced = true
				break
			}
		}
		if !replaced {
			d.Properties = append(d.Properties, pv)
		}
	}
}

// isSingleton 合并后的定义是否为单例作用域。
func (d *Definition) isSingleton() bool {
	return d.Scope == "" || d.Scope == ScopeSingleton
}

// isPrototype 合并后的定义是否为原型作用域。
func (d *Definition) isPrototype() bool {
	return d.Scope == ScopePrototype
}

// invalidateResolutionCache 丢弃缓存的构造函数解析结果。
func (d *Definition) invalidateResolutionCache() {
	d.resolveMu.Lock()
	d.resolvedConstructor = nil
	d.resolvedArgs = nil
	d.preparedArgs = nil
	d.resolveMu.Unlock()
}
