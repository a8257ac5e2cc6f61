package container

import "reflect"

// Option 配置组件定义。
type Option func(*Definition)

// WithScope 设置作用域名称。
func WithScope(scope string) Option {
	return func(d *Definition) {
		d.Scope = scope
	}
}

// WithSingleton 将作用域设置为 Singleton（默认）。
func WithSingleton() Option {
	return WithScope(ScopeSingleton)
}

// WithPrototype 将作用域设置为 Prototype。
func WithPrototype() Option {
	return WithScope(ScopePrototype)
}

// WithLazy 延迟创建，PreInstantiateSingletons 不会急切实例化。
func WithLazy() Option {
	return func(d *Definition) {
		d.Lazy = true
	}
}

// WithDependsOn 声明必须先创建的组件。
func WithDependsOn(names ...string) Option {
	return func(d *Definition) {
		d.DependsOn = append(d.DependsOn, names...)
	}
}

// WithParent 设置父定义名称，合并时继承其属性。
func WithParent(name string) Option {
	return func(d *Definition) {
		d.Parent = name
	}
}

// WithAbstract 标记为抽象定义（仅作父模板）。
func WithAbstract() Option {
	return func(d *Definition) {
		d.Abstract = true
	}
}

// WithPrimary 类型匹配出现多个候选时优先选择本定义。
func WithPrimary() Option {
	return func(d *Definition) {
		d.Primary = true
	}
}

// WithPriority 设置数值优先级，越小越优先。
func WithPriority(priority int) Option {
	return func(d *Definition) {
		p := priority
		d.Priority = &p
	}
}

// WithQualifier 设置限定符。
func WithQualifier(qualifier string) Option {
	return func(d *Definition) {
		d.Qualifier = qualifier
	}
}

// NotAutowireCandidate 本定义不参与按类型自动装配。
func NotAutowireCandidate() Option {
	return func(d *Definition) {
		d.AutowireCandidate = false
	}
}

// WithRole 设置定义角色。
func WithRole(role Role) Option {
	return func(d *Definition) {
		d.Role = role
	}
}

// WithConstructors 追加候选构造函数。
func WithConstructors(ctors ...any) Option {
	return func(d *Definition) {
		d.Constructors = append(d.Constructors, ctors...)
	}
}

// WithFactory 通过名为 ref 的组件的 method 方法创建实例。
func WithFactory(ref, method string) Option {
	return func(d *Definition) {
		d.FactoryRef = ref
		d.FactoryMethod = method
	}
}

// WithType 显式设置组件类型。
func WithType(t reflect.Type) Option {
	return func(d *Definition) {
		d.Type = t
	}
}

// WithIndexedArg 添加按位置匹配的构造函数参数。
func WithIndexedArg(index int, value any) Option {
	return func(d *Definition) {
		d.ConstructorArgs.AddIndexed(index, value)
	}
}

// WithIndexedArgRef 添加按位置匹配的组件引用参数。
func WithIndexedArgRef(index int, ref string) Option {
	return func(d *Definition) {
		d.ConstructorArgs.AddIndexedRef(index, ref)
	}
}

// WithArg 添加按类型匹配的构造函数参数。
func WithArg(value any) Option {
	return func(d *Definition) {
		d.ConstructorArgs.AddGeneric(value)
	}
}

// WithArgRef 添加按类型匹配的组件引用参数。
func WithArgRef(ref string) Option {
	return func(d *Definition) {
		d.ConstructorArgs.Generic = append(d.ConstructorArgs.Generic, ValueHolder{Ref: ref})
	}
}

// WithProperty 注入字面值到导出字段。
func WithProperty(name string, value any) Option {
	return func(d *Definition) {
		d.Properties = append(d.Properties, Property{Name: name, Value: value})
	}
}

// WithPropertyRef 注入容器内组件到导出字段。
func WithPropertyRef(name, ref string) Option {
	return func(d *Definition) {
		d.Properties = append(d.Properties, Property{Name: name, Ref: ref})
	}
}

// WithInitMethod 实例化并注入完成后按名称调用的初始化方法。
func WithInitMethod(name string) Option {
	return func(d *Definition) {
		d.InitMethod = name
	}
}

// WithDestroyMethod 容器关闭时按名称调用的销毁方法。
func WithDestroyMethod(name string) Option {
	return func(d *Definition) {
		d.DestroyMethod = name
	}
}

// WithStrictConstructorResolution 构造函数打分平局时报错。
// 默认是宽松模式：取先遍历到的最优候选。
func WithStrictConstructorResolution() Option {
	return func(d *Definition) {
		d.StrictConstructorResolution = true
	}
}
