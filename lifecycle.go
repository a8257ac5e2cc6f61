package container

import "reflect"

// Initializer 组件在依赖注入完成后的初始化钩子。
// 也可以用 Definition.InitMethod 按名称指定任意方法。
type Initializer interface {
	Init() error
}

// Disposable 组件在容器关闭时的销毁钩子。
// 也可以用 Definition.DestroyMethod 按名称指定任意方法。
type Disposable interface {
	Destroy() error
}

// ObjectFactory 工厂组件：按名称获取时透明地解引用为其产品。
// 保留前缀 FactoryPrefix 用于获取工厂本身。
type ObjectFactory interface {
	// Object 生产（或返回缓存的）产品实例。
	Object() (any, error)
	// ObjectType 产品类型，用于不实例化的类型预测。
	ObjectType() reflect.Type
}

// FactoryPrefix 名称前缀：获取工厂组件本身而不是它的产品。
const FactoryPrefix = "&"

var objectFactoryType = reflect.TypeOf((*ObjectFactory)(nil)).Elem()
