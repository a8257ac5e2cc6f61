package container

// Scope 自定义作用域契约。
// 容器只定义存储和销毁回调的契约点，存储策略由实现自带。
type Scope interface {
	// Get 返回 name 在本作用域内的实例，缺失时用 factory 构建并存储。
	Get(name string, factory func() (any, error)) (any, error)

	// Remove 移除并返回 name 的实例（连同其销毁回调），不存在返回 nil。
	Remove(name string) any

	// RegisterDestructionCallback 登记 name 实例的销毁回调。
	// 作用域负责在实例生命周期结束时调用它。
	RegisterDestructionCallback(name string, callback func())
}
