package container

// PostProcessor 实例化前后的回调链。
// 容器按注册顺序调用；回调可以替换实例（例如包一层代理）。
type PostProcessor interface {
	// BeforeInit 在初始化回调（Initializer / InitMethod）之前调用。
	BeforeInit(name string, instance any) (any, error)

	// AfterInit 在初始化回调之后调用。
	// 返回 nil 会短路链上剩余的处理器，当前实例保持不变。
	AfterInit(name string, instance any) (any, error)
}

// applyBeforeInit 运行前置处理器链。
func (c *Container) applyBeforeInit(name string, instance any) (any, error) {
	c.processorsMu.RLock()
	processors := c.postProcessors
	c.processorsMu.RUnlock()

	current := instance
	for _, pp := range processors {
		result, err := pp.BeforeInit(name, current)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return current, nil
		}
		current = result
	}
	return current, nil
}

// applyAfterInit 运行后置处理器链。nil 返回值短路剩余处理器。
func (c *Container) applyAfterInit(name string, instance any) (any, error) {
	c.processorsMu.RLock()
	processors := c.postProcessors
	c.processorsMu.RUnlock()

	current := instance
	for _, pp := range processors {
		result, err := pp.AfterInit(name, current)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return current, nil
		}
		current = result
	}
	return current, nil
}
