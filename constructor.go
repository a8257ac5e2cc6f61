package container

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// executable 一个可调用的实例化入口：构造函数或工厂方法。
// 封装反射调用的细节：error 尾值检查和 nil 实例检查。
type executable struct {
	fn   reflect.Value
	typ  reflect.Type
	desc string
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// invoke 调用构造函数/工厂方法并规整返回值。
func (e *executable) invoke(args []reflect.Value) (any, error) {
	results := e.fn.Call(args)
	if len(results) == 0 {
		return nil, fmt.Errorf("container: %s returned no values", e.desc)
	}

	// 检查 error 尾值
	if len(results) > 1 {
		last := results[len(results)-1]
		if last.Type().Implements(errorType) {
			if !last.IsNil() {
				return nil, fmt.Errorf("container: %s failed: %w", e.desc, last.Interface().(error))
			}
		}
	}

	// 检查 nil 实例
	first := results[0]
	if first.Kind() == reflect.Pointer || first.Kind() == reflect.Interface {
		if first.IsNil() {
			return nil, fmt.Errorf("container: %s returned nil instance", e.desc)
		}
	}

	return first.Interface(), nil
}

// paramTypes 候选的参数类型列表。变长参数尾由调用方按省略处理。
func (e *executable) paramTypes() []reflect.Type {
	n := e.typ.NumIn()
	if e.typ.IsVariadic() {
		n--
	}
	params := make([]reflect.Type, n)
	for i := 0; i < n; i++ {
		params[i] = e.typ.In(i)
	}
	return params
}

// argumentPlan 单个参数的解析计划。holder 为 nil 表示该参数需要自动装配。
// 含自动装配参数的候选缓存这个计划而不是参数数组，原型重复创建时重新解析。
type argumentPlan struct {
	paramType reflect.Type
	holder    *ValueHolder
}

// candidateArguments 一个候选的参数装配结果。
type candidateArguments struct {
	exec         *executable
	args         []reflect.Value
	raw          []any
	plans        []argumentPlan
	needsResolve bool
}

const (
	// incompatibleWeight 候选与参数完全不兼容。
	incompatibleWeight = math.MaxInt32
	// rawArgumentBonus 未经转换即匹配的参数集的固定加成：
	// 原始值精确匹配是更强的意图证据，平局时优先。
	rawArgumentBonus = 1024
)

// parameterWeight 单参数的类型距离。纯函数，独立于容器状态。
func parameterWeight(param reflect.Type, arg any) int {
	if arg == nil {
		switch param.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return 1
		}
		return incompatibleWeight
	}
	t := reflect.TypeOf(arg)
	if t == param {
		return 0
	}
	if param.Kind() == reflect.Interface && t.Implements(param) {
		return 1
	}
	if t.AssignableTo(param) {
		return 2
	}
	if t.ConvertibleTo(param) && convertibleKinds(t.Kind(), param.Kind()) {
		return 4
	}
	return incompatibleWeight
}

// typeDifferenceWeight 参数集的类型距离总和。
// 每个成功绑定的参数抵扣 1：可满足的参数越多的候选越优，
// 这保证了"多一个可装配参数的重载严格胜出"的排序性质。
func typeDifferenceWeight(params []reflect.Type, args []any) int {
	if len(params) != len(args) {
		return incompatibleWeight
	}
	total := 0
	for i, param := range params {
		w := parameterWeight(param, args[i])
		if w == incompatibleWeight {
			return incompatibleWeight
		}
		total += w
	}
	return total - len(params)
}

// instantiateComponent 按定义选择实例化方式并执行。
func (c *Container) instantiateComponent(name string, md *Definition, explicitArgs []any, rctx *resolutionContext) (any, error) {
	if md.FactoryRef != "" {
		return c.resolveAndInvoke(name, md, explicitArgs, rctx)
	}
	if len(md.Constructors) > 0 {
		return c.resolveAndInvoke(name, md, explicitArgs, rctx)
	}
	return c.instantiateStruct(name, md)
}

// instantiateStruct 结构体注入模式：分配零值实例，字段注入随后进行。
// 实例统一归一化为指针，否则字段注入拿不到可寻址的值。
func (c *Container) instantiateStruct(name string, md *Definition) (any, error) {
	t := md.Type
	if t == nil {
		return nil, fmt.Errorf("container: definition '%s' has no type to instantiate", name)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("container: definition '%s' type %v is not a struct", name, md.Type)
	}
	return reflect.New(t).Interface(), nil
}

// resolveAndInvoke 构造函数/工厂方法重载解析主流程。
//
// 快速路径：合并定义上缓存过的解析结果直接复用（原型重复创建）。
// 慢路径：收集候选，按参数个数降序逐个装配参数并打分，
// 记录最小权重；严格模式下的平局报 AmbiguousConstructorError。
func (c *Container) resolveAndInvoke(name string, md *Definition, explicitArgs []any, rctx *resolutionContext) (any, error) {
	// 缓存快速路径（显式参数绕过缓存）
	if explicitArgs == nil {
		md.resolveMu.Lock()
		exec := md.resolvedConstructor
		args := md.resolvedArgs
		plans := md.preparedArgs
		md.resolveMu.Unlock()

		if exec != nil {
			if plans != nil {
				resolved, err := c.resolvePreparedArgs(name, plans, rctx)
				if err != nil {
					return nil, err
				}
				return exec.invoke(resolved)
			}
			return exec.invoke(args)
		}
	}

	candidates, cacheable, err := c.gatherCandidates(name, md, rctx)
	if err != nil {
		return nil, err
	}

	// 平凡路径：唯一的零参候选且没有配置参数值
	if len(candidates) == 1 && explicitArgs == nil && md.ConstructorArgs.Empty() {
		if len(candidates[0].paramTypes()) == 0 {
			if cacheable {
				md.resolveMu.Lock()
				md.resolvedConstructor = candidates[0]
				md.resolvedArgs = []reflect.Value{}
				md.resolveMu.Unlock()
			}
			return candidates[0].invoke(nil)
		}
	}

	// 参数多的候选优先考察
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].typ.NumIn() > candidates[j].typ.NumIn()
	})

	minWeight := incompatibleWeight
	var best *candidateArguments
	var ambiguous []string
	var causes []error

	for _, cand := range candidates {
		ca, err := c.assembleArguments(name, md, cand, explicitArgs, rctx)
		if err != nil {
			// 单个候选装不满不是致命错误：记录原因，换下一个
			causes = append(causes, err)
			c.singletons.recordSuppressed(name, err)
			continue
		}

		params := cand.paramTypes()
		converted := make([]any, len(ca.args))
		for i, v := range ca.args {
			if v.IsValid() {
				converted[i] = v.Interface()
			}
		}
		convertedWeight := typeDifferenceWeight(params, converted)
		rawWeight := typeDifferenceWeight(params, ca.raw)
		if rawWeight != incompatibleWeight {
			rawWeight -= rawArgumentBonus
		}
		weight := convertedWeight
		if rawWeight < weight {
			weight = rawWeight
		}

		if weight < minWeight {
			minWeight = weight
			best = ca
			ambiguous = nil
		} else if best != nil && weight == minWeight {
			ambiguous = append(ambiguous, cand.desc)
		}
	}

	if best == nil {
		var cause error
		var suppressed []error
		if n := len(causes); n > 0 {
			cause = causes[n-1]
			suppressed = causes[:n-1]
		} else {
			cause = fmt.Errorf("container: no satisfiable constructor found for '%s'", name)
		}
		return nil, newInstantiationError(name, cause, suppressed)
	}

	if len(ambiguous) > 0 && md.StrictConstructorResolution {
		return nil, &AmbiguousConstructorError{
			Name:       name,
			Candidates: append([]string{best.exec.desc}, ambiguous...),
		}
	}

	if explicitArgs == nil && cacheable {
		md.resolveMu.Lock()
		md.resolvedConstructor = best.exec
		if best.needsResolve {
			md.preparedArgs = best.plans
			md.resolvedArgs = nil
		} else {
			md.resolvedArgs = best.args
			md.preparedArgs = nil
		}
		md.resolveMu.Unlock()
	}

	return best.exec.invoke(best.args)
}

// gatherCandidates 收集候选构造函数/工厂方法。
// 返回的 cacheable 指示解析结果是否可以缓存在合并定义上
// （非单例工厂组件的绑定方法不能缓存，每次创建要重新取工厂实例）。
func (c *Container) gatherCandidates(name string, md *Definition, rctx *resolutionContext) ([]*executable, bool, error) {
	if md.FactoryRef != "" {
		factory, err := c.getWithContext(md.FactoryRef, nil, rctx)
		if err != nil {
			return nil, false, fmt.Errorf("container: cannot obtain factory '%s' for '%s': %w",
				md.FactoryRef, name, err)
		}
		c.singletons.registerDependent(md.FactoryRef, name)

		method := reflect.ValueOf(factory).MethodByName(md.FactoryMethod)
		if !method.IsValid() {
			return nil, false, fmt.Errorf("container: factory '%s' (%T) has no method '%s'",
				md.FactoryRef, factory, md.FactoryMethod)
		}
		cacheable := true
		if fdef, err := c.merger.mergedDefinition(c.registry.resolveAlias(md.FactoryRef)); err == nil {
			cacheable = fdef.isSingleton()
		}
		return []*executable{{
			fn:   method,
			typ:  method.Type(),
			desc: md.FactoryRef + "." + md.FactoryMethod,
		}}, cacheable, nil
	}

	execs := make([]*executable, 0, len(md.Constructors))
	for _, ctor := range md.Constructors {
		fn := reflect.ValueOf(ctor)
		execs = append(execs, &executable{
			fn:   fn,
			typ:  fn.Type(),
			desc: fn.Type().String(),
		})
	}
	return execs, true, nil
}

// assembleArguments 为一个候选装配参数数组。
// 匹配顺序：按位置配置的值 > 按类型配置的值 > 自动装配。
// 任何一个非可选参数装不上即整个候选失败（由调用方跳过）。
func (c *Container) assembleArguments(name string, md *Definition, exec *executable, explicitArgs []any, rctx *resolutionContext) (*candidateArguments, error) {
	params := exec.paramTypes()

	if explicitArgs != nil {
		if len(explicitArgs) != len(params) {
			return nil, fmt.Errorf("container: %s wants %d args, got %d explicit args",
				exec.desc, len(params), len(explicitArgs))
		}
		args := make([]reflect.Value, len(params))
		for i, param := range params {
			v, err := convertValue(explicitArgs[i], param)
			if err != nil {
				return nil, fmt.Errorf("container: explicit arg %d for %s: %w", i, exec.desc, err)
			}
			args[i] = v
		}
		return &candidateArguments{exec: exec, args: args, raw: explicitArgs}, nil
	}

	args := make([]reflect.Value, len(params))
	raw := make([]any, len(params))
	plans := make([]argumentPlan, len(params))
	usedGeneric := make(map[int]bool)
	needsResolve := false

	for i, param := range params {
		if holder, ok := md.ConstructorArgs.Indexed[i]; ok {
			value, err := c.holderValue(name, holder, rctx)
			if err != nil {
				return nil, fmt.Errorf("container: indexed arg %d for %s: %w", i, exec.desc, err)
			}
			converted, err := convertValue(value, param)
			if err != nil {
				return nil, fmt.Errorf("container: indexed arg %d for %s: %w", i, exec.desc, err)
			}
			h := holder
			args[i], raw[i], plans[i] = converted, value, argumentPlan{paramType: param, holder: &h}
			continue
		}

		if idx, value, ok, err := c.matchGeneric(name, md, param, usedGeneric, rctx); err != nil {
			return nil, fmt.Errorf("container: generic arg for %s: %w", exec.desc, err)
		} else if ok {
			converted, err := convertValue(value, param)
			if err != nil {
				return nil, fmt.Errorf("container: generic arg for %s: %w", exec.desc, err)
			}
			usedGeneric[idx] = true
			h := md.ConstructorArgs.Generic[idx]
			args[i], raw[i], plans[i] = converted, value, argumentPlan{paramType: param, holder: &h}
			continue
		}

		// 未配置的参数走自动装配
		desc := DependencyDescriptor{Type: param, Required: true}
		value, err := c.resolveDependency(desc, name, rctx)
		if err != nil {
			return nil, fmt.Errorf("container: cannot autowire parameter %d (%v) of %s: %w",
				i, param, exec.desc, err)
		}
		if value == nil {
			args[i] = reflect.Zero(param)
		} else {
			converted, err := convertValue(value, param)
			if err != nil {
				return nil, fmt.Errorf("container: autowired parameter %d of %s: %w", i, exec.desc, err)
			}
			args[i] = converted
		}
		raw[i] = value
		plans[i] = argumentPlan{paramType: param}
		needsResolve = true
	}

	return &candidateArguments{
		exec:         exec,
		args:         args,
		raw:          raw,
		plans:        plans,
		needsResolve: needsResolve,
	}, nil
}

// holderValue 取配置值；引用型的值从容器解析并登记依赖边，
// 内嵌定义型的值即时创建且不进入单例缓存。
func (c *Container) holderValue(name string, holder ValueHolder, rctx *resolutionContext) (any, error) {
	if holder.Ref == "" {
		if inner, ok := holder.Value.(*Definition); ok {
			return c.createInnerComponent(name, inner, rctx)
		}
		return holder.Value, nil
	}
	v, err := c.getWithContext(holder.Ref, nil, rctx)
	if err != nil {
		return nil, err
	}
	c.singletons.registerDependent(c.registry.resolveAlias(holder.Ref), name)
	return v, nil
}

// createInnerComponent 创建参数值里内嵌的匿名组件。
// 合并时带上外层定义作为包含上下文（外层非单例会把内层作用域拉平），
// 结果不注册、不缓存，生命周期随外层组件。
func (c *Container) createInnerComponent(outerName string, def *Definition, rctx *resolutionContext) (any, error) {
	containing, _ := c.merger.mergedDefinition(outerName)
	innerName := fmt.Sprintf("(inner component of '%s')", outerName)
	md, err := c.merger.mergedFor(innerName, def, containing)
	if err != nil {
		return nil, err
	}
	return c.createComponent(innerName, md, nil, rctx)
}

// matchGeneric 在未使用的按类型参数值里找与 param 匹配的。
func (c *Container) matchGeneric(name string, md *Definition, param reflect.Type, used map[int]bool, rctx *resolutionContext) (int, any, bool, error) {
	for idx, h := range md.ConstructorArgs.Generic {
		if used[idx] {
			continue
		}
		if h.Type != nil {
			if h.Type != param {
				continue
			}
			value, err := c.holderValue(name, h, rctx)
			if err != nil {
				return 0, nil, false, err
			}
			return idx, value, true, nil
		}
		if h.Ref != "" {
			// 引用的类型注册前未知：先按定义预测，匹配才实际获取
			t, err := c.predictType(h.Ref)
			if err != nil || t == nil || !typeMatches(t, param) {
				continue
			}
			value, err := c.holderValue(name, h, rctx)
			if err != nil {
				return 0, nil, false, err
			}
			return idx, value, true, nil
		}
		if h.Value == nil {
			continue
		}
		vt := reflect.TypeOf(h.Value)
		if typeMatches(vt, param) || (vt.ConvertibleTo(param) && convertibleKinds(vt.Kind(), param.Kind())) {
			return idx, h.Value, true, nil
		}
	}
	return 0, nil, false, nil
}

// resolvePreparedArgs 按缓存的参数计划重新解析参数数组。
// 自动装配的坑位每次创建重新解析，配置值坑位按计划转换。
func (c *Container) resolvePreparedArgs(name string, plans []argumentPlan, rctx *resolutionContext) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(plans))
	for i, plan := range plans {
		if plan.holder != nil {
			value, err := c.holderValue(name, *plan.holder, rctx)
			if err != nil {
				return nil, err
			}
			converted, err := convertValue(value, plan.paramType)
			if err != nil {
				return nil, err
			}
			args[i] = converted
			continue
		}
		desc := DependencyDescriptor{Type: plan.paramType, Required: true}
		value, err := c.resolveDependency(desc, name, rctx)
		if err != nil {
			return nil, err
		}
		if value == nil {
			args[i] = reflect.Zero(plan.paramType)
		} else {
			converted, err := convertValue(value, plan.paramType)
			if err != nil {
				return nil, err
			}
			args[i] = converted
		}
	}
	return args, nil
}

// typeMatches t 的实例是否可以赋给 target 声明的注入点。
func typeMatches(t, target reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.AssignableTo(target) {
		return true
	}
	if target.Kind() == reflect.Interface && t.Implements(target) {
		return true
	}
	return false
}
