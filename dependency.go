package container

import (
	"fmt"
	"reflect"
	"sort"
)

// DependencyDescriptor 描述一个注入点：构造函数参数或结构体字段。
type DependencyDescriptor struct {
	// Type 注入点声明的类型。切片/数组/map[string]T 视为多候选形态。
	Type reflect.Type
	// Name 注入点名称（字段名），名称兜底匹配用。
	Name string
	// Qualifier 定向限定符（di 标签里的名称）。
	Qualifier string
	// Required 必需依赖解析失败时报错；可选依赖返回 nil。
	Required bool
}

// candidateEntry 一个可装配候选。def 为 nil 表示手工注册的单例实例。
type candidateEntry struct {
	name  string
	def   *Definition
	local bool
}

// resolveDependency 解析单个注入点。
//
// 搜索顺序：内置可解析依赖 > 多候选形态聚合 > 单候选类型匹配。
// 平局规则见 determineCandidate。
func (c *Container) resolveDependency(desc DependencyDescriptor, requesting string, rctx *resolutionContext) (any, error) {
	// 1. 内置可解析依赖：第一个可赋值匹配即终止搜索
	if v, ok := c.matchResolvable(desc.Type); ok {
		return v, nil
	}

	// 2. 多候选形态
	switch desc.Type.Kind() {
	case reflect.Slice:
		if desc.Type.Elem().Kind() != reflect.Uint8 { // []byte 是普通值
			return c.resolveMultiple(desc, requesting, rctx)
		}
	case reflect.Array:
		return c.resolveMultiple(desc, requesting, rctx)
	case reflect.Map:
		if desc.Type.Key().Kind() == reflect.String {
			return c.resolveMultiple(desc, requesting, rctx)
		}
	}

	// 3. 单候选
	candidates := c.findAutowireCandidates(desc.Type, desc, requesting, false)
	if len(candidates) == 0 {
		if desc.Required {
			return nil, &NoMatchingCandidateError{Type: desc.Type, Qualifier: desc.Qualifier}
		}
		return nil, nil
	}

	var chosen *candidateEntry
	if len(candidates) == 1 {
		chosen = &candidates[0]
	} else {
		var err error
		chosen, err = c.determineCandidate(candidates, desc)
		if err != nil {
			return nil, err
		}
		if chosen == nil {
			if desc.Required {
				return nil, &AmbiguousDependencyError{Type: desc.Type, Candidates: candidateNames(candidates)}
			}
			return nil, nil
		}
	}

	return c.instantiateCandidate(*chosen, desc, requesting, rctx)
}

// instantiateCandidate 实例化选中的候选并登记依赖边。
func (c *Container) instantiateCandidate(cand candidateEntry, desc DependencyDescriptor, requesting string, rctx *resolutionContext) (any, error) {
	var instance any
	var err error
	if cand.local {
		instance, err = c.getWithContext(cand.name, nil, rctx)
	} else {
		instance, err = c.parent.Get(cand.name)
	}
	if err != nil {
		return nil, err
	}

	if requesting != "" && cand.local {
		c.singletons.registerDependent(cand.name, requesting)
	}

	if instance != nil {
		t := reflect.TypeOf(instance)
		if !typeMatches(t, desc.Type) {
			return nil, &CandidateTypeMismatchError{Name: cand.name, Required: desc.Type, Actual: t}
		}
	}
	return instance, nil
}

// resolveMultiple 聚合全部可装配候选：切片、数组或 map[string]T。
// 空聚合不是错误（返回 nil），除非依赖是必需的。
func (c *Container) resolveMultiple(desc DependencyDescriptor, requesting string, rctx *resolutionContext) (any, error) {
	elem := desc.Type.Elem()
	elemDesc := DependencyDescriptor{Type: elem, Qualifier: desc.Qualifier, Required: false}

	// 聚合内的自引用是合法的
	candidates := c.findAutowireCandidates(elem, elemDesc, requesting, true)
	if len(candidates) == 0 {
		if desc.Required {
			return nil, &NoMatchingCandidateError{Type: desc.Type, Qualifier: desc.Qualifier}
		}
		return nil, nil
	}

	sortCandidates(candidates)

	switch desc.Type.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(desc.Type, 0, len(candidates))
		for _, cand := range candidates {
			instance, err := c.instantiateCandidate(cand, elemDesc, requesting, rctx)
			if err != nil {
				return nil, err
			}
			out = reflect.Append(out, reflect.ValueOf(instance))
		}
		return out.Interface(), nil

	case reflect.Array:
		if desc.Type.Len() != len(candidates) {
			return nil, fmt.Errorf("container: array injection point wants %d elements, found %d candidates",
				desc.Type.Len(), len(candidates))
		}
		out := reflect.New(desc.Type).Elem()
		for i, cand := range candidates {
			instance, err := c.instantiateCandidate(cand, elemDesc, requesting, rctx)
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(reflect.ValueOf(instance))
		}
		return out.Interface(), nil

	default: // map[string]T
		out := reflect.MakeMapWithSize(desc.Type, len(candidates))
		for _, cand := range candidates {
			instance, err := c.instantiateCandidate(cand, elemDesc, requesting, rctx)
			if err != nil {
				return nil, err
			}
			out.SetMapIndex(reflect.ValueOf(cand.name), reflect.ValueOf(instance))
		}
		return out.Interface(), nil
	}
}

// findAutowireCandidates 收集类型可赋值的装配候选。
// 覆盖本容器的定义、手工注册的单例和父容器（父容器候选名被本地同名遮蔽）。
func (c *Container) findAutowireCandidates(target reflect.Type, desc DependencyDescriptor, requesting string, includeSelf bool) []candidateEntry {
	var result []candidateEntry
	seen := make(map[string]struct{})

	for _, name := range c.registry.definitionNames() {
		if !includeSelf && name == requesting {
			continue
		}
		def, ok := c.registry.get(name)
		if !ok || def.Abstract || !def.AutowireCandidate {
			continue
		}
		md, err := c.merger.mergedDefinition(name)
		if err != nil {
			continue
		}
		if !c.matchesQualifier(md, name, desc) {
			continue
		}
		t, err := c.predictType(name)
		if err != nil || t == nil || !typeMatches(t, target) {
			continue
		}
		result = append(result, candidateEntry{name: name, def: md, local: true})
		seen[name] = struct{}{}
	}

	// 手工注册的单例（没有定义，只有实例）
	for _, name := range c.singletons.finishedNames() {
		if _, dup := seen[name]; dup || c.registry.contains(name) {
			continue
		}
		if !includeSelf && name == requesting {
			continue
		}
		if desc.Qualifier != "" && name != desc.Qualifier {
			continue
		}
		instance, ok := c.singletons.get(name, false)
		if !ok || instance == nil {
			continue
		}
		if typeMatches(reflect.TypeOf(instance), target) {
			result = append(result, candidateEntry{name: name, local: true})
			seen[name] = struct{}{}
		}
	}

	if c.parent != nil {
		for _, cand := range c.parent.findAutowireCandidates(target, desc, "", includeSelf) {
			if _, shadowed := seen[cand.name]; shadowed {
				continue
			}
			cand.local = false
			result = append(result, cand)
		}
	}

	return result
}

// matchesQualifier 候选是否满足注入点的限定符。
func (c *Container) matchesQualifier(def *Definition, name string, desc DependencyDescriptor) bool {
	if desc.Qualifier == "" {
		return true
	}
	return def.Qualifier == desc.Qualifier || name == desc.Qualifier
}

// determineCandidate 多候选平局裁决。
// 顺序：primary 标志 > 最小数值优先级 > 名称匹配。都裁决不了返回 nil。
func (c *Container) determineCandidate(candidates []candidateEntry, desc DependencyDescriptor) (*candidateEntry, error) {
	// primary 优先
	var primaries []*candidateEntry
	var localPrimaries []*candidateEntry
	for i := range candidates {
		if candidates[i].def != nil && candidates[i].def.Primary {
			primaries = append(primaries, &candidates[i])
			if candidates[i].local {
				localPrimaries = append(localPrimaries, &candidates[i])
			}
		}
	}
	if len(primaries) == 1 {
		return primaries[0], nil
	}
	if len(primaries) > 1 {
		if len(localPrimaries) == 1 {
			return localPrimaries[0], nil
		}
		return nil, &AmbiguousDependencyError{
			Type:       desc.Type,
			Candidates: candidateNamesPtr(primaries),
		}
	}

	// 数值优先级：最小者胜，最小值并列是配置错误
	var bestPriority *candidateEntry
	tied := false
	for i := range candidates {
		def := candidates[i].def
		if def == nil || def.Priority == nil {
			continue
		}
		if bestPriority == nil || *def.Priority < *bestPriority.def.Priority {
			bestPriority = &candidates[i]
			tied = false
		} else if *def.Priority == *bestPriority.def.Priority {
			tied = true
		}
	}
	if bestPriority != nil {
		if tied {
			return nil, fmt.Errorf("container: multiple candidates for %v share priority %d",
				desc.Type, *bestPriority.def.Priority)
		}
		return bestPriority, nil
	}

	// 名称兜底
	if desc.Name != "" {
		for i := range candidates {
			if candidates[i].name == desc.Name {
				return &candidates[i], nil
			}
		}
	}

	return nil, nil
}

// predictType 在不创建实例的前提下预测组件的暴露类型。
func (c *Container) predictType(name string) (reflect.Type, error) {
	canonical := c.registry.resolveAlias(name)

	// 已完成的实例给出最准确的答案
	if instance, ok := c.singletons.get(canonical, false); ok && instance != nil {
		if f, isFactory := instance.(ObjectFactory); isFactory {
			return f.ObjectType(), nil
		}
		return reflect.TypeOf(instance), nil
	}

	def, ok := c.registry.get(canonical)
	if !ok {
		if c.parent != nil {
			return c.parent.predictType(name)
		}
		return nil, &NoSuchDefinitionError{Name: name}
	}

	md, err := c.merger.mergedDefinition(canonical)
	if err != nil {
		md = def
	}

	t := c.definitionType(canonical, md)
	if t == nil {
		return nil, nil
	}
	// 工厂组件定义暴露其产品类型。用零值探针询问 ObjectType，
	// 指针类型分配一个空实例避免 nil 接收者。
	if t.Implements(objectFactoryType) {
		var probe reflect.Value
		if t.Kind() == reflect.Pointer {
			probe = reflect.New(t.Elem())
		} else {
			probe = reflect.Zero(t)
		}
		if f, isFactory := probe.Interface().(ObjectFactory); isFactory {
			return f.ObjectType(), nil
		}
	}
	return t, nil
}

// definitionType 定义声明/推断出的实例类型。
func (c *Container) definitionType(name string, md *Definition) reflect.Type {
	if len(md.Constructors) > 0 {
		t := reflect.TypeOf(md.Constructors[0])
		if t.Kind() == reflect.Func && t.NumOut() > 0 {
			return t.Out(0)
		}
	}
	if md.FactoryRef != "" {
		ft, err := c.predictType(md.FactoryRef)
		if err == nil && ft != nil {
			if m, ok := ft.MethodByName(md.FactoryMethod); ok && m.Type.NumOut() > 0 {
				return m.Type.Out(0)
			}
		}
		return nil
	}
	if md.Type != nil {
		t := md.Type
		// 结构体注入模式的实例被归一化为指针
		if t.Kind() == reflect.Struct {
			return reflect.PointerTo(t)
		}
		return t
	}
	return nil
}

// sortCandidates 聚合结果排序：声明了优先级的在前（小者先），其余保持注册序。
func sortCandidates(candidates []candidateEntry) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidatePriority(candidates[i]), candidatePriority(candidates[j])
		if pi == nil && pj == nil {
			return false
		}
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return *pi < *pj
	})
}

func candidatePriority(cand candidateEntry) *int {
	if cand.def == nil {
		return nil
	}
	return cand.def.Priority
}

func candidateNames(candidates []candidateEntry) []string {
	names := make([]string, len(candidates))
	for i, cand := range candidates {
		names[i] = cand.name
	}
	return names
}

func candidateNamesPtr(candidates []*candidateEntry) []string {
	names := make([]string, len(candidates))
	for i, cand := range candidates {
		names[i] = cand.name
	}
	return names
}
