package container

import (
	"fmt"
	"reflect"
	"strings"
)

// NoSuchDefinitionError 请求的名称没有注册定义。
type NoSuchDefinitionError struct {
	Name string
}

func (e *NoSuchDefinitionError) Error() string {
	return fmt.Sprintf("container: no definition named '%s'", e.Name)
}

// AbstractDefinitionError 尝试实例化抽象定义。
// 抽象定义只能作为其他定义的父模板使用。
type AbstractDefinitionError struct {
	Name string
}

func (e *AbstractDefinitionError) Error() string {
	return fmt.Sprintf("container: definition '%s' is abstract and cannot be instantiated", e.Name)
}

// CurrentlyInCreationError 组件正在创建中被再次请求。
// 典型场景是无法解析的循环引用（构造函数注入形成的环）。
type CurrentlyInCreationError struct {
	Name string
}

func (e *CurrentlyInCreationError) Error() string {
	return fmt.Sprintf("container: component '%s' is currently in creation (unresolvable circular reference?)", e.Name)
}

// AmbiguousConstructorError 多个候选构造函数打分相同且定义要求严格解析。
type AmbiguousConstructorError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousConstructorError) Error() string {
	return fmt.Sprintf("container: ambiguous constructor candidates for '%s': %s",
		e.Name, strings.Join(e.Candidates, ", "))
}

// AmbiguousDependencyError 依赖解析找到多个候选且平局规则无法裁决。
type AmbiguousDependencyError struct {
	Type       reflect.Type
	Candidates []string
}

func (e *AmbiguousDependencyError) Error() string {
	return fmt.Sprintf("container: expected single candidate for type %v but found %d: %s",
		e.Type, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// NoMatchingCandidateError 必需依赖没有任何可装配候选。
type NoMatchingCandidateError struct {
	Type      reflect.Type
	Qualifier string
}

func (e *NoMatchingCandidateError) Error() string {
	if e.Qualifier != "" {
		return fmt.Sprintf("container: no autowire candidate of type %v with qualifier '%s'", e.Type, e.Qualifier)
	}
	return fmt.Sprintf("container: no autowire candidate of type %v", e.Type)
}

// CandidateTypeMismatchError 解析出的实例与注入点声明的类型不兼容。
type CandidateTypeMismatchError struct {
	Name     string
	Required reflect.Type
	Actual   reflect.Type
}

func (e *CandidateTypeMismatchError) Error() string {
	return fmt.Sprintf("container: component '%s' is of type %v, not assignable to required type %v",
		e.Name, e.Actual, e.Required)
}

// InstantiationError 组件创建失败，包装底层原因。
// Suppressed 携带同一次创建窗口内观察到但未直接导致失败的其他错误
// （例如被跳过的构造函数候选的失败原因）。
type InstantiationError struct {
	Name       string
	Cause      error
	Suppressed []error
}

func (e *InstantiationError) Error() string {
	if len(e.Suppressed) > 0 {
		return fmt.Sprintf("container: failed to instantiate '%s': %v (%d suppressed)",
			e.Name, e.Cause, len(e.Suppressed))
	}
	return fmt.Sprintf("container: failed to instantiate '%s': %v", e.Name, e.Cause)
}

func (e *InstantiationError) Unwrap() error {
	return e.Cause
}

// newInstantiationError 包装创建失败；已经是 InstantiationError 的原因不重复包装。
func newInstantiationError(name string, cause error, suppressed []error) error {
	if ie, ok := cause.(*InstantiationError); ok && ie.Name == name {
		ie.Suppressed = append(ie.Suppressed, suppressed...)
		return ie
	}
	return &InstantiationError{Name: name, Cause: cause, Suppressed: suppressed}
}
