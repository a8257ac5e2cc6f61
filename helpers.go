package container

import (
	"fmt"
	"reflect"
)

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）。
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register 以类型 T 注册组件定义的泛型语法糖。
// T 是接口时必须通过 WithConstructors / WithFactory 提供实现。
func Register[T any](c *Container, name string, opts ...Option) error {
	typ := TypeOf[T]()
	var def *Definition
	if typ.Kind() == reflect.Interface {
		def = NewDefinition(nil, opts...)
	} else {
		def = NewDefinition(typ, opts...)
	}
	return c.RegisterDefinition(name, def)
}

// RegisterConstructor 注册构造函数的泛型语法糖，组件类型取第一个返回值。
func RegisterConstructor(c *Container, name string, ctor any, opts ...Option) error {
	return c.RegisterDefinition(name, NewDefinition(ctor, opts...))
}

// Get 按类型解析唯一候选。
func Get[T any](c *Container) (T, error) {
	var zero T
	v, err := c.GetByType(TypeOf[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: resolved value is %T, expected %v", v, TypeOf[T]())
	}
	return typed, nil
}

// GetNamed 按名称解析并断言为 T。
func GetNamed[T any](c *Container, name string) (T, error) {
	var zero T
	v, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: component '%s' is %T, expected %v", name, v, TypeOf[T]())
	}
	return typed, nil
}

// MustGet 按类型解析，失败时 panic。适合初始化路径。
func MustGet[T any](c *Container) T {
	v, err := Get[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// Inject 通过指针注入实例到目标变量。
// 用法：
//
//	var svc *UserService
//	c.Inject(&svc)
func (c *Container) Inject(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer {
		return fmt.Errorf("container: Inject target must be a pointer, got %v", v.Kind())
	}
	if v.IsNil() {
		return fmt.Errorf("container: Inject target pointer is nil")
	}

	elem := v.Elem()
	instance, err := c.GetByType(elem.Type())
	if err != nil {
		return err
	}
	if instance == nil {
		return &NoMatchingCandidateError{Type: elem.Type()}
	}
	elem.Set(reflect.ValueOf(instance))
	return nil
}
