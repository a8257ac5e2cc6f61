package container

import (
	"errors"
	"testing"
)

type nodeA struct {
	B *nodeB `di:""`
}

type nodeB struct {
	A *nodeA `di:""`
}

// TestFieldInjectionCycle 测试字段注入环通过早期引用解开
func TestFieldInjectionCycle(t *testing.T) {
	c := New()
	Register[nodeA](c, "nodeA")
	Register[nodeB](c, "nodeB")

	v, err := c.Get("nodeA")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	a := v.(*nodeA)
	if a.B == nil {
		t.Fatal("expected B to be injected")
	}
	if a.B.A != a {
		t.Error("expected the cycle to close on the same instance")
	}

	// 两个名称都以完整单例收尾
	b, err := c.Get("nodeB")
	if err != nil {
		t.Fatalf("Get nodeB failed: %v", err)
	}
	if b.(*nodeB) != a.B {
		t.Error("expected the same nodeB singleton")
	}
}

// TestConstructorCycleFails 测试构造函数注入环无法解开、报创建中错误
func TestConstructorCycleFails(t *testing.T) {
	c := New()
	RegisterConstructor(c, "ringX", func(y *ringY) *ringX { return &ringX{} })
	RegisterConstructor(c, "ringY", func(x *ringX) *ringY { return &ringY{} })

	_, err := c.Get("ringX")
	if err == nil {
		t.Fatal("expected the constructor cycle to fail")
	}
	var cice *CurrentlyInCreationError
	if !errors.As(err, &cice) {
		t.Fatalf("expected CurrentlyInCreationError in the chain, got %v", err)
	}

	// 失败不留痕：两个名称都可以重试（仍会失败，但不是因脏缓存）
	if c.singletons.contains("ringX") || c.singletons.contains("ringY") {
		t.Error("failed cycle must not leave cached singletons")
	}
}

type ringX struct{}
type ringY struct{}

// TestDisallowCircularReferences 测试禁用早期引用后字段环也报错
func TestDisallowCircularReferences(t *testing.T) {
	c := New(DisallowCircularReferences())
	Register[nodeA](c, "nodeA")
	Register[nodeB](c, "nodeB")

	_, err := c.Get("nodeA")
	if err == nil {
		t.Fatal("expected the field cycle to fail without early references")
	}
	var cice *CurrentlyInCreationError
	if !errors.As(err, &cice) {
		t.Fatalf("expected CurrentlyInCreationError, got %v", err)
	}
}

// TestPrototypeCycleFails 测试原型环直接报错
func TestPrototypeCycleFails(t *testing.T) {
	c := New()
	Register[nodeA](c, "nodeA", WithPrototype())
	Register[nodeB](c, "nodeB", WithPrototype())

	_, err := c.Get("nodeA")
	if err == nil {
		t.Fatal("expected the prototype cycle to fail")
	}
	var cice *CurrentlyInCreationError
	if !errors.As(err, &cice) {
		t.Fatalf("expected CurrentlyInCreationError, got %v", err)
	}
}
