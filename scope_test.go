package container

import (
	"testing"
)

// sessionScope 测试用的自定义作用域：按名称存储，可整体清空。
type sessionScope struct {
	instances map[string]any
	callbacks map[string]func()
}

func newSessionScope() *sessionScope {
	return &sessionScope{
		instances: make(map[string]any),
		callbacks: make(map[string]func()),
	}
}

func (s *sessionScope) Get(name string, factory func() (any, error)) (any, error) {
	if v, ok := s.instances[name]; ok {
		return v, nil
	}
	v, err := factory()
	if err != nil {
		return nil, err
	}
	s.instances[name] = v
	return v, nil
}

func (s *sessionScope) Remove(name string) any {
	v, ok := s.instances[name]
	if !ok {
		return nil
	}
	delete(s.instances, name)
	delete(s.callbacks, name)
	return v
}

func (s *sessionScope) RegisterDestructionCallback(name string, callback func()) {
	s.callbacks[name] = callback
}

func (s *sessionScope) endSession() {
	for name, cb := range s.callbacks {
		cb()
		delete(s.callbacks, name)
	}
	s.instances = make(map[string]any)
}

// TestCustomScope 测试自定义作用域的存储与销毁回调
func TestCustomScope(t *testing.T) {
	c := New()
	session := newSessionScope()
	if err := c.RegisterScope("session", session); err != nil {
		t.Fatalf("RegisterScope failed: %v", err)
	}

	var events []string
	RegisterConstructor(c, "tracked", func() *trackedComponent {
		return &trackedComponent{events: &events, name: "s"}
	}, WithScope("session"))

	a, err := c.Get("tracked")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	b, _ := c.Get("tracked")
	if a != b {
		t.Error("expected the scope to cache the instance within the session")
	}

	events = nil
	session.endSession()
	if len(events) != 1 || events[0] != "s:destroy" {
		t.Errorf("expected the scope to run the destruction callback, got %v", events)
	}

	// 会话结束后重新创建
	fresh, err := c.Get("tracked")
	if err != nil {
		t.Fatalf("Get after endSession failed: %v", err)
	}
	if fresh == a {
		t.Error("expected a fresh instance in the new session")
	}
}

// TestUnknownScopeRejected 测试未注册作用域名称报错
func TestUnknownScopeRejected(t *testing.T) {
	c := New()
	RegisterConstructor(c, "greeter", NewGreeter, WithScope("request"))
	if _, err := c.Get("greeter"); err == nil {
		t.Error("expected an unregistered scope name to fail")
	}
}

// TestBuiltinScopesProtected 测试内置作用域不可替换
func TestBuiltinScopesProtected(t *testing.T) {
	c := New()
	if err := c.RegisterScope(ScopeSingleton, newSessionScope()); err == nil {
		t.Error("expected the singleton scope to be protected")
	}
	if err := c.RegisterScope(ScopePrototype, newSessionScope()); err == nil {
		t.Error("expected the prototype scope to be protected")
	}
	if err := c.RegisterScope("session", nil); err == nil {
		t.Error("expected a nil scope to be rejected")
	}
}
