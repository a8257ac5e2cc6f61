package container

import (
	"errors"
	"reflect"
	"testing"
)

type trackedComponent struct {
	events *[]string
	name   string
}

func (t *trackedComponent) Init() error {
	*t.events = append(*t.events, t.name+":init")
	return nil
}

func (t *trackedComponent) Destroy() error {
	*t.events = append(*t.events, t.name+":destroy")
	return nil
}

// TestInitializerHook 测试 Init 在注入完成后调用
func TestInitializerHook(t *testing.T) {
	c := New()
	var events []string
	RegisterConstructor(c, "tracked", func() *trackedComponent {
		return &trackedComponent{events: &events, name: "a"}
	})

	if _, err := c.Get("tracked"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(events) != 1 || events[0] != "a:init" {
		t.Errorf("expected [a:init], got %v", events)
	}
}

// TestInitMethodByName 测试按名称指定的初始化方法
func TestInitMethodByName(t *testing.T) {
	c := New()
	RegisterConstructor(c, "warmed", func() *warmable { return &warmable{} },
		WithInitMethod("Warmup"))

	v, err := c.Get("warmed")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !v.(*warmable).warmed {
		t.Error("expected Warmup to have been called")
	}
}

type warmable struct{ warmed bool }

func (w *warmable) Warmup() { w.warmed = true }

// TestNamedHookNotDoubledWithInterface 测试 InitMethod 与接口钩子同名时只调用一次
func TestNamedHookNotDoubledWithInterface(t *testing.T) {
	c := New()
	var events []string
	RegisterConstructor(c, "tracked", func() *trackedComponent {
		return &trackedComponent{events: &events, name: "a"}
	}, WithInitMethod("Init"), WithDestroyMethod("Destroy"))

	if _, err := c.Get("tracked"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	c.Close()

	want := []string{"a:init", "a:destroy"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("expected %v (each hook once), got %v", want, events)
	}
}

// TestInitFailureAbortsCreation 测试初始化失败时创建失败且不缓存实例
func TestInitFailureAbortsCreation(t *testing.T) {
	c := New()
	RegisterConstructor(c, "bad", func() *failingInit { return &failingInit{} })

	_, err := c.Get("bad")
	if err == nil {
		t.Fatal("expected init failure to propagate")
	}
	var ie *InstantiationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InstantiationError, got %v", err)
	}
	if c.singletons.contains("bad") {
		t.Error("failed singleton must not stay cached")
	}
}

type failingInit struct{}

func (f *failingInit) Init() error { return errors.New("init exploded") }

// TestDestructionOrder 测试销毁顺序：依赖者先于被依赖者，整体逆创建序
func TestDestructionOrder(t *testing.T) {
	c := New()
	var events []string
	RegisterConstructor(c, "store", func() *trackedComponent {
		return &trackedComponent{events: &events, name: "store"}
	})
	RegisterConstructor(c, "service", func(s *trackedComponent) *serviceComponent {
		return &serviceComponent{events: &events}
	})

	if _, err := c.Get("service"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	events = nil
	c.Close()

	want := []string{"service:destroy", "store:destroy"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("expected %v, got %v", want, events)
	}

	// 关闭后缓存清空，定义仍在，可重新创建
	if _, err := c.Get("store"); err != nil {
		t.Errorf("Get after Close should rebuild: %v", err)
	}
}

type serviceComponent struct{ events *[]string }

func (s *serviceComponent) Destroy() error {
	*s.events = append(*s.events, "service:destroy")
	return nil
}

// TestDestroyMethodByName 测试按名称指定的销毁方法
func TestDestroyMethodByName(t *testing.T) {
	c := New()
	closed := false
	RegisterConstructor(c, "conn", func() *closable { return &closable{onClose: func() { closed = true }} },
		WithDestroyMethod("Shutdown"))

	if _, err := c.Get("conn"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	c.Close()
	if !closed {
		t.Error("expected Shutdown to run on Close")
	}
}

type closable struct{ onClose func() }

func (c *closable) Shutdown() { c.onClose() }

// TestPrototypeNotDestroyed 测试原型实例不被容器追踪销毁
func TestPrototypeNotDestroyed(t *testing.T) {
	c := New()
	var events []string
	RegisterConstructor(c, "tracked", func() *trackedComponent {
		return &trackedComponent{events: &events, name: "p"}
	}, WithPrototype())

	if _, err := c.Get("tracked"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	events = nil
	c.Close()
	if len(events) != 0 {
		t.Errorf("prototype must not be destroyed by the container, got %v", events)
	}
}

// TestPostProcessors 测试前后置处理器链与实例替换
func TestPostProcessors(t *testing.T) {
	c := New()
	var order []string
	c.AddPostProcessor(&recordingProcessor{order: &order, tag: "first"})
	c.AddPostProcessor(&recordingProcessor{order: &order, tag: "second"})

	RegisterConstructor(c, "greeter", NewGreeter)
	if _, err := c.Get("greeter"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	want := []string{"first:before", "second:before", "first:after", "second:after"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

type recordingProcessor struct {
	order *[]string
	tag   string
}

func (p *recordingProcessor) BeforeInit(name string, instance any) (any, error) {
	*p.order = append(*p.order, p.tag+":before")
	return instance, nil
}

func (p *recordingProcessor) AfterInit(name string, instance any) (any, error) {
	*p.order = append(*p.order, p.tag+":after")
	return instance, nil
}

// TestPostProcessorReplacesInstance 测试后置处理器替换实例（代理包装）
func TestPostProcessorReplacesInstance(t *testing.T) {
	c := New()
	c.AddPostProcessor(&wrappingProcessor{})
	RegisterConstructor(c, "mem", func() *MemStore { return &MemStore{} })

	v, err := c.GetByType(TypeOf[Store]())
	if err != nil {
		t.Fatalf("GetByType failed: %v", err)
	}
	if v.(Store).Kind() != "wrapped(mem)" {
		t.Errorf("expected the proxy, got %q", v.(Store).Kind())
	}
}

type storeProxy struct{ inner Store }

func (p *storeProxy) Kind() string { return "wrapped(" + p.inner.Kind() + ")" }

type wrappingProcessor struct{}

func (p *wrappingProcessor) BeforeInit(name string, instance any) (any, error) {
	return instance, nil
}

func (p *wrappingProcessor) AfterInit(name string, instance any) (any, error) {
	if s, ok := instance.(Store); ok {
		return &storeProxy{inner: s}, nil
	}
	return instance, nil
}

// TestObjectFactoryDeref 测试工厂组件透明解引用与产品缓存
func TestObjectFactoryDeref(t *testing.T) {
	c := New()
	RegisterConstructor(c, "connFactory", func() *connFactory { return &connFactory{} })

	a, err := c.Get("connFactory")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	conn, ok := a.(*connection)
	if !ok {
		t.Fatalf("expected the factory's product, got %T", a)
	}

	// 单例工厂的产品被缓存
	b, _ := c.Get("connFactory")
	if b != conn {
		t.Error("expected the cached product")
	}

	// 工厂前缀获取工厂本身
	f, err := c.Get("&connFactory")
	if err != nil {
		t.Fatalf("Get with factory prefix failed: %v", err)
	}
	if _, ok := f.(*connFactory); !ok {
		t.Fatalf("expected the factory itself, got %T", f)
	}

	// 类型预测看到的是产品类型
	typ, err := c.GetType("connFactory")
	if err != nil {
		t.Fatalf("GetType failed: %v", err)
	}
	if typ != reflect.TypeOf(&connection{}) {
		t.Errorf("expected product type, got %v", typ)
	}
	ft, _ := c.GetType("&connFactory")
	if ft != reflect.TypeOf(&connFactory{}) {
		t.Errorf("expected factory type, got %v", ft)
	}
}

type connection struct{ id int }

type connFactory struct{ built int }

func (f *connFactory) Object() (any, error) {
	f.built++
	return &connection{id: f.built}, nil
}

func (f *connFactory) ObjectType() reflect.Type {
	return reflect.TypeOf(&connection{})
}

// TestObjectFactoryAutowiredAsProduct 测试按产品类型装配工厂组件
func TestObjectFactoryAutowiredAsProduct(t *testing.T) {
	c := New()
	RegisterConstructor(c, "connFactory", func() *connFactory { return &connFactory{} })

	v, err := c.GetByType(reflect.TypeOf(&connection{}))
	if err != nil {
		t.Fatalf("GetByType failed: %v", err)
	}
	if _, ok := v.(*connection); !ok {
		t.Fatalf("expected the product via type match, got %T", v)
	}
}

// TestFactoryPrefixOnPlainComponent 测试对非工厂组件使用工厂前缀报错
func TestFactoryPrefixOnPlainComponent(t *testing.T) {
	c := New()
	RegisterConstructor(c, "greeter", NewGreeter)
	if _, err := c.Get("&greeter"); err == nil {
		t.Error("expected an error for the factory prefix on a plain component")
	}
}
