package container

import (
	"errors"
	"strings"
	"testing"
)

type Notifier interface {
	Notify(msg string)
}

type EmailNotifier struct {
	From string
}

func (n *EmailNotifier) Notify(msg string) {}

type Report struct {
	Title    string
	Notifier Notifier
	Email    *EmailNotifier
	Retries  int
}

// TestConstructorOverloadPrefersRicherCandidate 测试可装配参数更多的重载胜出
func TestConstructorOverloadPrefersRicherCandidate(t *testing.T) {
	c := New()
	RegisterConstructor(c, "email", func() *EmailNotifier { return &EmailNotifier{From: "a@b"} })

	Register[Report](c, "report", WithConstructors(
		func() *Report { return &Report{Title: "bare"} },
		func(n *EmailNotifier) *Report { return &Report{Title: "wired", Email: n} },
	))

	v, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	r := v.(*Report)
	if r.Title != "wired" {
		t.Errorf("expected the richer constructor to win, got %q", r.Title)
	}
	if r.Email == nil || r.Email.From != "a@b" {
		t.Error("expected the dependency to be autowired")
	}
}

// TestConstructorFallbackWhenDependencyMissing 测试依赖缺失时退回更窄的重载
func TestConstructorFallbackWhenDependencyMissing(t *testing.T) {
	c := New()
	Register[Report](c, "report", WithConstructors(
		func() *Report { return &Report{Title: "bare"} },
		func(n *EmailNotifier) *Report { return &Report{Title: "wired", Email: n} },
	))

	v, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(*Report).Title != "bare" {
		t.Errorf("expected fallback to the zero-arg constructor, got %q", v.(*Report).Title)
	}
}

// TestConstructorExactBeatsInterface 测试精确类型匹配优于接口匹配
func TestConstructorExactBeatsInterface(t *testing.T) {
	c := New()
	RegisterConstructor(c, "email", func() *EmailNotifier { return &EmailNotifier{} })

	Register[Report](c, "report", WithConstructors(
		func(n Notifier) *Report { return &Report{Title: "interface"} },
		func(n *EmailNotifier) *Report { return &Report{Title: "exact"} },
	))

	v, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(*Report).Title != "exact" {
		t.Errorf("expected the exact-type overload to win, got %q", v.(*Report).Title)
	}
}

// TestIndexedConstructorArgs 测试按位置配置的参数
func TestIndexedConstructorArgs(t *testing.T) {
	c := New()
	Register[Report](c, "report",
		WithConstructors(func(title string, retries int) *Report {
			return &Report{Title: title, Retries: retries}
		}),
		WithIndexedArg(0, "quarterly"),
		WithIndexedArg(1, 3),
	)

	v, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	r := v.(*Report)
	if r.Title != "quarterly" || r.Retries != 3 {
		t.Errorf("unexpected args: %+v", r)
	}
}

// TestIndexedArgRef 测试按位置的组件引用参数
func TestIndexedArgRef(t *testing.T) {
	c := New()
	RegisterConstructor(c, "email", func() *EmailNotifier { return &EmailNotifier{From: "ref@x"} })
	Register[Report](c, "report",
		WithConstructors(func(n *EmailNotifier) *Report { return &Report{Email: n} }),
		WithIndexedArgRef(0, "email"),
	)

	v, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(*Report).Email.From != "ref@x" {
		t.Error("expected the referenced component as argument")
	}
}

// TestGenericConstructorArgs 测试按类型匹配的参数值
func TestGenericConstructorArgs(t *testing.T) {
	c := New()
	Register[Report](c, "report",
		WithConstructors(func(retries int, title string) *Report {
			return &Report{Title: title, Retries: retries}
		}),
		WithArg("annual"),
		WithArg(7),
	)

	v, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	r := v.(*Report)
	if r.Title != "annual" || r.Retries != 7 {
		t.Errorf("generic args must match by type regardless of order: %+v", r)
	}
}

// TestGetWithArgs 测试显式参数绕过解析缓存
func TestGetWithArgs(t *testing.T) {
	c := New()
	Register[Report](c, "report",
		WithConstructors(func(title string) *Report { return &Report{Title: title} }),
		WithPrototype(),
		WithArg("configured"),
	)

	v, err := c.GetWithArgs("report", "explicit")
	if err != nil {
		t.Fatalf("GetWithArgs failed: %v", err)
	}
	if v.(*Report).Title != "explicit" {
		t.Errorf("explicit args must win, got %q", v.(*Report).Title)
	}

	// 显式参数不得污染缓存
	v2, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v2.(*Report).Title != "configured" {
		t.Errorf("configured args must still apply, got %q", v2.(*Report).Title)
	}

	if _, err := c.GetWithArgs("report", "a", "b"); err == nil {
		t.Error("expected arg count mismatch to fail")
	}
}

// TestFactoryMethod 测试工厂组件方法创建实例
func TestFactoryMethod(t *testing.T) {
	c := New()
	RegisterConstructor(c, "reportFactory", func() *ReportFactory {
		return &ReportFactory{Prefix: "F-"}
	})
	Register[Report](c, "report",
		WithFactory("reportFactory", "Create"),
		WithIndexedArg(0, "42"),
	)

	v, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(*Report).Title != "F-42" {
		t.Errorf("expected factory-built instance, got %q", v.(*Report).Title)
	}
}

type ReportFactory struct {
	Prefix string
	Builds int
}

func (f *ReportFactory) Create(id string) *Report {
	f.Builds++
	return &Report{Title: f.Prefix + id}
}

// TestFactoryMethodMissing 测试工厂缺少方法时报错
func TestFactoryMethodMissing(t *testing.T) {
	c := New()
	RegisterConstructor(c, "reportFactory", func() *ReportFactory { return &ReportFactory{} })
	Register[Report](c, "report", WithFactory("reportFactory", "Missing"))

	_, err := c.Get("report")
	if err == nil || !strings.Contains(err.Error(), "no method 'Missing'") {
		t.Errorf("expected missing-method error, got %v", err)
	}
}

// TestStrictConstructorAmbiguity 测试严格模式下打分平局报错
func TestStrictConstructorAmbiguity(t *testing.T) {
	c := New()
	RegisterConstructor(c, "email", func() *EmailNotifier { return &EmailNotifier{} })
	RegisterConstructor(c, "factory", func() *ReportFactory { return &ReportFactory{} })

	opts := []Option{WithConstructors(
		func(n *EmailNotifier) *Report { return &Report{Title: "byNotifier"} },
		func(f *ReportFactory) *Report { return &Report{Title: "byFactory"} },
	)}

	// 宽松模式：取先考察到的最优候选
	Register[Report](c, "lenient", opts...)
	v, err := c.Get("lenient")
	if err != nil {
		t.Fatalf("lenient resolution failed: %v", err)
	}
	if v.(*Report).Title != "byNotifier" {
		t.Errorf("lenient mode must keep the first best candidate, got %q", v.(*Report).Title)
	}

	// 严格模式：平局报错
	Register[Report](c, "strict", append(opts, WithStrictConstructorResolution())...)
	_, err = c.Get("strict")
	var ace *AmbiguousConstructorError
	if !errors.As(err, &ace) {
		t.Fatalf("expected AmbiguousConstructorError, got %v", err)
	}
	if len(ace.Candidates) != 2 {
		t.Errorf("expected both candidates listed, got %v", ace.Candidates)
	}
}

// TestPrototypeReresolvesAutowiredArgs 测试原型缓存参数计划而非参数数组
func TestPrototypeReresolvesAutowiredArgs(t *testing.T) {
	c := New()
	RegisterConstructor(c, "email", func() *EmailNotifier { return &EmailNotifier{} }, WithPrototype())

	builds := 0
	Register[Report](c, "report",
		WithConstructors(func(n *EmailNotifier) *Report {
			builds++
			return &Report{Email: n}
		}),
		WithPrototype(),
	)

	a, err := c.Get("report")
	if err != nil {
		t.Fatalf("first Get failed: %v", err)
	}
	b, err := c.Get("report")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if builds != 2 {
		t.Errorf("expected 2 constructions, got %d", builds)
	}
	if a.(*Report).Email == b.(*Report).Email {
		t.Error("prototype dependency must be re-resolved per creation")
	}
}

// TestInnerDefinitionArg 测试参数值里的内嵌匿名定义
func TestInnerDefinitionArg(t *testing.T) {
	c := New()
	inner := NewDefinition(func() *EmailNotifier { return &EmailNotifier{From: "inner"} })
	Register[Report](c, "report",
		WithConstructors(func(n *EmailNotifier) *Report { return &Report{Email: n} }),
		WithIndexedArg(0, inner),
	)

	v, err := c.Get("report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(*Report).Email.From != "inner" {
		t.Error("expected the inner component as argument")
	}
	// 内嵌组件不注册、不进单例缓存
	if c.ContainsDefinition("(inner component of 'report')") {
		t.Error("inner definitions must not be registered")
	}
}

// TestConstructorErrorTail 测试 error 尾值和 nil 实例检查
func TestConstructorErrorTail(t *testing.T) {
	c := New()
	RegisterConstructor(c, "failing", func() (*Report, error) {
		return nil, errors.New("boom")
	})
	_, err := c.Get("failing")
	var ie *InstantiationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InstantiationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected the cause in the message, got %v", err)
	}

	RegisterConstructor(c, "nilling", func() *Report { return nil })
	if _, err := c.Get("nilling"); err == nil {
		t.Error("expected nil instance to be rejected")
	}
}

// TestResolutionCacheReuse 测试单例构造函数解析结果缓存复用
func TestResolutionCacheReuse(t *testing.T) {
	c := New()
	builds := 0
	Register[Report](c, "report",
		WithConstructors(func(title string) *Report {
			builds++
			return &Report{Title: title}
		}),
		WithPrototype(),
		WithIndexedArg(0, "cached"),
	)

	for i := 0; i < 3; i++ {
		v, err := c.Get("report")
		if err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
		if v.(*Report).Title != "cached" {
			t.Errorf("unexpected title %q", v.(*Report).Title)
		}
	}
	if builds != 3 {
		t.Errorf("expected 3 builds, got %d", builds)
	}

	// 重注册必须丢弃解析缓存
	c2 := New(AllowDefinitionOverride())
	Register[Report](c2, "report",
		WithConstructors(func() *Report { return &Report{Title: "v1"} }))
	if v, _ := c2.Get("report"); v.(*Report).Title != "v1" {
		t.Fatal("sanity check failed")
	}
	Register[Report](c2, "report",
		WithConstructors(func() *Report { return &Report{Title: "v2"} }))
	v, err := c2.Get("report")
	if err != nil {
		t.Fatalf("Get after re-registration failed: %v", err)
	}
	if v.(*Report).Title != "v2" {
		t.Errorf("stale resolution cache leaked: got %q", v.(*Report).Title)
	}
}
