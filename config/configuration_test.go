package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gocrud/container"
)

func TestBuilderInMemory(t *testing.T) {
	cfg, err := NewConfigurationBuilder().
		AddInMemory(map[string]any{
			"server": map[string]any{
				"host": "localhost",
				"port": 8080,
			},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := cfg.Get("server:host"); got != "localhost" {
		t.Errorf("Get(server:host) = %q, want localhost", got)
	}
	if got := cfg.Get("server.host"); got != "localhost" {
		t.Errorf("Get(server.host) = %q, want localhost", got)
	}
	port, err := cfg.GetInt("server:port")
	if err != nil || port != 8080 {
		t.Errorf("GetInt(server:port) = %d, %v", port, err)
	}
	if got := cfg.GetWithDefault("server:missing", "fallback"); got != "fallback" {
		t.Errorf("GetWithDefault = %q, want fallback", got)
	}
}

func TestSourceOverride(t *testing.T) {
	cfg, err := NewConfigurationBuilder().
		AddInMemory(map[string]any{"db": map[string]any{"host": "a", "port": 5432}}).
		AddInMemory(map[string]any{"db": map[string]any{"host": "b"}}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// 后加的源覆盖同名键，其余键保留
	if got := cfg.Get("db:host"); got != "b" {
		t.Errorf("db:host = %q, want b", got)
	}
	if port, _ := cfg.GetInt("db:port"); port != 5432 {
		t.Errorf("db:port = %d, want 5432", port)
	}
}

func TestYamlFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	content := "logging:\n  level: debug\n  json: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfigurationBuilder().AddYamlFile(path).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := cfg.Get("logging:level"); got != "debug" {
		t.Errorf("logging:level = %q, want debug", got)
	}
	if b, err := cfg.GetBool("logging:json"); err != nil || !b {
		t.Errorf("logging:json = %v, %v", b, err)
	}
}

func TestOptionalFileMissing(t *testing.T) {
	_, err := NewConfigurationBuilder().
		AddYamlFile("/nonexistent/app.yaml", true).
		AddJsonFile("/nonexistent/app.json", true).
		Build()
	if err != nil {
		t.Errorf("optional missing files should not fail: %v", err)
	}

	_, err = NewConfigurationBuilder().AddYamlFile("/nonexistent/app.yaml").Build()
	if err == nil {
		t.Error("required missing file should fail")
	}
}

func TestEnvironmentVariableSource(t *testing.T) {
	t.Setenv("MYAPP_SERVER_PORT", "9090")
	t.Setenv("MYAPP_DEBUG", "true")

	cfg, err := NewConfigurationBuilder().AddEnvironmentVariables("MYAPP_").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if port, err := cfg.GetInt("server:port"); err != nil || port != 9090 {
		t.Errorf("server:port = %d, %v", port, err)
	}
	if debug, err := cfg.GetBool("debug"); err != nil || !debug {
		t.Errorf("debug = %v, %v", debug, err)
	}
}

func TestBind(t *testing.T) {
	type ServerOptions struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}

	cfg, err := NewConfigurationBuilder().
		AddInMemory(map[string]any{
			"server": map[string]any{"host": "0.0.0.0", "port": 8080},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var opts ServerOptions
	if err := cfg.Bind("server", &opts); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if opts.Host != "0.0.0.0" || opts.Port != 8080 {
		t.Errorf("Bind result: %+v", opts)
	}
}

func TestGetSection(t *testing.T) {
	cfg, _ := NewConfigurationBuilder().
		AddInMemory(map[string]any{
			"redis": map[string]any{"addr": "localhost:6379"},
		}).
		Build()

	section := cfg.GetSection("redis")
	if got := section.Get("addr"); got != "localhost:6379" {
		t.Errorf("section addr = %q", got)
	}

	empty := cfg.GetSection("missing")
	if got := empty.Get("anything"); got != "" {
		t.Errorf("missing section should be empty, got %q", got)
	}
}

func TestReload(t *testing.T) {
	source := &InMemorySource{Data: map[string]any{"feature": "off"}}
	cfg, err := NewConfigurationBuilder().Add(source).BuildReloadable()
	if err != nil {
		t.Fatalf("BuildReloadable failed: %v", err)
	}

	reloadable, ok := cfg.(Reloadable)
	if !ok {
		t.Fatal("BuildReloadable result should implement Reloadable")
	}

	fired := false
	reloadable.OnReload(func() { fired = true })

	source.Data["feature"] = "on"
	if err := reloadable.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := cfg.Get("feature"); got != "on" {
		t.Errorf("after reload feature = %q, want on", got)
	}
	if !fired {
		t.Error("reload callback not fired")
	}
}

type featureFlags struct {
	Enabled bool `json:"enabled"`
}

func TestLiveBindingReload(t *testing.T) {
	source := &InMemorySource{Data: map[string]any{
		"flags": map[string]any{"enabled": false},
	}}
	cfg, _ := NewConfigurationBuilder().Add(source).BuildReloadable()

	binding := NewBinding[featureFlags](cfg, "flags")
	if binding.Value().Enabled {
		t.Error("initial flags.enabled should be false")
	}

	var observed []bool
	binding.OnChange(func(f featureFlags) { observed = append(observed, f.Enabled) })

	source.Data["flags"].(map[string]any)["enabled"] = true
	if err := cfg.(Reloadable).Reload(); err != nil {
		t.Fatal(err)
	}
	if !binding.Value().Enabled {
		t.Error("binding should see reloaded value")
	}
	if len(observed) != 1 || !observed[0] {
		t.Errorf("OnChange should fire once with the new value, got %v", observed)
	}
}

func TestBindingMissingSection(t *testing.T) {
	cfg, _ := NewConfigurationBuilder().AddInMemory(map[string]any{}).Build()
	binding := NewBinding[featureFlags](cfg, "flags")
	if binding.Value().Enabled {
		t.Error("missing section should bind the zero value")
	}
}

type flaggedService struct {
	Flags *Binding[featureFlags] `di:""`
}

func TestBindLiveInjection(t *testing.T) {
	source := &InMemorySource{Data: map[string]any{
		"flags": map[string]any{"enabled": false},
	}}
	cfg, _ := NewConfigurationBuilder().Add(source).BuildReloadable()

	c := container.New()
	if _, err := BindLive[featureFlags](c, cfg, "featureFlags", "flags"); err != nil {
		t.Fatalf("BindLive failed: %v", err)
	}
	if err := container.RegisterConstructor(c, "service", func() *flaggedService {
		return &flaggedService{}
	}); err != nil {
		t.Fatal(err)
	}

	v, err := c.Get("service")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	svc := v.(*flaggedService)
	if svc.Flags == nil {
		t.Fatal("binding not injected")
	}

	source.Data["flags"].(map[string]any)["enabled"] = true
	if err := cfg.(Reloadable).Reload(); err != nil {
		t.Fatal(err)
	}
	if !svc.Flags.Value().Enabled {
		t.Error("injected binding should track reloads")
	}

	named, err := c.Get("featureFlags")
	if err != nil {
		t.Fatalf("Get by name failed: %v", err)
	}
	if named != any(svc.Flags) {
		t.Error("named singleton and injected binding should be the same instance")
	}
}

func TestSnapshotStore(t *testing.T) {
	store := newSnapshotStore(map[string]any{"key": "value"})
	if store.Snapshot()["key"] != "value" {
		t.Error("Snapshot failed")
	}

	clone := store.Clone()
	clone["key"] = "mutated"
	if store.Snapshot()["key"] != "value" {
		t.Error("mutating a clone must not affect the snapshot")
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Snapshot()
		}()
	}
	wg.Wait()

	store.Replace(map[string]any{"key": "next"})
	if store.Snapshot()["key"] != "next" {
		t.Error("Replace failed")
	}
}

func TestSegmentCache(t *testing.T) {
	cache := &segmentCache{}

	parts := cache.split("a:b.c")
	if len(parts) != 3 || parts[0] != "a" || parts[1] != "b" || parts[2] != "c" {
		t.Errorf("split failed: %v", parts)
	}

	parts2 := cache.split("a:b.c")
	if len(parts2) != 3 {
		t.Errorf("expected 3 parts on cache hit, got %d", len(parts2))
	}
}

func BenchmarkConfigGet(b *testing.B) {
	cfg, _ := NewConfigurationBuilder().
		AddInMemory(map[string]any{
			"server": map[string]any{"host": "localhost", "port": 8080},
		}).
		Build()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg.Get("server:host")
	}
}
