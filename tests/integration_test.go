package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/container"
	"github.com/gocrud/container/config"
	"github.com/gocrud/container/cron"
	"github.com/gocrud/container/database"
	"github.com/gocrud/container/logging"
	"github.com/gocrud/container/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestService 模拟业务服务
type TestService struct {
	DB     *database.DB         `di:""`
	Config config.Configuration `di:""`
}

func (s *TestService) GetAppName() string {
	if s.Config == nil {
		return "no-config"
	}
	return s.Config.Get("app:name")
}

// TestController 模拟控制器，构造函数注入
type TestController struct {
	Service *TestService
}

func NewTestController(svc *TestService) *TestController {
	return &TestController{Service: svc}
}

func (c *TestController) Register(r gin.IRouter) {
	r.GET("/ping", func(ctx *gin.Context) {
		name := c.Service.GetAppName()
		if c.Service.DB == nil {
			name += "-nodb"
		}
		ctx.String(200, "pong: "+name)
	})
}

func quietLogger() logging.Logger {
	return logging.NewLoggingBuilder().SetMinimumLevel(logging.LogLevelError).Build()
}

func TestWebIntegration(t *testing.T) {
	t.Setenv("TEST_APP_NAME", "IntegrationTest")

	c := container.New(container.WithLogger(quietLogger()))
	defer c.Close()

	// 配置：环境变量源，注册为可注入的 Configuration
	_, err := config.Provide(c, config.NewConfigurationBuilder().AddEnvironmentVariables("TEST_"))
	require.NoError(t, err)

	// 数据库：跳过真实连接，注册一个空壳实例
	c.RegisterResolvable(&database.DB{DB: &gorm.DB{}})

	// 业务服务与控制器
	require.NoError(t, container.Register[TestService](c, "testService"))
	require.NoError(t, container.RegisterConstructor(c, "testController", NewTestController))

	// Web 主机：收集容器里的控制器并挂载路由
	_, err = web.Provide(c, quietLogger(), func(b *web.Builder) {
		b.SetMode(gin.TestMode)
	})
	require.NoError(t, err)

	engine := container.MustGet[*gin.Engine](c)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "pong: IntegrationTest", w.Body.String())
}

func TestCronIntegration(t *testing.T) {
	c := container.New(container.WithLogger(quietLogger()))

	require.NoError(t, container.Register[TestService](c, "testService"))
	c.RegisterResolvable(&database.DB{DB: &gorm.DB{}})
	_, err := config.Provide(c, config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"app": map[string]any{"name": "cron"},
	}))
	require.NoError(t, err)

	executed := make(chan struct{}, 1)
	_, err = cron.Provide(c, quietLogger(), func(b *cron.Builder) {
		b.WithSeconds()
		b.AddJobWithInjection("* * * * * *", "touch", func(svc *TestService) {
			select {
			case executed <- struct{}{}:
			default:
			}
		})
	})
	require.NoError(t, err)

	// 解析触发调度器创建与启动
	scheduler := container.MustGet[*cron.Scheduler](c)
	assert.Equal(t, []string{"touch"}, scheduler.JobNames())

	// 容器关闭时优雅停止调度
	c.Close()
}

type auditLog struct {
	events []string
}

type storeComponent struct {
	log *auditLog
}

func (s *storeComponent) Destroy() error {
	s.log.events = append(s.log.events, "store")
	return nil
}

type serviceComponent struct {
	log *auditLog
}

func (s *serviceComponent) Destroy() error {
	s.log.events = append(s.log.events, "service")
	return nil
}

func TestShutdownOrder(t *testing.T) {
	c := container.New()
	log := &auditLog{}

	err := container.RegisterConstructor(c, "store", func() *storeComponent {
		return &storeComponent{log: log}
	})
	require.NoError(t, err)

	err = container.RegisterConstructor(c, "service", func(store *storeComponent) *serviceComponent {
		return &serviceComponent{log: log}
	})
	require.NoError(t, err)

	require.NoError(t, c.PreInstantiateSingletons())
	c.Close()

	// 依赖方先于被依赖方销毁
	assert.Equal(t, []string{"service", "store"}, log.events)
}
