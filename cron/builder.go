package cron

import (
	"fmt"
	"reflect"
	"time"

	"github.com/gocrud/container"
	"github.com/gocrud/container/logging"
)

// SchedulerName 调度器在容器里的注册名称
const SchedulerName = "cron.scheduler"

// Builder Cron 配置构建器
type Builder struct {
	enableSeconds    bool
	enableCronLogger bool
	stopTimeout      time.Duration
	jobs             []jobDefinition
}

// jobDefinition 任务定义
type jobDefinition struct {
	spec    string
	name    string
	handler any // func() 或参数自动从容器解析的函数
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{
		stopTimeout: 30 * time.Second,
		jobs:        make([]jobDefinition, 0),
	}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

// WithStopTimeout 设置优雅停止的等待上限
func (b *Builder) WithStopTimeout(d time.Duration) *Builder {
	b.stopTimeout = d
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.enableCronLogger = true
	return b
}

// AddJob 添加简单任务
func (b *Builder) AddJob(spec, name string, handler func()) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// AddJobWithInjection 添加参数自动从容器解析的任务。
// handler 可以是任何函数，每次触发时按参数类型逐个解析。
//
// 示例：
//
//	builder.AddJobWithInjection("0 */5 * * * *", "sync-data", func(svc *DataService) {
//	    svc.Sync()
//	})
func (b *Builder) AddJobWithInjection(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// Provide 构建调度器并注册为容器单例。
// 调度器随组件初始化启动，容器关闭时优雅停止。
func Provide(c *container.Container, logger logging.Logger, configure func(*Builder)) (*Scheduler, error) {
	builder := NewBuilder()
	if configure != nil {
		configure(builder)
	}
	if logger == nil {
		logger = logging.Discard
	}

	scheduler := newScheduler(logger, builder.enableSeconds, builder.enableCronLogger, builder.stopTimeout)

	for _, job := range builder.jobs {
		var fn func()
		switch handler := job.handler.(type) {
		case func():
			fn = handler
		default:
			wrapped, err := wrapHandler(c, logger, handler)
			if err != nil {
				return nil, fmt.Errorf("failed to wrap job '%s': %w", job.name, err)
			}
			fn = wrapped
		}
		if err := scheduler.AddJob(job.spec, job.name, fn); err != nil {
			return nil, err
		}
	}

	ctor := func() *Scheduler { return scheduler }
	if err := container.RegisterConstructor(c, SchedulerName, ctor); err != nil {
		return nil, err
	}
	return scheduler, nil
}

// wrapHandler 包装处理器，触发时按参数类型从容器解析依赖
func wrapHandler(c *container.Container, logger logging.Logger, handler any) (func(), error) {
	handlerValue := reflect.ValueOf(handler)
	handlerType := handlerValue.Type()
	if handlerType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function, got %v", handlerType.Kind())
	}

	return func() {
		args := make([]reflect.Value, handlerType.NumIn())
		for i := 0; i < handlerType.NumIn(); i++ {
			paramType := handlerType.In(i)
			instance, err := c.GetByType(paramType)
			if err != nil {
				logger.Error(fmt.Sprintf("Failed to resolve parameter %d (%v) for cron job", i, paramType),
					logging.Field{Key: "error", Value: err.Error()})
				return
			}
			args[i] = reflect.ValueOf(instance)
		}

		defer func() {
			if r := recover(); r != nil {
				logger.Error("Cron job panicked", logging.Field{Key: "panic", Value: r})
			}
		}()
		handlerValue.Call(args)
	}, nil
}
