package cron

import (
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/container/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler Cron 定时任务调度器。
// 实现了容器的初始化和销毁钩子：组件创建完成后启动调度，
// 容器关闭时优雅停止（等待正在运行的任务完成）。
type Scheduler struct {
	cron        *cron.Cron
	logger      logging.Logger
	stopTimeout time.Duration
	mu          sync.RWMutex
	jobs        map[string]cron.EntryID // 任务名称到任务ID的映射
}

func newScheduler(logger logging.Logger, enableSeconds bool, enableCronLogger bool, stopTimeout time.Duration) *Scheduler {
	cronOpts := []cron.Option{
		cron.WithChain(cron.Recover(newCronLogger(logger))),
	}
	if enableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}
	if enableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	return &Scheduler{
		cron:        cron.New(cronOpts...),
		logger:      logger,
		stopTimeout: stopTimeout,
		jobs:        make(map[string]cron.EntryID),
	}
}

// AddJob 添加定时任务
// spec: cron 表达式，如 "0 */5 * * * *" (每5分钟) 或 "0 0 2 * * *" (每天凌晨2点)
func (s *Scheduler) AddJob(spec, name string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(spec, func() {
		s.logger.Info(fmt.Sprintf("Cron job '%s' started", name))
		defer s.logger.Info(fmt.Sprintf("Cron job '%s' completed", name))
		job()
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job '%s': %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info(fmt.Sprintf("Cron job '%s' registered with spec '%s'", name, spec))
	return nil
}

// RemoveJob 移除定时任务
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info(fmt.Sprintf("Cron job '%s' removed", name))
	}
}

// JobNames 返回已注册的任务名称
func (s *Scheduler) JobNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Init 启动调度循环，容器创建组件后调用
func (s *Scheduler) Init() error {
	s.mu.RLock()
	count := len(s.jobs)
	s.mu.RUnlock()

	s.logger.Info(fmt.Sprintf("Cron scheduler starting with %d jobs", count))
	s.cron.Start()
	return nil
}

// Destroy 优雅停止调度，由容器在关闭时调用
func (s *Scheduler) Destroy() error {
	s.logger.Info("Cron scheduler stopping")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("Cron scheduler stopped gracefully")
	case <-time.After(s.stopTimeout):
		s.logger.Warn("Cron scheduler stop timeout, forcing shutdown")
	}
	return nil
}

// cronLogger 适配器：将框架日志接口适配到 cron 的日志接口
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			key := fmt.Sprintf("%v", keysAndValues[i])
			fields = append(fields, logging.Field{Key: key, Value: keysAndValues[i+1]})
		}
	}
	return fields
}
