package hosting

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/container/logging"
)

// TimedService 按固定间隔执行任务的托管服务
type TimedService struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
	logger   logging.Logger
	stopCh   chan struct{}
}

// NewTimedService 创建定时托管服务
func NewTimedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedService {
	if logger == nil {
		logger = logging.Discard
	}
	return &TimedService{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start 运行定时循环，阻塞到 Stop 或上下文取消
func (s *TimedService) Start(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("TimedService '%s' running with interval %v", s.name, s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error(fmt.Sprintf("TimedService '%s' task failed", s.name),
					logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop 发出停止信号
func (s *TimedService) Stop(ctx context.Context) error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	return nil
}
