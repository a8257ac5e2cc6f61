package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gocrud/container"
	"github.com/gocrud/container/logging"
)

// HostedService 托管服务接口（类似于 .NET Core IHostedService）。
// Runner 会在独立的 goroutine 中调用 Start，用户无需自己启动 goroutine。
type HostedService interface {
	// Start 启动服务。该方法应阻塞执行，直到 context 被取消或发生错误。
	Start(ctx context.Context) error
	// Stop 执行优雅关闭逻辑。
	Stop(ctx context.Context) error
}

// Runner 托管服务运行器
type Runner struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewRunner 创建托管服务运行器
func NewRunner(logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard
	}
	return &Runner{
		services: make([]HostedService, 0),
		logger:   logger,
	}
}

// FromContainer 收集容器里全部 HostedService 候选并创建运行器。
// 没有任何托管服务时返回空运行器。
func FromContainer(c *container.Container, logger logging.Logger) (*Runner, error) {
	runner := NewRunner(logger)

	services, err := container.Get[[]HostedService](c)
	if err != nil {
		var missing *container.NoMatchingCandidateError
		if !errors.As(err, &missing) {
			return nil, err
		}
	}
	for _, svc := range services {
		runner.Add(svc)
	}
	return runner, nil
}

// Add 添加托管服务
func (r *Runner) Add(service HostedService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = append(r.services, service)
}

// StartAll 并发启动所有托管服务，每个服务独立 goroutine。
// 返回的通道收集非取消类的启动错误。
func (r *Runner) StartAll(ctx context.Context) <-chan error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errCh := make(chan error, len(r.services))
	r.logger.Info(fmt.Sprintf("Starting %d hosted services", len(r.services)))

	for i, service := range r.services {
		r.wg.Add(1)
		go func(index int, svc HostedService) {
			defer r.wg.Done()

			if err := svc.Start(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					r.logger.Debug(fmt.Sprintf("Hosted service %d stopped (context done)", index+1))
					return
				}
				r.logger.Error(fmt.Sprintf("Hosted service %d error", index+1),
					logging.Field{Key: "error", Value: err.Error()})
				select {
				case errCh <- err:
				default:
				}
			}
		}(i, service)
	}

	return errCh
}

// StopAll 反向并发停止所有托管服务
func (r *Runner) StopAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.logger.Info(fmt.Sprintf("Stopping %d hosted services", len(r.services)))

	var wg sync.WaitGroup
	for i := len(r.services) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(idx int, svc HostedService) {
			defer wg.Done()
			if err := svc.Stop(ctx); err != nil {
				r.logger.Error(fmt.Sprintf("Failed to stop hosted service %d", idx+1),
					logging.Field{Key: "error", Value: err.Error()})
			}
		}(i, r.services[i])
	}
	wg.Wait()
	return nil
}

// Wait 等待所有服务的 Start 返回
func (r *Runner) Wait() {
	r.wg.Wait()
}
