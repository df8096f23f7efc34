// Package postcommit 事务提交后的副作用（缓存失效、通知、回补入队）
//
// 事务已经提交，副作用失败不能影响调用方看到的结果：
// 每个钩子的错误和panic都只记录日志与指标，不向上返回。
package postcommit

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xiebiao/b2b-order/pkg/metrics"
)

// DefaultAsyncTimeout 异步钩子的默认超时
const DefaultAsyncTimeout = 10 * time.Second

// Hook 提交后钩子
type Hook struct {
	Name     string
	Async    bool // true：在独立goroutine中执行，不阻塞调用方
	Detached bool // true：同步执行，但不跟随调用方取消（补偿类操作）
	Fn       func(ctx context.Context) error
}

// Runner 钩子执行器，整个进程共用一个
type Runner struct {
	asyncTimeout time.Duration
	wg           sync.WaitGroup
}

// NewRunner 创建执行器，asyncTimeout<=0时使用默认值
func NewRunner(asyncTimeout time.Duration) *Runner {
	if asyncTimeout <= 0 {
		asyncTimeout = DefaultAsyncTimeout
	}
	return &Runner{asyncTimeout: asyncTimeout}
}

// Run 按顺序执行同步钩子，异步钩子在后台执行
// 异步钩子使用脱离请求的context：请求返回后仍会执行完
func (r *Runner) Run(ctx context.Context, hooks ...Hook) {
	for _, h := range hooks {
		if !h.Async {
			if h.Detached {
				r.invokeDetached(ctx, h)
			} else {
				r.invoke(ctx, h)
			}
			continue
		}

		r.wg.Add(1)
		go func(h Hook) {
			defer r.wg.Done()
			asyncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.asyncTimeout)
			defer cancel()
			r.invoke(asyncCtx, h)
		}(h)
	}
}

// Wait 等待所有异步钩子结束（优雅退出时调用）
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) invokeDetached(ctx context.Context, h Hook) {
	detachedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.asyncTimeout)
	defer cancel()
	r.invoke(detachedCtx, h)
}

func (r *Runner) invoke(ctx context.Context, h Hook) {
	defer func() {
		if p := recover(); p != nil {
			r.fail(h, fmt.Errorf("panic: %v", p))
		}
	}()

	if err := h.Fn(ctx); err != nil {
		r.fail(h, err)
	}
}

func (r *Runner) fail(h Hook, err error) {
	metrics.RecordHookFailure(h.Name)
	log.WithError(err).WithFields(log.Fields{
		"hook":  h.Name,
		"async": h.Async,
	}).Error("提交后钩子执行失败")
}
