// Package retry 提供针对持久化存储操作的重试包装器
//
// 错误分为两类：
// 1. 可重试（瞬时基础设施故障）：连接被拒绝、连接重置、超时、服务端关闭连接、死锁/锁等待超时
// 2. 不可重试（业务或程序错误）：立即返回，绝不重试
//
// 例如库存不足属于业务错误，第一次失败就返回给调用方；
// 而MySQL主库短暂不可达则按指数退避重试，耗尽次数后才暴露给调用方。
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy 重试策略
type Policy struct {
	MaxAttempts int           // 最大尝试次数（含第一次）
	BaseDelay   time.Duration // 第一次重试前的等待时间，之后每次翻倍
	MaxDelay    time.Duration // 单次等待上限（0表示不限制）
}

// DefaultPolicy 默认策略：最多3次，100ms起步
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

// Notify 每次重试前的回调（用于日志与指标）
type Notify func(err error, attempt int, wait time.Duration)

// Do 执行fn，可重试错误按策略退避重试
//
// 返回值：
// - fn成功：nil
// - 不可重试错误：原样返回（只执行一次）
// - 可重试错误耗尽次数：返回最后一次的错误
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	return DoNotify(ctx, policy, fn, nil)
}

// DoNotify 与Do相同，但每次重试前调用notify
func DoNotify(ctx context.Context, policy Policy, fn func(ctx context.Context) error, notify Notify) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) {
			notify(err, attempt, wait)
		}
	}

	return backoff.RetryNotify(operation, newBackOff(ctx, policy), onRetry)
}

// newBackOff 构造指数退避：无随机抖动，倍数为2
func newBackOff(ctx context.Context, policy Policy) backoff.BackOff {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Hour
	}

	exp := &backoff.ExponentialBackOff{
		InitialInterval:     policy.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0, // 只按次数停止
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxAttempts-1)), ctx)
}
