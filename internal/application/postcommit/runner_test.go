package postcommit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/xiebiao/b2b-order/pkg/metrics"
)

func TestRun_SyncHooksInOrderAndErrorsSwallowed(t *testing.T) {
	r := NewRunner(time.Second)
	var calls []string

	r.Run(context.Background(),
		Hook{Name: "first", Fn: func(ctx context.Context) error {
			calls = append(calls, "first")
			return errors.New("redis down")
		}},
		Hook{Name: "second", Fn: func(ctx context.Context) error {
			calls = append(calls, "second")
			panic("boom")
		}},
		Hook{Name: "third", Fn: func(ctx context.Context) error {
			calls = append(calls, "third")
			return nil
		}},
	)

	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestRun_AsyncHookSurvivesRequestCancel(t *testing.T) {
	r := NewRunner(time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	var done atomic.Bool
	release := make(chan struct{})
	r.Run(ctx, Hook{Name: "notify", Async: true, Fn: func(ctx context.Context) error {
		<-release
		if ctx.Err() == nil {
			done.Store(true)
		}
		return nil
	}})

	cancel()
	close(release)
	r.Wait()

	assert.True(t, done.Load(), "请求取消后异步钩子仍应执行")
}

func TestRun_DetachedHookIgnoresCancelledContext(t *testing.T) {
	r := NewRunner(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr, plainSawErr error
	r.Run(ctx,
		Hook{Name: "restock", Detached: true, Fn: func(ctx context.Context) error {
			sawErr = ctx.Err()
			return nil
		}},
		Hook{Name: "invalidate", Fn: func(ctx context.Context) error {
			plainSawErr = ctx.Err()
			return nil
		}},
	)

	assert.NoError(t, sawErr, "Detached钩子不跟随调用方取消")
	assert.ErrorIs(t, plainSawErr, context.Canceled)
}

func TestRun_AsyncHookTimeout(t *testing.T) {
	r := NewRunner(20 * time.Millisecond)

	var sawDeadline atomic.Bool
	r.Run(context.Background(), Hook{Name: "slow", Async: true, Fn: func(ctx context.Context) error {
		<-ctx.Done()
		sawDeadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	}})
	r.Wait()

	assert.True(t, sawDeadline.Load())
}

func TestRun_FailureRecordsMetric(t *testing.T) {
	metrics.InitMetrics()
	before := testutil.ToFloat64(metrics.HookFailuresTotal.WithLabelValues("metric_probe"))

	NewRunner(0).Run(context.Background(), Hook{Name: "metric_probe", Fn: func(ctx context.Context) error {
		return errors.New("x")
	}})

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HookFailuresTotal.WithLabelValues("metric_probe")))
}
