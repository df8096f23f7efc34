package inventory

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/b2b-order/internal/application/postcommit"
	"github.com/xiebiao/b2b-order/internal/domain/audit"
	"github.com/xiebiao/b2b-order/internal/domain/inventory"
	"github.com/xiebiao/b2b-order/internal/domain/product"
	"github.com/xiebiao/b2b-order/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/b2b-order/internal/testutil/memstore"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/retry"
)

type fixture struct {
	mr    *miniredis.Miniredis
	store *memstore.Store
	cache *memstore.Invalidator
	jobs  *redis.JobQueue
	queue *AdjustmentQueue
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		mr:    mr,
		store: memstore.New(),
		cache: &memstore.Invalidator{},
		jobs:  redis.NewJobQueue(client, "test"),
	}
	f.queue = newQueue(f, redis.NewDrainLock(client, "test", 10*time.Second), opts)
	return f
}

func newQueue(f *fixture, lock inventory.Mutex, opts Options) *AdjustmentQueue {
	return NewAdjustmentQueue(f.jobs, lock, f.store, f.store.Products(), f.store.Audits(), f.cache, postcommit.NewRunner(time.Second), opts)
}

var defaultOptions = Options{
	MaxRetries: 2,
	Retry:      retry.Policy{MaxAttempts: 1},
}

func stapler(inventory int) *product.Product {
	return &product.Product{ID: 7, SKU: "STAPLER", Name: "订书机", Inventory: inventory, Status: product.StatusActive, BasePrice: 3000, MinOrderQuantity: 1}
}

func TestEnqueue_ValidatesJob(t *testing.T) {
	f := newFixture(t, defaultOptions)
	ctx := context.Background()

	tests := []struct {
		name string
		req  EnqueueRequest
	}{
		{"商品为空", EnqueueRequest{Operation: inventory.OpIncrement, Value: 1}},
		{"操作非法", EnqueueRequest{ProductID: 7, Operation: "multiply", Value: 2}},
		{"负数", EnqueueRequest{ProductID: 7, Operation: inventory.OpSet, Value: -1}},
		{"增量为0", EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.queue.Enqueue(ctx, tt.req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInventoryJob)
		})
	}

	n, err := f.jobs.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrain_AppliesJobsInOrder(t *testing.T) {
	f := newFixture(t, defaultOptions)
	soldOut := stapler(0)
	soldOut.Status = product.StatusOutOfStock
	f.store.PutProduct(soldOut)
	ctx := context.Background()

	orderID := uint(42)
	id1, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpSet, Value: 20})
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpDecrement, Value: 5})
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 3, OrderID: &orderID})
	require.NoError(t, err)

	result, err := f.queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Processed: 3}, result)

	p := f.store.Product(7)
	assert.Equal(t, 18, p.Inventory)
	assert.Equal(t, product.StatusActive, p.Status)

	entries := f.store.AuditEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, audit.ActionInventorySet, entries[0].Action)
	assert.Equal(t, audit.SystemUserID, entries[0].UserID)
	assert.Equal(t, id1, entries[0].Metadata["job_id"])
	assert.Equal(t, product.StatusOutOfStock, entries[0].OldValues["status"])
	assert.Equal(t, audit.ActionInventoryDecrement, entries[1].Action)
	assert.Equal(t, audit.ActionInventoryIncrement, entries[2].Action)
	assert.Equal(t, orderID, entries[2].Metadata["order_id"])

	assert.Equal(t, []uint{7, 7, 7}, f.cache.IDs())
	assert.False(t, f.mr.Exists("test:inventory:lock"), "排空结束后应释放锁")
}

func TestDrain_DecrementFloorsAtZero(t *testing.T) {
	f := newFixture(t, defaultOptions)
	f.store.PutProduct(stapler(4))
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpDecrement, Value: 10})
	require.NoError(t, err)

	_, err = f.queue.Drain(ctx)
	require.NoError(t, err)

	p := f.store.Product(7)
	assert.Equal(t, 0, p.Inventory)
	assert.Equal(t, product.StatusOutOfStock, p.Status)
}

func TestDrain_InactiveStaysInactive(t *testing.T) {
	f := newFixture(t, defaultOptions)
	p := stapler(0)
	p.Status = product.StatusInactive
	f.store.PutProduct(p)
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 10})
	require.NoError(t, err)
	_, err = f.queue.Drain(ctx)
	require.NoError(t, err)

	got := f.store.Product(7)
	assert.Equal(t, 10, got.Inventory)
	assert.Equal(t, product.StatusInactive, got.Status)
}

func TestDrain_LockHeldReturnsImmediately(t *testing.T) {
	f := newFixture(t, defaultOptions)
	f.store.PutProduct(stapler(5))
	ctx := context.Background()

	_, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 1})
	require.NoError(t, err)
	require.NoError(t, f.mr.Set("test:inventory:lock", "other-worker"))

	result, err := f.queue.Drain(ctx)
	assert.ErrorIs(t, err, inventory.ErrLockHeld)
	assert.True(t, result.LockHeld)
	assert.Equal(t, 5, f.store.Product(7).Inventory)

	// 他人的锁不会被删除
	got, err := f.mr.Get("test:inventory:lock")
	require.NoError(t, err)
	assert.Equal(t, "other-worker", got)
}

func TestDrain_ConcurrentWorkersProcessEachJobOnce(t *testing.T) {
	f := newFixture(t, defaultOptions)
	f.store.PutProduct(stapler(0))
	f.store.TxDelay = 2 * time.Millisecond
	ctx := context.Background()

	const jobs = 20
	for i := 0; i < jobs; i++ {
		_, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 1})
		require.NoError(t, err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: f.mr.Addr()})
	defer client.Close()
	second := newQueue(f, redis.NewDrainLock(client, "test", 10*time.Second), defaultOptions)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		held     int
		executed int
	)
	for _, q := range []*AdjustmentQueue{f.queue, second} {
		wg.Add(1)
		go func(q *AdjustmentQueue) {
			defer wg.Done()
			result, _ := q.Drain(ctx)
			mu.Lock()
			defer mu.Unlock()
			if result.LockHeld {
				held++
			}
			executed += result.Processed
		}(q)
	}
	wg.Wait()

	// 另一个worker可能在第一个释放锁之后才开始，此时队列已空
	assert.LessOrEqual(t, held, 1)
	assert.Equal(t, jobs, executed)
	assert.Equal(t, jobs, f.store.Product(7).Inventory)
	assert.Len(t, f.store.AuditEntries(), jobs)
}

func TestDrain_TransientFailureRequeuesAtHead(t *testing.T) {
	f := newFixture(t, defaultOptions)
	f.store.PutProduct(stapler(10))
	ctx := context.Background()

	first, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpSet, Value: 50})
	require.NoError(t, err)
	_, err = f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpDecrement, Value: 5})
	require.NoError(t, err)

	f.store.InjectFailures(syscall.ECONNREFUSED)
	result, err := f.queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Requeued: 1, Remaining: 2}, result)
	assert.Equal(t, 10, f.store.Product(7).Inventory, "失败后本轮停止，后续任务不能越过它")

	head, err := f.jobs.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, head.ID)
	assert.Equal(t, 1, head.RetryCount)
	require.NoError(t, f.jobs.PushFront(ctx, head))

	result, err = f.queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 45, f.store.Product(7).Inventory)

	entries := f.store.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Metadata["retry_count"])
}

func TestDrain_DeadLetters(t *testing.T) {
	t.Run("商品不存在直接转入死信", func(t *testing.T) {
		f := newFixture(t, defaultOptions)
		ctx := context.Background()
		f.store.PutProduct(stapler(1))

		_, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 404, Operation: inventory.OpIncrement, Value: 1})
		require.NoError(t, err)
		_, err = f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 1})
		require.NoError(t, err)

		result, err := f.queue.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, DrainResult{Processed: 1, DeadLettered: 1}, result)
		assert.Equal(t, 2, f.store.Product(7).Inventory)

		dead, err := f.jobs.DeadLen(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), dead)
	})

	t.Run("超过重试次数转入死信", func(t *testing.T) {
		f := newFixture(t, defaultOptions)
		ctx := context.Background()
		f.store.PutProduct(stapler(1))

		_, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 1})
		require.NoError(t, err)

		// MaxRetries=2：第1、2次失败放回队头，第3次失败转入死信
		for i := 0; i < 3; i++ {
			f.store.InjectFailures(syscall.ECONNRESET)
			_, err := f.queue.Drain(ctx)
			require.NoError(t, err)
		}

		n, err := f.jobs.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		dead, err := f.jobs.DeadLen(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), dead)
		assert.Equal(t, 1, f.store.Product(7).Inventory)
		assert.Empty(t, f.store.AuditEntries())
	})
}

// cancellingTx 模拟任务执行中worker被取消
type cancellingTx struct {
	cancel context.CancelFunc
}

func (m *cancellingTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.cancel()
	return ctx.Err()
}

func TestDrain_CancelledMidJobKeepsJob(t *testing.T) {
	f := newFixture(t, defaultOptions)
	f.store.PutProduct(stapler(10))

	id, err := f.queue.Enqueue(context.Background(), EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 5})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := goredis.NewClient(&goredis.Options{Addr: f.mr.Addr()})
	defer client.Close()
	stopping := NewAdjustmentQueue(f.jobs, redis.NewDrainLock(client, "test", 10*time.Second), &cancellingTx{cancel: cancel},
		f.store.Products(), f.store.Audits(), f.cache, postcommit.NewRunner(time.Second), defaultOptions)

	result, err := stopping.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Requeued: 1, Remaining: 1}, result)
	assert.False(t, f.mr.Exists("test:inventory:lock"), "取消后仍应释放锁")

	dead, err := f.jobs.DeadLen(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dead)

	head, err := f.jobs.Pop(context.Background())
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, id, head.ID)
	assert.Zero(t, head.RetryCount, "取消不计入重试次数")
	require.NoError(t, f.jobs.PushFront(context.Background(), head))

	// 重启后的worker正常处理
	result, err = f.queue.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 15, f.store.Product(7).Inventory)
}

func TestDrain_MaxJobsPerDrain(t *testing.T) {
	f := newFixture(t, Options{MaxRetries: 1, MaxJobsPerDrain: 2, Retry: retry.Policy{MaxAttempts: 1}})
	f.store.PutProduct(stapler(0))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 1})
		require.NoError(t, err)
	}

	result, err := f.queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, int64(3), result.Remaining)
}

func TestRun_StopsWithContext(t *testing.T) {
	f := newFixture(t, defaultOptions)
	f.store.PutProduct(stapler(0))
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.queue.Enqueue(ctx, EnqueueRequest{ProductID: 7, Operation: inventory.OpIncrement, Value: 4})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.queue.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.store.Product(7).Inventory == 4 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run未在context取消后退出")
	}
}
