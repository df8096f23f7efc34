// Package inventory 库存调整队列（订单之外的库存变更：补货、盘点修正、取消回补）
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/xiebiao/b2b-order/internal/application/postcommit"
	"github.com/xiebiao/b2b-order/internal/domain/audit"
	"github.com/xiebiao/b2b-order/internal/domain/inventory"
	"github.com/xiebiao/b2b-order/internal/domain/product"
	"github.com/xiebiao/b2b-order/internal/domain/tx"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/metrics"
	"github.com/xiebiao/b2b-order/pkg/retry"
	"github.com/xiebiao/b2b-order/pkg/tracing"
)

// 任务处理结果（指标标签）
const (
	resultOK       = "ok"
	resultRequeued = "requeued"
	resultDead     = "dead_letter"
)

// cleanupTimeout 收尾写入（放回队头、死信、释放锁）的超时
const cleanupTimeout = 5 * time.Second

// Options 队列配置
type Options struct {
	MaxRetries      int // 超过后转入死信
	MaxJobsPerDrain int // 单次排空最多处理的任务数，0表示直到队列为空
	Retry           retry.Policy
}

// EnqueueRequest 入队请求
type EnqueueRequest struct {
	ProductID uint
	Operation inventory.Operation
	Value     int
	OrderID   *uint
	Reason    string
}

// DrainResult 单次排空的统计
type DrainResult struct {
	LockHeld     bool  `json:"lock_held"`
	Processed    int   `json:"processed"`
	Requeued     int   `json:"requeued"`
	DeadLettered int   `json:"dead_lettered"`
	Remaining    int64 `json:"remaining"`
}

// AdjustmentQueue 库存调整队列
// 设计说明：
// 1. 进程启动时创建一次，通过依赖注入传给调用方
// 2. 同一时间只有持有分布式锁的worker在排空队列
// 3. 每个任务一个短事务：行锁读取、计算、写回、审计，提交后失效缓存
type AdjustmentQueue struct {
	queue     inventory.Queue
	lock      inventory.Mutex
	txManager tx.Manager
	products  product.Repository
	audits    audit.Repository
	cache     product.CacheInvalidator
	hooks     *postcommit.Runner
	opts      Options
	now       func() time.Time
}

// NewAdjustmentQueue 创建库存调整队列
func NewAdjustmentQueue(
	queue inventory.Queue,
	lock inventory.Mutex,
	txManager tx.Manager,
	products product.Repository,
	audits audit.Repository,
	cache product.CacheInvalidator,
	hooks *postcommit.Runner,
	opts Options,
) *AdjustmentQueue {
	return &AdjustmentQueue{
		queue:     queue,
		lock:      lock,
		txManager: txManager,
		products:  products,
		audits:    audits,
		cache:     cache,
		hooks:     hooks,
		opts:      opts,
		now:       time.Now,
	}
}

// Enqueue 校验并追加到队尾，返回任务ID（不等待执行）
func (q *AdjustmentQueue) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	job := &inventory.Job{
		ID:        uuid.NewString(),
		ProductID: req.ProductID,
		Operation: req.Operation,
		Value:     req.Value,
		OrderID:   req.OrderID,
		Reason:    req.Reason,
		Timestamp: q.now(),
	}
	if err := job.Validate(); err != nil {
		return "", err
	}
	if err := q.queue.Push(ctx, job); err != nil {
		return "", err
	}

	metrics.RecordJobEnqueued(string(job.Operation))
	log.WithFields(log.Fields{
		"job_id":     job.ID,
		"product_id": job.ProductID,
		"operation":  job.Operation,
		"value":      job.Value,
	}).Info("库存任务已入队")
	return job.ID, nil
}

// Drain 获取锁并按FIFO顺序处理任务
//
// 失败处理：
// 1. 业务错误（商品不存在、任务非法）直接转入死信
// 2. 其他错误放回队头并结束本轮，下一轮仍先处理它，保证同一商品的任务顺序
// 3. 重试次数超过MaxRetries后转入死信
//
// 锁被其他worker持有时立即返回ErrLockHeld
func (q *AdjustmentQueue) Drain(ctx context.Context) (result DrainResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "inventory.Drain")
	defer func() { tracing.End(span, err) }()

	token, ok, err := q.lock.TryLock(ctx)
	if err != nil {
		return result, err
	}
	if !ok {
		result.LockHeld = true
		return result, inventory.ErrLockHeld
	}
	defer q.unlock(ctx, token)

	start := time.Now()
	for q.opts.MaxJobsPerDrain <= 0 || result.Processed+result.DeadLettered < q.opts.MaxJobsPerDrain {
		if ctx.Err() != nil {
			break
		}

		job, err := q.queue.Pop(ctx)
		if err != nil {
			return result, err
		}
		if job == nil {
			break
		}

		jobErr := q.process(ctx, job)
		if jobErr == nil {
			result.Processed++
			metrics.RecordJobProcessed(resultOK)
			continue
		}

		entry := log.WithError(jobErr).WithFields(log.Fields{
			"job_id":      job.ID,
			"product_id":  job.ProductID,
			"retry_count": job.RetryCount,
		})

		// 任务已从队列弹出，放回/死信写入不能跟随ctx一起失败，否则任务丢失
		writeCtx, cancel := q.detached(ctx)

		// worker被取消（优雅退出）：原样放回队头，不计入重试次数
		if ctx.Err() != nil {
			err := q.queue.PushFront(writeCtx, job)
			cancel()
			if err != nil {
				return result, err
			}
			result.Requeued++
			metrics.RecordJobProcessed(resultRequeued)
			entry.Warn("worker已停止，库存任务放回队头")
			break
		}

		if apperrors.IsBusiness(jobErr) || job.RetryCount >= q.opts.MaxRetries {
			err := q.queue.DeadLetter(writeCtx, job, jobErr.Error())
			cancel()
			if err != nil {
				return result, err
			}
			result.DeadLettered++
			metrics.RecordJobProcessed(resultDead)
			entry.Error("库存任务转入死信队列")
			continue
		}

		job.RetryCount++
		err = q.queue.PushFront(writeCtx, job)
		cancel()
		if err != nil {
			return result, err
		}
		result.Requeued++
		metrics.RecordJobProcessed(resultRequeued)
		entry.Warn("库存任务处理失败，放回队头等待下一轮")
		break
	}

	lenCtx, cancel := q.detached(ctx)
	defer cancel()
	remaining, err := q.queue.Len(lenCtx)
	if err != nil {
		return result, err
	}
	result.Remaining = remaining
	metrics.ObserveDrain(time.Since(start), remaining)
	return result, nil
}

// Run 按间隔循环排空，直到ctx结束
func (q *AdjustmentQueue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval).Info("库存队列worker已启动")
	for {
		result, err := q.Drain(ctx)
		switch {
		case errors.Is(err, inventory.ErrLockHeld):
			log.Debug("库存队列锁被其他worker持有，跳过本轮")
		case err != nil:
			log.WithError(err).Error("库存队列排空失败")
		case result.Processed+result.Requeued+result.DeadLettered > 0:
			log.WithFields(log.Fields{
				"processed":     result.Processed,
				"requeued":      result.Requeued,
				"dead_lettered": result.DeadLettered,
				"remaining":     result.Remaining,
			}).Info("库存队列排空完成")
		}

		select {
		case <-ctx.Done():
			log.Info("库存队列worker已停止")
			return
		case <-ticker.C:
		}
	}
}

// process 单个任务一个事务，瞬时故障由重试器原地重试
func (q *AdjustmentQueue) process(ctx context.Context, job *inventory.Job) (err error) {
	ctx, span := tracing.StartSpan(ctx, "inventory.ProcessJob")
	defer func() { tracing.End(span, err) }()

	if err := job.Validate(); err != nil {
		return err
	}

	err = retry.DoNotify(ctx, q.opts.Retry, func(ctx context.Context) error {
		return q.txManager.Transaction(ctx, func(txCtx context.Context) error {
			p, err := q.products.LockByID(txCtx, job.ProductID)
			if err != nil {
				return err
			}

			oldInventory, oldStatus := p.Inventory, p.Status
			p.SetInventory(job.Apply(oldInventory))
			if err := q.products.UpdateInventory(txCtx, p, oldInventory); err != nil {
				return err
			}

			metadata := audit.Values{
				"job_id":      job.ID,
				"operation":   job.Operation,
				"value":       job.Value,
				"retry_count": job.RetryCount,
			}
			if job.OrderID != nil {
				metadata["order_id"] = *job.OrderID
			}
			if job.Reason != "" {
				metadata["reason"] = job.Reason
			}
			entry := audit.NewEntry(audit.SystemSource, auditAction(job.Operation), audit.EntityProduct, p.ID,
				audit.Values{"inventory": oldInventory, "status": oldStatus},
				audit.Values{"inventory": p.Inventory, "status": p.Status},
				metadata,
			)
			return q.audits.Create(txCtx, entry)
		})
	}, retry.Observe("inventory_job"))
	if err != nil {
		return err
	}

	q.hooks.Run(ctx, postcommit.Hook{
		Name: "invalidate_product_cache",
		Fn: func(ctx context.Context) error {
			return q.cache.InvalidateProducts(ctx, job.ProductID)
		},
	})
	return nil
}

// unlock 只释放自己持有的锁；请求已取消时仍然尝试释放
func (q *AdjustmentQueue) unlock(ctx context.Context, token string) {
	ctx, cancel := q.detached(ctx)
	defer cancel()

	released, err := q.lock.Unlock(ctx, token)
	if err != nil {
		log.WithError(err).Error("释放库存队列锁失败")
		return
	}
	if !released {
		log.Warn("库存队列锁已过期或被其他worker接管")
	}
}

// detached 脱离调用方取消信号的短超时ctx，用于收尾写入
func (q *AdjustmentQueue) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func auditAction(op inventory.Operation) audit.Action {
	switch op {
	case inventory.OpSet:
		return audit.ActionInventorySet
	case inventory.OpIncrement:
		return audit.ActionInventoryIncrement
	default:
		return audit.ActionInventoryDecrement
	}
}
