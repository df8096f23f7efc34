package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/xiebiao/b2b-order/internal/domain/inventory"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// JobQueue 库存调整任务队列（Redis List）
// 设计说明：
// 1. RPUSH入队、LPOP出队，保证FIFO
// 2. 处理失败的任务LPUSH放回队头，下一轮仍然先处理它
// 3. 超过重试上限的任务转入死信列表，不会自动再处理
type JobQueue struct {
	client *redis.Client
	keys   keys
}

// NewJobQueue 创建任务队列
func NewJobQueue(client *redis.Client, prefix string) *JobQueue {
	return &JobQueue{client: client, keys: keys{prefix: prefix}}
}

var _ inventory.Queue = (*JobQueue)(nil)

// deadJob 死信记录
type deadJob struct {
	Job      *inventory.Job  `json:"job,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Reason   string          `json:"reason"`
	FailedAt time.Time       `json:"failed_at"`
}

func (q *JobQueue) Push(ctx context.Context, job *inventory.Job) error {
	data, err := job.Encode()
	if err != nil {
		return apperrors.Wrap(err, "序列化库存任务失败")
	}
	if err := q.client.RPush(ctx, q.keys.jobs(), data).Err(); err != nil {
		return queueError(err)
	}
	return nil
}

// Pop 取出队头任务
// 无法解析的数据直接转入死信，继续取下一个
func (q *JobQueue) Pop(ctx context.Context) (*inventory.Job, error) {
	for {
		data, err := q.client.LPop(ctx, q.keys.jobs()).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, queueError(err)
		}

		job, err := inventory.Decode(data)
		if err == nil {
			return job, nil
		}

		log.WithError(err).WithField("payload", string(data)).Warn("库存任务格式错误，转入死信队列")
		if err := q.pushDead(ctx, deadJob{Raw: rawJSON(data), Reason: err.Error(), FailedAt: time.Now()}); err != nil {
			return nil, err
		}
	}
}

func (q *JobQueue) PushFront(ctx context.Context, job *inventory.Job) error {
	data, err := job.Encode()
	if err != nil {
		return apperrors.Wrap(err, "序列化库存任务失败")
	}
	if err := q.client.LPush(ctx, q.keys.jobs(), data).Err(); err != nil {
		return queueError(err)
	}
	return nil
}

func (q *JobQueue) DeadLetter(ctx context.Context, job *inventory.Job, reason string) error {
	return q.pushDead(ctx, deadJob{Job: job, Reason: reason, FailedAt: time.Now()})
}

func (q *JobQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.keys.jobs()).Result()
	if err != nil {
		return 0, queueError(err)
	}
	return n, nil
}

// DeadLen 死信数量
func (q *JobQueue) DeadLen(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.keys.deadJobs()).Result()
	if err != nil {
		return 0, queueError(err)
	}
	return n, nil
}

func (q *JobQueue) pushDead(ctx context.Context, d deadJob) error {
	data, err := json.Marshal(d)
	if err != nil {
		return apperrors.Wrap(err, "序列化死信失败")
	}
	if err := q.client.RPush(ctx, q.keys.deadJobs(), data).Err(); err != nil {
		return queueError(err)
	}
	return nil
}

// rawJSON 原始数据不是合法JSON时按字符串保存
func rawJSON(data []byte) json.RawMessage {
	if json.Valid(data) {
		return data
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}

func queueError(err error) error {
	return &apperrors.AppError{
		Code:    apperrors.CodeQueueUnavailable,
		Status:  apperrors.ErrQueueUnavailable.Status,
		Message: apperrors.ErrQueueUnavailable.Message,
		Err:     err,
	}
}
