package inventory

import (
	"context"
	"errors"
)

// ErrLockHeld 其他worker正在排空队列
var ErrLockHeld = errors.New("inventory queue lock is held by another worker")

// Queue 任务队列（FIFO）
type Queue interface {
	// Push 追加到队尾
	Push(ctx context.Context, job *Job) error
	// Pop 从队头取出一个任务，队列为空时返回(nil, nil)
	Pop(ctx context.Context) (*Job, error)
	// PushFront 放回队头（失败重试时保持顺序）
	PushFront(ctx context.Context, job *Job) error
	// DeadLetter 转入死信队列，保留供人工处理
	DeadLetter(ctx context.Context, job *Job, reason string) error
	// Len 队列长度
	Len(ctx context.Context) (int64, error)
}

// Mutex 分布式互斥锁
type Mutex interface {
	// TryLock 尝试加锁，已被持有时返回ok=false，不阻塞
	TryLock(ctx context.Context) (token string, ok bool, err error)
	// Unlock 仅当锁仍由token持有时删除
	Unlock(ctx context.Context, token string) (released bool, err error)
}
