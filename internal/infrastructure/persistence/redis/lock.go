package redis

import (
	"context"
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/b2b-order/internal/domain/inventory"
)

//go:embed scripts/release_lock.lua
var releaseLockLua string

var releaseLockScript = redis.NewScript(releaseLockLua)

// Mutex 基于SET NX PX的互斥锁
// 设计说明：
// 1. 加锁时写入随机token，解锁时用Lua脚本比较后删除，不会误删其他worker的锁
// 2. 锁带TTL，持有者崩溃后自动过期
type Mutex struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewDrainLock 库存队列排空锁
func NewDrainLock(client *redis.Client, prefix string, ttl time.Duration) *Mutex {
	return &Mutex{client: client, key: keys{prefix: prefix}.drainLock(), ttl: ttl}
}

var _ inventory.Mutex = (*Mutex)(nil)

func (m *Mutex) TryLock(ctx context.Context) (string, bool, error) {
	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, m.key, token, m.ttl).Result()
	if err != nil {
		return "", false, queueError(err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (m *Mutex) Unlock(ctx context.Context, token string) (bool, error) {
	n, err := releaseLockScript.Run(ctx, m.client, []string{m.key}, token).Int()
	if err != nil {
		return false, queueError(err)
	}
	return n == 1, nil
}
