package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/b2b-order/internal/domain/product"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/metrics"
)

const (
	cacheProduct   = "product"
	cacheInventory = "inventory"
)

// ProductCache 商品读缓存（Cache-Aside）
// 设计说明：
// 1. 商品详情与库存视图分开缓存，库存TTL更短
// 2. 库存变更提交后删除两个key，下次读取回源
// 3. 缓存只服务读接口，下单永远以数据库行锁读取为准
type ProductCache struct {
	client       *redis.Client
	keys         keys
	productTTL   time.Duration
	inventoryTTL time.Duration
}

// NewProductCache 创建商品缓存
func NewProductCache(client *redis.Client, prefix string, productTTL, inventoryTTL time.Duration) *ProductCache {
	return &ProductCache{
		client:       client,
		keys:         keys{prefix: prefix},
		productTTL:   productTTL,
		inventoryTTL: inventoryTTL,
	}
}

var _ product.Cache = (*ProductCache)(nil)

func (c *ProductCache) GetProduct(ctx context.Context, id uint) (*product.Product, error) {
	var p product.Product
	ok, err := c.get(ctx, cacheProduct, c.keys.product(id), &p)
	if !ok || err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ProductCache) SetProduct(ctx context.Context, p *product.Product) error {
	return c.set(ctx, c.keys.product(p.ID), p, c.productTTL)
}

func (c *ProductCache) GetInventory(ctx context.Context, id uint) (*product.InventoryView, error) {
	var v product.InventoryView
	ok, err := c.get(ctx, cacheInventory, c.keys.inventory(id), &v)
	if !ok || err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *ProductCache) SetInventory(ctx context.Context, v *product.InventoryView) error {
	return c.set(ctx, c.keys.inventory(v.ProductID), v, c.inventoryTTL)
}

// InvalidateProducts 删除商品详情与库存缓存
func (c *ProductCache) InvalidateProducts(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids)*2)
	for _, id := range ids {
		keys = append(keys, c.keys.product(id), c.keys.inventory(id))
	}
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return cacheError(err, "删除商品缓存失败")
	}
	metrics.RecordCacheInvalidation(int(n))
	return nil
}

func (c *ProductCache) get(ctx context.Context, cache, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(cache, false)
		return false, nil
	}
	if err != nil {
		return false, cacheError(err, "读取缓存失败")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// 脏数据按未命中处理
		c.client.Del(ctx, key)
		metrics.RecordCacheLookup(cache, false)
		return false, nil
	}
	metrics.RecordCacheLookup(cache, true)
	return true, nil
}

func (c *ProductCache) set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, "序列化缓存失败")
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return cacheError(err, "写入缓存失败")
	}
	return nil
}

func cacheError(err error, message string) error {
	return &apperrors.AppError{
		Code:    apperrors.CodeCacheError,
		Status:  apperrors.ErrCacheError.Status,
		Message: message,
		Err:     err,
	}
}
