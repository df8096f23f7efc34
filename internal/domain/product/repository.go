package product

import (
	"context"
	"time"
)

// Repository 商品仓储接口
// 写路径（Lock*、UpdateInventory）必须在事务中调用，走主库
type Repository interface {
	// LockSellableByIDs 加行锁读取非INACTIVE的商品（SELECT ... FOR UPDATE）
	// 按id升序加锁，多商品订单之间不会互相死锁
	LockSellableByIDs(ctx context.Context, ids []uint) ([]*Product, error)

	// LockByID 加行锁读取单个商品（不过滤状态）
	LockByID(ctx context.Context, id uint) (*Product, error)

	// FindByID 只读查询，允许走只读副本
	FindByID(ctx context.Context, id uint) (*Product, error)

	// UpdateInventory 写回库存与状态
	// 仅当数据库中的库存仍为expected时更新，否则返回ErrConcurrentUpdate
	UpdateInventory(ctx context.Context, p *Product, expected int) error
}

// CacheInvalidator 商品读缓存失效
type CacheInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...uint) error
}

// InventoryView 库存读模型（短TTL缓存）
type InventoryView struct {
	ProductID uint      `json:"product_id"`
	Inventory int       `json:"inventory"`
	Status    Status    `json:"status"`
	LowStock  bool      `json:"low_stock"`
	AsOf      time.Time `json:"as_of"`
}

// Cache 商品读缓存
// Get*未命中时返回(nil, nil)
type Cache interface {
	CacheInvalidator
	GetProduct(ctx context.Context, id uint) (*Product, error)
	SetProduct(ctx context.Context, p *Product) error
	GetInventory(ctx context.Context, id uint) (*InventoryView, error)
	SetInventory(ctx context.Context, v *InventoryView) error
}
