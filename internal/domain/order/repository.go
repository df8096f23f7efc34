package order

import (
	"context"
)

// Repository 订单仓储接口
type Repository interface {
	// Create 保存订单、明细与初始状态记录，回填ID
	// 必须在事务中调用
	Create(ctx context.Context, o *Order) error

	// ExistsByOrderNumber 订单号是否已存在
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// FindByID 查询订单（含明细与状态记录）
	FindByID(ctx context.Context, id uint) (*Order, error)

	// LockByID 加行锁查询订单（含明细），用于状态变更
	LockByID(ctx context.Context, id uint) (*Order, error)

	// UpdateStatus 写回状态并追加状态记录
	UpdateStatus(ctx context.Context, o *Order, h *StatusHistory) error
}
