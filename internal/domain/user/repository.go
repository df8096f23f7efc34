package user

import (
	"context"
)

// Repository 用户仓储接口
// DDD设计说明：
// 1. 接口定义在domain层（依赖倒置原则）
// 2. 具体实现在infrastructure/persistence/mysql层
// 3. 便于单元测试（用内存实现替换）
type Repository interface {
	// FindOrCreateByExternalID 按ExternalID查找，不存在则创建
	// 并发首次下单时由唯一索引保证只创建一条
	FindOrCreateByExternalID(ctx context.Context, u *User) (*User, error)

	// FindByID 根据ID查找用户
	// 如果不存在，返回errors.ErrUserNotFound
	FindByID(ctx context.Context, id uint) (*User, error)
}
