// Package tx 定义事务边界
//
// 应用层只依赖Manager接口：fn返回错误时整个事务回滚，
// 仓储从ctx中取出事务连接，因此fn内的所有写操作原子提交。
package tx

import "context"

// Manager 事务管理器
type Manager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
