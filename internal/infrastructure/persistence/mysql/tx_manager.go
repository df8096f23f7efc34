package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// txKey 事务在context中的key
type txKey struct{}

// TxManager 事务管理器
// 设计说明：
// 1. 事务*gorm.DB放入context，仓储通过getDB取出，业务代码不感知GORM
// 2. 每次事务有独立的超时（跨地域部署时主库延迟较高，超时需要足够宽松）
// 3. 超时返回TRANSACTION_TIMEOUT，重试器不会重试
type TxManager struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewTxManager 创建事务管理器，timeout<=0表示不限制
func NewTxManager(db *gorm.DB, timeout time.Duration) *TxManager {
	return &TxManager{db: db, timeout: timeout}
}

// Transaction 在事务中执行fn
// fn返回错误或panic时回滚
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	err := m.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(txCtx, txKey{}, tx))
	})
	if err == nil {
		return nil
	}

	// 事务自身超时（而不是调用方取消）
	if errors.Is(txCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return timeoutError(err)
	}
	return err
}

func timeoutError(cause error) error {
	return &apperrors.AppError{
		Code:    apperrors.CodeTransactionTimeout,
		Status:  apperrors.ErrTransactionTimeout.Status,
		Message: apperrors.ErrTransactionTimeout.Message,
		Err:     fmt.Errorf("%w: %v", context.DeadlineExceeded, cause),
	}
}

// dbFromContext 优先使用context中的事务
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
