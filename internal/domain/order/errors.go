package order

import (
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.ErrOrderNotFound

	// ErrTrackingNumberRequired 发货缺少物流单号
	ErrTrackingNumberRequired = apperrors.ErrTrackingNumberRequired

	// ErrNumberConflict 连续生成的订单号都已存在
	ErrNumberConflict = apperrors.ErrOrderNumberConflict

	// ErrEmptyItems 订单明细为空
	ErrEmptyItems = apperrors.ErrInvalidParams.WithMessage("订单明细不能为空")

	// ErrInvalidQuantity 购买数量不合法
	ErrInvalidQuantity = apperrors.ErrInvalidParams.WithMessage("购买数量必须大于0")
)

// ErrInvalidStatusTransition 非法的状态转换
func ErrInvalidStatusTransition(from, to Status) error {
	return apperrors.ErrInvalidStatusTransition.WithDetails(map[string]any{
		"from": from,
		"to":   to,
	})
}
