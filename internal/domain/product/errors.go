package product

import (
	"net/http"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// ErrNotFound 商品不存在（或已下架）
var ErrNotFound = apperrors.ErrProductNotFound

// ErrMissing 批量加载时缺失的商品
func ErrMissing(ids []uint) error {
	return apperrors.ErrProductNotFound.WithDetails(map[string]any{"missing_ids": ids})
}

// ErrInsufficientInventory 库存不足，携带可用与请求数量
func ErrInsufficientInventory(productID uint, available, requested int) error {
	return apperrors.ErrInsufficientInventory.WithDetails(map[string]any{
		"product_id": productID,
		"available":  available,
		"requested":  requested,
	})
}

// ErrQuantityOutOfRange 订购数量不在起订量/限购量之间
func ErrQuantityOutOfRange(productID uint, min, max, requested int) error {
	return apperrors.ErrQuantityOutOfRange.WithDetails(map[string]any{
		"product_id": productID,
		"min":        min,
		"max":        max,
		"requested":  requested,
	})
}

// ErrConcurrentUpdate 库存在读取后被修改（条件更新未命中）
var ErrConcurrentUpdate = apperrors.New(apperrors.CodeDatabaseError, http.StatusInternalServerError, "库存并发更新冲突")
