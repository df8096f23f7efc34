package dto

import (
	"time"

	"github.com/xiebiao/b2b-order/internal/domain/product"
)

// ProductResponse 商品详情
type ProductResponse struct {
	ID                uint                `json:"id"`
	SKU               string              `json:"sku" example:"TN-A4-80G"`
	Name              string              `json:"name" example:"A4复印纸 80g"`
	Brand             string              `json:"brand,omitempty"`
	Inventory         int                 `json:"inventory"`
	Status            string              `json:"status" example:"ACTIVE"`
	BasePrice         int64               `json:"base_price" example:"10000"`
	MinOrderQuantity  int                 `json:"min_order_quantity"`
	MaxOrderQuantity  int                 `json:"max_order_quantity"`
	LowStockThreshold int                 `json:"low_stock_threshold"`
	PriceTiers        []product.PriceTier `json:"price_tiers,omitempty"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// ToProductResponse 领域实体 → HTTP响应
func ToProductResponse(p *product.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Brand:             p.Brand,
		Inventory:         p.Inventory,
		Status:            string(p.Status),
		BasePrice:         p.BasePrice,
		MinOrderQuantity:  p.MinOrderQuantity,
		MaxOrderQuantity:  p.MaxOrderQuantity,
		LowStockThreshold: p.LowStockThreshold,
		PriceTiers:        p.PriceTiers,
		UpdatedAt:         p.UpdatedAt,
	}
}
