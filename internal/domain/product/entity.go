package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status 商品状态
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusInactive   Status = "INACTIVE" // 人工下架，库存变化不会自动恢复
	StatusOutOfStock Status = "OUT_OF_STOCK"
)

// Product 商品（一个可售SKU）
// 设计说明：
// 1. Inventory是可售库存的唯一真相来源，只能通过下单和库存调整两条路径修改
// 2. Status随库存自动维护，INACTIVE除外
// 3. 价格使用int64（货币最小单位），避免浮点误差
type Product struct {
	ID                uint
	SKU               string
	Name              string
	Brand             string
	Inventory         int
	Status            Status
	BasePrice         int64
	MinOrderQuantity  int
	MaxOrderQuantity  int // 0表示不限
	LowStockThreshold int
	PriceTiers        []PriceTier
	UpdatedAt         time.Time
}

// PriceTier 阶梯价：订购数量达到MinQuantity时按DiscountRate折扣
// Role为空表示对所有买家生效
type PriceTier struct {
	MinQuantity  int             `json:"min_quantity"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Role         string          `json:"role,omitempty"`
}

// IsSellable 是否可下单（OUT_OF_STOCK仍然可见，库存校验会给出准确的错误）
func (p *Product) IsSellable() bool {
	return p.Status != StatusInactive
}

// SetInventory 设置库存并重新计算状态（负数按0处理）
func (p *Product) SetInventory(value int) {
	if value < 0 {
		value = 0
	}
	p.Inventory = value
	p.RecomputeStatus()
}

// Decrement 扣减库存
// 数量超过可用库存时返回ErrInsufficientInventory，库存不变
func (p *Product) Decrement(quantity int) error {
	if quantity > p.Inventory {
		return ErrInsufficientInventory(p.ID, p.Inventory, quantity)
	}
	p.SetInventory(p.Inventory - quantity)
	return nil
}

// RecomputeStatus 按库存维护状态
// - 库存为0 → OUT_OF_STOCK
// - 库存恢复为正且当前是OUT_OF_STOCK → ACTIVE
// - INACTIVE保持不变
func (p *Product) RecomputeStatus() {
	if p.Status == StatusInactive {
		return
	}
	if p.Inventory == 0 {
		p.Status = StatusOutOfStock
		return
	}
	if p.Status == StatusOutOfStock {
		p.Status = StatusActive
	}
}

// CheckQuantity 校验订购数量：不超过库存，且在起订量/限购量之间
func (p *Product) CheckQuantity(quantity int) error {
	if quantity > p.Inventory {
		return ErrInsufficientInventory(p.ID, p.Inventory, quantity)
	}
	if quantity < p.MinOrderQuantity || (p.MaxOrderQuantity > 0 && quantity > p.MaxOrderQuantity) {
		return ErrQuantityOutOfRange(p.ID, p.MinOrderQuantity, p.MaxOrderQuantity, quantity)
	}
	return nil
}

// IsLowStock 库存是否低于预警线
func (p *Product) IsLowStock() bool {
	return p.LowStockThreshold > 0 && p.Inventory <= p.LowStockThreshold
}
