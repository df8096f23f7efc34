package order

import (
	"context"
	"time"

	inventoryapp "github.com/xiebiao/b2b-order/internal/application/inventory"
	"github.com/xiebiao/b2b-order/internal/domain/audit"
	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/domain/user"
)

// Actor 已认证的调用方（由认证中间件解析）
type Actor struct {
	ExternalID string
	Email      string
	Name       string
	Role       user.Role
	IP         string
	UserAgent  string
}

// IsAdmin 是否为管理员
func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

func (a Actor) source() audit.Source {
	return audit.Source{UserID: a.ExternalID, IP: a.IP, UserAgent: a.UserAgent}
}

// LowStockItem 下单后低于预警线的商品
type LowStockItem struct {
	ProductID uint   `json:"product_id"`
	SKU       string `json:"sku"`
	Inventory int    `json:"inventory"`
	Threshold int    `json:"threshold"`
}

// OrderPlacedEvent 新订单通知
type OrderPlacedEvent struct {
	OrderID       uint                `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uint                `json:"user_id"`
	TotalAmount   int64               `json:"total_amount"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
	LowStock      []LowStockItem      `json:"low_stock,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// StatusChangedEvent 订单状态变更通知
type StatusChangedEvent struct {
	OrderID        uint         `json:"order_id"`
	OrderNumber    string       `json:"order_number"`
	UserID         uint         `json:"user_id"`
	From           order.Status `json:"from"`
	To             order.Status `json:"to"`
	ActorID        string       `json:"actor_id"`
	Reason         string       `json:"reason,omitempty"`
	TrackingNumber string       `json:"tracking_number,omitempty"`
	OccurredAt     time.Time    `json:"occurred_at"`
}

// Notifier 通知分发（尽力而为，失败只记录日志）
type Notifier interface {
	NotifyOrderPlaced(ctx context.Context, e OrderPlacedEvent) error
	NotifyStatusChanged(ctx context.Context, e StatusChangedEvent) error
}

// RestockQueue 取消回补使用的库存任务入队
type RestockQueue interface {
	Enqueue(ctx context.Context, req inventoryapp.EnqueueRequest) (string, error)
}
