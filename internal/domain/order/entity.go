package order

import (
	"time"
)

// Status 订单状态
type Status string

const (
	StatusPending   Status = "PENDING"   // 待支付
	StatusPaid      Status = "PAID"      // 已支付
	StatusPreparing Status = "PREPARING" // 备货中
	StatusShipped   Status = "SHIPPED"   // 已发货
	StatusDelivered Status = "DELIVERED" // 已签收（终态）
	StatusCancelled Status = "CANCELLED" // 已取消（终态）
)

// transitions 状态机
// PENDING → PAID → PREPARING → SHIPPED → DELIVERED
// 除DELIVERED和CANCELLED外，任何状态都可以取消
var transitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Valid 是否是已知状态
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCard         PaymentMethod = "CARD"
)

// Valid 是否是支持的支付方式
func (m PaymentMethod) Valid() bool {
	return m == PaymentBankTransfer || m == PaymentCard
}

// ShippingAddress 收货地址（值对象）
type ShippingAddress struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	AddressDetail string `json:"address_detail,omitempty"`
	ZipCode       string `json:"zip_code"`
}

// Order 订单聚合根
// 设计说明：
// 1. TotalAmount在创建时计算一次，之后不再重算
// 2. Items保存价格快照，商品改价不影响历史订单
// 3. 创建后只允许通过状态机修改Status
type Order struct {
	ID              uint
	OrderNumber     string
	UserID          uint
	Status          Status
	TotalAmount     int64
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	Memo            string
	Items           []Item
	History         []StatusHistory
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item 订单明细
type Item struct {
	ID          uint
	OrderID     uint
	ProductID   uint
	SKU         string
	ProductName string
	Brand       string
	Quantity    int
	Price       int64 // 下单时的单价快照
}

// Subtotal 明细小计
func (i Item) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// StatusHistory 状态变更记录
type StatusHistory struct {
	ID             uint
	OrderID        uint
	FromStatus     Status // 创建时为空
	ToStatus       Status
	ActorID        string
	Reason         string
	TrackingNumber string
	CreatedAt      time.Time
}

// NewOrder 创建订单（待支付）并写入初始状态记录
func NewOrder(orderNumber string, userID uint, items []Item, address ShippingAddress, method PaymentMethod, memo, actorID string, now time.Time) *Order {
	o := &Order{
		OrderNumber:     orderNumber,
		UserID:          userID,
		Status:          StatusPending,
		ShippingAddress: address,
		PaymentMethod:   method,
		Memo:            memo,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.TotalAmount = o.CalculateTotal()
	o.History = []StatusHistory{{
		ToStatus:  StatusPending,
		ActorID:   actorID,
		CreatedAt: now,
	}}
	return o
}

// CalculateTotal Σ(单价 × 数量)
func (o *Order) CalculateTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// CanTransitionTo 检查状态转换是否合法
func (o *Order) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[o.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo 执行状态转换并返回需要持久化的历史记录
// 进入SHIPPED必须提供物流单号
func (o *Order) TransitionTo(target Status, actorID, reason, trackingNumber string, now time.Time) (*StatusHistory, error) {
	if !o.CanTransitionTo(target) {
		return nil, ErrInvalidStatusTransition(o.Status, target)
	}
	if target == StatusShipped && trackingNumber == "" {
		return nil, ErrTrackingNumberRequired
	}

	h := StatusHistory{
		OrderID:        o.ID,
		FromStatus:     o.Status,
		ToStatus:       target,
		ActorID:        actorID,
		Reason:         reason,
		TrackingNumber: trackingNumber,
		CreatedAt:      now,
	}

	o.Status = target
	o.UpdatedAt = now
	o.History = append(o.History, h)
	return &h, nil
}

// IsOwnedBy 检查订单是否属于指定用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// ProductIDs 订单涉及的商品ID
func (o *Order) ProductIDs() []uint {
	ids := make([]uint, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
