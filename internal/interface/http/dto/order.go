package dto

import (
	"time"

	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/domain/user"
)

// PlaceOrderRequest HTTP下单请求
// validator tag说明:
// - dive: 对切片中的每个元素继续校验
// - oneof: 枚举值
type PlaceOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" binding:"required,min=1,max=100,dive"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
	PaymentMethod   string                 `json:"payment_method" binding:"required,oneof=BANK_TRANSFER CARD" example:"BANK_TRANSFER"`
	Memo            string                 `json:"memo" binding:"max=500" example:"工作日送货"`
}

// OrderItemRequest 订单明细
type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required,min=1" example:"1"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=100000" example:"10"`
}

// ShippingAddressRequest 收货地址
type ShippingAddressRequest struct {
	Name          string `json:"name" binding:"required,max=100" example:"张三"`
	Phone         string `json:"phone" binding:"required,max=32" example:"13800000000"`
	Address       string `json:"address" binding:"required,max=255" example:"上海市浦东新区世纪大道100号"`
	AddressDetail string `json:"address_detail" binding:"max=255" example:"12楼"`
	ZipCode       string `json:"zip_code" binding:"required,max=16" example:"200120"`
}

// UpdateOrderStatusRequest 状态流转请求
type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required,oneof=PENDING PAID PREPARING SHIPPED DELIVERED CANCELLED" example:"SHIPPED"`
	Reason         string `json:"reason" binding:"max=255"`
	TrackingNumber string `json:"tracking_number" binding:"max=64" example:"SF1234567890"`
}

// OrderResponse 订单详情
type OrderResponse struct {
	ID              uint                    `json:"id"`
	OrderNumber     string                  `json:"order_number" example:"OD250315K7Q2ZP"`
	UserID          uint                    `json:"user_id"`
	Status          string                  `json:"status" example:"PENDING"`
	TotalAmount     int64                   `json:"total_amount" example:"100000"`
	ShippingAddress order.ShippingAddress   `json:"shipping_address"`
	PaymentMethod   string                  `json:"payment_method"`
	Memo            string                  `json:"memo,omitempty"`
	Items           []OrderItemResponse     `json:"items"`
	History         []StatusHistoryResponse `json:"history,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// OrderItemResponse 订单明细（下单时快照）
type OrderItemResponse struct {
	ProductID   uint   `json:"product_id"`
	SKU         string `json:"sku"`
	ProductName string `json:"product_name"`
	Brand       string `json:"brand,omitempty"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
	Subtotal    int64  `json:"subtotal"`
}

// StatusHistoryResponse 状态记录
type StatusHistoryResponse struct {
	FromStatus     string    `json:"from_status,omitempty"`
	ToStatus       string    `json:"to_status"`
	ActorID        string    `json:"actor_id"`
	Reason         string    `json:"reason,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// BuyerResponse 买家信息
type BuyerResponse struct {
	ID    uint      `json:"id"`
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
	Role  user.Role `json:"role"`
}

// PlaceOrderResponse 下单响应
type PlaceOrderResponse struct {
	Order               OrderResponse             `json:"order"`
	Buyer               *BuyerResponse            `json:"buyer,omitempty"`
	PaymentInstructions order.PaymentInstructions `json:"payment_instructions"`
}

// ToShippingAddress 转为领域对象
func (r ShippingAddressRequest) ToShippingAddress() order.ShippingAddress {
	return order.ShippingAddress{
		Name:          r.Name,
		Phone:         r.Phone,
		Address:       r.Address,
		AddressDetail: r.AddressDetail,
		ZipCode:       r.ZipCode,
	}
}

// ToOrderResponse 领域实体 → HTTP响应
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:   item.ProductID,
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Brand:       item.Brand,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Subtotal(),
		}
	}

	history := make([]StatusHistoryResponse, len(o.History))
	for i, h := range o.History {
		history[i] = StatusHistoryResponse{
			FromStatus:     string(h.FromStatus),
			ToStatus:       string(h.ToStatus),
			ActorID:        h.ActorID,
			Reason:         h.Reason,
			TrackingNumber: h.TrackingNumber,
			CreatedAt:      h.CreatedAt,
		}
	}

	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		Memo:            o.Memo,
		Items:           items,
		History:         history,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ToBuyerResponse 买家信息
func ToBuyerResponse(u *user.User) *BuyerResponse {
	if u == nil {
		return nil
	}
	return &BuyerResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
