package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/xiebiao/b2b-order/internal/domain/order"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
// 教学要点:
// 1. Order、OrderItem、初始状态记录是一个聚合,必须一起保存
// 2. 查询时使用Preload预加载明细,避免N+1问题
// 3. 订单读取固定走主库,下单后立即查询不受副本延迟影响
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单
// GORM会自动保存关联的Items和History
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return order.ErrNumberConflict
		}
		return apperrors.WrapDB(err, "创建订单失败")
	}

	// 回填自增ID
	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	for i := range o.History {
		o.History[i].ID = model.History[i].ID
		o.History[i].OrderID = model.ID
	}
	return nil
}

func (r *orderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&OrderModel{}).Where("order_number = ?", orderNumber).Count(&count).Error
	if err != nil {
		return false, apperrors.WrapDB(err, "查询订单号失败")
	}
	return count > 0, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := r.getDB(ctx).
		Clauses(dbresolver.Write).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.WrapDB(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// LockByID 加行锁读取订单（必须在事务中调用）
func (r *orderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := r.getDB(ctx).
		Clauses(forUpdate).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.WrapDB(err, "锁定订单失败")
	}
	return toOrderEntity(&model), nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, o *order.Order, h *order.StatusHistory) error {
	db := r.getDB(ctx)

	result := db.Model(&OrderModel{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
		"status":     string(o.Status),
		"updated_at": o.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.WrapDB(result.Error, "更新订单状态失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}

	hm := toHistoryModel(o.ID, h)
	if err := db.Create(&hm).Error; err != nil {
		return apperrors.WrapDB(err, "写入状态记录失败")
	}
	h.ID = hm.ID
	return nil
}

func (r *orderRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// =========================================
// 领域实体 ↔ GORM模型
// =========================================

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:          item.ID,
			OrderID:     o.ID,
			ProductID:   item.ProductID,
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Brand:       item.Brand,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	history := make([]OrderStatusHistoryModel, len(o.History))
	for i := range o.History {
		history[i] = toHistoryModel(o.ID, &o.History[i])
	}

	return &OrderModel{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount,
		ShipName:      o.ShippingAddress.Name,
		ShipPhone:     o.ShippingAddress.Phone,
		ShipAddress:   o.ShippingAddress.Address,
		ShipDetail:    o.ShippingAddress.AddressDetail,
		ShipZipCode:   o.ShippingAddress.ZipCode,
		PaymentMethod: string(o.PaymentMethod),
		Memo:          o.Memo,
		Items:         items,
		History:       history,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toHistoryModel(orderID uint, h *order.StatusHistory) OrderStatusHistoryModel {
	return OrderStatusHistoryModel{
		ID:             h.ID,
		OrderID:        orderID,
		FromStatus:     string(h.FromStatus),
		ToStatus:       string(h.ToStatus),
		ActorID:        h.ActorID,
		Reason:         h.Reason,
		TrackingNumber: h.TrackingNumber,
		CreatedAt:      h.CreatedAt,
	}
}

func toOrderEntity(m *OrderModel) *order.Order {
	items := make([]order.Item, len(m.Items))
	for i, item := range m.Items {
		items[i] = order.Item{
			ID:          item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Brand:       item.Brand,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	history := make([]order.StatusHistory, len(m.History))
	for i, h := range m.History {
		history[i] = order.StatusHistory{
			ID:             h.ID,
			OrderID:        h.OrderID,
			FromStatus:     order.Status(h.FromStatus),
			ToStatus:       order.Status(h.ToStatus),
			ActorID:        h.ActorID,
			Reason:         h.Reason,
			TrackingNumber: h.TrackingNumber,
			CreatedAt:      h.CreatedAt,
		}
	}

	return &order.Order{
		ID:          m.ID,
		OrderNumber: m.OrderNumber,
		UserID:      m.UserID,
		Status:      order.Status(m.Status),
		TotalAmount: m.TotalAmount,
		ShippingAddress: order.ShippingAddress{
			Name:          m.ShipName,
			Phone:         m.ShipPhone,
			Address:       m.ShipAddress,
			AddressDetail: m.ShipDetail,
			ZipCode:       m.ShipZipCode,
		},
		PaymentMethod: order.PaymentMethod(m.PaymentMethod),
		Memo:          m.Memo,
		Items:         items,
		History:       history,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
