package order

import (
	"context"

	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/domain/user"
	"github.com/xiebiao/b2b-order/pkg/retry"
)

// GetOrderUseCase 订单详情（含明细与状态记录）
type GetOrderUseCase struct {
	orders order.Repository
	users  user.Service
	policy retry.Policy
}

// NewGetOrderUseCase 创建订单查询用例
func NewGetOrderUseCase(orders order.Repository, users user.Service, opts Options) *GetOrderUseCase {
	return &GetOrderUseCase{orders: orders, users: users, policy: opts.Retry}
}

// Execute 买家只能查看自己的订单
func (uc *GetOrderUseCase) Execute(ctx context.Context, actor Actor, orderID uint) (*order.Order, error) {
	var o *order.Order
	err := retry.DoNotify(ctx, uc.policy, func(ctx context.Context) error {
		found, err := uc.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		o = found
		return nil
	}, retry.Observe("get_order"))
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		return o, nil
	}
	buyer, err := uc.users.Resolve(ctx, actor.ExternalID, actor.Email, actor.Name, actor.Role)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(buyer.ID) {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}
