package order

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xiebiao/b2b-order/internal/application/postcommit"
	"github.com/xiebiao/b2b-order/internal/domain/audit"
	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/domain/product"
	"github.com/xiebiao/b2b-order/internal/domain/tx"
	"github.com/xiebiao/b2b-order/internal/domain/user"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/metrics"
	"github.com/xiebiao/b2b-order/pkg/retry"
	"github.com/xiebiao/b2b-order/pkg/tracing"
)

// Options 下单相关的平台配置
type Options struct {
	MinAmount       int64             // 最低订单金额
	NumberPrefix    string            // 订单号前缀（两位字母）
	BankAccount     order.BankAccount // 对公转账收款账户
	DueDays         int               // 对公转账付款期限（天）
	RestockOnCancel bool              // 取消时自动回补库存
	Retry           retry.Policy
}

// PlaceOrderUseCase 下单用例
// 教学要点：这是整个项目最核心的用例
// 涉及：事务处理、并发控制、业务规则校验、提交后副作用
type PlaceOrderUseCase struct {
	txManager tx.Manager
	products  product.Repository
	orders    order.Repository
	users     user.Service
	audits    audit.Repository
	cache     product.CacheInvalidator
	notifier  Notifier
	hooks     *postcommit.Runner
	opts      Options
	now       func() time.Time
}

// NewPlaceOrderUseCase 创建下单用例
func NewPlaceOrderUseCase(
	txManager tx.Manager,
	products product.Repository,
	orders order.Repository,
	users user.Service,
	audits audit.Repository,
	cache product.CacheInvalidator,
	notifier Notifier,
	hooks *postcommit.Runner,
	opts Options,
) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		txManager: txManager,
		products:  products,
		orders:    orders,
		users:     users,
		audits:    audits,
		cache:     cache,
		notifier:  notifier,
		hooks:     hooks,
		opts:      opts,
		now:       time.Now,
	}
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	Actor           Actor
	Items           []ItemRequest
	ShippingAddress order.ShippingAddress
	PaymentMethod   order.PaymentMethod
	Memo            string
}

// ItemRequest 订单明细项
type ItemRequest struct {
	ProductID uint
	Quantity  int
}

// PlaceOrderResponse 下单结果
type PlaceOrderResponse struct {
	Order               *order.Order
	Buyer               *user.User
	PaymentInstructions order.PaymentInstructions
}

// placement 事务内产生、提交后钩子需要的数据
type placement struct {
	order    *order.Order
	buyer    *user.User
	lowStock []LowStockItem
}

// Execute 执行下单
//
// 核心问题：库存超卖
// 场景：商品库存10个，100人同时下单
// 错误实现：先查库存、判断够不够、再扣减，100个请求都能通过判断
//
// 正确实现：悲观锁
//  1. SELECT FOR UPDATE 按id升序锁定所有商品行
//  2. 锁内校验库存、起订量，计算价格
//  3. 创建订单、扣减库存、写审计
//  4. COMMIT释放锁，之后才执行缓存失效和通知
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, req PlaceOrderRequest) (resp *PlaceOrderResponse, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "order.PlaceOrder")
	defer func() {
		tracing.End(span, err)
		if err != nil {
			metrics.RecordOrderFailed(errorCode(err))
		}
	}()

	// 1. 参数校验（不开事务）
	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, apperrors.ErrInvalidParams.WithDetails(map[string]any{"payment_method": req.PaymentMethod})
	}

	// 2. 事务（瞬时故障整体重试，业务错误立即返回）
	var result *placement
	err = retry.DoNotify(ctx, uc.opts.Retry, func(ctx context.Context) error {
		p, err := uc.place(ctx, req, items)
		if err != nil {
			return err
		}
		result = p
		return nil
	}, retry.Observe("place_order"))
	if err != nil {
		return nil, err
	}

	o := result.order
	metrics.RecordOrderPlaced(time.Since(start))
	log.WithFields(log.Fields{
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"total":        o.TotalAmount,
		"items":        len(o.Items),
	}).Info("订单创建成功")

	// 3. 提交后副作用
	uc.hooks.Run(ctx, uc.afterCommit(result)...)

	return &PlaceOrderResponse{
		Order:               o,
		Buyer:               result.buyer,
		PaymentInstructions: order.NewPaymentInstructions(o, uc.opts.BankAccount, uc.opts.DueDays),
	}, nil
}

func (uc *PlaceOrderUseCase) place(ctx context.Context, req PlaceOrderRequest, items []ItemRequest) (*placement, error) {
	var result *placement
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// ========================================
		// 步骤1：锁定商品（按id升序，避免死锁）
		// ========================================
		ids := make([]uint, len(items))
		for i, item := range items {
			ids[i] = item.ProductID
		}
		locked, err := uc.products.LockSellableByIDs(txCtx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint]*product.Product, len(locked))
		for _, p := range locked {
			byID[p.ID] = p
		}
		if missing := missingIDs(ids, byID); len(missing) > 0 {
			return product.ErrMissing(missing)
		}

		// ========================================
		// 步骤2-3：锁内校验数量，计算阶梯价并快照
		// ========================================
		orderItems := make([]order.Item, len(items))
		for i, item := range items {
			p := byID[item.ProductID]
			if err := p.CheckQuantity(item.Quantity); err != nil {
				return err
			}
			orderItems[i] = order.Item{
				ProductID:   p.ID,
				SKU:         p.SKU,
				ProductName: p.Name,
				Brand:       p.Brand,
				Quantity:    item.Quantity,
				Price:       product.UnitPrice(p, item.Quantity, string(req.Actor.Role)),
			}
		}

		// ========================================
		// 步骤4：最低订单金额
		// ========================================
		var total int64
		for _, item := range orderItems {
			total += item.Subtotal()
		}
		if total < uc.opts.MinAmount {
			return apperrors.ErrMinAmountNotMet.WithDetails(map[string]any{
				"total":      total,
				"min_amount": uc.opts.MinAmount,
			})
		}

		// ========================================
		// 步骤5：解析买家
		// ========================================
		buyer, err := uc.users.Resolve(txCtx, req.Actor.ExternalID, req.Actor.Email, req.Actor.Name, req.Actor.Role)
		if err != nil {
			return err
		}

		// ========================================
		// 步骤6：生成订单号并保存订单
		// ========================================
		now := uc.now()
		number, err := uc.generateNumber(txCtx, now)
		if err != nil {
			return err
		}
		o := order.NewOrder(number, buyer.ID, orderItems, req.ShippingAddress, req.PaymentMethod, req.Memo, req.Actor.ExternalID, now)
		if err := uc.orders.Create(txCtx, o); err != nil {
			return err
		}

		// ========================================
		// 步骤7：扣减库存，每个商品一条审计
		// ========================================
		src := req.Actor.source()
		var lowStock []LowStockItem
		for _, item := range items {
			p := byID[item.ProductID]
			oldInventory, oldStatus := p.Inventory, p.Status
			if err := p.Decrement(item.Quantity); err != nil {
				return err
			}
			if err := uc.products.UpdateInventory(txCtx, p, oldInventory); err != nil {
				return err
			}

			entry := audit.NewEntry(src, audit.ActionInventoryDecrement, audit.EntityProduct, p.ID,
				audit.Values{"inventory": oldInventory, "status": oldStatus},
				audit.Values{"inventory": p.Inventory, "status": p.Status},
				audit.Values{"order_id": o.ID, "order_number": o.OrderNumber, "quantity": item.Quantity},
			)
			if err := uc.audits.Create(txCtx, entry); err != nil {
				return err
			}

			if p.IsLowStock() {
				lowStock = append(lowStock, LowStockItem{
					ProductID: p.ID,
					SKU:       p.SKU,
					Inventory: p.Inventory,
					Threshold: p.LowStockThreshold,
				})
			}
		}

		// ========================================
		// 步骤8：订单创建审计
		// ========================================
		entry := audit.NewEntry(src, audit.ActionOrderCreate, audit.EntityOrder, o.ID, nil,
			audit.Values{
				"order_number":   o.OrderNumber,
				"status":         o.Status,
				"total_amount":   o.TotalAmount,
				"payment_method": o.PaymentMethod,
				"item_count":     len(o.Items),
			},
			audit.Values{"user_id": buyer.ID},
		)
		if err := uc.audits.Create(txCtx, entry); err != nil {
			return err
		}

		result = &placement{order: o, buyer: buyer, lowStock: lowStock}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// generateNumber 在事务内生成未被占用的订单号
// 唯一索引兜底：检查与插入之间的并发冲突由Create返回ErrNumberConflict
func (uc *PlaceOrderUseCase) generateNumber(ctx context.Context, now time.Time) (string, error) {
	for i := 0; i < order.MaxNumberAttempts; i++ {
		number := order.GenerateOrderNumber(uc.opts.NumberPrefix, now)
		exists, err := uc.orders.ExistsByOrderNumber(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
		log.WithField("order_number", number).Warn("订单号冲突，重新生成")
	}
	return "", order.ErrNumberConflict
}

func (uc *PlaceOrderUseCase) afterCommit(p *placement) []postcommit.Hook {
	o := p.order
	hooks := []postcommit.Hook{{
		Name: "invalidate_product_cache",
		Fn: func(ctx context.Context) error {
			return uc.cache.InvalidateProducts(ctx, o.ProductIDs()...)
		},
	}}

	if uc.notifier != nil {
		event := OrderPlacedEvent{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			UserID:        o.UserID,
			TotalAmount:   o.TotalAmount,
			PaymentMethod: o.PaymentMethod,
			ItemCount:     len(o.Items),
			LowStock:      p.lowStock,
			OccurredAt:    o.CreatedAt,
		}
		hooks = append(hooks, postcommit.Hook{
			Name:  "notify_order_placed",
			Async: true,
			Fn: func(ctx context.Context) error {
				return uc.notifier.NotifyOrderPlaced(ctx, event)
			},
		})
	}
	return hooks
}

// mergeItems 校验明细并合并重复商品，结果按商品id升序
func mergeItems(items []ItemRequest) ([]ItemRequest, error) {
	if len(items) == 0 {
		return nil, order.ErrEmptyItems
	}

	quantities := make(map[uint]int, len(items))
	for _, item := range items {
		if item.ProductID == 0 {
			return nil, apperrors.ErrInvalidParams.WithMessage("商品ID不能为空")
		}
		if item.Quantity <= 0 {
			return nil, order.ErrInvalidQuantity
		}
		quantities[item.ProductID] += item.Quantity
	}

	merged := make([]ItemRequest, 0, len(quantities))
	for id, qty := range quantities {
		merged = append(merged, ItemRequest{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}

func missingIDs(ids []uint, found map[uint]*product.Product) []uint {
	var missing []uint
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func errorCode(err error) string {
	return apperrors.GetAppError(err).Code
}
