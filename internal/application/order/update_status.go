package order

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	inventoryapp "github.com/xiebiao/b2b-order/internal/application/inventory"
	"github.com/xiebiao/b2b-order/internal/application/postcommit"
	"github.com/xiebiao/b2b-order/internal/domain/audit"
	"github.com/xiebiao/b2b-order/internal/domain/inventory"
	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/domain/tx"
	"github.com/xiebiao/b2b-order/internal/domain/user"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/metrics"
	"github.com/xiebiao/b2b-order/pkg/retry"
)

// UpdateStatusUseCase 订单状态流转
// 权限规则：
// 1. 管理员可以执行状态机允许的任意转换
// 2. 买家只能取消自己的订单
type UpdateStatusUseCase struct {
	txManager tx.Manager
	orders    order.Repository
	users     user.Service
	audits    audit.Repository
	notifier  Notifier
	restock   RestockQueue
	hooks     *postcommit.Runner
	opts      Options
	now       func() time.Time
}

// NewUpdateStatusUseCase 创建状态流转用例
func NewUpdateStatusUseCase(
	txManager tx.Manager,
	orders order.Repository,
	users user.Service,
	audits audit.Repository,
	notifier Notifier,
	restock RestockQueue,
	hooks *postcommit.Runner,
	opts Options,
) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{
		txManager: txManager,
		orders:    orders,
		users:     users,
		audits:    audits,
		notifier:  notifier,
		restock:   restock,
		hooks:     hooks,
		opts:      opts,
		now:       time.Now,
	}
}

// UpdateStatusRequest 状态流转请求
type UpdateStatusRequest struct {
	Actor          Actor
	OrderID        uint
	Status         order.Status
	Reason         string
	TrackingNumber string
}

// Execute 锁定订单行，校验并执行转换，写状态记录与审计
func (uc *UpdateStatusUseCase) Execute(ctx context.Context, req UpdateStatusRequest) (*order.Order, error) {
	if !req.Status.Valid() {
		return nil, apperrors.ErrInvalidParams.WithDetails(map[string]any{"status": req.Status})
	}
	if !req.Actor.IsAdmin() && req.Status != order.StatusCancelled {
		return nil, apperrors.ErrForbidden.WithMessage("买家只能取消订单")
	}

	var (
		updated *order.Order
		history *order.StatusHistory
	)
	err := retry.DoNotify(ctx, uc.opts.Retry, func(ctx context.Context) error {
		return uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
			o, err := uc.orders.LockByID(txCtx, req.OrderID)
			if err != nil {
				return err
			}

			if !req.Actor.IsAdmin() {
				buyer, err := uc.users.Resolve(txCtx, req.Actor.ExternalID, req.Actor.Email, req.Actor.Name, req.Actor.Role)
				if err != nil {
					return err
				}
				// 不暴露他人订单是否存在
				if !o.IsOwnedBy(buyer.ID) {
					return order.ErrOrderNotFound
				}
			}

			from := o.Status
			h, err := o.TransitionTo(req.Status, req.Actor.ExternalID, req.Reason, req.TrackingNumber, uc.now())
			if err != nil {
				return err
			}
			if err := uc.orders.UpdateStatus(txCtx, o, h); err != nil {
				return err
			}

			entry := audit.NewEntry(req.Actor.source(), audit.ActionOrderStatusUpdate, audit.EntityOrder, o.ID,
				audit.Values{"status": from},
				audit.Values{"status": o.Status, "tracking_number": h.TrackingNumber},
				audit.Values{"order_number": o.OrderNumber, "reason": h.Reason},
			)
			if err := uc.audits.Create(txCtx, entry); err != nil {
				return err
			}

			updated, history = o, h
			return nil
		})
	}, retry.Observe("update_order_status"))
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(history.FromStatus), string(history.ToStatus))
	log.WithFields(log.Fields{
		"order_number": updated.OrderNumber,
		"from":         history.FromStatus,
		"to":           history.ToStatus,
		"actor":        history.ActorID,
	}).Info("订单状态已更新")

	uc.hooks.Run(ctx, uc.afterCommit(updated, history)...)
	return updated, nil
}

func (uc *UpdateStatusUseCase) afterCommit(o *order.Order, h *order.StatusHistory) []postcommit.Hook {
	var hooks []postcommit.Hook

	// 取消回补：每个明细一个increment任务，由队列worker串行执行
	if h.ToStatus == order.StatusCancelled && uc.opts.RestockOnCancel && uc.restock != nil {
		orderID := o.ID
		items := o.Items
		hooks = append(hooks, postcommit.Hook{
			Name:     "restock_on_cancel",
			Detached: true,
			Fn: func(ctx context.Context) error {
				for _, item := range items {
					_, err := uc.restock.Enqueue(ctx, inventoryapp.EnqueueRequest{
						ProductID: item.ProductID,
						Operation: inventory.OpIncrement,
						Value:     item.Quantity,
						OrderID:   &orderID,
						Reason:    "order cancelled",
					})
					if err != nil {
						return err
					}
				}
				return nil
			},
		})
	}

	if uc.notifier != nil {
		event := StatusChangedEvent{
			OrderID:        o.ID,
			OrderNumber:    o.OrderNumber,
			UserID:         o.UserID,
			From:           h.FromStatus,
			To:             h.ToStatus,
			ActorID:        h.ActorID,
			Reason:         h.Reason,
			TrackingNumber: h.TrackingNumber,
			OccurredAt:     h.CreatedAt,
		}
		hooks = append(hooks, postcommit.Hook{
			Name:  "notify_status_changed",
			Async: true,
			Fn: func(ctx context.Context) error {
				return uc.notifier.NotifyStatusChanged(ctx, event)
			},
		})
	}
	return hooks
}
