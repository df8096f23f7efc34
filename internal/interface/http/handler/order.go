package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	orderapp "github.com/xiebiao/b2b-order/internal/application/order"
	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/interface/http/dto"
	"github.com/xiebiao/b2b-order/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	placeOrder   *orderapp.PlaceOrderUseCase
	getOrder     *orderapp.GetOrderUseCase
	updateStatus *orderapp.UpdateStatusUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	placeOrder *orderapp.PlaceOrderUseCase,
	getOrder *orderapp.GetOrderUseCase,
	updateStatus *orderapp.UpdateStatusUseCase,
) *OrderHandler {
	return &OrderHandler{
		placeOrder:   placeOrder,
		getOrder:     getOrder,
		updateStatus: updateStatus,
	}
}

// PlaceOrder 下单
// @Summary      下单
// @Description  锁定商品行、校验库存与最低金额、创建订单并扣减库存，全部在一个事务内完成
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PlaceOrderRequest true "订单信息"
// @Success      200 {object} response.Response{data=dto.PlaceOrderResponse} "下单成功"
// @Failure      400 {object} response.Response "参数错误"
// @Failure      401 {object} response.Response "未登录"
// @Failure      404 {object} response.Response "商品不存在或已下架（details.missing_ids）"
// @Failure      409 {object} response.Response "库存不足（details.available/requested）"
// @Failure      422 {object} response.Response "未达到最低起订金额或数量超出范围"
// @Router       /orders [post]
//
// 并发说明：
// 同一商品的并发下单在SELECT ... FOR UPDATE上排队，
// 行锁按商品ID升序获取，多商品订单之间不会互相死锁。
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrInvalidParams.WithMessage("参数错误: "+err.Error()))
		return
	}

	items := make([]orderapp.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = orderapp.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	result, err := h.placeOrder.Execute(c.Request.Context(), orderapp.PlaceOrderRequest{
		Actor:           middleware.GetActor(c),
		Items:           items,
		ShippingAddress: req.ShippingAddress.ToShippingAddress(),
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		Memo:            req.Memo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.PlaceOrderResponse{
		Order:               dto.ToOrderResponse(result.Order),
		Buyer:               dto.ToBuyerResponse(result.Buyer),
		PaymentInstructions: result.PaymentInstructions,
	})
}

// GetOrder 订单详情
// @Summary      订单详情
// @Description  买家只能查看自己的订单，管理员可查看全部
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	o, err := h.getOrder.Execute(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// UpdateStatus 订单状态流转
// @Summary      订单状态流转
// @Description  管理员推进 PENDING→PAID→PREPARING→SHIPPED→DELIVERED；买家只能取消自己的订单
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Param        request body dto.UpdateOrderStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      403 {object} response.Response "无权限"
// @Failure      409 {object} response.Response "状态不允许此操作"
// @Failure      422 {object} response.Response "发货缺少物流单号"
// @Router       /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrInvalidParams.WithMessage("参数错误: "+err.Error()))
		return
	}

	o, err := h.updateStatus.Execute(c.Request.Context(), orderapp.UpdateStatusRequest{
		Actor:          middleware.GetActor(c),
		OrderID:        id,
		Status:         order.Status(req.Status),
		Reason:         req.Reason,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// parseID 解析路径参数:id，失败时直接写400响应
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.ErrInvalidParams.WithMessage("无效的ID"))
		return 0, false
	}
	return uint(id), true
}
