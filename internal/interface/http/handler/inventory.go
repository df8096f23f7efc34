package handler

import (
	"github.com/gin-gonic/gin"

	inventoryapp "github.com/xiebiao/b2b-order/internal/application/inventory"
	"github.com/xiebiao/b2b-order/internal/domain/inventory"
	"github.com/xiebiao/b2b-order/internal/interface/http/dto"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/response"
)

// InventoryHandler 库存调整HTTP处理器
type InventoryHandler struct {
	queue *inventoryapp.AdjustmentQueue
}

// NewInventoryHandler 创建库存处理器
func NewInventoryHandler(queue *inventoryapp.AdjustmentQueue) *InventoryHandler {
	return &InventoryHandler{queue: queue}
}

// EnqueueJob 提交库存调整任务
// @Summary      提交库存调整任务
// @Description  任务入队后立即返回202，由持有分布式锁的worker按入队顺序应用
// @Tags         库存模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.EnqueueInventoryJobRequest true "调整任务"
// @Success      202 {object} response.Response{data=dto.EnqueueInventoryJobResponse}
// @Failure      400 {object} response.Response "任务参数错误"
// @Failure      403 {object} response.Response "需要管理员权限"
// @Failure      503 {object} response.Response "队列不可用"
// @Router       /inventory/jobs [post]
func (h *InventoryHandler) EnqueueJob(c *gin.Context) {
	var req dto.EnqueueInventoryJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.ErrInvalidParams.WithMessage("参数错误: "+err.Error()))
		return
	}

	jobID, err := h.queue.Enqueue(c.Request.Context(), inventoryapp.EnqueueRequest{
		ProductID: req.ProductID,
		Operation: inventory.Operation(req.Operation),
		Value:     *req.Value,
		OrderID:   req.OrderID,
		Reason:    req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.EnqueueInventoryJobResponse{JobID: jobID})
}
