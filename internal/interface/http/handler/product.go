package handler

import (
	"github.com/gin-gonic/gin"

	productapp "github.com/xiebiao/b2b-order/internal/application/product"
	"github.com/xiebiao/b2b-order/internal/interface/http/dto"
	"github.com/xiebiao/b2b-order/pkg/response"
)

// ProductHandler 商品查询处理器（读缓存）
type ProductHandler struct {
	query *productapp.QueryService
}

// NewProductHandler 创建商品处理器
func NewProductHandler(query *productapp.QueryService) *ProductHandler {
	return &ProductHandler{query: query}
}

// GetProduct 商品详情
// @Summary      商品详情
// @Tags         商品模块
// @Produce      json
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response{data=dto.ProductResponse}
// @Failure      404 {object} response.Response "商品不存在"
// @Router       /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p, err := h.query.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProductResponse(p))
}

// GetInventory 商品库存
// @Summary      商品库存
// @Description  短TTL缓存，展示用；下单时以数据库行锁下的库存为准
// @Tags         商品模块
// @Produce      json
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response{data=product.InventoryView}
// @Failure      404 {object} response.Response "商品不存在"
// @Router       /products/{id}/inventory [get]
func (h *ProductHandler) GetInventory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	view, err := h.query.GetInventory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, view)
}
