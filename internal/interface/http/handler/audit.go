package handler

import (
	"github.com/gin-gonic/gin"

	auditapp "github.com/xiebiao/b2b-order/internal/application/audit"
	"github.com/xiebiao/b2b-order/internal/interface/http/dto"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/response"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// AuditHandler 审计日志查询处理器
type AuditHandler struct {
	listLogs *auditapp.ListLogsUseCase
}

// NewAuditHandler 创建审计处理器
func NewAuditHandler(listLogs *auditapp.ListLogsUseCase) *AuditHandler {
	return &AuditHandler{listLogs: listLogs}
}

// List 审计日志列表
// @Summary      审计日志列表
// @Description  按对象、动作、操作人、时间范围过滤，按时间倒序分页
// @Tags         审计模块
// @Produce      json
// @Security     BearerAuth
// @Param        entity_type query string false "ORDER | PRODUCT"
// @Param        entity_id   query int    false "对象ID"
// @Param        action      query string false "审计动作"
// @Param        user_id     query string false "操作人"
// @Param        from        query string false "开始时间（RFC3339）"
// @Param        to          query string false "结束时间（RFC3339）"
// @Param        page        query int    false "页码" default(1)
// @Param        page_size   query int    false "每页数量" default(20)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.AuditLogResponse}}
// @Failure      403 {object} response.Response "需要管理员权限"
// @Router       /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var req dto.ListAuditLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperrors.ErrInvalidParams.WithMessage("参数错误: "+err.Error()))
		return
	}
	if req.Page == 0 {
		req.Page = defaultPage
	}
	if req.PageSize == 0 {
		req.PageSize = defaultPageSize
	}

	entries, total, err := h.listLogs.Execute(c.Request.Context(), req.ToQuery())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPage(c, dto.ToAuditLogResponses(entries), total, req.Page, req.PageSize)
}
