package dto

import (
	"time"

	"github.com/xiebiao/b2b-order/internal/domain/audit"
)

// ListAuditLogsRequest 审计日志查询参数（Query String）
type ListAuditLogsRequest struct {
	EntityType string    `form:"entity_type" binding:"omitempty,oneof=ORDER PRODUCT"`
	EntityID   uint      `form:"entity_id"`
	Action     string    `form:"action" binding:"omitempty,oneof=ORDER_CREATE ORDER_STATUS_UPDATE INVENTORY_SET INVENTORY_INCREMENT INVENTORY_DECREMENT"`
	UserID     string    `form:"user_id" binding:"max=64"`
	From       time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page       int       `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize   int       `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// ToQuery 转为领域查询条件
func (r ListAuditLogsRequest) ToQuery() audit.Query {
	return audit.Query{
		EntityType: audit.EntityType(r.EntityType),
		EntityID:   r.EntityID,
		Action:     audit.Action(r.Action),
		UserID:     r.UserID,
		From:       r.From,
		To:         r.To,
		Page:       r.Page,
		PageSize:   r.PageSize,
	}
}

// AuditLogResponse 审计记录
type AuditLogResponse struct {
	ID         uint         `json:"id"`
	UserID     string       `json:"user_id"`
	Action     string       `json:"action"`
	EntityType string       `json:"entity_type"`
	EntityID   uint         `json:"entity_id"`
	OldValues  audit.Values `json:"old_values,omitempty"`
	NewValues  audit.Values `json:"new_values,omitempty"`
	Metadata   audit.Values `json:"metadata,omitempty"`
	IP         string       `json:"ip,omitempty"`
	UserAgent  string       `json:"user_agent,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ToAuditLogResponses 批量转换
func ToAuditLogResponses(entries []*audit.Entry) []AuditLogResponse {
	list := make([]AuditLogResponse, len(entries))
	for i, e := range entries {
		list[i] = AuditLogResponse{
			ID:         e.ID,
			UserID:     e.UserID,
			Action:     string(e.Action),
			EntityType: string(e.EntityType),
			EntityID:   e.EntityID,
			OldValues:  e.OldValues,
			NewValues:  e.NewValues,
			Metadata:   e.Metadata,
			IP:         e.IP,
			UserAgent:  e.UserAgent,
			CreatedAt:  e.CreatedAt,
		}
	}
	return list
}
