package mysql

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/xiebiao/b2b-order/internal/domain/audit"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建审计仓储
func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, e *audit.Entry) error {
	model := &AuditLogModel{
		UserID:     e.UserID,
		Action:     string(e.Action),
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		OldValues:  toJSONMap(e.OldValues),
		NewValues:  toJSONMap(e.NewValues),
		Metadata:   toJSONMap(e.Metadata),
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.CreatedAt,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.WrapDB(err, "写入审计日志失败")
	}
	e.ID = model.ID
	return nil
}

// List 分页查询（非事务查询由dbresolver路由到只读副本）
func (r *auditRepository) List(ctx context.Context, q audit.Query) ([]*audit.Entry, int64, error) {
	page, pageSize := normalizePage(q.Page, q.PageSize)

	query := dbFromContext(ctx, r.db).Model(&AuditLogModel{})
	if q.EntityType != "" {
		query = query.Where("entity_type = ?", q.EntityType)
	}
	if q.EntityID > 0 {
		query = query.Where("entity_id = ?", q.EntityID)
	}
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}
	if q.UserID != "" {
		query = query.Where("user_id = ?", q.UserID)
	}
	if !q.From.IsZero() {
		query = query.Where("created_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		query = query.Where("created_at < ?", q.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.WrapDB(err, "统计审计日志失败")
	}

	var models []AuditLogModel
	err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.WrapDB(err, "查询审计日志失败")
	}

	entries := make([]*audit.Entry, len(models))
	for i, m := range models {
		entries[i] = &audit.Entry{
			ID:         m.ID,
			UserID:     m.UserID,
			Action:     audit.Action(m.Action),
			EntityType: audit.EntityType(m.EntityType),
			EntityID:   m.EntityID,
			OldValues:  audit.Values(m.OldValues),
			NewValues:  audit.Values(m.NewValues),
			Metadata:   audit.Values(m.Metadata),
			IP:         m.IP,
			UserAgent:  m.UserAgent,
			CreatedAt:  m.CreatedAt,
		}
	}
	return entries, total, nil
}

func toJSONMap(v audit.Values) datatypes.JSONMap {
	if v == nil {
		return nil
	}
	return datatypes.JSONMap(v)
}
