// Package audit 审计日志
//
// 每一次订单或库存变更都在同一事务内写入一条审计记录：
// 事务回滚时审计记录一起回滚，不会出现“有记录无变更”或“有变更无记录”。
package audit

import (
	"context"
	"time"
)

// SystemUserID 自动化路径（队列worker、取消回补）使用的保留身份
const SystemUserID = "system"

// Action 审计动作
type Action string

const (
	ActionOrderCreate        Action = "ORDER_CREATE"
	ActionOrderStatusUpdate  Action = "ORDER_STATUS_UPDATE"
	ActionInventorySet       Action = "INVENTORY_SET"
	ActionInventoryIncrement Action = "INVENTORY_INCREMENT"
	ActionInventoryDecrement Action = "INVENTORY_DECREMENT"
)

// EntityType 审计对象类型
type EntityType string

const (
	EntityOrder   EntityType = "ORDER"
	EntityProduct EntityType = "PRODUCT"
)

// Values 变更前后的字段值
type Values map[string]any

// Entry 审计记录（只追加，不修改）
type Entry struct {
	ID         uint
	UserID     string
	Action     Action
	EntityType EntityType
	EntityID   uint
	OldValues  Values
	NewValues  Values
	Metadata   Values
	IP         string
	UserAgent  string
	CreatedAt  time.Time
}

// Source 发起变更的请求来源
type Source struct {
	UserID    string
	IP        string
	UserAgent string
}

// SystemSource 自动化路径的来源
var SystemSource = Source{UserID: SystemUserID}

// NewEntry 创建审计记录
func NewEntry(src Source, action Action, entityType EntityType, entityID uint, oldValues, newValues, metadata Values) *Entry {
	return &Entry{
		UserID:     src.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		Metadata:   metadata,
		IP:         src.IP,
		UserAgent:  src.UserAgent,
		CreatedAt:  time.Now(),
	}
}

// Query 审计查询条件（零值字段不过滤）
type Query struct {
	EntityType EntityType
	EntityID   uint
	Action     Action
	UserID     string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// Repository 审计仓储
type Repository interface {
	// Create 写入审计记录，在事务中调用时随事务提交
	Create(ctx context.Context, e *Entry) error
	// List 按条件分页查询，按创建时间倒序
	List(ctx context.Context, q Query) ([]*Entry, int64, error)
}
