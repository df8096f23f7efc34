package user

import (
	"time"
)

// Role 买家角色（影响阶梯价）
type Role string

const (
	RoleBuyer Role = "BUYER"
	RoleVIP   Role = "VIP"
	RoleAdmin Role = "ADMIN"
)

// User 本地买家记录
// 设计说明：
// 1. 身份由外部认证服务签发，ExternalID即令牌的subject
// 2. 首次下单时自动创建，之后按ExternalID查找
// 3. Role以令牌为准，每次解析时同步
type User struct {
	ID         uint
	ExternalID string
	Email      string
	Name       string
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewUser 创建用户实体
func NewUser(externalID, email, name string, role Role) *User {
	now := time.Now()
	if role == "" {
		role = RoleBuyer
	}
	return &User{
		ExternalID: externalID,
		Email:      email,
		Name:       name,
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
