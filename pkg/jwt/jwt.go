package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// 角色
const (
	RoleBuyer = "BUYER"
	RoleVIP   = "VIP"
	RoleAdmin = "ADMIN"
)

// Manager JWT管理器
// 设计说明：
// 1. 令牌由外部身份服务签发，本服务只负责校验
// 2. Subject即外部用户ID，下单时据此查找或创建本地用户
// 3. Issue仅用于测试与运维工具
type Manager struct {
	secret string
	issuer string
}

// NewManager 创建JWT管理器
func NewManager(secret, issuer string) *Manager {
	return &Manager{
		secret: secret,
		issuer: issuer,
	}
}

// Claims 自定义JWT Claims
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Principal 已认证的调用方
type Principal struct {
	ExternalID string
	Email      string
	Name       string
	Role       string
}

// IsAdmin 是否管理员
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Principal 从Claims提取调用方信息（角色缺省为BUYER）
func (c *Claims) Principal() Principal {
	role := c.Role
	if role == "" {
		role = RoleBuyer
	}
	return Principal{
		ExternalID: c.Subject,
		Email:      c.Email,
		Name:       c.Name,
		Role:       role,
	}
}

// Issue 签发令牌
func (m *Manager) Issue(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   p.ExternalID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", apperrors.Wrap(err, "签发令牌失败")
	}
	return signed, nil
}

// ParseToken 解析并验证Token
// 学习要点：
// 1. 验证签名（防止伪造）
// 2. 验证过期时间（exp）与生效时间（nbf）
// 3. Subject不能为空
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrAuthenticationInvalid.WithMessage("登录凭证已过期")
		}
		return nil, apperrors.ErrAuthenticationInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, apperrors.ErrAuthenticationInvalid
	}

	return claims, nil
}
