package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	orderapp "github.com/xiebiao/b2b-order/internal/application/order"
	"github.com/xiebiao/b2b-order/internal/domain/user"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/jwt"
	"github.com/xiebiao/b2b-order/pkg/response"
)

const principalKey = "principal"

// AuthMiddleware JWT认证中间件
// 设计说明：
// 1. 令牌由外部身份服务签发，这里只校验签名与有效期
// 2. 解析出的调用方信息注入gin.Context
// 3. 本地用户在下单时按ExternalID查找或创建，中间件不访问数据库
type AuthMiddleware struct {
	jwtManager *jwt.Manager
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// RequireAuth 要求登录
// 使用方式：
//
//	authorized := r.Group("/api/v1")
//	authorized.Use(authMiddleware.RequireAuth())
//	authorized.POST("/orders", handler.PlaceOrder)
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 格式：Authorization: Bearer <token>
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrAuthenticationRequired)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Error(c, apperrors.ErrAuthenticationInvalid.WithMessage("Token格式错误"))
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ParseToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		principal := claims.Principal()
		c.Set(principalKey, principal)
		c.Set("user_id", principal.ExternalID)

		c.Next()
	}
}

// RequireAdmin 要求管理员角色，必须放在RequireAuth之后
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			response.Error(c, apperrors.ErrAuthenticationRequired)
			c.Abort()
			return
		}
		if !principal.IsAdmin() {
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// =========================================
// Context辅助函数（供Handler使用）
// =========================================

// GetPrincipal 从Context获取当前调用方
func GetPrincipal(c *gin.Context) (jwt.Principal, bool) {
	if v, exists := c.Get(principalKey); exists {
		if p, ok := v.(jwt.Principal); ok {
			return p, true
		}
	}
	return jwt.Principal{}, false
}

// GetActor 组装应用层的调用方（带上审计需要的IP与UserAgent）
// 说明：用于已经通过RequireAuth中间件的Handler
func GetActor(c *gin.Context) orderapp.Actor {
	p, _ := GetPrincipal(c)
	return orderapp.Actor{
		ExternalID: p.ExternalID,
		Email:      p.Email,
		Name:       p.Name,
		Role:       user.Role(p.Role),
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
}
