package user

import (
	"context"
	"regexp"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// Service 用户领域服务
type Service interface {
	// Resolve 解析已认证调用方对应的本地用户（不存在则创建）
	Resolve(ctx context.Context, externalID, email, name string, role Role) (*User, error)
}

type service struct {
	repo Repository
}

// NewService 创建用户服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Resolve 业务规则：
// 1. ExternalID不能为空
// 2. 邮箱可选，填写时必须合法
func (s *service) Resolve(ctx context.Context, externalID, email, name string, role Role) (*User, error) {
	if externalID == "" {
		return nil, apperrors.ErrAuthenticationInvalid
	}
	if email != "" && !isValidEmail(email) {
		return nil, apperrors.ErrInvalidParams.WithMessage("邮箱格式不正确")
	}

	return s.repo.FindOrCreateByExternalID(ctx, NewUser(externalID, email, name, role))
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// isValidEmail 邮箱格式校验
// 简单的正则校验，生产环境可使用更严格的RFC 5322标准
func isValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
