package audit

import (
	"context"

	"github.com/xiebiao/b2b-order/internal/domain/audit"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// ListLogsUseCase 审计日志查询（合规与报表工具使用）
type ListLogsUseCase struct {
	repo audit.Repository
}

// NewListLogsUseCase 创建审计查询用例
func NewListLogsUseCase(repo audit.Repository) *ListLogsUseCase {
	return &ListLogsUseCase{repo: repo}
}

// Execute 按对象、动作、时间范围分页查询
func (uc *ListLogsUseCase) Execute(ctx context.Context, q audit.Query) ([]*audit.Entry, int64, error) {
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return nil, 0, apperrors.ErrInvalidParams.WithMessage("开始时间必须早于结束时间")
	}
	return uc.repo.List(ctx, q)
}
