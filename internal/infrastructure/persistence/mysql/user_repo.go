package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/b2b-order/internal/domain/user"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// userRepository 用户仓储实现（MySQL）
// 设计说明：
// 1. 实现domain/user/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. ExternalID唯一性由数据库UNIQUE索引保证（而非应用层SELECT再INSERT）
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
// 注意：返回的是domain层的接口类型，不是具体类型（依赖倒置）
func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepository{db: db}
}

// FindOrCreateByExternalID 查找或创建
// 学习要点：
// 1. 两个请求同时首次下单时，只有一个INSERT成功
// 2. 失败的一方捕获Duplicate Entry后重新查询，拿到对方创建的记录
// 3. 角色以令牌为准，有变化时同步
func (r *userRepository) FindOrCreateByExternalID(ctx context.Context, u *user.User) (*user.User, error) {
	db := r.getDB(ctx)

	var model UserModel
	err := db.Where("external_id = ?", u.ExternalID).First(&model).Error
	switch {
	case err == nil:
		if u.Role != "" && string(u.Role) != model.Role {
			model.Role = string(u.Role)
			if err := db.Model(&model).Update("role", model.Role).Error; err != nil {
				return nil, apperrors.WrapDB(err, "同步用户角色失败")
			}
		}
		return toUserEntity(&model), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.WrapDB(err, "查询用户失败")
	}

	model = UserModel{
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
	}
	if err := db.Create(&model).Error; err != nil {
		if !isDuplicateError(err) {
			return nil, apperrors.WrapDB(err, "创建用户失败")
		}
		// 并发创建，读取已存在的记录
		if err := db.Where("external_id = ?", u.ExternalID).First(&model).Error; err != nil {
			return nil, apperrors.WrapDB(err, "查询用户失败")
		}
	}
	return toUserEntity(&model), nil
}

// FindByID 根据ID查找用户
func (r *userRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var model UserModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapDB(err, "查询用户失败")
	}
	return toUserEntity(&model), nil
}

func (r *userRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

func toUserEntity(m *UserModel) *user.User {
	return &user.User{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Email:      m.Email,
		Name:       m.Name,
		Role:       user.Role(m.Role),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
