package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/xiebiao/b2b-order/internal/domain/product"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

// productRepository 商品仓储实现(MySQL)
// 教学要点：
// 1. 库存写入前必须先在同一事务内加行锁读取（FOR UPDATE）
// 2. 多行加锁统一按id升序，避免两个订单交叉加锁导致死锁
// 3. UPDATE带上读取时的库存作为条件，防止绕过行锁的写入
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepository{db: db}
}

func (r *productRepository) LockSellableByIDs(ctx context.Context, ids []uint) ([]*product.Product, error) {
	var models []ProductModel
	err := r.getDB(ctx).
		Clauses(forUpdate).
		Where("id IN ? AND status <> ?", ids, product.StatusInactive).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.WrapDB(err, "锁定商品失败")
	}

	products := make([]*product.Product, len(models))
	for i := range models {
		products[i] = toProductEntity(&models[i])
	}
	return products, nil
}

func (r *productRepository) LockByID(ctx context.Context, id uint) (*product.Product, error) {
	var model ProductModel
	err := r.getDB(ctx).Clauses(forUpdate).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, apperrors.WrapDB(err, "锁定商品失败")
	}
	return toProductEntity(&model), nil
}

// FindByID 只读查询，不在事务中时走只读副本
func (r *productRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	var model ProductModel
	err := r.getDB(ctx).Clauses(dbresolver.Read).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, apperrors.WrapDB(err, "查询商品失败")
	}
	return toProductEntity(&model), nil
}

func (r *productRepository) UpdateInventory(ctx context.Context, p *product.Product, expected int) error {
	now := time.Now()
	result := r.getDB(ctx).
		Model(&ProductModel{}).
		Where("id = ? AND inventory = ?", p.ID, expected).
		Updates(map[string]interface{}{
			"inventory":  p.Inventory,
			"status":     string(p.Status),
			"updated_at": now,
		})
	if result.Error != nil {
		return apperrors.WrapDB(result.Error, "更新库存失败")
	}
	if result.RowsAffected == 0 {
		return product.ErrConcurrentUpdate
	}

	p.UpdatedAt = now
	return nil
}

func (r *productRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

func toProductEntity(m *ProductModel) *product.Product {
	return &product.Product{
		ID:                m.ID,
		SKU:               m.SKU,
		Name:              m.Name,
		Brand:             m.Brand,
		Inventory:         m.Inventory,
		Status:            product.Status(m.Status),
		BasePrice:         m.BasePrice,
		MinOrderQuantity:  m.MinOrderQuantity,
		MaxOrderQuantity:  m.MaxOrderQuantity,
		LowStockThreshold: m.LowStockThreshold,
		PriceTiers:        m.PriceTiers,
		UpdatedAt:         m.UpdatedAt,
	}
}
