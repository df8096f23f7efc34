// Package product 商品读接口（Cache-Aside + singleflight）
package product

import (
	"context"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/xiebiao/b2b-order/internal/domain/product"
)

// QueryService 商品与库存查询
// 读取流程：
// 1. 先查缓存，命中直接返回
// 2. 未命中时同一商品的并发请求合并为一次回源（singleflight）
// 3. 回源走只读副本，结果写回缓存
// 缓存故障只记录日志，降级为直接读库
type QueryService struct {
	products product.Repository
	cache    product.Cache
	group    singleflight.Group
	now      func() time.Time
}

// NewQueryService 创建查询服务
func NewQueryService(products product.Repository, cache product.Cache) *QueryService {
	return &QueryService{products: products, cache: cache, now: time.Now}
}

// GetProduct 商品详情
func (s *QueryService) GetProduct(ctx context.Context, id uint) (*product.Product, error) {
	if p, err := s.cache.GetProduct(ctx, id); err != nil {
		log.WithError(err).WithField("product_id", id).Warn("读取商品缓存失败")
	} else if p != nil {
		return p, nil
	}

	v, err, _ := s.group.Do("product:"+strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetProduct(ctx, p); err != nil {
			log.WithError(err).WithField("product_id", id).Warn("写入商品缓存失败")
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*product.Product), nil
}

// GetInventory 库存视图（短TTL）
func (s *QueryService) GetInventory(ctx context.Context, id uint) (*product.InventoryView, error) {
	if v, err := s.cache.GetInventory(ctx, id); err != nil {
		log.WithError(err).WithField("product_id", id).Warn("读取库存缓存失败")
	} else if v != nil {
		return v, nil
	}

	v, err, _ := s.group.Do("inventory:"+strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		view := &product.InventoryView{
			ProductID: p.ID,
			Inventory: p.Inventory,
			Status:    p.Status,
			LowStock:  p.IsLowStock(),
			AsOf:      s.now(),
		}
		if err := s.cache.SetInventory(ctx, view); err != nil {
			log.WithError(err).WithField("product_id", id).Warn("写入库存缓存失败")
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*product.InventoryView), nil
}
