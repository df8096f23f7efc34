package product

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/b2b-order/internal/domain/product"
	"github.com/xiebiao/b2b-order/internal/testutil/memstore"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

type memCache struct {
	mu        sync.Mutex
	products  map[uint]product.Product
	inventory map[uint]product.InventoryView
	getErr    error
}

func newMemCache() *memCache {
	return &memCache{products: map[uint]product.Product{}, inventory: map[uint]product.InventoryView{}}
}

func (c *memCache) GetProduct(ctx context.Context, id uint) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memCache) SetProduct(ctx context.Context, p *product.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = *p
	return nil
}

func (c *memCache) GetInventory(ctx context.Context, id uint) (*product.InventoryView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.inventory[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *memCache) SetInventory(ctx context.Context, v *product.InventoryView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inventory[v.ProductID] = *v
	return nil
}

func (c *memCache) InvalidateProducts(ctx context.Context, ids ...uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.products, id)
		delete(c.inventory, id)
	}
	return nil
}

// countingRepo 统计回源次数
type countingRepo struct {
	product.Repository
	reads atomic.Int32
	delay time.Duration
}

func (r *countingRepo) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	r.reads.Add(1)
	time.Sleep(r.delay)
	return r.Repository.FindByID(ctx, id)
}

func setup(t *testing.T) (*QueryService, *countingRepo, *memCache, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.PutProduct(&product.Product{ID: 1, SKU: "INK-BLK", Name: "墨盒", Inventory: 3, Status: product.StatusActive, BasePrice: 15000, LowStockThreshold: 5})
	repo := &countingRepo{Repository: store.Products()}
	cache := newMemCache()
	return NewQueryService(repo, cache), repo, cache, store
}

func TestGetProduct_ReadThrough(t *testing.T) {
	svc, repo, cache, _ := setup(t)
	ctx := context.Background()

	p, err := svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "INK-BLK", p.SKU)
	assert.Equal(t, int32(1), repo.reads.Load())

	_, err = svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.reads.Load(), "第二次应命中缓存")

	require.NoError(t, cache.InvalidateProducts(ctx, 1))
	_, err = svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.reads.Load())
}

func TestGetProduct_ConcurrentMissesCollapse(t *testing.T) {
	svc, repo, _, _ := setup(t)
	repo.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetProduct(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, repo.reads.Load(), int32(10))
}

func TestGetProduct_NotFound(t *testing.T) {
	svc, _, _, _ := setup(t)

	_, err := svc.GetProduct(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
}

func TestGetInventory_LowStockAndCacheFailure(t *testing.T) {
	svc, repo, cache, _ := setup(t)
	cache.getErr = errors.New("redis down")

	v, err := svc.GetInventory(context.Background(), 1)
	require.NoError(t, err, "缓存故障应降级为直接读库")
	assert.Equal(t, 3, v.Inventory)
	assert.True(t, v.LowStock)
	assert.Equal(t, int32(1), repo.reads.Load())
}
