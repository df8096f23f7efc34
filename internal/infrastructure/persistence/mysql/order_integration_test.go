package mysql_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	orderapp "github.com/xiebiao/b2b-order/internal/application/order"
	"github.com/xiebiao/b2b-order/internal/application/postcommit"
	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/domain/product"
	"github.com/xiebiao/b2b-order/internal/domain/user"
	"github.com/xiebiao/b2b-order/internal/infrastructure/config"
	"github.com/xiebiao/b2b-order/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/b2b-order/internal/testutil/memstore"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
	"github.com/xiebiao/b2b-order/pkg/retry"
)

// 集成测试需要真实MySQL（行锁由数据库保证）
// 运行方式：
//
//	B2B_DATABASE_HOST=127.0.0.1 B2B_DATABASE_PASSWORD=xxx B2B_DATABASE_DBNAME=b2b_order_test go test ./internal/infrastructure/persistence/mysql/...
//
// 未设置B2B_DATABASE_HOST时跳过。每个用例开始前清空表。

type integration struct {
	db     *gorm.DB
	hooks  *postcommit.Runner
	place  *orderapp.PlaceOrderUseCase
	update *orderapp.UpdateStatusUseCase
}

func setupIntegration(t *testing.T) *integration {
	t.Helper()
	if os.Getenv("B2B_DATABASE_HOST") == "" {
		t.Skip("未设置B2B_DATABASE_HOST，跳过MySQL集成测试")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Database.AutoMigrate = true
	cfg.Database.Replicas = nil

	db, err := mysql.NewDB(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	for _, table := range []string{"order_status_history", "order_items", "orders", "audit_logs", "products", "users"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}

	txManager := mysql.NewTxManager(db, 10*time.Second)
	products := mysql.NewProductRepository(db)
	orders := mysql.NewOrderRepository(db)
	audits := mysql.NewAuditRepository(db)
	users := user.NewService(mysql.NewUserRepository(db))

	opts := orderapp.Options{
		MinAmount:    50000,
		NumberPrefix: "OD",
		DueDays:      3,
		Retry:        retry.Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond},
	}
	it := &integration{db: db, hooks: postcommit.NewRunner(time.Second)}
	it.place = orderapp.NewPlaceOrderUseCase(txManager, products, orders, users, audits, &memstore.Invalidator{}, nil, it.hooks, opts)
	it.update = orderapp.NewUpdateStatusUseCase(txManager, orders, users, audits, nil, nil, it.hooks, opts)
	return it
}

func (it *integration) createProduct(t *testing.T, sku string, inventory int, price int64, status product.Status) uint {
	t.Helper()
	m := mysql.ProductModel{
		SKU:              sku,
		Name:             sku,
		Inventory:        inventory,
		Status:           string(status),
		BasePrice:        price,
		MinOrderQuantity: 1,
	}
	require.NoError(t, it.db.Create(&m).Error)
	return m.ID
}

func (it *integration) inventory(t *testing.T, id uint) int {
	t.Helper()
	var m mysql.ProductModel
	require.NoError(t, it.db.First(&m, id).Error)
	return m.Inventory
}

func (it *integration) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, it.db.Model(model).Count(&n).Error)
	return n
}

func integrationBuyer(id string) orderapp.Actor {
	return orderapp.Actor{ExternalID: id, Email: id + "@example.com", Name: "采购部", Role: user.RoleBuyer}
}

func integrationRequest(actor orderapp.Actor, items ...orderapp.ItemRequest) orderapp.PlaceOrderRequest {
	return orderapp.PlaceOrderRequest{
		Actor: actor,
		Items: items,
		ShippingAddress: order.ShippingAddress{
			Name:    "张三",
			Phone:   "13800000000",
			Address: "上海市浦东新区",
		},
		PaymentMethod: order.PaymentBankTransfer,
	}
}

// 库存10，每单3件，20个买家并发：只有3单成功，剩余库存1
func TestMySQL_PlaceOrderNoOversell(t *testing.T) {
	it := setupIntegration(t)
	id := it.createProduct(t, "PAPER-A4", 10, 25000, product.StatusActive)

	const buyers = 20
	const quantity = 3

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		success      int
		insufficient int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := it.place.Execute(context.Background(),
				integrationRequest(integrationBuyer(fmt.Sprintf("buyer-%02d", i)), orderapp.ItemRequest{ProductID: id, Quantity: quantity}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, apperrors.ErrInsufficientInventory):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	it.hooks.Wait()

	assert.Equal(t, 10/quantity, success)
	assert.Equal(t, buyers-10/quantity, insufficient)
	assert.Equal(t, 10%quantity, it.inventory(t, id))
	assert.Equal(t, int64(10/quantity), it.count(t, &mysql.OrderModel{}))
}

// 两个商品以相反顺序出现在并发订单中，按ID升序加锁不会死锁
func TestMySQL_MultiItemOrdersDoNotDeadlock(t *testing.T) {
	it := setupIntegration(t)
	a := it.createProduct(t, "PEN-BLK", 100, 30000, product.StatusActive)
	b := it.createProduct(t, "PEN-RED", 100, 30000, product.StatusActive)

	const rounds = 10
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := it.place.Execute(context.Background(), integrationRequest(integrationBuyer(fmt.Sprintf("ab-%d", i)),
				orderapp.ItemRequest{ProductID: a, Quantity: 1}, orderapp.ItemRequest{ProductID: b, Quantity: 1}))
			errs <- err
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := it.place.Execute(context.Background(), integrationRequest(integrationBuyer(fmt.Sprintf("ba-%d", i)),
				orderapp.ItemRequest{ProductID: b, Quantity: 1}, orderapp.ItemRequest{ProductID: a, Quantity: 1}))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 100-rounds*2, it.inventory(t, a))
	assert.Equal(t, 100-rounds*2, it.inventory(t, b))
}

func TestMySQL_BelowMinimumRollsBack(t *testing.T) {
	it := setupIntegration(t)
	a := it.createProduct(t, "STAPLER", 10, 20000, product.StatusActive)
	b := it.createProduct(t, "CLIP", 100, 2500, product.StatusActive)

	// 20000 + 2500*10 = 45000 < 50000
	_, err := it.place.Execute(context.Background(), integrationRequest(integrationBuyer("b-1"),
		orderapp.ItemRequest{ProductID: a, Quantity: 1},
		orderapp.ItemRequest{ProductID: b, Quantity: 10},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMinAmountNotMet)

	assert.Equal(t, 10, it.inventory(t, a))
	assert.Equal(t, 100, it.inventory(t, b))
	assert.Zero(t, it.count(t, &mysql.OrderModel{}))
	assert.Zero(t, it.count(t, &mysql.OrderItemModel{}))
	assert.Zero(t, it.count(t, &mysql.AuditLogModel{}))
}

func TestMySQL_InactiveProductNotSellable(t *testing.T) {
	it := setupIntegration(t)
	active := it.createProduct(t, "DESK", 10, 60000, product.StatusActive)
	inactive := it.createProduct(t, "OLD-DESK", 10, 60000, product.StatusInactive)

	_, err := it.place.Execute(context.Background(), integrationRequest(integrationBuyer("b-1"),
		orderapp.ItemRequest{ProductID: active, Quantity: 1},
		orderapp.ItemRequest{ProductID: inactive, Quantity: 1},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	assert.Equal(t, []uint{inactive}, apperrors.GetAppError(err).Details["missing_ids"])
	assert.Equal(t, 10, it.inventory(t, active))
}

// 状态流转返回的订单包含完整的状态记录
func TestMySQL_UpdateStatusReturnsFullHistory(t *testing.T) {
	it := setupIntegration(t)
	id := it.createProduct(t, "CHAIR", 10, 60000, product.StatusActive)

	resp, err := it.place.Execute(context.Background(), integrationRequest(integrationBuyer("b-1"), orderapp.ItemRequest{ProductID: id, Quantity: 1}))
	require.NoError(t, err)
	it.hooks.Wait()

	admin := orderapp.Actor{ExternalID: "admin-1", Role: user.RoleAdmin}
	_, err = it.update.Execute(context.Background(), orderapp.UpdateStatusRequest{Actor: admin, OrderID: resp.Order.ID, Status: order.StatusPaid})
	require.NoError(t, err)
	updated, err := it.update.Execute(context.Background(), orderapp.UpdateStatusRequest{Actor: admin, OrderID: resp.Order.ID, Status: order.StatusPreparing})
	require.NoError(t, err)

	require.Len(t, updated.History, 3)
	assert.Equal(t, order.StatusPending, updated.History[0].ToStatus)
	assert.Equal(t, order.StatusPaid, updated.History[1].ToStatus)
	assert.Equal(t, order.StatusPreparing, updated.History[2].ToStatus)
	require.Len(t, updated.Items, 1)
}
