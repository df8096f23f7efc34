// Package memstore 内存版存储，供应用层测试使用
//
// Store同时实现tx.Manager与各仓储接口：
// 1. 事务之间用互斥锁串行化，效果等同于对所有行加锁
// 2. fn返回错误时恢复事务开始前的快照，用于验证原子性
// 3. InjectFailures注入的错误在下一次Transaction开始时返回，用于验证重试
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/b2b-order/internal/domain/audit"
	"github.com/xiebiao/b2b-order/internal/domain/order"
	"github.com/xiebiao/b2b-order/internal/domain/product"
	"github.com/xiebiao/b2b-order/internal/domain/user"
	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

type txKey struct{}

// Store 内存存储
type Store struct {
	mu sync.Mutex

	products map[uint]*product.Product
	orders   map[uint]*order.Order
	users    map[string]*user.User
	audits   []*audit.Entry

	nextOrderID uint
	nextUserID  uint
	nextAuditID uint

	failures     []error
	transactions int

	// NumberTaken 返回true时视为订单号已存在
	NumberTaken func(number string) bool
	// TxDelay 每个事务内的额外耗时（放大并发窗口）
	TxDelay time.Duration
}

// New 创建内存存储
func New() *Store {
	return &Store{
		products: map[uint]*product.Product{},
		orders:   map[uint]*order.Order{},
		users:    map[string]*user.User{},
	}
}

// snapshot 事务开始前的状态
type snapshot struct {
	products    map[uint]product.Product
	orders      map[uint]order.Order
	users       map[string]user.User
	audits      int
	nextOrderID uint
	nextUserID  uint
	nextAuditID uint
}

// Transaction 实现tx.Manager
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	s.transactions++

	snap := s.snapshot()
	if s.TxDelay > 0 {
		time.Sleep(s.TxDelay)
	}
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// InjectFailures 接下来的len(errs)次事务直接返回对应错误
func (s *Store) InjectFailures(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// Transactions 已开始执行的事务数（不含注入失败的）
func (s *Store) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions
}

// PutProduct 写入商品（测试准备数据）
func (s *Store) PutProduct(p *product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

// Product 读取商品当前状态
func (s *Store) Product(id uint) product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.products[id]
}

// SetBasePrice 修改商品价格
func (s *Store) SetBasePrice(id uint, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id].BasePrice = price
}

// OrderCount 订单数量
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// AuditEntries 全部审计记录
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Entry, len(s.audits))
	for i, e := range s.audits {
		out[i] = *e
	}
	return out
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		products:    make(map[uint]product.Product, len(s.products)),
		orders:      make(map[uint]order.Order, len(s.orders)),
		users:       make(map[string]user.User, len(s.users)),
		audits:      len(s.audits),
		nextOrderID: s.nextOrderID,
		nextUserID:  s.nextUserID,
		nextAuditID: s.nextAuditID,
	}
	for id, p := range s.products {
		snap.products[id] = *p
	}
	for id, o := range s.orders {
		snap.orders[id] = copyOrder(o)
	}
	for id, u := range s.users {
		snap.users[id] = *u
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.products = make(map[uint]*product.Product, len(snap.products))
	for id, p := range snap.products {
		p := p
		s.products[id] = &p
	}
	s.orders = make(map[uint]*order.Order, len(snap.orders))
	for id, o := range snap.orders {
		o := o
		s.orders[id] = &o
	}
	s.users = make(map[string]*user.User, len(snap.users))
	for id, u := range snap.users {
		u := u
		s.users[id] = &u
	}
	s.audits = s.audits[:snap.audits]
	s.nextOrderID = snap.nextOrderID
	s.nextUserID = snap.nextUserID
	s.nextAuditID = snap.nextAuditID
}

// withLock 事务外的调用自行加锁，事务内已经持有锁
func (s *Store) withLock(ctx context.Context, fn func()) {
	if !inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn()
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func copyOrder(o *order.Order) order.Order {
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	cp.History = append([]order.StatusHistory(nil), o.History...)
	return cp
}

// =========================================
// product.Repository
// =========================================

// Products 商品仓储
func (s *Store) Products() product.Repository { return productRepo{s} }

type productRepo struct{ s *Store }

func (r productRepo) LockSellableByIDs(ctx context.Context, ids []uint) ([]*product.Product, error) {
	var out []*product.Product
	r.s.withLock(ctx, func() {
		for _, id := range ids {
			if p, ok := r.s.products[id]; ok && p.Status != product.StatusInactive {
				cp := *p
				out = append(out, &cp)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r productRepo) LockByID(ctx context.Context, id uint) (*product.Product, error) {
	return r.FindByID(ctx, id)
}

func (r productRepo) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	var out *product.Product
	r.s.withLock(ctx, func() {
		if p, ok := r.s.products[id]; ok {
			cp := *p
			out = &cp
		}
	})
	if out == nil {
		return nil, product.ErrNotFound
	}
	return out, nil
}

func (r productRepo) UpdateInventory(ctx context.Context, p *product.Product, expected int) error {
	var err error
	r.s.withLock(ctx, func() {
		stored, ok := r.s.products[p.ID]
		if !ok || stored.Inventory != expected {
			err = product.ErrConcurrentUpdate
			return
		}
		stored.Inventory = p.Inventory
		stored.Status = p.Status
	})
	return err
}

// =========================================
// order.Repository
// =========================================

// Orders 订单仓储
func (s *Store) Orders() order.Repository { return orderRepo{s} }

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, o *order.Order) error {
	var err error
	r.s.withLock(ctx, func() {
		for _, existing := range r.s.orders {
			if existing.OrderNumber == o.OrderNumber {
				err = order.ErrNumberConflict
				return
			}
		}
		r.s.nextOrderID++
		o.ID = r.s.nextOrderID
		for i := range o.Items {
			o.Items[i].ID = uint(i + 1)
			o.Items[i].OrderID = o.ID
		}
		for i := range o.History {
			o.History[i].OrderID = o.ID
		}
		cp := copyOrder(o)
		r.s.orders[o.ID] = &cp
	})
	return err
}

func (r orderRepo) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	if r.s.NumberTaken != nil && r.s.NumberTaken(number) {
		return true, nil
	}
	exists := false
	r.s.withLock(ctx, func() {
		for _, o := range r.s.orders {
			if o.OrderNumber == number {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r orderRepo) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var out *order.Order
	r.s.withLock(ctx, func() {
		if o, ok := r.s.orders[id]; ok {
			cp := copyOrder(o)
			out = &cp
		}
	})
	if out == nil {
		return nil, order.ErrOrderNotFound
	}
	return out, nil
}

func (r orderRepo) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.FindByID(ctx, id)
}

func (r orderRepo) UpdateStatus(ctx context.Context, o *order.Order, h *order.StatusHistory) error {
	var err error
	r.s.withLock(ctx, func() {
		stored, ok := r.s.orders[o.ID]
		if !ok {
			err = order.ErrOrderNotFound
			return
		}
		stored.Status = o.Status
		stored.UpdatedAt = o.UpdatedAt
		h.ID = uint(len(stored.History) + 1)
		stored.History = append(stored.History, *h)
	})
	return err
}

// =========================================
// user.Repository
// =========================================

// Users 用户仓储
func (s *Store) Users() user.Repository { return userRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) FindOrCreateByExternalID(ctx context.Context, u *user.User) (*user.User, error) {
	var out user.User
	r.s.withLock(ctx, func() {
		if existing, ok := r.s.users[u.ExternalID]; ok {
			if u.Role != "" {
				existing.Role = u.Role
			}
			out = *existing
			return
		}
		r.s.nextUserID++
		cp := *u
		cp.ID = r.s.nextUserID
		r.s.users[u.ExternalID] = &cp
		out = cp
	})
	return &out, nil
}

func (r userRepo) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var out *user.User
	r.s.withLock(ctx, func() {
		for _, u := range r.s.users {
			if u.ID == id {
				cp := *u
				out = &cp
				return
			}
		}
	})
	if out == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return out, nil
}

// =========================================
// audit.Repository
// =========================================

// Audits 审计仓储
func (s *Store) Audits() audit.Repository { return auditRepo{s} }

type auditRepo struct{ s *Store }

func (r auditRepo) Create(ctx context.Context, e *audit.Entry) error {
	r.s.withLock(ctx, func() {
		r.s.nextAuditID++
		e.ID = r.s.nextAuditID
		cp := *e
		r.s.audits = append(r.s.audits, &cp)
	})
	return nil
}

func (r auditRepo) List(ctx context.Context, q audit.Query) ([]*audit.Entry, int64, error) {
	var out []*audit.Entry
	r.s.withLock(ctx, func() {
		for i := len(r.s.audits) - 1; i >= 0; i-- {
			e := r.s.audits[i]
			if q.EntityType != "" && e.EntityType != q.EntityType {
				continue
			}
			if q.EntityID > 0 && e.EntityID != q.EntityID {
				continue
			}
			if q.Action != "" && e.Action != q.Action {
				continue
			}
			if q.UserID != "" && e.UserID != q.UserID {
				continue
			}
			cp := *e
			out = append(out, &cp)
		}
	})
	return out, int64(len(out)), nil
}

// =========================================
// product.CacheInvalidator
// =========================================

// Invalidator 记录失效的商品ID
type Invalidator struct {
	mu  sync.Mutex
	ids []uint
	Err error
}

func (i *Invalidator) InvalidateProducts(ctx context.Context, ids ...uint) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Err != nil {
		return i.Err
	}
	i.ids = append(i.ids, ids...)
	return nil
}

// IDs 已失效的商品ID
func (i *Invalidator) IDs() []uint {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]uint(nil), i.ids...)
}
