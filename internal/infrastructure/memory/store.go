package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
)

// Store keeps products, orders and their payments in memory. Transactions
// are serialized under one mutex; writes land in an overlay that is merged
// into the committed maps only when the transaction function succeeds.
//
// The mutex is held for the whole transaction function, including payment
// gateway calls made inside it, so every transaction waits on the slowest
// payment in flight. That is acceptable for development and tests; use the
// postgres store when throughput matters.
type Store struct {
	mu          sync.Mutex
	products    map[string]*catalog.Product
	orders      map[string]*order.Order
	idempotency map[string]string // userID + "\x00" + key -> orderID
}

var _ application.UnitOfWork = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		products:    make(map[string]*catalog.Product),
		orders:      make(map[string]*order.Order),
		idempotency: make(map[string]string),
	}
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx application.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &txn{
		store:       s,
		products:    make(map[string]*catalog.Product),
		orders:      make(map[string]*order.Order),
		idempotency: make(map[string]string),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	t.commit()
	return nil
}

// txn is the overlay for one transaction. Reads fall through to the store
// and always hand out clones.
type txn struct {
	store       *Store
	products    map[string]*catalog.Product
	orders      map[string]*order.Order
	idempotency map[string]string
}

func (t *txn) Products() catalog.Repository { return productRepository{t} }
func (t *txn) Stock() inventory.Ledger       { return stockLedger{t} }
func (t *txn) Orders() order.Repository      { return orderRepository{t} }

func (t *txn) product(id string) (*catalog.Product, bool) {
	if p, ok := t.products[id]; ok {
		return p, true
	}
	p, ok := t.store.products[id]
	return p, ok
}

func (t *txn) order(id string) (*order.Order, bool) {
	if o, ok := t.orders[id]; ok {
		return o, true
	}
	o, ok := t.store.orders[id]
	return o, ok
}

func (t *txn) commit() {
	for id, p := range t.products {
		t.store.products[id] = p
	}
	for id, o := range t.orders {
		t.store.orders[id] = o
	}
	for k, id := range t.idempotency {
		t.store.idempotency[k] = id
	}
}

func idempotencyKey(userID, key string) string {
	return userID + "\x00" + key
}

// Seed stores products outside of any transaction, replacing existing ones.
func (s *Store) Seed(products ...*catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if p == nil {
			continue
		}
		s.products[p.ID] = p.Clone()
	}
}
