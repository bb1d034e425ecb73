package memory

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
)

type orderRepository struct{ t *txn }

func (r orderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, exists := r.t.order(order.ID); exists {
		return domain.ErrConflict
	}
	if key := order.IdempotencyKey; key != "" {
		if _, exists := r.idempotent(order.UserID, key); exists {
			return domain.ErrConflict
		}
		r.t.idempotency[idempotencyKey(order.UserID, key)] = order.ID
	}
	r.t.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r orderRepository) Update(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, exists := r.t.order(order.ID); !exists {
		return domain.ErrNotFound
	}
	r.t.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx
	order, ok := r.t.order(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(order), nil
}

// FindForUpdate needs no extra locking: the whole transaction already holds
// the store mutex.
func (r orderRepository) FindForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r orderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	_ = ctx
	seen := make(map[string]struct{})
	var out []*domain.Order
	collect := func(orders map[string]*domain.Order) {
		for id, o := range orders {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if o.UserID == userID {
				out = append(out, cloneOrder(o))
			}
		}
	}
	collect(r.t.orders)
	collect(r.t.store.orders)

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r orderRepository) FindByIdempotency(ctx context.Context, userID, key string) (*domain.Order, error) {
	_ = ctx
	if key == "" {
		return nil, domain.ErrNotFound
	}
	orderID, ok := r.idempotent(userID, key)
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.t.order(orderID)
	if !found {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (r orderRepository) idempotent(userID, key string) (string, bool) {
	k := idempotencyKey(userID, key)
	if id, ok := r.t.idempotency[k]; ok {
		return id, true
	}
	id, ok := r.t.store.idempotency[k]
	return id, ok
}

func cloneOrder(order *domain.Order) *domain.Order {
	if order == nil {
		return nil
	}
	return order.Clone()
}
