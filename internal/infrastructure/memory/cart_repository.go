package memory

import (
	"context"
	"sync"
	"time"

	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
)

type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domcart.Cart
}

var _ domcart.Repository = (*CartRepository)(nil)

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]*domcart.Cart)}
}

// Get returns an empty cart for users that never added anything.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domcart.Cart, error) {
	_ = ctx
	if userID == "" {
		return nil, domcart.ErrUserRequired
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carts[userID]; ok {
		return c.Clone(), nil
	}
	return domcart.New(userID), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domcart.Cart) error {
	_ = ctx
	if c == nil || c.UserID == "" {
		return domcart.ErrUserRequired
	}
	next := c.Clone()
	next.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[c.UserID] = next
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}
