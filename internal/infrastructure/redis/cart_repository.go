package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
)

const defaultCartTTL = 7 * 24 * time.Hour

// CartRepository keeps each cart as one JSON document under cart:<userID>.
// Every save refreshes the expiry, so idle carts disappear after ttl.
type CartRepository struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

var _ domcart.Repository = (*CartRepository)(nil)

func NewCartRepository(client goredis.UniversalClient, ttl time.Duration) *CartRepository {
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &CartRepository{client: client, ttl: ttl}
}

func (r *CartRepository) Get(ctx context.Context, userID string) (*domcart.Cart, error) {
	if userID == "" {
		return nil, domcart.ErrUserRequired
	}
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domcart.New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var c domcart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []domcart.Line{}
	}
	return &c, nil
}

func (r *CartRepository) Save(ctx context.Context, c *domcart.Cart) error {
	if c == nil || c.UserID == "" {
		return domcart.ErrUserRequired
	}
	next := c.Clone()
	next.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(c.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

// NewClient builds a client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
