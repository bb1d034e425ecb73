package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
)

func setupRepo(t *testing.T, ttl time.Duration) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartRepository(client, ttl), mr
}

func TestCartRepository_RoundTripKeepsDecimalPrices(t *testing.T) {
	repo, mr := setupRepo(t, time.Hour)
	ctx := context.Background()

	c := domcart.New("u1")
	p, err := catalog.NewProduct("p1", "Widget", decimal.RequireFromString("10.10"), 5)
	require.NoError(t, err)
	require.NoError(t, c.AddItem(p, 3))
	require.NoError(t, repo.Save(ctx, c))

	assert.True(t, mr.Exists("cart:u1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:u1"))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Widget", got.Lines[0].ProductName)
	assert.Equal(t, "30.30", got.Total().StringFixed(2))
}

func TestCartRepository_MissingCartIsEmpty(t *testing.T) {
	repo, _ := setupRepo(t, 0)

	c, err := repo.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", c.UserID)
	assert.True(t, c.IsEmpty())

	_, err = repo.Get(context.Background(), "")
	assert.ErrorIs(t, err, domcart.ErrUserRequired)
}

func TestCartRepository_ExpiryAndDelete(t *testing.T) {
	repo, mr := setupRepo(t, time.Minute)
	ctx := context.Background()

	c := domcart.New("u1")
	p, err := catalog.NewProduct("p1", "Widget", decimal.NewFromInt(1), 5)
	require.NoError(t, err)
	require.NoError(t, c.AddItem(p, 1))
	require.NoError(t, repo.Save(ctx, c))

	mr.FastForward(2 * time.Minute)
	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	require.NoError(t, repo.Save(ctx, c))
	require.NoError(t, repo.Delete(ctx, "u1"))
	assert.False(t, mr.Exists("cart:u1"))
}

func TestCartRepository_ReportsConnectionErrors(t *testing.T) {
	repo, mr := setupRepo(t, time.Minute)
	mr.Close()

	_, err := repo.Get(context.Background(), "u1")
	assert.Error(t, err)
}
