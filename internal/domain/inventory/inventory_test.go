package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLedger map[string]int

func (m mapLedger) Reserve(_ context.Context, id string, qty int) (int, error) {
	n, err := Deduct(m[id], qty)
	if err != nil {
		return n, err
	}
	m[id] = n
	return n, nil
}

func (m mapLedger) Restore(_ context.Context, id string, qty int) (int, error) {
	m[id] += qty
	return m[id], nil
}

func (m mapLedger) Available(_ context.Context, id string) (int, error) {
	n, ok := m[id]
	if !ok {
		return 0, ErrNotFound
	}
	return n, nil
}

func TestDeduct(t *testing.T) {
	n, err := Deduct(5, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = Deduct(5, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, n)

	_, err = Deduct(5, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestMerge_KeepsFirstSeenOrder(t *testing.T) {
	got := Merge([]Line{{"b", 1}, {"a", 2}, {"b", 3}})
	assert.Equal(t, []Line{{"b", 4}, {"a", 2}}, got)
}

func TestCheckAvailability(t *testing.T) {
	ledger := mapLedger{"a": 3, "b": 1}
	ctx := context.Background()

	assert.NoError(t, CheckAvailability(ctx, ledger, []Line{{"a", 2}, {"b", 1}}))
	// split lines for one product are checked against the combined quantity
	assert.ErrorIs(t, CheckAvailability(ctx, ledger, []Line{{"a", 2}, {"a", 2}}), ErrInsufficientStock)
	assert.ErrorIs(t, CheckAvailability(ctx, ledger, []Line{{"zz", 1}}), ErrNotFound)
	assert.ErrorIs(t, CheckAvailability(ctx, ledger, []Line{{"a", 0}}), ErrInvalidQuantity)

	assert.Equal(t, mapLedger{"a": 3, "b": 1}, ledger, "checking never mutates")
}
