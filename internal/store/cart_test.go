package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stockOf(t *testing.T, s *Store, id int64) int {
	t.Helper()

	stock, err := s.GetStock(context.Background(), id)
	require.NoError(t, err)
	return stock
}

func TestAddToCart_ReservesStock(t *testing.T) {
	s := newMigratedStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Mouse", "10", 5)

	change, err := s.AddToCart(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, -2, change.Delta)
	assert.Equal(t, 3, change.Stock)
	assert.Equal(t, 2, change.Quantity)

	change, err = s.AddToCart(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, change.Quantity)

	line, err := s.GetCartLine(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, 2, stockOf(t, s, p.ID))
}

func TestAddToCart_InsufficientStockChangesNothing(t *testing.T) {
	s := newMigratedStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Mouse", "10", 2)

	_, err := s.AddToCart(ctx, p.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, stockOf(t, s, p.ID))

	_, err = s.GetCartLine(ctx, p.ID)
	assert.ErrorIs(t, err, ErrCartLineNotFound)

	// exactly the remaining stock is allowed
	change, err := s.AddToCart(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, change.Stock)

	_, err = s.AddToCart(ctx, p.ID, 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestAddToCart_InvalidInput(t *testing.T) {
	s := newMigratedStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Mouse", "10", 2)

	tests := []struct {
		name      string
		productID int64
		quantity  int
		wantErr   error
	}{
		{"zero quantity", p.ID, 0, ErrInvalidQuantity},
		{"negative quantity", p.ID, -1, ErrInvalidQuantity},
		{"unknown product", 999, 1, ErrProductNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddToCart(ctx, tt.productID, tt.quantity)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAddThenRemove_RestoresStock(t *testing.T) {
	s := newMigratedStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Mouse", "10", 5)

	_, err := s.AddToCart(ctx, p.ID, 4)
	require.NoError(t, err)

	change, affected, err := s.RemoveFromCart(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, 4, change.Delta)
	assert.Equal(t, 5, change.Stock)
	assert.Equal(t, 5, stockOf(t, s, p.ID))

	items, err := s.GetCartItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRemoveFromCart_NoLine(t *testing.T) {
	s := newMigratedStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Mouse", "10", 5)

	_, affected, err := s.RemoveFromCart(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.Equal(t, 5, stockOf(t, s, p.ID))

	_, affected, err = s.RemoveFromCart(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestSetCartQuantity(t *testing.T) {
	s := newMigratedStore(t)
	ctx := context.Background()

	p := createProduct(t, s, "Mouse", "10", 5)
	_, err := s.AddToCart(ctx, p.ID, 2)
	require.NoError(t, err)

	change, err := s.SetCartQuantity(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, -2, change.Delta)
	assert.Equal(t, 1, change.Stock)

	_, err = s.SetCartQuantity(ctx, p.ID, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 1, stockOf(t, s, p.ID))

	change, err = s.SetCartQuantity(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, change.Delta)
	assert.Equal(t, 4, stockOf(t, s, p.ID))

	line, err := s.GetCartLine(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	_, err = s.SetCartQuantity(ctx, p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	other := createProduct(t, s, "Teclado", "30", 5)
	_, err = s.SetCartQuantity(ctx, other.ID, 1)
	assert.ErrorIs(t, err, ErrCartLineNotFound)
}

func TestClearCart_RestoresEveryProduct(t *testing.T) {
	s := newMigratedStore(t)
	ctx := context.Background()

	a := createProduct(t, s, "A", "1.10", 5)
	b := createProduct(t, s, "B", "2.20", 5)

	_, err := s.AddToCart(ctx, a.ID, 2)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, b.ID, 3)
	require.NoError(t, err)

	changes, err := s.ClearCart(ctx)
	require.NoError(t, err)
	assert.Len(t, changes, 2)

	assert.Equal(t, 5, stockOf(t, s, a.ID))
	assert.Equal(t, 5, stockOf(t, s, b.ID))

	items, err := s.GetCartItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	changes, err = s.ClearCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestGetCartItemsAndTotal(t *testing.T) {
	s := newMigratedStore(t)
	ctx := context.Background()

	total, err := s.GetCartTotal(ctx)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	a := createProduct(t, s, "A", "1299.99", 10)
	b := createProduct(t, s, "B", "0.10", 10)

	_, err = s.AddToCart(ctx, a.ID, 2)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, b.ID, 3)
	require.NoError(t, err)

	items, err := s.GetCartItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// most recently added first
	assert.Equal(t, b.ID, items[0].ProductID)
	assert.Equal(t, "B", items[0].Name)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 7, items[0].Stock)
	assert.False(t, items[0].AddedAt.IsZero())
	assert.Equal(t, a.ID, items[1].ProductID)

	total, err = s.GetCartTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2600.28", total.StringFixed(2))
	assert.True(t, decimal.RequireFromString("0.30").Equal(items[0].Subtotal().Round(2)))
}
