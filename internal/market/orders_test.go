package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtrntr/marketplace/internal/models"
)

func TestOrderStore_Create(t *testing.T) {
	store := NewOrderStore()

	// An empty cart is never persisted
	_, err := store.Create(1, nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	order, err := store.Create(1, []models.OrderLine{
		{ItemID: 1, ItemName: "Keyboard", UnitPrice: 120, Quantity: 2, SellerID: 2},
		{ItemID: 2, ItemName: "Mouse", UnitPrice: 45, Quantity: 1, SellerID: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, order.ID)
	assert.Equal(t, models.OrderPending, order.Status)

	// TotalAmount tracks the sum of line totals
	assert.Equal(t, 285.0, order.TotalAmount)

	second, _ := store.Create(1, []models.OrderLine{
		{ItemID: 1, ItemName: "Keyboard", UnitPrice: 120, Quantity: 1, SellerID: 2},
	})
	assert.Equal(t, 2, second.ID)

	history := store.ListByBuyer(1)
	require.Len(t, history, 2)
	assert.Equal(t, order.ID, history[0].ID)

	_, ok := store.Get(999)
	assert.False(t, ok)
}

func TestOrderStore_MarkPaid(t *testing.T) {
	store := NewOrderStore()
	order, _ := store.Create(1, []models.OrderLine{
		{ItemID: 1, ItemName: "Keyboard", UnitPrice: 120, Quantity: 1, SellerID: 2},
	})

	require.NoError(t, store.MarkPaid(order.ID))
	paid, _ := store.Get(order.ID)
	assert.Equal(t, models.OrderPaid, paid.Status)

	assert.ErrorIs(t, store.MarkPaid(order.ID), ErrOrderNotPending)
	assert.ErrorIs(t, store.MarkPaid(999), ErrOrderNotFound)
}

func TestOrderStore_GetReturnsSnapshot(t *testing.T) {
	store := NewOrderStore()
	order, _ := store.Create(1, []models.OrderLine{
		{ItemID: 1, ItemName: "Keyboard", UnitPrice: 120, Quantity: 1, SellerID: 2},
	})

	before, ok := store.Get(order.ID)
	require.True(t, ok)
	require.NoError(t, store.MarkPaid(order.ID))

	// The earlier read is a point-in-time copy, not a live view
	assert.Equal(t, models.OrderPending, before.Status)

	// Writing through a returned order never reaches the store
	after, _ := store.Get(order.ID)
	after.Status = models.OrderCanceled
	after.Lines[0].Quantity = 99
	current, _ := store.Get(order.ID)
	assert.Equal(t, models.OrderPaid, current.Status)
	assert.Equal(t, 1, current.Lines[0].Quantity)
}

func TestOrder_AddLineKeepsTotalInStep(t *testing.T) {
	order := &models.Order{Status: models.OrderPending}

	order.AddLine(1, "Keyboard", 120, 1, 2)
	assert.Equal(t, 120.0, order.TotalAmount)

	order.AddLine(2, "Mouse", 45, 2, 3)
	assert.Equal(t, 210.0, order.TotalAmount)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, 45.0, order.Lines[1].UnitPrice)
}
