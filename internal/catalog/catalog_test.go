package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ItemIDsAreMarketplaceWide(t *testing.T) {
	registry := NewRegistry()
	storeA := registry.CatalogFor(1)
	storeB := registry.CatalogFor(2)

	first, err := storeA.AddItem("Keyboard", 5, 120)
	require.NoError(t, err)
	second, err := storeB.AddItem("Mouse", 10, 45)
	require.NoError(t, err)
	third, err := storeA.AddItem("Monitor", 2, 300)
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 3, third.ID)

	// Lookup resolves the owning seller
	sellerID, item, ok := registry.Lookup(second.ID)
	require.True(t, ok)
	assert.Equal(t, 2, sellerID)
	assert.Equal(t, "Mouse", item.Name)

	_, _, ok = registry.Lookup(99)
	assert.False(t, ok)
}

func TestCatalog_VisibilityDefaultsToHidden(t *testing.T) {
	registry := NewRegistry()
	store := registry.CatalogFor(1)

	item, err := store.AddItem("Keyboard", 5, 120)
	require.NoError(t, err)
	assert.False(t, item.Visible)
	assert.Empty(t, registry.VisibleItems())

	require.NoError(t, store.SetVisible(item.ID, true))
	listings := registry.VisibleItems()
	require.Len(t, listings, 1)
	assert.Equal(t, 1, listings[0].SellerID)
	assert.Equal(t, "Keyboard", listings[0].Item.Name)

	assert.ErrorIs(t, store.SetVisible(99, true), ErrItemNotFound)
}

func TestCatalog_ReplenishAndDiscard(t *testing.T) {
	registry := NewRegistry()
	store := registry.CatalogFor(1)
	item, _ := store.AddItem("Keyboard", 5, 120)

	require.NoError(t, store.Replenish(item.ID, 3))
	got, _ := store.FindItemByID(item.ID)
	assert.Equal(t, 8, got.Quantity)

	// No partial discard: an overdraw fails outright
	err := store.Discard(item.ID, 9)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	got, _ = store.FindItemByID(item.ID)
	assert.Equal(t, 8, got.Quantity)

	require.NoError(t, store.Discard(item.ID, 8))
	got, _ = store.FindItemByID(item.ID)
	assert.Equal(t, 0, got.Quantity)

	assert.ErrorIs(t, store.Replenish(99, 1), ErrItemNotFound)
	assert.ErrorIs(t, store.Replenish(item.ID, 0), ErrInvalidAmount)
	assert.ErrorIs(t, store.Discard(item.ID, -1), ErrInvalidAmount)
}

func TestCatalog_CheckAvailability(t *testing.T) {
	registry := NewRegistry()
	store := registry.CatalogFor(1)
	item, _ := store.AddItem("Keyboard", 5, 120)

	assert.True(t, store.CheckAvailability(item.ID, 5))
	assert.False(t, store.CheckAvailability(item.ID, 6))
	assert.False(t, store.CheckAvailability(99, 1))
}

func TestCatalog_LookupsReturnSnapshots(t *testing.T) {
	registry := NewRegistry()
	store := registry.CatalogFor(1)
	item, _ := store.AddItem("Keyboard", 5, 120)

	before, ok := store.FindItemByID(item.ID)
	require.True(t, ok)
	require.NoError(t, store.SetPrice(item.ID, 99))

	// The earlier read is a point-in-time copy, not a live view
	assert.Equal(t, 120.0, before.Price)
	_, got, ok := registry.Lookup(item.ID)
	require.True(t, ok)
	assert.Equal(t, 99.0, got.Price)

	// Writing through a returned item never reaches the catalog
	got.Quantity = 0
	current, _ := store.FindItemByID(item.ID)
	assert.Equal(t, 5, current.Quantity)
}

func TestCatalog_SetPrice(t *testing.T) {
	registry := NewRegistry()
	store := registry.CatalogFor(1)
	item, _ := store.AddItem("Keyboard", 5, 120)

	require.NoError(t, store.SetPrice(item.ID, 99.5))
	got, _ := store.FindItemByID(item.ID)
	assert.Equal(t, 99.5, got.Price)

	assert.ErrorIs(t, store.SetPrice(item.ID, 0), ErrInvalidAmount)
	assert.ErrorIs(t, store.SetPrice(99, 10), ErrItemNotFound)

	_, err := store.AddItem("Broken", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
