package catalog

import (
	"errors"
	"sync"

	"github.com/xtrntr/marketplace/internal/models"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Registry owns every seller's catalog and the marketplace-wide item id
// counter. Item ids are unique across sellers. Item reads return
// snapshots; the live records never leave the registry mutex.
type Registry struct {
	mu       sync.Mutex
	catalogs map[int]*Catalog // keyed by seller id
	nextItem int
}

func NewRegistry() *Registry {
	return &Registry{
		catalogs: make(map[int]*Catalog),
		nextItem: 1,
	}
}

// CatalogFor returns the seller's catalog, creating it on first use.
func (r *Registry) CatalogFor(sellerID int) *Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.catalogs[sellerID]
	if !ok {
		c = &Catalog{SellerID: sellerID, registry: r}
		r.catalogs[sellerID] = c
	}
	return c
}

// Lookup finds an item anywhere in the marketplace, returning its owning
// seller id.
func (r *Registry) Lookup(itemID int) (int, models.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sellerID, c := range r.catalogs {
		if item := c.find(itemID); item != nil {
			return sellerID, *item, true
		}
	}
	return 0, models.Item{}, false
}

// VisibleItems lists every displayed item across all sellers, for the
// buyer-facing browse surface.
func (r *Registry) VisibleItems() []Listing {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Listing
	for sellerID, c := range r.catalogs {
		for _, item := range c.items {
			if item.Visible {
				out = append(out, Listing{SellerID: sellerID, Item: *item})
			}
		}
	}
	return out
}

func (r *Registry) allocateItemID() int {
	id := r.nextItem
	r.nextItem++
	return id
}

// Listing is a visible item together with its seller.
type Listing struct {
	SellerID int         `json:"seller_id"`
	Item     models.Item `json:"item"`
}

// Catalog is one seller's inventory.
type Catalog struct {
	SellerID int
	items    []*models.Item
	registry *Registry
}

// AddItem creates an item with a marketplace-wide id. New items are
// hidden until the seller makes them visible.
func (c *Catalog) AddItem(name string, quantity int, price float64) (models.Item, error) {
	if quantity < 0 || price <= 0 {
		return models.Item{}, ErrInvalidAmount
	}

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	item := &models.Item{
		ID:       c.registry.allocateItemID(),
		Name:     name,
		Quantity: quantity,
		Price:    price,
	}
	c.items = append(c.items, item)
	return *item, nil
}

// SetVisible toggles the display flag.
func (c *Catalog) SetVisible(itemID int, visible bool) error {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	item := c.find(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	item.Visible = visible
	return nil
}

// SetPrice changes the listed price. Existing order lines keep their
// snapshot price.
func (c *Catalog) SetPrice(itemID int, price float64) error {
	if price <= 0 {
		return ErrInvalidAmount
	}

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	item := c.find(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	item.Price = price
	return nil
}

// Replenish adds stock; always succeeds for a known item.
func (c *Catalog) Replenish(itemID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	item := c.find(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	item.Replenish(amount)
	return nil
}

// Discard removes stock, failing outright if the amount exceeds the
// current quantity.
func (c *Catalog) Discard(itemID, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	item := c.find(itemID)
	if item == nil {
		return ErrItemNotFound
	}
	if !item.Discard(amount) {
		return ErrInsufficientStock
	}
	return nil
}

// CheckAvailability reports whether the item has at least the requested
// quantity in stock.
func (c *Catalog) CheckAvailability(itemID, requested int) bool {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	item := c.find(itemID)
	return item != nil && item.CheckAvailability(requested)
}

// FindItemByID looks the item up within this seller's catalog.
func (c *Catalog) FindItemByID(itemID int) (models.Item, bool) {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if item := c.find(itemID); item != nil {
		return *item, true
	}
	return models.Item{}, false
}

// Items returns the seller's inventory in listing order.
func (c *Catalog) Items() []models.Item {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	out := make([]models.Item, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, *item)
	}
	return out
}

func (c *Catalog) find(itemID int) *models.Item {
	for _, item := range c.items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}
