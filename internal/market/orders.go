package market

import (
	"errors"
	"sync"
	"time"

	"github.com/xtrntr/marketplace/internal/models"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending")
	ErrEmptyOrder      = errors.New("order has no lines")
)

// OrderStore holds every finalized cart. An empty cart is never stored;
// that is a finalization policy, not an order-level rule. Reads return
// snapshots; status changes go through MarkPaid so the live records
// never leave the mutex.
type OrderStore struct {
	mu     sync.Mutex
	orders []*models.Order
	nextID int
}

func NewOrderStore() *OrderStore {
	return &OrderStore{nextID: 1}
}

// Create finalizes a cart into a pending order.
func (s *OrderStore) Create(buyerID int, lines []models.OrderLine) (models.Order, error) {
	if len(lines) == 0 {
		return models.Order{}, ErrEmptyOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order := &models.Order{
		ID:        s.nextID,
		BuyerID:   buyerID,
		Status:    models.OrderPending,
		CreatedAt: time.Now(),
	}
	s.nextID++
	for _, line := range lines {
		order.AddLine(line.ItemID, line.ItemName, line.UnitPrice, line.Quantity, line.SellerID)
	}
	s.orders = append(s.orders, order)
	return snapshot(order), nil
}

// Get looks an order up by id.
func (s *OrderStore) Get(orderID int) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == orderID {
			return snapshot(o), true
		}
	}
	return models.Order{}, false
}

// ListByBuyer returns the buyer's order history in creation order.
func (s *OrderStore) ListByBuyer(buyerID int) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			out = append(out, snapshot(o))
		}
	}
	return out
}

// MarkPaid transitions a pending order to paid.
func (s *OrderStore) MarkPaid(orderID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == orderID {
			if o.Status != models.OrderPending {
				return ErrOrderNotPending
			}
			o.MarkPaid()
			return nil
		}
	}
	return ErrOrderNotFound
}

func snapshot(o *models.Order) models.Order {
	out := *o
	out.Lines = append([]models.OrderLine(nil), o.Lines...)
	return out
}
