package market

import (
	"errors"
	"sync"

	"github.com/xtrntr/marketplace/internal/catalog"
	"github.com/xtrntr/marketplace/internal/ledger"
	"github.com/xtrntr/marketplace/internal/models"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrSellerNotFound   = errors.New("seller not found")
	ErrAlreadySeller    = errors.New("customer is already a seller")
)

// Roster tracks who participates in the marketplace. A customer gains the
// selling capability through an attached Seller record; there is no
// separate seller identity.
type Roster struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	catalogs  *catalog.Registry
	customers []*models.Customer
	sellers   map[int]*models.Seller // keyed by customer id
}

func NewRoster(l *ledger.Ledger, catalogs *catalog.Registry) *Roster {
	return &Roster{
		ledger:   l,
		catalogs: catalogs,
		sellers:  make(map[int]*models.Seller),
	}
}

// Register opens the bank account and records the customer. The customer
// id is the account id.
func (r *Roster) Register(name string, initialDeposit float64) (models.Customer, error) {
	account, err := r.ledger.CreateAccount(name, initialDeposit)
	if err != nil {
		return models.Customer{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	customer := &models.Customer{
		ID:        account.ID,
		Name:      name,
		AccountID: account.ID,
	}
	r.customers = append(r.customers, customer)
	return *customer, nil
}

// Promote attaches a seller record to an existing customer and creates
// the store's catalog.
func (r *Roster) Promote(customerID int, storeName string) (models.Seller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findCustomer(customerID) == nil {
		return models.Seller{}, ErrCustomerNotFound
	}
	if _, ok := r.sellers[customerID]; ok {
		return models.Seller{}, ErrAlreadySeller
	}

	seller := &models.Seller{
		CustomerID: customerID,
		StoreName:  storeName,
	}
	r.sellers[customerID] = seller
	r.catalogs.CatalogFor(customerID)
	return *seller, nil
}

// Customer looks up a customer by id.
func (r *Roster) Customer(id int) (models.Customer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.findCustomer(id); c != nil {
		return *c, true
	}
	return models.Customer{}, false
}

// Seller looks up the seller record for a customer id.
func (r *Roster) Seller(customerID int) (models.Seller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sellers[customerID]; ok {
		return *s, true
	}
	return models.Seller{}, false
}

// Customers returns everyone in registration order.
func (r *Roster) Customers() []models.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Customer, len(r.customers))
	for i, c := range r.customers {
		out[i] = *c
	}
	return out
}

func (r *Roster) findCustomer(id int) *models.Customer {
	for _, c := range r.customers {
		if c.ID == id {
			return c
		}
	}
	return nil
}
