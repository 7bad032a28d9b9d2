package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xtrntr/marketplace/internal/analytics"
	"github.com/xtrntr/marketplace/internal/catalog"
	"github.com/xtrntr/marketplace/internal/ledger"
	"github.com/xtrntr/marketplace/internal/market"
	"github.com/xtrntr/marketplace/internal/models"
)

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	Ledger    *ledger.Ledger
	Journal   *ledger.Journal
	Catalogs  *catalog.Registry
	Roster    *market.Roster
	Orders    *market.OrderStore
	Engine    *market.Engine
	Analytics *analytics.Service
	Logger    *zap.Logger

	validate *validator.Validate

	// TopUsersLimit is the default for /analytics/top-users.
	TopUsersLimit int
}

// NewHandler creates a new handler.
func NewHandler(l *ledger.Ledger, journal *ledger.Journal, catalogs *catalog.Registry, roster *market.Roster, orders *market.OrderStore, engine *market.Engine, analyticsSvc *analytics.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Ledger:        l,
		Journal:       journal,
		Catalogs:      catalogs,
		Roster:        roster,
		Orders:        orders,
		Engine:        engine,
		Analytics:     analyticsSvc,
		Logger:        logger,
		validate:      validator.New(),
		TopUsersLimit: 5,
	}
}

// Routes mounts every endpoint on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/accounts", h.Register)
	r.Get("/accounts", h.ListAccounts)
	r.Get("/accounts/{id}", h.GetAccount)
	r.Get("/accounts/{id}/journal", h.GetAccountJournal)
	r.Get("/accounts/{id}/orders", h.GetBuyerOrders)
	r.Post("/accounts/{id}/deposit", h.Deposit)
	r.Post("/accounts/{id}/withdraw", h.Withdraw)

	r.Post("/sellers", h.Promote)
	r.Get("/sellers/{sellerID}/items", h.GetInventory)
	r.Post("/sellers/{sellerID}/items", h.AddItem)
	r.Post("/sellers/{sellerID}/items/{itemID}/replenish", h.ReplenishItem)
	r.Post("/sellers/{sellerID}/items/{itemID}/discard", h.DiscardItem)
	r.Post("/sellers/{sellerID}/items/{itemID}/price", h.SetItemPrice)
	r.Post("/sellers/{sellerID}/items/{itemID}/visibility", h.SetItemVisibility)

	r.Get("/catalog", h.BrowseCatalog)

	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{id}", h.GetOrder)
	r.Post("/orders/{id}/pay", h.PayOrder)

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/dormant", h.ListDormant)
		r.Get("/top-users", h.ListTopUsers)
		r.Get("/transactions/recent", h.ListRecentTransactions)
		r.Get("/transactions/uncompleted", h.ListUncompletedTransactions)
		r.Get("/items/frequent", h.ListMostFrequentItems)
		r.Get("/buyers/top", h.ListMostActiveBuyers)
		r.Get("/sellers/top", h.ListMostActiveSellers)
		r.Get("/sellers/{sellerID}/items/top", h.ListTopItemsForSeller)
		r.Get("/sellers/{sellerID}/loyal", h.ListLoyalCustomersForSeller)
	})

	return r
}

// decodeAndValidate reads the JSON body into dst and runs struct
// validation, writing the error response itself on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	details := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fmt.Sprintf("failed on '%s' tag", fe.Tag())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   "Validation failed",
		"details": details,
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, market.ErrCustomerNotFound),
		errors.Is(err, market.ErrSellerNotFound),
		errors.Is(err, market.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, catalog.ErrInvalidAmount),
		errors.Is(err, market.ErrEmptyOrder):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, market.ErrOrderNotPending),
		errors.Is(err, market.ErrAlreadySeller):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func urlInt(r *http.Request, key string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, key))
}

func queryInt(r *http.Request, key, fallback string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		v = fallback
	}
	return strconv.Atoi(v)
}

// Register creates a customer with an opening balance, optionally
// promoting them to seller in the same call.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string  `json:"name" validate:"required"`
		InitialDeposit float64 `json:"initial_deposit" validate:"gte=0"`
		StoreName      string  `json:"store_name"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	customer, err := h.Roster.Register(req.Name, req.InitialDeposit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var seller *models.Seller
	if req.StoreName != "" {
		promoted, err := h.Roster.Promote(customer.ID, req.StoreName)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		seller = &promoted
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"customer": customer,
		"seller":   seller,
	})
}

// ListAccounts returns every account with its balance.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.Ledger.Accounts())
}

// GetAccount returns one account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		http.Error(w, `{"error": "Invalid account ID"}`, http.StatusBadRequest)
		return
	}

	account, ok := h.Ledger.FindAccount(id)
	if !ok {
		writeDomainError(w, ledger.ErrAccountNotFound)
		return
	}
	json.NewEncoder(w).Encode(account)
}

// GetAccountJournal returns the account's cash-flow history.
func (h *Handler) GetAccountJournal(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		http.Error(w, `{"error": "Invalid account ID"}`, http.StatusBadRequest)
		return
	}
	if _, ok := h.Ledger.FindAccount(id); !ok {
		writeDomainError(w, ledger.ErrAccountNotFound)
		return
	}
	json.NewEncoder(w).Encode(h.Journal.EntriesFor(id))
}

// Deposit adds funds to an account.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, func(id int, amount float64) error {
		return h.Ledger.Deposit(id, amount, ledger.ReasonDeposit)
	})
}

// Withdraw removes funds from an account.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, func(id int, amount float64) error {
		return h.Ledger.Withdraw(id, amount, ledger.ReasonWithdrawal)
	})
}

func (h *Handler) moveFunds(w http.ResponseWriter, r *http.Request, move func(int, float64) error) {
	id, err := urlInt(r, "id")
	if err != nil {
		http.Error(w, `{"error": "Invalid account ID"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		Amount float64 `json:"amount" validate:"required,gt=0"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := move(id, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}

	account, _ := h.Ledger.FindAccount(id)
	json.NewEncoder(w).Encode(account)
}

// Promote upgrades an existing customer to seller.
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID int    `json:"customer_id" validate:"required,gt=0"`
		StoreName  string `json:"store_name" validate:"required"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	seller, err := h.Roster.Promote(req.CustomerID, req.StoreName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(seller)
}

// sellerCatalog resolves the seller from the URL and returns their
// catalog, writing the error response itself when the seller is unknown.
func (h *Handler) sellerCatalog(w http.ResponseWriter, r *http.Request) (*catalog.Catalog, bool) {
	sellerID, err := urlInt(r, "sellerID")
	if err != nil {
		http.Error(w, `{"error": "Invalid seller ID"}`, http.StatusBadRequest)
		return nil, false
	}
	if _, ok := h.Roster.Seller(sellerID); !ok {
		writeDomainError(w, market.ErrSellerNotFound)
		return nil, false
	}
	return h.Catalogs.CatalogFor(sellerID), true
}

// GetInventory lists a seller's full inventory, hidden items included.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sellerCatalog(w, r)
	if !ok {
		return
	}
	json.NewEncoder(w).Encode(c.Items())
}

// AddItem stocks a new item in the seller's catalog.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sellerCatalog(w, r)
	if !ok {
		return
	}

	var req struct {
		Name     string  `json:"name" validate:"required"`
		Quantity int     `json:"quantity" validate:"gte=0"`
		Price    float64 `json:"price" validate:"required,gt=0"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	item, err := c.AddItem(req.Name, req.Quantity, req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

// ReplenishItem adds stock to an item.
func (h *Handler) ReplenishItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, func(c *catalog.Catalog, itemID int) error {
		var req struct {
			Amount int `json:"amount" validate:"required,gt=0"`
		}
		if !h.decodeAndValidate(w, r, &req) {
			return errHandled
		}
		return c.Replenish(itemID, req.Amount)
	})
}

// DiscardItem removes stock from an item.
func (h *Handler) DiscardItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, func(c *catalog.Catalog, itemID int) error {
		var req struct {
			Amount int `json:"amount" validate:"required,gt=0"`
		}
		if !h.decodeAndValidate(w, r, &req) {
			return errHandled
		}
		return c.Discard(itemID, req.Amount)
	})
}

// SetItemPrice changes an item's listed price.
func (h *Handler) SetItemPrice(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, func(c *catalog.Catalog, itemID int) error {
		var req struct {
			Price float64 `json:"price" validate:"required,gt=0"`
		}
		if !h.decodeAndValidate(w, r, &req) {
			return errHandled
		}
		return c.SetPrice(itemID, req.Price)
	})
}

// SetItemVisibility toggles an item's display flag.
func (h *Handler) SetItemVisibility(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, func(c *catalog.Catalog, itemID int) error {
		var req struct {
			Visible bool `json:"visible"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
			return errHandled
		}
		return c.SetVisible(itemID, req.Visible)
	})
}

// errHandled signals that the mutation callback already wrote a response.
var errHandled = errors.New("response already written")

func (h *Handler) mutateItem(w http.ResponseWriter, r *http.Request, mutate func(*catalog.Catalog, int) error) {
	c, ok := h.sellerCatalog(w, r)
	if !ok {
		return
	}

	itemID, err := urlInt(r, "itemID")
	if err != nil {
		http.Error(w, `{"error": "Invalid item ID"}`, http.StatusBadRequest)
		return
	}

	if err := mutate(c, itemID); err != nil {
		if !errors.Is(err, errHandled) {
			writeDomainError(w, err)
		}
		return
	}

	item, _ := c.FindItemByID(itemID)
	json.NewEncoder(w).Encode(item)
}

// BrowseCatalog lists every visible item across all sellers.
func (h *Handler) BrowseCatalog(w http.ResponseWriter, r *http.Request) {
	listings := h.Catalogs.VisibleItems()
	if listings == nil {
		listings = []catalog.Listing{}
	}
	json.NewEncoder(w).Encode(listings)
}

// CreateOrder finalizes a cart into a pending order. Prices and sellers
// are captured as of now; availability is checked here, not re-checked
// at settlement.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuyerID int `json:"buyer_id" validate:"required,gt=0"`
		Lines   []struct {
			ItemID   int `json:"item_id" validate:"required,gt=0"`
			Quantity int `json:"quantity" validate:"required,gt=0"`
		} `json:"lines" validate:"required,min=1,dive"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if _, ok := h.Roster.Customer(req.BuyerID); !ok {
		writeDomainError(w, market.ErrCustomerNotFound)
		return
	}

	var lines []models.OrderLine
	for _, l := range req.Lines {
		sellerID, item, ok := h.Catalogs.Lookup(l.ItemID)
		if !ok {
			writeDomainError(w, catalog.ErrItemNotFound)
			return
		}
		if !h.Catalogs.CatalogFor(sellerID).CheckAvailability(l.ItemID, l.Quantity) {
			writeDomainError(w, catalog.ErrInsufficientStock)
			return
		}
		lines = append(lines, models.OrderLine{
			ItemID:    item.ID,
			ItemName:  item.Name,
			UnitPrice: item.Price,
			Quantity:  l.Quantity,
			SellerID:  sellerID,
		})
	}

	order, err := h.Orders.Create(req.BuyerID, lines)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(order)
}

// GetOrder returns one order with its lines and status.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		http.Error(w, `{"error": "Invalid order ID"}`, http.StatusBadRequest)
		return
	}

	order, ok := h.Orders.Get(id)
	if !ok {
		writeDomainError(w, market.ErrOrderNotFound)
		return
	}
	json.NewEncoder(w).Encode(order)
}

// GetBuyerOrders returns a buyer's order history.
func (h *Handler) GetBuyerOrders(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		http.Error(w, `{"error": "Invalid account ID"}`, http.StatusBadRequest)
		return
	}
	if _, ok := h.Ledger.FindAccount(id); !ok {
		writeDomainError(w, ledger.ErrAccountNotFound)
		return
	}
	orders := h.Orders.ListByBuyer(id)
	if orders == nil {
		orders = []models.Order{}
	}
	json.NewEncoder(w).Encode(orders)
}

// PayOrder settles a pending order.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		http.Error(w, `{"error": "Invalid order ID"}`, http.StatusBadRequest)
		return
	}

	if err := h.Engine.Pay(id); err != nil {
		writeDomainError(w, err)
		return
	}

	order, _ := h.Orders.Get(id)
	json.NewEncoder(w).Encode(order)
}

// ListDormant returns accounts with no activity in the trailing window.
func (h *Handler) ListDormant(w http.ResponseWriter, r *http.Request) {
	dormant := h.Analytics.ListDormant()
	if dormant == nil {
		dormant = []models.Account{}
	}
	json.NewEncoder(w).Encode(dormant)
}

// ListTopUsers ranks today's most active accounts.
func (h *Handler) ListTopUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", strconv.Itoa(h.TopUsersLimit))
	if err != nil || limit <= 0 {
		http.Error(w, `{"error": "Invalid limit"}`, http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(h.Analytics.ListTopUsers(limit))
}

// ListRecentTransactions returns the last K days of settlements.
func (h *Handler) ListRecentTransactions(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", "7")
	if err != nil || days <= 0 {
		http.Error(w, `{"error": "Invalid days"}`, http.StatusBadRequest)
		return
	}
	txs := h.Analytics.ListRecentTransactions(days)
	if txs == nil {
		txs = []models.Transaction{}
	}
	json.NewEncoder(w).Encode(txs)
}

// ListUncompletedTransactions returns settlements still in the Paid
// state.
func (h *Handler) ListUncompletedTransactions(w http.ResponseWriter, r *http.Request) {
	txs := h.Analytics.ListUncompletedTransactions()
	if txs == nil {
		txs = []models.Transaction{}
	}
	json.NewEncoder(w).Encode(txs)
}

// ListMostFrequentItems ranks item descriptors marketplace-wide.
func (h *Handler) ListMostFrequentItems(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", strconv.Itoa(h.TopUsersLimit))
	if err != nil || limit <= 0 {
		http.Error(w, `{"error": "Invalid limit"}`, http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(h.Analytics.ListMostFrequentItems(limit))
}

// ListMostActiveBuyers returns the top five buyers by settlement count.
func (h *Handler) ListMostActiveBuyers(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.Analytics.ListMostActiveBuyers())
}

// ListMostActiveSellers returns the top five sellers by settlement count.
func (h *Handler) ListMostActiveSellers(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.Analytics.ListMostActiveSellers())
}

// ListTopItemsForSeller ranks one seller's items over the last 30 days.
func (h *Handler) ListTopItemsForSeller(w http.ResponseWriter, r *http.Request) {
	sellerID, err := urlInt(r, "sellerID")
	if err != nil {
		http.Error(w, `{"error": "Invalid seller ID"}`, http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", strconv.Itoa(h.TopUsersLimit))
	if err != nil || limit <= 0 {
		http.Error(w, `{"error": "Invalid limit"}`, http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(h.Analytics.ListTopItemsForSeller(sellerID, limit))
}

// ListLoyalCustomersForSeller ranks one seller's repeat buyers over the
// last 30 days.
func (h *Handler) ListLoyalCustomersForSeller(w http.ResponseWriter, r *http.Request) {
	sellerID, err := urlInt(r, "sellerID")
	if err != nil {
		http.Error(w, `{"error": "Invalid seller ID"}`, http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(h.Analytics.ListLoyalCustomersForSeller(sellerID))
}
