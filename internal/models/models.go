package models

import "time"

// Account holds a customer's bank balance. Balances are mutated only
// through the ledger, never directly.
type Account struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Direction of a cash-flow journal entry.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// CashFlowEntry is one immutable journal record. Exactly one entry exists
// per successful balance mutation.
type CashFlowEntry struct {
	AccountID int       `json:"account_id"`
	Direction Direction `json:"direction"`
	Amount    float64   `json:"amount"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Item is a quantity-tracked catalog entry owned by a single seller.
// Items start hidden until the seller lists them.
type Item struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Visible  bool    `json:"visible"`
}

// Replenish adds stock.
func (i *Item) Replenish(amount int) {
	i.Quantity += amount
}

// Discard removes stock, refusing partial removal.
func (i *Item) Discard(amount int) bool {
	if i.Quantity < amount {
		return false
	}
	i.Quantity -= amount
	return true
}

// CheckAvailability reports whether the requested quantity is in stock.
func (i *Item) CheckAvailability(requested int) bool {
	return i.Quantity >= requested
}

// OrderStatus lifecycle: Pending -> Paid at settlement. Canceled and
// Completed are reachable states with no driving flow yet.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCanceled  OrderStatus = "canceled"
	OrderCompleted OrderStatus = "completed"
)

// OrderLine captures an item at the price and seller in effect when it
// was added to the cart. Later price changes do not touch existing lines.
type OrderLine struct {
	ItemID    int     `json:"item_id"`
	ItemName  string  `json:"item_name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	SellerID  int     `json:"seller_id"`
}

// Order is a finalized cart: an invoice with a status lifecycle.
type Order struct {
	ID          int         `json:"id"`
	BuyerID     int         `json:"buyer_id"`
	Lines       []OrderLine `json:"lines"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AddLine appends a line and keeps TotalAmount in step. The order does
// no stock check; availability is the browse flow's responsibility.
func (o *Order) AddLine(itemID int, name string, price float64, qty, sellerID int) {
	o.Lines = append(o.Lines, OrderLine{
		ItemID:    itemID,
		ItemName:  name,
		UnitPrice: price,
		Quantity:  qty,
		SellerID:  sellerID,
	})
	o.TotalAmount += price * float64(qty)
}

func (o *Order) MarkPaid()      { o.Status = OrderPaid }
func (o *Order) MarkCanceled()  { o.Status = OrderCanceled }
func (o *Order) MarkCompleted() { o.Status = OrderCompleted }

// TransactionStatus defaults to Paid at creation.
type TransactionStatus string

const (
	TransactionPaid      TransactionStatus = "paid"
	TransactionCanceled  TransactionStatus = "canceled"
	TransactionCompleted TransactionStatus = "completed"
)

// Transaction records one seller's settled proceeds from a paid order.
// Reference is the externally shareable id; ID is the internal identity.
type Transaction struct {
	ID             int               `json:"id"`
	Reference      string            `json:"reference"`
	BuyerID        int               `json:"buyer_id"`
	SellerID       int               `json:"seller_id"`
	ItemDescriptor string            `json:"item_descriptor"`
	Amount         float64           `json:"amount"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         TransactionStatus `json:"status"`
}

// Customer is a registered marketplace participant. The customer id and
// the backing account id are the same value.
type Customer struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	AccountID int    `json:"account_id"`
}

// Seller is the selling capability attached to a customer. A customer is
// promoted by creating a Seller record, not by subtyping.
type Seller struct {
	CustomerID int    `json:"customer_id"`
	StoreName  string `json:"store_name"`
}
