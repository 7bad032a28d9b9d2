package market

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xtrntr/marketplace/internal/catalog"
	"github.com/xtrntr/marketplace/internal/ledger"
	"github.com/xtrntr/marketplace/internal/models"
)

// Journal reasons written by settlement.
const (
	ReasonOrderPayment = "Order Payment"
	ReasonSaleProceeds = "Sale Proceeds"
)

// Engine settles pending orders: it debits the buyer once, credits every
// affected seller, decrements inventory and records one transaction per
// seller per invoice.
type Engine struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	catalogs *catalog.Registry
	orders   *OrderStore
	txlog    *TransactionLog
	logger   *zap.Logger
}

func NewEngine(l *ledger.Ledger, catalogs *catalog.Registry, orders *OrderStore, txlog *TransactionLog, logger *zap.Logger) *Engine {
	return &Engine{
		ledger:   l,
		catalogs: catalogs,
		orders:   orders,
		txlog:    txlog,
		logger:   logger,
	}
}

// sellerShare accumulates one seller's slice of an invoice.
type sellerShare struct {
	sellerID int
	amount   float64
	lines    []models.OrderLine
}

// Pay settles the order. The buyer withdrawal is the only abort path:
// if it fails, no state changes at all. Once the withdrawal succeeds the
// seller credits proceed without rollback; a seller whose account cannot
// be found is skipped, not unwound.
func (e *Engine) Pay(orderID int) error {
	// The withdraw-then-multi-credit sequence must not interleave with
	// another settlement or a concurrent pay of the same order.
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders.Get(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	if order.Status != models.OrderPending {
		return ErrOrderNotPending
	}

	total := order.TotalAmount
	if err := e.ledger.Withdraw(order.BuyerID, total, ReasonOrderPayment); err != nil {
		return fmt.Errorf("debit buyer %d: %w", order.BuyerID, err)
	}

	if err := e.orders.MarkPaid(order.ID); err != nil {
		return fmt.Errorf("mark order %d paid: %w", order.ID, err)
	}

	descriptor := invoiceDescriptor(order)
	for _, share := range groupBySeller(order.Lines) {
		if err := e.ledger.Deposit(share.sellerID, share.amount, ReasonSaleProceeds); err != nil {
			// No rollback of the buyer debit or earlier credits. This
			// matches the settlement contract: the withdrawal is the only
			// abort path.
			e.logger.Warn("skipping seller credit",
				zap.Int("order_id", order.ID),
				zap.Int("seller_id", share.sellerID),
				zap.Error(err))
			continue
		}

		sellerCatalog := e.catalogs.CatalogFor(share.sellerID)
		for _, line := range share.lines {
			if err := sellerCatalog.Discard(line.ItemID, line.Quantity); err != nil {
				e.logger.Warn("could not decrement stock",
					zap.Int("order_id", order.ID),
					zap.Int("item_id", line.ItemID),
					zap.Error(err))
			}
		}

		e.txlog.Append(models.Transaction{
			Reference:      uuid.NewString(),
			BuyerID:        order.BuyerID,
			SellerID:       share.sellerID,
			ItemDescriptor: descriptor,
			Amount:         share.amount,
			Timestamp:      time.Now(),
			Status:         models.TransactionPaid,
		})
	}

	e.logger.Info("order settled",
		zap.Int("order_id", order.ID),
		zap.Int("buyer_id", order.BuyerID),
		zap.Float64("total", total))
	return nil
}

// groupBySeller sums each seller's slice of the invoice, keeping sellers
// in the order they first appear among the lines.
func groupBySeller(lines []models.OrderLine) []*sellerShare {
	var shares []*sellerShare
	index := make(map[int]*sellerShare)
	for _, line := range lines {
		share, ok := index[line.SellerID]
		if !ok {
			share = &sellerShare{sellerID: line.SellerID}
			index[line.SellerID] = share
			shares = append(shares, share)
		}
		share.amount += line.UnitPrice * float64(line.Quantity)
		share.lines = append(share.lines, line)
	}
	return shares
}

// invoiceDescriptor names a settlement for the transaction log: the item
// name for a single-line order, otherwise an invoice summary.
func invoiceDescriptor(order models.Order) string {
	if len(order.Lines) == 1 {
		return order.Lines[0].ItemName
	}
	return fmt.Sprintf("Order #%d (%d items)", order.ID, len(order.Lines))
}

// IsInsufficientFunds reports whether a settlement failure was caused by
// the buyer's balance.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ledger.ErrInsufficientFunds)
}
