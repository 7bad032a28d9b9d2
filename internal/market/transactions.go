package market

import (
	"sync"
	"time"

	"github.com/xtrntr/marketplace/internal/models"
)

// Party selects which side of a transaction a grouping keys on.
type Party int

const (
	PartyBuyer Party = iota
	PartySeller
)

// AccountID returns the chosen party's account id for a transaction.
func (p Party) AccountID(t models.Transaction) int {
	if p == PartySeller {
		return t.SellerID
	}
	return t.BuyerID
}

// TransactionLog is the append-only record of settled seller-level
// proceeds, independent of the cash-flow journal.
type TransactionLog struct {
	mu           sync.RWMutex
	transactions []models.Transaction
	nextID       int
}

func NewTransactionLog() *TransactionLog {
	return &TransactionLog{nextID: 1}
}

// Append assigns the next marketplace-wide id and records the
// transaction, returning the stored copy.
func (l *TransactionLog) Append(t models.Transaction) models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	t.ID = l.nextID
	l.nextID++
	l.transactions = append(l.transactions, t)
	return t
}

// Transactions returns every record in append order.
func (l *TransactionLog) Transactions() []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// Since returns the records with timestamps at or after t, in append
// order.
func (l *TransactionLog) Since(t time.Time) []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.Transaction
	for _, tx := range l.transactions {
		if !tx.Timestamp.Before(t) {
			out = append(out, tx)
		}
	}
	return out
}

// HasActivitySince reports whether the account appears on either side of
// a transaction at or after t.
func (l *TransactionLog) HasActivitySince(accountID int, t time.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, tx := range l.transactions {
		if (tx.BuyerID == accountID || tx.SellerID == accountID) && !tx.Timestamp.Before(t) {
			return true
		}
	}
	return false
}
