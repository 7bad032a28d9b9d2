package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/xtrntr/marketplace/internal/models"
)

// Journal reasons used by the standard banking flows. Settlement passes
// its own reasons ("Order Payment", "Sale Proceeds").
const (
	ReasonInitialDeposit = "Initial Deposit"
	ReasonDeposit        = "User Topup/Deposit"
	ReasonWithdrawal     = "User Withdrawal"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger is the account and balance authority. Every successful mutation
// appends exactly one journal entry. Accessors return snapshots; the
// live records never leave the mutex.
type Ledger struct {
	mu       sync.Mutex
	accounts []*models.Account
	journal  *Journal
	nextID   int
}

// NewLedger creates an empty ledger writing to the given journal.
func NewLedger(journal *Journal) *Ledger {
	return &Ledger{
		journal: journal,
		nextID:  1,
	}
}

// CreateAccount allocates the next sequential id, sets the opening
// balance and logs the initial deposit.
func (l *Ledger) CreateAccount(name string, initialDeposit float64) (models.Account, error) {
	if initialDeposit < 0 {
		return models.Account{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	account := &models.Account{
		ID:        l.nextID,
		Name:      name,
		Balance:   initialDeposit,
		CreatedAt: time.Now(),
	}
	l.nextID++
	l.accounts = append(l.accounts, account)

	l.journal.Append(models.CashFlowEntry{
		AccountID: account.ID,
		Direction: models.Credit,
		Amount:    initialDeposit,
		Reason:    ReasonInitialDeposit,
		Timestamp: time.Now(),
	})

	return *account, nil
}

// Deposit adds to the account balance and appends a credit entry.
// On failure nothing is mutated and nothing is logged.
func (l *Ledger) Deposit(accountID int, amount float64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account := l.find(accountID)
	if account == nil {
		return ErrAccountNotFound
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	account.Balance += amount
	l.journal.Append(models.CashFlowEntry{
		AccountID: accountID,
		Direction: models.Credit,
		Amount:    amount,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	return nil
}

// Withdraw subtracts from the account balance and appends a debit entry.
// Insufficient funds and unknown accounts fail without touching state.
func (l *Ledger) Withdraw(accountID int, amount float64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account := l.find(accountID)
	if account == nil {
		return ErrAccountNotFound
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > account.Balance {
		return ErrInsufficientFunds
	}

	account.Balance -= amount
	l.journal.Append(models.CashFlowEntry{
		AccountID: accountID,
		Direction: models.Debit,
		Amount:    amount,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	return nil
}

// FindAccount looks up an account by id.
func (l *Ledger) FindAccount(accountID int) (models.Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if account := l.find(accountID); account != nil {
		return *account, true
	}
	return models.Account{}, false
}

// Accounts returns the roster of accounts in creation order.
func (l *Ledger) Accounts() []models.Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Account, len(l.accounts))
	for i, a := range l.accounts {
		out[i] = *a
	}
	return out
}

func (l *Ledger) find(accountID int) *models.Account {
	for _, a := range l.accounts {
		if a.ID == accountID {
			return a
		}
	}
	return nil
}
