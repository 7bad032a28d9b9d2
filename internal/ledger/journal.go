package ledger

import (
	"sync"
	"time"

	"github.com/xtrntr/marketplace/internal/models"
)

// Journal is the append-only cash-flow log. Entries are never mutated or
// deleted; append order and timestamp order agree.
type Journal struct {
	mu      sync.RWMutex
	entries []models.CashFlowEntry
}

func NewJournal() *Journal {
	return &Journal{}
}

// Append records one cash movement.
func (j *Journal) Append(entry models.CashFlowEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

// Entries returns all entries in append order.
func (j *Journal) Entries() []models.CashFlowEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]models.CashFlowEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// EntriesFor returns the entries for one account in append order.
func (j *Journal) EntriesFor(accountID int) []models.CashFlowEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []models.CashFlowEntry
	for _, e := range j.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// HasEntrySince reports whether the account moved money at or after t.
func (j *Journal) HasEntrySince(accountID int, t time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, e := range j.entries {
		if e.AccountID == accountID && !e.Timestamp.Before(t) {
			return true
		}
	}
	return false
}
