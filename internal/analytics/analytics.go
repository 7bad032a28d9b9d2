package analytics

import (
	"sort"
	"time"

	"github.com/xtrntr/marketplace/internal/ledger"
	"github.com/xtrntr/marketplace/internal/market"
	"github.com/xtrntr/marketplace/internal/models"
)

// topActiveLimit is the fixed cut for the most-active-buyers/sellers and
// loyalty rankings.
const topActiveLimit = 5

// RankedUser is an account with its activity count for a window.
type RankedUser struct {
	AccountID int    `json:"account_id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
}

// RankedItem is an item descriptor with its transaction count.
type RankedItem struct {
	Descriptor string `json:"descriptor"`
	Count      int    `json:"count"`
}

// Service answers windowed read-only queries over the journal, the
// transaction log and the account roster. It never mutates state.
type Service struct {
	ledger  *ledger.Ledger
	journal *ledger.Journal
	txlog   *market.TransactionLog

	// DormancyWindow is a rolling duration, not a calendar month.
	DormancyWindow time.Duration

	// Now is swappable so window boundaries can be tested.
	Now func() time.Time
}

func NewService(l *ledger.Ledger, journal *ledger.Journal, txlog *market.TransactionLog) *Service {
	return &Service{
		ledger:         l,
		journal:        journal,
		txlog:          txlog,
		DormancyWindow: 30 * 24 * time.Hour,
		Now:            time.Now,
	}
}

// ListDormant returns the accounts with no transaction (either role) and
// no journal entry inside the trailing dormancy window.
func (s *Service) ListDormant() []models.Account {
	cutoff := s.Now().Add(-s.DormancyWindow)

	var dormant []models.Account
	for _, account := range s.ledger.Accounts() {
		if s.txlog.HasActivitySince(account.ID, cutoff) {
			continue
		}
		if s.journal.HasEntrySince(account.ID, cutoff) {
			continue
		}
		dormant = append(dormant, account)
	}
	return dormant
}

// ListTopUsers ranks accounts by activity since the start of the current
// local calendar day: transactions count once per role, journal entries
// once each. Ties break toward the higher account id.
func (s *Service) ListTopUsers(limit int) []RankedUser {
	now := s.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts := make(map[int]int)
	for _, tx := range s.txlog.Since(dayStart) {
		counts[tx.BuyerID]++
		counts[tx.SellerID]++
	}
	for _, entry := range s.journal.Entries() {
		if !entry.Timestamp.Before(dayStart) {
			counts[entry.AccountID]++
		}
	}

	return s.rankUsers(counts, limit)
}

// ListRecentTransactions returns every transaction of the last `days`
// days in log order.
func (s *Service) ListRecentTransactions(days int) []models.Transaction {
	cutoff := s.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return s.txlog.Since(cutoff)
}

// ListUncompletedTransactions returns the transactions still in the Paid
// state.
func (s *Service) ListUncompletedTransactions() []models.Transaction {
	var out []models.Transaction
	for _, tx := range s.txlog.Transactions() {
		if tx.Status == models.TransactionPaid {
			out = append(out, tx)
		}
	}
	return out
}

// ListMostFrequentItems ranks item descriptors by transaction count over
// the whole log. Ties break toward the lexically greater descriptor.
func (s *Service) ListMostFrequentItems(limit int) []RankedItem {
	return rankItems(s.txlog.Transactions(), limit)
}

// ListMostActiveBuyers returns the five buyers with the most
// transactions.
func (s *Service) ListMostActiveBuyers() []RankedUser {
	return s.rankParty(s.txlog.Transactions(), market.PartyBuyer)
}

// ListMostActiveSellers returns the five sellers with the most
// transactions.
func (s *Service) ListMostActiveSellers() []RankedUser {
	return s.rankParty(s.txlog.Transactions(), market.PartySeller)
}

// ListTopItemsForSeller ranks the seller's descriptors over the trailing
// 30 days.
func (s *Service) ListTopItemsForSeller(sellerID, limit int) []RankedItem {
	return rankItems(s.sellerWindow(sellerID), limit)
}

// ListLoyalCustomersForSeller ranks the seller's buyers over the trailing
// 30 days.
func (s *Service) ListLoyalCustomersForSeller(sellerID int) []RankedUser {
	return s.rankParty(s.sellerWindow(sellerID), market.PartyBuyer)
}

// sellerWindow filters the log to one seller's transactions in the
// trailing 30-day window.
func (s *Service) sellerWindow(sellerID int) []models.Transaction {
	cutoff := s.Now().Add(-30 * 24 * time.Hour)

	var out []models.Transaction
	for _, tx := range s.txlog.Since(cutoff) {
		if tx.SellerID == sellerID {
			out = append(out, tx)
		}
	}
	return out
}

func (s *Service) rankParty(transactions []models.Transaction, party market.Party) []RankedUser {
	counts := make(map[int]int)
	for _, tx := range transactions {
		counts[party.AccountID(tx)]++
	}
	return s.rankUsers(counts, topActiveLimit)
}

func (s *Service) rankUsers(counts map[int]int, limit int) []RankedUser {
	ranked := make([]RankedUser, 0, len(counts))
	for accountID, count := range counts {
		name := "Unknown"
		if account, ok := s.ledger.FindAccount(accountID); ok {
			name = account.Name
		}
		ranked = append(ranked, RankedUser{AccountID: accountID, Name: name, Count: count})
	}

	// Descending count, then descending account id.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count == ranked[j].Count {
			return ranked[i].AccountID > ranked[j].AccountID
		}
		return ranked[i].Count > ranked[j].Count
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func rankItems(transactions []models.Transaction, limit int) []RankedItem {
	counts := make(map[string]int)
	for _, tx := range transactions {
		counts[tx.ItemDescriptor]++
	}

	ranked := make([]RankedItem, 0, len(counts))
	for descriptor, count := range counts {
		ranked = append(ranked, RankedItem{Descriptor: descriptor, Count: count})
	}

	// Descending count, then descending lexical descriptor.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count == ranked[j].Count {
			return ranked[i].Descriptor > ranked[j].Descriptor
		}
		return ranked[i].Count > ranked[j].Count
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
