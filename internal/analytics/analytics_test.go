package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtrntr/marketplace/internal/ledger"
	"github.com/xtrntr/marketplace/internal/market"
	"github.com/xtrntr/marketplace/internal/models"
)

type fixture struct {
	ledger  *ledger.Ledger
	journal *ledger.Journal
	txlog   *market.TransactionLog
	svc     *Service
}

func newFixture() *fixture {
	journal := ledger.NewJournal()
	bank := ledger.NewLedger(journal)
	txlog := market.NewTransactionLog()
	return &fixture{
		ledger:  bank,
		journal: journal,
		txlog:   txlog,
		svc:     NewService(bank, journal, txlog),
	}
}

func (f *fixture) freeze(now time.Time) {
	f.svc.Now = func() time.Time { return now }
}

func TestService_ListDormant_WindowBoundary(t *testing.T) {
	f := newFixture()

	// The only activity is the initial-deposit journal entry, written now.
	account, err := f.ledger.CreateAccount("Alice", 100)
	require.NoError(t, err)
	opened := time.Now()

	// One second inside the trailing 30-day window: active
	f.freeze(opened.Add(30*24*time.Hour - time.Second))
	assert.Empty(t, f.svc.ListDormant())

	// One second past the window: dormant
	f.freeze(opened.Add(30*24*time.Hour + time.Second))
	dormant := f.svc.ListDormant()
	require.Len(t, dormant, 1)
	assert.Equal(t, account.ID, dormant[0].ID)
}

func TestService_ListDormant_TransactionCountsAsActivity(t *testing.T) {
	f := newFixture()

	alice, _ := f.ledger.CreateAccount("Alice", 100)
	bob, _ := f.ledger.CreateAccount("Bob", 100)
	carol, _ := f.ledger.CreateAccount("Carol", 100)
	opened := time.Now()

	// Far enough out that the opening entries have all aged past 30 days
	now := opened.Add(60 * 24 * time.Hour)
	f.freeze(now)

	// Alice sold to Bob recently; Carol did nothing
	f.txlog.Append(models.Transaction{
		BuyerID:   bob.ID,
		SellerID:  alice.ID,
		Amount:    50,
		Timestamp: now.Add(-24 * time.Hour),
		Status:    models.TransactionPaid,
	})

	dormant := f.svc.ListDormant()
	require.Len(t, dormant, 1)
	assert.Equal(t, carol.ID, dormant[0].ID)
}

func TestService_ListTopUsers_CountsAndTieBreaks(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.Local)
	f.freeze(now)

	today := now.Add(-time.Hour)
	yesterday := now.Add(-30 * time.Hour)

	// Account 1: buyer in two transactions today
	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 2, Timestamp: today})
	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 3, Timestamp: today})
	// Account 4: one journal entry today
	f.journal.Append(models.CashFlowEntry{AccountID: 4, Direction: models.Credit, Amount: 10, Timestamp: today})
	// Yesterday's activity is outside the window
	f.txlog.Append(models.Transaction{BuyerID: 5, SellerID: 6, Timestamp: yesterday})

	ranked := f.svc.ListTopUsers(10)
	require.Len(t, ranked, 4)

	// Account 1 leads with two activities
	assert.Equal(t, 1, ranked[0].AccountID)
	assert.Equal(t, 2, ranked[0].Count)

	// The three single-activity accounts tie; higher id wins
	assert.Equal(t, 4, ranked[1].AccountID)
	assert.Equal(t, 3, ranked[2].AccountID)
	assert.Equal(t, 2, ranked[3].AccountID)

	// Limit is applied after ranking
	assert.Len(t, f.svc.ListTopUsers(2), 2)
}

func TestService_ListRecentTransactions(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.freeze(now)

	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 2, Timestamp: now.Add(-5 * 24 * time.Hour)})
	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 2, Timestamp: now.Add(-2 * 24 * time.Hour)})
	f.txlog.Append(models.Transaction{BuyerID: 3, SellerID: 2, Timestamp: now.Add(-time.Hour)})

	recent := f.svc.ListRecentTransactions(3)
	require.Len(t, recent, 2)

	// Log order, not recency order
	assert.Equal(t, 2, recent[0].ID)
	assert.Equal(t, 3, recent[1].ID)
}

func TestService_ListUncompletedTransactions(t *testing.T) {
	f := newFixture()
	now := time.Now()

	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 2, Timestamp: now, Status: models.TransactionPaid})
	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 2, Timestamp: now, Status: models.TransactionCompleted})
	f.txlog.Append(models.Transaction{BuyerID: 3, SellerID: 2, Timestamp: now, Status: models.TransactionPaid})

	uncompleted := f.svc.ListUncompletedTransactions()
	require.Len(t, uncompleted, 2)
	for _, tx := range uncompleted {
		assert.Equal(t, models.TransactionPaid, tx.Status)
	}
}

func TestService_ListMostFrequentItems_TieBreaksLexically(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.freeze(now)

	for _, descriptor := range []string{"Cable", "Cable", "Speaker", "Adapter"} {
		f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 2, ItemDescriptor: descriptor, Timestamp: now})
	}

	ranked := f.svc.ListMostFrequentItems(10)
	require.Len(t, ranked, 3)
	assert.Equal(t, RankedItem{Descriptor: "Cable", Count: 2}, ranked[0])

	// Single-count tie: lexically greater descriptor first
	assert.Equal(t, "Speaker", ranked[1].Descriptor)
	assert.Equal(t, "Adapter", ranked[2].Descriptor)
}

func TestService_MostActiveBuyersAndSellers(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.freeze(now)

	// Buyer 1 twice, buyers 2-7 once each; seller 9 everywhere
	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 9, Timestamp: now})
	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 9, Timestamp: now})
	for buyer := 2; buyer <= 7; buyer++ {
		f.txlog.Append(models.Transaction{BuyerID: buyer, SellerID: 9, Timestamp: now})
	}

	buyers := f.svc.ListMostActiveBuyers()
	require.Len(t, buyers, 5) // fixed top five
	assert.Equal(t, 1, buyers[0].AccountID)
	assert.Equal(t, 2, buyers[0].Count)
	// Ties resolved toward higher ids
	assert.Equal(t, []int{7, 6, 5, 4}, []int{buyers[1].AccountID, buyers[2].AccountID, buyers[3].AccountID, buyers[4].AccountID})

	sellers := f.svc.ListMostActiveSellers()
	require.Len(t, sellers, 1)
	assert.Equal(t, 9, sellers[0].AccountID)
	assert.Equal(t, 8, sellers[0].Count)
}

func TestService_SellerScopedRankings(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.freeze(now)

	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-40 * 24 * time.Hour)

	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 9, ItemDescriptor: "Cable", Timestamp: recent})
	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 9, ItemDescriptor: "Cable", Timestamp: recent})
	f.txlog.Append(models.Transaction{BuyerID: 2, SellerID: 9, ItemDescriptor: "Speaker", Timestamp: recent})
	// Outside the 30-day window
	f.txlog.Append(models.Transaction{BuyerID: 3, SellerID: 9, ItemDescriptor: "Cable", Timestamp: stale})
	// Different seller
	f.txlog.Append(models.Transaction{BuyerID: 1, SellerID: 8, ItemDescriptor: "Cable", Timestamp: recent})

	items := f.svc.ListTopItemsForSeller(9, 10)
	require.Len(t, items, 2)
	assert.Equal(t, RankedItem{Descriptor: "Cable", Count: 2}, items[0])
	assert.Equal(t, RankedItem{Descriptor: "Speaker", Count: 1}, items[1])

	loyal := f.svc.ListLoyalCustomersForSeller(9)
	require.Len(t, loyal, 2)
	assert.Equal(t, 1, loyal[0].AccountID)
	assert.Equal(t, 2, loyal[0].Count)
	assert.Equal(t, 2, loyal[1].AccountID)
}
