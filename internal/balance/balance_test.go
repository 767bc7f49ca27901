package balance

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
	"github.com/cleared-dev/ledgerval/internal/pricetable"
	"github.com/cleared-dev/ledgerval/internal/store"
)

var (
	eur  = model.Currency("EUR")
	usd  = model.Currency("USD")
	aapl = model.Security("NASDAQ", "AAPL")
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func loadBook(t *testing.T) *store.Memory {
	t.Helper()
	m, err := store.LoadYAML(filepath.Join("..", "store", "testdata", "book.yaml"))
	require.NoError(t, err)
	return m
}

func setupEngine(t *testing.T) (*Engine, *store.Memory) {
	t.Helper()
	book := loadBook(t)
	prices, err := book.Prices()
	require.NoError(t, err)
	return New(book, pricetable.Load(prices, eur, zerolog.Nop()), zerolog.Nop()), book
}

func TestBalance(t *testing.T) {
	e, _ := setupEngine(t)

	tests := []struct {
		account string
		asOf    time.Time
		want    string
	}{
		{"bank", time.Time{}, "3398.5"},
		{"bank", day(2024, 1, 9), "0"},
		{"bank", day(2024, 1, 10), "5000"},
		{"bank", day(2024, 2, 14), "5000"},
		{"bank", day(2024, 2, 15), "5050"},
		{"bank", day(2024, 3, 24), "3490.5"},
		{"bank", day(2024, 3, 25), "3398.5"},
		{"bank", time.Date(2024, 3, 25, 9, 0, 0, 0, time.UTC), "3398.5"},
		{"brokerage", time.Time{}, "10"},
		{"usdcash", time.Time{}, "100"},
		{"receivable", time.Time{}, "79.7"},
		{"payable", time.Time{}, "0"},
		{"assets", time.Time{}, "0"},
	}
	for _, tt := range tests {
		got, err := e.Balance(tt.account, tt.asOf)
		require.NoError(t, err, "account %s", tt.account)
		assert.Equal(t, tt.want, got.String(), "account %s as of %s", tt.account, tt.asOf.Format("2006-01-02"))
	}
}

func TestBalanceMonotonicInDate(t *testing.T) {
	e, _ := setupEngine(t)

	dates := []time.Time{day(2024, 1, 1), day(2024, 1, 10), day(2024, 2, 1), day(2024, 2, 15), day(2024, 3, 1), day(2024, 3, 10), day(2024, 3, 20), day(2024, 3, 25)}
	var prev int
	for i, d := range dates {
		splits, err := e.splits("bank")
		require.NoError(t, err)
		n := 0
		for _, s := range splits {
			if onOrBefore(s.posted, d) {
				n++
			}
		}
		if i > 0 {
			assert.GreaterOrEqual(t, n, prev)
		}
		prev = n
	}
}

func TestBalanceUnknownAccount(t *testing.T) {
	e, _ := setupEngine(t)
	_, err := e.Balance("nope", time.Time{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = e.BalanceIn("nope", time.Time{}, eur)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = e.BalanceRecursive("nope", time.Time{}, eur)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBalanceIn(t *testing.T) {
	e, _ := setupEngine(t)

	got, err := e.BalanceIn("bank", time.Time{}, eur)
	require.NoError(t, err)
	assert.Equal(t, "3398.5", got.String(), "same commodity is not converted")

	got, err = e.BalanceIn("usdcash", time.Time{}, eur)
	require.NoError(t, err)
	assert.Equal(t, "92", got.String())

	got, err = e.BalanceIn("brokerage", time.Time{}, eur)
	require.NoError(t, err)
	assert.Equal(t, "1656", got.String(), "AAPL is quoted in USD and chained through USD")

	got, err = e.BalanceIn("bank", time.Time{}, usd)
	require.NoError(t, err)
	assert.Equal(t, "3694.02", got.StringFixed(2))

	got, err = e.BalanceIn("usdcash", time.Time{}, usd)
	require.NoError(t, err)
	assert.Equal(t, "100", got.String())
}

func TestBalanceInNoPath(t *testing.T) {
	book := loadBook(t)
	e := New(book, pricetable.New(eur), zerolog.Nop())

	_, err := e.BalanceIn("brokerage", time.Time{}, eur)
	require.Error(t, err)
	assert.ErrorIs(t, err, pricetable.ErrNoConversionFactor)
	var cerr *pricetable.ConversionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, aapl, cerr.Commodity)

	_, err = e.BalanceIn("bank", time.Time{}, model.Currency("CHF"))
	assert.ErrorIs(t, err, pricetable.ErrNoConversionFactor)
}

func TestBalanceRecursive(t *testing.T) {
	e, _ := setupEngine(t)

	got, err := e.BalanceRecursive("assets", time.Time{}, eur)
	require.NoError(t, err)
	assert.Equal(t, "5226.2", got.String())

	got, err = e.BalanceRecursive("liabilities", time.Time{}, eur)
	require.NoError(t, err)
	assert.Equal(t, "-10.2", got.String())

	got, err = e.BalanceRecursive("root", time.Time{}, eur)
	require.NoError(t, err)
	assert.Equal(t, "156", got.String(), "AAPL revaluation is the only unbalanced amount")

	got, err = e.BalanceRecursive("bank", time.Time{}, eur)
	require.NoError(t, err)
	assert.Equal(t, "3398.5", got.String(), "a leaf equals its own balance")

	got, err = e.BalanceRecursive("assets", day(2024, 2, 1), eur)
	require.NoError(t, err)
	assert.Equal(t, "5129.7", got.String())
}

func TestBalanceRecursiveSkipsUnconvertible(t *testing.T) {
	book := loadBook(t)
	tab := pricetable.New(eur)
	require.NoError(t, tab.SetConversionFactor("CURRENCY", "USD", fixed.MustParse("0.92")))
	e := New(book, tab, zerolog.Nop())

	got, err := e.BalanceRecursive("assets", time.Time{}, eur)
	require.NoError(t, err)
	assert.Equal(t, "3570.2", got.String(), "brokerage has no AAPL factor and contributes zero")

	got, err = e.BalanceRecursive("brokerage", time.Time{}, eur)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestBalanceRecursiveAtLeastOwnBalance(t *testing.T) {
	e, _ := setupEngine(t)

	own, err := e.BalanceIn("assets", time.Time{}, eur)
	require.NoError(t, err)
	all, err := e.BalanceRecursive("assets", time.Time{}, eur)
	require.NoError(t, err)
	assert.True(t, all.Cmp(own) >= 0)
}

func TestHasTransactions(t *testing.T) {
	book := loadBook(t)
	recs := book.Records()
	recs.Accounts = append(recs.Accounts, model.Account{ID: "empty", Name: "Empty", Type: model.AccountTypeAsset, ParentID: "assets", Commodity: eur})
	e := New(store.NewMemory(recs), pricetable.New(eur), zerolog.Nop())

	has, err := e.HasTransactions("bank")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = e.HasTransactions("assets")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = e.HasTransactionsRecursive("assets")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = e.HasTransactionsRecursive("empty")
	require.NoError(t, err)
	assert.False(t, has)

	bal, err := e.Balance("empty", day(2030, 1, 1))
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	_, err = e.HasTransactionsRecursive("nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLastSplitBefore(t *testing.T) {
	e, _ := setupEngine(t)

	s, ok, err := e.LastSplitBefore("bank", day(2024, 3, 10))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s6", s.ID, "the cutoff day itself is excluded")

	s, ok, err = e.LastSplitBefore("bank", day(2024, 3, 11))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s12", s.ID)

	s, ok, err = e.LastSplitBefore("bank", time.Time{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s16", s.ID)

	_, ok, err = e.LastSplitBefore("bank", day(2024, 1, 10))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastSplitBeforeRecursive(t *testing.T) {
	e, _ := setupEngine(t)

	s, ok, err := e.LastSplitBeforeRecursive("assets", day(2024, 3, 1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s6", s.ID, "same-day tie keeps the first account visited")

	s, ok, err = e.LastSplitBeforeRecursive("root", time.Time{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t7", s.TransactionID)

	_, ok, err = e.LastSplitBeforeRecursive("assets", day(2023, 1, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBalanceThrough(t *testing.T) {
	e, _ := setupEngine(t)

	got, err := e.BalanceThrough("bank", "s12")
	require.NoError(t, err)
	assert.Equal(t, "4990.5", got.String())

	got, err = e.BalanceThrough("bank", "s1")
	require.NoError(t, err)
	assert.Equal(t, "5000", got.String())

	_, err = e.BalanceThrough("bank", "s3")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
