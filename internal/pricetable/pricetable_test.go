package pricetable

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
)

var (
	usd  = model.Currency("USD")
	eur  = model.Currency("EUR")
	chf  = model.Currency("CHF")
	aapl = model.Security("NASDAQ", "AAPL")
)

func usdTable(t *testing.T) *Table {
	t.Helper()
	tab := New(usd)
	require.NoError(t, tab.SetConversionFactor("CURRENCY", "USD", fixed.New(1)))
	require.NoError(t, tab.SetConversionFactor("CURRENCY", "EUR", fixed.MustParse("1.08")))
	return tab
}

func TestConvertEURToUSD(t *testing.T) {
	tab := usdTable(t)

	got, err := tab.Convert(fixed.New(100), eur, usd)
	require.NoError(t, err)
	assert.True(t, got.ApproxEqual(fixed.MustParse("108.00"), fixed.Tolerance), "got %s", got)
}

func TestConvertMissingFactor(t *testing.T) {
	tab := usdTable(t)

	_, err := tab.Convert(fixed.New(100), usd, chf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoConversionFactor)

	var cerr *ConversionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, chf, cerr.Commodity)

	_, err = tab.Convert(fixed.New(100), chf, usd)
	assert.ErrorIs(t, err, ErrNoConversionFactor)
}

func TestConvertToBaseIdentity(t *testing.T) {
	tab := New(usd)
	got, err := tab.ConvertToBaseCurrency(fixed.MustParse("12.34"), usd)
	require.NoError(t, err)
	assert.Equal(t, "12.34", got.String())

	got, err = tab.ConvertFromBaseCurrency(fixed.MustParse("12.34"), usd)
	require.NoError(t, err)
	assert.Equal(t, "12.34", got.String())
}

func TestRoundTrip(t *testing.T) {
	tab := usdTable(t)
	require.NoError(t, tab.SetConversionFactor("NASDAQ", "AAPL", fixed.MustParse("187.3")))
	require.NoError(t, tab.SetConversionFactor("CURRENCY", "JPY", fixed.MustParse("0.0067")))

	amounts := []string{"0", "1", "-40", "123.45", "0.01", "99999.99"}
	for _, c := range []model.CommodityID{usd, eur, aapl, model.Currency("JPY")} {
		for _, s := range amounts {
			x := fixed.MustParse(s)
			inBase, err := tab.ConvertToBaseCurrency(x, c)
			require.NoError(t, err)
			back, err := tab.ConvertFromBaseCurrency(inBase, c)
			require.NoError(t, err)
			assert.True(t, back.ApproxEqual(x, fixed.Tolerance), "%s %s round-tripped to %s", s, c, back)
		}
	}
}

func TestTwoHopBetweenNonBase(t *testing.T) {
	tab := usdTable(t)
	require.NoError(t, tab.SetConversionFactor("CURRENCY", "GBP", fixed.MustParse("1.27")))

	got, err := tab.Convert(fixed.New(100), eur, model.Currency("GBP"))
	require.NoError(t, err)
	// 100 EUR = 108 USD = 85.039... GBP
	assert.Equal(t, "85.04", got.StringFixed(2))
}

func TestSetConversionFactor(t *testing.T) {
	tab := New(usd)
	require.NoError(t, tab.SetConversionFactor("CURRENCY", "EUR", fixed.MustParse("1.05")))
	require.NoError(t, tab.SetConversionFactor("CURRENCY", "EUR", fixed.MustParse("1.08")))
	require.NoError(t, tab.SetConversionFactor("CURRENCY", "EUR", fixed.MustParse("1.08")))

	f, ok := tab.ConversionFactor("CURRENCY", "EUR")
	require.True(t, ok)
	assert.Equal(t, "1.08", f.String())
	assert.Equal(t, 1, tab.Len())

	assert.Error(t, tab.SetConversionFactor("CURRENCY", "EUR", fixed.Zero))
	assert.Error(t, tab.SetConversionFactor("CURRENCY", "EUR", fixed.New(-1)))

	_, ok = tab.ConversionFactor("CURRENCY", "CHF")
	assert.False(t, ok)
}

func TestNamespacesCodesClear(t *testing.T) {
	tab := usdTable(t)
	require.NoError(t, tab.SetConversionFactor("NASDAQ", "AAPL", fixed.New(187)))
	require.NoError(t, tab.SetConversionFactor("NASDAQ", "MSFT", fixed.New(410)))

	assert.Equal(t, []string{"CURRENCY", "NASDAQ"}, tab.Namespaces())
	assert.Equal(t, []string{"AAPL", "MSFT"}, tab.Codes("NASDAQ"))
	assert.Len(t, tab.Factors(), 4)
	assert.Equal(t, eur, tab.Factors()[0].Commodity)

	tab.Clear()
	assert.Equal(t, 0, tab.Len())
	assert.Empty(t, tab.Namespaces())
	assert.Equal(t, usd, tab.Base())
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	tab := usdTable(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = tab.Convert(fixed.New(10), eur, usd)
			}
		}()
		go func(i int) {
			defer wg.Done()
			_ = tab.SetConversionFactor("CURRENCY", "EUR", fixed.New(int64(i+1)))
		}(i)
	}
	wg.Wait()
	_, ok := tab.ConversionFactor("CURRENCY", "EUR")
	assert.True(t, ok)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLoad(t *testing.T) {
	prices := []model.Price{
		{ID: "p1", Commodity: eur, Currency: usd, Date: day(2024, 1, 1), Value: fixed.MustParse("1.05")},
		{ID: "p2", Commodity: eur, Currency: usd, Date: day(2024, 3, 1), Value: fixed.MustParse("1.08")},
		{ID: "p3", Commodity: eur, Currency: usd, Date: day(2024, 2, 1), Value: fixed.MustParse("1.07")},
		{ID: "p4", Commodity: usd, Currency: eur, Date: day(2024, 3, 1), Value: fixed.MustParse("0.92")},
		{ID: "p5", Commodity: aapl, Currency: eur, Date: day(2024, 3, 1), Value: fixed.New(100)},
		{ID: "p6", Commodity: model.Security("NYSE", "IBM"), Currency: chf, Date: day(2024, 3, 1), Value: fixed.New(150)},
		{ID: "p7", Commodity: chf, Currency: usd, Date: day(2024, 3, 1), Value: fixed.Zero},
		{ID: "p8", Commodity: model.Currency("GBP"), Currency: usd, Date: day(2024, 3, 1), Value: fixed.MustParse("1.27")},
		{ID: "p9", Commodity: model.Currency("GBP"), Currency: usd, Date: day(2024, 3, 1), Value: fixed.MustParse("1.30")},
	}

	tab := Load(prices, usd, zerolog.Nop())

	f, ok := tab.ConversionFactor("CURRENCY", "EUR")
	require.True(t, ok)
	assert.Equal(t, "1.08", f.String(), "latest quote wins regardless of list order")

	_, ok = tab.ConversionFactor("CURRENCY", "USD")
	assert.False(t, ok, "quotes for the base currency are ignored")

	f, ok = tab.ConversionFactor("NASDAQ", "AAPL")
	require.True(t, ok)
	assert.Equal(t, "108", f.String(), "EUR quote chained through the EUR factor")

	_, ok = tab.ConversionFactor("NYSE", "IBM")
	assert.False(t, ok, "CHF has no factor")

	_, ok = tab.ConversionFactor("CURRENCY", "CHF")
	assert.False(t, ok, "zero quotes are ignored")

	f, ok = tab.ConversionFactor("CURRENCY", "GBP")
	require.True(t, ok)
	assert.Equal(t, "1.27", f.String(), "same-day tie keeps the first quote")
}

func TestLoadEmpty(t *testing.T) {
	tab := Load(nil, eur, zerolog.Nop())
	assert.Equal(t, 0, tab.Len())
	assert.Equal(t, eur, tab.Base())
}
