package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerval/internal/model"
)

const sampleQuotes = `date,commodity,currency,value,type
2024-03-01,USD,EUR,0.92,last
2024-03-20,NASDAQ:AAPL,USD,180.25
2024-03-21, NYSE:IBM, USD, 190, nav
`

func TestQuotesParser(t *testing.T) {
	prices, err := (&QuotesParser{}).Parse(strings.NewReader(sampleQuotes))
	require.NoError(t, err)
	require.Len(t, prices, 3)

	assert.Equal(t, model.Currency("USD"), prices[0].Commodity)
	assert.Equal(t, model.Currency("EUR"), prices[0].Currency)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), prices[0].Date)
	assert.Equal(t, "0.92", prices[0].Value.String())
	assert.Equal(t, model.PriceTypeLast, prices[0].Type)
	assert.Equal(t, model.PriceSourceQuote, prices[0].Source)
	assert.Empty(t, prices[0].ID)

	assert.Equal(t, model.Security("NASDAQ", "AAPL"), prices[1].Commodity)
	assert.Equal(t, model.PriceTypeUnknown, prices[1].Type)

	assert.Equal(t, model.Security("NYSE", "IBM"), prices[2].Commodity)
	assert.Equal(t, model.PriceTypeNAV, prices[2].Type)
}

func TestFractionParser(t *testing.T) {
	in := "date,commodity,currency,value\n2024-03-01,USD,EUR,92/100\n"
	prices, err := (&FractionParser{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "0.92", prices[0].Value.String())

	_, err = (&QuotesParser{}).Parse(strings.NewReader(in))
	assert.Error(t, err, "plain parser rejects fractions")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"short row", "2024-03-01,USD,EUR"},
		{"bad date", "03/01/2024,USD,EUR,0.92"},
		{"bad commodity", "2024-03-01,:X,EUR,0.92"},
		{"unknown currency", "2024-03-01,USD,XXZ,0.92"},
		{"bad value", "2024-03-01,USD,EUR,abc"},
		{"zero value", "2024-03-01,USD,EUR,0"},
		{"bad type", "2024-03-01,USD,EUR,0.92,mid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&QuotesParser{}).Parse(strings.NewReader("date,commodity,currency,value\n" + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}

func TestParseHeaderOnly(t *testing.T) {
	prices, err := (&QuotesParser{}).Parse(strings.NewReader("date,commodity,currency,value\n"))
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"gnucash", "quotes"}, r.Formats())
	assert.NotNil(t, r.Get("QUOTES"))
	assert.Nil(t, r.Get("chase"))

	prices, err := r.Parse("quotes", strings.NewReader(sampleQuotes))
	require.NoError(t, err)
	assert.Len(t, prices, 3)

	_, err = r.Parse("chase", strings.NewReader(sampleQuotes))
	assert.ErrorContains(t, err, "unknown quote format")

	assert.Panics(t, func() { r.Register(&QuotesParser{}) })
}
