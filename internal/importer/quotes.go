package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
)

const (
	quotesDateFormat = "2006-01-02"
	quotesMinFields  = 4
	quotesColDate    = 0
	quotesColComm    = 1
	quotesColCur     = 2
	quotesColValue   = 3
	quotesColType    = 4
)

// QuotesParser reads "date,commodity,currency,value[,type]" files with a
// header row. Commodities use NAMESPACE:CODE or a bare currency code.
type QuotesParser struct{}

// Format returns the parser name.
func (p *QuotesParser) Format() string { return "quotes" }

// Parse reads a quotes CSV.
func (p *QuotesParser) Parse(r io.Reader) ([]model.Price, error) {
	return parseQuotes(r, "quotes", fixed.Parse)
}

// FractionParser reads the same layout as QuotesParser with values in
// GnuCash "num/denom" notation.
type FractionParser struct{}

// Format returns the parser name.
func (p *FractionParser) Format() string { return "gnucash" }

// Parse reads a quotes CSV with fractional values.
func (p *FractionParser) Parse(r io.Reader) ([]model.Price, error) {
	return parseQuotes(r, "gnucash", fixed.ParseFraction)
}

func parseQuotes(r io.Reader, name string, parseValue func(string) (fixed.Number, error)) ([]model.Price, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", name, err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var prices []model.Price
	for i, rec := range records[1:] {
		row := i + 2
		if len(rec) < quotesMinFields {
			return nil, fmt.Errorf("row %d: expected at least %d fields, got %d", row, quotesMinFields, len(rec))
		}

		date, err := time.Parse(quotesDateFormat, strings.TrimSpace(rec[quotesColDate]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", row, rec[quotesColDate], err)
		}
		commodity, err := model.ParseCommodityID(rec[quotesColComm])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		currency, err := model.ParseCommodityID(rec[quotesColCur])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if err := currency.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		value, err := parseValue(strings.TrimSpace(rec[quotesColValue]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing value %q: %w", row, rec[quotesColValue], err)
		}
		if !value.IsPositive() {
			return nil, fmt.Errorf("row %d: value %s is not positive", row, value)
		}

		typ := model.PriceTypeUnknown
		if len(rec) > quotesColType {
			typ, err = model.ParsePriceType(rec[quotesColType])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
		}

		prices = append(prices, model.Price{
			Commodity: commodity,
			Currency:  currency,
			Date:      date,
			Value:     value,
			Source:    model.PriceSourceQuote,
			Type:      typ,
		})
	}
	return prices, nil
}
