package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/cleared-dev/ledgerval/internal/fixed"
)

// PriceType classifies a price quote.
type PriceType string

const (
	PriceTypeBid         PriceType = "bid"
	PriceTypeAsk         PriceType = "ask"
	PriceTypeLast        PriceType = "last"
	PriceTypeNAV         PriceType = "nav"
	PriceTypeTransaction PriceType = "transaction"
	PriceTypeUnknown     PriceType = "unknown"
)

// ParsePriceType accepts a quote type in any letter case. An empty string
// is unknown.
func ParsePriceType(s string) (PriceType, error) {
	t := PriceType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "":
		return PriceTypeUnknown, nil
	case PriceTypeBid, PriceTypeAsk, PriceTypeLast, PriceTypeNAV, PriceTypeTransaction, PriceTypeUnknown:
		return t, nil
	}
	return "", fmt.Errorf("unknown price type %q", s)
}

// PriceSource tells where a quote came from.
type PriceSource string

const (
	PriceSourceEditor  PriceSource = "user:price-editor"
	PriceSourceXfer    PriceSource = "user:xfer-dialog"
	PriceSourceQuote   PriceSource = "Finance::Quote"
	PriceSourceUnknown PriceSource = ""
)

// Price states that one unit of Commodity was worth Value units of
// Currency on Date.
type Price struct {
	ID        string
	Commodity CommodityID
	Currency  CommodityID
	Date      time.Time
	Value     fixed.Number
	Source    PriceSource
	Type      PriceType
}

// TaxAmountType tells whether a tax table entry is a rate or a fixed value.
type TaxAmountType string

const (
	TaxPercent TaxAmountType = "PERCENT"
	TaxValue   TaxAmountType = "VALUE"
)

// TaxTableEntry books an amount or percentage to a tax account.
type TaxTableEntry struct {
	AccountID string
	Amount    fixed.Number
	Type      TaxAmountType
}

// TaxTable is a named set of tax table entries.
type TaxTable struct {
	ID      string
	Name    string
	Entries []TaxTableEntry
}

// Percent is the sum of the table's PERCENT entries.
func (t TaxTable) Percent() fixed.Number {
	total := fixed.Zero
	for _, e := range t.Entries {
		if e.Type == TaxPercent {
			total = total.Add(e.Amount)
		}
	}
	return total
}
