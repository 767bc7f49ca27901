package model

import (
	"time"

	"github.com/cleared-dev/ledgerval/internal/fixed"
)

// SplitAction is the free-form action tag of a split. Only ActionPayment
// carries meaning for reconciliation.
type SplitAction string

const (
	ActionInvoice  SplitAction = "Invoice"
	ActionBill     SplitAction = "Bill"
	ActionVoucher  SplitAction = "Voucher"
	ActionPayment  SplitAction = "Payment"
	ActionBuy      SplitAction = "Buy"
	ActionSell     SplitAction = "Sell"
	ActionIncrease SplitAction = "Increase"
	ActionDecrease SplitAction = "Decrease"
)

// Split is one leg of a double-entry transaction.
type Split struct {
	ID            string
	TransactionID string
	AccountID     string
	Value         fixed.Number // in the transaction's currency
	Quantity      fixed.Number // in the account's commodity
	Action        SplitAction
	LotID         string // "" = not part of a lot
	Memo          string
}

// HasLot reports whether the split belongs to a lot.
func (s Split) HasLot() bool { return s.LotID != "" }

// Transaction groups two or more splits. Splits keeps store order.
type Transaction struct {
	ID          string
	Currency    CommodityID
	Number      string
	Description string
	DatePosted  time.Time
	DateEntered time.Time
	Splits      []Split
}

// Day truncates t to its calendar day in UTC, keeping t's own wall date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PostedOnOrBefore reports whether the transaction was posted on or before
// the calendar day of asOf.
func (t Transaction) PostedOnOrBefore(asOf time.Time) bool {
	return !Day(t.DatePosted).After(Day(asOf))
}
