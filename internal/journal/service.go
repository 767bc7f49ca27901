// Package journal builds the register of an account: its splits in posting
// order with a running balance, as GnuCash shows it and as CSV.
package journal

import (
	"fmt"
	"sort"
	"time"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
)

// Source is the part of the store the register reads.
type Source interface {
	Account(id string) (model.Account, error)
	AccountSplits(accountID string) ([]model.Split, error)
	Transaction(id string) (model.Transaction, error)
}

// Row is one line of an account register.
type Row struct {
	Date          time.Time
	TransactionID string
	Num           string
	Description   string
	SplitID       string
	Action        model.SplitAction
	Memo          string
	LotID         string
	Value         fixed.Number // transaction currency
	Quantity      fixed.Number // account commodity
	Balance       fixed.Number // running, in the account commodity
}

// Debit is the positive side of the quantity, zero otherwise.
func (r Row) Debit() fixed.Number {
	if r.Quantity.IsPositive() {
		return r.Quantity
	}
	return fixed.Zero
}

// Credit is the negated negative side of the quantity, zero otherwise.
func (r Row) Credit() fixed.Number {
	if r.Quantity.IsNegative() {
		return r.Quantity.Neg()
	}
	return fixed.Zero
}

// Service provides account registers.
type Service struct {
	src Source
}

// NewService creates a journal Service.
func NewService(src Source) *Service {
	return &Service{src: src}
}

// Register returns the splits of an account ordered by posting date, ties
// in store order, each with the balance through that split. A non-zero
// asOf stops after the last split posted on or before that day.
func (s *Service) Register(accountID string, asOf time.Time) ([]Row, error) {
	if _, err := s.src.Account(accountID); err != nil {
		return nil, err
	}
	splits, err := s.src.AccountSplits(accountID)
	if err != nil {
		return nil, fmt.Errorf("reading splits of account %s: %w", accountID, err)
	}

	txs := make(map[string]model.Transaction)
	rows := make([]Row, 0, len(splits))
	for _, sp := range splits {
		tx, ok := txs[sp.TransactionID]
		if !ok {
			tx, err = s.src.Transaction(sp.TransactionID)
			if err != nil {
				return nil, fmt.Errorf("reading transaction of split %s: %w", sp.ID, err)
			}
			txs[sp.TransactionID] = tx
		}
		if !asOf.IsZero() && !tx.PostedOnOrBefore(asOf) {
			continue
		}
		rows = append(rows, Row{
			Date:          tx.DatePosted,
			TransactionID: tx.ID,
			Num:           tx.Number,
			Description:   tx.Description,
			SplitID:       sp.ID,
			Action:        sp.Action,
			Memo:          sp.Memo,
			LotID:         sp.LotID,
			Value:         sp.Value,
			Quantity:      sp.Quantity,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	total := fixed.Zero
	for i := range rows {
		total = total.Add(rows[i].Quantity)
		rows[i].Balance = total
	}
	return rows, nil
}
