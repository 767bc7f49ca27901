// Package balance computes account balances, optionally converted into
// another commodity and rolled up over the account tree.
package balance

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
	"github.com/cleared-dev/ledgerval/internal/pricetable"
	"github.com/cleared-dev/ledgerval/internal/store"
)

// Source is the part of a book the engine reads.
type Source interface {
	Account(id string) (model.Account, error)
	Children(accountID string) ([]string, error)
	AccountSplits(accountID string) ([]model.Split, error)
	Transaction(id string) (model.Transaction, error)
}

// Engine computes balances over a book. It holds no state of its own
// beyond the shared price table, so one Engine may serve concurrent callers.
type Engine struct {
	src    Source
	prices *pricetable.Table
	log    zerolog.Logger
}

// New creates an Engine.
func New(src Source, prices *pricetable.Table, log zerolog.Logger) *Engine {
	return &Engine{
		src:    src,
		prices: prices,
		log:    log.With().Str("component", "balance").Logger(),
	}
}

// dated is a split together with its transaction's posting date.
type dated struct {
	split  model.Split
	posted time.Time
}

// splits returns the splits on an account with their posting dates.
func (e *Engine) splits(accountID string) ([]dated, error) {
	splits, err := e.src.AccountSplits(accountID)
	if err != nil {
		return nil, fmt.Errorf("reading splits of account %s: %w", accountID, err)
	}
	posted := make(map[string]time.Time)
	out := make([]dated, 0, len(splits))
	for _, s := range splits {
		d, ok := posted[s.TransactionID]
		if !ok {
			tx, err := e.src.Transaction(s.TransactionID)
			if err != nil {
				return nil, fmt.Errorf("reading transaction of split %s: %w", s.ID, err)
			}
			d = tx.DatePosted
			posted[s.TransactionID] = d
		}
		out = append(out, dated{split: s, posted: d})
	}
	return out, nil
}

// onOrBefore reports whether posted falls on or before the calendar day of
// asOf. A zero asOf includes everything.
func onOrBefore(posted, asOf time.Time) bool {
	if asOf.IsZero() {
		return true
	}
	return !model.Day(posted).After(model.Day(asOf))
}

// Balance sums the quantity of every split on the account whose transaction
// was posted on or before asOf. A zero asOf includes all splits. The result
// is in the account's own commodity.
func (e *Engine) Balance(accountID string, asOf time.Time) (fixed.Number, error) {
	splits, err := e.splits(accountID)
	if err != nil {
		return fixed.Number{}, err
	}
	total := fixed.Zero
	for _, d := range splits {
		if onOrBefore(d.posted, asOf) {
			total = total.Add(d.split.Quantity)
		}
	}
	return total, nil
}

// BalanceIn returns Balance converted into target through the price table.
// When the account already holds target the amount is returned unchanged.
// A missing conversion path yields a *pricetable.ConversionError.
func (e *Engine) BalanceIn(accountID string, asOf time.Time, target model.CommodityID) (fixed.Number, error) {
	acct, err := e.src.Account(accountID)
	if err != nil {
		return fixed.Number{}, err
	}
	amount, err := e.Balance(accountID, asOf)
	if err != nil {
		return fixed.Number{}, err
	}
	if acct.Commodity == target {
		return amount, nil
	}
	converted, err := e.prices.Convert(amount, acct.Commodity, target)
	if err != nil {
		return fixed.Number{}, fmt.Errorf("converting balance of account %s: %w", accountID, err)
	}
	return converted, nil
}

// BalanceRecursive adds the balance of the account and of every account
// below it, each converted into target on its own. An account whose
// balance cannot be converted contributes zero and is logged; its children
// are still visited. Only store errors are returned.
func (e *Engine) BalanceRecursive(accountID string, asOf time.Time, target model.CommodityID) (fixed.Number, error) {
	total := fixed.Zero
	err := e.walk(accountID, func(id string) error {
		amount, err := e.BalanceIn(id, asOf, target)
		var cerr *pricetable.ConversionError
		if errors.As(err, &cerr) {
			e.log.Warn().
				Str("account", id).
				Str("commodity", cerr.Commodity.String()).
				Str("target", target.String()).
				Msg("Skipping account without a conversion path")
			return nil
		}
		if err != nil {
			return err
		}
		total = total.Add(amount)
		return nil
	})
	if err != nil {
		return fixed.Number{}, err
	}
	return total, nil
}

// walk visits accountID and then its descendants, depth first.
func (e *Engine) walk(accountID string, fn func(id string) error) error {
	seen := make(map[string]bool)
	var visit func(string) error
	visit = func(id string) error {
		if seen[id] {
			return fmt.Errorf("account %s is its own ancestor", id)
		}
		seen[id] = true
		if err := fn(id); err != nil {
			return err
		}
		children, err := e.src.Children(id)
		if err != nil {
			return fmt.Errorf("reading children of account %s: %w", id, err)
		}
		for _, c := range children {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(accountID)
}

// HasTransactions reports whether any split is booked to the account.
func (e *Engine) HasTransactions(accountID string) (bool, error) {
	splits, err := e.src.AccountSplits(accountID)
	if err != nil {
		return false, fmt.Errorf("reading splits of account %s: %w", accountID, err)
	}
	return len(splits) > 0, nil
}

var errStop = errors.New("stop")

// HasTransactionsRecursive reports whether the account or any account below
// it has a split.
func (e *Engine) HasTransactionsRecursive(accountID string) (bool, error) {
	err := e.walk(accountID, func(id string) error {
		has, err := e.HasTransactions(id)
		if err != nil {
			return err
		}
		if has {
			return errStop
		}
		return nil
	})
	if errors.Is(err, errStop) {
		return true, nil
	}
	return false, err
}

// LastSplitBefore returns the split on the account with the latest posting
// date strictly before the start of the day of before. A zero before
// considers all splits. Among splits posted at the same instant the first
// one in book order wins.
func (e *Engine) LastSplitBefore(accountID string, before time.Time) (model.Split, bool, error) {
	last, ok, err := e.lastBefore(accountID, before)
	return last.split, ok, err
}

// LastSplitBeforeRecursive is LastSplitBefore over the account and every
// account below it.
func (e *Engine) LastSplitBeforeRecursive(accountID string, before time.Time) (model.Split, bool, error) {
	var best dated
	var found bool
	err := e.walk(accountID, func(id string) error {
		d, ok, err := e.lastBefore(id, before)
		if err != nil || !ok {
			return err
		}
		if !found || d.posted.After(best.posted) {
			best, found = d, true
		}
		return nil
	})
	if err != nil {
		return model.Split{}, false, err
	}
	return best.split, found, nil
}

func (e *Engine) lastBefore(accountID string, before time.Time) (dated, bool, error) {
	splits, err := e.splits(accountID)
	if err != nil {
		return dated{}, false, err
	}
	cutoff := model.Day(before)
	var best dated
	var found bool
	for _, d := range splits {
		if !before.IsZero() && !d.posted.Before(cutoff) {
			continue
		}
		if !found || d.posted.After(best.posted) {
			best, found = d, true
		}
	}
	return best, found, nil
}

// BalanceThrough returns the running balance of the account up to and
// including the given split, walking splits in posting order.
func (e *Engine) BalanceThrough(accountID, splitID string) (fixed.Number, error) {
	splits, err := e.splits(accountID)
	if err != nil {
		return fixed.Number{}, err
	}
	sort.SliceStable(splits, func(i, j int) bool {
		return splits[i].posted.Before(splits[j].posted)
	})
	total := fixed.Zero
	for _, d := range splits {
		total = total.Add(d.split.Quantity)
		if d.split.ID == splitID {
			return total, nil
		}
	}
	return fixed.Number{}, fmt.Errorf("split %q on account %s: %w", splitID, accountID, store.ErrNotFound)
}
