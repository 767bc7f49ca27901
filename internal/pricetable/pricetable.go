// Package pricetable stores one conversion factor per commodity into a
// single base currency and converts amounts through it.
//
// Only to-base factors are kept, so converting between two non-base
// commodities always takes two hops: to the base currency, then from it.
package pricetable

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
)

// ErrNoConversionFactor is returned when a commodity has no factor.
var ErrNoConversionFactor = errors.New("no conversion factor")

// ConversionError names the commodity that could not be converted.
type ConversionError struct {
	Commodity model.CommodityID
	Base      model.CommodityID
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s: %s (base %s)", ErrNoConversionFactor, e.Commodity, e.Base)
}

// Unwrap lets errors.Is match ErrNoConversionFactor.
func (e *ConversionError) Unwrap() error { return ErrNoConversionFactor }

// Table maps commodities to their value in the base currency. It is safe
// for concurrent use.
type Table struct {
	mu      sync.RWMutex
	base    model.CommodityID
	factors map[model.CommodityID]fixed.Number
}

// New creates an empty table routed through base.
func New(base model.CommodityID) *Table {
	return &Table{base: base, factors: make(map[model.CommodityID]fixed.Number)}
}

// Base returns the base currency.
func (t *Table) Base() model.CommodityID {
	return t.base
}

// SetConversionFactor stores or overwrites the to-base factor of a
// commodity. Factors must be positive.
func (t *Table) SetConversionFactor(namespace, code string, factor fixed.Number) error {
	if !factor.IsPositive() {
		return fmt.Errorf("conversion factor for %s:%s must be positive, got %s", namespace, code, factor)
	}
	id := model.CommodityID{Namespace: namespace, Code: code}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.factors[id] = factor
	return nil
}

// ConversionFactor returns the stored factor without computing anything.
func (t *Table) ConversionFactor(namespace, code string) (fixed.Number, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.factors[model.CommodityID{Namespace: namespace, Code: code}]
	return f, ok
}

// factor resolves id, treating the base currency as 1.
func (t *Table) factor(id model.CommodityID) (fixed.Number, error) {
	if id == t.base {
		return fixed.One, nil
	}
	t.mu.RLock()
	f, ok := t.factors[id]
	t.mu.RUnlock()
	if !ok {
		return fixed.Number{}, &ConversionError{Commodity: id, Base: t.base}
	}
	return f, nil
}

// ConvertToBaseCurrency multiplies amount by the factor of commodity.
func (t *Table) ConvertToBaseCurrency(amount fixed.Number, commodity model.CommodityID) (fixed.Number, error) {
	f, err := t.factor(commodity)
	if err != nil {
		return fixed.Number{}, err
	}
	if commodity == t.base {
		return amount, nil
	}
	return amount.Mul(f), nil
}

// ConvertFromBaseCurrency divides amount by the factor of target.
func (t *Table) ConvertFromBaseCurrency(amount fixed.Number, target model.CommodityID) (fixed.Number, error) {
	f, err := t.factor(target)
	if err != nil {
		return fixed.Number{}, err
	}
	if target == t.base {
		return amount, nil
	}
	return amount.Div(f), nil
}

// Convert moves amount from one commodity to another through the base
// currency. Either both hops succeed or an error is returned.
func (t *Table) Convert(amount fixed.Number, from, to model.CommodityID) (fixed.Number, error) {
	if from == to {
		return amount, nil
	}
	inBase, err := t.ConvertToBaseCurrency(amount, from)
	if err != nil {
		return fixed.Number{}, err
	}
	out, err := t.ConvertFromBaseCurrency(inBase, to)
	if err != nil {
		return fixed.Number{}, err
	}
	return out, nil
}

// Clear drops every factor.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.factors = make(map[model.CommodityID]fixed.Number)
}

// Len returns the number of stored factors.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.factors)
}

// Namespaces lists the namespaces that have at least one factor, sorted.
func (t *Table) Namespaces() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for id := range t.factors {
		if !seen[id.Namespace] {
			seen[id.Namespace] = true
			out = append(out, id.Namespace)
		}
	}
	sort.Strings(out)
	return out
}

// Codes lists the codes with a factor in namespace, sorted.
func (t *Table) Codes(namespace string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for id := range t.factors {
		if id.Namespace == namespace {
			out = append(out, id.Code)
		}
	}
	sort.Strings(out)
	return out
}

// Factor pairs a commodity with its to-base factor.
type Factor struct {
	Commodity model.CommodityID
	Value     fixed.Number
}

// Factors returns every stored factor ordered by commodity.
func (t *Table) Factors() []Factor {
	t.mu.RLock()
	out := make([]Factor, 0, len(t.factors))
	for id, f := range t.factors {
		out = append(out, Factor{Commodity: id, Value: f})
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Commodity.Namespace != out[j].Commodity.Namespace {
			return out[i].Commodity.Namespace < out[j].Commodity.Namespace
		}
		return out[i].Commodity.Code < out[j].Commodity.Code
	})
	return out
}
