// Package invoice values invoices, bills and vouchers from their entries.
package invoice

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
)

// ErrWrongInvoiceType is returned when an owner-specific computation is
// asked of an invoice with a different owner kind.
var ErrWrongInvoiceType = errors.New("wrong invoice type")

// Source is the part of a book the valuator reads.
type Source interface {
	InvoiceEntries(invoiceID string) ([]model.InvoiceEntry, error)
	Job(id string) (model.Job, error)
}

// EntryWriter stores edited entries.
type EntryWriter interface {
	UpdateEntry(e model.InvoiceEntry) error
}

// TaxedSum is the tax collected at one rate.
type TaxedSum struct {
	Rate   fixed.Number // percent
	Amount fixed.Number
}

// Valuator computes invoice sums.
type Valuator struct {
	src Source
	log zerolog.Logger
}

// New creates a Valuator.
func New(src Source, log zerolog.Logger) *Valuator {
	return &Valuator{src: src, log: log.With().Str("component", "invoice").Logger()}
}

// ResolveKind returns the economic owner kind of an invoice. Job invoices
// resolve to the kind of the job's owner, which must be a customer or a
// vendor.
func (v *Valuator) ResolveKind(inv model.Invoice) (model.OwnerKind, error) {
	if inv.Owner.Kind != model.OwnerJob {
		if !inv.Owner.Kind.Valid() {
			return "", fmt.Errorf("invoice %s has owner kind %q: %w", inv.ID, inv.Owner.Kind, ErrWrongInvoiceType)
		}
		return inv.Owner.Kind, nil
	}
	job, err := v.src.Job(inv.Owner.ID)
	if err != nil {
		return "", fmt.Errorf("resolving owner of invoice %s: %w", inv.ID, err)
	}
	switch job.Owner.Kind {
	case model.OwnerCustomer, model.OwnerVendor:
		return job.Owner.Kind, nil
	}
	return "", fmt.Errorf("job %s of invoice %s is owned by %q: %w", job.ID, inv.ID, job.Owner.Kind, ErrWrongInvoiceType)
}

// Check verifies that kind is a valid view of the invoice: its own owner
// kind, or for a job invoice the kind its job resolves to.
func (v *Valuator) Check(inv model.Invoice, kind model.OwnerKind) error {
	if kind == inv.Owner.Kind {
		if kind == model.OwnerJob {
			_, err := v.ResolveKind(inv)
			return err
		}
		return nil
	}
	if inv.Owner.Kind == model.OwnerJob {
		resolved, err := v.ResolveKind(inv)
		if err != nil {
			return err
		}
		if resolved == kind {
			return nil
		}
	}
	return fmt.Errorf("invoice %s is owned by a %s, not a %s: %w", inv.ID, inv.Owner.Kind, kind, ErrWrongInvoiceType)
}

// EntrySumWithoutTax returns quantity times unit price.
func EntrySumWithoutTax(e model.InvoiceEntry) fixed.Number {
	return e.Quantity.Mul(e.Price)
}

// EntrySumWithTax returns quantity times unit price times one plus the
// tax rate.
func EntrySumWithTax(e model.InvoiceEntry) fixed.Number {
	return EntrySumWithoutTax(e).Mul(fixed.One.Add(e.TaxRate.Percent()))
}

// EntryTax returns the tax amount of an entry.
func EntryTax(e model.InvoiceEntry) fixed.Number {
	return EntrySumWithTax(e).Sub(EntrySumWithoutTax(e))
}

func (v *Valuator) entries(inv model.Invoice) ([]model.InvoiceEntry, error) {
	entries, err := v.src.InvoiceEntries(inv.ID)
	if err != nil {
		return nil, fmt.Errorf("reading entries of invoice %s: %w", inv.ID, err)
	}
	return entries, nil
}

// SumWithTax totals the invoice's entries including tax.
func (v *Valuator) SumWithTax(inv model.Invoice) (fixed.Number, error) {
	entries, err := v.entries(inv)
	if err != nil {
		return fixed.Number{}, err
	}
	total := fixed.Zero
	for _, e := range entries {
		total = total.Add(EntrySumWithTax(e))
	}
	return total, nil
}

// SumWithoutTax totals the invoice's entries excluding tax.
func (v *Valuator) SumWithoutTax(inv model.Invoice) (fixed.Number, error) {
	entries, err := v.entries(inv)
	if err != nil {
		return fixed.Number{}, err
	}
	total := fixed.Zero
	for _, e := range entries {
		total = total.Add(EntrySumWithoutTax(e))
	}
	return total, nil
}

// SumWithTaxAs is SumWithTax for callers that expect a given owner kind.
func (v *Valuator) SumWithTaxAs(inv model.Invoice, kind model.OwnerKind) (fixed.Number, error) {
	if err := v.Check(inv, kind); err != nil {
		return fixed.Number{}, err
	}
	return v.SumWithTax(inv)
}

// SumWithoutTaxAs is SumWithoutTax for callers that expect a given owner kind.
func (v *Valuator) SumWithoutTaxAs(inv model.Invoice, kind model.OwnerKind) (fixed.Number, error) {
	if err := v.Check(inv, kind); err != nil {
		return fixed.Number{}, err
	}
	return v.SumWithoutTax(inv)
}

// TaxBreakdown groups the tax of each entry by rate. Rates compare by
// numeric value and groups keep the order in which a rate first appears.
func (v *Valuator) TaxBreakdown(inv model.Invoice) ([]TaxedSum, error) {
	entries, err := v.entries(inv)
	if err != nil {
		return nil, err
	}
	var out []TaxedSum
	for _, e := range entries {
		tax := EntryTax(e)
		i := 0
		for i < len(out) && !out[i].Rate.Equal(e.TaxRate) {
			i++
		}
		if i == len(out) {
			out = append(out, TaxedSum{Rate: e.TaxRate, Amount: fixed.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tax)
	}
	return out, nil
}

// ApplyTaxTable sets the entry's tax rate to the total percentage of table
// and stores the entry through w.
func (v *Valuator) ApplyTaxTable(w EntryWriter, e model.InvoiceEntry, table model.TaxTable) (model.InvoiceEntry, error) {
	for _, te := range table.Entries {
		if te.Type == model.TaxValue {
			v.log.Warn().
				Str("taxtable", table.ID).
				Str("account", te.AccountID).
				Msg("Ignoring fixed-value tax table entry")
		}
	}
	e.TaxTableID = table.ID
	e.TaxRate = table.Percent()
	if err := w.UpdateEntry(e); err != nil {
		return model.InvoiceEntry{}, fmt.Errorf("updating entry %s: %w", e.ID, err)
	}
	v.log.Debug().Str("entry", e.ID).Str("rate", e.TaxRate.String()).Msg("Applied tax table")
	return e, nil
}
