// Package reconcile links invoices to the transactions that pay them and
// derives paid and unpaid amounts.
//
// An invoice and its payments share nothing but a lot id: a split pays an
// invoice when it carries the invoice's lot and the Payment action.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/invoice"
	"github.com/cleared-dev/ledgerval/internal/model"
)

// Source is the part of a book the reconciler reads.
type Source interface {
	Account(id string) (model.Account, error)
	Transactions() ([]model.Transaction, error)
	Invoices() ([]model.Invoice, error)
}

// Valuator is the invoice valuation the reconciler builds on.
type Valuator interface {
	ResolveKind(inv model.Invoice) (model.OwnerKind, error)
	Check(inv model.Invoice, kind model.OwnerKind) error
	SumWithTax(inv model.Invoice) (fixed.Number, error)
	SumWithoutTax(inv model.Invoice) (fixed.Number, error)
}

var _ Valuator = (*invoice.Valuator)(nil)

// Reconciler computes payment state for invoices.
type Reconciler struct {
	src       Source
	val       Valuator
	tolerance fixed.Number
	log       zerolog.Logger
}

// New creates a Reconciler. tolerance bounds the rounding noise accepted
// when deciding whether an invoice is fully paid.
func New(src Source, val Valuator, tolerance fixed.Number, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		src:       src,
		val:       val,
		tolerance: tolerance.Abs(),
		log:       log.With().Str("component", "reconcile").Logger(),
	}
}

// Index maps lot ids to the payment splits carrying them and the
// transactions that own those splits.
type Index struct {
	candidates map[string][]model.Split
	txs        map[string]model.Transaction
}

// IsPayment reports whether a split is tagged as a payment.
func IsPayment(s model.Split) bool {
	return strings.EqualFold(string(s.Action), string(model.ActionPayment))
}

// NewIndex indexes the payment splits of txs by lot.
func NewIndex(txs []model.Transaction) *Index {
	ix := &Index{candidates: make(map[string][]model.Split), txs: make(map[string]model.Transaction)}
	for _, tx := range txs {
		for _, s := range tx.Splits {
			if !s.HasLot() || !IsPayment(s) {
				continue
			}
			if s.TransactionID == "" {
				s.TransactionID = tx.ID
			}
			ix.candidates[s.LotID] = append(ix.candidates[s.LotID], s)
			ix.txs[tx.ID] = tx
		}
	}
	return ix
}

// Candidates returns the payment splits carrying lot.
func (ix *Index) Candidates(lot string) []model.Split {
	return ix.candidates[lot]
}

// Transactions returns the distinct transactions owning a payment split on
// lot, in the order their first split was indexed.
func (ix *Index) Transactions(lot string) []model.Transaction {
	if lot == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []model.Transaction
	for _, s := range ix.candidates[lot] {
		if seen[s.TransactionID] {
			continue
		}
		seen[s.TransactionID] = true
		out = append(out, ix.txs[s.TransactionID])
	}
	return out
}

// Index builds a lot index over the whole book.
func (r *Reconciler) Index() (*Index, error) {
	txs, err := r.src.Transactions()
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	return NewIndex(txs), nil
}

// PayingTransactions returns the transactions paying an invoice. Callers
// must not rely on their order. An unposted invoice has none.
func (r *Reconciler) PayingTransactions(inv model.Invoice) ([]model.Transaction, error) {
	ix, err := r.Index()
	if err != nil {
		return nil, err
	}
	return ix.Transactions(inv.LotID), nil
}

// AmountPaidWithTax sums the payments recorded against an invoice.
func (r *Reconciler) AmountPaidWithTax(inv model.Invoice) (fixed.Number, error) {
	ix, err := r.Index()
	if err != nil {
		return fixed.Number{}, err
	}
	return r.paid(ix, inv)
}

// AmountUnpaidWithTax returns the invoice total with tax minus payments.
func (r *Reconciler) AmountUnpaidWithTax(inv model.Invoice) (fixed.Number, error) {
	st, err := r.Status(inv)
	if err != nil {
		return fixed.Number{}, err
	}
	return st.Unpaid, nil
}

// IsFullyPaid reports whether payments cover the invoice total with tax,
// allowing for the configured tolerance.
func (r *Reconciler) IsFullyPaid(inv model.Invoice) (bool, error) {
	st, err := r.Status(inv)
	if err != nil {
		return false, err
	}
	return st.FullyPaid, nil
}

// AmountPaidWithTaxAs is AmountPaidWithTax for callers that expect the
// invoice to belong to kind. It fails with invoice.ErrWrongInvoiceType
// otherwise.
func (r *Reconciler) AmountPaidWithTaxAs(inv model.Invoice, kind model.OwnerKind) (fixed.Number, error) {
	if err := r.val.Check(inv, kind); err != nil {
		return fixed.Number{}, err
	}
	return r.AmountPaidWithTax(inv)
}

// AmountUnpaidWithTaxAs is AmountUnpaidWithTax checked against kind.
func (r *Reconciler) AmountUnpaidWithTaxAs(inv model.Invoice, kind model.OwnerKind) (fixed.Number, error) {
	if err := r.val.Check(inv, kind); err != nil {
		return fixed.Number{}, err
	}
	return r.AmountUnpaidWithTax(inv)
}

// IsFullyPaidAs is IsFullyPaid checked against kind.
func (r *Reconciler) IsFullyPaidAs(inv model.Invoice, kind model.OwnerKind) (bool, error) {
	if err := r.val.Check(inv, kind); err != nil {
		return false, err
	}
	return r.IsFullyPaid(inv)
}

// paid walks every split of every paying transaction. Customer invoices
// count money taken off a receivable; vendor and employee invoices count
// money put onto a payable.
func (r *Reconciler) paid(ix *Index, inv model.Invoice) (fixed.Number, error) {
	kind, err := r.val.ResolveKind(inv)
	if err != nil {
		return fixed.Number{}, err
	}

	total := fixed.Zero
	for _, tx := range ix.Transactions(inv.LotID) {
		for _, s := range tx.Splits {
			acct, err := r.src.Account(s.AccountID)
			if err != nil {
				return fixed.Number{}, fmt.Errorf("reading account of split %s: %w", s.ID, err)
			}
			if !acct.Type.Valid() {
				return fixed.Number{}, fmt.Errorf("split %s account %s type %q: %w", s.ID, acct.ID, acct.Type, model.ErrUnknownAccountType)
			}
			switch kind {
			case model.OwnerCustomer:
				if acct.Type == model.AccountTypeReceivable && !s.Value.IsPositive() {
					total = total.Sub(s.Value)
				}
			case model.OwnerVendor, model.OwnerEmployee:
				if acct.Type == model.AccountTypePayable && s.Value.IsPositive() {
					total = total.Add(s.Value)
				}
			}
		}
	}
	return total, nil
}

// Status is the valuation and payment state of one invoice.
type Status struct {
	Invoice    model.Invoice
	Kind       model.OwnerKind // resolved through jobs
	WithTax    fixed.Number
	WithoutTax fixed.Number
	Paid       fixed.Number
	Unpaid     fixed.Number
	FullyPaid  bool
	Payments   []model.Transaction
}

// Status values an invoice and reconciles it against a fresh index.
func (r *Reconciler) Status(inv model.Invoice) (Status, error) {
	ix, err := r.Index()
	if err != nil {
		return Status{}, err
	}
	return r.status(ix, inv)
}

// StatusAs is Status checked against kind.
func (r *Reconciler) StatusAs(inv model.Invoice, kind model.OwnerKind) (Status, error) {
	if err := r.val.Check(inv, kind); err != nil {
		return Status{}, err
	}
	return r.Status(inv)
}

func (r *Reconciler) status(ix *Index, inv model.Invoice) (Status, error) {
	kind, err := r.val.ResolveKind(inv)
	if err != nil {
		return Status{}, err
	}
	with, err := r.val.SumWithTax(inv)
	if err != nil {
		return Status{}, err
	}
	without, err := r.val.SumWithoutTax(inv)
	if err != nil {
		return Status{}, err
	}
	paid, err := r.paid(ix, inv)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Invoice:    inv,
		Kind:       kind,
		WithTax:    with,
		WithoutTax: without,
		Paid:       paid,
		Unpaid:     with.Sub(paid),
		FullyPaid:  !with.GreaterThan(paid, r.tolerance),
		Payments:   ix.Transactions(inv.LotID),
	}, nil
}

// Statuses reconciles every invoice in the book against one shared index.
func (r *Reconciler) Statuses() ([]Status, error) {
	invoices, err := r.src.Invoices()
	if err != nil {
		return nil, fmt.Errorf("reading invoices: %w", err)
	}
	ix, err := r.Index()
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(invoices))
	for _, inv := range invoices {
		st, err := r.status(ix, inv)
		if err != nil {
			return nil, fmt.Errorf("reconciling invoice %s: %w", inv.ID, err)
		}
		out = append(out, st)
	}
	r.log.Debug().Int("invoices", len(out)).Msg("Reconciled invoices")
	return out, nil
}

// Paid returns the statuses of fully paid invoices.
func (r *Reconciler) Paid() ([]Status, error) {
	return r.filter(true)
}

// Unpaid returns the statuses of invoices with an outstanding amount.
func (r *Reconciler) Unpaid() ([]Status, error) {
	return r.filter(false)
}

func (r *Reconciler) filter(fullyPaid bool) ([]Status, error) {
	all, err := r.Statuses()
	if err != nil {
		return nil, err
	}
	var out []Status
	for _, st := range all {
		if st.FullyPaid == fullyPaid {
			out = append(out, st)
		}
	}
	return out, nil
}
