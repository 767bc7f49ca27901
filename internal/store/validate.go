package store

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/ledgerval/internal/model"
)

// Rule names reported by Validate.
const (
	RuleDuplicateID   = "duplicate-id"
	RuleAccountType   = "account-type"
	RuleAccountParent = "account-parent"
	RuleAccountCycle  = "account-cycle"
	RuleSingleRoot    = "single-root"
	RuleCommodity     = "commodity"
	RuleSplits        = "splits"
	RuleSplitAccount  = "split-account"
	RuleInvoiceOwner  = "invoice-owner"
	RuleJobOwner      = "job-owner"
	RuleTaxTable      = "tax-table"
	RulePrice         = "price"
)

// ValidationError describes a single integrity violation in a book.
type ValidationError struct {
	Rule        string
	RecordID    string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.RecordID, e.Description)
}

// Validate checks referential integrity of a book. Transactions are not
// required to balance.
func Validate(r Records) []ValidationError {
	var errs []ValidationError
	add := func(rule, id, format string, args ...any) {
		errs = append(errs, ValidationError{Rule: rule, RecordID: id, Description: fmt.Sprintf(format, args...)})
	}

	accounts := make(map[string]model.Account, len(r.Accounts))
	var roots []string
	for _, a := range r.Accounts {
		if _, dup := accounts[a.ID]; dup {
			add(RuleDuplicateID, a.ID, "account id used more than once")
		}
		accounts[a.ID] = a
		if !a.Type.Valid() {
			add(RuleAccountType, a.ID, "unknown account type %q", a.Type)
		}
		if a.Type == model.AccountTypeRoot {
			roots = append(roots, a.ID)
		}
		if err := a.Commodity.Validate(); err != nil {
			add(RuleCommodity, a.ID, "%v", err)
		}
	}
	if len(roots) > 1 {
		add(RuleSingleRoot, roots[1], "book has %d root accounts", len(roots))
	}

	for _, a := range r.Accounts {
		if a.ParentID == "" {
			continue
		}
		if _, ok := accounts[a.ParentID]; !ok {
			add(RuleAccountParent, a.ID, "unknown parent %q", a.ParentID)
			continue
		}
		seen := map[string]bool{a.ID: true}
		for p := a.ParentID; p != ""; p = accounts[p].ParentID {
			if seen[p] {
				add(RuleAccountCycle, a.ID, "parent chain loops back through %q", p)
				break
			}
			seen[p] = true
		}
	}

	txIDs := make(map[string]bool, len(r.Transactions))
	for _, tx := range r.Transactions {
		if txIDs[tx.ID] {
			add(RuleDuplicateID, tx.ID, "transaction id used more than once")
		}
		txIDs[tx.ID] = true
		if err := tx.Currency.Validate(); err != nil {
			add(RuleCommodity, tx.ID, "%v", err)
		}
		if len(tx.Splits) == 0 {
			add(RuleSplits, tx.ID, "transaction has no splits")
		}
		for _, s := range tx.Splits {
			if _, ok := accounts[s.AccountID]; !ok {
				add(RuleSplitAccount, s.ID, "unknown account %q", s.AccountID)
			}
		}
	}

	jobs := make(map[string]model.Job, len(r.Jobs))
	for _, j := range r.Jobs {
		jobs[j.ID] = j
		switch j.Owner.Kind {
		case model.OwnerCustomer, model.OwnerVendor:
		case model.OwnerJob:
			add(RuleJobOwner, j.ID, "a job cannot be owned by another job")
		default:
			add(RuleJobOwner, j.ID, "a job must be owned by a customer or a vendor, not %q", j.Owner.Kind)
		}
	}

	tables := make(map[string]bool, len(r.TaxTables))
	for _, tt := range r.TaxTables {
		tables[tt.ID] = true
	}

	invoices := make(map[string]bool, len(r.Invoices))
	for _, inv := range r.Invoices {
		if invoices[inv.ID] {
			add(RuleDuplicateID, inv.ID, "invoice id used more than once")
		}
		invoices[inv.ID] = true
		if inv.Owner.Kind == model.OwnerJob {
			if _, ok := jobs[inv.Owner.ID]; !ok {
				add(RuleInvoiceOwner, inv.ID, "unknown job %q", inv.Owner.ID)
			}
		}
		if inv.PostAccountID != "" {
			if _, ok := accounts[inv.PostAccountID]; !ok {
				add(RuleInvoiceOwner, inv.ID, "unknown post account %q", inv.PostAccountID)
			}
		}
	}
	for _, e := range r.Entries {
		if !invoices[e.InvoiceID] {
			add(RuleInvoiceOwner, e.ID, "entry references unknown invoice %q", e.InvoiceID)
		}
		if e.TaxTableID != "" && !tables[e.TaxTableID] {
			add(RuleTaxTable, e.ID, "unknown tax table %q", e.TaxTableID)
		}
	}

	for _, p := range r.Prices {
		if p.Commodity.IsZero() || p.Currency.IsZero() {
			add(RulePrice, p.ID, "price needs a commodity and a currency")
		}
		if !p.Value.IsPositive() {
			add(RulePrice, p.ID, "price value %s is not positive", p.Value)
		}
	}
	return errs
}

// Check runs Validate and joins any violations into one error.
func Check(r Records) error {
	verrs := Validate(r)
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i, v := range verrs {
		errs[i] = v
	}
	return errors.Join(errs...)
}
