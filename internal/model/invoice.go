package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/cleared-dev/ledgerval/internal/fixed"
)

// OwnerKind tells who an invoice, bill or voucher is issued to or by.
type OwnerKind string

const (
	OwnerCustomer OwnerKind = "CUSTOMER"
	OwnerVendor   OwnerKind = "VENDOR"
	OwnerEmployee OwnerKind = "EMPLOYEE"
	OwnerJob      OwnerKind = "JOB"
)

// Valid reports whether k is a known owner kind.
func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerCustomer, OwnerVendor, OwnerEmployee, OwnerJob:
		return true
	}
	return false
}

// ParseOwnerKind accepts a kind in any letter case.
func ParseOwnerKind(s string) (OwnerKind, error) {
	k := OwnerKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown owner kind %q", s)
	}
	return k, nil
}

// Owner references the customer, vendor, employee or job behind a document.
type Owner struct {
	Kind OwnerKind
	ID   string
}

// Job is a project run for a customer or a vendor.
type Job struct {
	ID     string
	Number string
	Name   string
	Owner  Owner
	Active bool
}

// Invoice covers customer invoices, vendor bills, employee vouchers and job
// invoices.
type Invoice struct {
	ID                string
	Number            string
	Owner             Owner
	Currency          CommodityID
	DateOpened        time.Time
	DatePosted        time.Time
	PostAccountID     string // set once posted
	PostTransactionID string // set once posted
	LotID             string // set once posted
	Notes             string
}

// IsPosted reports whether the invoice carries a lot to reconcile against.
func (i Invoice) IsPosted() bool { return i.LotID != "" }

// InvoiceEntry is one line of an invoice.
type InvoiceEntry struct {
	ID          string
	InvoiceID   string
	Date        time.Time
	Action      string
	Description string
	Quantity    fixed.Number
	Price       fixed.Number
	TaxRate     fixed.Number // percent, e.g. 19 for 19%
	TaxTableID  string
}
