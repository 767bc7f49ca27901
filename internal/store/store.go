// Package store holds the record store the engines read from: accounts,
// transactions with their splits, invoices with their entries, jobs, tax
// tables and prices, all addressed by identifier.
package store

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/ledgerval/internal/model"
)

// ErrNotFound is returned when an identifier does not resolve.
var ErrNotFound = errors.New("not found")

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Reader is the read side of a book.
type Reader interface {
	Accounts() ([]model.Account, error)
	Account(id string) (model.Account, error)
	Children(accountID string) ([]string, error)
	AccountSplits(accountID string) ([]model.Split, error)

	Transactions() ([]model.Transaction, error)
	Transaction(id string) (model.Transaction, error)
	TransactionSplits(transactionID string) ([]model.Split, error)

	Invoices() ([]model.Invoice, error)
	Invoice(id string) (model.Invoice, error)
	InvoiceEntries(invoiceID string) ([]model.InvoiceEntry, error)
	Jobs() ([]model.Job, error)
	Job(id string) (model.Job, error)
	TaxTables() ([]model.TaxTable, error)
	TaxTable(id string) (model.TaxTable, error)

	Prices() ([]model.Price, error)
}

// Writer accepts mutations from callers.
type Writer interface {
	// AddPrice stores p, assigning an id when p.ID is empty.
	AddPrice(p model.Price) (model.Price, error)
	// UpdateEntry replaces the invoice entry with the same id.
	UpdateEntry(e model.InvoiceEntry) error
}

// Book is a readable and writable record store.
type Book interface {
	Reader
	Writer
}
