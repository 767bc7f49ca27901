package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cleared-dev/ledgerval/internal/id"
	"github.com/cleared-dev/ledgerval/internal/model"
)

// Records is the raw content of a book.
type Records struct {
	Accounts     []model.Account
	Transactions []model.Transaction
	Invoices     []model.Invoice
	Entries      []model.InvoiceEntry
	Jobs         []model.Job
	TaxTables    []model.TaxTable
	Prices       []model.Price
}

// Memory provides in-memory lookup over a book. It is safe for concurrent
// use.
type Memory struct {
	mu sync.RWMutex

	accounts     []model.Account
	accountByID  map[string]model.Account
	children     map[string][]string
	accountSplit map[string][]model.Split

	transactions []model.Transaction
	txByID       map[string]int

	invoices       []model.Invoice
	invoiceByID    map[string]model.Invoice
	entries        []model.InvoiceEntry
	entryByInvoice map[string][]int

	jobs      []model.Job
	jobByID   map[string]model.Job
	taxTables []model.TaxTable
	taxByID   map[string]model.TaxTable

	prices []model.Price
}

// NewMemory indexes r. Split transaction ids are filled in from their
// owning transaction.
func NewMemory(r Records) *Memory {
	m := &Memory{
		accounts:       r.Accounts,
		accountByID:    make(map[string]model.Account, len(r.Accounts)),
		children:       make(map[string][]string),
		accountSplit:   make(map[string][]model.Split),
		txByID:         make(map[string]int, len(r.Transactions)),
		invoices:       r.Invoices,
		invoiceByID:    make(map[string]model.Invoice, len(r.Invoices)),
		entries:        r.Entries,
		entryByInvoice: make(map[string][]int),
		jobs:           r.Jobs,
		jobByID:        make(map[string]model.Job, len(r.Jobs)),
		taxTables:      r.TaxTables,
		taxByID:        make(map[string]model.TaxTable, len(r.TaxTables)),
		prices:         r.Prices,
	}

	for _, a := range r.Accounts {
		m.accountByID[a.ID] = a
		if a.ParentID != "" {
			m.children[a.ParentID] = append(m.children[a.ParentID], a.ID)
		}
	}

	m.transactions = make([]model.Transaction, len(r.Transactions))
	for i, tx := range r.Transactions {
		splits := make([]model.Split, len(tx.Splits))
		for j, s := range tx.Splits {
			s.TransactionID = tx.ID
			splits[j] = s
			m.accountSplit[s.AccountID] = append(m.accountSplit[s.AccountID], s)
		}
		tx.Splits = splits
		m.transactions[i] = tx
		m.txByID[tx.ID] = i
	}

	for _, inv := range r.Invoices {
		m.invoiceByID[inv.ID] = inv
	}
	for i, e := range r.Entries {
		m.entryByInvoice[e.InvoiceID] = append(m.entryByInvoice[e.InvoiceID], i)
	}
	for _, j := range r.Jobs {
		m.jobByID[j.ID] = j
	}
	for _, tt := range r.TaxTables {
		m.taxByID[tt.ID] = tt
	}
	return m
}

// Records returns a copy of the book's content.
func (m *Memory) Records() Records {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Records{
		Accounts:     slices.Clone(m.accounts),
		Transactions: slices.Clone(m.transactions),
		Invoices:     slices.Clone(m.invoices),
		Entries:      slices.Clone(m.entries),
		Jobs:         slices.Clone(m.jobs),
		TaxTables:    slices.Clone(m.taxTables),
		Prices:       slices.Clone(m.prices),
	}
}

// Accounts returns all accounts in book order.
func (m *Memory) Accounts() ([]model.Account, error) {
	return slices.Clone(m.accounts), nil
}

// Account returns an account by id.
func (m *Memory) Account(id string) (model.Account, error) {
	a, ok := m.accountByID[id]
	if !ok {
		return model.Account{}, notFound("account", id)
	}
	return a, nil
}

// Children returns the ids of the direct children of an account.
func (m *Memory) Children(accountID string) ([]string, error) {
	if _, ok := m.accountByID[accountID]; !ok {
		return nil, notFound("account", accountID)
	}
	return slices.Clone(m.children[accountID]), nil
}

// AccountSplits returns the splits booked to an account in book order.
func (m *Memory) AccountSplits(accountID string) ([]model.Split, error) {
	if _, ok := m.accountByID[accountID]; !ok {
		return nil, notFound("account", accountID)
	}
	return slices.Clone(m.accountSplit[accountID]), nil
}

// Transactions returns all transactions in book order.
func (m *Memory) Transactions() ([]model.Transaction, error) {
	return slices.Clone(m.transactions), nil
}

// Transaction returns a transaction with its splits.
func (m *Memory) Transaction(id string) (model.Transaction, error) {
	i, ok := m.txByID[id]
	if !ok {
		return model.Transaction{}, notFound("transaction", id)
	}
	tx := m.transactions[i]
	tx.Splits = slices.Clone(tx.Splits)
	return tx, nil
}

// TransactionSplits returns the splits of a transaction in order.
func (m *Memory) TransactionSplits(transactionID string) ([]model.Split, error) {
	tx, err := m.Transaction(transactionID)
	if err != nil {
		return nil, err
	}
	return tx.Splits, nil
}

// Invoices returns all invoices in book order.
func (m *Memory) Invoices() ([]model.Invoice, error) {
	return slices.Clone(m.invoices), nil
}

// Invoice returns an invoice by id.
func (m *Memory) Invoice(id string) (model.Invoice, error) {
	inv, ok := m.invoiceByID[id]
	if !ok {
		return model.Invoice{}, notFound("invoice", id)
	}
	return inv, nil
}

// InvoiceEntries returns the entries of an invoice in book order.
func (m *Memory) InvoiceEntries(invoiceID string) ([]model.InvoiceEntry, error) {
	if _, ok := m.invoiceByID[invoiceID]; !ok {
		return nil, notFound("invoice", invoiceID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := m.entryByInvoice[invoiceID]
	out := make([]model.InvoiceEntry, len(idx))
	for i, n := range idx {
		out[i] = m.entries[n]
	}
	return out, nil
}

// Jobs returns all jobs.
func (m *Memory) Jobs() ([]model.Job, error) {
	return slices.Clone(m.jobs), nil
}

// Job returns a job by id.
func (m *Memory) Job(id string) (model.Job, error) {
	j, ok := m.jobByID[id]
	if !ok {
		return model.Job{}, notFound("job", id)
	}
	return j, nil
}

// TaxTables returns all tax tables.
func (m *Memory) TaxTables() ([]model.TaxTable, error) {
	return slices.Clone(m.taxTables), nil
}

// TaxTable returns a tax table by id.
func (m *Memory) TaxTable(id string) (model.TaxTable, error) {
	tt, ok := m.taxByID[id]
	if !ok {
		return model.TaxTable{}, notFound("tax table", id)
	}
	return tt, nil
}

// Prices returns the price list in book order.
func (m *Memory) Prices() ([]model.Price, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.prices), nil
}

// AddPrice appends a price to the price list.
func (m *Memory) AddPrice(p model.Price) (model.Price, error) {
	if p.Commodity.IsZero() || p.Currency.IsZero() {
		return model.Price{}, fmt.Errorf("price needs a commodity and a currency")
	}
	if p.ID == "" {
		p.ID = id.New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, p)
	return p, nil
}

// UpdateEntry replaces an existing invoice entry.
func (m *Memory) UpdateEntry(e model.InvoiceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID != e.ID {
			continue
		}
		if m.entries[i].InvoiceID != e.InvoiceID {
			return fmt.Errorf("entry %q belongs to invoice %q, not %q", e.ID, m.entries[i].InvoiceID, e.InvoiceID)
		}
		m.entries[i] = e
		return nil
	}
	return notFound("invoice entry", e.ID)
}
