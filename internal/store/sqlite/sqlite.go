// Package sqlite keeps a book in a SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledgerval/internal/id"
	"github.com/cleared-dev/ledgerval/internal/model"
	"github.com/cleared-dev/ledgerval/internal/store"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is a store.Book backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

var _ store.Book = (*Store)(nil)

// Open opens or creates the database at path and ensures the schema exists.
// Foreign keys are enforced and file databases use WAL journaling.
func Open(path string, log zerolog.Logger) (*Store, error) {
	connStr := "file::memory:?_foreign_keys=on"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		connStr = fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, path: path, log: log.With().Str("component", "sqlite").Logger()}
	s.log.Debug().Str("path", path).Msg("Opened book database")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// inTx runs fn inside a database transaction, committing on success.
func (s *Store) inTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const accountColumns = `id, name, type, parent_id, commodity_ns, commodity_code, code, description`

func scanAccount(sc scanner) (model.Account, error) {
	var a model.Account
	var typ string
	err := sc.Scan(&a.ID, &a.Name, &typ, &a.ParentID, &a.Commodity.Namespace, &a.Commodity.Code, &a.Code, &a.Description)
	if err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	return a, nil
}

// Accounts returns all accounts in insertion order.
func (s *Store) Accounts() ([]model.Account, error) {
	rows, err := s.db.Query(`SELECT ` + accountColumns + ` FROM accounts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return out, nil
}

// Account returns an account by id.
func (s *Store) Account(accountID string) (model.Account, error) {
	a, err := scanAccount(s.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, accountID))
	if err == sql.ErrNoRows {
		return model.Account{}, notFound("account", accountID)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return a, nil
}

func (s *Store) mustExist(table, kind, recordID string) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE id = ?`, recordID).Scan(&n); err != nil {
		return fmt.Errorf("failed to look up %s %s: %w", kind, recordID, err)
	}
	if n == 0 {
		return notFound(kind, recordID)
	}
	return nil
}

// Children returns the ids of the direct children of an account.
func (s *Store) Children(accountID string) ([]string, error) {
	if err := s.mustExist("accounts", "account", accountID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id FROM accounts WHERE parent_id = ? ORDER BY rowid`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children of %s: %w", accountID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("failed to scan child account: %w", err)
		}
		out = append(out, child)
	}
	return out, rows.Err()
}

const splitColumns = `s.id, s.tx_id, s.account_id, s.value, s.quantity, s.action, s.lot_id, s.memo`

func (s *Store) querySplits(where string, args ...any) ([]model.Split, error) {
	rows, err := s.db.Query(`
		SELECT `+splitColumns+`
		FROM splits s JOIN transactions t ON t.id = s.tx_id
		WHERE `+where+`
		ORDER BY t.rowid, s.rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer rows.Close()

	var out []model.Split
	for rows.Next() {
		var sp model.Split
		var action string
		if err := rows.Scan(&sp.ID, &sp.TransactionID, &sp.AccountID, &sp.Value, &sp.Quantity, &action, &sp.LotID, &sp.Memo); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		sp.Action = model.SplitAction(action)
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating splits: %w", err)
	}
	return out, nil
}

// AccountSplits returns the splits booked to an account.
func (s *Store) AccountSplits(accountID string) ([]model.Split, error) {
	if err := s.mustExist("accounts", "account", accountID); err != nil {
		return nil, err
	}
	return s.querySplits(`s.account_id = ?`, accountID)
}

const transactionColumns = `id, currency_ns, currency_code, num, description, post_date, enter_date`

func scanTransaction(sc scanner) (model.Transaction, error) {
	var tx model.Transaction
	var posted, entered string
	err := sc.Scan(&tx.ID, &tx.Currency.Namespace, &tx.Currency.Code, &tx.Number, &tx.Description, &posted, &entered)
	if err != nil {
		return model.Transaction{}, err
	}
	if tx.DatePosted, err = parseTime(posted); err != nil {
		return model.Transaction{}, err
	}
	if tx.DateEntered, err = parseTime(entered); err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// Transactions returns all transactions with their splits.
func (s *Store) Transactions() ([]model.Transaction, error) {
	rows, err := s.db.Query(`SELECT ` + transactionColumns + ` FROM transactions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	var out []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	splits, err := s.querySplits(`1 = 1`)
	if err != nil {
		return nil, err
	}
	byTx := make(map[string][]model.Split)
	for _, sp := range splits {
		byTx[sp.TransactionID] = append(byTx[sp.TransactionID], sp)
	}
	for i := range out {
		out[i].Splits = byTx[out[i].ID]
	}
	return out, nil
}

// Transaction returns a transaction with its splits.
func (s *Store) Transaction(txID string) (model.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, txID))
	if err == sql.ErrNoRows {
		return model.Transaction{}, notFound("transaction", txID)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to get transaction %s: %w", txID, err)
	}
	if tx.Splits, err = s.querySplits(`s.tx_id = ?`, txID); err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// TransactionSplits returns the splits of a transaction.
func (s *Store) TransactionSplits(txID string) ([]model.Split, error) {
	if err := s.mustExist("transactions", "transaction", txID); err != nil {
		return nil, err
	}
	return s.querySplits(`s.tx_id = ?`, txID)
}

const invoiceColumns = `id, number, owner_kind, owner_id, currency_ns, currency_code, date_opened, date_posted, post_account_id, post_tx_id, lot_id, notes`

func scanInvoice(sc scanner) (model.Invoice, error) {
	var inv model.Invoice
	var kind, opened, posted string
	err := sc.Scan(&inv.ID, &inv.Number, &kind, &inv.Owner.ID, &inv.Currency.Namespace, &inv.Currency.Code,
		&opened, &posted, &inv.PostAccountID, &inv.PostTransactionID, &inv.LotID, &inv.Notes)
	if err != nil {
		return model.Invoice{}, err
	}
	inv.Owner.Kind = model.OwnerKind(kind)
	if inv.DateOpened, err = parseTime(opened); err != nil {
		return model.Invoice{}, err
	}
	if inv.DatePosted, err = parseTime(posted); err != nil {
		return model.Invoice{}, err
	}
	return inv, nil
}

// Invoices returns all invoices.
func (s *Store) Invoices() ([]model.Invoice, error) {
	rows, err := s.db.Query(`SELECT ` + invoiceColumns + ` FROM invoices ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}
	return out, nil
}

// Invoice returns an invoice by id.
func (s *Store) Invoice(invoiceID string) (model.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow(`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, invoiceID))
	if err == sql.ErrNoRows {
		return model.Invoice{}, notFound("invoice", invoiceID)
	}
	if err != nil {
		return model.Invoice{}, fmt.Errorf("failed to get invoice %s: %w", invoiceID, err)
	}
	return inv, nil
}

// InvoiceEntries returns the entries of an invoice.
func (s *Store) InvoiceEntries(invoiceID string) ([]model.InvoiceEntry, error) {
	if err := s.mustExist("invoices", "invoice", invoiceID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT id, invoice_id, date, action, description, quantity, price, tax_rate, taxtable_id
		FROM entries WHERE invoice_id = ? ORDER BY rowid`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries of %s: %w", invoiceID, err)
	}
	defer rows.Close()

	var out []model.InvoiceEntry
	for rows.Next() {
		var e model.InvoiceEntry
		var d string
		if err := rows.Scan(&e.ID, &e.InvoiceID, &d, &e.Action, &e.Description, &e.Quantity, &e.Price, &e.TaxRate, &e.TaxTableID); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if e.Date, err = parseTime(d); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return out, nil
}

const jobColumns = `id, number, name, owner_kind, owner_id, active`

func scanJob(sc scanner) (model.Job, error) {
	var j model.Job
	var kind string
	if err := sc.Scan(&j.ID, &j.Number, &j.Name, &kind, &j.Owner.ID, &j.Active); err != nil {
		return model.Job{}, err
	}
	j.Owner.Kind = model.OwnerKind(kind)
	return j, nil
}

// Jobs returns all jobs.
func (s *Store) Jobs() ([]model.Job, error) {
	rows, err := s.db.Query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Job returns a job by id.
func (s *Store) Job(jobID string) (model.Job, error) {
	j, err := scanJob(s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID))
	if err == sql.ErrNoRows {
		return model.Job{}, notFound("job", jobID)
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return j, nil
}

func (s *Store) taxTableEntries(tableID string) ([]model.TaxTableEntry, error) {
	rows, err := s.db.Query(`SELECT account_id, amount, type FROM taxtable_entries WHERE taxtable_id = ? ORDER BY rowid`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax table entries: %w", err)
	}
	defer rows.Close()

	var out []model.TaxTableEntry
	for rows.Next() {
		var e model.TaxTableEntry
		var typ string
		if err := rows.Scan(&e.AccountID, &e.Amount, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan tax table entry: %w", err)
		}
		e.Type = model.TaxAmountType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// TaxTables returns all tax tables with their entries.
func (s *Store) TaxTables() ([]model.TaxTable, error) {
	rows, err := s.db.Query(`SELECT id, name FROM taxtables ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax tables: %w", err)
	}
	var out []model.TaxTable
	for rows.Next() {
		var tt model.TaxTable
		if err := rows.Scan(&tt.ID, &tt.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan tax table: %w", err)
		}
		out = append(out, tt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tax tables: %w", err)
	}

	for i := range out {
		if out[i].Entries, err = s.taxTableEntries(out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TaxTable returns a tax table by id.
func (s *Store) TaxTable(tableID string) (model.TaxTable, error) {
	tt := model.TaxTable{ID: tableID}
	err := s.db.QueryRow(`SELECT name FROM taxtables WHERE id = ?`, tableID).Scan(&tt.Name)
	if err == sql.ErrNoRows {
		return model.TaxTable{}, notFound("tax table", tableID)
	}
	if err != nil {
		return model.TaxTable{}, fmt.Errorf("failed to get tax table %s: %w", tableID, err)
	}
	if tt.Entries, err = s.taxTableEntries(tableID); err != nil {
		return model.TaxTable{}, err
	}
	return tt, nil
}

// Prices returns the price list in insertion order.
func (s *Store) Prices() ([]model.Price, error) {
	rows, err := s.db.Query(`
		SELECT id, commodity_ns, commodity_code, currency_ns, currency_code, date, value, source, type
		FROM prices ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var out []model.Price
	for rows.Next() {
		var p model.Price
		var d, source, typ string
		err := rows.Scan(&p.ID, &p.Commodity.Namespace, &p.Commodity.Code, &p.Currency.Namespace, &p.Currency.Code,
			&d, &p.Value, &source, &typ)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		if p.Date, err = parseTime(d); err != nil {
			return nil, err
		}
		p.Source = model.PriceSource(source)
		p.Type = model.PriceType(typ)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}
	return out, nil
}

// AddPrice inserts a price, assigning an id when p.ID is empty.
func (s *Store) AddPrice(p model.Price) (model.Price, error) {
	if p.Commodity.IsZero() || p.Currency.IsZero() {
		return model.Price{}, fmt.Errorf("price needs a commodity and a currency")
	}
	if p.ID == "" {
		p.ID = id.New()
	}
	if err := insertPrice(s.db, p); err != nil {
		return model.Price{}, err
	}
	s.log.Info().
		Str("commodity", p.Commodity.String()).
		Str("currency", p.Currency.String()).
		Str("value", p.Value.String()).
		Msg("Recorded price")
	return p, nil
}

// UpdateEntry replaces an invoice entry.
func (s *Store) UpdateEntry(e model.InvoiceEntry) error {
	var invoiceID string
	err := s.db.QueryRow(`SELECT invoice_id FROM entries WHERE id = ?`, e.ID).Scan(&invoiceID)
	if err == sql.ErrNoRows {
		return notFound("invoice entry", e.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up entry %s: %w", e.ID, err)
	}
	if invoiceID != e.InvoiceID {
		return fmt.Errorf("entry %q belongs to invoice %q, not %q", e.ID, invoiceID, e.InvoiceID)
	}

	_, err = s.db.Exec(`
		UPDATE entries SET date = ?, action = ?, description = ?, quantity = ?, price = ?, tax_rate = ?, taxtable_id = ?
		WHERE id = ?`,
		formatTime(e.Date), e.Action, e.Description, e.Quantity, e.Price, e.TaxRate, e.TaxTableID, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update entry %s: %w", e.ID, err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertPrice(ex execer, p model.Price) error {
	_, err := ex.Exec(`
		INSERT INTO prices (id, commodity_ns, commodity_code, currency_ns, currency_code, date, value, source, type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Commodity.Namespace, p.Commodity.Code, p.Currency.Namespace, p.Currency.Code,
		formatTime(p.Date), p.Value, string(p.Source), string(p.Type))
	if err != nil {
		return fmt.Errorf("failed to insert price %s: %w", p.ID, err)
	}
	return nil
}
