package sqlite

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	parent_id TEXT NOT NULL DEFAULT '',
	commodity_ns TEXT NOT NULL,
	commodity_code TEXT NOT NULL,
	code TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(parent_id);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	currency_ns TEXT NOT NULL,
	currency_code TEXT NOT NULL,
	num TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	post_date TEXT NOT NULL DEFAULT '',
	enter_date TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS splits (
	id TEXT PRIMARY KEY,
	tx_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	account_id TEXT NOT NULL,
	value TEXT NOT NULL,
	quantity TEXT NOT NULL,
	action TEXT NOT NULL DEFAULT '',
	lot_id TEXT NOT NULL DEFAULT '',
	memo TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_splits_tx ON splits(tx_id);
CREATE INDEX IF NOT EXISTS idx_splits_account ON splits(account_id);
CREATE INDEX IF NOT EXISTS idx_splits_lot ON splits(lot_id);

CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL DEFAULT '',
	owner_kind TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	currency_ns TEXT NOT NULL,
	currency_code TEXT NOT NULL,
	date_opened TEXT NOT NULL DEFAULT '',
	date_posted TEXT NOT NULL DEFAULT '',
	post_account_id TEXT NOT NULL DEFAULT '',
	post_tx_id TEXT NOT NULL DEFAULT '',
	lot_id TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	date TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	tax_rate TEXT NOT NULL,
	taxtable_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_entries_invoice ON entries(invoice_id);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	owner_kind TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS taxtables (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS taxtable_entries (
	taxtable_id TEXT NOT NULL REFERENCES taxtables(id) ON DELETE CASCADE,
	account_id TEXT NOT NULL,
	amount TEXT NOT NULL,
	type TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_taxtable_entries_table ON taxtable_entries(taxtable_id);

CREATE TABLE IF NOT EXISTS prices (
	id TEXT PRIMARY KEY,
	commodity_ns TEXT NOT NULL,
	commodity_code TEXT NOT NULL,
	currency_ns TEXT NOT NULL,
	currency_code TEXT NOT NULL,
	date TEXT NOT NULL,
	value TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_prices_commodity ON prices(commodity_ns, commodity_code);
`

// initializeSchema creates every table that does not exist yet.
func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
