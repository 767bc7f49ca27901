package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/cleared-dev/ledgerval/internal/store"
)

// Import copies every record of src into the database in one transaction.
// Records keep their ids and order.
func (s *Store) Import(src store.Reader) error {
	accounts, err := src.Accounts()
	if err != nil {
		return fmt.Errorf("reading accounts: %w", err)
	}
	txs, err := src.Transactions()
	if err != nil {
		return fmt.Errorf("reading transactions: %w", err)
	}
	invoices, err := src.Invoices()
	if err != nil {
		return fmt.Errorf("reading invoices: %w", err)
	}
	jobs, err := src.Jobs()
	if err != nil {
		return fmt.Errorf("reading jobs: %w", err)
	}
	tables, err := src.TaxTables()
	if err != nil {
		return fmt.Errorf("reading tax tables: %w", err)
	}
	prices, err := src.Prices()
	if err != nil {
		return fmt.Errorf("reading prices: %w", err)
	}

	var nSplits, nEntries int
	err = s.inTx(func(tx *sql.Tx) error {
		for _, a := range accounts {
			_, err := tx.Exec(`
				INSERT INTO accounts (id, name, type, parent_id, commodity_ns, commodity_code, code, description)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				a.ID, a.Name, string(a.Type), a.ParentID, a.Commodity.Namespace, a.Commodity.Code, a.Code, a.Description)
			if err != nil {
				return fmt.Errorf("failed to insert account %s: %w", a.ID, err)
			}
		}

		for _, t := range txs {
			_, err := tx.Exec(`
				INSERT INTO transactions (id, currency_ns, currency_code, num, description, post_date, enter_date)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				t.ID, t.Currency.Namespace, t.Currency.Code, t.Number, t.Description, formatTime(t.DatePosted), formatTime(t.DateEntered))
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
			}
			for _, sp := range t.Splits {
				_, err := tx.Exec(`
					INSERT INTO splits (id, tx_id, account_id, value, quantity, action, lot_id, memo)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
					sp.ID, t.ID, sp.AccountID, sp.Value, sp.Quantity, string(sp.Action), sp.LotID, sp.Memo)
				if err != nil {
					return fmt.Errorf("failed to insert split %s: %w", sp.ID, err)
				}
				nSplits++
			}
		}

		for _, inv := range invoices {
			_, err := tx.Exec(`
				INSERT INTO invoices (id, number, owner_kind, owner_id, currency_ns, currency_code,
					date_opened, date_posted, post_account_id, post_tx_id, lot_id, notes)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				inv.ID, inv.Number, string(inv.Owner.Kind), inv.Owner.ID, inv.Currency.Namespace, inv.Currency.Code,
				formatTime(inv.DateOpened), formatTime(inv.DatePosted), inv.PostAccountID, inv.PostTransactionID, inv.LotID, inv.Notes)
			if err != nil {
				return fmt.Errorf("failed to insert invoice %s: %w", inv.ID, err)
			}
			entries, err := src.InvoiceEntries(inv.ID)
			if err != nil {
				return fmt.Errorf("reading entries of invoice %s: %w", inv.ID, err)
			}
			for _, e := range entries {
				_, err := tx.Exec(`
					INSERT INTO entries (id, invoice_id, date, action, description, quantity, price, tax_rate, taxtable_id)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					e.ID, inv.ID, formatTime(e.Date), e.Action, e.Description, e.Quantity, e.Price, e.TaxRate, e.TaxTableID)
				if err != nil {
					return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
				}
				nEntries++
			}
		}

		for _, j := range jobs {
			_, err := tx.Exec(`INSERT INTO jobs (id, number, name, owner_kind, owner_id, active) VALUES (?, ?, ?, ?, ?, ?)`,
				j.ID, j.Number, j.Name, string(j.Owner.Kind), j.Owner.ID, j.Active)
			if err != nil {
				return fmt.Errorf("failed to insert job %s: %w", j.ID, err)
			}
		}

		for _, tt := range tables {
			if _, err := tx.Exec(`INSERT INTO taxtables (id, name) VALUES (?, ?)`, tt.ID, tt.Name); err != nil {
				return fmt.Errorf("failed to insert tax table %s: %w", tt.ID, err)
			}
			for _, e := range tt.Entries {
				_, err := tx.Exec(`INSERT INTO taxtable_entries (taxtable_id, account_id, amount, type) VALUES (?, ?, ?, ?)`,
					tt.ID, e.AccountID, e.Amount, string(e.Type))
				if err != nil {
					return fmt.Errorf("failed to insert tax table entry of %s: %w", tt.ID, err)
				}
			}
		}

		for _, p := range prices {
			if err := insertPrice(tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int("accounts", len(accounts)).
		Int("transactions", len(txs)).
		Int("splits", nSplits).
		Int("invoices", len(invoices)).
		Int("entries", nEntries).
		Int("prices", len(prices)).
		Msg("Imported book")
	return nil
}
