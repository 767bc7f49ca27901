package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

// date reads either a bare calendar date or an RFC 3339 timestamp.
type date time.Time

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Location() == time.UTC && t.Equal(model.Day(t)) {
		return t.Format(dateLayout)
	}
	return t.Format(dateTimeLayout)
}

func (d *date) UnmarshalYAML(value *yaml.Node) error {
	t, err := parseDate(value.Value)
	if err != nil {
		return err
	}
	*d = date(t)
	return nil
}

func (d date) MarshalYAML() (any, error) { return formatDate(time.Time(d)), nil }

func (d date) IsZero() bool { return time.Time(d).IsZero() }

type bookDoc struct {
	Accounts     []accountDoc     `yaml:"accounts"`
	Transactions []transactionDoc `yaml:"transactions,omitempty"`
	Invoices     []invoiceDoc     `yaml:"invoices,omitempty"`
	Jobs         []jobDoc         `yaml:"jobs,omitempty"`
	TaxTables    []taxTableDoc    `yaml:"taxtables,omitempty"`
	Prices       []priceDoc       `yaml:"prices,omitempty"`
}

type accountDoc struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"`
	Parent      string            `yaml:"parent,omitempty"`
	Commodity   model.CommodityID `yaml:"commodity"`
	Code        string            `yaml:"code,omitempty"`
	Description string            `yaml:"description,omitempty"`
}

type splitDoc struct {
	ID       string        `yaml:"id"`
	Account  string        `yaml:"account"`
	Value    fixed.Number  `yaml:"value"`
	Quantity *fixed.Number `yaml:"quantity,omitempty"`
	Action   string        `yaml:"action,omitempty"`
	Lot      string        `yaml:"lot,omitempty"`
	Memo     string        `yaml:"memo,omitempty"`
}

type transactionDoc struct {
	ID          string            `yaml:"id"`
	Currency    model.CommodityID `yaml:"currency"`
	Num         string            `yaml:"num,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Posted      date              `yaml:"posted"`
	Entered     date              `yaml:"entered,omitempty"`
	Splits      []splitDoc        `yaml:"splits"`
}

type ownerDoc struct {
	Kind string `yaml:"kind"`
	ID   string `yaml:"id"`
}

type entryDoc struct {
	ID          string       `yaml:"id"`
	Date        date         `yaml:"date,omitempty"`
	Action      string       `yaml:"action,omitempty"`
	Description string       `yaml:"description,omitempty"`
	Quantity    fixed.Number `yaml:"quantity"`
	Price       fixed.Number `yaml:"price"`
	TaxRate     fixed.Number `yaml:"tax_rate"`
	TaxTable    string       `yaml:"tax_table,omitempty"`
}

type invoiceDoc struct {
	ID              string            `yaml:"id"`
	Number          string            `yaml:"number,omitempty"`
	Owner           ownerDoc          `yaml:"owner"`
	Currency        model.CommodityID `yaml:"currency"`
	Opened          date              `yaml:"opened,omitempty"`
	Posted          date              `yaml:"posted,omitempty"`
	PostAccount     string            `yaml:"post_account,omitempty"`
	PostTransaction string            `yaml:"post_transaction,omitempty"`
	Lot             string            `yaml:"lot,omitempty"`
	Notes           string            `yaml:"notes,omitempty"`
	Entries         []entryDoc        `yaml:"entries"`
}

type jobDoc struct {
	ID     string   `yaml:"id"`
	Number string   `yaml:"number,omitempty"`
	Name   string   `yaml:"name"`
	Owner  ownerDoc `yaml:"owner"`
	Active bool     `yaml:"active"`
}

type taxEntryDoc struct {
	Account string       `yaml:"account"`
	Amount  fixed.Number `yaml:"amount"`
	Type    string       `yaml:"type"`
}

type taxTableDoc struct {
	ID      string        `yaml:"id"`
	Name    string        `yaml:"name"`
	Entries []taxEntryDoc `yaml:"entries"`
}

type priceDoc struct {
	ID        string            `yaml:"id"`
	Commodity model.CommodityID `yaml:"commodity"`
	Currency  model.CommodityID `yaml:"currency"`
	Date      date              `yaml:"date"`
	Value     fixed.Number      `yaml:"value"`
	Source    string            `yaml:"source,omitempty"`
	Type      string            `yaml:"type,omitempty"`
}

// LoadYAML reads a YAML book from disk.
func LoadYAML(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening book: %w", err)
	}
	defer f.Close()

	recs, err := ReadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("reading book %s: %w", path, err)
	}
	return NewMemory(recs), nil
}

// SaveYAML writes a book to disk, replacing any existing file.
func SaveYAML(path string, recs Records) error {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, recs); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing book: %w", err)
	}
	return nil
}

// ReadYAML decodes a YAML book.
func ReadYAML(r io.Reader) (Records, error) {
	var doc bookDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return Records{}, fmt.Errorf("decoding book: %w", err)
	}
	return unmarshalBook(doc)
}

// WriteYAML encodes recs as a YAML book.
func WriteYAML(w io.Writer, recs Records) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(marshalBook(recs)); err != nil {
		return fmt.Errorf("encoding book: %w", err)
	}
	return enc.Close()
}

// unmarshalBook converts a decoded document into records.
func unmarshalBook(doc bookDoc) (Records, error) {
	var recs Records

	for i, a := range doc.Accounts {
		acct, err := unmarshalAccount(a)
		if err != nil {
			return Records{}, fmt.Errorf("account %d: %w", i+1, err)
		}
		recs.Accounts = append(recs.Accounts, acct)
	}

	for _, t := range doc.Transactions {
		tx := model.Transaction{
			ID:          t.ID,
			Currency:    t.Currency,
			Number:      t.Num,
			Description: t.Description,
			DatePosted:  time.Time(t.Posted),
			DateEntered: time.Time(t.Entered),
		}
		for _, s := range t.Splits {
			qty := s.Value
			if s.Quantity != nil {
				qty = *s.Quantity
			}
			tx.Splits = append(tx.Splits, model.Split{
				ID:            s.ID,
				TransactionID: t.ID,
				AccountID:     s.Account,
				Value:         s.Value,
				Quantity:      qty,
				Action:        model.SplitAction(s.Action),
				LotID:         s.Lot,
				Memo:          s.Memo,
			})
		}
		recs.Transactions = append(recs.Transactions, tx)
	}

	for _, d := range doc.Invoices {
		owner, err := unmarshalOwner(d.Owner)
		if err != nil {
			return Records{}, fmt.Errorf("invoice %s: %w", d.ID, err)
		}
		recs.Invoices = append(recs.Invoices, model.Invoice{
			ID:                d.ID,
			Number:            d.Number,
			Owner:             owner,
			Currency:          d.Currency,
			DateOpened:        time.Time(d.Opened),
			DatePosted:        time.Time(d.Posted),
			PostAccountID:     d.PostAccount,
			PostTransactionID: d.PostTransaction,
			LotID:             d.Lot,
			Notes:             d.Notes,
		})
		for _, e := range d.Entries {
			recs.Entries = append(recs.Entries, model.InvoiceEntry{
				ID:          e.ID,
				InvoiceID:   d.ID,
				Date:        time.Time(e.Date),
				Action:      e.Action,
				Description: e.Description,
				Quantity:    e.Quantity,
				Price:       e.Price,
				TaxRate:     e.TaxRate,
				TaxTableID:  e.TaxTable,
			})
		}
	}

	for _, j := range doc.Jobs {
		owner, err := unmarshalOwner(j.Owner)
		if err != nil {
			return Records{}, fmt.Errorf("job %s: %w", j.ID, err)
		}
		recs.Jobs = append(recs.Jobs, model.Job{ID: j.ID, Number: j.Number, Name: j.Name, Owner: owner, Active: j.Active})
	}

	for _, tt := range doc.TaxTables {
		table := model.TaxTable{ID: tt.ID, Name: tt.Name}
		for _, e := range tt.Entries {
			typ := model.TaxAmountType(e.Type)
			if typ == "" {
				typ = model.TaxPercent
			}
			if typ != model.TaxPercent && typ != model.TaxValue {
				return Records{}, fmt.Errorf("tax table %s: unknown amount type %q", tt.ID, e.Type)
			}
			table.Entries = append(table.Entries, model.TaxTableEntry{AccountID: e.Account, Amount: e.Amount, Type: typ})
		}
		recs.TaxTables = append(recs.TaxTables, table)
	}

	for _, p := range doc.Prices {
		typ, err := model.ParsePriceType(p.Type)
		if err != nil {
			return Records{}, fmt.Errorf("price %s: %w", p.ID, err)
		}
		recs.Prices = append(recs.Prices, model.Price{
			ID:        p.ID,
			Commodity: p.Commodity,
			Currency:  p.Currency,
			Date:      time.Time(p.Date),
			Value:     p.Value,
			Source:    model.PriceSource(p.Source),
			Type:      typ,
		})
	}
	return recs, nil
}

func unmarshalAccount(a accountDoc) (model.Account, error) {
	typ, err := model.ParseAccountType(a.Type)
	if err != nil {
		return model.Account{}, fmt.Errorf("account %s: %w", a.ID, err)
	}
	return model.Account{
		ID:          a.ID,
		Name:        a.Name,
		Type:        typ,
		ParentID:    a.Parent,
		Commodity:   a.Commodity,
		Code:        a.Code,
		Description: a.Description,
	}, nil
}

func unmarshalOwner(o ownerDoc) (model.Owner, error) {
	kind, err := model.ParseOwnerKind(o.Kind)
	if err != nil {
		return model.Owner{}, err
	}
	return model.Owner{Kind: kind, ID: o.ID}, nil
}

// marshalBook converts records into their document form.
func marshalBook(recs Records) bookDoc {
	var doc bookDoc
	for _, a := range recs.Accounts {
		doc.Accounts = append(doc.Accounts, accountDoc{
			ID:          a.ID,
			Name:        a.Name,
			Type:        string(a.Type),
			Parent:      a.ParentID,
			Commodity:   a.Commodity,
			Code:        a.Code,
			Description: a.Description,
		})
	}
	for _, tx := range recs.Transactions {
		t := transactionDoc{
			ID:          tx.ID,
			Currency:    tx.Currency,
			Num:         tx.Number,
			Description: tx.Description,
			Posted:      date(tx.DatePosted),
			Entered:     date(tx.DateEntered),
		}
		for _, s := range tx.Splits {
			sd := splitDoc{ID: s.ID, Account: s.AccountID, Value: s.Value, Action: string(s.Action), Lot: s.LotID, Memo: s.Memo}
			if !s.Quantity.Equal(s.Value) {
				q := s.Quantity
				sd.Quantity = &q
			}
			t.Splits = append(t.Splits, sd)
		}
		doc.Transactions = append(doc.Transactions, t)
	}

	entries := make(map[string][]entryDoc)
	for _, e := range recs.Entries {
		entries[e.InvoiceID] = append(entries[e.InvoiceID], entryDoc{
			ID:          e.ID,
			Date:        date(e.Date),
			Action:      e.Action,
			Description: e.Description,
			Quantity:    e.Quantity,
			Price:       e.Price,
			TaxRate:     e.TaxRate,
			TaxTable:    e.TaxTableID,
		})
	}
	for _, inv := range recs.Invoices {
		doc.Invoices = append(doc.Invoices, invoiceDoc{
			ID:              inv.ID,
			Number:          inv.Number,
			Owner:           ownerDoc{Kind: string(inv.Owner.Kind), ID: inv.Owner.ID},
			Currency:        inv.Currency,
			Opened:          date(inv.DateOpened),
			Posted:          date(inv.DatePosted),
			PostAccount:     inv.PostAccountID,
			PostTransaction: inv.PostTransactionID,
			Lot:             inv.LotID,
			Notes:           inv.Notes,
			Entries:         entries[inv.ID],
		})
	}

	for _, j := range recs.Jobs {
		doc.Jobs = append(doc.Jobs, jobDoc{
			ID:     j.ID,
			Number: j.Number,
			Name:   j.Name,
			Owner:  ownerDoc{Kind: string(j.Owner.Kind), ID: j.Owner.ID},
			Active: j.Active,
		})
	}
	for _, tt := range recs.TaxTables {
		td := taxTableDoc{ID: tt.ID, Name: tt.Name}
		for _, e := range tt.Entries {
			td.Entries = append(td.Entries, taxEntryDoc{Account: e.AccountID, Amount: e.Amount, Type: string(e.Type)})
		}
		doc.TaxTables = append(doc.TaxTables, td)
	}
	for _, p := range recs.Prices {
		doc.Prices = append(doc.Prices, priceDoc{
			ID:        p.ID,
			Commodity: p.Commodity,
			Currency:  p.Currency,
			Date:      date(p.Date),
			Value:     p.Value,
			Source:    string(p.Source),
			Type:      string(p.Type),
		})
	}
	return doc
}
