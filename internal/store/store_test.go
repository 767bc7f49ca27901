package store

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/id"
	"github.com/cleared-dev/ledgerval/internal/model"
)

func loadFixture(t *testing.T) *Memory {
	t.Helper()
	m, err := LoadYAML(filepath.Join("testdata", "book.yaml"))
	require.NoError(t, err)
	return m
}

func TestLoadYAML(t *testing.T) {
	m := loadFixture(t)

	accts, err := m.Accounts()
	require.NoError(t, err)
	assert.Len(t, accts, 12)

	bank, err := m.Account("bank")
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeBank, bank.Type)
	assert.Equal(t, "assets", bank.ParentID)
	assert.Equal(t, model.Currency("EUR"), bank.Commodity)
	assert.Equal(t, "1010", bank.Code)

	brokerage, err := m.Account("brokerage")
	require.NoError(t, err)
	assert.Equal(t, model.Security("NASDAQ", "AAPL"), brokerage.Commodity)

	tx, err := m.Transaction("t7")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 25, 15, 30, 0, 0, time.UTC), tx.DatePosted.UTC())
	require.Len(t, tx.Splits, 2)
	assert.Equal(t, "t7", tx.Splits[0].TransactionID)
	assert.Equal(t, "92", tx.Splits[0].Value.String())
	assert.Equal(t, "100", tx.Splits[0].Quantity.String())
	assert.Equal(t, "-92", tx.Splits[1].Quantity.String(), "quantity defaults to value")

	inv, err := m.Invoice("bill1")
	require.NoError(t, err)
	assert.Equal(t, model.Owner{Kind: model.OwnerJob, ID: "j1"}, inv.Owner)
	assert.True(t, inv.IsPosted())

	entries, err := m.InvoiceEntries("inv1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "inv1", entries[0].InvoiceID)
	assert.Equal(t, "19", entries[0].TaxRate.String())
	assert.Equal(t, "vat19", entries[0].TaxTableID)

	job, err := m.Job("j1")
	require.NoError(t, err)
	assert.Equal(t, model.OwnerVendor, job.Owner.Kind)

	tt, err := m.TaxTable("vat19")
	require.NoError(t, err)
	assert.Equal(t, "19", tt.Percent().String())

	prices, err := m.Prices()
	require.NoError(t, err)
	require.Len(t, prices, 4)
	assert.Equal(t, model.PriceTypeLast, prices[0].Type)
	assert.Equal(t, model.PriceSourceQuote, prices[0].Source)
	assert.Equal(t, model.PriceTypeUnknown, prices[3].Type)

	assert.Empty(t, Validate(m.Records()))
}

func TestIndexes(t *testing.T) {
	m := loadFixture(t)

	kids, err := m.Children("assets")
	require.NoError(t, err)
	assert.Equal(t, []string{"bank", "brokerage", "usdcash", "receivable"}, kids)

	kids, err = m.Children("bank")
	require.NoError(t, err)
	assert.Empty(t, kids)

	splits, err := m.AccountSplits("bank")
	require.NoError(t, err)
	var ids []string
	for _, s := range splits {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"s1", "s6", "s12", "s14", "s16"}, ids)

	splits, err = m.TransactionSplits("t2")
	require.NoError(t, err)
	assert.Len(t, splits, 3)
}

func TestNotFound(t *testing.T) {
	m := loadFixture(t)

	_, err := m.Account("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Children("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.AccountSplits("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Transaction("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Invoice("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.InvoiceEntries("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Job("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.TaxTable("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddPrice(t *testing.T) {
	m := loadFixture(t)

	p, err := m.AddPrice(model.Price{
		Commodity: model.Currency("GBP"),
		Currency:  model.Currency("EUR"),
		Date:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Value:     fixed.MustParse("1.17"),
	})
	require.NoError(t, err)
	assert.True(t, id.Valid(p.ID))

	prices, err := m.Prices()
	require.NoError(t, err)
	assert.Len(t, prices, 5)
	assert.Equal(t, p.ID, prices[4].ID)

	_, err = m.AddPrice(model.Price{Value: fixed.One})
	assert.Error(t, err)
}

func TestUpdateEntry(t *testing.T) {
	m := loadFixture(t)

	entries, err := m.InvoiceEntries("inv1")
	require.NoError(t, err)
	e := entries[1]
	e.TaxRate = fixed.New(19)
	require.NoError(t, m.UpdateEntry(e))

	entries, err = m.InvoiceEntries("inv1")
	require.NoError(t, err)
	assert.Equal(t, "19", entries[1].TaxRate.String())

	e.InvoiceID = "inv2"
	assert.Error(t, m.UpdateEntry(e))

	err = m.UpdateEntry(model.InvoiceEntry{ID: "nope", InvoiceID: "inv1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestYAMLRoundTrip(t *testing.T) {
	m := loadFixture(t)
	recs := m.Records()

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, recs))

	back, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Len(t, back.Accounts, len(recs.Accounts))
	assert.Len(t, back.Transactions, len(recs.Transactions))
	assert.Len(t, back.Entries, len(recs.Entries))
	assert.Len(t, back.Prices, len(recs.Prices))

	for i, tx := range recs.Transactions {
		got := back.Transactions[i]
		assert.True(t, tx.DatePosted.Equal(got.DatePosted), "transaction %s", tx.ID)
		for j, s := range tx.Splits {
			assert.True(t, s.Value.Equal(got.Splits[j].Value), "split %s value", s.ID)
			assert.True(t, s.Quantity.Equal(got.Splits[j].Quantity), "split %s quantity", s.ID)
			assert.Equal(t, s.LotID, got.Splits[j].LotID)
			assert.Equal(t, s.Action, got.Splits[j].Action)
		}
	}
	assert.Equal(t, recs.Invoices[1].Owner, back.Invoices[1].Owner)
	assert.Equal(t, recs.Entries[0].InvoiceID, back.Entries[0].InvoiceID)
}

func TestSaveYAML(t *testing.T) {
	m := loadFixture(t)
	_, err := m.AddPrice(model.Price{
		ID:        "p5",
		Commodity: model.Currency("GBP"),
		Currency:  model.Currency("EUR"),
		Date:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Value:     fixed.MustParse("1.17"),
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "book.yaml")
	require.NoError(t, SaveYAML(path, m.Records()))

	again, err := LoadYAML(path)
	require.NoError(t, err)
	prices, err := again.Prices()
	require.NoError(t, err)
	require.Len(t, prices, 5)
	assert.Equal(t, "1.17", prices[4].Value.String())
	assert.Equal(t, model.Currency("GBP"), prices[4].Commodity)
}

func TestReadYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad account type", "accounts:\n  - {id: a, name: A, type: WALLET, commodity: EUR}\n"},
		{"bad owner kind", "accounts: []\ninvoices:\n  - {id: i, owner: {kind: FRIEND, id: x}, currency: EUR, entries: []}\n"},
		{"bad date", "accounts: []\nprices:\n  - {id: p, commodity: USD, currency: EUR, date: yesterday, value: 1}\n"},
		{"bad number", "accounts: []\nprices:\n  - {id: p, commodity: USD, currency: EUR, date: 2024-01-01, value: lots}\n"},
		{"unknown field", "accounts: []\nledgers: []\n"},
		{"bad tax type", "accounts: []\ntaxtables:\n  - {id: t, name: T, entries: [{account: a, amount: 1, type: FLAT}]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadYAML(bytes.NewBufferString(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestReadYAMLEmpty(t *testing.T) {
	recs, err := ReadYAML(bytes.NewBufferString(""))
	require.NoError(t, err)
	assert.Empty(t, recs.Accounts)
}
