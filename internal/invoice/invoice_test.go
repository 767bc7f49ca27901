package invoice

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerval/internal/fixed"
	"github.com/cleared-dev/ledgerval/internal/model"
	"github.com/cleared-dev/ledgerval/internal/store"
)

func loadBook(t *testing.T) *store.Memory {
	t.Helper()
	m, err := store.LoadYAML(filepath.Join("..", "store", "testdata", "book.yaml"))
	require.NoError(t, err)
	return m
}

func invoiceByID(t *testing.T, book store.Reader, id string) model.Invoice {
	t.Helper()
	inv, err := book.Invoice(id)
	require.NoError(t, err)
	return inv
}

func entry(qty, price, rate string) model.InvoiceEntry {
	return model.InvoiceEntry{
		InvoiceID: "i1",
		Quantity:  fixed.MustParse(qty),
		Price:     fixed.MustParse(price),
		TaxRate:   fixed.MustParse(rate),
	}
}

func TestEntrySums(t *testing.T) {
	tests := []struct {
		qty, price, rate string
		without, with    string
	}{
		{"2", "50", "19", "100", "119"},
		{"1", "10", "7", "10", "10.7"},
		{"3", "12.5", "0", "37.5", "37.5"},
		{"1", "0.01", "19", "0.01", "0.0119"},
		{"-1", "100", "19", "-100", "-119"},
	}
	for _, tt := range tests {
		e := entry(tt.qty, tt.price, tt.rate)
		assert.Equal(t, tt.without, EntrySumWithoutTax(e).String())
		assert.Equal(t, tt.with, EntrySumWithTax(e).String())
		assert.True(t, EntryTax(e).Equal(EntrySumWithTax(e).Sub(EntrySumWithoutTax(e))))
	}
}

func TestSums(t *testing.T) {
	book := loadBook(t)
	v := New(book, zerolog.Nop())

	inv := invoiceByID(t, book, "inv1")
	with, err := v.SumWithTax(inv)
	require.NoError(t, err)
	assert.Equal(t, "129.7", with.String())

	without, err := v.SumWithoutTax(inv)
	require.NoError(t, err)
	assert.Equal(t, "110", without.String())

	breakdown, err := v.TaxBreakdown(inv)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "19", breakdown[0].Rate.String())
	assert.Equal(t, "19", breakdown[0].Amount.String())
	assert.Equal(t, "7", breakdown[1].Rate.String())
	assert.Equal(t, "0.7", breakdown[1].Amount.String())
}

func TestSumsUnknownInvoice(t *testing.T) {
	v := New(loadBook(t), zerolog.Nop())
	_, err := v.SumWithTax(model.Invoice{ID: "nope"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTaxBreakdownGroupsByRate(t *testing.T) {
	book := store.NewMemory(store.Records{
		Invoices: []model.Invoice{{ID: "i1", Owner: model.Owner{Kind: model.OwnerCustomer, ID: "c"}}},
		Entries: []model.InvoiceEntry{
			entry("1", "33.33", "19"),
			entry("3", "9.99", "7"),
			entry("2", "14.285", "19.00"),
			entry("1", "5", "0"),
			entry("7", "0.13", "7"),
		},
	})
	v := New(book, zerolog.Nop())
	inv := model.Invoice{ID: "i1", Owner: model.Owner{Kind: model.OwnerCustomer, ID: "c"}}

	breakdown, err := v.TaxBreakdown(inv)
	require.NoError(t, err)
	require.Len(t, breakdown, 3)
	assert.Equal(t, "19", breakdown[0].Rate.String())
	assert.Equal(t, "7", breakdown[1].Rate.String())
	assert.Equal(t, "0", breakdown[2].Rate.String())
	assert.True(t, breakdown[2].Amount.IsZero())

	// 33.33*0.19 + 28.57*0.19
	assert.Equal(t, "11.761", breakdown[0].Amount.String())

	with, err := v.SumWithTax(inv)
	require.NoError(t, err)
	without, err := v.SumWithoutTax(inv)
	require.NoError(t, err)
	total := fixed.Zero
	for _, b := range breakdown {
		total = total.Add(b.Amount)
	}
	assert.True(t, with.Sub(without).Equal(total), "with %s without %s breakdown %s", with, without, total)
}

func TestTaxBreakdownEmpty(t *testing.T) {
	book := store.NewMemory(store.Records{
		Invoices: []model.Invoice{{ID: "i1", Owner: model.Owner{Kind: model.OwnerCustomer, ID: "c"}}},
	})
	v := New(book, zerolog.Nop())
	inv := model.Invoice{ID: "i1"}

	breakdown, err := v.TaxBreakdown(inv)
	require.NoError(t, err)
	assert.Empty(t, breakdown)

	with, err := v.SumWithTax(inv)
	require.NoError(t, err)
	assert.True(t, with.IsZero())
}

func TestResolveKind(t *testing.T) {
	book := store.NewMemory(store.Records{
		Jobs: []model.Job{
			{ID: "jv", Owner: model.Owner{Kind: model.OwnerVendor, ID: "v"}},
			{ID: "jc", Owner: model.Owner{Kind: model.OwnerCustomer, ID: "c"}},
			{ID: "jj", Owner: model.Owner{Kind: model.OwnerJob, ID: "jv"}},
			{ID: "je", Owner: model.Owner{Kind: model.OwnerEmployee, ID: "e"}},
		},
	})
	v := New(book, zerolog.Nop())

	tests := []struct {
		owner   model.Owner
		want    model.OwnerKind
		wantErr error
	}{
		{model.Owner{Kind: model.OwnerCustomer, ID: "c"}, model.OwnerCustomer, nil},
		{model.Owner{Kind: model.OwnerVendor, ID: "v"}, model.OwnerVendor, nil},
		{model.Owner{Kind: model.OwnerEmployee, ID: "e"}, model.OwnerEmployee, nil},
		{model.Owner{Kind: model.OwnerJob, ID: "jv"}, model.OwnerVendor, nil},
		{model.Owner{Kind: model.OwnerJob, ID: "jc"}, model.OwnerCustomer, nil},
		{model.Owner{Kind: model.OwnerJob, ID: "jj"}, "", ErrWrongInvoiceType},
		{model.Owner{Kind: model.OwnerJob, ID: "je"}, "", ErrWrongInvoiceType},
		{model.Owner{Kind: model.OwnerJob, ID: "missing"}, "", store.ErrNotFound},
		{model.Owner{Kind: "FRIEND", ID: "x"}, "", ErrWrongInvoiceType},
	}
	for _, tt := range tests {
		got, err := v.ResolveKind(model.Invoice{ID: "i", Owner: tt.owner})
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "owner %v", tt.owner)
			continue
		}
		require.NoError(t, err, "owner %v", tt.owner)
		assert.Equal(t, tt.want, got)
	}
}

func TestJobOwnedByVendor(t *testing.T) {
	book := loadBook(t)
	v := New(book, zerolog.Nop())
	bill := invoiceByID(t, book, "bill1")

	_, err := v.SumWithTaxAs(bill, model.OwnerCustomer)
	assert.ErrorIs(t, err, ErrWrongInvoiceType)
	_, err = v.SumWithoutTaxAs(bill, model.OwnerCustomer)
	assert.ErrorIs(t, err, ErrWrongInvoiceType)

	got, err := v.SumWithTaxAs(bill, model.OwnerJob)
	require.NoError(t, err)
	assert.Equal(t, "59.5", got.String())

	got, err = v.SumWithTaxAs(bill, model.OwnerVendor)
	require.NoError(t, err)
	assert.Equal(t, "59.5", got.String())

	got, err = v.SumWithoutTaxAs(bill, model.OwnerJob)
	require.NoError(t, err)
	assert.Equal(t, "50", got.String())

	_, err = v.SumWithTaxAs(bill, model.OwnerEmployee)
	assert.ErrorIs(t, err, ErrWrongInvoiceType)
}

func TestCheckDirectOwners(t *testing.T) {
	v := New(store.NewMemory(store.Records{}), zerolog.Nop())
	voucher := model.Invoice{ID: "v1", Owner: model.Owner{Kind: model.OwnerEmployee, ID: "e"}}
	customer := model.Invoice{ID: "c1", Owner: model.Owner{Kind: model.OwnerCustomer, ID: "c"}}

	assert.NoError(t, v.Check(voucher, model.OwnerEmployee))
	assert.ErrorIs(t, v.Check(voucher, model.OwnerVendor), ErrWrongInvoiceType)
	assert.ErrorIs(t, v.Check(voucher, model.OwnerJob), ErrWrongInvoiceType)
	assert.NoError(t, v.Check(customer, model.OwnerCustomer))
	assert.ErrorIs(t, v.Check(customer, model.OwnerVendor), ErrWrongInvoiceType)
}

func TestApplyTaxTable(t *testing.T) {
	book := loadBook(t)
	v := New(book, zerolog.Nop())

	entries, err := book.InvoiceEntries("inv1")
	require.NoError(t, err)
	table, err := book.TaxTable("vat19")
	require.NoError(t, err)

	updated, err := v.ApplyTaxTable(book, entries[1], table)
	require.NoError(t, err)
	assert.Equal(t, "19", updated.TaxRate.String())
	assert.Equal(t, "vat19", updated.TaxTableID)

	with, err := v.SumWithTax(invoiceByID(t, book, "inv1"))
	require.NoError(t, err)
	assert.Equal(t, "130.9", with.String())

	multi := model.TaxTable{ID: "multi", Entries: []model.TaxTableEntry{
		{AccountID: "a", Amount: fixed.New(5), Type: model.TaxPercent},
		{AccountID: "b", Amount: fixed.New(2), Type: model.TaxPercent},
		{AccountID: "c", Amount: fixed.New(1), Type: model.TaxValue},
	}}
	updated, err = v.ApplyTaxTable(book, entries[0], multi)
	require.NoError(t, err)
	assert.Equal(t, "7", updated.TaxRate.String())

	_, err = v.ApplyTaxTable(book, model.InvoiceEntry{ID: "nope", InvoiceID: "inv1"}, table)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
