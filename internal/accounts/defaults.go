package accounts

import (
	"github.com/cleared-dev/ledgerval/internal/id"
	"github.com/cleared-dev/ledgerval/internal/model"
)

type chartNode struct {
	name     string
	typ      model.AccountType
	desc     string
	children []chartNode
}

var commonChart = chartNode{name: "Root Account", typ: model.AccountTypeRoot, children: []chartNode{
	{name: "Assets", typ: model.AccountTypeAsset, children: []chartNode{
		{name: "Current Assets", typ: model.AccountTypeAsset, children: []chartNode{
			{name: "Checking Account", typ: model.AccountTypeBank, desc: "Primary checking account"},
			{name: "Savings Account", typ: model.AccountTypeBank},
			{name: "Cash in Wallet", typ: model.AccountTypeCash},
		}},
		{name: "Accounts Receivable", typ: model.AccountTypeReceivable, desc: "Customer invoices"},
	}},
	{name: "Liabilities", typ: model.AccountTypeLiability, children: []chartNode{
		{name: "Credit Card", typ: model.AccountTypeCredit},
		{name: "Accounts Payable", typ: model.AccountTypePayable, desc: "Vendor bills and employee vouchers"},
		{name: "Sales Tax", typ: model.AccountTypeLiability},
	}},
	{name: "Equity", typ: model.AccountTypeEquity, children: []chartNode{
		{name: "Opening Balances", typ: model.AccountTypeEquity},
	}},
	{name: "Income", typ: model.AccountTypeIncome, children: []chartNode{
		{name: "Sales", typ: model.AccountTypeIncome},
		{name: "Interest Income", typ: model.AccountTypeIncome},
	}},
	{name: "Expenses", typ: model.AccountTypeExpense, children: []chartNode{
		{name: "Supplies", typ: model.AccountTypeExpense},
		{name: "Bank Service Charge", typ: model.AccountTypeExpense},
		{name: "Taxes", typ: model.AccountTypeExpense},
	}},
}}

// DefaultChart returns a starter chart of accounts held in currency, with
// fresh ids. Parents precede their children.
func DefaultChart(currency model.CommodityID) []model.Account {
	var out []model.Account
	var add func(n chartNode, parent string)
	add = func(n chartNode, parent string) {
		a := model.Account{
			ID:          id.New(),
			Name:        n.name,
			Type:        n.typ,
			ParentID:    parent,
			Commodity:   currency,
			Description: n.desc,
		}
		out = append(out, a)
		for _, c := range n.children {
			add(c, a.ID)
		}
	}
	add(commonChart, "")
	return out
}
