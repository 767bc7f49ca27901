package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAccountType is returned when an account type tag is outside the
// closed set below.
var ErrUnknownAccountType = errors.New("unknown account type")

// AccountType classifies accounts in the account tree.
type AccountType string

const (
	AccountTypeBank       AccountType = "BANK"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypeAsset      AccountType = "ASSET"
	AccountTypeLiability  AccountType = "LIABILITY"
	AccountTypeStock      AccountType = "STOCK"
	AccountTypeMutual     AccountType = "MUTUAL"
	AccountTypeCurrency   AccountType = "CURRENCY"
	AccountTypeIncome     AccountType = "INCOME"
	AccountTypeExpense    AccountType = "EXPENSE"
	AccountTypeEquity     AccountType = "EQUITY"
	AccountTypeReceivable AccountType = "RECEIVABLE"
	AccountTypePayable    AccountType = "PAYABLE"
	AccountTypeRoot       AccountType = "ROOT"
	AccountTypeTrading    AccountType = "TRADING"
)

// AccountTypes lists every valid account type.
var AccountTypes = []AccountType{
	AccountTypeBank, AccountTypeCash, AccountTypeCredit, AccountTypeAsset,
	AccountTypeLiability, AccountTypeStock, AccountTypeMutual, AccountTypeCurrency,
	AccountTypeIncome, AccountTypeExpense, AccountTypeEquity, AccountTypeReceivable,
	AccountTypePayable, AccountTypeRoot, AccountTypeTrading,
}

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	for _, at := range AccountTypes {
		if t == at {
			return true
		}
	}
	return false
}

// ParseAccountType accepts a type tag in any letter case.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAccountType, s)
	}
	return t, nil
}

// Account is one node of the account tree.
type Account struct {
	ID          string
	Name        string
	Type        AccountType
	ParentID    string // "" = top-level
	Commodity   CommodityID
	Code        string
	Description string
}

// IsTopLevel reports whether the account has no parent.
func (a Account) IsTopLevel() bool { return a.ParentID == "" }
