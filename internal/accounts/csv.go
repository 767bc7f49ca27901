package accounts

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cleared-dev/ledgerval/internal/model"
)

const (
	numFields    = 7
	colID        = 0
	colName      = 1
	colType      = 2
	colParent    = 3
	colCommodity = 4
	colCode      = 5
	colDesc      = 6
)

// ReadAccounts reads a chart of accounts in CSV form.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes a chart of accounts in CSV form.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"account_id", "account_name", "account_type", "parent_id", "commodity", "code", "description"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colID] = acct.ID
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	row[colParent] = acct.ParentID
	row[colCommodity] = acct.Commodity.String()
	row[colCode] = acct.Code
	row[colDesc] = acct.Description
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colID] == "" {
		return model.Account{}, fmt.Errorf("empty account_id")
	}

	typ, err := model.ParseAccountType(record[colType])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing account_type: %w", err)
	}
	commodity, err := model.ParseCommodityID(record[colCommodity])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing commodity: %w", err)
	}

	return model.Account{
		ID:          record[colID],
		Name:        record[colName],
		Type:        typ,
		ParentID:    record[colParent],
		Commodity:   commodity,
		Code:        record[colCode],
		Description: record[colDesc],
	}, nil
}
