package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Header is the CSV header of an exported register.
const Header = "date,transaction_id,num,description,split_id,action,memo,lot,debit,credit,value,balance"

const (
	numFields  = 12
	dateFormat = "2006-01-02"
	colDate    = 0
	colTxID    = 1
	colNum     = 2
	colDesc    = 3
	colSplitID = 4
	colAction  = 5
	colMemo    = 6
	colLot     = 7
	colDebit   = 8
	colCredit  = 9
	colValue   = 10
	colBalance = 11
)

// WriteRows writes register rows to w (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a Row to a CSV record. Empty debit or credit columns
// are left blank.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colDate] = row.Date.Format(dateFormat)
	rec[colTxID] = row.TransactionID
	rec[colNum] = row.Num
	rec[colDesc] = row.Description
	rec[colSplitID] = row.SplitID
	rec[colAction] = string(row.Action)
	rec[colMemo] = row.Memo
	rec[colLot] = row.LotID

	if d := row.Debit(); !d.IsZero() {
		rec[colDebit] = d.String()
	}
	if c := row.Credit(); !c.IsZero() {
		rec[colCredit] = c.String()
	}

	rec[colValue] = row.Value.String()
	rec[colBalance] = row.Balance.String()
	return rec
}
