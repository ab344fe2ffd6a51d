// Package export walks every statement and transaction across all
// registered files, drops cross-file duplicates, and projects the result
// into the fixed twelve-column row shape used by the CSV export.
package export

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/archeus/mt940-merger/internal/models"
)

// Row is the projection target: exactly twelve fields in fixed order,
// absent source values mapped to the empty string. Rows are recomputed on
// every export request and never cached across registry mutations.
type Row struct {
	AccountID              string `json:"numarCont"`
	Date                   string `json:"dataProcesarii"`
	Amount                 string `json:"suma"`
	Currency               string `json:"valuta"`
	TransactionType        string `json:"tipTranzactie"`
	CounterpartyName       string `json:"numeContrapartida"`
	CounterpartyAddress    string `json:"adresaContrapartida"`
	CounterpartyAccount    string `json:"contContrapartida"`
	CounterpartyBank       string `json:"bancaContrapartida"`
	Description            string `json:"detaliiTranzactie"`
	Balance                string `json:"soldIntermediar"`
	CounterpartyFiscalCode string `json:"cuiContrapartida"`

	// entryDate keeps the raw storage-form date for metadata derivation;
	// Date carries the display form.
	entryDate string
}

// Fields returns the row values in serialization order.
func (r Row) Fields() []string {
	return []string{
		r.AccountID,
		r.Date,
		r.Amount,
		r.Currency,
		r.TransactionType,
		r.CounterpartyName,
		r.CounterpartyAddress,
		r.CounterpartyAccount,
		r.CounterpartyBank,
		r.Description,
		r.Balance,
		r.CounterpartyFiscalCode,
	}
}

// dedupKey identifies semantically identical transactions across files.
// Comparison is exact equality; no whitespace or case normalization.
func dedupKey(accountID string, t models.Transaction) string {
	return strings.Join([]string{
		accountID, t.EntryDate, t.Amount, t.TransactionType, t.Description,
	}, "\x1f")
}

// Rows projects the given files into deduplicated export rows. Iteration
// is files in insertion order, statements in file order, transactions in
// statement order; the first occurrence of a key wins and later duplicates
// are dropped, so insertion order decides which file's copy survives.
func Rows(files []models.UploadedFile) []Row {
	seen := make(map[string]struct{})
	var rows []Row
	for _, f := range files {
		if f.Record == nil {
			continue
		}
		for _, s := range f.Record.Statements {
			for _, t := range s.Transactions {
				key := dedupKey(s.AccountID, t)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				rows = append(rows, project(s.AccountID, t))
			}
		}
	}
	return rows
}

func project(accountID string, t models.Transaction) Row {
	row := Row{
		AccountID:       accountID,
		Date:            models.FormatDisplayDate(t.EntryDate),
		Amount:          t.Amount,
		Currency:        t.Currency,
		TransactionType: t.TransactionType,
		Description:     t.Description,
		Balance:         t.Balance,
		entryDate:       t.EntryDate,
	}
	if cp := t.Counterparty; cp != nil {
		row.CounterpartyName = cp.Name
		row.CounterpartyAddress = cp.Address
		row.CounterpartyAccount = cp.Account
		row.CounterpartyBank = cp.BankName
		row.CounterpartyFiscalCode = cp.FiscalCode
	}
	return row
}

// DateRange returns the min and max raw entry dates over the deduplicated
// row set. Lexicographic comparison suffices because the storage form is
// zero-padded YYYY-MM-DD. ok is false for an empty row set.
func DateRange(rows []Row) (min, max string, ok bool) {
	for _, r := range rows {
		if r.entryDate == "" {
			continue
		}
		if !ok {
			min, max, ok = r.entryDate, r.entryDate, true
			continue
		}
		if r.entryDate < min {
			min = r.entryDate
		}
		if r.entryDate > max {
			max = r.entryDate
		}
	}
	return min, max, ok
}

// FirstAccountID returns the account id of the first statement with a
// non-empty account id, scanning files in registry order.
func FirstAccountID(files []models.UploadedFile) (string, bool) {
	for _, f := range files {
		if f.Record == nil {
			continue
		}
		for _, s := range f.Record.Statements {
			if s.AccountID != "" {
				return s.AccountID, true
			}
		}
	}
	return "", false
}

// FileName derives the export file name from the first account id and the
// transaction date range: transactions[_<acct>]_<min>[_to_<max>].csv.
// Segments whose source value is absent are omitted.
func FileName(files []models.UploadedFile, rows []Row) string {
	name := "transactions"
	if acct, ok := FirstAccountID(files); ok {
		name += "_" + acct
	}
	if min, max, ok := DateRange(rows); ok {
		name += "_" + min
		if min != max {
			name += "_to_" + max
		}
	}
	return name + ".csv"
}

// Totals sums the deduplicated rows into total debit (absolute value of
// negative amounts) and total credit. Rows whose amount does not parse as
// a decimal contribute nothing.
func Totals(rows []Row) (debit, credit decimal.Decimal) {
	for _, r := range rows {
		d, err := decimal.NewFromString(r.Amount)
		if err != nil {
			continue
		}
		if d.IsNegative() {
			debit = debit.Add(d.Neg())
		} else {
			credit = credit.Add(d)
		}
	}
	return debit, credit
}
