package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archeus/mt940-merger/internal/models"
)

func file(id string, statements ...models.Statement) models.UploadedFile {
	return models.UploadedFile{
		ID:     id,
		Name:   id + ".sta",
		Record: &models.ParsedRecord{Statements: statements},
	}
}

func txn(date, amount, typ, desc string) models.Transaction {
	return models.Transaction{
		EntryDate:       date,
		Amount:          amount,
		TransactionType: typ,
		Description:     desc,
	}
}

func TestRowsEndToEndScenario(t *testing.T) {
	// File A and file B share the rent transaction; B adds a fee. The
	// merged export keeps A's copy of the duplicate and B's fee.
	fileA := file("a", models.Statement{
		AccountID:    "X",
		Transactions: []models.Transaction{txn("2024-01-01", "100", "C", "rent")},
	})
	fileB := file("b", models.Statement{
		AccountID: "X",
		Transactions: []models.Transaction{
			txn("2024-01-01", "100", "C", "rent"),
			txn("2024-01-02", "50", "D", "fee"),
		},
	})

	rows := Rows([]models.UploadedFile{fileA, fileB})
	require.Len(t, rows, 2)
	assert.Equal(t, "rent", rows[0].Description)
	assert.Equal(t, "01.01.2024", rows[0].Date)
	assert.Equal(t, "fee", rows[1].Description)
	assert.Equal(t, "02.01.2024", rows[1].Date)
}

func TestRowsDedupIdempotence(t *testing.T) {
	f := file("a", models.Statement{
		AccountID: "X",
		Transactions: []models.Transaction{
			txn("2024-01-01", "100", "C", "rent"),
			txn("2024-01-02", "50", "D", "fee"),
		},
	})

	once := Rows([]models.UploadedFile{f})
	twice := Rows([]models.UploadedFile{f, f})
	assert.Equal(t, once, twice, "adding the same file twice must not change the export")
}

func TestRowsFirstWriterWins(t *testing.T) {
	shared := txn("2024-01-01", "100", "C", "rent")

	withBalance := shared
	withBalance.Balance = "900.00"

	first := file("first", models.Statement{AccountID: "X",
		Transactions: []models.Transaction{shared}})
	second := file("second", models.Statement{AccountID: "X",
		Transactions: []models.Transaction{withBalance}})

	rows := Rows([]models.UploadedFile{first, second})
	require.Len(t, rows, 1)
	// Balance is not part of the dedup key, so the surviving row must be
	// the first file's copy, without the balance.
	assert.Empty(t, rows[0].Balance)

	rows = Rows([]models.UploadedFile{second, first})
	require.Len(t, rows, 1)
	assert.Equal(t, "900.00", rows[0].Balance)
}

func TestRowsCountBound(t *testing.T) {
	fileA := file("a", models.Statement{AccountID: "X",
		Transactions: []models.Transaction{
			txn("2024-01-01", "100", "C", "rent"),
			txn("2024-01-01", "100", "C", "rent"), // in-file duplicate
		}})
	fileB := file("b", models.Statement{AccountID: "Y",
		Transactions: []models.Transaction{
			txn("2024-01-01", "100", "C", "rent"), // distinct account, distinct key
		}})

	rows := Rows([]models.UploadedFile{fileA, fileB})
	assert.Len(t, rows, 2)

	// All-distinct keys: row count equals raw transaction count.
	distinct := file("c", models.Statement{AccountID: "Z",
		Transactions: []models.Transaction{
			txn("2024-01-01", "1", "C", "a"),
			txn("2024-01-02", "2", "C", "b"),
			txn("2024-01-03", "3", "C", "c"),
		}})
	assert.Len(t, Rows([]models.UploadedFile{distinct}), 3)
}

func TestRowsEmptyRegistry(t *testing.T) {
	assert.Empty(t, Rows(nil))

	_, _, ok := DateRange(nil)
	assert.False(t, ok)

	_, ok = FirstAccountID(nil)
	assert.False(t, ok)
}

func TestRowsFieldDefaults(t *testing.T) {
	f := file("a", models.Statement{
		Transactions: []models.Transaction{{EntryDate: "2024-01-01", Amount: "5"}},
	})
	rows := Rows([]models.UploadedFile{f})
	require.Len(t, rows, 1)

	fields := rows[0].Fields()
	require.Len(t, fields, 12)
	assert.Equal(t, "", fields[0], "account id defaults to empty")
	assert.Equal(t, "01.01.2024", fields[1])
	assert.Equal(t, "5", fields[2])
	for _, i := range []int{3, 4, 5, 6, 7, 8, 9, 10, 11} {
		assert.Equal(t, "", fields[i], "field %d should default to empty", i)
	}
}

func TestDateRange(t *testing.T) {
	f := file("a", models.Statement{AccountID: "X",
		Transactions: []models.Transaction{
			txn("2024-03-20", "1", "C", "late"),
			txn("2024-01-05", "2", "C", "early"),
			txn("2024-02-11", "3", "C", "mid"),
		}})
	rows := Rows([]models.UploadedFile{f})

	min, max, ok := DateRange(rows)
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", min)
	assert.Equal(t, "2024-03-20", max)
}

func TestDateRangeSingleDate(t *testing.T) {
	f := file("a", models.Statement{AccountID: "X",
		Transactions: []models.Transaction{txn("2024-01-05", "1", "C", "only")}})
	rows := Rows([]models.UploadedFile{f})

	min, max, ok := DateRange(rows)
	require.True(t, ok)
	assert.Equal(t, min, max)
}

func TestFirstAccountID(t *testing.T) {
	files := []models.UploadedFile{
		file("a", models.Statement{AccountID: "",
			Transactions: []models.Transaction{txn("2024-01-01", "1", "C", "x")}}),
		file("b", models.Statement{AccountID: "ACCT-1",
			Transactions: []models.Transaction{txn("2024-01-02", "2", "C", "y")}}),
	}

	acct, ok := FirstAccountID(files)
	require.True(t, ok)
	assert.Equal(t, "ACCT-1", acct)
}

func TestFileName(t *testing.T) {
	single := file("a", models.Statement{AccountID: "ACCT",
		Transactions: []models.Transaction{txn("2024-01-05", "1", "C", "x")}})
	files := []models.UploadedFile{single}
	rows := Rows(files)
	assert.Equal(t, "transactions_ACCT_2024-01-05.csv", FileName(files, rows))

	ranged := file("b", models.Statement{AccountID: "ACCT",
		Transactions: []models.Transaction{
			txn("2024-01-05", "1", "C", "x"),
			txn("2024-03-20", "2", "C", "y"),
		}})
	files = []models.UploadedFile{ranged}
	rows = Rows(files)
	assert.Equal(t, "transactions_ACCT_2024-01-05_to_2024-03-20.csv", FileName(files, rows))

	anon := file("c", models.Statement{
		Transactions: []models.Transaction{txn("2024-01-05", "1", "C", "x")}})
	files = []models.UploadedFile{anon}
	rows = Rows(files)
	assert.Equal(t, "transactions_2024-01-05.csv", FileName(files, rows))
}

func TestTotals(t *testing.T) {
	f := file("a", models.Statement{AccountID: "X",
		Transactions: []models.Transaction{
			txn("2024-01-01", "-100.00", "NTRF", "rent"),
			txn("2024-01-02", "50.00", "NTRF", "refund"),
			txn("2024-01-03", "-25.50", "NTRF", "fee"),
			txn("2024-01-04", "oops", "NTRF", "unparsable"),
		}})
	rows := Rows([]models.UploadedFile{f})

	debit, credit := Totals(rows)
	assert.Equal(t, "125.5", debit.String())
	assert.Equal(t, "50", credit.String())
}

func TestCounterpartyProjection(t *testing.T) {
	f := file("a", models.Statement{AccountID: "X",
		Transactions: []models.Transaction{{
			EntryDate:       "2024-01-01",
			Amount:          "-10.00",
			Currency:        "RON",
			TransactionType: "NTRF",
			Description:     "supplier invoice",
			Balance:         "990.00",
			Counterparty: &models.Counterparty{
				Name:       "ACME SRL",
				Address:    "Str. Principala 1",
				Account:    "RO12BANK0000",
				BankName:   "Banca Pop",
				FiscalCode: "RO123456",
			},
		}}})
	rows := Rows([]models.UploadedFile{f})
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "ACME SRL", r.CounterpartyName)
	assert.Equal(t, "Str. Principala 1", r.CounterpartyAddress)
	assert.Equal(t, "RO12BANK0000", r.CounterpartyAccount)
	assert.Equal(t, "Banca Pop", r.CounterpartyBank)
	assert.Equal(t, "RO123456", r.CounterpartyFiscalCode)
	assert.Equal(t, "990.00", r.Balance)
}
