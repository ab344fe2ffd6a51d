package models

// Counterparty holds the optional beneficiary/ordering-party sub-fields
// carried in the information-to-account-owner block of a statement line.
type Counterparty struct {
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	Account    string `json:"account,omitempty"`
	BankName   string `json:"bankName,omitempty"`
	FiscalCode string `json:"fiscalCode,omitempty"`
}

// Transaction represents a single statement line.
//
// EntryDate is stored as YYYY-MM-DD. Amount is a signed decimal string with
// a dot separator; debits are negative, credits positive. Balance is the
// running balance after this transaction, display-only and possibly empty.
type Transaction struct {
	EntryDate       string        `json:"entryDate"`
	Amount          string        `json:"amount"`
	Currency        string        `json:"currency,omitempty"`
	TransactionType string        `json:"transactionType,omitempty"`
	Description     string        `json:"description,omitempty"`
	Counterparty    *Counterparty `json:"counterparty,omitempty"`
	Balance         string        `json:"balance,omitempty"`
}

// Statement is one account-level grouping of transactions within a file.
type Statement struct {
	AccountID    string        `json:"accountId"`
	Transactions []Transaction `json:"transactions"`
}

// ParsedRecord is the normalized shape of one parsed statement file.
type ParsedRecord struct {
	Statements []Statement `json:"statements"`
}

// TransactionCount returns the total number of transactions in the record.
func (r *ParsedRecord) TransactionCount() int {
	n := 0
	for _, s := range r.Statements {
		n += len(s.Transactions)
	}
	return n
}

// UploadedFile is one registered upload. Record is populated on successful
// parse; a file whose parse failed is never registered at all.
type UploadedFile struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Record *ParsedRecord `json:"-"`
}
