// Package mt940 parses the line-tagged SWIFT MT940 customer statement
// format into the normalized statement record model. Only the tag subset
// needed for transaction export is recognized; checksums and balance
// reconciliation are out of scope.
package mt940

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/archeus/mt940-merger/internal/models"
)

// ErrNotMT940 is returned when the input carries no recognizable
// statement tags at all.
var ErrNotMT940 = errors.New("no MT940 statement tags found")

var (
	// Tag line: ":20:REF", ":61:...", ":28C:..." etc.
	tagPattern = regexp.MustCompile(`^:(\d{2}[A-Z]?):(.*)$`)

	// Statement line (:61:): value date, optional entry date, debit/credit
	// mark (with reversal prefix), optional funds code, amount with comma
	// decimals, optional 4-char transaction type, trailing reference.
	statementLinePattern = regexp.MustCompile(
		`^(\d{6})(\d{4})?(R?[DC])([A-Z])?(\d{1,15}(?:,\d{0,2})?)([A-Z][A-Z0-9]{3})?(.*)$`)

	// Balance line (:60F:, :60M:, :62F:, :62M:): mark, date, currency, amount.
	balancePattern = regexp.MustCompile(`^([DC])(\d{6})([A-Z]{3})(\d{1,15}(?:,\d{0,2})?)$`)

	// Counterparty sub-field markers inside the :86: block.
	counterpartyPattern = regexp.MustCompile(`/(NAME|ADDR|ACCT|BANK|CUI)/`)

	// +NN sub-field markers inside the :86: block (the common Romanian-bank
	// layout): 20-25 carry transaction details, 32/33 the counterparty name.
	infoPlusPattern = regexp.MustCompile(`\+(\d{2})`)
)

// Parse tokenizes one statement file into a ParsedRecord. Output is
// deterministic for identical input. Every emitted transaction carries an
// entry date and an amount; all other fields may be empty.
func Parse(data []byte) (*models.ParsedRecord, error) {
	record := &models.ParsedRecord{}
	var (
		cur     *statementBuilder
		sawTag  bool
		lineNum int
	)

	flush := func() {
		if cur != nil {
			record.Statements = append(record.Statements, cur.build())
			cur = nil
		}
	}

	for _, raw := range splitLines(data) {
		lineNum++
		line := strings.TrimRight(raw, "\r")
		if line == "" || line == "-" || line == "-}" {
			continue
		}
		// Strip a SWIFT block-4 envelope prefix if present.
		if i := strings.Index(line, "{4:"); i >= 0 {
			line = strings.TrimSpace(line[i+3:])
			if line == "" {
				continue
			}
		}

		m := tagPattern.FindStringSubmatch(line)
		if m == nil {
			// Continuation of the previous tag, relevant only for :86:.
			if cur != nil {
				cur.continueInfo(line)
			}
			continue
		}
		sawTag = true
		tag, value := m[1], m[2]

		switch tag {
		case "20":
			flush()
			cur = newStatementBuilder()
		default:
			if cur == nil {
				cur = newStatementBuilder()
			}
			if err := cur.apply(tag, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
	}
	flush()

	if !sawTag {
		return nil, ErrNotMT940
	}
	return record, nil
}

type statementBuilder struct {
	accountID    string
	currency     string
	balance      decimal.Decimal
	hasBalance   bool
	transactions []models.Transaction
	pendingInfo  bool // last tag seen was :86:
}

func newStatementBuilder() *statementBuilder {
	return &statementBuilder{}
}

func (b *statementBuilder) build() models.Statement {
	return models.Statement{
		AccountID:    b.accountID,
		Transactions: b.transactions,
	}
}

func (b *statementBuilder) apply(tag, value string) error {
	b.pendingInfo = false
	switch tag {
	case "25":
		b.accountID = strings.TrimSpace(value)
	case "60F", "60M":
		mark, currency, amount, err := parseBalance(value)
		if err != nil {
			return fmt.Errorf("opening balance %q: %w", value, err)
		}
		b.currency = currency
		b.balance = amount
		if mark == "D" {
			b.balance = amount.Neg()
		}
		b.hasBalance = true
	case "61":
		txn, err := b.parseStatementLine(value)
		if err != nil {
			return err
		}
		b.transactions = append(b.transactions, txn)
	case "86":
		if len(b.transactions) == 0 {
			return nil // statement-level info, not projected
		}
		b.pendingInfo = true
		b.applyInfo(value)
	}
	// :28C:, :62F:, :62M:, :64:, :65: and unknown tags are accepted and ignored.
	return nil
}

func (b *statementBuilder) parseStatementLine(value string) (models.Transaction, error) {
	m := statementLinePattern.FindStringSubmatch(value)
	if m == nil {
		return models.Transaction{}, fmt.Errorf("malformed statement line %q", value)
	}

	amount, err := decimal.NewFromString(strings.Replace(m[5], ",", ".", 1))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("bad amount in statement line %q: %w", value, err)
	}
	// D debits and RC credit-reversals reduce the balance.
	if m[3] == "D" || m[3] == "RC" {
		amount = amount.Neg()
	}

	txn := models.Transaction{
		EntryDate:       expandDate(m[1]),
		Amount:          amount.StringFixed(2),
		Currency:        b.currency,
		TransactionType: m[6],
	}
	if b.hasBalance {
		b.balance = b.balance.Add(amount)
		txn.Balance = b.balance.StringFixed(2)
	}
	return txn, nil
}

// applyInfo parses the :86: information block for the most recent
// transaction: free text up to the first sub-field marker is the
// description, tagged segments fill the description and counterparty
// sub-record. Both the +NN and the /NAME/-style marker conventions are
// recognized; +NN takes precedence when present.
func (b *statementBuilder) applyInfo(value string) {
	txn := &b.transactions[len(b.transactions)-1]

	if locs := infoPlusPattern.FindAllStringSubmatchIndex(value, -1); len(locs) > 0 {
		applyPlusInfo(txn, value, locs)
		return
	}

	locs := counterpartyPattern.FindAllStringSubmatchIndex(value, -1)
	if len(locs) == 0 {
		txn.Description = joinInfo(txn.Description, strings.TrimSpace(value))
		return
	}

	if head := strings.TrimSpace(value[:locs[0][0]]); head != "" {
		txn.Description = joinInfo(txn.Description, head)
	}
	if txn.Counterparty == nil {
		txn.Counterparty = &models.Counterparty{}
	}
	for i, loc := range locs {
		end := len(value)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		field := value[loc[2]:loc[3]]
		text := strings.TrimSpace(value[loc[1]:end])
		switch field {
		case "NAME":
			txn.Counterparty.Name = text
		case "ADDR":
			txn.Counterparty.Address = text
		case "ACCT":
			txn.Counterparty.Account = text
		case "BANK":
			txn.Counterparty.BankName = text
		case "CUI":
			txn.Counterparty.FiscalCode = text
		}
	}
}

// applyPlusInfo handles the +NN sub-field convention: codes 20-25
// concatenate into the description, 32 and 33 into the counterparty name.
// Other codes are dropped.
func applyPlusInfo(txn *models.Transaction, value string, locs [][]int) {
	if head := strings.TrimSpace(value[:locs[0][0]]); head != "" {
		txn.Description = joinInfo(txn.Description, head)
	}
	for i, loc := range locs {
		end := len(value)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		code := value[loc[2]:loc[3]]
		text := strings.TrimSpace(value[loc[1]:end])
		if text == "" {
			continue
		}
		switch {
		case code >= "20" && code <= "25":
			txn.Description = joinInfo(txn.Description, text)
		case code == "32" || code == "33":
			if txn.Counterparty == nil {
				txn.Counterparty = &models.Counterparty{}
			}
			txn.Counterparty.Name = joinInfo(txn.Counterparty.Name, text)
		}
	}
}

func (b *statementBuilder) continueInfo(line string) {
	if !b.pendingInfo || len(b.transactions) == 0 {
		return
	}
	b.applyInfo(line)
}

func joinInfo(existing, more string) string {
	if existing == "" {
		return more
	}
	if more == "" {
		return existing
	}
	return existing + " " + more
}

func parseBalance(value string) (mark, currency string, amount decimal.Decimal, err error) {
	m := balancePattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return "", "", decimal.Zero, errors.New("malformed balance")
	}
	amount, err = decimal.NewFromString(strings.Replace(m[4], ",", ".", 1))
	if err != nil {
		return "", "", decimal.Zero, err
	}
	return m[1], m[3], amount, nil
}

// expandDate converts a YYMMDD tag date to storage form YYYY-MM-DD.
// Two-digit years 00-79 map to 20xx, 80-99 to 19xx.
func expandDate(d string) string {
	century := "20"
	if d[0] >= '8' {
		century = "19"
	}
	return century + d[0:2] + "-" + d[2:4] + "-" + d[4:6]
}

func splitLines(data []byte) []string {
	return strings.Split(string(data), "\n")
}
