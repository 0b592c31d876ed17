package md2bean

import (
	"strings"

	"github.com/presidento/moneydance2beancount/date"
	"github.com/presidento/moneydance2beancount/moneydance"
	"github.com/shopspring/decimal"
)

// Status is a beancount transaction flag.
type Status string

const (
	// statusNone is the floor of the status order; unknown Moneydance codes
	// map to it and folding never raises a transaction to it.
	statusNone  Status = " "
	Uncleared   Status = "!"
	Reconciling Status = "?"
	Cleared     Status = "*"
)

// rank orders statuses for folding: none < uncleared < reconciling < cleared.
func (s Status) rank() int {
	switch s {
	case Uncleared:
		return 1
	case Reconciling:
		return 2
	case Cleared:
		return 3
	}
	return 0
}

// Fold returns the higher of the two statuses.
func (s Status) Fold(o Status) Status {
	if o.rank() > s.rank() {
		return o
	}
	return s
}

// statusOf converts a Moneydance reconciliation code to a beancount flag.
func statusOf(code string) Status {
	switch code {
	case " ": // Moneydance: uncleared, the default
		return Uncleared
	case "x": // Moneydance: reconciling
		return Reconciling
	case "X": // Moneydance: cleared
		return Cleared
	}
	return statusNone
}

// Transaction is one reconstructed double-entry transaction. It is built
// once during reconciliation, from an anchor register entry and its matched
// counterparts, and is immutable afterwards.
type Transaction struct {
	Date      date.Date
	Status    Status
	Payee     string
	Narration string
	Comment   string
	Postings  []Posting
}

// Posting is one account/amount leg of a Transaction.
type Posting struct {
	Account  *Account
	Amount   decimal.Decimal
	Currency string
	Comment  string
	// Converted is the amount in the reporting currency, taken verbatim
	// from the source. Nil when the posting is already in the reporting
	// currency.
	Converted *decimal.Decimal
}

// newTransaction starts a transaction from its anchor register entry.
// Moneydance has no transaction-level status, so it starts at the floor of
// the per-split codes and is folded upwards as postings are added.
func newTransaction(md *moneydance.Transaction) *Transaction {
	return &Transaction{
		Date:      md.Date,
		Status:    Uncleared,
		Narration: strings.ReplaceAll(md.Description, `"`, "'"),
		Comment:   md.Memo,
	}
}

// addPosting appends p and folds the originating entry's status code into
// the transaction status.
func (t *Transaction) addPosting(p Posting, code string) {
	t.Postings = append(t.Postings, p)
	t.Status = t.Status.Fold(statusOf(code))
}
