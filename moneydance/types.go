// Package moneydance implements the record model and the parser for the
// Moneydance tab-delimited export format.
//
// The export is a single-entry transaction log: every register entry is
// recorded under its own account, and the counter-legs of a double-entry
// pair appear both as split rows attached to one entry and as standalone
// entries under the other account. Reconstructing balanced transactions
// from this representation is the job of the converter package; this
// package only provides faithful typed records.
package moneydance

import (
	"time"

	"github.com/google/uuid"
	"github.com/presidento/moneydance2beancount/date"
	"github.com/shopspring/decimal"
)

// Account is a raw account as declared in the export's Account section.
// Accounts are created on first reference (splits may name an account before
// its declaration row is seen) and are never deleted.
type Account struct {
	Name         string // unique identity within one export
	UUID         uuid.UUID
	Type         string // BANK, ASSET, EXPENSE, INCOME, LIABILITY, ...
	Currency     string
	StartBalance decimal.Decimal
	Transactions []*Transaction // register entries recorded under this account
}

// Transaction is one register entry of the export's Date section.
type Transaction struct {
	Date        date.Date
	TaxDate     date.Date
	DateEntered time.Time
	CheckNumber string
	Description string
	Status      string // one-character reconciliation code: " ", "x" or "X"
	Account     *Account
	Memo        string
	Amount      decimal.Decimal
	Splits      []*Split
}

// Split is a counter-leg recorded against another account, attached to the
// register entry it was entered under.
type Split struct {
	Status  string
	Account *Account
	Memo    string
	Amount  decimal.Decimal
}

// Opposite reports whether t and s are the two legs of the same double-entry
// pair: same account, exactly negated amounts, and equal memos. This is the
// matching primitive of the reconciliation algorithm.
func (t *Transaction) Opposite(s *Split) bool {
	return t.Account == s.Account && t.Amount.Add(s.Amount).IsZero() && t.Memo == s.Memo
}
