// Package md2bean converts a Moneydance export into a Beancount ledger.
//
// The core of the package is the Converter, which reconstructs balanced
// double-entry transactions from the export's single-entry register (see
// reconcile.go), and the Encode* functions, which render the reconstructed
// ledger into deterministic beancount text (see encode_bean.go).
package md2bean

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/presidento/moneydance2beancount/date"
	"github.com/shopspring/decimal"
)

// Category is a top-level beancount account category.
type Category string

const (
	Assets      Category = "Assets"
	Liabilities Category = "Liabilities"
	Income      Category = "Income"
	Expenses    Category = "Expenses"
	Equity      Category = "Equity"
)

// ErrUnsupportedCategory reports a Moneydance account type the beancount
// model cannot represent. It aborts the whole run.
var ErrUnsupportedCategory = errors.New("unsupported account type")

// categoryOf maps a Moneydance account type code to its beancount category.
func categoryOf(mdType string) (Category, error) {
	switch mdType {
	case "EXPENSE":
		return Expenses, nil
	case "INCOME":
		return Income, nil
	case "BANK", "ASSET":
		return Assets, nil
	case "LIABILITY":
		return Liabilities, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCategory, mdType)
}

// Account is a beancount account derived from a Moneydance account.
// Instances are owned by the Converter's registry; postings share them.
type Account struct {
	Name         string // fully qualified, e.g. "Expenses:Food:Groceries"
	Category     Category
	Currency     string
	StartBalance decimal.Decimal
	StartDate    date.Date // zero until any transaction is registered
	EndDate      date.Date
}

// RegisterDate widens the account's activity window to include day.
// Wider always wins, regardless of registration order.
func (a *Account) RegisterDate(day date.Date) {
	if a.StartDate.IsZero() || a.StartDate.After(day) {
		a.StartDate = day
	}
	if a.EndDate.IsZero() || a.EndDate.Before(day) {
		a.EndDate = day
	}
}

// FixName sanitizes a Moneydance account name into a beancount-compatible
// one: ampersands are dropped, spaces become dashes, runs of dashes are
// collapsed, and each ":"-delimited segment is capitalized. The function is
// idempotent.
func FixName(name string) string {
	name = strings.ReplaceAll(name, "&", "")
	name = strings.ReplaceAll(name, " ", "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	parts := strings.Split(name, ":")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, ":")
}
