package md2bean

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/presidento/moneydance2beancount/date"
	"github.com/shopspring/decimal"
)

// EncodeTransaction writes one transaction in beancount syntax, ending with
// a newline. Rendering is deterministic: the same transaction always
// produces the same bytes.
func EncodeTransaction(w io.Writer, cfg Config, tx *Transaction) error {
	var b strings.Builder
	appendHeader(&b, tx)
	b.WriteByte('\n')
	appendPostings(&b, cfg, tx)
	_, err := io.WriteString(w, b.String())
	return err
}

// EncodeTransactions writes each transaction followed by a blank line.
func EncodeTransactions(w io.Writer, cfg Config, txs []*Transaction) error {
	for _, tx := range txs {
		if err := EncodeTransaction(w, cfg, tx); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// appendHeader renders `DATE STATUS ["PAYEE"] ["NARRATION"] [; COMMENT]`.
// When a payee is present with an empty narration, an explicit "" keeps the
// payee in the first string position, as the beancount grammar requires.
func appendHeader(b *strings.Builder, tx *Transaction) {
	fmt.Fprintf(b, "%s %s", tx.Date, tx.Status)
	if tx.Payee != "" {
		fmt.Fprintf(b, " \"%s\"", normalizeQuotes(tx.Payee))
		if tx.Narration == "" {
			b.WriteString(` ""`)
		}
	}
	if tx.Narration != "" {
		fmt.Fprintf(b, " \"%s\"", tx.Narration)
	}
	if tx.Comment != "" && tx.Comment != tx.Narration && tx.Comment != tx.Payee {
		comment := normalizeQuotes(tx.Comment)
		fmt.Fprintf(b, " ; %s", comment)
		fmt.Fprintf(b, "\n  comment: \"%s\"", comment)
	}
}

func appendPostings(b *strings.Builder, cfg Config, tx *Transaction) {
	postings := sortedPostings(tx)
	simple := isSimple(postings)
	for _, p := range postings {
		line := fmt.Sprintf("  %-*s", cfg.AccountColumn, p.Account.Name)
		if !(simple && p.Amount.IsNegative()) {
			line += fmt.Sprintf("%10s %s", formatAmount(p.Amount, p.Currency), p.Currency)
		}
		if p.Converted != nil {
			line += fmt.Sprintf(" @@ %s %s", formatAmount(p.Converted.Abs(), cfg.ReportingCurrency), cfg.ReportingCurrency)
		}
		own := p.Comment != "" && p.Comment != tx.Narration && p.Comment != tx.Comment
		if own {
			line += " ; " + p.Comment
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
		if own {
			fmt.Fprintf(b, "    comment:\"%s\"\n", normalizeQuotes(p.Comment))
		}
	}
}

// sortedPostings orders postings by descending amount, so debits print
// before credits. The sort is stable: equal amounts keep insertion order.
func sortedPostings(tx *Transaction) []Posting {
	postings := slices.Clone(tx.Postings)
	slices.SortStableFunc(postings, func(a, b Posting) int { return b.Amount.Cmp(a.Amount) })
	return postings
}

// isSimple reports whether the two-posting, no-conversion shortcut applies:
// the negative leg's amount is implied by the printed one and is omitted.
func isSimple(postings []Posting) bool {
	return len(postings) == 2 && postings[0].Converted == nil && postings[1].Converted == nil
}

// normalizeQuotes makes a string safe inside a beancount double-quoted
// string by replacing double quotes with single ones.
func normalizeQuotes(s string) string { return strings.ReplaceAll(s, `"`, "'") }

// formatAmount renders d with comma thousands grouping and the currency's
// fraction digits, never fewer than the two the export carries.
func formatAmount(d decimal.Decimal, currency string) string {
	fraction := 2
	if cur := money.GetCurrency(currency); cur != nil && cur.Fraction > 2 {
		fraction = cur.Fraction
	}
	s := d.StringFixed(int32(fraction))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, fracPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

// EncodeAccounts writes the shared account file: open and close directives
// sorted by account name and grouped by category, then the opening-balance
// transactions. When any opening balance exists, the equity clearing account
// is opened at the epoch date ahead of every directive that references it.
func EncodeAccounts(w io.Writer, cfg Config, accounts []*Account, opening []*Transaction, now date.Date) error {
	var b strings.Builder
	if len(opening) > 0 {
		fmt.Fprintf(&b, "%s open %s\n\n", cfg.epochDate(), cfg.EquityAccount)
	}
	var last Category
	for i, account := range accounts {
		if i > 0 && account.Category != last {
			b.WriteByte('\n')
		}
		last = account.Category
		appendOpen(&b, cfg, account)
		if shouldClose(cfg, account, now) {
			fmt.Fprintf(&b, "%s close %s\n", account.EndDate, account.Name)
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if len(opening) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		return EncodeTransactions(w, cfg, opening)
	}
	return nil
}

// appendOpen writes one open directive. Asset accounts carry their currency,
// with the "NONE" booking method when it is not the reporting currency.
func appendOpen(b *strings.Builder, cfg Config, account *Account) {
	day := account.StartDate
	if day.IsZero() {
		day = cfg.epochDate()
	}
	fmt.Fprintf(b, "%s open %s", day, account.Name)
	if account.Category == Assets {
		fmt.Fprintf(b, "     %s", account.Currency)
		if account.Currency != cfg.ReportingCurrency {
			b.WriteString(` "NONE"`)
		}
	}
	b.WriteByte('\n')
}

// shouldClose reports whether the account is out of use: an asset or
// liability account idle for more than the configured number of days before
// now.
func shouldClose(cfg Config, account *Account, now date.Date) bool {
	if account.Category != Assets && account.Category != Liabilities {
		return false
	}
	if account.EndDate.IsZero() {
		return false
	}
	return now.Sub(account.EndDate) > cfg.CloseAfterDays
}

// EncodeMain writes the top-level ledger file: options and includes.
func EncodeMain(w io.Writer, cfg Config, years []int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "option \"title\" \"%s\"\n", cfg.Title)
	fmt.Fprintf(&b, "option \"operating_currency\" \"%s\"\n", cfg.ReportingCurrency)
	b.WriteByte('\n')
	b.WriteString("include \"accounts.bean\"\n")
	for _, year := range years {
		fmt.Fprintf(&b, "include \"%d.bean\"\n", year)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Years returns the distinct calendar years of txs, ascending. txs is
// expected to be date-sorted.
func Years(txs []*Transaction) []int {
	var years []int
	for _, tx := range txs {
		if len(years) == 0 || years[len(years)-1] != tx.Date.Year() {
			years = append(years, tx.Date.Year())
		}
	}
	slices.Sort(years)
	return slices.Compact(years)
}
