package md2bean

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/presidento/moneydance2beancount/date"
	"github.com/presidento/moneydance2beancount/moneydance"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEncodeTransactionSimple(t *testing.T) {
	t1, t2 := groceriesPair()
	converter := NewConverter(DefaultConfig())
	if err := converter.Convert(slices.Values([]*moneydance.Transaction{t1, t2})); err != nil {
		t.Fatalf("Convert returned an unexpected error: %v", err)
	}

	var buffer bytes.Buffer
	if err := EncodeTransaction(&buffer, DefaultConfig(), converter.Transactions()[0]); err != nil {
		t.Fatalf("EncodeTransaction returned an unexpected error: %v", err)
	}

	// The positive leg prints first with the single amount; the negative
	// leg's amount is implied and omitted.
	want := "2013-04-06 * \"Groceries\"\n" +
		"  Expenses:Food" + strings.Repeat(" ", 27) + "    100.00 HUF\n" +
		"  Assets:Bank\n"
	if got := buffer.String(); got != want {
		t.Errorf("EncodeTransaction produced:\n%q\nwant:\n%q", got, want)
	}
}

func TestEncodeTransactionConverted(t *testing.T) {
	account := &Account{Name: "Assets:EuroBank", Category: Assets, Currency: "EUR"}
	food := &Account{Name: "Expenses:Food", Category: Expenses, Currency: "HUF"}
	converted := dec("-14000.00")
	tx := &Transaction{
		Date:      date.MustParse("2013-04-06"),
		Status:    Cleared,
		Narration: "Trip",
		Postings: []Posting{
			{Account: food, Amount: dec("14000.00"), Currency: "HUF"},
			{Account: account, Amount: dec("-36.00"), Currency: "EUR", Converted: &converted},
		},
	}

	var buffer bytes.Buffer
	if err := EncodeTransaction(&buffer, DefaultConfig(), tx); err != nil {
		t.Fatalf("EncodeTransaction returned an unexpected error: %v", err)
	}
	got := buffer.String()

	// A converted amount disables the simple-transaction shortcut: both
	// amounts print, and the annotation uses the absolute value.
	if !strings.Contains(got, "-36.00 EUR @@ 14,000.00 HUF") {
		t.Errorf("missing converted annotation in:\n%s", got)
	}
	if !strings.Contains(got, "14,000.00 HUF\n") {
		t.Errorf("positive leg amount missing in:\n%s", got)
	}
}

func TestEncodeHeaderPayeePlaceholder(t *testing.T) {
	tx := &Transaction{Date: date.MustParse("2013-04-06"), Status: Uncleared, Payee: "Shop"}
	var b strings.Builder
	appendHeader(&b, tx)
	// The first string position must stay the payee, so an empty narration
	// is made explicit.
	if got, want := b.String(), `2013-04-06 ! "Shop" ""`; got != want {
		t.Errorf("header = %q, want %q", got, want)
	}
}

func TestEncodeHeaderComment(t *testing.T) {
	tests := []struct {
		name      string
		narration string
		comment   string
		want      string
	}{
		{"distinct comment", "Lunch", `say "hi"`, "2013-04-06 ! \"Lunch\" ; say 'hi'\n  comment: \"say 'hi'\""},
		{"comment equals narration", "Lunch", "Lunch", `2013-04-06 ! "Lunch"`},
		{"no comment", "Lunch", "", `2013-04-06 ! "Lunch"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := &Transaction{Date: date.MustParse("2013-04-06"), Status: Uncleared, Narration: tc.narration, Comment: tc.comment}
			var b strings.Builder
			appendHeader(&b, tx)
			if got := b.String(); got != tc.want {
				t.Errorf("header = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEncodePostingCommentSuppression(t *testing.T) {
	account := &Account{Name: "Expenses:Food", Category: Expenses, Currency: "HUF"}
	other := &Account{Name: "Assets:Bank", Category: Assets, Currency: "HUF"}
	tx := &Transaction{
		Date:      date.MustParse("2013-04-06"),
		Status:    Cleared,
		Narration: "Groceries",
		Comment:   "weekly",
		Postings: []Posting{
			{Account: account, Amount: dec("100.00"), Currency: "HUF", Comment: "weekly"},
			{Account: other, Amount: dec("-100.00"), Currency: "HUF", Comment: "from savings"},
		},
	}
	var buffer bytes.Buffer
	if err := EncodeTransaction(&buffer, DefaultConfig(), tx); err != nil {
		t.Fatalf("EncodeTransaction returned an unexpected error: %v", err)
	}
	got := buffer.String()
	// "weekly" duplicates the transaction comment and is suppressed on the
	// posting line (the header still carries it); "from savings" is the
	// posting's own and survives.
	if strings.Contains(got, "HUF ; weekly") {
		t.Errorf("duplicated posting comment not suppressed:\n%s", got)
	}
	if !strings.Contains(got, "; from savings") {
		t.Errorf("posting's own comment missing:\n%s", got)
	}
	if !strings.Contains(got, "comment:\"from savings\"") {
		t.Errorf("posting comment metadata missing:\n%s", got)
	}
}

func TestSortedPostingsStable(t *testing.T) {
	a := &Account{Name: "Expenses:A", Category: Expenses, Currency: "HUF"}
	b := &Account{Name: "Expenses:B", Category: Expenses, Currency: "HUF"}
	c := &Account{Name: "Assets:Bank", Category: Assets, Currency: "HUF"}
	tx := &Transaction{Postings: []Posting{
		{Account: a, Amount: dec("50.00"), Currency: "HUF"},
		{Account: b, Amount: dec("50.00"), Currency: "HUF"},
		{Account: c, Amount: dec("-100.00"), Currency: "HUF"},
	}}
	postings := sortedPostings(tx)
	names := []string{postings[0].Account.Name, postings[1].Account.Name, postings[2].Account.Name}
	want := []string{"Expenses:A", "Expenses:B", "Assets:Bank"}
	if !slices.Equal(names, want) {
		t.Errorf("sorted postings = %v, want %v", names, want)
	}
}

func TestIsSimple(t *testing.T) {
	converted := dec("10.00")
	two := []Posting{{Amount: dec("1")}, {Amount: dec("-1")}}
	twoConverted := []Posting{{Amount: dec("1"), Converted: &converted}, {Amount: dec("-1")}}
	three := []Posting{{Amount: dec("1")}, {Amount: dec("1")}, {Amount: dec("-2")}}
	if !isSimple(two) {
		t.Errorf("two plain postings must be simple")
	}
	if isSimple(twoConverted) {
		t.Errorf("a converted amount must disable the shortcut")
	}
	if isSimple(three) {
		t.Errorf("three postings are never simple")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1234567.8", "HUF", "1,234,567.80"},
		{"-1234.5", "EUR", "-1,234.50"},
		{"100", "HUF", "100.00"},
		{"0", "HUF", "0.00"},
		{"999", "EUR", "999.00"},
	}
	for _, tc := range tests {
		if got := formatAmount(dec(tc.amount), tc.currency); got != tc.want {
			t.Errorf("formatAmount(%s, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestEncodeAccountsClosePolicy(t *testing.T) {
	cfg := DefaultConfig()
	now := date.MustParse("2026-01-01")

	old := &Account{Name: "Assets:Old", Category: Assets, Currency: "HUF"}
	old.RegisterDate(now.Add(-367))
	recent := &Account{Name: "Assets:Recent", Category: Assets, Currency: "HUF"}
	recent.RegisterDate(now.Add(-364))
	expense := &Account{Name: "Expenses:Food", Category: Expenses, Currency: "HUF"}
	expense.RegisterDate(now.Add(-3000))

	var buffer bytes.Buffer
	err := EncodeAccounts(&buffer, cfg, []*Account{old, recent, expense}, nil, now)
	if err != nil {
		t.Fatalf("EncodeAccounts returned an unexpected error: %v", err)
	}
	got := buffer.String()

	if !strings.Contains(got, "close Assets:Old") {
		t.Errorf("account idle for 367 days must be closed:\n%s", got)
	}
	if strings.Contains(got, "close Assets:Recent") {
		t.Errorf("account idle for 364 days must stay open:\n%s", got)
	}
	// Expense accounts are never closed, however idle.
	if strings.Contains(got, "close Expenses:Food") {
		t.Errorf("expense accounts must never be closed:\n%s", got)
	}
	// Category groups are separated by a blank line.
	if !strings.Contains(got, "HUF\n\n") {
		t.Errorf("missing blank line between category groups:\n%s", got)
	}
}

func TestEncodeAccountsOpeningBalances(t *testing.T) {
	cfg := DefaultConfig()
	now := date.MustParse("2026-01-01")

	bank := &Account{Name: "Assets:Bank", Category: Assets, Currency: "HUF", StartBalance: dec("5000.00")}
	bank.RegisterDate(date.MustParse("2025-04-06"))
	equity := &Account{Name: cfg.EquityAccount, Category: Equity, Currency: "HUF"}
	opening := []*Transaction{{
		Date:      date.MustParse("2025-04-06"),
		Status:    Cleared,
		Narration: "Opening balance",
		Postings: []Posting{
			{Account: bank, Amount: dec("5000.00"), Currency: "HUF"},
			{Account: equity, Amount: dec("-5000.00"), Currency: "HUF"},
		},
	}}

	var buffer bytes.Buffer
	if err := EncodeAccounts(&buffer, cfg, []*Account{bank}, opening, now); err != nil {
		t.Fatalf("EncodeAccounts returned an unexpected error: %v", err)
	}
	got := buffer.String()

	// The equity clearing account opens at the epoch, ahead of everything
	// that references it.
	if !strings.HasPrefix(got, "1970-01-01 open Equity:Opening-Balances\n") {
		t.Errorf("equity account must open first at the epoch:\n%s", got)
	}
	if !strings.Contains(got, "2025-04-06 * \"Opening balance\"\n") {
		t.Errorf("opening-balance transaction missing:\n%s", got)
	}
	if !strings.Contains(got, "5,000.00 HUF\n") {
		t.Errorf("opening-balance amount missing:\n%s", got)
	}
}

func TestEncodeAccountsForeignCurrencyBooking(t *testing.T) {
	cfg := DefaultConfig()
	account := &Account{Name: "Assets:EuroBank", Category: Assets, Currency: "EUR"}
	account.RegisterDate(date.MustParse("2025-04-06"))

	var buffer bytes.Buffer
	if err := EncodeAccounts(&buffer, cfg, []*Account{account}, nil, date.MustParse("2025-05-01")); err != nil {
		t.Fatalf("EncodeAccounts returned an unexpected error: %v", err)
	}
	if want := "2025-04-06 open Assets:EuroBank     EUR \"NONE\"\n"; buffer.String() != want {
		t.Errorf("EncodeAccounts = %q, want %q", buffer.String(), want)
	}
}

func TestEncodeMain(t *testing.T) {
	var buffer bytes.Buffer
	if err := EncodeMain(&buffer, DefaultConfig(), []int{2013, 2014}); err != nil {
		t.Fatalf("EncodeMain returned an unexpected error: %v", err)
	}
	want := "option \"title\" \"Moneydance export\"\n" +
		"option \"operating_currency\" \"HUF\"\n" +
		"\n" +
		"include \"accounts.bean\"\n" +
		"include \"2013.bean\"\n" +
		"include \"2014.bean\"\n"
	if got := buffer.String(); got != want {
		t.Errorf("EncodeMain produced:\n%q\nwant:\n%q", got, want)
	}
}

func TestYears(t *testing.T) {
	txs := []*Transaction{
		{Date: date.MustParse("2013-04-06")},
		{Date: date.MustParse("2013-12-31")},
		{Date: date.MustParse("2015-01-01")},
	}
	if got := Years(txs); !slices.Equal(got, []int{2013, 2015}) {
		t.Errorf("Years = %v, want [2013 2015]", got)
	}
}
