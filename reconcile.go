package md2bean

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/presidento/moneydance2beancount/date"
	"github.com/presidento/moneydance2beancount/moneydance"
	"github.com/shopspring/decimal"
)

// ErrUnreconciled reports register entries for which no double-entry
// counterpart exists on their date. Dropping them would unbalance the
// ledger, so the whole run aborts.
var ErrUnreconciled = errors.New("unreconciled transactions")

// Converter reconstructs balanced beancount transactions from the raw
// Moneydance register. It owns the account registry; postings reference the
// registry's accounts.
type Converter struct {
	cfg          Config
	accounts     map[string]*Account // keyed by Moneydance type + altered name
	transactions []*Transaction
}

// NewConverter returns a Converter for the given configuration.
func NewConverter(cfg Config) *Converter {
	return &Converter{cfg: cfg, accounts: make(map[string]*Account)}
}

// Convert consumes all register entries and reconstructs one beancount
// transaction per double-entry pair (or fan-out) the source recorded.
//
// Entries are grouped by date. Within a date, each entry is taken as an
// anchor and paired with its counterparts: a counterpart of anchor split s
// is another entry t with exactly one split such that t is the opposite of
// s and the anchor is the opposite of t's split. Both sides of the pairing
// are consumed; an anchor that matches no counterpart must itself be
// consumed as a counterpart of a later anchor. Any entry left over after
// the pass has no counterpart at all and makes the conversion fail.
func (c *Converter) Convert(transactions iter.Seq[*moneydance.Transaction]) error {
	byDate := make(map[date.Date][]*moneydance.Transaction)
	var days []date.Date // first-seen order
	for tx := range transactions {
		if _, ok := byDate[tx.Date]; !ok {
			days = append(days, tx.Date)
		}
		byDate[tx.Date] = append(byDate[tx.Date], tx)
	}
	for _, day := range days {
		if err := c.convertDay(day, byDate[day]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) convertDay(day date.Date, queue []*moneydance.Transaction) error {
	legs := newLegIndex(queue)
	consumed := make(map[*moneydance.Transaction]bool, len(queue))
	for _, anchor := range queue {
		if consumed[anchor] {
			continue // already taken as an earlier anchor's counterpart
		}
		var matched []*moneydance.Transaction
		for _, split := range anchor.Splits {
			if leg := legs.take(anchor, split, consumed); leg != nil {
				consumed[leg] = true
				matched = append(matched, leg)
			}
		}
		if len(matched) == 0 {
			// This entry is the other side of a pair; a later anchor
			// will consume it.
			continue
		}
		consumed[anchor] = true
		tx := newTransaction(anchor)
		for _, leg := range matched {
			p, err := c.createPosting(leg)
			if err != nil {
				return err
			}
			tx.addPosting(p, leg.Status)
		}
		p, err := c.createPosting(anchor)
		if err != nil {
			return err
		}
		tx.addPosting(p, anchor.Status)
		c.transactions = append(c.transactions, tx)
	}
	var leftover []string
	for _, tx := range queue {
		if !consumed[tx] {
			leftover = append(leftover, fmt.Sprintf("%s %s %q", tx.Account.Name, tx.Amount, tx.Description))
		}
	}
	if len(leftover) > 0 {
		return fmt.Errorf("%w on %s: no double-entry counterpart for: %s", ErrUnreconciled, day, strings.Join(leftover, "; "))
	}
	return nil
}

// legIndex indexes an anchor's possible counterparts for O(1) lookup:
// single-split entries, keyed by their own fields and their split's fields.
type legIndex struct {
	byKey map[legKey][]*moneydance.Transaction
}

type legKey struct {
	account, amount, memo                string
	splitAccount, splitAmount, splitMemo string
}

// keyAmount is an exponent-insensitive rendering (1.5 and 1.50 must collide).
func keyAmount(d decimal.Decimal) string { return d.StringFixed(4) }

func newLegIndex(queue []*moneydance.Transaction) *legIndex {
	idx := &legIndex{byKey: make(map[legKey][]*moneydance.Transaction)}
	for _, tx := range queue {
		if len(tx.Splits) != 1 {
			continue
		}
		k := legKey{
			account:      tx.Account.Name,
			amount:       keyAmount(tx.Amount),
			memo:         tx.Memo,
			splitAccount: tx.Splits[0].Account.Name,
			splitAmount:  keyAmount(tx.Splits[0].Amount),
			splitMemo:    tx.Splits[0].Memo,
		}
		idx.byKey[k] = append(idx.byKey[k], tx)
	}
	return idx
}

// take returns the first unconsumed entry that is the double-entry
// counterpart of the anchor's split s, or nil. Candidates are tried in
// register order; the key lookup narrows them and the Opposite predicate
// confirms the match exactly.
func (x *legIndex) take(anchor *moneydance.Transaction, s *moneydance.Split, consumed map[*moneydance.Transaction]bool) *moneydance.Transaction {
	k := legKey{
		account:      s.Account.Name,
		amount:       keyAmount(s.Amount.Neg()),
		memo:         s.Memo,
		splitAccount: anchor.Account.Name,
		splitAmount:  keyAmount(anchor.Amount.Neg()),
		splitMemo:    anchor.Memo,
	}
	for _, t := range x.byKey[k] {
		if t == anchor || consumed[t] {
			continue
		}
		if t.Opposite(s) && anchor.Opposite(t.Splits[0]) {
			return t
		}
	}
	return nil
}

// createPosting builds the ledger leg of one register entry: the amount is
// the entry's own signed amount, and when the account is not held in the
// reporting currency the entry's first split carries the source-provided
// converted amount.
func (c *Converter) createPosting(md *moneydance.Transaction) (Posting, error) {
	account, err := c.resolveAccount(md)
	if err != nil {
		return Posting{}, err
	}
	account.RegisterDate(md.Date)
	p := Posting{
		Account:  account,
		Amount:   md.Amount,
		Currency: account.Currency,
		Comment:  md.Memo,
	}
	if account.Currency != c.cfg.ReportingCurrency && len(md.Splits) > 0 {
		converted := md.Splits[0].Amount
		p.Converted = &converted
	}
	return p, nil
}

// resolveAccount maps a register entry to its beancount account, creating it
// in the registry on first use. Resolution is idempotent: the same identity
// always yields the same *Account.
func (c *Converter) resolveAccount(md *moneydance.Transaction) (*Account, error) {
	name := alteredName(md)
	key := md.Account.Type + ":" + name
	if account, ok := c.accounts[key]; ok {
		return account, nil
	}
	category, err := categoryOf(md.Account.Type)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", md.Account.Name, err)
	}
	account := &Account{
		Name:         string(category) + ":" + FixName(name),
		Category:     category,
		Currency:     md.Account.Currency,
		StartBalance: md.Account.StartBalance,
	}
	c.accounts[key] = account
	return account, nil
}

// alteredName returns the effective Moneydance account name of an entry.
// A liability entry with a check number names the actual counterparty in the
// check-number column; an income account drops its first hierarchy segment.
func alteredName(md *moneydance.Transaction) string {
	if md.Account.Type == "LIABILITY" && md.CheckNumber != "" {
		return md.CheckNumber
	}
	if md.Account.Type == "INCOME" {
		_, after, _ := strings.Cut(md.Account.Name, ":")
		return after
	}
	return md.Account.Name
}

// Transactions returns the converted transactions sorted by date; entries on
// the same day keep their conversion order.
func (c *Converter) Transactions() []*Transaction {
	txs := slices.Clone(c.transactions)
	slices.SortStableFunc(txs, func(a, b *Transaction) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case b.Date.Before(a.Date):
			return 1
		}
		return 0
	})
	return txs
}

// Accounts returns the resolved accounts sorted by qualified name.
func (c *Converter) Accounts() []*Account {
	accounts := slices.Collect(maps.Values(c.accounts))
	slices.SortFunc(accounts, func(a, b *Account) int {
		return strings.Compare(a.Name, b.Name)
	})
	return accounts
}

// OpeningTransactions materializes the nonzero starting balances as
// synthetic transactions against the equity clearing account, dated at each
// account's first activity.
func (c *Converter) OpeningTransactions() []*Transaction {
	equity := &Account{Name: c.cfg.EquityAccount, Category: Equity, Currency: c.cfg.ReportingCurrency}
	var txs []*Transaction
	for _, account := range c.Accounts() {
		if account.StartBalance.IsZero() {
			continue
		}
		day := account.StartDate
		if day.IsZero() {
			day = c.cfg.epochDate()
		}
		tx := &Transaction{
			Date:      day,
			Status:    Cleared,
			Narration: "Opening balance",
			Postings: []Posting{
				{Account: account, Amount: account.StartBalance, Currency: account.Currency},
				{Account: equity, Amount: account.StartBalance.Neg(), Currency: account.Currency},
			},
		}
		txs = append(txs, tx)
	}
	return txs
}
