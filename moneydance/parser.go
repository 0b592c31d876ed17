package moneydance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/presidento/moneydance2beancount/date"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Export date formats.
const (
	dayFormat     = "2006.01.02"
	enteredFormat = "2006.01.02 15:04:05"
)

// ErrMalformedSplit reports a split row whose sentinel columns are not "-".
// It indicates format drift in the export and aborts the whole run.
var ErrMalformedSplit = errors.New("malformed split record")

// Parser reads a Moneydance export and materializes its raw records.
// The zero value is not usable; call NewParser.
type Parser struct {
	accounts map[string]*Account
	order    []string // account names in first-reference order

	section string       // current section name, from the last "#..." marker
	account *Account     // account of the current register, from the last Account row
	tx      *Transaction // most recently parsed transaction, receives split rows
	line    int
}

// NewParser returns an empty parser.
func NewParser() *Parser {
	return &Parser{accounts: make(map[string]*Account)}
}

// Account returns the account with the given name, creating it on first
// reference. Split rows may name an account before its declaration row.
func (p *Parser) Account(name string) *Account {
	account, ok := p.accounts[name]
	if !ok {
		account = &Account{Name: name}
		p.accounts[name] = account
		p.order = append(p.order, name)
	}
	return account
}

// Parse consumes the whole export from r. The export is Windows-1250 encoded.
func (p *Parser) Parse(r io.Reader) error {
	scanner := bufio.NewScanner(transform.NewReader(r, charmap.Windows1250.NewDecoder()))
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return fmt.Errorf("line %d: %w", p.line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading export: %w", err)
	}
	return nil
}

func (p *Parser) parseLine(line string) error {
	fields := splitFields(line)
	if len(fields) == 0 || fields[0] == "" {
		return nil
	}
	if strings.HasPrefix(fields[0], "#") {
		p.section = fields[0][1:]
		switch p.section {
		case "Currency", "Account", "Date":
		default:
			log.Printf("warning: skipping unknown section %q", p.section)
		}
		return nil
	}
	switch p.section {
	case "Currency":
		// Exchange-rate history; the converter takes converted amounts
		// verbatim from split rows, so this section carries nothing for us.
		return nil
	case "Account":
		return p.parseAccount(fields)
	case "Date":
		if fields[0] == "-" {
			return p.parseSplit(fields)
		}
		return p.parseTransaction(fields)
	}
	return nil
}

// parseAccount reads an Account row: name, uuid, type, currency, start_balance.
func (p *Parser) parseAccount(fields []string) error {
	if len(fields) < 5 {
		return fmt.Errorf("account row has %d fields, want 5", len(fields))
	}
	account := p.Account(fields[0])
	id, err := uuid.Parse(fields[1])
	if err != nil {
		return fmt.Errorf("account %q: %w", fields[0], err)
	}
	balance, err := decimal.NewFromString(fields[4])
	if err != nil {
		return fmt.Errorf("account %q start balance: %w", fields[0], err)
	}
	account.UUID = id
	account.Type = fields[2]
	account.Currency = fields[3]
	account.StartBalance = balance
	p.account = account
	return nil
}

// parseTransaction reads a Date row holding a register entry:
// date, tax_date, date_entered, check_number, description, status, account, memo, amount.
func (p *Parser) parseTransaction(fields []string) error {
	if len(fields) < 9 {
		return fmt.Errorf("transaction row has %d fields, want 9", len(fields))
	}
	if p.account == nil {
		return errors.New("transaction row before any account declaration")
	}
	day, err := date.ParseLayout(dayFormat, fields[0])
	if err != nil {
		return err
	}
	taxDay, err := date.ParseLayout(dayFormat, fields[1])
	if err != nil {
		return err
	}
	if len(fields[2]) < len(enteredFormat) {
		return fmt.Errorf("invalid entry timestamp %q", fields[2])
	}
	entered, err := time.Parse(enteredFormat, fields[2][:len(enteredFormat)])
	if err != nil {
		return fmt.Errorf("invalid entry timestamp %q: %w", fields[2], err)
	}
	amount, err := decimal.NewFromString(fields[8])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", fields[8], err)
	}
	tx := &Transaction{
		Date:        day,
		TaxDate:     taxDay,
		DateEntered: entered,
		CheckNumber: fields[3],
		Description: fields[4],
		Status:      fields[5],
		Account:     p.Account(fields[6]),
		Memo:        fields[7],
		Amount:      amount,
	}
	p.account.Transactions = append(p.account.Transactions, tx)
	p.tx = tx
	return nil
}

// parseSplit reads a Date row holding a counter-leg of the last transaction.
// Columns 2-5 are format sentinels and must all be "-".
func (p *Parser) parseSplit(fields []string) error {
	if len(fields) < 9 {
		return fmt.Errorf("split row has %d fields, want 9", len(fields))
	}
	for _, sentinel := range fields[1:5] {
		if sentinel != "-" {
			return fmt.Errorf("%w: sentinel column is %q", ErrMalformedSplit, sentinel)
		}
	}
	if p.tx == nil {
		return fmt.Errorf("%w: split row before any transaction", ErrMalformedSplit)
	}
	amount, err := decimal.NewFromString(fields[8])
	if err != nil {
		return fmt.Errorf("invalid split amount %q: %w", fields[8], err)
	}
	p.tx.Splits = append(p.tx.Splits, &Split{
		Status:  fields[5],
		Account: p.Account(fields[6]),
		Memo:    fields[7],
		Amount:  amount,
	})
	return nil
}

// AllTransactions yields every parsed transaction, account by account in
// first-reference order, preserving the register order within each account.
func (p *Parser) AllTransactions() iter.Seq[*Transaction] {
	return func(yield func(*Transaction) bool) {
		for _, name := range p.order {
			for _, tx := range p.accounts[name].Transactions {
				if !yield(tx) {
					return
				}
			}
		}
	}
}

// Accounts yields every known account in first-reference order.
func (p *Parser) Accounts() iter.Seq[*Account] {
	return func(yield func(*Account) bool) {
		for _, name := range p.order {
			if !yield(p.accounts[name]) {
				return
			}
		}
	}
}
