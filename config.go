package md2bean

import (
	"errors"
	"fmt"
	"io"

	"github.com/Rhymond/go-money"
	"github.com/presidento/moneydance2beancount/date"
	"gopkg.in/yaml.v3"
)

// Config carries the settings of one conversion. Passing it around (instead
// of package constants) allows converting several ledgers with different
// currencies in the same process.
type Config struct {
	// Title is the ledger title emitted in the main file.
	Title string `yaml:"title"`
	// ReportingCurrency is the operating currency; converted-amount
	// annotations are expressed in it.
	ReportingCurrency string `yaml:"reporting_currency"`
	// EquityAccount is the clearing account credited by opening-balance
	// transactions.
	EquityAccount string `yaml:"equity_account"`
	// Epoch is the ISO date at which the equity account is opened.
	Epoch string `yaml:"epoch"`
	// CloseAfterDays closes an asset or liability account whose last
	// activity is more than this many days before the run date.
	CloseAfterDays int `yaml:"close_after_days"`
	// AccountColumn is the padded width of the account-name column.
	AccountColumn int `yaml:"account_column"`
}

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Title:             "Moneydance export",
		ReportingCurrency: "HUF",
		EquityAccount:     "Equity:Opening-Balances",
		Epoch:             "1970-01-01",
		CloseAfterDays:    365,
		AccountColumn:     40,
	}
}

// LoadConfig reads a YAML configuration, filling unset fields with defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := date.Parse(c.Epoch); err != nil {
		return fmt.Errorf("invalid epoch: %w", err)
	}
	if money.GetCurrency(c.ReportingCurrency) == nil {
		return fmt.Errorf("unknown reporting currency %q", c.ReportingCurrency)
	}
	if c.AccountColumn <= 0 {
		return fmt.Errorf("account column width must be positive, got %d", c.AccountColumn)
	}
	return nil
}

// epochDate returns the parsed Epoch. Config is validated at load time, and
// DefaultConfig's epoch is well-formed, so parsing cannot fail here.
func (c Config) epochDate() date.Date {
	return date.MustParse(c.Epoch)
}
