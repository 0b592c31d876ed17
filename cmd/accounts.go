package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type accountsCmd struct {
	input string
}

func (*accountsCmd) Name() string { return "accounts" }
func (*accountsCmd) Synopsis() string {
	return "list the beancount accounts the export resolves to, without writing files"
}
func (*accountsCmd) Usage() string {
	return `md2bean accounts [-i <export_file>]

  Parses and reconciles the export, then prints each resolved account with
  its currency, activity window and starting balance. Useful to review the
  account mapping before a conversion.

`
}

func (p *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.input, "i", "Personal Finances.txt", "Moneydance export file to inspect.")
}

func (p *accountsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	converter, err := ParseAndConvert(p.input, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	for _, account := range converter.Accounts() {
		line := fmt.Sprintf("%-50s %s %s..%s", account.Name, account.Currency, account.StartDate, account.EndDate)
		if !account.StartBalance.IsZero() {
			line += fmt.Sprintf(" (starting balance %s)", account.StartBalance)
		}
		fmt.Println(line)
	}
	return subcommands.ExitSuccess
}
