package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	md2bean "github.com/presidento/moneydance2beancount"
	"github.com/presidento/moneydance2beancount/date"
)

type convertCmd struct {
	input  string
	outDir string
}

func (*convertCmd) Name() string { return "convert" }
func (*convertCmd) Synopsis() string {
	return "convert a Moneydance export into a set of beancount files"
}
func (*convertCmd) Usage() string {
	return `md2bean convert [-i <export_file>] [-o <output_dir>]

  Reads the tab-delimited Moneydance export, reconstructs double-entry
  transactions from its split records, and writes main.bean, accounts.bean
  and one <year>.bean file per calendar year into the output directory.
  Output files are recreated from scratch on every run.

Usage Examples:
# Convert the default export into the current directory.
$ md2bean convert

`
}

func (p *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.input, "i", "Personal Finances.txt", "Moneydance export file to convert.")
	f.StringVar(&p.outDir, "o", ".", "Directory the beancount files are written into.")
}

func (p *convertCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	log.Printf("Parsing Moneydance input")
	converter, err := ParseAndConvert(p.input, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	log.Printf("Writing beancount files")
	if err := writeFiles(p.outDir, cfg, converter); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeFiles renders the converted ledger into the output directory:
// main.bean (options and includes), accounts.bean (directives and opening
// balances) and one transaction file per calendar year.
func writeFiles(dir string, cfg md2bean.Config, converter *md2bean.Converter) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	transactions := converter.Transactions()
	years := md2bean.Years(transactions)

	if err := writeFile(filepath.Join(dir, "main.bean"), func(f *os.File) error {
		return md2bean.EncodeMain(f, cfg, years)
	}); err != nil {
		return err
	}

	if err := writeFile(filepath.Join(dir, "accounts.bean"), func(f *os.File) error {
		return md2bean.EncodeAccounts(f, cfg, converter.Accounts(), converter.OpeningTransactions(), date.Today())
	}); err != nil {
		return err
	}

	for _, year := range years {
		var yearly []*md2bean.Transaction
		for _, tx := range transactions {
			if tx.Date.Year() == year {
				yearly = append(yearly, tx)
			}
		}
		name := filepath.Join(dir, fmt.Sprintf("%d.bean", year))
		if err := writeFile(name, func(f *os.File) error {
			return md2bean.EncodeTransactions(f, cfg, yearly)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(name string, encode func(*os.File) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", name, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %q: %w", name, err)
	}
	return f.Close()
}
