// Package cmd implements the CLI application driving the conversion.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	md2bean "github.com/presidento/moneydance2beancount"
	"github.com/presidento/moneydance2beancount/moneydance"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&convertCmd{}, "conversion")
	c.Register(&accountsCmd{}, "conversion")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "Path to the YAML configuration file (defaults apply when empty)")

// LoadConfig returns the app configuration, or the defaults when no config
// file is given.
func LoadConfig() (md2bean.Config, error) {
	if *configFile == "" {
		return md2bean.DefaultConfig(), nil
	}
	f, err := os.Open(*configFile)
	if err != nil {
		return md2bean.Config{}, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()
	return md2bean.LoadConfig(f)
}

// ParseAndConvert runs the parser and the converter over one export file.
func ParseAndConvert(input string, cfg md2bean.Config) (*md2bean.Converter, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("could not open export file: %w", err)
	}
	defer f.Close()

	parser := moneydance.NewParser()
	if err := parser.Parse(f); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", input, err)
	}
	converter := md2bean.NewConverter(cfg)
	if err := converter.Convert(parser.AllTransactions()); err != nil {
		return nil, err
	}
	return converter, nil
}
