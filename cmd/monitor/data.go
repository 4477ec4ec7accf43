package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"investment-monitor/internal/app"
)

// importCmd replaces the table with a legacy export.
type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace the portfolio with a legacy JSON export" }
func (*importCmd) Usage() string {
	return `monitor import <file>

  Reads a JSON array of records with the spreadsheet columns (Papel, Empresa,
  Quantidade, Total Investido, Dividendos/Ação, ...) and replaces the
  portfolio with it. Derived columns are recomputed.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(stderr, "import requires exactly one <file>")
		return subcommands.ExitUsageError
	}
	file, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error opening %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	defer file.Close()

	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		p, err := a.Import(ctx, file)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Imported %d holding(s) from %s\n", len(p.Holdings), f.Arg(0))
		return nil
	})
}

// saveCmd rewrites the store with the current table.
type saveCmd struct{}

func (*saveCmd) Name() string     { return "save" }
func (*saveCmd) Synopsis() string { return "write the portfolio back to the store" }
func (*saveCmd) Usage() string {
	return `monitor save

  Loads the portfolio and writes it back, converting a legacy data file to
  the current format.
`
}

func (*saveCmd) SetFlags(*flag.FlagSet) {}

func (*saveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		if err := a.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved %d holding(s).\n", len(a.Portfolio().Holdings))
		return nil
	})
}
