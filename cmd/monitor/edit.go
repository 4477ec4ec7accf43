package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"investment-monitor/internal/app"
	"investment-monitor/internal/report"
	"investment-monitor/portfolio"
)

// editCmd sets quantity or invested capital of a holding.
type editCmd struct{}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "set the quantity or invested capital of a holding" }
func (*editCmd) Usage() string {
	return `monitor edit <symbol> <field> <value>

  Fields: quantity (quantidade) and invested ("total investido").
  A quantity of 0 removes the holding. Amounts accept a comma as the
  decimal separator, e.g. 2500,50.
`
}

func (*editCmd) SetFlags(*flag.FlagSet) {}

func (*editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		fmt.Fprintln(stderr, "edit requires <symbol> <field> <value>")
		return subcommands.ExitUsageError
	}
	symbol, field, value := f.Arg(0), f.Arg(1), f.Arg(2)
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		p, err := a.EditField(ctx, symbol, field, value)
		if err != nil {
			return err
		}
		printMarkdown(report.PortfolioMarkdown(p))
		return nil
	})
}

// addCmd appends a holding.
type addCmd struct {
	name      string
	quantity  int64
	avgCost   string
	dividends string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a holding" }
func (*addCmd) Usage() string {
	return `monitor add -q <quantity> -cost <avg cost> [-name <company>] [-dps <dividends per share>] <symbol>

  Appends a holding. Invested capital is quantity times average cost.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "company name, defaults to the symbol")
	f.Int64Var(&c.quantity, "q", 0, "number of shares")
	f.StringVar(&c.avgCost, "cost", "0", "average cost per share")
	f.StringVar(&c.dividends, "dps", "0", "dividends per share over the last twelve months")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(stderr, "add requires exactly one <symbol>")
		return subcommands.ExitUsageError
	}
	avgCost, err := portfolio.ParseAmount(c.avgCost)
	if err != nil {
		return fail(err)
	}
	dps, err := portfolio.ParseAmount(c.dividends)
	if err != nil {
		return fail(err)
	}

	in := portfolio.NewHolding{
		Symbol:            f.Arg(0),
		Name:              c.name,
		Quantity:          c.quantity,
		AvgCost:           avgCost,
		DividendsPerShare: dps,
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		p, err := a.AddHolding(ctx, in)
		if err != nil {
			return err
		}
		printMarkdown(report.PortfolioMarkdown(p))
		return nil
	})
}

// removeCmd deletes a holding.
type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove a holding" }
func (*removeCmd) Usage() string {
	return `monitor remove <symbol>
`
}

func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (*removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(stderr, "remove requires exactly one <symbol>")
		return subcommands.ExitUsageError
	}
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		p, err := a.RemoveHolding(ctx, f.Arg(0))
		if err != nil {
			return err
		}
		printMarkdown(report.PortfolioMarkdown(p))
		return nil
	})
}
