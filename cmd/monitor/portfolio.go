package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"investment-monitor/internal/app"
	"investment-monitor/internal/report"
)

// refreshFlag adds -r to commands that can refresh quotes before reporting.
type refreshFlag struct {
	refresh bool
}

func (r *refreshFlag) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.refresh, "r", false, "refresh quotes before building the report")
}

func (r *refreshFlag) maybeRefresh(ctx context.Context, a *app.App) error {
	if !r.refresh {
		return nil
	}
	res, err := a.Refresh(ctx)
	if err != nil {
		return err
	}
	if len(res.Missing) > 0 {
		fmt.Fprintf(stderr, "No quote for: %v\n", res.Missing)
	}
	return nil
}

// showCmd prints the holdings table.
type showCmd struct {
	refreshFlag
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display the holdings table" }
func (*showCmd) Usage() string {
	return `monitor show [-r]

  Displays every holding with its quote, value, return and fair value threshold.
`
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		if err := c.maybeRefresh(ctx, a); err != nil {
			return err
		}
		printMarkdown(report.PortfolioMarkdown(a.Portfolio()))
		return nil
	})
}

// opportunitiesCmd lists holdings priced at or below their fair value threshold.
type opportunitiesCmd struct {
	refreshFlag
}

func (*opportunitiesCmd) Name() string { return "opportunities" }
func (*opportunitiesCmd) Synopsis() string {
	return "list holdings priced at or below their fair value threshold"
}
func (*opportunitiesCmd) Usage() string {
	return `monitor opportunities [-r]

  Lists holdings whose price is at or below dividends per share / 6%.
`
}

func (c *opportunitiesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		if err := c.maybeRefresh(ctx, a); err != nil {
			return err
		}
		printMarkdown(report.OpportunitiesMarkdown(a.Opportunities()))
		return nil
	})
}

// summaryCmd prints the aggregate figures.
type summaryCmd struct {
	refreshFlag
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display totals, average return and top holdings" }
func (*summaryCmd) Usage() string {
	return `monitor summary [-r]

  Displays totals, average return, positive and negative counts and the
  top holdings by return and by dividends.
`
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		if err := c.maybeRefresh(ctx, a); err != nil {
			return err
		}
		printMarkdown(report.SummaryMarkdown(a.Summary()))
		return nil
	})
}

// refreshCmd fetches quotes for every holding.
type refreshCmd struct {
	save bool
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch quotes for every holding" }
func (*refreshCmd) Usage() string {
	return `monitor refresh [-save]

  Fetches a quote for every holding and displays the updated table. Holdings
  without a quote keep their previous values. With -save the refreshed
  table is written to the store.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.save, "save", false, "save the refreshed table")
}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		res, err := a.Refresh(ctx)
		if err != nil {
			return err
		}
		printMarkdown(report.PortfolioMarkdown(res.Portfolio))
		fmt.Fprint(stdout, report.RefreshMarkdown(res))
		if opps := res.Portfolio.Opportunities(); len(opps) > 0 {
			printMarkdown(report.OpportunitiesMarkdown(opps))
		}
		if c.save {
			return a.Save(ctx)
		}
		return nil
	})
}

// pruneCmd trims the quote archive.
type pruneCmd struct {
	keep int
}

func (*pruneCmd) Name() string     { return "prune" }
func (*pruneCmd) Synopsis() string { return "trim the quote archive" }
func (*pruneCmd) Usage() string {
	return `monitor prune [-keep <n>]

  Deletes archived quotes beyond the newest n per symbol. Requires DATABASE_URL.
`
}

func (c *pruneCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.keep, "keep", 100, "archived quotes to keep per symbol")
}

func (c *pruneCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		n, err := a.PruneQuotes(ctx, c.keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted %d archived quote(s).\n", n)
		return nil
	})
}
