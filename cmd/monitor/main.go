// Command monitor inspects and edits the stock portfolio from the terminal.
//
//	monitor show
//	monitor refresh -save
//	monitor edit TAEE11 quantity 200
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to read .env: %v", err)
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	register(commander)

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

// register adds the monitor commands to c.
func register(c *subcommands.Commander) {
	c.Register(&showCmd{}, "portfolio")
	c.Register(&opportunitiesCmd{}, "portfolio")
	c.Register(&summaryCmd{}, "portfolio")

	c.Register(&editCmd{}, "edit")
	c.Register(&addCmd{}, "edit")
	c.Register(&removeCmd{}, "edit")

	c.Register(&refreshCmd{}, "quotes")
	c.Register(&pruneCmd{}, "quotes")

	c.Register(&importCmd{}, "data")
	c.Register(&saveCmd{}, "data")
}
