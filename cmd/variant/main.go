package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Verbose bool `help:"Enable debug logging." short:"v"`

	Version   VersionCmd   `cmd:"" help:"Print version information."`
	Check     CheckCmd     `cmd:"" help:"Validate union descriptions without writing files."`
	Plan      PlanCmd      `cmd:"" help:"Show the slot plan of each union."`
	Contracts ContractsCmd `cmd:"" help:"Show the synthesized operation contracts of each union."`
	Gen       GenCmd       `cmd:"" help:"Write plan and contract artifacts to a directory."`
	New       NewCmd       `cmd:"" help:"Construct a value of one case and print it."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("variant"),
		kong.Description("Plan storage layouts and synthesize operations for tagged unions."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	err := kctx.Run(logger)
	kctx.FatalIfErrorf(err)
}
