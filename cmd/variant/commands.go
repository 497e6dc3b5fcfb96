package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/broady/variant"
	"github.com/broady/variant/cmd/variant/internal/input"
	"github.com/broady/variant/cmd/variant/internal/show"
	"github.com/broady/variant/variantgen"
	"github.com/broady/variant/variantgen/sink"
)

var errCheckFailed = errors.New("check failed")

type CheckCmd struct {
	input.Flags `embed:""`
}

func (c *CheckCmd) Run(ctx context.Context, logger *slog.Logger) error {
	arts, _, err := c.Build(ctx, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, show.Errors(err))
		return errCheckFailed
	}
	fmt.Println(show.Summary(arts))
	fmt.Println(show.OK("%d unions valid", len(arts)))
	return nil
}

type PlanCmd struct {
	input.Flags `embed:""`
	JSON        bool `help:"Print the plan artifacts as JSON." short:"j"`
}

func (c *PlanCmd) Run(ctx context.Context, logger *slog.Logger) error {
	arts, _, err := c.Build(ctx, logger)
	if err != nil {
		return err
	}
	if c.JSON {
		return printArtifacts(ctx, os.Stdout, arts, ".plan.json")
	}
	for _, a := range arts {
		fmt.Println(show.Plan(a.Union))
	}
	return nil
}

type ContractsCmd struct {
	input.Flags `embed:""`
	JSON        bool `help:"Print the contract artifacts as JSON." short:"j"`
}

func (c *ContractsCmd) Run(ctx context.Context, logger *slog.Logger) error {
	arts, _, err := c.Build(ctx, logger)
	if err != nil {
		return err
	}
	if c.JSON {
		return printArtifacts(ctx, os.Stdout, arts, ".contracts.json")
	}
	for _, a := range arts {
		fmt.Println(show.Contract(a.Contract))
	}
	return nil
}

// printArtifacts writes the JSON artifacts whose path ends in suffix.
func printArtifacts(ctx context.Context, w io.Writer, arts []variantgen.Artifact, suffix string) error {
	files, err := variantgen.Render(arts, variantgen.FormatJSON, false)
	if err != nil {
		return err
	}
	out := &sink.WriterSink{W: w, Headers: len(arts) > 1}
	for _, f := range files {
		if !strings.HasSuffix(f.Path, suffix) {
			continue
		}
		if err := out.WriteFile(ctx, f.Path, f.Content); err != nil {
			return err
		}
	}
	return nil
}

type GenCmd struct {
	input.Flags `embed:""`
	Out         string `arg:"" help:"Output directory for generated files."`
	Format      string `help:"Artifact format." enum:"json,text" default:"json"`
	SingleFile  bool   `help:"Write every union into one file." name:"single-file"`
	NoOverwrite bool   `help:"Fail instead of replacing existing files." name:"no-overwrite"`
}

func (c *GenCmd) Run(ctx context.Context, logger *slog.Logger) error {
	descs, err := c.Load(ctx, logger)
	if err != nil {
		return err
	}
	cfg, err := c.Config(logger)
	if err != nil {
		return err
	}
	cfg.OutDir = c.Out
	cfg.Format = variantgen.Format(c.Format)
	cfg.SingleFile = c.SingleFile

	out := &sink.FilesystemSink{Root: c.Out, Mode: 0644, Overwrite: !c.NoOverwrite}
	res, err := variantgen.Generate(ctx, descs, cfg, out)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(res.Files))
	for p := range res.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Println(show.OK("wrote %s", p))
	}
	return nil
}

type NewCmd struct {
	input.Flags `embed:""`
	Case        string   `help:"Case name or factory name to construct." required:"" short:"c"`
	Args        []string `arg:"" optional:"" help:"Case values in declaration order. JSON literals are decoded; anything else is taken as a string."`
}

func (c *NewCmd) Run(ctx context.Context, logger *slog.Logger) error {
	arts, _, err := c.Build(ctx, logger)
	if err != nil {
		return err
	}
	if len(arts) != 1 {
		return fmt.Errorf("%d unions loaded; select one with --union", len(arts))
	}
	u := arts[0].Union

	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		args[i] = parseArg(a)
	}

	var v variant.Value
	if _, ok := u.Case(c.Case); ok {
		v, err = variant.New(u, c.Case, args...)
	} else {
		v, err = variant.Construct(u, c.Case, args...)
	}
	if err != nil {
		return err
	}

	fmt.Println(show.Title(v.String()))
	fmt.Printf("case  %s\n", v.Case())
	fmt.Printf("tag   %d\n", v.Tag())
	fmt.Printf("hash  %#016x\n", v.Hash())
	return nil
}

// parseArg decodes a JSON literal, falling back to the raw string.
func parseArg(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
