// Package input loads union descriptions for the CLI from description
// files, WIT JSON documents or Go packages.
package input

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/broady/variant/variantgen"
	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/provider"
)

// Source kinds accepted by --from.
const (
	FromYAML = "yaml"
	FromWIT  = "wit"
	FromGo   = "go"
)

// Flags are the input flags shared by every command that reads unions.
type Flags struct {
	Path  string   `arg:"" help:"Description file (.yaml, .json), WIT JSON (.wit.json) or Go package pattern."`
	From  string   `help:"Input kind: yaml, wit or go. Inferred from the path when empty." short:"f"`
	Union []string `help:"Restrict to the named union. Required for WIT input." short:"u"`
	Set   []string `help:"Override an option flag on every union, e.g. shareReferenceSlots=false." placeholder:"KEY=VALUE"`
}

// Kind returns the input kind, inferring it from the path when --from is
// not given.
func (f *Flags) Kind() (string, error) {
	switch f.From {
	case FromYAML, FromWIT, FromGo:
		return f.From, nil
	case "":
	default:
		return "", fmt.Errorf("unknown input kind: %q (expected yaml, wit or go)", f.From)
	}
	p := strings.ToLower(f.Path)
	switch {
	case strings.HasSuffix(p, ".wit.json"):
		return FromWIT, nil
	case strings.HasSuffix(p, ".yaml"), strings.HasSuffix(p, ".yml"), strings.HasSuffix(p, ".json"):
		return FromYAML, nil
	default:
		return FromGo, nil
	}
}

// Load reads the union descriptions named by the flags.
func (f *Flags) Load(ctx context.Context, logger *slog.Logger) ([]ir.UnionDescriptor, error) {
	kind, err := f.Kind()
	if err != nil {
		return nil, err
	}
	logger.Debug("loading unions", slog.String("path", f.Path), slog.String("from", kind))

	switch kind {
	case FromWIT:
		if len(f.Union) == 0 {
			return nil, fmt.Errorf("--union is required for WIT input")
		}
		descs := make([]ir.UnionDescriptor, 0, len(f.Union))
		for _, name := range f.Union {
			d, err := provider.LoadWIT(f.Path, name)
			if err != nil {
				return nil, err
			}
			descs = append(descs, d)
		}
		return descs, nil
	case FromGo:
		p := &provider.SourceProvider{}
		return p.Build(ctx, provider.SourceOptions{Packages: []string{f.Path}, Unions: f.Union})
	default:
		return provider.LoadFile(f.Path)
	}
}

// Config returns the generator configuration implied by the flags.
// WIT input is already restricted to --union when loaded and its names are
// converted, so the union filter applies to the other kinds only.
func (f *Flags) Config(logger *slog.Logger) (*variantgen.Config, error) {
	overrides, err := variantgen.ParseOverrides(f.Set)
	if err != nil {
		return nil, err
	}
	kind, err := f.Kind()
	if err != nil {
		return nil, err
	}
	cfg := &variantgen.Config{
		Overrides: overrides,
		Logger:    logger,
	}
	if kind != FromWIT {
		cfg.Unions = f.Union
	}
	return cfg, nil
}

// Build loads and builds every selected union.
func (f *Flags) Build(ctx context.Context, logger *slog.Logger) ([]variantgen.Artifact, *variantgen.Config, error) {
	descs, err := f.Load(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := f.Config(logger)
	if err != nil {
		return nil, nil, err
	}
	arts, err := variantgen.Build(ctx, descs, cfg)
	if err != nil {
		return nil, nil, err
	}
	return arts, cfg, nil
}
