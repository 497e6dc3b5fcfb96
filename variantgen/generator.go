// Package variantgen builds union models from descriptions and writes their
// slot plans and operation contracts as artifacts.
package variantgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
	"github.com/broady/variant/variantgen/model"
	"github.com/broady/variant/variantgen/provider"
	"github.com/broady/variant/variantgen/sink"
	"github.com/broady/variant/variantgen/synth"
)

// Artifact is one built union and its contract.
type Artifact struct {
	Union    *model.Union
	Contract *synth.Contract
}

// GenerateResult holds the outcome of a generation run.
type GenerateResult struct {
	// Artifacts are in input order.
	Artifacts []Artifact

	// Files maps every written path to its content.
	Files map[string][]byte
}

// Generator provides a fluent API for artifact generation.
// Create with FromDescriptors() or FromFile() and configure with method
// chaining.
//
// Example:
//
//	variantgen.FromFile("unions.yaml").
//	    Set("shareReferenceSlots", "false").
//	    ToDir(ctx, "./gen")
type Generator struct {
	descs []ir.UnionDescriptor
	path  string
	cfg   Config
}

// FromDescriptors creates a Generator for the given union descriptions.
func FromDescriptors(descs ...ir.UnionDescriptor) *Generator {
	return &Generator{descs: descs}
}

// FromFile creates a Generator reading a YAML or JSON description file.
// The file is read when generation runs.
func FromFile(path string) *Generator {
	return &Generator{path: path}
}

// WithFormat selects the artifact encoding.
func (g *Generator) WithFormat(f Format) *Generator {
	g.cfg.Format = f
	return g
}

// SingleFile emits all unions in one file.
func (g *Generator) SingleFile() *Generator {
	g.cfg.SingleFile = true
	return g
}

// Only restricts generation to the named unions.
func (g *Generator) Only(unions ...string) *Generator {
	g.cfg.Unions = append(g.cfg.Unions, unions...)
	return g
}

// Set overrides an option flag on every union, e.g.
// Set("generateHashing", "false").
func (g *Generator) Set(key, value string) *Generator {
	if g.cfg.Overrides == nil {
		g.cfg.Overrides = make(map[string][]string)
	}
	g.cfg.Overrides[key] = []string{value}
	return g
}

// WithLogger sets the logger for debug output.
func (g *Generator) WithLogger(l *slog.Logger) *Generator {
	g.cfg.Logger = l
	return g
}

// ToDir writes artifacts to dir.
// This is a terminal operation that writes files to disk.
func (g *Generator) ToDir(ctx context.Context, dir string) (*GenerateResult, error) {
	if dir == "" {
		return nil, fmt.Errorf("OutDir is required")
	}
	g.cfg.OutDir = dir
	return g.To(ctx, sink.NewFilesystemSink(dir))
}

// Generate returns artifacts in memory without writing to disk.
func (g *Generator) Generate(ctx context.Context) (*GenerateResult, error) {
	return g.To(ctx, nil)
}

// To writes artifacts to out. A nil sink keeps them in memory only.
func (g *Generator) To(ctx context.Context, out sink.OutputSink) (*GenerateResult, error) {
	descs := g.descs
	if g.path != "" {
		loaded, err := provider.LoadFile(g.path)
		if err != nil {
			return nil, err
		}
		descs = append(append([]ir.UnionDescriptor(nil), descs...), loaded...)
	}
	return Generate(ctx, descs, &g.cfg, out)
}

// Generate builds every description and writes the artifacts to out.
// A nil out keeps them in memory only.
func Generate(ctx context.Context, descs []ir.UnionDescriptor, cfg *Config, out sink.OutputSink) (*GenerateResult, error) {
	cfg = applyConfigDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	artifacts, err := Build(ctx, descs, cfg)
	if err != nil {
		return nil, err
	}

	files, err := Render(artifacts, cfg.Format, cfg.SingleFile)
	if err != nil {
		return nil, err
	}
	result := &GenerateResult{Artifacts: artifacts, Files: make(map[string][]byte, len(files))}
	for _, f := range files {
		result.Files[f.Path] = f.Content
	}
	if out == nil {
		return result, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, f := range files {
		g.Go(func() error {
			if err := out.WriteFile(ctx, f.Path, f.Content); err != nil {
				return fmt.Errorf("write %s: %w", f.Path, err)
			}
			cfg.Logger.Debug("artifact written", slog.String("path", f.Path), slog.Int("bytes", len(f.Content)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Build assembles and synthesizes every description concurrently.
// Results keep input order. Failures of different unions are joined, so
// one call reports every broken description.
func Build(ctx context.Context, descs []ir.UnionDescriptor, cfg *Config) ([]Artifact, error) {
	cfg = applyConfigDefaults(cfg)

	if err := checkUnionNames(descs); err != nil {
		return nil, err
	}
	descs, err := filter(descs, cfg.Unions)
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, ir.Errorf(ir.CodeInvalidDescriptor, "", nil, "no unions to generate")
	}

	asm := &model.Assembler{Logger: cfg.Logger}
	artifacts := make([]Artifact, len(descs))
	errs := make([]error, len(descs))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, desc := range descs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opts, err := ApplyOverrides(desc.Options, cfg.Overrides)
			if err != nil {
				return err
			}
			desc.Options = opts

			cfg.Logger.Debug("building union", slog.String("union", desc.Name), slog.Int("cases", len(desc.Cases)))
			u, err := asm.Build(desc)
			if err != nil {
				errs[i] = fmt.Errorf("union %s: %w", desc.Name, err)
				return nil
			}
			c, err := synth.Synthesize(u)
			if err != nil {
				errs[i] = fmt.Errorf("union %s: %w", desc.Name, err)
				return nil
			}
			artifacts[i] = Artifact{Union: u, Contract: c}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// checkUnionNames rejects inputs in which two unions share a name or map
// to the same artifact file name.
func checkUnionNames(descs []ir.UnionDescriptor) error {
	names := make(map[string]bool, len(descs))
	stems := make(map[string]string, len(descs))
	var errs []error
	for _, d := range descs {
		if names[d.Name] {
			errs = append(errs, ir.Errorf(ir.CodeDuplicateUnionName, d.Name, nil, "union declared more than once"))
			continue
		}
		names[d.Name] = true
		base := fileBase(d.Name)
		if other, ok := stems[base]; ok {
			errs = append(errs, ir.Errorf(ir.CodeDuplicateUnionName, d.Name, nil,
				fmt.Sprintf("file name %q is already used by union %s", base, other)))
			continue
		}
		stems[base] = d.Name
	}
	return errors.Join(errs...)
}

func filter(descs []ir.UnionDescriptor, names []string) ([]ir.UnionDescriptor, error) {
	if len(names) == 0 {
		return descs, nil
	}
	var out []ir.UnionDescriptor
	for _, name := range names {
		found := false
		for _, d := range descs {
			if d.Name == name {
				out = append(out, d)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown union: %q", name)
		}
	}
	return out, nil
}

// File is one rendered artifact.
type File struct {
	Path    string
	Content []byte
}

// planDocument is the JSON shape of a plan artifact.
type planDocument struct {
	Union   string           `json:"union"`
	Options ir.Options       `json:"options"`
	Plan    *layout.SlotPlan `json:"plan"`
}

// unionDocument is one entry of the single-file artifact.
type unionDocument struct {
	planDocument
	Contract *synth.Contract `json:"contract"`
}

// Render serializes artifacts into files. Paths are derived from the
// lower-cased union name.
func Render(artifacts []Artifact, format Format, singleFile bool) ([]File, error) {
	if format == "" {
		format = FormatJSON
	}
	if singleFile {
		content, err := renderAll(artifacts, format)
		if err != nil {
			return nil, err
		}
		return []File{{Path: "variants" + format.ext(), Content: content}}, nil
	}

	files := make([]File, 0, 2*len(artifacts))
	for _, a := range artifacts {
		base := fileBase(a.Union.Name)
		var plan, contracts []byte
		var err error
		if format == FormatText {
			plan = []byte(PlanText(a.Union))
			contracts = []byte(ContractText(a.Contract))
		} else {
			if plan, err = marshal(planDocument{Union: a.Union.Name, Options: a.Union.Options, Plan: a.Union.Plan()}); err != nil {
				return nil, err
			}
			if contracts, err = marshal(a.Contract); err != nil {
				return nil, err
			}
		}
		files = append(files,
			File{Path: base + ".plan" + format.ext(), Content: plan},
			File{Path: base + ".contracts" + format.ext(), Content: contracts})
	}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f.Path] {
			return nil, fmt.Errorf("two unions render to %s", f.Path)
		}
		seen[f.Path] = true
	}
	return files, nil
}

func renderAll(artifacts []Artifact, format Format) ([]byte, error) {
	if format == FormatText {
		var b strings.Builder
		for i, a := range artifacts {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(PlanText(a.Union))
			b.WriteString("\n")
			b.WriteString(ContractText(a.Contract))
		}
		return []byte(b.String()), nil
	}
	docs := make([]unionDocument, len(artifacts))
	for i, a := range artifacts {
		docs[i] = unionDocument{
			planDocument: planDocument{Union: a.Union.Name, Options: a.Union.Options, Plan: a.Union.Plan()},
			Contract:     a.Contract,
		}
	}
	return marshal(docs)
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return append(data, '\n'), nil
}

// fileBase maps a union name to a safe file name stem.
func fileBase(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "union"
	}
	return b.String()
}
