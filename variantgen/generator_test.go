package variantgen

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/sink"
)

func resultUnion() ir.UnionDescriptor {
	u := ir.UnionDescriptor{Name: "Result", Options: ir.DefaultOptions()}
	u.AddCase(ir.CaseDescriptor{Name: "Ok", Tag: 0, Values: []ir.ValueDescriptor{ir.TypeParam("value", "T", false)}})
	u.AddCase(ir.CaseDescriptor{Name: "Err", Tag: 1, Values: []ir.ValueDescriptor{ir.Ref("error", "error")}})
	return u
}

func optionUnion() ir.UnionDescriptor {
	u := ir.UnionDescriptor{Name: "Option", Options: ir.DefaultOptions()}
	u.AddCase(ir.CaseDescriptor{Name: "None", Tag: 0})
	u.AddCase(ir.CaseDescriptor{Name: "Some", Tag: 1, Values: []ir.ValueDescriptor{ir.Value("value", "int")}})
	return u
}

func TestApplyConfigDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input *Config
		check func(*Config) bool
	}{
		{
			name:  "empty config gets defaults",
			input: &Config{},
			check: func(c *Config) bool {
				return c.Format == FormatJSON && c.Logger != nil && !c.SingleFile
			},
		},
		{
			name:  "explicit values preserved",
			input: &Config{Format: FormatText, SingleFile: true},
			check: func(c *Config) bool {
				return c.Format == FormatText && c.SingleFile
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *tt.input
			got := applyConfigDefaults(tt.input)
			if !tt.check(got) {
				t.Errorf("unexpected config: %+v", got)
			}
			if tt.input.Format != before.Format || tt.input.Logger != before.Logger {
				t.Error("input config was mutated")
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := applyConfigDefaults(&Config{Format: "yaml"}).validate(); err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected unknown format error, got %v", err)
	}
	bad := &Config{Overrides: map[string][]string{"colour": {"true"}}}
	if err := applyConfigDefaults(bad).validate(); err == nil {
		t.Error("expected error for unknown override key")
	}
}

func TestApplyOverrides(t *testing.T) {
	got, err := ApplyOverrides(ir.DefaultOptions(), map[string][]string{
		"shareReferenceSlots": {"false"},
		"generateHashing":     {"false"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := ir.DefaultOptions()
	want.ShareReferenceSlots = false
	want.GenerateHashing = false
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := ApplyOverrides(ir.DefaultOptions(), map[string][]string{"generateHashing": {"maybe"}}); err == nil {
		t.Error("expected error for non-boolean value")
	}
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{"generateEquality=false", " shareReferenceSlots = true ", "generateToString"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["generateEquality"][0] != "false" || got["shareReferenceSlots"][0] != "true" || got["generateToString"][0] != "true" {
		t.Errorf("unexpected overrides: %v", got)
	}
	if _, err := ParseOverrides([]string{"=true"}); err == nil {
		t.Error("expected error for missing key")
	}
	if got, _ := ParseOverrides(nil); got != nil {
		t.Errorf("expected nil overrides, got %v", got)
	}
}

func TestBuild_KeepsInputOrder(t *testing.T) {
	descs := []ir.UnionDescriptor{resultUnion(), optionUnion()}
	arts, err := Build(context.Background(), descs, &Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(arts) != 2 || arts[0].Union.Name != "Result" || arts[1].Union.Name != "Option" {
		t.Fatalf("unexpected artifacts: %+v", arts)
	}
	if arts[1].Contract.Union != "Option" {
		t.Errorf("contract union = %q", arts[1].Contract.Union)
	}
}

func TestBuild_JoinsErrors(t *testing.T) {
	dupTag := resultUnion()
	dupTag.Cases[1].Tag = 0
	empty := ir.UnionDescriptor{Name: "Empty", Options: ir.DefaultOptions()}

	_, err := Build(context.Background(), []ir.UnionDescriptor{dupTag, optionUnion(), empty}, &Config{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ir.ErrDuplicateTag) {
		t.Errorf("expected duplicate_tag in %v", err)
	}
	if !errors.Is(err, ir.ErrEmptyUnion) {
		t.Errorf("expected empty_union in %v", err)
	}
	if !strings.Contains(err.Error(), "union Result:") || !strings.Contains(err.Error(), "union Empty:") {
		t.Errorf("errors should name their unions: %v", err)
	}
}

func TestBuild_Filter(t *testing.T) {
	descs := []ir.UnionDescriptor{resultUnion(), optionUnion()}
	arts, err := Build(context.Background(), descs, &Config{Unions: []string{"Option"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(arts) != 1 || arts[0].Union.Name != "Option" {
		t.Fatalf("unexpected artifacts: %+v", arts)
	}

	if _, err := Build(context.Background(), descs, &Config{Unions: []string{"Either"}}); err == nil {
		t.Error("expected error for unknown union")
	}
	if _, err := Build(context.Background(), nil, &Config{}); !errors.Is(err, ir.ErrInvalidDescriptor) {
		t.Errorf("expected invalid_descriptor for no unions, got %v", err)
	}
}

func TestBuild_DuplicateUnionNames(t *testing.T) {
	lower := optionUnion()
	lower.Name = "option"
	tests := []struct {
		name  string
		descs []ir.UnionDescriptor
		msg   string
	}{
		{name: "same name", descs: []ir.UnionDescriptor{optionUnion(), resultUnion(), optionUnion()}, msg: "more than once"},
		{name: "same file stem", descs: []ir.UnionDescriptor{optionUnion(), lower}, msg: `file name "option"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.descs, &Config{})
			if !errors.Is(err, ir.ErrDuplicateUnionName) {
				t.Fatalf("expected duplicate_union_name, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("unexpected message: %v", err)
			}

			_, err = Build(context.Background(), tt.descs, &Config{Unions: []string{"Result"}})
			if !errors.Is(err, ir.ErrDuplicateUnionName) {
				t.Errorf("filtering must not hide duplicates, got %v", err)
			}
		})
	}
}

func TestRender_PathCollision(t *testing.T) {
	arts, err := Build(context.Background(), []ir.UnionDescriptor{optionUnion()}, &Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Render([]Artifact{arts[0], arts[0]}, FormatJSON, false); err == nil || !strings.Contains(err.Error(), "option.plan.json") {
		t.Errorf("expected path collision error, got %v", err)
	}
	if _, err := Render([]Artifact{arts[0], arts[0]}, FormatJSON, true); err != nil {
		t.Errorf("single file output has no per-union paths: %v", err)
	}
}

func TestBuild_Overrides(t *testing.T) {
	arts, err := Build(context.Background(), []ir.UnionDescriptor{resultUnion()}, &Config{
		Overrides: map[string][]string{"generateEquality": {"false"}, "shareReferenceSlots": {"false"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u := arts[0].Union
	if u.Options.GenerateEquality || u.Plan().Bucket.Shared {
		t.Errorf("overrides not applied: %+v", u.Options)
	}
	if _, ok := arts[0].Contract.Find("Equals"); ok {
		t.Error("Equals should not be synthesized when equality is disabled")
	}
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, []ir.UnionDescriptor{resultUnion()}, &Config{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerator_JSONFiles(t *testing.T) {
	res, err := FromDescriptors(resultUnion(), optionUnion()).Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"result.plan.json", "result.contracts.json", "option.plan.json", "option.contracts.json"}
	if len(res.Files) != len(want) {
		t.Fatalf("got %d files, want %d", len(res.Files), len(want))
	}
	for _, path := range want {
		if _, ok := res.Files[path]; !ok {
			t.Errorf("missing %s", path)
		}
	}

	var plan struct {
		Union string `json:"union"`
		Plan  struct {
			Discriminant struct {
				Bits int `json:"bits"`
			} `json:"discriminant"`
			Bucket struct {
				Slots []struct {
					Owners []struct {
						Case  string `json:"case"`
						Field string `json:"field"`
					} `json:"owners"`
				} `json:"slots"`
			} `json:"bucket"`
		} `json:"plan"`
	}
	if err := json.Unmarshal(res.Files["result.plan.json"], &plan); err != nil {
		t.Fatalf("invalid plan JSON: %v", err)
	}
	if plan.Union != "Result" || plan.Plan.Discriminant.Bits != 8 {
		t.Errorf("unexpected plan: %+v", plan)
	}
	// Ok.value and Err.error share bucket position 0.
	if len(plan.Plan.Bucket.Slots) != 1 || len(plan.Plan.Bucket.Slots[0].Owners) != 2 {
		t.Errorf("unexpected bucket: %+v", plan.Plan.Bucket)
	}

	var contract struct {
		Operations []struct {
			Name string `json:"name"`
		} `json:"operations"`
	}
	if err := json.Unmarshal(res.Files["result.contracts.json"], &contract); err != nil {
		t.Fatalf("invalid contract JSON: %v", err)
	}
	if contract.Operations[0].Name != "NewOk" {
		t.Errorf("first operation = %q, want NewOk", contract.Operations[0].Name)
	}
}

func TestGenerator_SingleFileText(t *testing.T) {
	res, err := FromDescriptors(resultUnion(), optionUnion()).
		WithFormat(FormatText).
		SingleFile().
		Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content, ok := res.Files["variants.txt"]
	if !ok || len(res.Files) != 1 {
		t.Fatalf("expected only variants.txt, got %v", res.Files)
	}
	text := string(content)
	for _, want := range []string{
		"union Result",
		"union Option",
		"discriminant int8 [0..1]",
		"NewSome(value int) Option",
		"(Result) GetOk() T  [extract]",
		"fails invalid_case_access when discriminant != 0",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestGenerator_ToDir(t *testing.T) {
	dir := t.TempDir()
	res, err := FromDescriptors(optionUnion()).
		WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))).
		ToDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for path, want := range res.Files {
		got, err := os.ReadFile(filepath.Join(dir, path))
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if string(got) != string(want) {
			t.Errorf("%s on disk differs from result", path)
		}
	}

	if _, err := FromDescriptors(optionUnion()).ToDir(context.Background(), ""); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestGenerator_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unions.yaml")
	src := `unions:
  - name: Shape
    cases:
      - name: Circle
        values:
          - {name: radius, type: float64, kind: value}
      - name: Label
        values:
          - {name: text, type: string, kind: reference}
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	mem := sink.NewMemorySink()
	res, err := FromFile(path).Set("shareReferenceSlots", "false").To(context.Background(), mem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mem.Paths(); len(got) != 2 || got[0] != "shape.contracts.json" || got[1] != "shape.plan.json" {
		t.Errorf("unexpected paths: %v", got)
	}
	if res.Artifacts[0].Union.Plan().Bucket.Shared {
		t.Error("override not applied to file input")
	}

	if _, err := FromFile(filepath.Join(dir, "missing.yaml")).Generate(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileBase(t *testing.T) {
	tests := map[string]string{
		"Result":     "result",
		"my-union":   "my-union",
		"pkg.Option": "pkg_option",
		"":           "union",
	}
	for in, want := range tests {
		if got := fileBase(in); got != want {
			t.Errorf("fileBase(%q) = %q, want %q", in, got, want)
		}
	}
}
