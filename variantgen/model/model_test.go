package model

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
)

func result() ir.UnionDescriptor {
	return ir.UnionDescriptor{
		Name: "Result",
		Cases: []ir.CaseDescriptor{
			{Name: "Failure", Tag: 1, Values: []ir.ValueDescriptor{ir.Ref("reason", "string")}},
			{Name: "Success", Tag: 0, Values: []ir.ValueDescriptor{ir.Value("value", "int")}, Factory: "Ok"},
		},
		Options: ir.DefaultOptions(),
	}
}

func TestBuild(t *testing.T) {
	u, err := Build(result())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if u.Len() != 2 {
		t.Errorf("Len() = %d", u.Len())
	}
	if u.Index("Success") != 1 || u.Index("Nope") != -1 {
		t.Errorf("Index() wrong: %d %d", u.Index("Success"), u.Index("Nope"))
	}
	c, ok := u.CaseByTag(0)
	if !ok || c.Name != "Success" {
		t.Errorf("CaseByTag(0) = %v, %t", c, ok)
	}
	c, ok = u.CaseByFactory("Ok")
	if !ok || c.Name != "Success" {
		t.Errorf("CaseByFactory(Ok) = %v, %t", c, ok)
	}
	if _, ok := u.CaseByFactory("NewSuccess"); ok {
		t.Error("default factory name should be replaced by Ok")
	}
	c, _ = u.Case("Failure")
	if c.Factory != "NewFailure" {
		t.Errorf("Failure factory = %q", c.Factory)
	}
	if c.Layout == nil || c.Layout.Case != "Failure" {
		t.Errorf("Failure layout = %+v", c.Layout)
	}

	var byTag []string
	for _, c := range u.CasesByTag() {
		byTag = append(byTag, c.Name)
	}
	if !reflect.DeepEqual(byTag, []string{"Success", "Failure"}) {
		t.Errorf("CasesByTag() = %v", byTag)
	}
	if u.Cases()[0].Name != "Failure" {
		t.Error("Cases() should keep declaration order")
	}
}

func TestBuild_Isolated(t *testing.T) {
	desc := result()
	u, err := Build(desc)
	if err != nil {
		t.Fatal(err)
	}
	desc.Cases[0].Values[0].Name = "changed"
	if c, _ := u.Case("Failure"); c.Params[0].Name != "reason" {
		t.Error("model shares memory with its description")
	}
	d := u.Descriptor()
	d.Cases[0].Name = "X"
	if u.Descriptor().Cases[0].Name != "Failure" {
		t.Error("Descriptor() returned shared memory")
	}

	cases := u.Cases()
	cases[0].Params[0].Kind = ir.KindValue
	cases[0].Layout.Assignments[0].Index = 7
	byTag := u.CasesByTag()
	byTag[1].Params[0].Name = "changed"
	c := u.CaseAt(0)
	c.Layout.Assignments[0].Storage = layout.StorageValue
	p := u.Plan()
	p.Cases[0].Assignments[0].Index = 5
	p.Values[0].Types[0] = "string"

	got := u.CaseAt(0)
	if got.Params[0].Name != "reason" || got.Params[0].Kind != ir.KindReference {
		t.Errorf("case params changed through a copy: %+v", got.Params[0])
	}
	if a := got.Layout.Assignments[0]; a.Index != 0 || a.Storage != layout.StorageBucket {
		t.Errorf("case layout changed through a copy: %+v", a)
	}
	if u.ValueSlotType(0) != "int" {
		t.Errorf("plan changed through a copy: %q", u.ValueSlotType(0))
	}
	if err := u.Plan().Verify(); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		desc ir.UnionDescriptor
		want []ir.ErrorCode
	}{
		{
			name: "empty",
			desc: ir.UnionDescriptor{Name: "E"},
			want: []ir.ErrorCode{ir.CodeEmptyUnion},
		},
		{
			name: "duplicate tag",
			desc: ir.UnionDescriptor{Name: "U", Cases: []ir.CaseDescriptor{
				{Name: "A", Tag: 1}, {Name: "B", Tag: 1},
			}},
			want: []ir.ErrorCode{ir.CodeDuplicateTag},
		},
		{
			name: "duplicate case name",
			desc: ir.UnionDescriptor{Name: "U", Cases: []ir.CaseDescriptor{
				{Name: "A", Tag: 1}, {Name: "A", Tag: 2, Factory: "Other"},
			}},
			want: []ir.ErrorCode{ir.CodeDuplicateCaseName},
		},
		{
			name: "duplicate factory",
			desc: ir.UnionDescriptor{Name: "U", Cases: []ir.CaseDescriptor{
				{Name: "A", Tag: 1, Factory: "Make"}, {Name: "B", Tag: 2, Factory: "Make"},
			}},
			want: []ir.ErrorCode{ir.CodeDuplicateFactoryName},
		},
		{
			name: "duplicate value",
			desc: ir.UnionDescriptor{Name: "U", Cases: []ir.CaseDescriptor{
				{Name: "A", Values: []ir.ValueDescriptor{ir.Value("x", "int"), ir.Ref("x", "string")}},
			}},
			want: []ir.ErrorCode{ir.CodeDuplicateValueName},
		},
		{
			name: "cycle",
			desc: ir.UnionDescriptor{
				Name: "U",
				Cases: []ir.CaseDescriptor{{Name: "A", Values: []ir.ValueDescriptor{
					{Name: "n", Type: "Node", Kind: ir.KindDecomposable},
				}}},
				Composites: []ir.CompositeDescriptor{
					{Name: "Node", Fields: []ir.ValueDescriptor{{Name: "edge", Type: "Edge", Kind: ir.KindDecomposable}}},
					{Name: "Edge", Fields: []ir.ValueDescriptor{{Name: "to", Type: "Node", Kind: ir.KindDecomposable}}},
				},
			},
			want: []ir.ErrorCode{ir.CodeCyclicDecomposition},
		},
		{
			name: "invalid descriptors",
			desc: ir.UnionDescriptor{Name: "U", Cases: []ir.CaseDescriptor{
				{Name: "", Tag: 0},
				{Name: "B", Tag: 1, Values: []ir.ValueDescriptor{
					ir.Value("a.b", "int"),
					{Name: "p", Type: "Missing", Kind: ir.KindDecomposable},
					{Name: "k", Type: "int", Kind: ir.TypeKind(42)},
				}},
			}},
			want: []ir.ErrorCode{ir.CodeInvalidDescriptor, ir.CodeInvalidDescriptor, ir.CodeInvalidDescriptor, ir.CodeInvalidDescriptor},
		},
		{
			name: "all problems reported together",
			desc: ir.UnionDescriptor{Name: "U", Cases: []ir.CaseDescriptor{
				{Name: "A", Tag: 1}, {Name: "B", Tag: 1}, {Name: "A", Tag: 2, Factory: "NewB"},
			}},
			want: []ir.ErrorCode{ir.CodeDuplicateTag, ir.CodeDuplicateCaseName, ir.CodeDuplicateFactoryName},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Build(tt.desc)
			if err == nil {
				t.Fatalf("Build() = %v, want error", u)
			}
			got := ir.Codes(err)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("codes = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}
}

func TestBuild_DuplicateTagNamesBothCases(t *testing.T) {
	_, err := Build(ir.UnionDescriptor{Name: "U", Cases: []ir.CaseDescriptor{
		{Name: "A", Tag: 3}, {Name: "B", Tag: 3},
	}})
	if !errors.Is(err, ir.ErrDuplicateTag) {
		t.Fatalf("got %v", err)
	}
	var e *ir.Error
	if !errors.As(err, &e) {
		t.Fatal("not an *ir.Error")
	}
	if e.Union != "U" || !slices.Equal(e.Cases, []string{"A", "B"}) {
		t.Errorf("error = %+v", e)
	}
}

func TestBuild_CycleMessage(t *testing.T) {
	desc := ir.UnionDescriptor{
		Name:  "U",
		Cases: []ir.CaseDescriptor{{Name: "A"}},
		Composites: []ir.CompositeDescriptor{
			{Name: "Node", Fields: []ir.ValueDescriptor{{Name: "self", Type: "Node", Kind: ir.KindDecomposable}}},
		},
	}
	_, err := Build(desc)
	if err == nil || !strings.Contains(err.Error(), "Node -> Node") {
		t.Errorf("got %v", err)
	}
}

func TestAssembler_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := &Assembler{Logger: logger}
	if _, err := a.Build(result()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "union assembled") || !strings.Contains(out, "union=Result") {
		t.Errorf("log output = %q", out)
	}
}

func TestChildren(t *testing.T) {
	u, err := Build(ir.UnionDescriptor{
		Name: "Shape",
		Cases: []ir.CaseDescriptor{{Name: "Dot", Values: []ir.ValueDescriptor{
			{Name: "at", Type: "Point", Kind: ir.KindDecomposable},
		}}},
		Composites: []ir.CompositeDescriptor{
			{Name: "Point", Fields: []ir.ValueDescriptor{ir.Value("x", "int"), ir.Value("y", "int")}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := u.Case("Dot")
	children, ok := u.Children(c.Params[0])
	if !ok || len(children) != 2 {
		t.Errorf("Children() = %v, %t", children, ok)
	}
	if len(u.Plan().Values) != 2 {
		t.Errorf("plan value slots = %d", len(u.Plan().Values))
	}
}
