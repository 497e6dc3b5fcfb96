package synth

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
	"github.com/broady/variant/variantgen/model"
)

func build(t *testing.T, desc ir.UnionDescriptor) *model.Union {
	t.Helper()
	u, err := model.Build(desc)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return u
}

func resultDesc(opts ir.Options) ir.UnionDescriptor {
	return ir.UnionDescriptor{
		Name: "Result",
		Cases: []ir.CaseDescriptor{
			{Name: "Success", Tag: 0, Values: []ir.ValueDescriptor{ir.Value("value", "int")}},
			{Name: "Failure", Tag: 1, Values: []ir.ValueDescriptor{ir.Ref("reason", "string")}},
			{Name: "Pending", Tag: 2},
		},
		Options: opts,
	}
}

func names(ops []Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Name
	}
	return out
}

func TestSynthesize_AllFamilies(t *testing.T) {
	c, err := Synthesize(build(t, resultDesc(ir.DefaultOptions())))
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}

	want := []string{
		"NewSuccess", "NewFailure", "NewPending",
		"IsSuccess", "IsFailure", "IsPending",
		"TryGetSuccess", "GetSuccess", "TryGetFailure", "GetFailure",
		"Match", "Equals", "Hash", "String",
	}
	if got := names(c.Operations); !reflect.DeepEqual(got, want) {
		t.Errorf("operations = %v\nwant %v", got, want)
	}
	if c.Discriminant.Bits != 8 {
		t.Errorf("discriminant bits = %d", c.Discriminant.Bits)
	}
	if len(c.Tags) != 3 || c.Tags[2].Case != "Pending" {
		t.Errorf("tags = %v", c.Tags)
	}
}

func TestSynthesize_OptionalFamilies(t *testing.T) {
	c, err := Synthesize(build(t, resultDesc(ir.Options{})))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range []Family{FamilyMatch, FamilyEquality, FamilyHashing, FamilyString} {
		if ops := c.Family(f); len(ops) != 0 {
			t.Errorf("family %s present with options off: %v", f, names(ops))
		}
	}
	for _, f := range []Family{FamilyConstruct, FamilyCaseTest, FamilyExtract} {
		if ops := c.Family(f); len(ops) == 0 {
			t.Errorf("family %s missing", f)
		}
	}

	c, err = Synthesize(build(t, resultDesc(ir.Options{GenerateHashing: true})))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Find("Hash"); !ok {
		t.Error("Hash missing")
	}
	if _, ok := c.Find("Equals"); ok {
		t.Error("Equals present")
	}
}

func TestSynthesize_Factory(t *testing.T) {
	c, err := Synthesize(build(t, resultDesc(ir.DefaultOptions())))
	if err != nil {
		t.Fatal(err)
	}
	op, _ := c.Find("NewFailure")
	if op.Family != FamilyConstruct || op.Receiver {
		t.Errorf("NewFailure = %+v", op)
	}
	if len(op.Params) != 1 || op.Params[0].Name != "reason" || op.Params[0].Kind != ir.KindReference {
		t.Errorf("params = %+v", op.Params)
	}
	want := []SlotWrite{
		{Storage: layout.StorageValue, Index: 0, Default: "int"},
		{Storage: layout.StorageBucket, Index: 0, Field: "reason"},
	}
	if !reflect.DeepEqual(op.Writes, want) {
		t.Errorf("writes = %+v\nwant %+v", op.Writes, want)
	}
	if op.Behavior[0] != "set discriminant to 1" {
		t.Errorf("behavior = %v", op.Behavior)
	}

	pending, _ := c.Find("NewPending")
	if len(pending.Params) != 0 || len(pending.Writes) != 2 {
		t.Errorf("NewPending = %+v", pending)
	}

	success, _ := c.Find("NewSuccess")
	want = []SlotWrite{
		{Storage: layout.StorageValue, Index: 0, Field: "value"},
		{Storage: layout.StorageBucket, Index: 0, Absent: true},
	}
	if !reflect.DeepEqual(success.Writes, want) {
		t.Errorf("NewSuccess writes = %+v\nwant %+v", success.Writes, want)
	}
}

func TestSynthesize_Extractors(t *testing.T) {
	u := build(t, ir.UnionDescriptor{
		Name: "Event",
		Cases: []ir.CaseDescriptor{
			{Name: "Move", Tag: 0, Values: []ir.ValueDescriptor{ir.Value("dx", "int"), ir.Value("dy", "int")}},
			{Name: "Quit", Tag: 1},
		},
	})
	c, err := Synthesize(u)
	if err != nil {
		t.Fatal(err)
	}
	got := names(c.Family(FamilyExtract))
	want := []string{"TryGetMoveDx", "GetMoveDx", "TryGetMoveDy", "GetMoveDy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractors = %v, want %v", got, want)
	}

	get, _ := c.Find("GetMoveDy")
	if get.Failure == nil || get.Failure.Code != FailureInvalidCaseAccess {
		t.Errorf("GetMoveDy failure = %+v", get.Failure)
	}
	try, _ := c.Find("TryGetMoveDy")
	if try.Failure != nil {
		t.Error("TryGet must not fail")
	}
	if !strings.Contains(try.Behavior[0], "default(int)") {
		t.Errorf("TryGet behavior = %v", try.Behavior)
	}
	if len(c.ForCase("Quit")) != 2 {
		t.Errorf("Quit operations = %v", names(c.ForCase("Quit")))
	}
}

func TestSynthesize_EqualityClauses(t *testing.T) {
	c, err := Synthesize(build(t, resultDesc(ir.DefaultOptions())))
	if err != nil {
		t.Fatal(err)
	}
	eq, _ := c.Find("Equals")
	joined := strings.Join(eq.Behavior, "\n")
	if !strings.Contains(joined, "Success: return a.value == b.value") {
		t.Errorf("value clause missing:\n%s", joined)
	}
	if !strings.Contains(joined, "(a.reason absent && b.reason absent) || (a.reason present && b.reason present && a.reason equals b.reason)") {
		t.Errorf("reference clause missing:\n%s", joined)
	}
	if !strings.Contains(joined, "Pending: return true") {
		t.Errorf("singleton clause missing:\n%s", joined)
	}

	str, _ := c.Find("String")
	if !reflect.DeepEqual(str.Behavior, []string{"Success: Success(<value>)", "Failure: Failure(<reason>)", "Pending: Pending"}) {
		t.Errorf("String behavior = %v", str.Behavior)
	}
}

func TestVerifyMatch(t *testing.T) {
	u := build(t, resultDesc(ir.DefaultOptions()))

	if err := VerifyMatch(u, []string{"Success", "Failure", "Pending"}, false); err != nil {
		t.Errorf("complete handlers: %v", err)
	}
	if err := VerifyMatch(u, []string{"Success"}, true); err != nil {
		t.Errorf("catch-all: %v", err)
	}

	err := VerifyMatch(u, []string{"Success"}, false)
	if !errors.Is(err, ir.ErrNonExhaustiveMatch) {
		t.Fatalf("got %v", err)
	}
	var e *ir.Error
	errors.As(err, &e)
	if !reflect.DeepEqual(e.Cases, []string{"Failure", "Pending"}) {
		t.Errorf("missing cases = %v", e.Cases)
	}

	err = VerifyMatch(u, []string{"Success", "Failure", "Pending", "Other"}, true)
	if !errors.Is(err, ir.ErrInvalidDescriptor) {
		t.Errorf("unknown handler: got %v", err)
	}
}

func TestSynthesize_PlanCopyIsolated(t *testing.T) {
	u := build(t, resultDesc(ir.DefaultOptions()))
	p := u.Plan()
	p.Cases[0].Assignments[0].Index = 9
	if err := p.Verify(); !errors.Is(err, ir.ErrLayoutCollision) {
		t.Errorf("Verify() on broken copy = %v", err)
	}
	if _, err := Synthesize(u); err != nil {
		t.Errorf("Synthesize() after editing a plan copy: %v", err)
	}
}

func TestSynthesize_DuplicateOperationNames(t *testing.T) {
	tests := []struct {
		name  string
		cases []ir.CaseDescriptor
		want  string
	}{
		{
			name: "extractor suffixes",
			cases: []ir.CaseDescriptor{
				{Name: "A", Tag: 0, Values: []ir.ValueDescriptor{ir.Value("bC", "int"), ir.Value("x", "int")}},
				{Name: "AB", Tag: 1, Values: []ir.ValueDescriptor{ir.Value("c", "int"), ir.Value("y", "int")}},
			},
			want: "TryGetABC",
		},
		{
			name: "factory named like a case test",
			cases: []ir.CaseDescriptor{
				{Name: "A", Tag: 0},
				{Name: "B", Tag: 1, Factory: "IsA"},
			},
			want: "IsA",
		},
		{
			name: "factory named like a family operation",
			cases: []ir.CaseDescriptor{
				{Name: "A", Tag: 0, Factory: "Equals"},
			},
			want: "Equals",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := build(t, ir.UnionDescriptor{Name: "U", Cases: tt.cases, Options: ir.DefaultOptions()})
			_, err := Synthesize(u)
			if !errors.Is(err, ir.ErrDuplicateOperation) {
				t.Fatalf("got %v", err)
			}
			if !strings.Contains(err.Error(), "operation "+tt.want+" ") {
				t.Errorf("error does not name %s: %v", tt.want, err)
			}
		})
	}

	u := build(t, ir.UnionDescriptor{Name: "U", Cases: []ir.CaseDescriptor{{Name: "A", Tag: 0, Factory: "Equals"}}})
	if _, err := Synthesize(u); err != nil {
		t.Errorf("Equals is free when equality is off: %v", err)
	}
}

func TestMatchHandlers(t *testing.T) {
	u := build(t, resultDesc(ir.DefaultOptions()))
	c, err := Synthesize(u)
	if err != nil {
		t.Fatal(err)
	}
	m, _ := c.Find("Match")
	if got := matchHandlers(*m); !reflect.DeepEqual(got, []string{"Success", "Failure", "Pending"}) {
		t.Errorf("matchHandlers() = %v", got)
	}

	m.Params = m.Params[1:]
	if err := VerifyMatch(u, matchHandlers(*m), false); !errors.Is(err, ir.ErrNonExhaustiveMatch) {
		t.Errorf("Match without onSuccess: got %v", err)
	}
}

func TestRender(t *testing.T) {
	if got := Render("None", nil); got != "None" {
		t.Errorf("Render(None) = %q", got)
	}
	if got := Render("Pair", []string{"1", "b"}); got != "Pair(1, b)" {
		t.Errorf("Render(Pair) = %q", got)
	}
	if got := exported("dx"); got != "Dx" {
		t.Errorf("exported(dx) = %q", got)
	}
}
