package synth

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
	"github.com/broady/variant/variantgen/model"
)

// Synthesize derives the contract for u. Construction, case testing and
// extraction are always produced; the other families follow u.Options.
func Synthesize(u *model.Union) (*Contract, error) {
	plan := u.Plan()
	if err := plan.Verify(); err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", u.Name, err)
	}

	s := &synthesizer{u: u, plan: plan}
	c := &Contract{
		Union:        u.Name,
		Discriminant: plan.Discriminant,
	}
	for _, cs := range u.CasesByTag() {
		c.Tags = append(c.Tags, TagEntry{Case: cs.Name, Tag: cs.Tag})
	}

	cases := u.Cases()
	for i := range cases {
		c.Operations = append(c.Operations, s.factory(&cases[i]))
	}
	for i := range cases {
		c.Operations = append(c.Operations, s.caseTest(&cases[i]))
	}
	for i := range cases {
		c.Operations = append(c.Operations, s.extractors(&cases[i])...)
	}

	if u.Options.GenerateExhaustiveMatch {
		op := s.match(cases)
		if err := VerifyMatch(u, matchHandlers(op), false); err != nil {
			return nil, err
		}
		c.Operations = append(c.Operations, op)
	}
	if u.Options.GenerateEquality {
		c.Operations = append(c.Operations, s.equality(cases))
	}
	if u.Options.GenerateHashing {
		c.Operations = append(c.Operations, s.hashing(cases))
	}
	if u.Options.GenerateToString {
		c.Operations = append(c.Operations, s.toString(cases))
	}

	if err := checkNames(u.Name, c.Operations); err != nil {
		return nil, err
	}
	return c, nil
}

// checkNames rejects contracts in which two operations share a name, such
// as TryGetABC derived from both case A's value bC and case AB's value c.
func checkNames(union string, ops []Operation) error {
	first := make(map[string]int, len(ops))
	var errs []error
	for i, op := range ops {
		j, seen := first[op.Name]
		if !seen {
			first[op.Name] = i
			continue
		}
		var cases []string
		for _, cs := range []string{ops[j].Case, op.Case} {
			if cs != "" {
				cases = append(cases, cs)
			}
		}
		errs = append(errs, ir.Errorf(ir.CodeDuplicateOperation, union, cases,
			fmt.Sprintf("operation %s is generated by both %s and %s", op.Name, origin(ops[j]), origin(op))))
	}
	return errors.Join(errs...)
}

func origin(op Operation) string {
	if op.Case == "" {
		return string(op.Family)
	}
	return fmt.Sprintf("%s of case %s", op.Family, op.Case)
}

// matchHandlers returns the cases a Match operation declares required
// handlers for.
func matchHandlers(op Operation) []string {
	var out []string
	for _, p := range op.Params {
		if !p.Optional {
			out = append(out, strings.TrimPrefix(p.Name, "on"))
		}
	}
	return out
}

// VerifyMatch checks a dispatch's handler set against the closed case set.
// Without a catch-all, every case needs a handler. Handlers for unknown
// cases are rejected either way.
func VerifyMatch(u *model.Union, handlers []string, hasOtherwise bool) error {
	have := make(map[string]bool, len(handlers))
	var unknown []string
	for _, h := range handlers {
		if _, ok := u.Case(h); !ok {
			unknown = append(unknown, h)
			continue
		}
		have[h] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ir.Errorf(ir.CodeInvalidDescriptor, u.Name, unknown,
			"match handlers for unknown cases: "+strings.Join(unknown, ", "))
	}
	if hasOtherwise {
		return nil
	}

	var missing []string
	for _, cs := range u.Cases() {
		if !have[cs.Name] {
			missing = append(missing, cs.Name)
		}
	}
	if len(missing) > 0 {
		return ir.Errorf(ir.CodeNonExhaustiveMatch, u.Name, missing,
			"no handler and no catch-all for: "+strings.Join(missing, ", "))
	}
	return nil
}

type synthesizer struct {
	u    *model.Union
	plan *layout.SlotPlan
}

func (s *synthesizer) params(c *model.Case) []Param {
	out := make([]Param, len(c.Params))
	for i, v := range c.Params {
		out[i] = Param{Name: v.Name, Type: v.Type, Kind: v.Kind}
	}
	return out
}

func (s *synthesizer) factory(c *model.Case) Operation {
	op := Operation{
		Name:    c.Factory,
		Family:  FamilyConstruct,
		Case:    c.Name,
		Params:  s.params(c),
		Results: []Param{{Name: "result", Type: s.u.Name}},
		Behavior: []string{
			fmt.Sprintf("set discriminant to %d", c.Tag),
		},
	}

	for _, slot := range s.plan.Values {
		op.Writes = append(op.Writes, s.write(c, layout.StorageValue, slot.Index, slot.Types[0]))
	}
	for _, slot := range s.plan.Bucket.Slots {
		op.Writes = append(op.Writes, s.write(c, layout.StorageBucket, slot.Index, ""))
	}

	for _, a := range c.Layout.Assignments {
		switch a.Storage {
		case layout.StorageValue:
			op.Behavior = append(op.Behavior, fmt.Sprintf("write %s into value slot %d", a.Field, a.Index))
		case layout.StorageBucket:
			op.Behavior = append(op.Behavior, fmt.Sprintf("write %s into bucket position %d keyed (%s, %s)", a.Field, a.Index, c.Name, a.Field))
		case layout.StorageNone:
			op.Behavior = append(op.Behavior, fmt.Sprintf("%s is zero-size and takes no storage", a.Field))
		}
	}
	op.Behavior = append(op.Behavior,
		"fill every other value slot with the default of its first type",
		"leave every other bucket position absent")
	return op
}

// write describes what the factory of c stores at one slot. Unused value
// slots take the default of defaultType; unused bucket positions are absent.
func (s *synthesizer) write(c *model.Case, storage layout.Storage, index int, defaultType string) SlotWrite {
	for _, a := range c.Layout.Assignments {
		if a.Storage == storage && a.Index == index {
			return SlotWrite{Storage: storage, Index: index, Field: a.Field}
		}
	}
	if storage == layout.StorageBucket {
		return SlotWrite{Storage: storage, Index: index, Absent: true}
	}
	return SlotWrite{Storage: storage, Index: index, Default: defaultType}
}

func (s *synthesizer) caseTest(c *model.Case) Operation {
	return Operation{
		Name:     "Is" + c.Name,
		Family:   FamilyCaseTest,
		Case:     c.Name,
		Receiver: true,
		Results:  []Param{{Name: "ok", Type: "bool", Kind: ir.KindValue}},
		Behavior: []string{fmt.Sprintf("return discriminant == %d", c.Tag)},
	}
}

// extractors returns the try-get accessors of a case and their non-try
// twins. A single-valued case gets one pair named after the case; a
// multi-valued case gets one pair per value.
func (s *synthesizer) extractors(c *model.Case) []Operation {
	if c.IsSingleton() {
		return nil
	}

	var ops []Operation
	for i, v := range c.Params {
		suffix := c.Name
		if len(c.Params) > 1 {
			suffix += exported(v.Name)
		}
		reads := s.reads(c, i)
		result := Param{Name: v.Name, Type: v.Type, Kind: v.Kind}

		try := Operation{
			Name:     "TryGet" + suffix,
			Family:   FamilyExtract,
			Case:     c.Name,
			Receiver: true,
			Results:  []Param{result, {Name: "ok", Type: "bool", Kind: ir.KindValue}},
			Behavior: append([]string{
				fmt.Sprintf("if discriminant != %d return (default(%s), false)", c.Tag, v.Type),
			}, append(reads, "return (value, true)")...),
		}
		get := Operation{
			Name:     "Get" + suffix,
			Family:   FamilyExtract,
			Case:     c.Name,
			Receiver: true,
			Results:  []Param{result},
			Failure: &Failure{
				Code: FailureInvalidCaseAccess,
				When: fmt.Sprintf("discriminant != %d", c.Tag),
			},
			Behavior: append(slices.Clone(reads), "return value"),
		}
		ops = append(ops, try, get)
	}
	return ops
}

// reads describes how parameter i is read back from its leaves.
func (s *synthesizer) reads(c *model.Case, param int) []string {
	var leaves []string
	for _, a := range c.Layout.Assignments {
		if a.Param != param {
			continue
		}
		switch a.Storage {
		case layout.StorageValue:
			leaves = append(leaves, fmt.Sprintf("read %s from value slot %d", a.Field, a.Index))
		case layout.StorageBucket:
			leaves = append(leaves, fmt.Sprintf("read %s from bucket position %d", a.Field, a.Index))
		case layout.StorageNone:
			leaves = append(leaves, fmt.Sprintf("%s is the zero-size marker", a.Field))
		}
	}
	if c.Params[param].Kind == ir.KindDecomposable {
		leaves = append(leaves, "recompose "+c.Params[param].Name+" from its leaves")
	}
	return leaves
}

func (s *synthesizer) match(cases []model.Case) Operation {
	op := Operation{
		Name:     "Match",
		Family:   FamilyMatch,
		Receiver: true,
		Results:  []Param{{Name: "result", Type: "R", Kind: ir.KindTypeParameter}},
		Behavior: []string{"branch once on the discriminant"},
	}
	for i := range cases {
		c := &cases[i]
		types := make([]string, len(c.Params))
		for j, p := range c.Params {
			types[j] = p.Type
		}
		op.Params = append(op.Params, Param{
			Name: "on" + c.Name,
			Type: "func(" + strings.Join(types, ", ") + ") R",
			Kind: ir.KindReference,
		})
		op.Behavior = append(op.Behavior, fmt.Sprintf("%d: call on%s with the %s payload", c.Tag, c.Name, c.Name))
	}
	op.Params = append(op.Params, Param{Name: "otherwise", Type: "func() R", Kind: ir.KindReference, Optional: true})
	op.Behavior = append(op.Behavior,
		"a missing handler is legal only when otherwise is given",
		"handler completeness is checked once when the dispatch is built, never per call")
	return op
}

func (s *synthesizer) equality(cases []model.Case) Operation {
	op := Operation{
		Name:     "Equals",
		Family:   FamilyEquality,
		Receiver: true,
		Params:   []Param{{Name: "other", Type: s.u.Name}},
		Results:  []Param{{Name: "equal", Type: "bool", Kind: ir.KindValue}},
		Behavior: []string{"if discriminants differ return false"},
	}
	for i := range cases {
		c := &cases[i]
		if c.IsSingleton() {
			op.Behavior = append(op.Behavior, fmt.Sprintf("%s: return true", c.Name))
			continue
		}
		var terms []string
		for _, a := range c.Layout.Assignments {
			switch a.Storage {
			case layout.StorageValue:
				terms = append(terms, fmt.Sprintf("a.%s == b.%s", a.Field, a.Field))
			case layout.StorageBucket:
				terms = append(terms, fmt.Sprintf("((a.%[1]s absent && b.%[1]s absent) || (a.%[1]s present && b.%[1]s present && a.%[1]s equals b.%[1]s))", a.Field))
			}
		}
		if len(terms) == 0 {
			terms = []string{"true"}
		}
		op.Behavior = append(op.Behavior, fmt.Sprintf("%s: return %s", c.Name, strings.Join(terms, " && ")))
	}
	return op
}

func (s *synthesizer) hashing(cases []model.Case) Operation {
	op := Operation{
		Name:     "Hash",
		Family:   FamilyHashing,
		Receiver: true,
		Results:  []Param{{Name: "hash", Type: "uint64", Kind: ir.KindValue}},
		Behavior: []string{"start from hash(discriminant)"},
	}
	for i := range cases {
		c := &cases[i]
		var fields []string
		for _, a := range c.Layout.Assignments {
			if a.Storage != layout.StorageNone {
				fields = append(fields, a.Field)
			}
		}
		if len(fields) == 0 {
			op.Behavior = append(op.Behavior, fmt.Sprintf("%s: discriminant only", c.Name))
			continue
		}
		op.Behavior = append(op.Behavior, fmt.Sprintf("%s: combine hash(%s)", c.Name, strings.Join(fields, "), hash(")))
	}
	op.Behavior = append(op.Behavior,
		"an absent reference hashes as 0",
		"equal instances produce equal hashes")
	return op
}

func (s *synthesizer) toString(cases []model.Case) Operation {
	op := Operation{
		Name:     "String",
		Family:   FamilyString,
		Receiver: true,
		Results:  []Param{{Name: "text", Type: "string", Kind: ir.KindReference}},
	}
	for i := range cases {
		c := &cases[i]
		op.Behavior = append(op.Behavior, c.Name+": "+Render(c.Name, placeholders(c)))
	}
	return op
}

func placeholders(c *model.Case) []string {
	out := make([]string, len(c.Params))
	for i, p := range c.Params {
		out[i] = "<" + p.Name + ">"
	}
	return out
}

// Render formats a case and its rendered values the way String does:
// "Case(v1, v2)" with payload, "Case" without.
func Render(caseName string, values []string) string {
	if len(values) == 0 {
		return caseName
	}
	return caseName + "(" + strings.Join(values, ", ") + ")"
}

// exported upper-cases the first rune of a value name for accessor names.
func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
