// Package model assembles validated union descriptions into immutable
// union models bound to a slot plan.
package model

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
)

// Case is one validated union alternative bound to its layout.
type Case struct {
	Name    string
	Tag     int
	Factory string
	Doc     string

	// Params are the case's top-level values, as the factory takes them.
	Params []ir.ValueDescriptor

	// Layout maps every leaf of the case to storage.
	Layout *layout.CaseLayout
}

// IsSingleton reports whether the case carries no payload.
func (c *Case) IsSingleton() bool { return len(c.Params) == 0 }

func (c *Case) clone() *Case {
	out := *c
	out.Params = cloneValues(c.Params)
	out.Layout = c.Layout.Clone()
	return &out
}

// Union is an assembled union model. It is never mutated after Build and is
// safe for concurrent use. Every accessor returns a copy.
type Union struct {
	Name    string
	Options ir.Options

	plan      *layout.SlotPlan
	desc      ir.UnionDescriptor
	cases     []Case
	byName    map[string]int
	byTag     map[int]int
	byFactory map[string]int
}

// Assembler builds union models.
type Assembler struct {
	// Logger receives debug output. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Build validates desc, plans its layout and returns the model.
// Validation problems are returned together, joined with errors.Join.
func Build(desc ir.UnionDescriptor) (*Union, error) {
	return (&Assembler{}).Build(desc)
}

// Build validates desc, plans its layout and returns the model.
func (a *Assembler) Build(desc ir.UnionDescriptor) (*Union, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	desc = cloneDescriptor(desc)

	if errs := Validate(&desc); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	flat, err := ir.Expand(&desc)
	if err != nil {
		return nil, err
	}

	plan, err := layout.Plan(flat, desc.Options.ShareReferenceSlots)
	if err != nil {
		var le *ir.Error
		if errors.As(err, &le) {
			le.Union = desc.Name
		}
		logger.Error("layout planner invariant violated",
			slog.String("union", desc.Name),
			slog.Any("error", err))
		return nil, err
	}

	u := &Union{
		Name:      desc.Name,
		Options:   desc.Options,
		plan:      plan,
		desc:      desc,
		cases:     make([]Case, len(desc.Cases)),
		byName:    make(map[string]int, len(desc.Cases)),
		byTag:     make(map[int]int, len(desc.Cases)),
		byFactory: make(map[string]int, len(desc.Cases)),
	}
	for i, c := range desc.Cases {
		u.cases[i] = Case{
			Name:    c.Name,
			Tag:     c.Tag,
			Factory: c.FactoryName(),
			Doc:     c.Doc,
			Params:  c.Values,
			Layout:  &plan.Cases[i],
		}
		u.byName[c.Name] = i
		u.byTag[c.Tag] = i
		u.byFactory[c.FactoryName()] = i
	}

	logger.Debug("union assembled",
		slog.String("union", u.Name),
		slog.String("plan", plan.Summary()))

	return u, nil
}

// Len returns the number of cases.
func (u *Union) Len() int { return len(u.cases) }

// Plan returns a copy of the slot plan.
func (u *Union) Plan() *layout.SlotPlan { return u.plan.Clone() }

// ValueSlots returns the number of value slots in the plan.
func (u *Union) ValueSlots() int { return len(u.plan.Values) }

// ValueSlotType returns the first declared type of value slot i, whose
// default fills the slot when the active case does not use it.
func (u *Union) ValueSlotType(i int) string { return u.plan.Values[i].Types[0] }

// BucketSize returns the number of overlay bucket positions.
func (u *Union) BucketSize() int { return u.plan.Bucket.Size() }

// Cases returns the cases in declaration order.
func (u *Union) Cases() []Case {
	out := make([]Case, len(u.cases))
	for i := range u.cases {
		out[i] = *u.cases[i].clone()
	}
	return out
}

// CaseAt returns the case at declaration index i.
func (u *Union) CaseAt(i int) *Case { return u.cases[i].clone() }

// Index returns the declaration index of the named case, or -1.
func (u *Union) Index(name string) int {
	if i, ok := u.byName[name]; ok {
		return i
	}
	return -1
}

// Case looks up a case by name.
func (u *Union) Case(name string) (*Case, bool) {
	i, ok := u.byName[name]
	if !ok {
		return nil, false
	}
	return u.cases[i].clone(), true
}

// CaseByTag looks up a case by discriminant.
func (u *Union) CaseByTag(tag int) (*Case, bool) {
	i, ok := u.byTag[tag]
	if !ok {
		return nil, false
	}
	return u.cases[i].clone(), true
}

// CaseByFactory looks up a case by factory name.
func (u *Union) CaseByFactory(name string) (*Case, bool) {
	i, ok := u.byFactory[name]
	if !ok {
		return nil, false
	}
	return u.cases[i].clone(), true
}

// CasesByTag returns the cases in ascending tag order.
func (u *Union) CasesByTag() []Case {
	out := u.Cases()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Children returns the fields a decomposable parameter expands into.
func (u *Union) Children(v ir.ValueDescriptor) ([]ir.ValueDescriptor, bool) {
	return u.desc.Children(v)
}

// Descriptor returns a copy of the description the model was built from.
func (u *Union) Descriptor() ir.UnionDescriptor { return cloneDescriptor(u.desc) }

// cloneDescriptor deep-copies the slices of a description so the model does
// not share memory with its caller.
func cloneDescriptor(d ir.UnionDescriptor) ir.UnionDescriptor {
	out := d
	out.Cases = make([]ir.CaseDescriptor, len(d.Cases))
	for i, c := range d.Cases {
		c.Values = cloneValues(c.Values)
		out.Cases[i] = c
	}
	out.Composites = make([]ir.CompositeDescriptor, len(d.Composites))
	for i, c := range d.Composites {
		c.Fields = cloneValues(c.Fields)
		out.Composites[i] = c
	}
	return out
}

func cloneValues(vs []ir.ValueDescriptor) []ir.ValueDescriptor {
	if vs == nil {
		return nil
	}
	out := make([]ir.ValueDescriptor, len(vs))
	for i, v := range vs {
		v.Children = cloneValues(v.Children)
		out[i] = v
	}
	return out
}
