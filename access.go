package variant

import (
	"strings"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
	"github.com/broady/variant/variantgen/model"
)

// read returns the stored payload of one leaf.
func (v Value) read(a layout.Assignment) any {
	switch a.Storage {
	case layout.StorageValue:
		return v.values[a.Index]
	case layout.StorageBucket:
		return v.bucket[a.Index]
	default:
		return struct{}{}
	}
}

// leafDefault is what an accessor returns for a leaf of an inactive case.
func leafDefault(a layout.Assignment) any {
	if a.Kind == ir.KindSingleton {
		return struct{}{}
	}
	return Default(a.Type)
}

// recomposer rebuilds top-level parameters from a case's leaves, walking
// them in planner order.
type recomposer struct {
	u      *model.Union
	leaves []layout.Assignment
	get    func(layout.Assignment) any
	pos    int
}

func (r *recomposer) param(p ir.ValueDescriptor) any {
	if p.Kind != ir.KindDecomposable {
		x := r.get(r.leaves[r.pos])
		r.pos++
		return x
	}
	children, _ := r.u.Children(p)
	m := make(map[string]any, len(children))
	for _, child := range children {
		m[child.Name] = r.param(child)
	}
	return m
}

// params recomposes every top-level value of c using get for leaves.
func params(u *model.Union, c *model.Case, get func(layout.Assignment) any) []any {
	r := &recomposer{u: u, leaves: c.Layout.Assignments, get: get}
	out := make([]any, len(c.Params))
	for i, p := range c.Params {
		out[i] = r.param(p)
	}
	return out
}

// TryGetCase returns the named case's values if it is active. Otherwise it
// returns the values' defaults and false. Decomposable values come back as
// map[string]any keyed by field name.
func (v Value) TryGetCase(caseName string) ([]any, bool) {
	if v.u == nil {
		return nil, false
	}
	c, ok := v.u.Case(caseName)
	if !ok {
		return nil, false
	}
	if v.idx != v.u.Index(c.Name) {
		return params(v.u, c, leafDefault), false
	}
	return params(v.u, c, v.read), true
}

// TryGet returns one value of the named case if it is active, or the
// value's default and false. field is a top-level value name or the dotted
// path of a decomposed leaf ("origin.x").
func (v Value) TryGet(caseName, field string) (any, bool) {
	if v.u == nil {
		return nil, false
	}
	c, ok := v.u.Case(caseName)
	if !ok {
		return nil, false
	}
	active := v.idx == v.u.Index(c.Name)
	get := leafDefault
	if active {
		get = v.read
	}

	if !strings.Contains(field, ".") {
		for i, p := range c.Params {
			if p.Name == field {
				return params(v.u, c, get)[i], active
			}
		}
	}
	if a, ok := c.Layout.Field(field); ok {
		return get(a), active
	}
	return nil, false
}

// GetCase is like TryGetCase but panics with an *Error of code
// CodeInvalidCaseAccess when the case is not active.
func (v Value) GetCase(caseName string) []any {
	v.mustBeActive(caseName)
	vals, _ := v.TryGetCase(caseName)
	return vals
}

// Get is like TryGet but panics with an *Error of code
// CodeInvalidCaseAccess when the case is not active, and with
// CodeUnknownCase when the field does not exist.
func (v Value) Get(caseName, field string) any {
	v.mustBeActive(caseName)
	x, ok := v.TryGet(caseName, field)
	if !ok {
		panic(Errorf(CodeUnknownCase, "case %s has no field %q", caseName, field))
	}
	return x
}

func (v Value) mustBeActive(caseName string) {
	if v.u == nil {
		panic(Errorf(CodeInvalidCaseAccess, "access to %s on a zero Value", caseName))
	}
	if _, ok := v.u.Case(caseName); !ok {
		panic(Errorf(CodeUnknownCase, "union %s has no case %q", v.u.Name, caseName))
	}
	if !v.Is(caseName) {
		panic(Errorf(CodeInvalidCaseAccess, "access to %s while %s is active", caseName, v.Case()).
			WithDetail("union", v.u.Name))
	}
}
