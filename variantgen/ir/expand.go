package ir

import "strings"

// FlatValue is a leaf value after decomposition has been expanded.
type FlatValue struct {
	// Path is the chain of value names from the case down to this leaf.
	Path []string `json:"path"`

	// Type and Kind are the leaf's declared type and storage nature.
	// Kind is never KindDecomposable.
	Type      string   `json:"type"`
	Kind      TypeKind `json:"kind"`
	ValueOnly bool     `json:"valueOnly,omitempty"`

	// Param is the index of the top-level case value this leaf belongs to.
	Param int `json:"param"`
}

// Name returns the dotted path, unique within the case.
func (v FlatValue) Name() string { return strings.Join(v.Path, ".") }

// ReferenceLike reports whether the leaf is routed to the overlay bucket.
func (v FlatValue) ReferenceLike() bool { return v.Kind.ReferenceLike(v.ValueOnly) }

// FlatCase is a case whose values are fully expanded into leaves.
type FlatCase struct {
	Name   string      `json:"name"`
	Tag    int         `json:"tag"`
	Fields []FlatValue `json:"fields"`
}

// Children returns the fields a decomposable value expands into,
// resolving by type through the union's composites when none are inline.
func (u *UnionDescriptor) Children(v ValueDescriptor) ([]ValueDescriptor, bool) {
	if v.Kind != KindDecomposable {
		return nil, false
	}
	if len(v.Children) > 0 {
		return v.Children, true
	}
	c, ok := u.Composite(v.Type)
	if !ok {
		return nil, false
	}
	return c.Fields, true
}

// Expand flattens every case of u. It reports unresolvable and cyclic
// decompositions; callers normally validate first.
func Expand(u *UnionDescriptor) ([]FlatCase, error) {
	out := make([]FlatCase, 0, len(u.Cases))
	for _, c := range u.Cases {
		fc := FlatCase{Name: c.Name, Tag: c.Tag}
		for i, v := range c.Values {
			leaves, err := expandValue(u, c.Name, v, nil, i, nil)
			if err != nil {
				return nil, err
			}
			fc.Fields = append(fc.Fields, leaves...)
		}
		out = append(out, fc)
	}
	return out, nil
}

// expandValue walks one value. stack holds the composite types being
// expanded on the current path.
func expandValue(u *UnionDescriptor, caseName string, v ValueDescriptor, path []string, param int, stack []string) ([]FlatValue, error) {
	path = append(path[:len(path):len(path)], v.Name)
	if v.Kind != KindDecomposable {
		return []FlatValue{{
			Path:      path,
			Type:      v.Type,
			Kind:      v.Kind,
			ValueOnly: v.ValueOnly && v.Kind == KindTypeParameter,
			Param:     param,
		}}, nil
	}

	children, ok := u.Children(v)
	if !ok {
		return nil, Errorf(CodeInvalidDescriptor, u.Name, []string{caseName},
			"decomposable value "+strings.Join(path, ".")+" has no children and no composite named "+v.Type)
	}
	if len(v.Children) == 0 {
		for _, s := range stack {
			if s == v.Type {
				return nil, Errorf(CodeCyclicDecomposition, u.Name, []string{caseName},
					"cyclic decomposition: "+strings.Join(append(stack, v.Type), " -> "))
			}
		}
		stack = append(stack[:len(stack):len(stack)], v.Type)
	}

	var leaves []FlatValue
	for _, child := range children {
		sub, err := expandValue(u, caseName, child, path, param, stack)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, sub...)
	}
	return leaves, nil
}
