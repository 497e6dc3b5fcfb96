package model

import (
	"fmt"
	"strings"

	"github.com/broady/variant/variantgen/ir"
)

// Validate checks a union description for structural defects.
// Returns all validation errors found (not just the first).
func Validate(u *ir.UnionDescriptor) []error {
	v := &validator{u: u}
	v.validateCases()
	v.validateComposites()
	v.detectCycles()

	var result []error
	for _, e := range v.errs {
		result = append(result, e)
	}
	return result
}

type validator struct {
	u    *ir.UnionDescriptor
	errs []*ir.Error
}

func (v *validator) add(code ir.ErrorCode, cases []string, format string, args ...any) {
	v.errs = append(v.errs, ir.Errorf(code, v.u.Name, cases, fmt.Sprintf(format, args...)))
}

func (v *validator) validateCases() {
	if len(v.u.Cases) == 0 {
		v.add(ir.CodeEmptyUnion, nil, "union has no cases")
		return
	}

	names := make(map[string]int)
	tags := make(map[int]string)
	factories := make(map[string]string)

	for i, c := range v.u.Cases {
		if c.Name == "" {
			v.add(ir.CodeInvalidDescriptor, nil, "case %d has no name", i)
		} else if _, dup := names[c.Name]; dup {
			v.add(ir.CodeDuplicateCaseName, []string{c.Name}, "duplicate case name: %s", c.Name)
		} else {
			names[c.Name] = i
		}

		if first, dup := tags[c.Tag]; dup {
			v.add(ir.CodeDuplicateTag, []string{first, c.Name}, "tag %d used by both %s and %s", c.Tag, first, c.Name)
		} else {
			tags[c.Tag] = c.Name
		}

		factory := c.FactoryName()
		if first, dup := factories[factory]; dup {
			v.add(ir.CodeDuplicateFactoryName, []string{first, c.Name}, "factory %s used by both %s and %s", factory, first, c.Name)
		} else {
			factories[factory] = c.Name
		}

		v.validateValues(c.Name, "case "+c.Name, c.Values)
	}
}

func (v *validator) validateComposites() {
	seen := make(map[string]bool)
	for i, c := range v.u.Composites {
		if c.Name == "" {
			v.add(ir.CodeInvalidDescriptor, nil, "composite %d has no name", i)
			continue
		}
		if seen[c.Name] {
			v.add(ir.CodeInvalidDescriptor, nil, "duplicate composite name: %s", c.Name)
		}
		seen[c.Name] = true
		v.validateValues("", "composite "+c.Name, c.Fields)
	}
}

// validateValues checks one group of sibling values. owner names the case
// (empty for composites) for error reporting; where is a readable location.
func (v *validator) validateValues(owner, where string, values []ir.ValueDescriptor) {
	var cases []string
	if owner != "" {
		cases = []string{owner}
	}

	seen := make(map[string]bool, len(values))
	for i, val := range values {
		if val.Name == "" {
			v.add(ir.CodeInvalidDescriptor, cases, "%s: value %d has no name", where, i)
			continue
		}
		if strings.Contains(val.Name, ".") {
			v.add(ir.CodeInvalidDescriptor, cases, "%s: value name %q must not contain '.'", where, val.Name)
		}
		if seen[val.Name] {
			v.add(ir.CodeDuplicateValueName, cases, "%s: duplicate value name: %s", where, val.Name)
		}
		seen[val.Name] = true

		if val.Kind < ir.KindValue || val.Kind > ir.KindDecomposable {
			v.add(ir.CodeInvalidDescriptor, cases, "%s: value %s has invalid kind %d", where, val.Name, int(val.Kind))
			continue
		}
		if val.Kind != ir.KindDecomposable {
			if len(val.Children) > 0 {
				v.add(ir.CodeInvalidDescriptor, cases, "%s: value %s has children but kind %s", where, val.Name, val.Kind)
			}
			continue
		}
		if len(val.Children) > 0 {
			v.validateValues(owner, where+"."+val.Name, val.Children)
			continue
		}
		if _, ok := v.u.Composite(val.Type); !ok {
			v.add(ir.CodeInvalidDescriptor, cases, "%s: decomposable value %s refers to unknown composite %q", where, val.Name, val.Type)
		}
	}
}

// compositeRefs lists the composites a group of values decomposes through,
// including those reached via inline children.
func compositeRefs(values []ir.ValueDescriptor) []string {
	var refs []string
	for _, val := range values {
		if val.Kind != ir.KindDecomposable {
			continue
		}
		if len(val.Children) > 0 {
			refs = append(refs, compositeRefs(val.Children)...)
			continue
		}
		refs = append(refs, val.Type)
	}
	return refs
}

// detectCycles reports composites that decompose into themselves.
func (v *validator) detectCycles() {
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(name string, path []string)
	visit = func(name string, path []string) {
		if inStack[name] {
			cycle := append(path, name)
			start := 0
			for i, p := range cycle {
				if p == name {
					start = i
					break
				}
			}
			v.add(ir.CodeCyclicDecomposition, nil, "cyclic decomposition: %s", strings.Join(cycle[start:], " -> "))
			return
		}
		if visited[name] {
			return
		}
		c, ok := v.u.Composite(name)
		if !ok {
			return
		}

		visited[name] = true
		inStack[name] = true
		for _, ref := range compositeRefs(c.Fields) {
			visit(ref, append(path, name))
		}
		inStack[name] = false
	}

	for _, c := range v.u.Composites {
		visit(c.Name, nil)
	}
}
