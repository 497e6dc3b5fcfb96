package provider

import (
	"context"
	"fmt"
	"go/types"
	"reflect"
	"unicode"

	"golang.org/x/tools/go/packages"

	"github.com/broady/variant/internal/directive"
	"github.com/broady/variant/variantgen/ir"
)

// SourceProvider extracts unions from Go source. Struct types carrying a
// //variant:case directive become cases of the named union.
type SourceProvider struct{}

// SourceOptions configures source-based extraction.
type SourceOptions struct {
	// Packages are the Go package patterns to analyze.
	Packages []string

	// Dir is the directory patterns are resolved in. Empty means the
	// current directory.
	Dir string

	// Unions restricts the result to the named unions. Empty means all.
	Unions []string
}

// Build loads the packages and returns one descriptor per union, in order
// of first appearance.
func (p *SourceProvider) Build(ctx context.Context, opts SourceOptions) ([]ir.UnionDescriptor, error) {
	if len(opts.Packages) == 0 {
		return nil, fmt.Errorf("no packages specified")
	}

	cfg := &packages.Config{
		Context: ctx,
		Dir:     opts.Dir,
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, opts.Packages...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found")
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s has errors: %v", pkg.PkgPath, pkg.Errors)
		}
	}

	b := &sourceBuilder{unions: make(map[string]*ir.UnionDescriptor)}
	for _, pkg := range pkgs {
		for _, f := range pkg.Syntax {
			cases, err := directive.ParseFile(pkg.Fset, f)
			if err != nil {
				return nil, err
			}
			for _, d := range cases {
				if err := b.addCase(pkg.Types, d); err != nil {
					return nil, err
				}
			}
		}
	}

	var out []ir.UnionDescriptor
	for _, name := range b.order {
		if len(opts.Unions) > 0 && !contains(opts.Unions, name) {
			continue
		}
		out = append(out, *b.unions[name])
	}
	if len(opts.Unions) > 0 && len(out) < len(opts.Unions) {
		for _, want := range opts.Unions {
			if _, ok := b.unions[want]; !ok {
				return nil, fmt.Errorf("no //variant:case directives for union %s", want)
			}
		}
	}
	return out, nil
}

type sourceBuilder struct {
	unions map[string]*ir.UnionDescriptor
	order  []string

	// composites being converted, by union, for cycle protection
	converting map[string]bool
}

func (b *sourceBuilder) addCase(pkg *types.Package, d directive.Directive) error {
	obj, ok := pkg.Scope().Lookup(d.TypeName).(*types.TypeName)
	if !ok {
		return fmt.Errorf("%s: type %s not found", d.Pos, d.TypeName)
	}
	st, ok := obj.Type().Underlying().(*types.Struct)
	if !ok {
		return fmt.Errorf("%s: %s is not a struct type", d.Pos, d.TypeName)
	}

	u, ok := b.unions[d.Union]
	if !ok {
		u = &ir.UnionDescriptor{Name: d.Union, Options: ir.DefaultOptions()}
		b.unions[d.Union] = u
		b.order = append(b.order, d.Union)
	}

	tag := len(u.Cases)
	if d.HasTag {
		tag = d.Tag
	}
	values, err := b.fields(u, pkg, st)
	if err != nil {
		return fmt.Errorf("%s: case %s: %w", d.Pos, d.TypeName, err)
	}
	u.AddCase(ir.CaseDescriptor{
		Name:    d.TypeName,
		Tag:     tag,
		Factory: d.Factory,
		Doc:     d.Doc,
		Values:  values,
	})
	return nil
}

// fields converts the named fields of a struct. Blank and embedded fields
// are skipped.
func (b *sourceBuilder) fields(u *ir.UnionDescriptor, pkg *types.Package, st *types.Struct) ([]ir.ValueDescriptor, error) {
	var out []ir.ValueDescriptor
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if f.Name() == "_" || f.Embedded() {
			continue
		}
		tag := reflect.StructTag(st.Tag(i)).Get("variant")
		if tag == "-" {
			continue
		}
		v, err := b.value(u, pkg, lowerFirst(f.Name()), f.Type(), tag == "inline")
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (b *sourceBuilder) value(u *ir.UnionDescriptor, pkg *types.Package, name string, t types.Type, inline bool) (ir.ValueDescriptor, error) {
	typ := types.TypeString(t, types.RelativeTo(pkg))
	v := ir.ValueDescriptor{Name: name, Type: typ, Kind: kindOf(t)}

	if tp, ok := t.(*types.TypeParam); ok {
		v.ValueOnly = valueOnlyConstraint(tp.Constraint())
		return v, nil
	}
	if !inline {
		return v, nil
	}

	st, ok := t.Underlying().(*types.Struct)
	if !ok {
		return v, fmt.Errorf(`variant:"inline" on non-struct type %s`, typ)
	}
	v.Kind = ir.KindDecomposable
	if _, done := u.Composite(typ); done {
		return v, nil
	}
	if b.converting == nil {
		b.converting = make(map[string]bool)
	}
	key := u.Name + "\x00" + typ
	if b.converting[key] {
		// Recursive decomposition; validation reports the cycle.
		return v, nil
	}
	b.converting[key] = true
	defer delete(b.converting, key)

	fields, err := b.fields(u, pkg, st)
	if err != nil {
		return v, err
	}
	if _, done := u.Composite(typ); !done {
		u.Composites = append(u.Composites, ir.CompositeDescriptor{Name: typ, Fields: fields})
	}
	return v, nil
}

// kindOf classifies a Go type by storage nature.
func kindOf(t types.Type) ir.TypeKind {
	if _, ok := t.(*types.TypeParam); ok {
		return ir.KindTypeParameter
	}
	switch u := t.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsString != 0:
			return ir.KindReference
		case u.Kind() == types.UnsafePointer:
			return ir.KindReference
		default:
			return ir.KindValue
		}
	case *types.Struct:
		if u.NumFields() == 0 {
			return ir.KindSingleton
		}
		for i := 0; i < u.NumFields(); i++ {
			if k := kindOf(u.Field(i).Type()); k != ir.KindValue && k != ir.KindSingleton {
				return ir.KindReference
			}
		}
		return ir.KindValue
	case *types.Array:
		if k := kindOf(u.Elem()); k == ir.KindValue || k == ir.KindSingleton {
			return ir.KindValue
		}
		return ir.KindReference
	default:
		return ir.KindReference
	}
}

// valueOnlyConstraint reports whether every type in the constraint's type
// set is a numeric or boolean type.
func valueOnlyConstraint(c types.Type) bool {
	iface, ok := c.Underlying().(*types.Interface)
	if !ok || iface.IsMethodSet() {
		return false
	}
	restricted := false
	for i := 0; i < iface.NumEmbeddeds(); i++ {
		switch e := iface.EmbeddedType(i).(type) {
		case *types.Union:
			for j := 0; j < e.Len(); j++ {
				if !valueBasic(e.Term(j).Type()) {
					return false
				}
			}
			restricted = true
		default:
			if _, isIface := e.Underlying().(*types.Interface); isIface {
				if valueOnlyConstraint(e) {
					restricted = true
				}
				continue
			}
			if !valueBasic(e) {
				return false
			}
			restricted = true
		}
	}
	return restricted
}

func valueBasic(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&(types.IsNumeric|types.IsBoolean) != 0
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
