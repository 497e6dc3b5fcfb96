package provider

import (
	"fmt"
	"reflect"

	"github.com/broady/variant/variantgen/ir"
)

// FromTypes builds a union from Go struct values by reflection, one case
// per value. Case names are the type names and tags are positions. Fields
// follow the same rules as the source provider: `variant:"-"` skips a
// field and `variant:"inline"` decomposes a struct-typed field. Type
// parameters are not visible to reflection; instantiated fields are
// classified by their concrete types.
func FromTypes(union string, cases ...any) (ir.UnionDescriptor, error) {
	u := ir.UnionDescriptor{Name: union, Options: ir.DefaultOptions()}
	for i, c := range cases {
		t := reflect.TypeOf(c)
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == nil || t.Kind() != reflect.Struct {
			return ir.UnionDescriptor{}, fmt.Errorf("case %d: %T is not a struct", i, c)
		}
		if t.Name() == "" {
			return ir.UnionDescriptor{}, fmt.Errorf("case %d: anonymous struct has no case name", i)
		}
		values, err := reflectFields(t, make(map[reflect.Type]bool))
		if err != nil {
			return ir.UnionDescriptor{}, fmt.Errorf("case %s: %w", t.Name(), err)
		}
		u.AddCase(ir.CaseDescriptor{Name: t.Name(), Tag: i, Values: values})
	}
	return u, nil
}

func reflectFields(t reflect.Type, inlining map[reflect.Type]bool) ([]ir.ValueDescriptor, error) {
	var out []ir.ValueDescriptor
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "_" || f.Anonymous {
			continue
		}
		tag := f.Tag.Get("variant")
		if tag == "-" {
			continue
		}

		v := ir.ValueDescriptor{Name: lowerFirst(f.Name), Type: f.Type.String(), Kind: reflectKind(f.Type)}
		if tag == "inline" {
			if f.Type.Kind() != reflect.Struct {
				return nil, fmt.Errorf(`field %s: variant:"inline" on non-struct type %s`, f.Name, f.Type)
			}
			if inlining[f.Type] {
				return nil, ir.Errorf(ir.CodeCyclicDecomposition, "", nil, "cyclic decomposition through "+f.Type.String())
			}
			inlining[f.Type] = true
			children, err := reflectFields(f.Type, inlining)
			delete(inlining, f.Type)
			if err != nil {
				return nil, err
			}
			v.Kind = ir.KindDecomposable
			v.Children = children
		}
		out = append(out, v)
	}
	return out, nil
}

// reflectKind classifies a Go type by storage nature.
func reflectKind(t reflect.Type) ir.TypeKind {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return ir.KindValue
	case reflect.Struct:
		if t.NumField() == 0 {
			return ir.KindSingleton
		}
		for i := 0; i < t.NumField(); i++ {
			if k := reflectKind(t.Field(i).Type); k != ir.KindValue && k != ir.KindSingleton {
				return ir.KindReference
			}
		}
		return ir.KindValue
	case reflect.Array:
		if k := reflectKind(t.Elem()); k == ir.KindValue || k == ir.KindSingleton {
			return ir.KindValue
		}
		return ir.KindReference
	default:
		return ir.KindReference
	}
}
