package provider

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.bytecodealliance.org/wit"

	"github.com/broady/variant/variantgen/ir"
)

// LoadWIT reads a WIT package in its JSON form (as produced by
// `wasm-tools component wit --json`) and converts the named type
// definition. name is either the WIT identifier ("http-error") or the
// union name it converts to ("HttpError").
func LoadWIT(path, name string) (ir.UnionDescriptor, error) {
	res, err := wit.LoadJSON(path)
	if err != nil {
		return ir.UnionDescriptor{}, fmt.Errorf("load WIT: %w", err)
	}
	for _, td := range res.TypeDefs {
		if td.Name != nil && (*td.Name == name || exportedName(*td.Name) == name) {
			return FromWIT(td)
		}
	}
	return ir.UnionDescriptor{}, fmt.Errorf("%s: no type definition named %q", path, name)
}

// FromWIT converts a WIT variant, enum, option or result type definition
// into a union. Tags are the WIT discriminants, which is the case index.
// Record and tuple payloads become decomposable values.
func FromWIT(td *wit.TypeDef) (ir.UnionDescriptor, error) {
	u := ir.UnionDescriptor{
		Name:    witTypeName(td, "Union"),
		Options: ir.DefaultOptions(),
	}

	switch k := td.Kind.(type) {
	case *wit.Variant:
		for i, c := range k.Cases {
			cd := ir.CaseDescriptor{Name: exportedName(c.Name), Tag: i, Doc: c.Docs.Contents}
			if c.Type != nil {
				cd.Values = []ir.ValueDescriptor{witValue("value", c.Type)}
			}
			u.AddCase(cd)
		}
	case *wit.Enum:
		for i, c := range k.Cases {
			u.AddCase(ir.CaseDescriptor{Name: exportedName(c.Name), Tag: i, Doc: c.Docs.Contents})
		}
	case *wit.Option:
		u.AddCase(ir.CaseDescriptor{Name: "None", Tag: 0})
		u.AddCase(ir.CaseDescriptor{Name: "Some", Tag: 1, Values: []ir.ValueDescriptor{witValue("value", k.Type)}})
	case *wit.Result:
		ok := ir.CaseDescriptor{Name: "Ok", Tag: 0}
		if k.OK != nil {
			ok.Values = []ir.ValueDescriptor{witValue("value", k.OK)}
		}
		fail := ir.CaseDescriptor{Name: "Err", Tag: 1}
		if k.Err != nil {
			fail.Values = []ir.ValueDescriptor{witValue("error", k.Err)}
		}
		u.AddCase(ok)
		u.AddCase(fail)
	default:
		return ir.UnionDescriptor{}, ir.Errorf(ir.CodeInvalidDescriptor, u.Name, nil,
			fmt.Sprintf("WIT type %T is not a variant, enum, option or result", td.Kind))
	}
	return u, nil
}

// witValue classifies one WIT payload type.
func witValue(name string, t wit.Type) ir.ValueDescriptor {
	v := ir.ValueDescriptor{Name: name, Type: witGoType(t), Kind: ir.KindReference}

	switch t := t.(type) {
	case wit.Bool, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32,
		wit.S64, wit.U64, wit.F32, wit.F64, wit.Char:
		v.Kind = ir.KindValue
	case *wit.TypeDef:
		switch k := t.Kind.(type) {
		case *wit.Record:
			v.Kind = ir.KindDecomposable
			for _, f := range k.Fields {
				v.Children = append(v.Children, witValue(fieldName(f.Name), f.Type))
			}
			if len(v.Children) == 0 {
				v.Kind = ir.KindSingleton
				v.Type = "struct{}"
			}
		case *wit.Tuple:
			v.Kind = ir.KindDecomposable
			for i, elem := range k.Types {
				v.Children = append(v.Children, witValue("f"+strconv.Itoa(i), elem))
			}
		case *wit.Enum, *wit.Flags:
			v.Kind = ir.KindValue
		case wit.Type:
			// Type aliases resolve to their target.
			inner := witValue(name, k)
			inner.Type = v.Type
			return inner
		}
	}
	return v
}

// witGoType names the Go type a WIT type maps to.
func witGoType(t wit.Type) string {
	switch t := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S8:
		return "int8"
	case wit.U8:
		return "uint8"
	case wit.S16:
		return "int16"
	case wit.U16:
		return "uint16"
	case wit.S32:
		return "int32"
	case wit.U32:
		return "uint32"
	case wit.S64:
		return "int64"
	case wit.U64:
		return "uint64"
	case wit.F32:
		return "float32"
	case wit.F64:
		return "float64"
	case wit.Char:
		return "rune"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if t.Name != nil {
			return exportedName(*t.Name)
		}
		switch k := t.Kind.(type) {
		case *wit.List:
			return "[]" + witGoType(k.Type)
		case *wit.Option:
			return "*" + witGoType(k.Type)
		case *wit.Own:
			return witGoType(k.Type)
		case *wit.Borrow:
			return witGoType(k.Type)
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, elem := range k.Types {
				parts[i] = "f" + strconv.Itoa(i) + " " + witGoType(elem)
			}
			return "struct{" + strings.Join(parts, "; ") + "}"
		case wit.Type:
			return witGoType(k)
		}
		return "any"
	default:
		return "any"
	}
}

func witTypeName(td *wit.TypeDef, fallback string) string {
	if td.Name == nil || *td.Name == "" {
		return fallback
	}
	return exportedName(*td.Name)
}

// exportedName converts a kebab-case WIT identifier to CamelCase.
func exportedName(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "-") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// fieldName converts a kebab-case WIT identifier to lowerCamelCase.
func fieldName(s string) string {
	n := exportedName(s)
	if n == "" {
		return n
	}
	r := []rune(n)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
