// Package variant realizes union models at runtime.
//
// A Value is an immutable instance of a union model: it holds the active
// case's discriminant, the shared value slots and the overlay bucket laid
// out by the model's slot plan. Values are created only through a case
// factory (New or Construct) and every accessor is gated on the
// discriminant, so a slot written by one case is never read back as
// another case's payload.
//
// The model itself is built with variantgen/model:
//
//	u, err := model.Build(ir.UnionDescriptor{
//	    Name: "Result",
//	    Cases: []ir.CaseDescriptor{
//	        {Name: "Success", Tag: 0, Values: []ir.ValueDescriptor{ir.Value("value", "int")}},
//	        {Name: "Failure", Tag: 1, Values: []ir.ValueDescriptor{ir.Ref("reason", "string")}},
//	    },
//	    Options: ir.DefaultOptions(),
//	})
//	v, err := variant.New(u, "Success", 42)
//	n, ok := v.TryGet("Success", "value") // 42, true
package variant

import (
	"reflect"
	"strings"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
	"github.com/broady/variant/variantgen/model"
)

// Value is an instance of a union model.
// The zero Value belongs to no union; it is not equal to any constructed
// Value and reports no active case.
type Value struct {
	u      *model.Union
	idx    int
	values []any
	bucket []any
}

// New constructs a Value of the named case. args are the case's top-level
// values in declaration order.
func New(u *model.Union, caseName string, args ...any) (Value, error) {
	idx := u.Index(caseName)
	if idx < 0 {
		return Value{}, Errorf(CodeUnknownCase, "union %s has no case %q", u.Name, caseName)
	}
	return construct(u, idx, args)
}

// Construct constructs a Value through the named factory.
func Construct(u *model.Union, factory string, args ...any) (Value, error) {
	c, ok := u.CaseByFactory(factory)
	if !ok {
		return Value{}, Errorf(CodeUnknownCase, "union %s has no factory %q", u.Name, factory)
	}
	return construct(u, u.Index(c.Name), args)
}

// MustNew is like New but panics on error. Intended for tests and
// package-level initialization.
func MustNew(u *model.Union, caseName string, args ...any) Value {
	v, err := New(u, caseName, args...)
	if err != nil {
		panic(err)
	}
	return v
}

func construct(u *model.Union, idx int, args []any) (Value, error) {
	c := u.CaseAt(idx)
	if len(args) != len(c.Params) {
		return Value{}, Errorf(CodeInvalidArgument, "%s takes %d arguments, got %d", c.Factory, len(c.Params), len(args)).
			WithDetail("case", c.Name)
	}

	// Unused value slots hold their first type's default. Unused bucket
	// positions stay nil, which reads back as absent.
	v := Value{
		u:      u,
		idx:    idx,
		values: make([]any, u.ValueSlots()),
		bucket: make([]any, u.BucketSize()),
	}
	for i := range v.values {
		v.values[i] = Default(u.ValueSlotType(i))
	}

	leaves := make([]any, 0, len(c.Layout.Assignments))
	for i, p := range c.Params {
		var err error
		leaves, err = split(u, p, args[i], leaves)
		if err != nil {
			return Value{}, Errorf(CodeInvalidArgument, "%s: argument %s: %v", c.Factory, p.Name, err).
				WithDetail("case", c.Name)
		}
	}

	for j, a := range c.Layout.Assignments {
		switch a.Storage {
		case layout.StorageValue:
			v.values[a.Index] = leaves[j]
		case layout.StorageBucket:
			v.bucket[a.Index] = leaves[j]
		}
	}
	return v, nil
}

// split coerces one argument and, for decomposable parameters, breaks it
// into leaves in the same depth-first order the planner uses.
func split(u *model.Union, p ir.ValueDescriptor, arg any, out []any) ([]any, error) {
	switch p.Kind {
	case ir.KindSingleton:
		return append(out, struct{}{}), nil
	case ir.KindDecomposable:
	default:
		if p.Kind.ReferenceLike(p.ValueOnly) && absent(arg) {
			return append(out, nil), nil
		}
		if arg == nil {
			return append(out, Default(p.Type)), nil
		}
		x, err := coerce(p.Type, arg)
		if err != nil {
			return nil, err
		}
		return append(out, x), nil
	}

	children, _ := u.Children(p)
	for _, child := range children {
		field, err := childField(arg, child.Name)
		if err != nil {
			return nil, err
		}
		out, err = split(u, child, field, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// childField reads a named field out of a composite argument: a
// map[string]any or a struct (field names match case-insensitively).
// A nil composite yields nil for every field.
func childField(arg any, name string) (any, error) {
	if arg == nil {
		return nil, nil
	}
	if m, ok := arg.(map[string]any); ok {
		return m[name], nil
	}

	rv := reflect.Indirect(reflect.ValueOf(arg))
	if rv.Kind() != reflect.Struct {
		return nil, Errorf(CodeInvalidArgument, "composite value must be a map[string]any or struct, got %T", arg)
	}
	f := rv.FieldByNameFunc(func(s string) bool { return strings.EqualFold(s, name) })
	if !f.IsValid() {
		return nil, Errorf(CodeInvalidArgument, "%s has no field %s", rv.Type(), name)
	}
	if !f.CanInterface() {
		return nil, Errorf(CodeInvalidArgument, "%s.%s is unexported", rv.Type(), name)
	}
	return f.Interface(), nil
}

// Union returns the model the value belongs to.
func (v Value) Union() *model.Union { return v.u }

// Valid reports whether v was produced by a factory.
func (v Value) Valid() bool { return v.u != nil }

// Case returns the active case name.
func (v Value) Case() string {
	if v.u == nil {
		return ""
	}
	return v.u.CaseAt(v.idx).Name
}

// Tag returns the discriminant.
func (v Value) Tag() int {
	if v.u == nil {
		return 0
	}
	return v.u.CaseAt(v.idx).Tag
}

// Is reports whether the named case is active. For any constructed value
// exactly one case of its union reports true.
func (v Value) Is(caseName string) bool {
	return v.u != nil && v.u.CaseAt(v.idx).Name == caseName
}
