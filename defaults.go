package variant

import (
	"math"
	"reflect"

	"github.com/spf13/cast"
)

// Default returns the default stored in an inactive slot of the given
// declared type: the zero value for Go builtin type names, nil otherwise.
// For reference-like slots nil means "absent".
func Default(typ string) any {
	switch typ {
	case "bool":
		return false
	case "string":
		return ""
	case "int":
		return 0
	case "int8":
		return int8(0)
	case "int16":
		return int16(0)
	case "int32", "rune":
		return int32(0)
	case "int64":
		return int64(0)
	case "uint":
		return uint(0)
	case "uint8", "byte":
		return uint8(0)
	case "uint16":
		return uint16(0)
	case "uint32":
		return uint32(0)
	case "uint64":
		return uint64(0)
	case "uintptr":
		return uintptr(0)
	case "float32":
		return float32(0)
	case "float64":
		return float64(0)
	case "complex64":
		return complex64(0)
	case "complex128":
		return complex128(0)
	case "struct{}":
		return struct{}{}
	default:
		return nil
	}
}

// coerce converts a factory argument to the Go type named by typ.
// Unknown type names pass the argument through untouched. A numeric
// conversion that would change the value, such as 300 into an int8 or 1.9
// into an int, is rejected.
func coerce(typ string, arg any) (any, error) {
	out, err := castTo(typ, arg)
	if err != nil {
		return nil, err
	}
	if !lossless(arg, out) {
		return nil, Errorf(CodeInvalidArgument, "%v (%T) does not fit in %s", arg, arg, typ)
	}
	return out, nil
}

func castTo(typ string, arg any) (any, error) {
	switch typ {
	case "bool":
		return cast.ToBoolE(arg)
	case "string":
		return cast.ToStringE(arg)
	case "int":
		return cast.ToIntE(arg)
	case "int8":
		return cast.ToInt8E(arg)
	case "int16":
		return cast.ToInt16E(arg)
	case "int32", "rune":
		return cast.ToInt32E(arg)
	case "int64":
		return cast.ToInt64E(arg)
	case "uint":
		return cast.ToUintE(arg)
	case "uint8", "byte":
		return cast.ToUint8E(arg)
	case "uint16":
		return cast.ToUint16E(arg)
	case "uint32":
		return cast.ToUint32E(arg)
	case "uint64":
		return cast.ToUint64E(arg)
	case "float32":
		return cast.ToFloat32E(arg)
	case "float64":
		return cast.ToFloat64E(arg)
	default:
		return arg, nil
	}
}

// lossless reports whether out, the result of casting arg to a numeric
// type, still denotes arg. Integer results must match exactly; float
// results may round but must not overflow. Non-numeric results always pass.
func lossless(arg, out any) bool {
	ov := reflect.ValueOf(out)
	if !isNumeric(ov.Kind()) {
		return true
	}

	av := reflect.ValueOf(arg)
	switch k := av.Kind(); {
	case isSigned(k):
		return matchesInt(ov, av.Int())
	case isUnsigned(k):
		return matchesUint(ov, av.Uint())
	case k == reflect.Float32 || k == reflect.Float64:
		return matchesFloat(ov, av.Float())
	case k == reflect.String:
		switch {
		case isSigned(ov.Kind()):
			n, err := cast.ToInt64E(arg)
			return err == nil && n == ov.Int()
		case isUnsigned(ov.Kind()):
			n, err := cast.ToUint64E(arg)
			return err == nil && n == ov.Uint()
		default:
			f, err := cast.ToFloat64E(arg)
			return err == nil && matchesFloat(ov, f)
		}
	}
	return true
}

func matchesInt(ov reflect.Value, n int64) bool {
	switch k := ov.Kind(); {
	case isSigned(k):
		return ov.Int() == n
	case isUnsigned(k):
		return n >= 0 && ov.Uint() == uint64(n)
	default:
		return ov.Float() == float64(n)
	}
}

func matchesUint(ov reflect.Value, n uint64) bool {
	switch k := ov.Kind(); {
	case isSigned(k):
		return ov.Int() >= 0 && uint64(ov.Int()) == n
	case isUnsigned(k):
		return ov.Uint() == n
	default:
		return ov.Float() == float64(n)
	}
}

func matchesFloat(ov reflect.Value, f float64) bool {
	switch k := ov.Kind(); {
	case isSigned(k):
		return float64(ov.Int()) == f && !overflowsInt(f)
	case isUnsigned(k):
		return float64(ov.Uint()) == f && f < math.Exp2(64)
	default:
		g := ov.Float()
		if math.IsNaN(f) {
			return math.IsNaN(g)
		}
		return !math.IsInf(g, 0) || math.IsInf(f, 0)
	}
}

// overflowsInt reports whether f lies outside the int64 range, where the
// float-to-int conversion is undefined.
func overflowsInt(f float64) bool {
	return f < -math.Exp2(63) || f >= math.Exp2(63)
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumeric(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || k == reflect.Float32 || k == reflect.Float64
}

// absent reports whether a stored payload is nil, including typed nils.
func absent(x any) bool {
	if x == nil {
		return true
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
