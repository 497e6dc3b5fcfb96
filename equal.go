package variant

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/davecgh/go-spew/spew"

	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
	"github.com/broady/variant/variantgen/synth"
)

// Equaler is implemented by payloads with their own notion of equality.
type Equaler interface {
	Equal(other any) bool
}

// Hasher is implemented by payloads that hash themselves. Payloads that are
// Equalers should also be Hashers so equal values hash equally.
type Hasher interface {
	Hash() uint64
}

// Equal reports whether v and w are the same case with equal payloads.
// Reference-like leaves compare equal when both are absent, or when both
// are present and equal. Values of different unions are never equal.
func (v Value) Equal(w Value) bool {
	if v.u == nil || w.u == nil {
		return v.u == nil && w.u == nil
	}
	if v.u != w.u || v.idx != w.idx {
		return false
	}
	for _, a := range v.u.CaseAt(v.idx).Layout.Assignments {
		x, y := v.read(a), w.read(a)
		if a.Storage == layout.StorageBucket {
			xa, ya := absent(x), absent(y)
			if xa || ya {
				if xa != ya {
					return false
				}
				continue
			}
		}
		if !payloadEqual(x, y) {
			return false
		}
	}
	return true
}

// payloadEqual is total and reflexive: NaN equals a NaN of the same type,
// and values whose dynamic contents are not comparable (an interface field
// holding a slice) fall back to a deep comparison instead of panicking.
func payloadEqual(x, y any) bool {
	if e, ok := x.(Equaler); ok {
		return e.Equal(y)
	}
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	if reflect.TypeOf(x) != reflect.TypeOf(y) {
		return false
	}
	switch a := x.(type) {
	case float32:
		return floatEqual(float64(a), float64(y.(float32)))
	case float64:
		return floatEqual(a, y.(float64))
	case complex64:
		b := y.(complex64)
		return floatEqual(float64(real(a)), float64(real(b))) && floatEqual(float64(imag(a)), float64(imag(b)))
	case complex128:
		b := y.(complex128)
		return floatEqual(real(a), real(b)) && floatEqual(imag(a), imag(b))
	}
	if reflect.ValueOf(x).Comparable() && reflect.ValueOf(y).Comparable() {
		return x == y
	}
	return reflect.DeepEqual(x, y)
}

func floatEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// hashConfig renders payloads the hasher has no native encoding for. It
// omits addresses and sorts map keys so the dump depends only on content.
var hashConfig = &spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
	SortKeys:                true,
	SpewKeys:                true,
}

// Hash returns a hash consistent with Equal: it covers the discriminant and
// the active case's leaves, and ignores every other slot.
func (v Value) Hash() uint64 {
	if v.u == nil {
		return 0
	}
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v.Tag()))
	d.Write(buf[:])

	for _, a := range v.u.CaseAt(v.idx).Layout.Assignments {
		if a.Storage == layout.StorageNone {
			continue
		}
		x := v.read(a)
		var h uint64
		if !(a.Storage == layout.StorageBucket && absent(x)) {
			h = hashPayload(x)
		}
		binary.LittleEndian.PutUint64(buf[:], h)
		d.Write(buf[:])
	}
	return d.Sum64()
}

func hashPayload(x any) uint64 {
	if h, ok := x.(Hasher); ok {
		return h.Hash()
	}

	var buf [8]byte
	switch t := x.(type) {
	case nil:
		return 0
	case string:
		return xxhash.Sum64String(t)
	case bool:
		if t {
			return 1
		}
		return 2
	case float32:
		return hashFloat(float64(t))
	case float64:
		return hashFloat(t)
	case complex64:
		return hashFloat(float64(real(t)))*31 + hashFloat(float64(imag(t)))
	case complex128:
		return hashFloat(real(t))*31 + hashFloat(imag(t))
	case int:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case int8:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case int16:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case int32:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case uint:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case uint8:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case uint16:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case uint32:
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
	case uint64:
		binary.LittleEndian.PutUint64(buf[:], t)
	default:
		return xxhash.Sum64String(hashConfig.Sdump(x))
	}
	return xxhash.Sum64(buf[:])
}

// hashFloat folds -0 into 0 and every NaN into one canonical NaN, so that
// values comparing equal hash equally.
func hashFloat(f float64) uint64 {
	switch {
	case f == 0:
		f = 0
	case math.IsNaN(f):
		f = math.NaN()
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	return xxhash.Sum64(buf[:])
}

// String renders the active case as "Case(v1, v2)", or "Case" for a case
// without payload. Absent references render as "nil" and decomposed values
// as "{field: value, ...}" in declaration order.
func (v Value) String() string {
	if v.u == nil {
		return "<invalid>"
	}
	c := v.u.CaseAt(v.idx)
	r := &recomposer{u: v.u, leaves: c.Layout.Assignments, get: v.read}
	out := make([]string, len(c.Params))
	for i, p := range c.Params {
		out[i] = render(r, p)
	}
	return synth.Render(c.Name, out)
}

// render formats one parameter, consuming its leaves from r.
func render(r *recomposer, p ir.ValueDescriptor) string {
	if p.Kind != ir.KindDecomposable {
		x := r.get(r.leaves[r.pos])
		r.pos++
		if p.Kind == ir.KindSingleton {
			return p.Name
		}
		if absent(x) {
			return "nil"
		}
		return fmt.Sprint(x)
	}
	children, _ := r.u.Children(p)
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = child.Name + ": " + render(r, child)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
