// Package ir defines the descriptors a tagged union is built from.
// Descriptors are language-agnostic: declared types are opaque identifiers
// and only their storage nature (TypeKind) drives layout decisions.
package ir

import "fmt"

// TypeKind classifies the storage nature of a value.
type TypeKind int

const (
	KindValue         TypeKind = iota // Copyable data with no ownership concerns
	KindReference                     // Owns or shares an external resource
	KindTypeParameter                 // Unknown until instantiation
	KindSingleton                     // Zero-size marker
	KindDecomposable                  // Composite whose fields are inlined into the case
)

var kindNames = [...]string{
	KindValue:         "value",
	KindReference:     "reference",
	KindTypeParameter: "typeparam",
	KindSingleton:     "singleton",
	KindDecomposable:  "decomposable",
}

// String returns the lowercase name used in description files.
func (k TypeKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k TypeKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid type kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// An empty string decodes to KindValue.
func (k *TypeKind) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		*k = KindValue
		return nil
	}
	for i, name := range kindNames {
		if name == s {
			*k = TypeKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown type kind %q", s)
}

// ParseKind parses a kind name as written in description files.
func ParseKind(s string) (TypeKind, error) {
	var k TypeKind
	err := k.UnmarshalText([]byte(s))
	return k, err
}

// ReferenceLike reports whether values of this kind must be kept out of
// value slots. valueOnly is the proof, for type parameters, that every
// instantiation is a value type.
func (k TypeKind) ReferenceLike(valueOnly bool) bool {
	switch k {
	case KindReference:
		return true
	case KindTypeParameter:
		return !valueOnly
	default:
		return false
	}
}
