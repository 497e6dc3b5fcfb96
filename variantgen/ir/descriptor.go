package ir

// ValueDescriptor describes one named, typed payload slot carried by a case.
type ValueDescriptor struct {
	// Name is unique within the owning case (or composite).
	Name string `json:"name"`

	// Type is the declared type identifier. It is opaque to the planner
	// except for default-value lookup and composite resolution.
	Type string `json:"type"`

	// Kind is the storage nature of the value.
	Kind TypeKind `json:"kind"`

	// Children are the inlined fields of a Decomposable value.
	// When empty, the value is resolved by Type in UnionDescriptor.Composites.
	Children []ValueDescriptor `json:"children,omitempty"`

	// ValueOnly marks a TypeParameter whose constraint proves that every
	// instantiation is a value type. Ignored for other kinds.
	ValueOnly bool `json:"valueOnly,omitempty"`
}

// CaseDescriptor describes one union alternative.
type CaseDescriptor struct {
	// Name is unique within the union.
	Name string `json:"name"`

	// Tag is the discriminant value. Tags are distinct but need not be
	// contiguous, and must stay stable across regenerations.
	Tag int `json:"tag"`

	// Values are the case's payload in declaration order.
	Values []ValueDescriptor `json:"values,omitempty"`

	// Factory is the logical constructor name. Empty means "New" + Name.
	Factory string `json:"factory,omitempty"`

	// Doc is free-form documentation carried through to contracts.
	Doc string `json:"doc,omitempty"`
}

// IsSingleton reports whether the case carries no payload.
func (c CaseDescriptor) IsSingleton() bool { return len(c.Values) == 0 }

// FactoryName returns the constructor name, applying the default.
func (c CaseDescriptor) FactoryName() string {
	if c.Factory != "" {
		return c.Factory
	}
	return "New" + c.Name
}

// CompositeDescriptor is a named record shape that Decomposable values may
// refer to by type instead of listing their children inline.
type CompositeDescriptor struct {
	Name   string            `json:"name"`
	Fields []ValueDescriptor `json:"fields"`
}

// UnionDescriptor is the complete input for one union.
type UnionDescriptor struct {
	Name       string                `json:"name"`
	Cases      []CaseDescriptor      `json:"cases"`
	Composites []CompositeDescriptor `json:"composites,omitempty"`
	Options    Options               `json:"options"`
}

// Composite looks up a composite by name.
func (u *UnionDescriptor) Composite(name string) (*CompositeDescriptor, bool) {
	for i := range u.Composites {
		if u.Composites[i].Name == name {
			return &u.Composites[i], true
		}
	}
	return nil, false
}

// AddCase appends a case to the union.
func (u *UnionDescriptor) AddCase(c CaseDescriptor) {
	u.Cases = append(u.Cases, c)
}

// Options toggles the operation families and the reference sharing policy.
// Field tags name the keys accepted by option overrides.
type Options struct {
	GenerateEquality        bool `json:"generateEquality" schema:"generateEquality"`
	GenerateHashing         bool `json:"generateHashing" schema:"generateHashing"`
	GenerateToString        bool `json:"generateToString" schema:"generateToString"`
	GenerateExhaustiveMatch bool `json:"generateExhaustiveMatch" schema:"generateExhaustiveMatch"`

	// ShareReferenceSlots lets reference values of different cases occupy
	// the same bucket position.
	ShareReferenceSlots bool `json:"shareReferenceSlots" schema:"shareReferenceSlots"`
}

// DefaultOptions returns the options with every flag enabled.
func DefaultOptions() Options {
	return Options{
		GenerateEquality:        true,
		GenerateHashing:         true,
		GenerateToString:        true,
		GenerateExhaustiveMatch: true,
		ShareReferenceSlots:     true,
	}
}

// Value builds a value-kind descriptor.
func Value(name, typ string) ValueDescriptor {
	return ValueDescriptor{Name: name, Type: typ, Kind: KindValue}
}

// Ref builds a reference-kind descriptor.
func Ref(name, typ string) ValueDescriptor {
	return ValueDescriptor{Name: name, Type: typ, Kind: KindReference}
}

// TypeParam builds a type-parameter descriptor.
func TypeParam(name, typ string, valueOnly bool) ValueDescriptor {
	return ValueDescriptor{Name: name, Type: typ, Kind: KindTypeParameter, ValueOnly: valueOnly}
}

// Inline builds a decomposable descriptor with inline children.
func Inline(name, typ string, children ...ValueDescriptor) ValueDescriptor {
	return ValueDescriptor{Name: name, Type: typ, Kind: KindDecomposable, Children: children}
}
