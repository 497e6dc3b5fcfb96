// Package provider turns external descriptions of tagged unions into
// union descriptors: description files (YAML or JSON), WebAssembly WIT type
// definitions, Go source annotated with //variant:case directives, and Go
// values via reflection.
package provider

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/broady/variant/variantgen/ir"
)

var validate = validator.New()

// Document is the top-level shape of a description file.
//
//	unions:
//	  - name: Result
//	    cases:
//	      - name: Success
//	        values: [{name: value, type: int}]
//	      - name: Failure
//	        values: [{name: reason, type: string, kind: reference}]
type Document struct {
	Unions []UnionSpec `yaml:"unions" validate:"required,min=1,dive"`
}

// UnionSpec describes one union in a description file.
type UnionSpec struct {
	Name       string          `yaml:"name" validate:"required"`
	Cases      []CaseSpec      `yaml:"cases" validate:"required,min=1,dive"`
	Composites []CompositeSpec `yaml:"composites,omitempty" validate:"dive"`
	Options    OptionsSpec     `yaml:"options,omitempty"`
}

// CaseSpec describes one case. A missing tag defaults to the case's
// position in the file.
type CaseSpec struct {
	Name    string      `yaml:"name" validate:"required"`
	Tag     *int        `yaml:"tag,omitempty"`
	Factory string      `yaml:"factory,omitempty"`
	Doc     string      `yaml:"doc,omitempty"`
	Values  []ValueSpec `yaml:"values,omitempty" validate:"dive"`
}

// ValueSpec describes one value. Kind defaults to "value".
type ValueSpec struct {
	Name      string      `yaml:"name" validate:"required"`
	Type      string      `yaml:"type" validate:"required_unless=Kind singleton"`
	Kind      string      `yaml:"kind,omitempty" validate:"omitempty,oneof=value reference typeparam singleton decomposable"`
	ValueOnly bool        `yaml:"valueOnly,omitempty"`
	Fields    []ValueSpec `yaml:"fields,omitempty" validate:"dive"`
}

// CompositeSpec is a named record shape for decomposable values.
type CompositeSpec struct {
	Name   string      `yaml:"name" validate:"required"`
	Fields []ValueSpec `yaml:"fields" validate:"required,min=1,dive"`
}

// OptionsSpec overrides the default options. Unset fields keep their
// default (true).
type OptionsSpec struct {
	GenerateEquality        *bool `yaml:"generateEquality,omitempty"`
	GenerateHashing         *bool `yaml:"generateHashing,omitempty"`
	GenerateToString        *bool `yaml:"generateToString,omitempty"`
	GenerateExhaustiveMatch *bool `yaml:"generateExhaustiveMatch,omitempty"`
	ShareReferenceSlots     *bool `yaml:"shareReferenceSlots,omitempty"`
}

// Apply returns base with the set fields overridden.
func (o OptionsSpec) Apply(base ir.Options) ir.Options {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.GenerateEquality, o.GenerateEquality)
	set(&base.GenerateHashing, o.GenerateHashing)
	set(&base.GenerateToString, o.GenerateToString)
	set(&base.GenerateExhaustiveMatch, o.GenerateExhaustiveMatch)
	set(&base.ShareReferenceSlots, o.ShareReferenceSlots)
	return base
}

// LoadFile reads a description file.
func LoadFile(path string) ([]ir.UnionDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	unions, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return unions, nil
}

// Decode reads a description document from r. JSON documents are accepted
// too, JSON being a subset of YAML. Unknown keys are rejected.
func Decode(r io.Reader) ([]ir.UnionDescriptor, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ir.Errorf(ir.CodeInvalidDescriptor, "", nil, "empty description")
		}
		return nil, fmt.Errorf("decode description: %w", err)
	}
	return doc.Descriptors()
}

// Descriptors validates the document and converts it.
func (d *Document) Descriptors() ([]ir.UnionDescriptor, error) {
	if err := validate.Struct(d); err != nil {
		return nil, validationError(err)
	}

	out := make([]ir.UnionDescriptor, 0, len(d.Unions))
	for _, us := range d.Unions {
		u := ir.UnionDescriptor{
			Name:    us.Name,
			Options: us.Options.Apply(ir.DefaultOptions()),
		}
		for i, cs := range us.Cases {
			tag := i
			if cs.Tag != nil {
				tag = *cs.Tag
			}
			values, err := convertValues(cs.Values)
			if err != nil {
				return nil, fmt.Errorf("union %s, case %s: %w", us.Name, cs.Name, err)
			}
			u.AddCase(ir.CaseDescriptor{
				Name:    cs.Name,
				Tag:     tag,
				Factory: cs.Factory,
				Doc:     strings.TrimSpace(cs.Doc),
				Values:  values,
			})
		}
		for _, cs := range us.Composites {
			fields, err := convertValues(cs.Fields)
			if err != nil {
				return nil, fmt.Errorf("union %s, composite %s: %w", us.Name, cs.Name, err)
			}
			u.Composites = append(u.Composites, ir.CompositeDescriptor{Name: cs.Name, Fields: fields})
		}
		out = append(out, u)
	}
	return out, nil
}

func convertValues(specs []ValueSpec) ([]ir.ValueDescriptor, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]ir.ValueDescriptor, len(specs))
	for i, s := range specs {
		kind, err := ir.ParseKind(s.Kind)
		if err != nil {
			return nil, err
		}
		children, err := convertValues(s.Fields)
		if err != nil {
			return nil, err
		}
		typ := s.Type
		if typ == "" && kind == ir.KindSingleton {
			typ = "struct{}"
		}
		out[i] = ir.ValueDescriptor{
			Name:      s.Name,
			Type:      typ,
			Kind:      kind,
			Children:  children,
			ValueOnly: s.ValueOnly,
		}
	}
	return out, nil
}

// Encode writes unions as a description document.
func Encode(w io.Writer, unions []ir.UnionDescriptor) error {
	doc := Document{Unions: make([]UnionSpec, len(unions))}
	for i, u := range unions {
		us := UnionSpec{Name: u.Name, Options: optionsSpec(u.Options)}
		for _, c := range u.Cases {
			tag := c.Tag
			us.Cases = append(us.Cases, CaseSpec{
				Name:    c.Name,
				Tag:     &tag,
				Factory: c.Factory,
				Doc:     c.Doc,
				Values:  valueSpecs(c.Values),
			})
		}
		for _, c := range u.Composites {
			us.Composites = append(us.Composites, CompositeSpec{Name: c.Name, Fields: valueSpecs(c.Fields)})
		}
		doc.Unions[i] = us
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func valueSpecs(values []ir.ValueDescriptor) []ValueSpec {
	if len(values) == 0 {
		return nil
	}
	out := make([]ValueSpec, len(values))
	for i, v := range values {
		kind := v.Kind.String()
		if v.Kind == ir.KindValue {
			kind = ""
		}
		out[i] = ValueSpec{
			Name:      v.Name,
			Type:      v.Type,
			Kind:      kind,
			ValueOnly: v.ValueOnly,
			Fields:    valueSpecs(v.Children),
		}
	}
	return out
}

// optionsSpec records only the options that differ from the defaults.
func optionsSpec(o ir.Options) OptionsSpec {
	def := ir.DefaultOptions()
	diff := func(got, want bool) *bool {
		if got == want {
			return nil
		}
		return &got
	}
	return OptionsSpec{
		GenerateEquality:        diff(o.GenerateEquality, def.GenerateEquality),
		GenerateHashing:         diff(o.GenerateHashing, def.GenerateHashing),
		GenerateToString:        diff(o.GenerateToString, def.GenerateToString),
		GenerateExhaustiveMatch: diff(o.GenerateExhaustiveMatch, def.GenerateExhaustiveMatch),
		ShareReferenceSlots:     diff(o.ShareReferenceSlots, def.ShareReferenceSlots),
	}
}

// validationError converts validator failures into one joined error of
// invalid_descriptor problems.
func validationError(err error) error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	errs := make([]error, 0, len(valErrs))
	for _, ve := range valErrs {
		errs = append(errs, ir.Errorf(ir.CodeInvalidDescriptor, "", nil,
			strings.TrimPrefix(ve.Namespace(), "Document.")+": "+formatValidationError(ve)))
	}
	return errors.Join(errs...)
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "required_unless":
		return "required unless " + ve.Param()
	case "min":
		return fmt.Sprintf("must have at least %s entries", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
