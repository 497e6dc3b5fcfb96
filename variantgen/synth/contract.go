// Package synth derives, from a union model, the behavioral contract of
// every generated operation. Contracts are abstract operation descriptors;
// turning them into source text is left to an emitter.
package synth

import (
	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
)

// Family groups operations that one option flag toggles together.
type Family string

const (
	FamilyConstruct Family = "construct"
	FamilyCaseTest  Family = "case-test"
	FamilyExtract   Family = "extract"
	FamilyMatch     Family = "match"
	FamilyEquality  Family = "equality"
	FamilyHashing   Family = "hashing"
	FamilyString    Family = "string"
)

// FailureInvalidCaseAccess is the failure code of non-try accessors.
const FailureInvalidCaseAccess = "invalid_case_access"

// Param is a parameter or result of an operation.
type Param struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Kind     ir.TypeKind `json:"kind"`
	Optional bool        `json:"optional,omitempty"`
}

// Failure describes how an operation signals a precondition violation.
type Failure struct {
	Code string `json:"code"`
	When string `json:"when"`
}

// SlotWrite is one slot initialization performed by a factory.
type SlotWrite struct {
	Storage layout.Storage `json:"storage"`
	Index   int            `json:"index"`

	// Field is the leaf written here. Empty for unused slots.
	Field string `json:"field,omitempty"`

	// Default is the declared type whose default fills an unused value slot.
	Default string `json:"default,omitempty"`

	// Absent is set for unused bucket positions, which hold no reference.
	Absent bool `json:"absent,omitempty"`
}

// Operation is one abstract operation descriptor.
type Operation struct {
	Name     string   `json:"name"`
	Family   Family   `json:"family"`
	Case     string   `json:"case,omitempty"`
	Receiver bool     `json:"receiver"`
	Params   []Param  `json:"params,omitempty"`
	Results  []Param  `json:"results,omitempty"`
	Failure  *Failure `json:"failure,omitempty"`

	// Behavior lists the contract clauses, in evaluation order.
	Behavior []string `json:"behavior"`

	// Writes is set for factories: every slot of the plan, in order.
	Writes []SlotWrite `json:"writes,omitempty"`
}

// TagEntry pairs a case with its discriminant.
type TagEntry struct {
	Case string `json:"case"`
	Tag  int    `json:"tag"`
}

// Contract is the complete set of operations for one union.
type Contract struct {
	Union        string              `json:"union"`
	Discriminant layout.Discriminant `json:"discriminant"`

	// Tags enumerates the cases in ascending tag order.
	Tags []TagEntry `json:"tags"`

	Operations []Operation `json:"operations"`
}

// Find looks up an operation by name.
func (c *Contract) Find(name string) (*Operation, bool) {
	for i := range c.Operations {
		if c.Operations[i].Name == name {
			return &c.Operations[i], true
		}
	}
	return nil, false
}

// Family returns the operations of one family in contract order.
func (c *Contract) Family(f Family) []Operation {
	var out []Operation
	for _, op := range c.Operations {
		if op.Family == f {
			out = append(out, op)
		}
	}
	return out
}

// ForCase returns the operations bound to one case.
func (c *Contract) ForCase(name string) []Operation {
	var out []Operation
	for _, op := range c.Operations {
		if op.Case == name {
			out = append(out, op)
		}
	}
	return out
}
