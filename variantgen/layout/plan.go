// Package layout assigns the leaves of every union case to physical storage.
//
// A plan has one discriminant slot, a set of value slots shared by position
// across cases, and a single overlay bucket for reference-like leaves. The
// bucket is discriminated by the tag: only the active case's positions are
// ever live, so reference leaves of different cases may share a position.
package layout

import (
	"fmt"
	"slices"
	"strings"

	"github.com/broady/variant/variantgen/ir"
)

// Storage is the storage class a leaf is assigned to.
type Storage int

const (
	StorageNone   Storage = iota // Zero-size leaves (singleton kind)
	StorageValue                 // A shared value slot
	StorageBucket                // A position in the overlay bucket
)

// String returns the storage class name.
func (s Storage) String() string {
	switch s {
	case StorageNone:
		return "none"
	case StorageValue:
		return "value"
	case StorageBucket:
		return "bucket"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Storage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Discriminant is the tag slot, valid for the lifetime of an instance.
type Discriminant struct {
	// Bits is the smallest signed integer width holding every tag.
	Bits int `json:"bits"`
	Min  int `json:"min"`
	Max  int `json:"max"`
}

// ValueSlot holds one value-kind leaf of whichever case is active.
type ValueSlot struct {
	Index int `json:"index"`

	// Types are the declared types sharing this slot, in first-seen order.
	// The first one determines the slot's default.
	Types []string `json:"types"`
}

// FieldKey identifies a leaf by case and dotted field name.
type FieldKey struct {
	Case  string `json:"case"`
	Field string `json:"field"`
}

func (k FieldKey) String() string { return k.Case + "." + k.Field }

// BucketSlot is one position of the overlay bucket.
type BucketSlot struct {
	Index  int        `json:"index"`
	Types  []string   `json:"types"`
	Owners []FieldKey `json:"owners"`
}

// Bucket is the discriminated overlay region for reference-like leaves.
type Bucket struct {
	// Shared reports whether distinct cases may own the same position.
	Shared bool         `json:"shared"`
	Slots  []BucketSlot `json:"slots"`
}

// Size returns the number of positions in the bucket.
func (b Bucket) Size() int { return len(b.Slots) }

// Assignment maps one leaf to its storage location.
type Assignment struct {
	Field     string      `json:"field"`
	Type      string      `json:"type"`
	Kind      ir.TypeKind `json:"kind"`
	ValueOnly bool        `json:"valueOnly,omitempty"`
	Storage   Storage     `json:"storage"`
	Index     int         `json:"index"` // -1 for StorageNone
	Param     int         `json:"param"`
}

// CaseLayout is the per-case mapping from leaves to slots.
type CaseLayout struct {
	Case        string       `json:"case"`
	Tag         int          `json:"tag"`
	Assignments []Assignment `json:"assignments"`
}

// Field looks up an assignment by dotted field name.
func (c *CaseLayout) Field(name string) (Assignment, bool) {
	for _, a := range c.Assignments {
		if a.Field == name {
			return a, true
		}
	}
	return Assignment{}, false
}

// Clone returns a copy of c that shares no memory with it.
func (c *CaseLayout) Clone() *CaseLayout {
	out := *c
	out.Assignments = slices.Clone(c.Assignments)
	return &out
}

// SlotPlan is the planner's output.
type SlotPlan struct {
	Discriminant Discriminant `json:"discriminant"`
	Values       []ValueSlot  `json:"values"`
	Bucket       Bucket       `json:"bucket"`
	Cases        []CaseLayout `json:"cases"`
}

// Case looks up a case layout by name.
func (p *SlotPlan) Case(name string) (*CaseLayout, bool) {
	for i := range p.Cases {
		if p.Cases[i].Case == name {
			return &p.Cases[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of p.
func (p *SlotPlan) Clone() *SlotPlan {
	out := *p
	out.Values = make([]ValueSlot, len(p.Values))
	for i, v := range p.Values {
		v.Types = slices.Clone(v.Types)
		out.Values[i] = v
	}
	out.Bucket.Slots = make([]BucketSlot, len(p.Bucket.Slots))
	for i, b := range p.Bucket.Slots {
		b.Types = slices.Clone(b.Types)
		b.Owners = slices.Clone(b.Owners)
		out.Bucket.Slots[i] = b
	}
	out.Cases = make([]CaseLayout, len(p.Cases))
	for i := range p.Cases {
		out.Cases[i] = *p.Cases[i].Clone()
	}
	return &out
}

// Summary is a one-line description used in logs.
func (p *SlotPlan) Summary() string {
	return fmt.Sprintf("disc=i%d values=%d bucket=%d shared=%t cases=%d",
		p.Discriminant.Bits, len(p.Values), p.Bucket.Size(), p.Bucket.Shared, len(p.Cases))
}

// Plan assigns every leaf of cases to storage. The result depends only on
// the order and contents of cases and on shareReferences.
//
// Value-kind leaves: the k-th value leaf of each case goes to value slot k.
// Reference-like leaves: with sharing, the j-th reference leaf of each case
// goes to bucket position j; without sharing, every leaf gets its own
// position. Singleton-kind leaves take no storage.
func Plan(cases []ir.FlatCase, shareReferences bool) (*SlotPlan, error) {
	p := &SlotPlan{
		Discriminant: discriminantFor(cases),
		Bucket:       Bucket{Shared: shareReferences},
		Cases:        make([]CaseLayout, 0, len(cases)),
	}

	for _, c := range cases {
		cl := CaseLayout{Case: c.Name, Tag: c.Tag, Assignments: make([]Assignment, 0, len(c.Fields))}
		valueIdx, refIdx := 0, 0

		for _, f := range c.Fields {
			a := Assignment{
				Field:     f.Name(),
				Type:      f.Type,
				Kind:      f.Kind,
				ValueOnly: f.ValueOnly,
				Param:     f.Param,
				Index:     -1,
			}

			switch {
			case f.Kind == ir.KindSingleton:
				a.Storage = StorageNone

			case f.ReferenceLike():
				a.Storage = StorageBucket
				if shareReferences {
					a.Index = refIdx
					refIdx++
				} else {
					a.Index = len(p.Bucket.Slots)
				}
				p.claimBucket(a.Index, f.Type, FieldKey{Case: c.Name, Field: a.Field})

			default:
				a.Storage = StorageValue
				a.Index = valueIdx
				valueIdx++
				p.claimValue(a.Index, f.Type)
			}

			cl.Assignments = append(cl.Assignments, a)
		}
		p.Cases = append(p.Cases, cl)
	}

	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SlotPlan) claimValue(idx int, typ string) {
	if idx == len(p.Values) {
		p.Values = append(p.Values, ValueSlot{Index: idx})
	}
	p.Values[idx].Types = appendUnique(p.Values[idx].Types, typ)
}

func (p *SlotPlan) claimBucket(idx int, typ string, owner FieldKey) {
	if idx == len(p.Bucket.Slots) {
		p.Bucket.Slots = append(p.Bucket.Slots, BucketSlot{Index: idx})
	}
	s := &p.Bucket.Slots[idx]
	s.Types = appendUnique(s.Types, typ)
	s.Owners = append(s.Owners, owner)
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}

// Verify checks the plan's internal invariants: within one case no two
// leaves share a location, every index is in range, and an unshared bucket
// never has two owners for one position. A failure is a planner defect.
func (p *SlotPlan) Verify() error {
	type loc struct {
		storage Storage
		index   int
	}

	for _, c := range p.Cases {
		used := make(map[loc]string, len(c.Assignments))
		for _, a := range c.Assignments {
			if a.Storage == StorageNone {
				continue
			}
			switch a.Storage {
			case StorageValue:
				if a.Index < 0 || a.Index >= len(p.Values) {
					return collision(c.Case, fmt.Sprintf("field %s assigned to missing value slot %d", a.Field, a.Index))
				}
			case StorageBucket:
				if a.Index < 0 || a.Index >= len(p.Bucket.Slots) {
					return collision(c.Case, fmt.Sprintf("field %s assigned to missing bucket position %d", a.Field, a.Index))
				}
			}
			l := loc{a.Storage, a.Index}
			if other, ok := used[l]; ok {
				return collision(c.Case, fmt.Sprintf("fields %s and %s both assigned to %s slot %d", other, a.Field, a.Storage, a.Index))
			}
			used[l] = a.Field
		}
	}

	if !p.Bucket.Shared {
		for _, s := range p.Bucket.Slots {
			if len(s.Owners) > 1 {
				owners := make([]string, len(s.Owners))
				for i, o := range s.Owners {
					owners[i] = o.String()
				}
				return collision("", fmt.Sprintf("unshared bucket position %d owned by %s", s.Index, strings.Join(owners, ", ")))
			}
		}
	}
	return nil
}

func collision(caseName, msg string) error {
	var cases []string
	if caseName != "" {
		cases = []string{caseName}
	}
	return ir.Errorf(ir.CodeLayoutCollision, "", cases, msg)
}

// discriminantFor picks the smallest signed width covering every tag.
func discriminantFor(cases []ir.FlatCase) Discriminant {
	d := Discriminant{Bits: 8}
	if len(cases) == 0 {
		return d
	}
	d.Min, d.Max = cases[0].Tag, cases[0].Tag
	for _, c := range cases[1:] {
		d.Min = min(d.Min, c.Tag)
		d.Max = max(d.Max, c.Tag)
	}
	for _, bits := range []int{8, 16, 32} {
		lo, hi := -(1 << (bits - 1)), (1<<(bits-1))-1
		if d.Min >= lo && d.Max <= hi {
			d.Bits = bits
			return d
		}
	}
	d.Bits = 64
	return d
}
