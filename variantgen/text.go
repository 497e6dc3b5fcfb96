package variantgen

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/broady/variant/variantgen/layout"
	"github.com/broady/variant/variantgen/model"
	"github.com/broady/variant/variantgen/synth"
)

// PlanText renders the slot plan of u for humans.
func PlanText(u *model.Union) string {
	var b strings.Builder
	p := u.Plan()
	fmt.Fprintf(&b, "union %s\n", u.Name)
	fmt.Fprintf(&b, "discriminant int%d [%d..%d]\n", p.Discriminant.Bits, p.Discriminant.Min, p.Discriminant.Max)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	if len(p.Values) > 0 {
		fmt.Fprintln(tw, "value slots:")
		for _, s := range p.Values {
			fmt.Fprintf(tw, "  v%d\t%s\n", s.Index, strings.Join(s.Types, " | "))
		}
	}
	if p.Bucket.Size() > 0 {
		mode := "unshared"
		if p.Bucket.Shared {
			mode = "shared"
		}
		fmt.Fprintf(tw, "bucket (%s):\n", mode)
		for _, s := range p.Bucket.Slots {
			owners := make([]string, len(s.Owners))
			for i, o := range s.Owners {
				owners[i] = o.String()
			}
			fmt.Fprintf(tw, "  b%d\t%s\t%s\n", s.Index, strings.Join(s.Types, " | "), strings.Join(owners, ", "))
		}
	}
	fmt.Fprintln(tw, "cases:")
	for _, c := range p.Cases {
		fmt.Fprintf(tw, "  %s\ttag=%d\n", c.Case, c.Tag)
		for _, a := range c.Assignments {
			fmt.Fprintf(tw, "    %s\t%s\t%s\n", a.Field, a.Type, location(a))
		}
	}
	tw.Flush()
	return b.String()
}

func location(a layout.Assignment) string {
	switch a.Storage {
	case layout.StorageValue:
		return fmt.Sprintf("v%d", a.Index)
	case layout.StorageBucket:
		return fmt.Sprintf("b%d", a.Index)
	default:
		return "-"
	}
}

// ContractText renders a contract for humans: one signature line per
// operation followed by its behavior clauses.
func ContractText(c *synth.Contract) string {
	var b strings.Builder
	fmt.Fprintf(&b, "contract %s\n", c.Union)
	for _, op := range c.Operations {
		b.WriteString("\n")
		b.WriteString(Signature(c.Union, op))
		fmt.Fprintf(&b, "  [%s]\n", op.Family)
		if op.Failure != nil {
			fmt.Fprintf(&b, "  fails %s when %s\n", op.Failure.Code, op.Failure.When)
		}
		for _, clause := range op.Behavior {
			fmt.Fprintf(&b, "  - %s\n", clause)
		}
	}
	return b.String()
}

// Signature formats an operation as a Go-like signature.
func Signature(union string, op synth.Operation) string {
	var b strings.Builder
	if op.Receiver {
		fmt.Fprintf(&b, "(%s) ", union)
	}
	b.WriteString(op.Name)
	b.WriteString("(")
	for i, p := range op.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name + " " + p.Type)
		if p.Optional {
			b.WriteString("?")
		}
	}
	b.WriteString(")")
	switch len(op.Results) {
	case 0:
	case 1:
		b.WriteString(" " + op.Results[0].Type)
	default:
		types := make([]string, len(op.Results))
		for i, r := range op.Results {
			types[i] = r.Type
		}
		b.WriteString(" (" + strings.Join(types, ", ") + ")")
	}
	return b.String()
}
