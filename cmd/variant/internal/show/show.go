// Package show renders union models, plans and contracts as terminal tables.
package show

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/broady/variant/variantgen"
	"github.com/broady/variant/variantgen/ir"
	"github.com/broady/variant/variantgen/layout"
	"github.com/broady/variant/variantgen/model"
	"github.com/broady/variant/variantgen/synth"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// Title renders a section heading.
func Title(s string) string {
	return titleStyle.Render(s)
}

// OK renders a success line.
func OK(format string, args ...any) string {
	return okStyle.Render("✓ " + fmt.Sprintf(format, args...))
}

// Failure renders an error line.
func Failure(format string, args ...any) string {
	return errorStyle.Render("✗ " + fmt.Sprintf(format, args...))
}

// Summary renders one row per built union.
func Summary(artifacts []variantgen.Artifact) string {
	t := newTable("Union", "Cases", "Discriminant", "Value slots", "Bucket", "Operations")
	for _, a := range artifacts {
		p := a.Union.Plan()
		bucket := strconv.Itoa(p.Bucket.Size())
		if p.Bucket.Size() > 0 && p.Bucket.Shared {
			bucket += " (shared)"
		}
		t.Row(
			a.Union.Name,
			strconv.Itoa(a.Union.Len()),
			fmt.Sprintf("int%d", p.Discriminant.Bits),
			strconv.Itoa(len(p.Values)),
			bucket,
			strconv.Itoa(len(a.Contract.Operations)),
		)
	}
	return t.String()
}

// Plan renders the slot assignment of every leaf of u.
func Plan(u *model.Union) string {
	var b strings.Builder
	b.WriteString(Title(u.Name))
	fmt.Fprintf(&b, " %s\n", dimStyle.Render(u.Plan().Summary()))

	t := newTable("Case", "Tag", "Field", "Type", "Kind", "Slot")
	for _, c := range u.Plan().Cases {
		if len(c.Assignments) == 0 {
			t.Row(c.Case, strconv.Itoa(c.Tag), "", "", "", "")
			continue
		}
		for i, a := range c.Assignments {
			name, tag := "", ""
			if i == 0 {
				name, tag = c.Case, strconv.Itoa(c.Tag)
			}
			t.Row(name, tag, a.Field, a.Type, kind(a), slot(a))
		}
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

func kind(a layout.Assignment) string {
	if a.Kind == ir.KindTypeParameter && a.ValueOnly {
		return a.Kind.String() + " (value-only)"
	}
	return a.Kind.String()
}

func slot(a layout.Assignment) string {
	switch a.Storage {
	case layout.StorageValue:
		return fmt.Sprintf("value[%d]", a.Index)
	case layout.StorageBucket:
		return fmt.Sprintf("bucket[%d]", a.Index)
	default:
		return dimStyle.Render("none")
	}
}

// Contract renders the operations of c with their signatures.
func Contract(c *synth.Contract) string {
	var b strings.Builder
	b.WriteString(Title(c.Union))
	b.WriteString("\n")

	t := newTable("Family", "Case", "Signature", "Fails")
	for _, op := range c.Operations {
		fails := ""
		if op.Failure != nil {
			fails = op.Failure.Code
		}
		t.Row(string(op.Family), op.Case, variantgen.Signature(c.Union, op), fails)
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// Errors renders each model error found in err on its own line.
func Errors(err error) string {
	var lines []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, Failure("%s", line))
		}
	}
	return strings.Join(lines, "\n")
}
