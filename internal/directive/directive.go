// Package directive parses variant directives from Go source files.
//
// A case directive is a line comment on a type declaration:
//
//	//variant:case <Union> [tag=N] [factory=Name]
//
// It marks the struct type as one case of Union. The tag defaults to the
// case's position among the union's cases in source order; the factory
// defaults to "New" followed by the type name.
package directive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

const prefix = "//variant:"

// Directive is a parsed case directive.
type Directive struct {
	Union    string
	Tag      int
	HasTag   bool           // tag=N was given
	Factory  string         // empty for the default
	TypeName string         // the annotated type
	Doc      string         // the type's doc comment, without directives
	Pos      token.Position // source location
}

// Result contains all directives found in a package.
type Result struct {
	Cases []Directive

	// PackagePath is the import path of the parsed package.
	PackagePath string

	// Dir is the directory containing the package.
	Dir string
}

// ParseDir scans the Go package matching pattern for case directives.
// If dir is empty, the current directory is used.
func ParseDir(pattern, dir string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found matching %q", pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("multiple packages found matching %q; specify a single package", pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors[0])
	}

	result := &Result{PackagePath: pkg.PkgPath}
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	fset := token.NewFileSet()
	for _, filename := range pkg.GoFiles {
		f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
		cases, err := ParseFile(fset, f)
		if err != nil {
			return nil, err
		}
		result.Cases = append(result.Cases, cases...)
	}
	return result, nil
}

// ParseFile extracts the case directives of one parsed file. The file must
// have been parsed with parser.ParseComments.
func ParseFile(fset *token.FileSet, f *ast.File) ([]Directive, error) {
	type pending struct {
		d    Directive
		used bool
	}
	byGroup := make(map[*ast.CommentGroup]*pending)
	var order []*ast.CommentGroup

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			if !strings.HasPrefix(c.Text, prefix) {
				continue
			}
			pos := fset.Position(c.Pos())
			d, err := parseLine(strings.TrimPrefix(c.Text, prefix), pos)
			if err != nil {
				return nil, err
			}
			if _, dup := byGroup[cg]; dup {
				return nil, fmt.Errorf("%s: more than one //variant:case directive on one declaration", pos)
			}
			byGroup[cg] = &pending{d: d}
			order = append(order, cg)
		}
	}

	var out []Directive
	attach := func(doc *ast.CommentGroup, spec *ast.TypeSpec) error {
		if doc == nil {
			return nil
		}
		p, ok := byGroup[doc]
		if !ok {
			return nil
		}
		if _, isStruct := spec.Type.(*ast.StructType); !isStruct {
			return fmt.Errorf("%s: //variant:case must annotate a struct type, %s is not one", p.d.Pos, spec.Name.Name)
		}
		p.used = true
		p.d.TypeName = spec.Name.Name
		p.d.Doc = strings.TrimSpace(doc.Text())
		out = append(out, p.d)
		return nil
	}

	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			spec := s.(*ast.TypeSpec)
			doc := spec.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			if err := attach(doc, spec); err != nil {
				return nil, err
			}
		}
	}

	for _, cg := range order {
		if p := byGroup[cg]; !p.used {
			return nil, fmt.Errorf("%s: //variant:case directive must be followed by a type declaration", p.d.Pos)
		}
	}
	return out, nil
}

// parseLine parses the text after "//variant:".
func parseLine(text string, pos token.Position) (Directive, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Directive{}, fmt.Errorf("%s: empty //variant: directive", pos)
	}
	if parts[0] != "case" {
		return Directive{}, fmt.Errorf("%s: unknown directive //variant:%s", pos, parts[0])
	}
	if len(parts) < 2 {
		return Directive{}, fmt.Errorf("%s: //variant:case needs a union name", pos)
	}

	d := Directive{Union: parts[1], Pos: pos}
	for _, opt := range parts[2:] {
		key, value, ok := strings.Cut(opt, "=")
		if !ok || value == "" {
			return Directive{}, fmt.Errorf("%s: malformed option %q, want key=value", pos, opt)
		}
		switch key {
		case "tag":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Directive{}, fmt.Errorf("%s: invalid tag %q: %w", pos, value, err)
			}
			d.Tag, d.HasTag = n, true
		case "factory":
			d.Factory = value
		default:
			return Directive{}, fmt.Errorf("%s: unknown option %q", pos, key)
		}
	}
	return d, nil
}
