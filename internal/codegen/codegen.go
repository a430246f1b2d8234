// Package codegen renders the generated Go sources that carry checksums as
// compile-time constants. Every value it emits is computed by package crc,
// so generated constants and runtime calls cannot drift apart.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"os"
	"strings"
	"text/template"
	"unicode"

	"github.com/assetsum/assetsum/internal/crc"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidName = errors.New("invalid identifier")
	ErrInvalidPath = errors.New("path contains control characters")
	ErrDuplicate   = errors.New("duplicate entry")
	ErrCollision   = errors.New("checksum collision")
)

// IDEntry names one asset path.
type IDEntry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// IDFile is the YAML document listing well-known assets.
type IDFile struct {
	Package string    `yaml:"package"`
	IDs     []IDEntry `yaml:"ids"`
}

// LoadIDs reads and validates an id list
func LoadIDs(path string) (*IDFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read id file: %w", err)
	}

	var f IDFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse id file: %w", err)
	}
	if f.Package == "" {
		f.Package = "assetid"
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks names are exported identifiers, paths are free of control
// characters, and that no name, path or checksum repeats.
func (f *IDFile) Validate() error {
	if !token.IsIdentifier(f.Package) {
		return fmt.Errorf("package %q: %w", f.Package, ErrInvalidName)
	}

	names := make(map[string]bool, len(f.IDs))
	sums := make(map[uint32]string, len(f.IDs))
	for _, e := range f.IDs {
		if !token.IsIdentifier(e.Name) || !token.IsExported(e.Name) {
			return fmt.Errorf("name %q: %w", e.Name, ErrInvalidName)
		}
		if names[e.Name] {
			return fmt.Errorf("name %q: %w", e.Name, ErrDuplicate)
		}
		names[e.Name] = true

		// Paths are echoed into a line comment in the generated source.
		if strings.IndexFunc(e.Path, unicode.IsControl) >= 0 {
			return fmt.Errorf("path %q: %w", e.Path, ErrInvalidPath)
		}

		sum := crc.String(e.Path)
		if prev, ok := sums[sum]; ok {
			if prev == e.Path {
				return fmt.Errorf("path %q: %w", e.Path, ErrDuplicate)
			}
			return fmt.Errorf("%q and %q: %w", prev, e.Path, ErrCollision)
		}
		sums[sum] = e.Path
	}
	return nil
}

var tableTmpl = template.Must(template.New("table").Parse(`{{if .Constraint}}//go:build {{.Constraint}}

{{end}}// Code generated by assetsum gen table; DO NOT EDIT.

package {{.Package}}

// {{.Var}} holds the byte-wise remainders for polynomial {{.Poly}}.
var {{.Var}} = Table{
{{- range .Rows}}
	{{.}}
{{- end}}
}
`))

var idsTmpl = template.Must(template.New("ids").Parse(`// Code generated by assetsum gen ids; DO NOT EDIT.

package {{.Package}}

const (
{{- range .IDs}}
	{{.Name}} ID = {{.Hex}} // {{.Path}}
{{- end}}
)

// lookup resolves a generated identity to its asset path. Duplicate
// identities fail to compile as duplicate switch cases.
func lookup(id ID) (string, bool) {
	switch id {
{{- range .IDs}}
	case {{.Name}}:
		return {{printf "%q" .Path}}, true
{{- end}}
	}
	return "", false
}

var knownPaths = []string{
{{- range .IDs}}
	{{printf "%q" .Path}},
{{- end}}
}
`))

// RenderTable writes the lookup table for poly as a Table literal named
// varName in package pkg. A non-empty constraint is emitted as a //go:build
// line.
func RenderTable(w io.Writer, pkg, varName string, poly uint32, constraint string) error {
	tab := crc.MakeTable(poly)

	rows := make([]string, 0, len(tab)/8)
	for i := 0; i < len(tab); i += 8 {
		cells := make([]string, 8)
		for j := range cells {
			cells[j] = fmt.Sprintf("0x%08x,", tab[i+j])
		}
		rows = append(rows, strings.Join(cells, " "))
	}

	return render(w, tableTmpl, struct {
		Constraint string
		Package    string
		Var        string
		Poly       string
		Rows       []string
	}{constraint, pkg, varName, fmt.Sprintf("0x%08x", poly), rows})
}

// RenderIDs writes one ID constant per entry plus the lookup switch.
func RenderIDs(w io.Writer, f *IDFile) error {
	if err := f.Validate(); err != nil {
		return err
	}

	type row struct {
		Name, Path, Hex string
	}
	rows := make([]row, len(f.IDs))
	for i, e := range f.IDs {
		rows[i] = row{e.Name, e.Path, fmt.Sprintf("0x%08x", crc.String(e.Path))}
	}

	return render(w, idsTmpl, struct {
		Package string
		IDs     []row
	}{f.Package, rows})
}

func render(w io.Writer, t *template.Template, data any) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute %s template: %w", t.Name(), err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to format %s source: %w", t.Name(), err)
	}

	_, err = w.Write(src)
	return err
}
