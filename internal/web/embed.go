package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"
)

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS

// Templates holds one parsed set per page, each combining the base layout
// with the page's blocks.
type Templates struct {
	pages map[string]*template.Template
}

// ExecuteTemplate renders the page registered under name, e.g. "home.html".
func (t *Templates) ExecuteTemplate(w io.Writer, name string, data any) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Has reports whether a page template exists.
func (t *Templates) Has(name string) bool {
	_, ok := t.pages[name]
	return ok
}

// Funcs are the helpers available to every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"datetime": FormatDateTime,
		"inc":      func(i int) int { return i + 1 },
	}
}

// FormatDateTime renders a timestamp for the board, or a dash when unset.
func FormatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02 15:04")
}

// LoadTemplates parses all templates from the embedded filesystem
// Each page gets its own template set with the base layout
func LoadTemplates() (*Templates, error) {
	baseContent, err := fs.ReadFile(TemplatesFS, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(TemplatesFS, "templates/pages")
	if err != nil {
		return nil, err
	}

	t := &Templates{pages: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		pageContent, err := fs.ReadFile(TemplatesFS, "templates/pages/"+entry.Name())
		if err != nil {
			return nil, err
		}

		// Parse base first, then page content which overrides the blocks
		pageTmpl, err := template.New(entry.Name()).Funcs(Funcs()).Parse(string(baseContent))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", entry.Name(), err)
		}
		if _, err := pageTmpl.Parse(string(pageContent)); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		t.pages[entry.Name()] = pageTmpl
	}

	return t, nil
}

// GetStaticFS returns the static file system for serving static files
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}
