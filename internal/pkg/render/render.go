// Package render turns page models into HTML.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/ougirez/databaker/internal/domain/dto"
)

const (
	PageCountriesIndex = "countries_index.html"
	PageCountryProfile = "country_profile.html"
	PageChartsIndex    = "charts_index.html"
	PageExplorer       = "explorer.html"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer maps a page model to HTML. Implementations do no I/O.
type Renderer interface {
	Render(page string, model any) (string, error)
}

type TemplateRenderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"migration": func(p *dto.ExplorerPage) map[string]string {
		return map[string]string{
			"migrationId":  p.MigrationID,
			"baseQueryStr": p.BaseQueryStr,
		}
	},
}

// New parses the embedded templates. Each page gets its own template set sharing the layout.
func New() (*TemplateRenderer, error) {
	r := &TemplateRenderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageCountriesIndex, PageCountryProfile, PageChartsIndex, PageExplorer} {
		t, err := template.New(page).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("template.ParseFS %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

func (r *TemplateRenderer) Render(page string, model any) (string, error) {
	t, ok := r.pages[page]
	if !ok {
		return "", fmt.Errorf("render: unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, page, model); err != nil {
		return "", fmt.Errorf("render %s: %w", page, err)
	}
	return buf.String(), nil
}

// Func adapts a plain function to Renderer.
type Func func(page string, model any) (string, error)

func (f Func) Render(page string, model any) (string, error) {
	return f(page, model)
}
