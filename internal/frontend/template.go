package frontend

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/gin-gonic/gin"
)

// Page names
const (
	PageHome    = "home"
	PageResults = "results"
)

// Templates holds one parsed template set per page, each sharing the layout
type Templates struct {
	pages map[string]*template.Template
}

// LoadTemplates parses the embedded page templates
func LoadTemplates() (*Templates, error) {
	return loadTemplates(assets)
}

func loadTemplates(fsys fs.FS) (*Templates, error) {
	t := &Templates{pages: make(map[string]*template.Template)}

	for _, page := range []string{PageHome, PageResults} {
		tmpl, err := template.New(page).ParseFS(fsys, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		t.pages[page] = tmpl
	}

	return t, nil
}

// Render executes page into the response with no-store caching
func (t *Templates) Render(c *gin.Context, status int, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to execute %s template: %w", page, err)
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
	return nil
}
