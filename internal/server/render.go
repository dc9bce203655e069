package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "about", "history"}

type renderer struct {
	pages map[string]*template.Template
	md    goldmark.Markdown
}

func newRenderer() (*renderer, error) {
	r := &renderer{
		pages: make(map[string]*template.Template, len(pageNames)),
		// Hard wraps keep OCR line breaks visible.
		md: goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps())),
	}
	funcs := template.FuncMap{
		"markdown": r.markdown,
		"inc":      func(i int) int { return i + 1 },
	}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// markdown renders extracted text the way the views display it: as
// Markdown, so highlighted keywords come out in bold. Raw HTML in the text
// is not passed through.
func (r *renderer) markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(s), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(s) + "</p>")
	}
	return template.HTML(buf.String())
}

func (r *renderer) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := r.pages[page]
	if !ok {
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("Failed to render page", "page", page, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
