package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Formatter renders the embedded HTML email templates by name.
type Formatter struct {
	templates *template.Template
}

func NewFormatter() (*Formatter, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Formatter{templates: t}, nil
}

func (f *Formatter) Format(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := f.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
