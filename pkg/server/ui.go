package server

import (
	"embed"
	"html/template"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// indexData feeds the translation page template.
type indexData struct {
	Languages     []string
	DefaultSource string
	DefaultTarget string
}
