// Package view renders the demo HTML pages from embedded templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	PageIndex          = "index"
	PageTest           = "test"
	PageAuthentication = "authentication"
	PageAuthorization  = "authorization"
	PageAttacker       = "attacker"
	PageError          = "error"
)

// Links are the public URLs of the sibling services.
type Links struct {
	AuthURL     string
	APIURL      string
	AttackerURL string
}

// PageData is shared by all site pages.
type PageData struct {
	Title     string
	CSRFToken string
	Links     Links
	// Result is the outcome line; Success selects its styling.
	Result  string
	Success bool
}

// AttackerData drives the rogue auto-submitting form.
type AttackerData struct {
	Target    string
	OtherPath string
	OtherName string
}

// Engine renders HTML templates and implements echo.Renderer.
type Engine struct {
	templates *template.Template
}

// NewEngine parses all embedded templates.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Engine{templates: tpl}, nil
}

// Render executes the named template.
func (e *Engine) Render(w io.Writer, name string, data any, _ echo.Context) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}

// Static returns the embedded stylesheet and script files.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
