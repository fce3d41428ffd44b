// Package view renders the server-side HTML pages from embedded templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/adboard/adboard/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"mediaURL": func(key string) string { return "/media/" + key },
}

// Renderer renders named pages, each composed with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses all embedded templates. Each page template is combined with
// the layout so pages can be rendered independently.
func New() (*Renderer, error) {
	pageNames := []string{"index", "login", "register", "product_form", "my_products", "not_found"}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(pageFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{pages: pages}, nil
}

// IndexData drives the home page: all listings, optionally filtered.
type IndexData struct {
	PageTitle string
	UserName  string
	Query     string
	Products  []domain.Product
}

// AuthData drives the login and register pages.
type AuthData struct {
	PageTitle string
	UserName  string
	Message   string
	Email     string
	Name      string
}

// ProductFormData drives the add/edit listing form.
type ProductFormData struct {
	PageTitle string
	UserName  string
	Message   string
	Action    string
	Product   *domain.Product
}

// MyProductsData drives the owner's listing page.
type MyProductsData struct {
	PageTitle string
	UserName  string
	Products  []domain.Product
}

// NotFoundData drives the custom 404 page.
type NotFoundData struct {
	PageTitle string
	UserName  string
}

func (r *Renderer) IndexPage(w io.Writer, data IndexData) error {
	return r.render(w, "index", data)
}

func (r *Renderer) LoginPage(w io.Writer, data AuthData) error {
	return r.render(w, "login", data)
}

func (r *Renderer) RegisterPage(w io.Writer, data AuthData) error {
	return r.render(w, "register", data)
}

func (r *Renderer) ProductFormPage(w io.Writer, data ProductFormData) error {
	return r.render(w, "product_form", data)
}

func (r *Renderer) MyProductsPage(w io.Writer, data MyProductsData) error {
	return r.render(w, "my_products", data)
}

func (r *Renderer) NotFoundPage(w io.Writer, data NotFoundData) error {
	return r.render(w, "not_found", data)
}

func (r *Renderer) render(w io.Writer, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}
